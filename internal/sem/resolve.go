package sem

import (
	"strings"

	"github.com/macroaudit/macroaudit/internal/cast"
)

// SymKind classifies a symbol table entry.
type SymKind int

const (
	SymVar SymKind = iota
	SymFunc
	SymTypedef
	SymEnumConst
	SymTag
)

// Symbol is one declared name (or tag).
type Symbol struct {
	Name string
	Kind SymKind
	Type *Type

	// Node is the declarator or specifier that introduced the symbol.
	Node *cast.Node
	// Seq is the declaration's translation-unit position.
	Seq int

	// Local is true for declarations at non-file scope. Static is the
	// storage-class; a static local does not count as local storage.
	Local  bool
	Static bool
	Extern bool

	EnumVal int64
}

// Scope is one lexical scope. Lookup walks outward.
type Scope struct {
	parent *Scope
	names  map[string]*Symbol
	tags   map[string]*Symbol
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: make(map[string]*Symbol), tags: make(map[string]*Symbol)}
}

func (s *Scope) lookup(name string) *Symbol {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.names[name]; ok {
			return sym
		}
	}
	return nil
}

func (s *Scope) lookupTag(name string) *Symbol {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.tags[name]; ok {
			return sym
		}
	}
	return nil
}

// Info is the semantic model of one translation unit.
type Info struct {
	Tree *cast.Tree

	// Uses maps identifier expressions to the symbol they reference.
	Uses map[*cast.Node]*Symbol
	// Symbols is every declared symbol in declaration order.
	Symbols []*Symbol

	file  *Scope
	types map[*cast.Node]*Type
	typed map[*cast.Node]bool
}

// Resolve walks the tree once, building scopes, declaring symbols and
// resolving identifier uses. The walk is an explicit stack with enter/exit
// events so deep trees cannot overflow the goroutine stack.
func Resolve(tree *cast.Tree) *Info {
	in := &Info{
		Tree:  tree,
		Uses:  make(map[*cast.Node]*Symbol),
		types: make(map[*cast.Node]*Type),
		typed: make(map[*cast.Node]bool),
	}
	r := &resolver{in: in, scope: newScope(nil)}
	in.file = r.scope
	if tree.Root != nil {
		r.walk(tree.Root)
	}
	return in
}

type resolver struct {
	in    *Info
	scope *Scope
	depth int // scope nesting; 0 is file scope
}

type walkItem struct {
	n    *cast.Node
	exit bool
}

func (r *resolver) walk(root *cast.Node) {
	stack := []walkItem{{n: root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.exit {
			r.scope = r.scope.parent
			r.depth--
			continue
		}

		n := it.n
		opens := r.enter(n)
		if opens {
			r.scope = newScope(r.scope)
			r.depth++
			stack = append(stack, walkItem{n: n, exit: true})
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, walkItem{n: n.Children[i]})
		}
	}
}

// enter processes one node in source order, returning whether it opens a
// scope that must close after its children.
func (r *resolver) enter(n *cast.Node) bool {
	switch n.Kind {
	case "function_definition":
		r.declareFunction(n)
		return true
	case "compound_statement":
		// function bodies share the parameter scope
		if n.Parent != nil && n.Parent.Kind == "function_definition" {
			return false
		}
		return true
	case "for_statement":
		return true
	case "declaration":
		r.declare(n)
	case "type_definition":
		r.declareTypedef(n)
	case "parameter_declaration":
		r.declareParam(n)
	case "struct_specifier", "union_specifier", "enum_specifier":
		// declaring occurrences are handled while building the type
		r.typeFromSpecifier(n)
	case "identifier":
		if isUse(n) {
			if sym := r.scope.lookup(r.in.Tree.Text(n)); sym != nil {
				r.in.Uses[n] = sym
			}
		}
	}
	return false
}

// isUse distinguishes identifier references from declarator names, member
// names, and labels.
func isUse(n *cast.Node) bool {
	if n.Parent == nil {
		return false
	}
	switch n.Field {
	case "declarator", "field", "label", "name":
		return false
	}
	p := n.Parent.Kind
	switch p {
	case "function_declarator", "parenthesized_declarator", "labeled_statement", "goto_statement", "preproc_def", "preproc_function_def":
		return false
	}
	return true
}

func (r *resolver) seqOf(n *cast.Node) int {
	if n == nil {
		return 0
	}
	if n.FirstTok >= 0 && n.FirstTok < len(r.in.Tree.Tokens) {
		return r.in.Tree.Tokens[n.FirstTok].Seq
	}
	for _, c := range n.Children {
		if s := r.seqOf(c); s > 0 {
			return s
		}
	}
	return 0
}

func (r *resolver) register(sym *Symbol) {
	if sym.Name == "" {
		return
	}
	r.scope.names[sym.Name] = sym
	r.in.Symbols = append(r.in.Symbols, sym)
}

type storage struct {
	static  bool
	extern  bool
	typedef bool
}

func (r *resolver) storageOf(n *cast.Node) storage {
	var st storage
	for _, c := range n.Children {
		if c.Kind == "storage_class_specifier" {
			switch r.in.Tree.Text(c) {
			case "static":
				st.static = true
			case "extern":
				st.extern = true
			case "typedef":
				st.typedef = true
			}
		}
	}
	return st
}

func (r *resolver) declare(n *cast.Node) {
	base := r.specifierType(n)
	st := r.storageOf(n)
	for _, c := range n.Children {
		if c.Field != "declarator" {
			continue
		}
		nameNode, t := r.declaratorType(c, base)
		if nameNode == nil {
			continue
		}
		kind := SymVar
		if t != nil && t.Kind == Func {
			kind = SymFunc
		}
		if st.typedef {
			kind = SymTypedef
		}
		sym := &Symbol{
			Name:   r.in.Tree.Text(nameNode),
			Kind:   kind,
			Type:   t,
			Node:   nameNode,
			Seq:    r.seqOf(nameNode),
			Local:  r.depth > 0,
			Static: st.static,
			Extern: st.extern,
		}
		if kind == SymTypedef {
			sym.Type = &Type{Kind: Typedef, Name: sym.Name, Underlying: t, TypedefSym: sym}
		}
		r.register(sym)
	}
}

func (r *resolver) declareTypedef(n *cast.Node) {
	base := r.specifierType(n)
	for _, c := range n.Children {
		if c.Field != "declarator" {
			continue
		}
		nameNode, t := r.declaratorType(c, base)
		if nameNode == nil {
			continue
		}
		sym := &Symbol{
			Name:  r.in.Tree.Text(nameNode),
			Kind:  SymTypedef,
			Node:  nameNode,
			Seq:   r.seqOf(nameNode),
			Local: r.depth > 0,
		}
		sym.Type = &Type{Kind: Typedef, Name: sym.Name, Underlying: t, TypedefSym: sym}
		r.register(sym)
	}
}

func (r *resolver) declareFunction(n *cast.Node) {
	base := r.specifierType(n)
	st := r.storageOf(n)
	decl := n.ChildByField("declarator")
	if decl == nil {
		return
	}
	nameNode, t := r.declaratorType(decl, base)
	if nameNode == nil {
		return
	}
	sym := &Symbol{
		Name:   r.in.Tree.Text(nameNode),
		Kind:   SymFunc,
		Type:   t,
		Node:   nameNode,
		Seq:    r.seqOf(nameNode),
		Local:  r.depth > 0,
		Static: st.static,
	}
	r.register(sym)
}

func (r *resolver) declareParam(n *cast.Node) {
	// prototype parameters at file scope must not leak into it
	if r.depth == 0 {
		return
	}
	base := r.specifierType(n)
	decl := n.ChildByField("declarator")
	if decl == nil {
		return
	}
	nameNode, t := r.declaratorType(decl, base)
	if nameNode == nil {
		return
	}
	r.register(&Symbol{
		Name:  r.in.Tree.Text(nameNode),
		Kind:  SymVar,
		Type:  t,
		Node:  nameNode,
		Seq:   r.seqOf(nameNode),
		Local: true,
	})
}

// declaratorType unwraps a declarator, wrapping the base type from the
// outside in, and returns the name node.
func (r *resolver) declaratorType(d *cast.Node, base *Type) (*cast.Node, *Type) {
	switch d.Kind {
	case "identifier", "type_identifier", "field_identifier":
		return d, base
	case "init_declarator":
		inner := d.ChildByField("declarator")
		if inner == nil {
			return nil, base
		}
		return r.declaratorType(inner, base)
	case "pointer_declarator":
		inner := d.ChildByField("declarator")
		if inner == nil {
			return nil, base
		}
		return r.declaratorType(inner, &Type{Kind: Pointer, Elem: base})
	case "array_declarator":
		inner := d.ChildByField("declarator")
		if inner == nil {
			return nil, base
		}
		length := -1
		if size := d.ChildByField("size"); size != nil && size.Kind == "number_literal" {
			if v, ok := parseIntLiteral(r.in.Tree.Text(size)); ok {
				length = int(v)
			}
		}
		return r.declaratorType(inner, &Type{Kind: Array, Elem: base, Len: length})
	case "function_declarator":
		inner := d.ChildByField("declarator")
		if inner == nil {
			return nil, base
		}
		ft := &Type{Kind: Func, Ret: base}
		if params := d.ChildByField("parameters"); params != nil {
			for _, p := range params.Children {
				if p.Kind != "parameter_declaration" {
					continue
				}
				pb := r.specifierType(p)
				if pd := p.ChildByField("declarator"); pd != nil {
					_, pt := r.declaratorType(pd, pb)
					ft.Params = append(ft.Params, pt)
				} else {
					ft.Params = append(ft.Params, pb)
				}
			}
		}
		return r.declaratorType(inner, ft)
	case "parenthesized_declarator":
		for _, c := range d.Children {
			if name, t := r.declaratorType(c, base); name != nil {
				return name, t
			}
		}
		return nil, base
	case "abstract_pointer_declarator":
		return nil, &Type{Kind: Pointer, Elem: base}
	case "abstract_array_declarator":
		return nil, &Type{Kind: Array, Elem: base, Len: -1}
	}
	return nil, base
}

// specifierType reads the type specifier of a declaration-like node.
func (r *resolver) specifierType(n *cast.Node) *Type {
	spec := n.ChildByField("type")
	if spec == nil {
		return nil
	}
	return r.typeFromSpecifier(spec)
}

// typeFromSpecifier is memoized per node so a specifier visited both as
// part of a declaration and on its own declares its tag only once.
func (r *resolver) typeFromSpecifier(spec *cast.Node) *Type {
	if r.in.typed[spec] {
		return r.in.types[spec]
	}
	t := r.specifier(spec)
	r.in.typed[spec] = true
	r.in.types[spec] = t
	return t
}

func (r *resolver) specifier(spec *cast.Node) *Type {
	switch spec.Kind {
	case "primitive_type", "sized_type_specifier":
		return builtinFromText(r.in.Tree.Text(spec))
	case "type_identifier":
		if sym := r.scope.lookup(r.in.Tree.Text(spec)); sym != nil && sym.Kind == SymTypedef {
			return sym.Type
		}
		return nil
	case "struct_specifier":
		return r.tagType(spec, Struct)
	case "union_specifier":
		return r.tagType(spec, Union)
	case "enum_specifier":
		return r.tagType(spec, Enum)
	}
	return nil
}

// tagType resolves or declares a struct/union/enum specifier. A specifier
// with a body is a definition; one without refers to (or forward-declares)
// the tag.
func (r *resolver) tagType(spec *cast.Node, kind TypeKind) *Type {
	name := ""
	if nn := spec.ChildByField("name"); nn != nil {
		name = r.in.Tree.Text(nn)
	}
	body := spec.ChildByField("body")

	if body == nil && name != "" {
		if sym := r.scope.lookupTag(name); sym != nil {
			return sym.Type
		}
	}

	sym := &Symbol{
		Name:  name,
		Kind:  SymTag,
		Node:  spec,
		Seq:   r.seqOf(spec),
		Local: r.depth > 0,
	}
	t := &Type{Kind: kind, Tag: name, Decl: sym}
	sym.Type = t
	if name != "" {
		r.scope.tags[name] = sym
	}
	r.in.Symbols = append(r.in.Symbols, sym)

	if body != nil {
		switch kind {
		case Struct, Union:
			t.Members = r.fieldTypes(body)
		case Enum:
			r.declareEnumerators(body)
		}
	}
	return t
}

func (r *resolver) fieldTypes(body *cast.Node) map[string]*Type {
	members := make(map[string]*Type)
	for _, f := range body.Children {
		if f.Kind != "field_declaration" {
			continue
		}
		base := r.specifierType(f)
		for _, c := range f.Children {
			if c.Field != "declarator" {
				continue
			}
			if nameNode, t := r.declaratorType(c, base); nameNode != nil {
				members[r.in.Tree.Text(nameNode)] = t
			}
		}
	}
	return members
}

func (r *resolver) declareEnumerators(body *cast.Node) {
	next := int64(0)
	for _, e := range body.Children {
		if e.Kind != "enumerator" {
			continue
		}
		nameNode := e.ChildByField("name")
		if nameNode == nil {
			continue
		}
		if val := e.ChildByField("value"); val != nil && val.Kind == "number_literal" {
			if v, ok := parseIntLiteral(r.in.Tree.Text(val)); ok {
				next = v
			}
		}
		r.register(&Symbol{
			Name:    r.in.Tree.Text(nameNode),
			Kind:    SymEnumConst,
			Type:    basic(Int),
			Node:    nameNode,
			Seq:     r.seqOf(nameNode),
			Local:   r.depth > 0,
			EnumVal: next,
		})
		next++
	}
}

func builtinFromText(text string) *Type {
	text = strings.Join(strings.Fields(text), " ")
	switch text {
	case "void":
		return basic(Void)
	case "_Bool", "bool":
		return basic(Bool)
	case "char":
		return basic(Char)
	case "signed char":
		return basic(SChar)
	case "unsigned char":
		return basic(UChar)
	case "short", "short int", "signed short", "signed short int":
		return basic(Short)
	case "unsigned short", "unsigned short int":
		return basic(UShort)
	case "int", "signed", "signed int":
		return basic(Int)
	case "unsigned", "unsigned int":
		return basic(UInt)
	case "long", "long int", "signed long", "signed long int":
		return basic(Long)
	case "unsigned long", "unsigned long int":
		return basic(ULong)
	case "long long", "long long int", "signed long long", "signed long long int":
		return basic(LongLong)
	case "unsigned long long", "unsigned long long int":
		return basic(ULongLong)
	case "float":
		return basic(Float)
	case "double":
		return basic(Double)
	case "long double":
		return basic(LongDouble)
	case "size_t":
		return basic(ULong)
	}
	return nil
}
