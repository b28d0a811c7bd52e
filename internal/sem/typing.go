package sem

import (
	"strings"

	"github.com/macroaudit/macroaudit/internal/cast"
)

// TypeOf computes the type of an expression node, memoized. It returns nil
// for nodes the model cannot type.
func (in *Info) TypeOf(n *cast.Node) *Type {
	if n == nil {
		return nil
	}
	if in.typed[n] {
		return in.types[n]
	}
	in.typed[n] = true
	t := in.typeOf(n)
	in.types[n] = t
	return t
}

func (in *Info) typeOf(n *cast.Node) *Type {
	switch n.Kind {
	case "number_literal":
		return numberLiteralType(in.Tree.Text(n))
	case "char_literal":
		return basic(Int)
	case "string_literal", "concatenated_string":
		return &Type{Kind: Array, Elem: basic(Char), Len: stringLiteralLen(in.Tree.Text(n))}
	case "true", "false":
		return basic(Int)
	case "null":
		return &Type{Kind: Pointer, Elem: basic(Void)}
	case "identifier":
		if sym := in.Uses[n]; sym != nil {
			return sym.Type
		}
		return nil
	case "parenthesized_expression":
		if len(n.Children) == 1 {
			return in.TypeOf(n.Children[0])
		}
		return nil
	case "assignment_expression":
		return in.TypeOf(n.ChildByField("left"))
	case "update_expression":
		return in.TypeOf(n.ChildByField("argument"))
	case "binary_expression":
		return in.binaryType(n)
	case "unary_expression":
		switch n.Op {
		case "!":
			return basic(Int)
		case "-", "+", "~":
			return promote(in.TypeOf(n.ChildByField("argument")))
		}
		return nil
	case "pointer_expression":
		arg := in.TypeOf(n.ChildByField("argument"))
		switch n.Op {
		case "&":
			if arg == nil {
				return nil
			}
			return &Type{Kind: Pointer, Elem: arg}
		case "*":
			if d := arg.Desugar(); d != nil && (d.Kind == Pointer || d.Kind == Array) {
				return d.Elem
			}
		}
		return nil
	case "call_expression":
		callee := in.TypeOf(n.ChildByField("function"))
		if d := callee.Desugar(); d != nil {
			if d.Kind == Func {
				return d.Ret
			}
			if d.Kind == Pointer {
				if f := d.Elem.Desugar(); f != nil && f.Kind == Func {
					return f.Ret
				}
			}
		}
		return nil
	case "field_expression":
		return in.fieldType(n)
	case "subscript_expression":
		if d := in.TypeOf(n.ChildByField("argument")).Desugar(); d != nil && (d.Kind == Pointer || d.Kind == Array) {
			return d.Elem
		}
		return nil
	case "cast_expression":
		return in.descriptorType(n.ChildByField("type"))
	case "sizeof_expression":
		return basic(ULong)
	case "conditional_expression":
		a := in.TypeOf(n.ChildByField("consequence"))
		b := in.TypeOf(n.ChildByField("alternative"))
		if a == nil {
			return b
		}
		if b == nil {
			return a
		}
		return usualArith(a, b)
	case "comma_expression":
		return in.TypeOf(n.ChildByField("right"))
	case "compound_literal_expression":
		return in.descriptorType(n.ChildByField("type"))
	}
	return nil
}

func (in *Info) binaryType(n *cast.Node) *Type {
	switch n.Op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return basic(Int)
	case "<<", ">>":
		return promote(in.TypeOf(n.ChildByField("left")))
	}
	l := in.TypeOf(n.ChildByField("left"))
	r := in.TypeOf(n.ChildByField("right"))
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	return usualArith(l, r)
}

func (in *Info) fieldType(n *cast.Node) *Type {
	base := in.TypeOf(n.ChildByField("argument")).Desugar()
	if base != nil && base.Kind == Pointer {
		base = base.Elem.Desugar()
	}
	if base == nil || (base.Kind != Struct && base.Kind != Union) || base.Members == nil {
		return nil
	}
	field := n.ChildByField("field")
	if field == nil {
		return nil
	}
	return base.Members[in.Tree.Text(field)]
}

// descriptorType reads a type_descriptor node (as in casts and sizeof).
func (in *Info) descriptorType(n *cast.Node) *Type {
	if n == nil || n.Kind != "type_descriptor" {
		return nil
	}
	r := &resolver{in: in, scope: in.file}
	base := r.specifierType(n)
	if decl := n.ChildByField("declarator"); decl != nil {
		_, t := r.declaratorType(decl, base)
		return t
	}
	return base
}

var arithRank = map[TypeKind]int{
	Bool: 1, Char: 2, SChar: 2, UChar: 3, Short: 4, UShort: 5,
	Int: 6, Enum: 6, UInt: 7, Long: 8, ULong: 9, LongLong: 10, ULongLong: 11,
	Float: 12, Double: 13, LongDouble: 14,
}

func usualArith(a, b *Type) *Type {
	da, db := a.Desugar(), b.Desugar()
	if da == nil {
		return db
	}
	if db == nil {
		return da
	}
	if da.Kind == Pointer || da.Kind == Array {
		return da
	}
	if db.Kind == Pointer || db.Kind == Array {
		return db
	}
	pa, pb := promote(da), promote(db)
	if pa == nil {
		return pb
	}
	if pb == nil {
		return pa
	}
	if arithRank[pa.Kind] >= arithRank[pb.Kind] {
		return pa
	}
	return pb
}

func promote(t *Type) *Type {
	d := t.Desugar()
	if d == nil {
		return nil
	}
	switch d.Kind {
	case Bool, Char, SChar, UChar, Short, UShort, Enum:
		return basic(Int)
	}
	return d
}

func numberLiteralType(text string) *Type {
	lower := strings.ToLower(text)
	isHex := strings.HasPrefix(lower, "0x")
	float := strings.ContainsAny(lower, ".")
	if !float && !isHex && strings.ContainsAny(lower, "e") {
		// decimal exponent makes it floating
		float = strings.IndexAny(lower, "e") > 0
	}
	if isHex && strings.ContainsAny(lower, "p") {
		float = true
	}
	if float {
		switch {
		case strings.HasSuffix(lower, "f"):
			return basic(Float)
		case strings.HasSuffix(lower, "l"):
			return basic(LongDouble)
		}
		return basic(Double)
	}
	u := strings.Contains(lower, "u")
	ll := strings.Contains(lower, "ll")
	l := !ll && strings.Contains(strings.TrimPrefix(lower, "0x"), "l")
	switch {
	case u && ll:
		return basic(ULongLong)
	case u && l:
		return basic(ULong)
	case u:
		return basic(UInt)
	case ll:
		return basic(LongLong)
	case l:
		return basic(Long)
	}
	return basic(Int)
}

func stringLiteralLen(text string) int {
	// array length including the terminating NUL
	n := 0
	inner := text
	if len(inner) >= 2 {
		inner = inner[1 : len(inner)-1]
	}
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		n++
	}
	return n + 1
}

// TypeOfTypeLoc resolves a written type location (as aligned by the
// matcher) to the type it denotes. Tags declared during resolution are
// found through the memo, not redeclared.
func (in *Info) TypeOfTypeLoc(n *cast.Node) *Type {
	if n == nil {
		return nil
	}
	if n.Kind == "type_descriptor" {
		return in.descriptorType(n)
	}
	r := &resolver{in: in, scope: in.file}
	return r.typeFromSpecifier(n)
}

// IsICE reports whether the expression is an integer constant expression:
// literals, enumeration constants, sizeof, and operators over such
// operands.
func (in *Info) IsICE(n *cast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case "number_literal":
		_, ok := parseIntLiteral(in.Tree.Text(n))
		return ok
	case "char_literal", "true", "false":
		return true
	case "sizeof_expression":
		return true
	case "identifier":
		sym := in.Uses[n]
		return sym != nil && sym.Kind == SymEnumConst
	case "parenthesized_expression":
		return len(n.Children) == 1 && in.IsICE(n.Children[0])
	case "unary_expression":
		return in.IsICE(n.ChildByField("argument"))
	case "binary_expression":
		return in.IsICE(n.ChildByField("left")) && in.IsICE(n.ChildByField("right"))
	case "conditional_expression":
		return in.IsICE(n.ChildByField("condition")) &&
			in.IsICE(n.ChildByField("consequence")) &&
			in.IsICE(n.ChildByField("alternative"))
	case "cast_expression":
		t := in.descriptorType(n.ChildByField("type"))
		return t.IsInteger() && in.IsICE(n.ChildByField("value"))
	}
	return false
}
