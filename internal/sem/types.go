// Package sem layers C semantics over the mirrored syntax tree: scopes and
// symbols, a structural type model, expression typing, and the integer
// constant-expression test. It is a deliberate subset; anything it cannot
// type degrades to an unknown type and downstream flags default to false.
package sem

import (
	"fmt"
	"strconv"
)

// TypeKind enumerates the structural forms of the type model.
type TypeKind int

const (
	Invalid TypeKind = iota
	Void
	Bool
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	LongDouble
	Pointer
	Array
	Func
	Struct
	Union
	Enum
	Typedef
)

// Type is a C type. Composite forms link to their element/return types;
// tagged and typedef types link to the declaring symbol.
type Type struct {
	Kind TypeKind

	Elem   *Type   // Pointer, Array
	Len    int     // Array; -1 when unknown
	Ret    *Type   // Func
	Params []*Type // Func

	Tag     string           // Struct, Union, Enum; empty for anonymous tags
	Decl    *Symbol          // Struct, Union, Enum
	Members map[string]*Type // Struct, Union

	Name       string  // Typedef
	Underlying *Type   // Typedef
	TypedefSym *Symbol // Typedef
}

var basicNames = map[TypeKind]string{
	Void:       "void",
	Bool:       "_Bool",
	Char:       "char",
	SChar:      "signed char",
	UChar:      "unsigned char",
	Short:      "short",
	UShort:     "unsigned short",
	Int:        "int",
	UInt:       "unsigned int",
	Long:       "long",
	ULong:      "unsigned long",
	LongLong:   "long long",
	ULongLong:  "unsigned long long",
	Float:      "float",
	Double:     "double",
	LongDouble: "long double",
}

func basic(k TypeKind) *Type { return &Type{Kind: k} }

// Desugar unwraps typedefs to the underlying type.
func (t *Type) Desugar() *Type {
	for t != nil && t.Kind == Typedef {
		t = t.Underlying
	}
	return t
}

// IsVoid reports whether the desugared type is void.
func (t *Type) IsVoid() bool {
	d := t.Desugar()
	return d != nil && d.Kind == Void
}

// IsInteger reports whether the desugared type is an integer type.
func (t *Type) IsInteger() bool {
	d := t.Desugar()
	if d == nil {
		return false
	}
	switch d.Kind {
	case Bool, Char, SChar, UChar, Short, UShort, Int, UInt, Long, ULong, LongLong, ULongLong, Enum:
		return true
	}
	return false
}

// Canonical renders the type the way the host front end prints a
// desugared, unqualified canonical type.
func (t *Type) Canonical() string {
	d := t.Desugar()
	if d == nil {
		return ""
	}
	switch d.Kind {
	case Pointer:
		return d.Elem.Canonical() + " *"
	case Array:
		if d.Len >= 0 {
			return fmt.Sprintf("%s [%d]", d.Elem.Canonical(), d.Len)
		}
		return d.Elem.Canonical() + " []"
	case Func:
		s := d.Ret.Canonical() + " ("
		for i, p := range d.Params {
			if i > 0 {
				s += ", "
			}
			s += p.Canonical()
		}
		return s + ")"
	case Struct:
		if d.Tag == "" {
			return "struct (anonymous)"
		}
		return "struct " + d.Tag
	case Union:
		if d.Tag == "" {
			return "union (anonymous)"
		}
		return "union " + d.Tag
	case Enum:
		if d.Tag == "" {
			return "enum (anonymous)"
		}
		return "enum " + d.Tag
	}
	if s, ok := basicNames[d.Kind]; ok {
		return s
	}
	return ""
}

// typeDecl returns the declaring symbol the type chase lands on: the
// typedef's own declaration for a typedef, the tag declaration for a tagged
// type, nil otherwise. Pointers and arrays must be unwrapped first.
func typeDecl(t *Type) *Symbol {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case Typedef:
		return t.TypedefSym
	case Struct, Union, Enum:
		return t.Decl
	}
	return nil
}

// inType chases through pointers and arrays to the element type and applies
// pred, preserving the fixed unwrap order anonymous/local detection
// depends on.
func inType(t *Type, pred func(*Type) bool) bool {
	if t == nil {
		return false
	}
	for t != nil {
		d := t
		if d.Kind == Typedef {
			u := d.Desugar()
			if u != nil && (u.Kind == Pointer || u.Kind == Array) {
				t = u.Elem
				continue
			}
			break
		}
		if d.Kind == Pointer || d.Kind == Array {
			t = d.Elem
			continue
		}
		break
	}
	return pred(t)
}

// HasLocalType reports whether the chased type's declaration is at a
// non-file scope.
func HasLocalType(t *Type) bool {
	return inType(t, func(t *Type) bool {
		d := typeDecl(t)
		return d != nil && d.Local
	})
}

// HasAnonymousType reports whether the chased type's declaration is
// nameless.
func HasAnonymousType(t *Type) bool {
	return inType(t, func(t *Type) bool {
		d := typeDecl(t)
		return d != nil && d.Name == ""
	})
}

// HasTypeDefinedAfter reports whether the chased type's declaration appears
// after the given translation-unit position.
func HasTypeDefinedAfter(t *Type, seq int) bool {
	return inType(t, func(t *Type) bool {
		d := typeDecl(t)
		return d != nil && d.Seq > 0 && seq > 0 && seq < d.Seq
	})
}

// parseIntLiteral evaluates a C integer literal, returning ok=false for
// floating or malformed literals.
func parseIntLiteral(text string) (int64, bool) {
	s := text
	for len(s) > 0 {
		c := s[len(s)-1]
		if c == 'u' || c == 'U' || c == 'l' || c == 'L' {
			s = s[:len(s)-1]
			continue
		}
		break
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, true
	}
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return int64(v), true
	}
	return 0, false
}
