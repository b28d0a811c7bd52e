package cast

// RootKind tags which of the three alignment categories a root came from.
type RootKind int

const (
	RootStmt RootKind = iota
	RootDecl
	RootTypeLoc
)

// Root is an AST node found by one of the three alignment searches. At most
// one category applies per root.
type Root struct {
	Node *Node
	Kind RootKind
}

var exprKinds = map[string]bool{
	"identifier":                  true,
	"number_literal":              true,
	"string_literal":              true,
	"char_literal":                true,
	"concatenated_string":         true,
	"true":                        true,
	"false":                       true,
	"null":                        true,
	"call_expression":             true,
	"field_expression":            true,
	"subscript_expression":        true,
	"parenthesized_expression":    true,
	"assignment_expression":       true,
	"binary_expression":           true,
	"unary_expression":            true,
	"update_expression":           true,
	"cast_expression":             true,
	"pointer_expression":          true,
	"sizeof_expression":           true,
	"conditional_expression":      true,
	"comma_expression":            true,
	"compound_literal_expression": true,
	"offsetof_expression":         true,
	"generic_expression":          true,
}

var stmtOnlyKinds = map[string]bool{
	"compound_statement":   true,
	"expression_statement": true,
	"if_statement":         true,
	"while_statement":      true,
	"do_statement":         true,
	"for_statement":        true,
	"switch_statement":     true,
	"case_statement":       true,
	"labeled_statement":    true,
	"return_statement":     true,
	"break_statement":      true,
	"continue_statement":   true,
	"goto_statement":       true,
}

var declKinds = map[string]bool{
	"declaration":           true,
	"function_definition":   true,
	"parameter_declaration": true,
	"field_declaration":     true,
	"type_definition":       true,
	"enumerator":            true,
}

var typeLocKinds = map[string]bool{
	"primitive_type":       true,
	"sized_type_specifier": true,
	"type_identifier":      true,
	"type_descriptor":      true,
	"struct_specifier":     true,
	"union_specifier":      true,
	"enum_specifier":       true,
	"macro_type_specifier": true,
}

var controlFlowKinds = map[string]bool{
	"return_statement":   true,
	"break_statement":    true,
	"continue_statement": true,
	"goto_statement":     true,
}

// IsExpr reports whether the node is an expression.
func (n *Node) IsExpr() bool { return exprKinds[n.Kind] }

// IsStmt reports whether the node is a statement; expressions count.
func (n *Node) IsStmt() bool { return n.IsExpr() || stmtOnlyKinds[n.Kind] }

// IsDecl reports whether the node is a declaration.
func (n *Node) IsDecl() bool { return declKinds[n.Kind] }

// IsTypeLoc reports whether the node denotes a written type.
func (n *Node) IsTypeLoc() bool { return typeLocKinds[n.Kind] }

// IsControlFlow reports whether the node is a return, break, continue or
// goto statement.
func (n *Node) IsControlFlow() bool { return controlFlowKinds[n.Kind] }

// InDeclaratorPosition reports whether an identifier names a declarator,
// member or label instead of standing in an expression position. Such
// identifiers are not statements for alignment purposes.
func (n *Node) InDeclaratorPosition() bool {
	if n.Kind != "identifier" {
		return false
	}
	switch n.Field {
	case "declarator", "field", "label", "name":
		return true
	}
	if n.Parent != nil {
		switch n.Parent.Kind {
		case "function_declarator", "parenthesized_declarator", "labeled_statement", "goto_statement":
			return true
		}
	}
	return false
}
