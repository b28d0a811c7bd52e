package analysis

import (
	"github.com/macroaudit/macroaudit/internal/cast"
	"github.com/macroaudit/macroaudit/internal/forest"
	"github.com/macroaudit/macroaudit/internal/sem"
	"github.com/macroaudit/macroaudit/internal/source"
)

// evaluate computes the full property record for one top-level expansion.
// Missing alignment, null types and invalid locations degrade individual
// flags to their defaults; the record is always produced.
func evaluate(n *forest.Node, tree *cast.Tree, info *sem.Info, ix *indices, inspected map[string]bool) *Record {
	r := &Record{
		Name:                          n.Name,
		InvocationDepth:               n.Depth,
		NumArguments:                  len(n.Arguments),
		HasStringification:            n.HasStringification,
		HasTokenPasting:               n.HasTokenPaste,
		IsObjectLike:                  n.Macro.ObjectLike,
		IsInvokedInMacroArgument:      n.InMacroArg,
		IsNamePresentInCPPConditional: inspected[n.Name],
	}

	// On failure FullLoc yields the categorical error text, which is
	// reported in place of the location.
	defFile, defOff := n.Macro.DefinitionLoc()
	r.DefinitionLocation, r.IsDefinitionLocationValid = source.FullLoc(defFile, defOff)
	invFile, invOff := n.Exp.SpellBegin.FileLoc()
	r.InvocationLocation, r.IsInvocationLocationValid = source.FullLoc(invFile, invOff)

	defSeq := n.Macro.NameTok.Seq

	for _, desc := range n.Descendants() {
		if desc.Macro != nil && defSeq > 0 && defSeq < desc.Macro.NameTok.Seq {
			r.DoesBodyReferenceMacroDefinedAfterMacro = true
			break
		}
	}

	r.NumASTRoots = len(n.ASTRoots)

	var alignedStmt *cast.Node
	if n.AlignedRoot != nil {
		switch n.AlignedRoot.Kind {
		case cast.RootStmt:
			r.ASTKind = "Stmt"
			alignedStmt = n.AlignedRoot.Node
		case cast.RootDecl:
			r.ASTKind = "Decl"
		case cast.RootTypeLoc:
			r.ASTKind = "TypeLoc"
			ty := info.TypeOfTypeLoc(n.AlignedRoot.Node)
			r.IsExpansionTypeNull = ty == nil
			r.IsExpansionTypeDefinedAfterMacro = sem.HasTypeDefinedAfter(ty, defSeq)
		}
	}

	r.HasAlignedArguments = true
	for _, a := range n.Arguments {
		if len(a.AlignedRoots) != a.ExpectedExpansions {
			r.HasAlignedArguments = false
			break
		}
	}

	argStmts := make(map[*cast.Node]bool)
	if r.HasAlignedArguments {
		for _, a := range n.Arguments {
			for _, root := range a.AlignedRoots {
				if root.Kind != cast.RootStmt {
					continue
				}
				for st := range cast.Subtrees(root.Node) {
					argStmts[st] = true
				}
			}
		}

		for e := range ix.sideEffectExprs {
			if argStmts[e] {
				r.DoesAnyArgumentHaveSideEffects = true
				break
			}
		}
		for e := range ix.allDeclRefs {
			if argStmts[e] {
				r.DoesAnyArgumentContainDeclRefExpr = true
				break
			}
		}

		// A side effect outside the arguments whose modified operand is an
		// argument means the argument is expanded where a modifiable value
		// is required.
		for e := range ix.sideEffectExprs {
			if argStmts[e] {
				continue
			}
			lhs := modifiedOperand(e)
			if lhs != nil && argStmts[cast.SkipParens(lhs)] {
				r.IsAnyArgumentExpandedWhereModifiableValueRequired = true
				break
			}
		}
		for _, u := range ix.addressOf {
			if argStmts[u] {
				continue
			}
			operand := u.ChildByField("argument")
			if operand != nil && argStmts[cast.SkipParens(operand)] {
				r.IsAnyArgumentExpandedWhereAddressableValueRequired = true
				break
			}
		}

	conditional:
		for st := range argStmts {
			for _, op := range ix.shortCircuitOperands {
				if cast.InTree(st, op) {
					r.IsAnyArgumentConditionallyEvaluated = true
					break conditional
				}
			}
		}

		for _, a := range n.Arguments {
			if len(a.AlignedRoots) == 0 {
				r.IsAnyArgumentNeverExpanded = true
			}
		}
	}

	bodyStmts := make(map[*cast.Node]bool)
	if alignedStmt != nil && r.HasAlignedArguments {
		st := alignedStmt
		for sub := range cast.Subtrees(st) {
			if !argStmts[sub] {
				bodyStmts[sub] = true
			}
		}

		for dre := range ix.allDeclRefs {
			if !bodyStmts[dre] {
				continue
			}
			r.DoesBodyContainDeclRefExpr = true
			if sym := info.Uses[dre]; sym != nil && defSeq > 0 && defSeq < sym.Seq {
				r.DoesBodyReferenceDeclDeclaredAfterMacro = true
			}
		}

		for e := range ix.localTypedExprs {
			if bodyStmts[e] {
				r.DoesSubexpressionExpandedFromBodyHaveLocalType = true
				break
			}
		}

		for sub := range bodyStmts {
			if !sub.IsExpr() {
				continue
			}
			if sem.HasTypeDefinedAfter(info.TypeOf(sub), defSeq) {
				r.DoesSubexpressionExpandedFromBodyHaveTypeDefinedAfterMacro = true
				break
			}
		}

		r.IsHygienic = true
		for dre := range ix.localDeclRefs {
			if bodyStmts[dre] {
				r.IsHygienic = false
				break
			}
		}

		for _, lhs := range ix.sideEffectLhs {
			if cast.SkipParens(lhs) == st {
				r.IsInvokedWhereModifiableValueRequired = true
				break
			}
		}
		for _, u := range ix.addressOf {
			if operand := u.ChildByField("argument"); operand != nil && cast.SkipParens(operand) == st {
				r.IsInvokedWhereAddressableValueRequired = true
				break
			}
		}

		r.IsInvokedWhereICERequired = requiresICE(st)

		buildTypeInfo(r, n, st, info, defSeq)
	}

	for sub := range bodyStmts {
		if sub.IsControlFlow() {
			r.DoesExpansionHaveControlFlowStmt = true
		}
	}
	for sub := range argStmts {
		if sub.IsControlFlow() {
			r.DoesExpansionHaveControlFlowStmt = true
		}
	}

	return r
}

// buildTypeInfo fills the expansion and argument type flags and assembles
// the type signature string.
func buildTypeInfo(r *Record, n *forest.Node, st *cast.Node, info *sem.Info, defSeq int) {
	r.TypeSignature = "void"
	if st.IsExpr() {
		r.ASTKind = "Expr"

		ty := info.TypeOf(st)
		r.IsExpansionTypeNull = ty != nil
		if ty != nil {
			r.IsExpansionTypeVoid = ty.IsVoid()
			r.IsExpansionTypeAnonymous = sem.HasAnonymousType(ty)
			r.IsExpansionTypeLocalType = sem.HasLocalType(ty)
			r.TypeSignature = ty.Canonical()
		}
		r.IsExpansionTypeDefinedAfterMacro = sem.HasTypeDefinedAfter(ty, defSeq)
		r.IsExpansionICE = info.IsICE(st)
	}

	functionSignature := !n.Macro.ObjectLike && (r.ASTKind == "Stmt" || r.ASTKind == "Expr")
	if functionSignature {
		r.TypeSignature += "("
	}
	for i, a := range n.Arguments {
		if i != 0 {
			r.TypeSignature += ", "
		}

		if len(a.AlignedRoots) == 0 {
			continue
		}
		first := a.AlignedRoots[0]
		if first.Kind != cast.RootStmt || !first.Node.IsExpr() {
			r.IsAnyArgumentNotAnExpression = true
			continue
		}

		argTypeStr := "<Null>"
		ty := info.TypeOf(first.Node)
		if ty == nil {
			r.IsAnyArgumentTypeNull = true
		} else {
			r.IsAnyArgumentTypeVoid = ty.IsVoid()
			r.IsAnyArgumentTypeAnonymous = sem.HasAnonymousType(ty)
			r.IsAnyArgumentTypeLocalType = sem.HasLocalType(ty)
			argTypeStr = ty.Canonical()
		}
		if sem.HasTypeDefinedAfter(ty, defSeq) {
			r.IsAnyArgumentTypeDefinedAfterMacro = true
		}
		r.TypeSignature += argTypeStr
	}
	if functionSignature {
		r.TypeSignature += ")"
	}
}

// modifiedOperand returns the written-to operand of an assignment or
// update expression.
func modifiedOperand(e *cast.Node) *cast.Node {
	switch e.Kind {
	case "assignment_expression":
		return e.ChildByField("left")
	case "update_expression":
		return e.ChildByField("argument")
	}
	return nil
}

// requiresICE walks ancestors looking for a context the language restricts
// to integer constant expressions: case labels, enumerators, bit-field
// widths, and array bounds.
func requiresICE(st *cast.Node) bool {
	for _, p := range cast.Ancestors(st) {
		switch p.Kind {
		case "case_statement", "enumerator", "enum_specifier", "array_declarator":
			return true
		case "field_declaration":
			if p.ChildOfKind("bitfield_clause") != nil {
				return true
			}
		case "declaration":
			for _, c := range p.Children {
				if c.Field == "declarator" && containsArrayDeclarator(c) {
					return true
				}
			}
		}
	}
	return false
}

func containsArrayDeclarator(d *cast.Node) bool {
	switch d.Kind {
	case "array_declarator":
		return true
	case "init_declarator", "pointer_declarator":
		if inner := d.ChildByField("declarator"); inner != nil {
			return containsArrayDeclarator(inner)
		}
	}
	return false
}
