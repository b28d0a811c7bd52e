package analysis

import (
	"github.com/macroaudit/macroaudit/internal/cast"
	"github.com/macroaudit/macroaudit/internal/sem"
)

// indices are the translation-unit-wide node sets the evaluator consults.
// They are built once per translation unit and dropped at teardown.
type indices struct {
	// allDeclRefs is every identifier expression that references a
	// declaration.
	allDeclRefs map[*cast.Node]bool
	// localDeclRefs is the subset whose referent has local storage.
	localDeclRefs map[*cast.Node]bool
	// sideEffectExprs: assignments and pre/post increment/decrement.
	sideEffectExprs map[*cast.Node]bool
	// sideEffectLhs is the modified operand of each side-effect expression.
	sideEffectLhs []*cast.Node
	// addressOf is every unary '&' expression.
	addressOf []*cast.Node
	// shortCircuitOperands: the branches of '?:' and the operands of the
	// logical operators.
	shortCircuitOperands []*cast.Node
	// localTypedExprs is every expression whose type is declared at local
	// scope.
	localTypedExprs map[*cast.Node]bool
}

func buildIndices(tree *cast.Tree, info *sem.Info) *indices {
	ix := &indices{
		allDeclRefs:     make(map[*cast.Node]bool),
		localDeclRefs:   make(map[*cast.Node]bool),
		sideEffectExprs: make(map[*cast.Node]bool),
		localTypedExprs: make(map[*cast.Node]bool),
	}

	for _, n := range tree.Nodes {
		switch n.Kind {
		case "identifier":
			sym := info.Uses[n]
			if sym == nil {
				continue
			}
			ix.allDeclRefs[n] = true
			if sym.Kind == sem.SymVar && sym.Local && !sym.Static && !sym.Extern {
				ix.localDeclRefs[n] = true
			}
		case "assignment_expression":
			ix.sideEffectExprs[n] = true
			if lhs := n.ChildByField("left"); lhs != nil {
				ix.sideEffectLhs = append(ix.sideEffectLhs, lhs)
			}
		case "update_expression":
			ix.sideEffectExprs[n] = true
			if arg := n.ChildByField("argument"); arg != nil {
				ix.sideEffectLhs = append(ix.sideEffectLhs, arg)
			}
		case "pointer_expression":
			if n.Op == "&" {
				ix.addressOf = append(ix.addressOf, n)
			}
		case "conditional_expression":
			if c := n.ChildByField("consequence"); c != nil {
				ix.shortCircuitOperands = append(ix.shortCircuitOperands, c)
			}
			if a := n.ChildByField("alternative"); a != nil {
				ix.shortCircuitOperands = append(ix.shortCircuitOperands, a)
			}
		case "binary_expression":
			if n.Op == "&&" || n.Op == "||" {
				if l := n.ChildByField("left"); l != nil {
					ix.shortCircuitOperands = append(ix.shortCircuitOperands, l)
				}
				if r := n.ChildByField("right"); r != nil {
					ix.shortCircuitOperands = append(ix.shortCircuitOperands, r)
				}
			}
		}

		if n.IsExpr() {
			if t := info.TypeOf(n); t != nil && sem.HasLocalType(t) {
				ix.localTypedExprs[n] = true
			}
		}
	}
	return ix
}
