// Package align attaches AST roots to expansion nodes and their arguments.
// A node aligns with an expansion when its spelling range covers exactly
// the tokens the expansion emitted; likewise for each substitution of an
// argument.
package align

import (
	"github.com/macroaudit/macroaudit/internal/cast"
	"github.com/macroaudit/macroaudit/internal/cpp"
	"github.com/macroaudit/macroaudit/internal/forest"
)

// Align populates ASTRoots and AlignedRoot on every forest node, and
// AlignedRoots on every argument. Zero matches and ambiguous matches are
// recorded, never reported as errors.
func Align(f *forest.Forest, tree *cast.Tree) {
	for _, n := range f.Nodes {
		if n.Incomplete || n.Exp == nil {
			continue
		}
		if len(n.Macro.Body) == 0 {
			// an empty replacement list emits nothing to align with
			continue
		}

		n.ASTRoots = rootsForSpan(tree, n.Exp.Emitted)
		if len(n.ASTRoots) == 1 {
			n.AlignedRoot = &n.ASTRoots[0]
		}

		for _, a := range n.Arguments {
			for _, occ := range a.Occurrences {
				roots := rootsForSpan(tree, occ)
				if len(roots) == 1 {
					a.AlignedRoots = append(a.AlignedRoots, roots[0])
				}
			}
		}
	}
}

// rootsForSpan runs the three category searches, statements first, then
// declarations, then type locations. A node joins at most one category.
func rootsForSpan(tree *cast.Tree, toks []*cpp.Token) []cast.Root {
	first, last, ok := tree.SpanOf(toks)
	if !ok {
		return nil
	}
	candidates := tree.SpanNodes(first, last)
	var roots []cast.Root
	for _, c := range candidates {
		if c.IsStmt() && !c.InDeclaratorPosition() {
			roots = append(roots, cast.Root{Node: c, Kind: cast.RootStmt})
		}
	}
	for _, c := range candidates {
		if !c.IsStmt() && c.IsDecl() {
			roots = append(roots, cast.Root{Node: c, Kind: cast.RootDecl})
		}
	}
	for _, c := range candidates {
		if !c.IsStmt() && !c.IsDecl() && c.IsTypeLoc() {
			roots = append(roots, cast.Root{Node: c, Kind: cast.RootTypeLoc})
		}
	}
	return roots
}
