// Package forest builds the tree of macro expansions observed during
// preprocessing. One node exists per invocation; parent/child links follow
// nesting and sibling order follows source order.
package forest

import (
	"github.com/macroaudit/macroaudit/internal/cast"
	"github.com/macroaudit/macroaudit/internal/cpp"
)

// Argument is one comma-separated argument of an invocation, annotated with
// how often the body expands it and, after alignment, which AST roots each
// substitution produced.
type Argument struct {
	Written []*cpp.Token
	// ExpectedExpansions is the number of times the parameter is expanded
	// in the macro body. Parameters that are stringified or pasted are not
	// expanded and do not count.
	ExpectedExpansions int
	// Occurrences holds the token copies spliced in for each substitution.
	Occurrences [][]*cpp.Token
	// AlignedRoots is filled by the aligner: at most one root per
	// occurrence whose spelling range matched exactly.
	AlignedRoots []cast.Root
}

// Node is one macro invocation in the forest.
type Node struct {
	Macro *cpp.Macro
	Name  string
	Exp   *cpp.Expansion

	Depth    int
	Parent   *Node
	Children []*Node

	Arguments []*Argument

	HasStringification bool
	HasTokenPaste      bool
	InMacroArg         bool

	// Incomplete marks a node whose close event never arrived (or arrived
	// out of order); the evaluator skips such nodes.
	Incomplete bool

	// Set by the aligner.
	ASTRoots    []cast.Root
	AlignedRoot *cast.Root
}

// TopLevel reports whether the node is emitted as a full record rather than
// a marker line.
func (n *Node) TopLevel() bool {
	return n.Depth == 0 && !n.InMacroArg && !n.Incomplete
}

// Descendants enumerates the subtree below n in depth-first order,
// excluding n itself. The walk uses an explicit stack.
func (n *Node) Descendants() []*Node {
	var out []*Node
	stack := make([]*Node, 0, len(n.Children))
	for i := len(n.Children) - 1; i >= 0; i-- {
		stack = append(stack, n.Children[i])
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return out
}

// Forest owns every expansion node of a translation unit. It implements
// cpp.Observer and is driven directly by the preprocessor.
type Forest struct {
	// Roots are the depth-0 nodes in source order.
	Roots []*Node
	// Nodes is every node in begin-event order.
	Nodes []*Node

	stack []*Node
	byExp map[*cpp.Expansion]*Node
}

func New() *Forest {
	return &Forest{byExp: make(map[*cpp.Expansion]*Node)}
}

// MacroDefined is part of cpp.Observer; the forest has no use for it.
func (f *Forest) MacroDefined(*cpp.Macro) {}

// MacroInspected is part of cpp.Observer; the forest has no use for it.
func (f *Forest) MacroInspected(string) {}

// IncludeDirective is part of cpp.Observer; the forest has no use for it.
func (f *Forest) IncludeDirective(*cpp.Include) {}

// ExpansionBegin opens an invocation, linking it under the innermost open
// node or as a new root.
func (f *Forest) ExpansionBegin(e *cpp.Expansion) {
	n := &Node{
		Macro:      e.Macro,
		Name:       e.Macro.Name,
		Exp:        e,
		InMacroArg: e.InMacroArg,
	}
	if len(f.stack) > 0 {
		parent := f.stack[len(f.stack)-1]
		n.Parent = parent
		n.Depth = parent.Depth + 1
		if parent.InMacroArg {
			n.InMacroArg = true
		}
		parent.Children = append(parent.Children, n)
	} else {
		f.Roots = append(f.Roots, n)
	}
	f.Nodes = append(f.Nodes, n)
	f.byExp[e] = n
	f.stack = append(f.stack, n)
}

// ExpansionEnd closes an invocation, freezing its arguments and the two
// operator flags. An out-of-order close abandons the nodes above the match;
// an orphan close is dropped.
func (f *Forest) ExpansionEnd(e *cpp.Expansion) {
	n, ok := f.byExp[e]
	if !ok {
		return
	}
	at := -1
	for i := len(f.stack) - 1; i >= 0; i-- {
		if f.stack[i] == n {
			at = i
			break
		}
	}
	if at < 0 {
		return
	}
	for i := len(f.stack) - 1; i > at; i-- {
		f.stack[i].Incomplete = true
	}
	f.stack = f.stack[:at]
	f.finalize(n)
}

// Finish marks any still-open node incomplete. Call after preprocessing.
func (f *Forest) Finish() {
	for _, n := range f.stack {
		n.Incomplete = true
	}
	f.stack = nil
}

func (f *Forest) finalize(n *Node) {
	m := n.Macro
	for _, t := range m.Body {
		if t.IsPunct("#") {
			n.HasStringification = true
		}
		if t.IsPunct("##") {
			n.HasTokenPaste = true
		}
	}

	n.Arguments = make([]*Argument, len(n.Exp.Args))
	for i, a := range n.Exp.Args {
		n.Arguments[i] = &Argument{
			Written:            a.Written,
			Occurrences:        a.Occurrences,
			ExpectedExpansions: expandedUses(m, i),
		}
	}
}

// expandedUses counts how many times parameter k is expanded in the body:
// its textual occurrences minus those consumed by '#' or '##'.
func expandedUses(m *cpp.Macro, k int) int {
	if k >= len(m.Params) {
		return 0
	}
	body := m.Body
	count := 0
	for i, t := range body {
		if t.Kind != cpp.Ident || t.Text != m.Params[k] {
			continue
		}
		if i > 0 && (body[i-1].IsPunct("#") || body[i-1].IsPunct("##")) {
			continue
		}
		if i+1 < len(body) && body[i+1].IsPunct("##") {
			continue
		}
		count++
	}
	return count
}
