package cast

// Subtrees enumerates n and every node below it, breadth-first with an
// explicit queue.
func Subtrees(n *Node) map[*Node]bool {
	out := make(map[*Node]bool)
	if n == nil {
		return out
	}
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out[cur] = true
		queue = append(queue, cur.Children...)
	}
	return out
}

// InTree reports whether needle appears in the subtree rooted at root.
func InTree(needle, root *Node) bool {
	if root == nil {
		return false
	}
	queue := []*Node{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == needle {
			return true
		}
		queue = append(queue, cur.Children...)
	}
	return false
}

// SkipParens unwraps parenthesized expressions. The parsed tree has no
// implicit casts, so parentheses are the only wrappers to strip before
// identity comparisons.
func SkipParens(n *Node) *Node {
	for n != nil && n.Kind == "parenthesized_expression" {
		if len(n.Children) == 0 {
			return n
		}
		n = n.Children[0]
	}
	return n
}

// Ancestors walks parent links from n upward, excluding n itself.
func Ancestors(n *Node) []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// ChildOfKind returns the first child with the given kind, or nil.
func (n *Node) ChildOfKind(kind string) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// ChildByField returns the child filling the given grammar field, or nil.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// Text returns the source text a node covers.
func (t *Tree) Text(n *Node) string {
	if n == nil || n.StartByte < 0 || n.EndByte > len(t.Buffer) {
		return ""
	}
	return string(t.Buffer[n.StartByte:n.EndByte])
}
