// Package cast parses the preprocessed token stream with tree-sitter's C
// grammar and mirrors the syntax tree into an arena the rest of the
// pipeline can query without touching cgo nodes.
package cast

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/macroaudit/macroaudit/internal/cpp"
)

// Node is one mirrored syntax node.
type Node struct {
	ID     int
	Kind   string
	Named  bool
	Parent *Node

	// Field is the grammar field name this node fills in its parent, if any.
	Field string
	// Op is the operator spelling for operator-bearing expressions.
	Op string

	Children []*Node

	StartByte, EndByte int

	// FirstTok and LastTok are the indices of the first and last stream
	// tokens the node covers, or -1 when the node does not start or end on
	// a token boundary.
	FirstTok, LastTok int
}

// Tree is the mirrored syntax tree plus the token stream it was parsed from.
type Tree struct {
	Root   *Node
	Nodes  []*Node // pre-order
	Tokens []*cpp.Token
	Buffer []byte

	tokIndex  map[int]int    // token ID -> stream index
	spanNodes map[[2]int][]*Node
}

// Build renders the token stream, parses it as C, and mirrors the tree.
func Build(tokens []*cpp.Token) (*Tree, error) {
	buf, starts, ends := render(tokens)

	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	st, err := parser.ParseCtx(context.Background(), nil, buf)
	if err != nil {
		return nil, fmt.Errorf("parsing translation unit: %w", err)
	}
	defer st.Close()

	t := &Tree{
		Tokens:    tokens,
		Buffer:    buf,
		tokIndex:  make(map[int]int, len(tokens)),
		spanNodes: make(map[[2]int][]*Node),
	}
	for i, tok := range tokens {
		t.tokIndex[tok.ID] = i
	}

	startByTok := make(map[int]int, len(starts)) // render offset -> token index
	endByTok := make(map[int]int, len(ends))
	for i := range tokens {
		startByTok[starts[i]] = i
		endByTok[ends[i]] = i
	}

	t.mirror(st.RootNode(), startByTok, endByTok)
	for _, n := range t.Nodes {
		if n.FirstTok >= 0 && n.LastTok >= 0 {
			key := [2]int{n.FirstTok, n.LastTok}
			t.spanNodes[key] = append(t.spanNodes[key], n)
		}
	}
	return t, nil
}

// render lays the tokens out as compilable text, one space between tokens
// and a newline wherever the source started a new line. Offsets per token
// are returned for mapping tree-sitter ranges back to the stream.
func render(tokens []*cpp.Token) (buf []byte, starts, ends []int) {
	starts = make([]int, len(tokens))
	ends = make([]int, len(tokens))
	for i, t := range tokens {
		if i > 0 {
			if t.BOL {
				buf = append(buf, '\n')
			} else {
				buf = append(buf, ' ')
			}
		}
		starts[i] = len(buf)
		buf = append(buf, t.Text...)
		ends[i] = len(buf)
	}
	buf = append(buf, '\n')
	return buf, starts, ends
}

// mirror copies the tree-sitter tree into the arena with an explicit stack
// so arbitrarily deep inputs cannot exhaust the goroutine stack.
func (t *Tree) mirror(root *sitter.Node, startByTok, endByTok map[int]int) {
	if root == nil {
		return
	}
	type frame struct {
		src    *sitter.Node
		field  string
		parent *Node
	}
	stack := []frame{{src: root}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &Node{
			ID:        len(t.Nodes),
			Kind:      fr.src.Type(),
			Named:     fr.src.IsNamed(),
			Field:     fr.field,
			Parent:    fr.parent,
			StartByte: int(fr.src.StartByte()),
			EndByte:   int(fr.src.EndByte()),
			FirstTok:  -1,
			LastTok:   -1,
		}
		if i, ok := startByTok[n.StartByte]; ok {
			n.FirstTok = i
		}
		if i, ok := endByTok[n.EndByte]; ok {
			n.LastTok = i
		}
		t.Nodes = append(t.Nodes, n)
		if fr.parent == nil {
			t.Root = n
		} else {
			fr.parent.Children = append(fr.parent.Children, n)
		}

		// push children in reverse so they pop in source order; unnamed
		// children only contribute operator spellings
		count := int(fr.src.ChildCount())
		for i := count - 1; i >= 0; i-- {
			ch := fr.src.Child(i)
			field := fr.src.FieldNameForChild(i)
			if !ch.IsNamed() {
				if field == "operator" {
					n.Op = ch.Content(t.Buffer)
				}
				continue
			}
			stack = append(stack, frame{src: ch, field: field, parent: n})
		}
	}
}

// TokenIndex maps a token to its position in the final stream.
func (t *Tree) TokenIndex(tok *cpp.Token) (int, bool) {
	i, ok := t.tokIndex[tok.ID]
	return i, ok
}

// SpanOf computes the stream span a token list occupies. It fails when any
// token is absent from the final stream or the present tokens are not
// contiguous.
func (t *Tree) SpanOf(toks []*cpp.Token) (first, last int, ok bool) {
	if len(toks) == 0 {
		return 0, 0, false
	}
	first, last = len(t.Tokens), -1
	for _, tok := range toks {
		i, present := t.tokIndex[tok.ID]
		if !present {
			return 0, 0, false
		}
		if i < first {
			first = i
		}
		if i > last {
			last = i
		}
	}
	if last-first+1 != len(toks) {
		return 0, 0, false
	}
	return first, last, true
}

// SpanNodes returns every mirrored node that covers exactly the given
// token span.
func (t *Tree) SpanNodes(first, last int) []*Node {
	return t.spanNodes[[2]int{first, last}]
}
