// debug dumps the tree-sitter C parse of a file, with field names, for
// grammar investigation when an expansion fails to align.
package main

import (
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

func main() {
	source := []byte(`#define unused
int squared(int x) { return x * x; }
`)
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		source = data
	}

	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(nil, nil, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing: %v\n", err)
		os.Exit(1)
	}
	defer tree.Close()

	dump(tree.RootNode(), source, 0, "")
}

func dump(n *sitter.Node, source []byte, depth int, field string) {
	label := n.Type()
	if field != "" {
		label = field + ": " + label
	}
	content := n.Content(source)
	if len(content) > 40 {
		content = content[:40] + "..."
	}
	fmt.Printf("%s%s [%d-%d] %q\n", strings.Repeat("  ", depth), label, n.StartByte(), n.EndByte(), content)

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() {
			continue
		}
		dump(child, source, depth+1, n.FieldNameForChild(i))
	}
}
