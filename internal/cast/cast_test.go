package cast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/macroaudit/macroaudit/internal/cpp"
	"github.com/macroaudit/macroaudit/internal/source"
)

func buildTree(t *testing.T, src string) *Tree {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	sm := source.NewManager()
	pp := cpp.New(sm, nil)
	if err := pp.ProcessFile(path); err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	tree, err := Build(pp.Output())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tree
}

func findKind(tree *Tree, kind string) *Node {
	for _, n := range tree.Nodes {
		if n.Kind == kind {
			return n
		}
	}
	return nil
}

func TestBuildMirrorsTree(t *testing.T) {
	tree := buildTree(t, "int x = 1 + 2;\n")
	if tree.Root == nil || tree.Root.Kind != "translation_unit" {
		t.Fatalf("root %+v", tree.Root)
	}
	decl := findKind(tree, "declaration")
	if decl == nil {
		t.Fatalf("no declaration node")
	}
	bin := findKind(tree, "binary_expression")
	if bin == nil {
		t.Fatalf("no binary_expression node")
	}
	if bin.Op != "+" {
		t.Fatalf("operator %q, want +", bin.Op)
	}
	if tree.Text(bin) != "1 + 2" {
		t.Fatalf("binary text %q", tree.Text(bin))
	}
}

func TestTokenSpans(t *testing.T) {
	tree := buildTree(t, "int x = 1 + 2;\n")
	bin := findKind(tree, "binary_expression")
	if bin.FirstTok < 0 || bin.LastTok < 0 {
		t.Fatalf("binary expression not token-aligned: %+v", bin)
	}
	if bin.LastTok-bin.FirstTok != 2 {
		t.Fatalf("binary expression should cover 3 tokens, spans %d..%d", bin.FirstTok, bin.LastTok)
	}
	got := tree.SpanNodes(bin.FirstTok, bin.LastTok)
	found := false
	for _, n := range got {
		if n == bin {
			found = true
		}
	}
	if !found {
		t.Fatalf("span lookup missed the binary expression")
	}
}

func TestSpanOfRequiresContiguity(t *testing.T) {
	tree := buildTree(t, "int x = 1 + 2;\n")
	toks := tree.Tokens
	if _, _, ok := tree.SpanOf([]*cpp.Token{toks[0], toks[2]}); ok {
		t.Fatalf("non-contiguous token list must not form a span")
	}
	if first, last, ok := tree.SpanOf(toks[0:3]); !ok || first != 0 || last != 2 {
		t.Fatalf("contiguous span got (%d,%d,%v)", first, last, ok)
	}
	if _, _, ok := tree.SpanOf(nil); ok {
		t.Fatalf("empty token list must not form a span")
	}
}

func TestClassification(t *testing.T) {
	tree := buildTree(t, `
struct point { int x; };
int main(void) {
  int a = 0;
  if (a) { return 1; }
  for (;;) { break; }
  return 0;
}
`)
	if n := findKind(tree, "if_statement"); n == nil || !n.IsStmt() || n.IsExpr() {
		t.Fatalf("if_statement classification wrong")
	}
	if n := findKind(tree, "identifier"); n == nil || !n.IsExpr() || !n.IsStmt() {
		t.Fatalf("identifier should classify as expression and statement")
	}
	if n := findKind(tree, "struct_specifier"); n == nil || !n.IsTypeLoc() {
		t.Fatalf("struct_specifier should be a type location")
	}
	if n := findKind(tree, "function_definition"); n == nil || !n.IsDecl() {
		t.Fatalf("function_definition should be a declaration")
	}
	if n := findKind(tree, "break_statement"); n == nil || !n.IsControlFlow() {
		t.Fatalf("break_statement should be control flow")
	}
	if n := findKind(tree, "return_statement"); n == nil || !n.IsControlFlow() {
		t.Fatalf("return_statement should be control flow")
	}
}

func TestSubtreesAndInTree(t *testing.T) {
	tree := buildTree(t, "int x = (1 + 2) * 3;\n")
	paren := findKind(tree, "parenthesized_expression")
	bin := findKind(tree, "binary_expression")
	subs := Subtrees(bin)
	if !subs[paren] {
		t.Fatalf("paren should be a subtree of the outer binary expression")
	}
	if !InTree(paren, bin) {
		t.Fatalf("InTree(paren, bin) should hold")
	}
	if InTree(bin, paren) {
		t.Fatalf("InTree(bin, paren) should not hold")
	}
	if SkipParens(paren).Kind != "binary_expression" {
		t.Fatalf("SkipParens should unwrap to the inner expression, got %s", SkipParens(paren).Kind)
	}
}

func TestAncestors(t *testing.T) {
	tree := buildTree(t, "int x = 1;\n")
	num := findKind(tree, "number_literal")
	anc := Ancestors(num)
	if len(anc) == 0 || anc[len(anc)-1] != tree.Root {
		t.Fatalf("ancestors should end at the root")
	}
}
