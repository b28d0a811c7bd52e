package sem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/macroaudit/macroaudit/internal/cast"
	"github.com/macroaudit/macroaudit/internal/cpp"
	"github.com/macroaudit/macroaudit/internal/source"
)

func analyze(t *testing.T, src string) (*cast.Tree, *Info) {
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
	tree, err := cast.Build(pp.Output())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tree, Resolve(tree)
}

// exprOfText finds the first expression node spelling exactly the given text.
func exprOfText(tree *cast.Tree, text string) *cast.Node {
	for _, n := range tree.Nodes {
		if n.IsExpr() && tree.Text(n) == text {
			return n
		}
	}
	return nil
}

func TestLiteralTypes(t *testing.T) {
	tree, info := analyze(t, "int a = 1; double b = 3.14; char c = 'x';\n")
	cases := []struct {
		text string
		want string
	}{
		{"1", "int"},
		{"3.14", "double"},
		{"'x'", "int"},
	}
	for _, tc := range cases {
		n := exprOfText(tree, tc.text)
		if n == nil {
			t.Fatalf("expression %q not found", tc.text)
		}
		ty := info.TypeOf(n)
		if ty == nil || ty.Canonical() != tc.want {
			t.Fatalf("type of %q = %v, want %s", tc.text, ty.Canonical(), tc.want)
		}
	}
}

func TestUsualArithmeticConversions(t *testing.T) {
	tree, info := analyze(t, "int i; double d; int r1 = i + i; double r2 = i + d;\n")
	sum := exprOfText(tree, "i + i")
	if got := info.TypeOf(sum).Canonical(); got != "int" {
		t.Fatalf("i + i typed %q", got)
	}
	mixed := exprOfText(tree, "i + d")
	if got := info.TypeOf(mixed).Canonical(); got != "double" {
		t.Fatalf("i + d typed %q", got)
	}
}

func TestIdentifierResolutionAndStorage(t *testing.T) {
	_, info := analyze(t, `
int g;
int main(void) {
  int l = 0;
  static int s = 0;
  g = l + s;
  return g;
}
`)
	var gUse, lUse, sUse *cast.Node
	for n, sym := range info.Uses {
		switch sym.Name {
		case "g":
			gUse = n
		case "l":
			lUse = n
		case "s":
			sUse = n
		}
	}
	if gUse == nil || lUse == nil || sUse == nil {
		t.Fatalf("uses not resolved: g=%v l=%v s=%v", gUse, lUse, sUse)
	}
	if info.Uses[gUse].Local {
		t.Fatalf("g is file scope")
	}
	if !info.Uses[lUse].Local || info.Uses[lUse].Static {
		t.Fatalf("l should have local storage")
	}
	if !info.Uses[sUse].Static {
		t.Fatalf("s should be static")
	}
}

func TestPointerAndCallTypes(t *testing.T) {
	tree, info := analyze(t, `
int f(int a) { return a; }
int main(void) {
  int x = 0;
  int *p = &x;
  int y = f(x);
  int z = *p;
  return y + z;
}
`)
	addr := exprOfText(tree, "& x")
	if addr == nil {
		t.Fatalf("address-of expression not found")
	}
	if got := info.TypeOf(addr).Canonical(); got != "int *" {
		t.Fatalf("&x typed %q", got)
	}
	call := exprOfText(tree, "f ( x )")
	if call == nil {
		t.Fatalf("call expression not found")
	}
	if got := info.TypeOf(call).Canonical(); got != "int" {
		t.Fatalf("f(x) typed %q", got)
	}
	deref := exprOfText(tree, "* p")
	if got := info.TypeOf(deref).Canonical(); got != "int" {
		t.Fatalf("*p typed %q", got)
	}
}

func TestTypedefDesugar(t *testing.T) {
	_, info := analyze(t, `
typedef unsigned long word;
word w;
int main(void) { return w > 0; }
`)
	var wUse *cast.Node
	for n, sym := range info.Uses {
		if sym.Name == "w" {
			wUse = n
		}
	}
	if wUse == nil {
		t.Fatalf("w use not resolved")
	}
	ty := info.TypeOf(wUse)
	if ty == nil || ty.Kind != Typedef {
		t.Fatalf("w should carry the typedef, got %#v", ty)
	}
	if got := ty.Canonical(); got != "unsigned long" {
		t.Fatalf("canonical %q, want unsigned long", got)
	}
}

func TestLocalTypeDetection(t *testing.T) {
	_, info := analyze(t, `
struct global_tag { int a; } gv;
int main(void) {
  struct local_tag { int b; } lv;
  lv.b = 1;
  return gv.a;
}
`)
	var gvUse, lvUse *cast.Node
	for n, sym := range info.Uses {
		switch sym.Name {
		case "gv":
			gvUse = n
		case "lv":
			lvUse = n
		}
	}
	if gvUse == nil || lvUse == nil {
		t.Fatalf("tag variable uses not resolved")
	}
	if HasLocalType(info.TypeOf(gvUse)) {
		t.Fatalf("global struct should not be local")
	}
	if !HasLocalType(info.TypeOf(lvUse)) {
		t.Fatalf("local struct should be detected")
	}
	if got := info.TypeOf(lvUse).Canonical(); got != "struct local_tag" {
		t.Fatalf("canonical %q", got)
	}
}

func TestEnumConstantsAreICE(t *testing.T) {
	tree, info := analyze(t, `
enum color { RED, GREEN = 5 };
int main(void) {
  int x = RED + 1;
  int y = x + 1;
  return y;
}
`)
	red := exprOfText(tree, "RED + 1")
	if red == nil {
		t.Fatalf("RED + 1 not found")
	}
	if !info.IsICE(red) {
		t.Fatalf("enum arithmetic should be an ICE")
	}
	nonConst := exprOfText(tree, "x + 1")
	if info.IsICE(nonConst) {
		t.Fatalf("x + 1 is not an ICE")
	}
}

func TestDefinedAfterSeq(t *testing.T) {
	tree, info := analyze(t, `
int early;
struct late_tag { int a; };
struct late_tag lv;
int main(void) { return lv.a + early; }
`)
	var earlySym, lvSym *Symbol
	for _, sym := range info.Symbols {
		switch sym.Name {
		case "early":
			earlySym = sym
		case "lv":
			lvSym = sym
		}
	}
	if earlySym == nil || lvSym == nil {
		t.Fatalf("symbols missing")
	}
	if !HasTypeDefinedAfter(lvSym.Type, earlySym.Seq) {
		t.Fatalf("late_tag is declared after early")
	}
	if HasTypeDefinedAfter(lvSym.Type, lvSym.Seq+1000) {
		t.Fatalf("nothing is declared after the end")
	}
	_ = tree
}
