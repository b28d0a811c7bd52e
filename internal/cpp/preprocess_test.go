package cpp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/macroaudit/macroaudit/internal/source"
)

// eventLog records observer callbacks for assertions.
type eventLog struct {
	defined   []string
	inspected []string
	events    []string // "begin NAME" / "end NAME" with in-arg suffix
	includes  []*Include
}

func (l *eventLog) MacroDefined(m *Macro)   { l.defined = append(l.defined, m.Name) }
func (l *eventLog) MacroInspected(n string) { l.inspected = append(l.inspected, n) }
func (l *eventLog) ExpansionBegin(e *Expansion) {
	s := "begin " + e.Macro.Name
	if e.InMacroArg {
		s += " (arg)"
	}
	l.events = append(l.events, s)
}
func (l *eventLog) ExpansionEnd(e *Expansion) {
	l.events = append(l.events, "end "+e.Macro.Name)
}
func (l *eventLog) IncludeDirective(inc *Include) { l.includes = append(l.includes, inc) }

func preprocess(t *testing.T, src string) (*Preprocessor, *eventLog) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	sm := source.NewManager()
	log := &eventLog{}
	pp := New(sm, nil, log)
	if err := pp.ProcessFile(path); err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	return pp, log
}

func outputText(pp *Preprocessor) string {
	var parts []string
	for _, t := range pp.Output() {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

func TestObjectLikeExpansion(t *testing.T) {
	pp, log := preprocess(t, "#define PI 3.14\ndouble x = PI;\n")
	if got := outputText(pp); got != "double x = 3.14 ;" {
		t.Fatalf("output %q", got)
	}
	if len(log.defined) != 1 || log.defined[0] != "PI" {
		t.Fatalf("defined events %v", log.defined)
	}
	if len(log.events) != 2 || log.events[0] != "begin PI" || log.events[1] != "end PI" {
		t.Fatalf("events %v", log.events)
	}
}

func TestFunctionLikeExpansion(t *testing.T) {
	pp, _ := preprocess(t, "#define SQUARE(x) ((x)*(x))\nint y = SQUARE(i + 1);\n")
	want := "int y = ( ( i + 1 ) * ( i + 1 ) ) ;"
	if got := outputText(pp); got != want {
		t.Fatalf("output %q, want %q", got, want)
	}
}

func TestFunctionLikeNameWithoutParens(t *testing.T) {
	pp, log := preprocess(t, "#define F(x) x\nint F;\n")
	if got := outputText(pp); got != "int F ;" {
		t.Fatalf("output %q", got)
	}
	if len(log.events) != 0 {
		t.Fatalf("no expansion expected, got %v", log.events)
	}
}

func TestNestedExpansionBracketing(t *testing.T) {
	_, log := preprocess(t, "#define INNER 1\n#define OUTER (INNER + 2)\nint x = OUTER;\n")
	want := []string{"begin OUTER", "begin INNER", "end INNER", "end OUTER"}
	if len(log.events) != len(want) {
		t.Fatalf("events %v, want %v", log.events, want)
	}
	for i := range want {
		if log.events[i] != want[i] {
			t.Fatalf("event %d: %q, want %q", i, log.events[i], want[i])
		}
	}
}

func TestExpansionInMacroArgument(t *testing.T) {
	_, log := preprocess(t, "#define ONE 1\n#define ID(x) x\nint y = ID(ONE);\n")
	want := []string{"begin ONE (arg)", "end ONE", "begin ID", "end ID"}
	if len(log.events) != len(want) {
		t.Fatalf("events %v, want %v", log.events, want)
	}
	for i := range want {
		if log.events[i] != want[i] {
			t.Fatalf("event %d: %q, want %q", i, log.events[i], want[i])
		}
	}
}

func TestStringification(t *testing.T) {
	pp, _ := preprocess(t, "#define STR(x) #x\nconst char *s = STR(a + b);\n")
	if got := outputText(pp); !strings.Contains(got, `"a + b"`) {
		t.Fatalf("output %q should contain stringized argument", got)
	}
}

func TestTokenPaste(t *testing.T) {
	pp, _ := preprocess(t, "#define GLUE(a, b) a ## b\nint GLUE(foo, bar) = 1;\n")
	found := false
	for _, tok := range pp.Output() {
		if tok.Kind == Ident && tok.Text == "foobar" {
			found = true
		}
	}
	if !found {
		t.Fatalf("pasted identifier missing from %q", outputText(pp))
	}
}

func TestHidesetStopsRecursion(t *testing.T) {
	pp, log := preprocess(t, "#define LOOP LOOP + 1\nint x = LOOP;\n")
	if got := outputText(pp); got != "int x = LOOP + 1 ;" {
		t.Fatalf("output %q", got)
	}
	if len(log.events) != 2 {
		t.Fatalf("self-referential macro should expand once, events %v", log.events)
	}
}

func TestConditionalSkipsAndInspects(t *testing.T) {
	src := `#define A 1
#ifdef A
int yes;
#else
int no;
#endif
#if defined(B) && A
int also;
#endif
`
	pp, log := preprocess(t, src)
	out := outputText(pp)
	if !strings.Contains(out, "yes") || strings.Contains(out, "no") {
		t.Fatalf("conditional selection wrong: %q", out)
	}
	if strings.Contains(out, "also") {
		t.Fatalf("defined(B) is false, branch should be skipped: %q", out)
	}
	inspected := strings.Join(log.inspected, " ")
	if !strings.Contains(inspected, "A") || !strings.Contains(inspected, "B") {
		t.Fatalf("inspected names %v", log.inspected)
	}
}

func TestElifAndNestedConditionals(t *testing.T) {
	src := `#define V 2
#if V == 1
int one;
#elif V == 2
int two;
#else
int other;
#endif
`
	pp, _ := preprocess(t, src)
	out := outputText(pp)
	if !strings.Contains(out, "two") || strings.Contains(out, "one") || strings.Contains(out, "other") {
		t.Fatalf("elif selection wrong: %q", out)
	}
}

func TestRedefinitionUsesLatest(t *testing.T) {
	pp, _ := preprocess(t, "#define N 1\n#define N 2\nint x = N;\n")
	if got := outputText(pp); got != "int x = 2 ;" {
		t.Fatalf("output %q", got)
	}
}

func TestUndef(t *testing.T) {
	pp, _ := preprocess(t, "#define N 1\n#undef N\nint x = N;\n")
	if got := outputText(pp); got != "int x = N ;" {
		t.Fatalf("output %q", got)
	}
}

func TestIncludeResolution(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "defs.h")
	if err := os.WriteFile(header, []byte("#define FROM_HEADER 7\n"), 0o644); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	main := filepath.Join(dir, "main.c")
	if err := os.WriteFile(main, []byte("#include \"defs.h\"\nint x = FROM_HEADER;\n"), 0o644); err != nil {
		t.Fatalf("writing main: %v", err)
	}

	sm := source.NewManager()
	log := &eventLog{}
	pp := New(sm, nil, log)
	if err := pp.ProcessFile(main); err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if got := outputText(pp); got != "int x = 7 ;" {
		t.Fatalf("output %q", got)
	}
	if len(log.includes) != 1 || log.includes[0].File == nil {
		t.Fatalf("include events %#v", log.includes)
	}
}

func TestMissingIncludeIsDropped(t *testing.T) {
	pp, log := preprocess(t, "#include \"nope.h\"\nint x;\n")
	if got := outputText(pp); got != "int x ;" {
		t.Fatalf("output %q", got)
	}
	if len(log.includes) != 1 || log.includes[0].File != nil {
		t.Fatalf("unresolved include should still be reported: %#v", log.includes)
	}
}

func TestSeqFollowsSourceOrder(t *testing.T) {
	pp, _ := preprocess(t, "int a;\nint b;\n")
	toks := pp.Output()
	for i := 1; i < len(toks); i++ {
		if toks[i].Seq <= toks[i-1].Seq {
			t.Fatalf("seq not monotonic at %d: %d then %d", i, toks[i-1].Seq, toks[i].Seq)
		}
	}
}

func TestArgumentOccurrencesRecorded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	os.WriteFile(path, []byte("#define TWICE(x) (x + x)\nint y = TWICE(3);\n"), 0o644)

	sm := source.NewManager()
	var captured *Expansion
	pp := New(sm, nil, &captureObserver{target: &captured})
	if err := pp.ProcessFile(path); err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if captured == nil {
		t.Fatalf("no expansion observed")
	}
	if len(captured.Args) != 1 {
		t.Fatalf("expected 1 argument, got %d", len(captured.Args))
	}
	if got := len(captured.Args[0].Occurrences); got != 2 {
		t.Fatalf("expected 2 occurrences, got %d", got)
	}
	if len(captured.Emitted) == 0 {
		t.Fatalf("emitted token list not recorded")
	}
}

type captureObserver struct {
	target **Expansion
}

func (c *captureObserver) MacroDefined(*Macro)       {}
func (c *captureObserver) MacroInspected(string)     {}
func (c *captureObserver) ExpansionBegin(*Expansion) {}
func (c *captureObserver) ExpansionEnd(e *Expansion) {
	if *c.target == nil {
		*c.target = e
	}
}
func (c *captureObserver) IncludeDirective(*Include) {}
