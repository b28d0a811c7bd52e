package policy

import (
	"testing"

	"github.com/macroaudit/macroaudit/internal/analysis"
)

func engine(t *testing.T) *Engine {
	t.Helper()
	e, err := New("")
	if err != nil {
		t.Fatalf("loading embedded policies: %v", err)
	}
	return e
}

func TestUnhygienicMacroViolation(t *testing.T) {
	e := engine(t)
	rec := analysis.Record{
		Name:                "CAPTURE",
		InvocationLocation:  "/tmp/main.c:10:3",
		ASTKind:             "Expr",
		HasAlignedArguments: true,
		IsHygienic:          false,
	}
	res, err := e.Evaluate(Input{Records: []analysis.Record{rec}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	found := false
	for _, v := range res.Violations {
		if v.Rule == "unhygienic-macro" {
			found = true
			if v.Severity != "error" {
				t.Fatalf("severity %q, want error", v.Severity)
			}
			if v.File != "/tmp/main.c" || v.Line != 10 {
				t.Fatalf("location %s:%d", v.File, v.Line)
			}
		}
	}
	if !found {
		t.Fatalf("unhygienic-macro violation missing: %+v", res.Violations)
	}
	if res.Summary.Errors == 0 {
		t.Fatalf("summary should count the error: %+v", res.Summary)
	}
}

func TestHygienicRecordClean(t *testing.T) {
	e := engine(t)
	rec := analysis.Record{
		Name:                "SQUARE",
		InvocationLocation:  "/tmp/main.c:4:11",
		ASTKind:             "Expr",
		HasAlignedArguments: true,
		IsHygienic:          true,
	}
	res, err := e.Evaluate(Input{Records: []analysis.Record{rec}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("clean record produced violations: %+v", res.Violations)
	}
}

func TestSeverityOverrideAndOff(t *testing.T) {
	e := engine(t)
	rec := analysis.Record{
		Name:                           "NOISY",
		InvocationLocation:             "/tmp/main.c:7:1",
		ASTKind:                        "Expr",
		HasAlignedArguments:            true,
		IsHygienic:                     true,
		DoesAnyArgumentHaveSideEffects: true,
	}
	rules := map[string]string{"side-effecting-argument": "error"}
	res, err := e.Evaluate(Input{Records: []analysis.Record{rec}, Rules: rules})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Summary.Errors != 1 {
		t.Fatalf("override to error not applied: %+v", res.Summary)
	}

	rules["side-effecting-argument"] = "off"
	res, err = e.Evaluate(Input{Records: []analysis.Record{rec}, Rules: rules})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("disabled rule still fired: %+v", res.Violations)
	}
}

func TestUnalignedInvocationInfo(t *testing.T) {
	e := engine(t)
	rec := analysis.Record{
		Name:               "MYSTERY",
		InvocationLocation: "/tmp/main.c:3:1",
		ASTKind:            "",
	}
	res, err := e.Evaluate(Input{Records: []analysis.Record{rec}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Summary.Info != 1 {
		t.Fatalf("unaligned invocation should be info: %+v", res.Summary)
	}
}

func TestMissingPolicyDir(t *testing.T) {
	if _, err := New(t.TempDir()); err == nil {
		t.Fatalf("empty policy directory should error")
	}
}
