package analysis

import (
	"strings"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	r := &Record{
		Name:                "SQUARE",
		DefinitionLocation:  "/tmp/main.c:1:9",
		InvocationLocation:  "/tmp/main.c:4:11",
		ASTKind:             "Expr",
		TypeSignature:       "int(int)",
		NumASTRoots:         1,
		NumArguments:        1,
		HasAlignedArguments: true,
		IsHygienic:          true,
		IsExpansionTypeNull: true,
	}
	parsed, err := ParseRecord(r.Format())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *parsed != *r {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", parsed, r)
	}
}

func TestRecordFormatShape(t *testing.T) {
	r := &Record{Name: "PI"}
	out := r.Format()
	if !strings.HasPrefix(out, "Top level invocation\t{\n") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.HasSuffix(out, " }\n") {
		t.Fatalf("missing trailer: %q", out)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	// header + 5 strings + 3 ints + 37 bools + trailer
	if len(lines) != 47 {
		t.Fatalf("expected 47 lines, got %d", len(lines))
	}
	if lines[1] != `    "Name" : "PI",` {
		t.Fatalf("first field line %q", lines[1])
	}
	last := lines[len(lines)-2]
	if !strings.HasPrefix(last, `    "IsAnyArgumentNotAnExpression" : `) || strings.HasSuffix(last, ",") {
		t.Fatalf("last bool line %q", last)
	}
}

func TestRecordKeyOrderStable(t *testing.T) {
	r := &Record{Name: "X"}
	out := r.Format()
	prev := -1
	for _, key := range append(append(append([]string{}, stringKeys...), intKeys...), boolKeys...) {
		idx := strings.Index(out, `"`+key+`"`)
		if idx < 0 {
			t.Fatalf("key %s missing", key)
		}
		if idx <= prev {
			t.Fatalf("key %s out of order", key)
		}
		prev = idx
	}
}

func TestParseRecordRejectsGarbage(t *testing.T) {
	if _, err := ParseRecord("Nested Invocation\tFOO\n"); err == nil {
		t.Fatalf("marker line is not a record")
	}
}
