package validator

// The CUE validator is the contract guard between the analyzer and every
// downstream consumer of its records (the policy engine included). If a
// record does not match the schema the pipeline is broken; crash with a
// clear error instead of letting a policy silently receive undefined
// fields.

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed record_schema.cue
var schemaFS embed.FS

// Validator validates emitted records against the CUE schema contract.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a Validator with the embedded CUE schema
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("record_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{ctx: ctx, schema: schema}, nil
}

// ValidateRecord checks a single record against the #Record definition.
func (v *Validator) ValidateRecord(record interface{}) error {
	return v.validate(record, "#Record")
}

// ValidateReport checks the full record list against #Report. The argument
// must marshal to {"records": [...]}.
func (v *Validator) ValidateReport(report interface{}) error {
	return v.validate(report, "#Report")
}

func (v *Validator) validate(data interface{}, def string) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}

	defValue := v.schema.LookupPath(cue.ParsePath(def))
	if defValue.Err() != nil {
		return fmt.Errorf("looking up %s definition: %w", def, defValue.Err())
	}

	unified := defValue.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
