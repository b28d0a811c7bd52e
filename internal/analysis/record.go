package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is the full property vector emitted for one top-level macro
// invocation. Field order here is emission order.
type Record struct {
	Name               string `json:"Name"`
	DefinitionLocation string `json:"DefinitionLocation"`
	InvocationLocation string `json:"InvocationLocation"`
	ASTKind            string `json:"ASTKind"`
	TypeSignature      string `json:"TypeSignature"`

	InvocationDepth int `json:"InvocationDepth"`
	NumASTRoots     int `json:"NumASTRoots"`
	NumArguments    int `json:"NumArguments"`

	HasStringification            bool `json:"HasStringification"`
	HasTokenPasting               bool `json:"HasTokenPasting"`
	HasAlignedArguments           bool `json:"HasAlignedArguments"`
	HasSameNameAsOtherDeclaration bool `json:"HasSameNameAsOtherDeclaration"`

	DoesExpansionHaveControlFlowStmt bool `json:"DoesExpansionHaveControlFlowStmt"`

	DoesBodyReferenceMacroDefinedAfterMacro                    bool `json:"DoesBodyReferenceMacroDefinedAfterMacro"`
	DoesBodyReferenceDeclDeclaredAfterMacro                    bool `json:"DoesBodyReferenceDeclDeclaredAfterMacro"`
	DoesBodyContainDeclRefExpr                                 bool `json:"DoesBodyContainDeclRefExpr"`
	DoesSubexpressionExpandedFromBodyHaveLocalType             bool `json:"DoesSubexpressionExpandedFromBodyHaveLocalType"`
	DoesSubexpressionExpandedFromBodyHaveTypeDefinedAfterMacro bool `json:"DoesSubexpressionExpandedFromBodyHaveTypeDefinedAfterMacro"`

	DoesAnyArgumentHaveSideEffects    bool `json:"DoesAnyArgumentHaveSideEffects"`
	DoesAnyArgumentContainDeclRefExpr bool `json:"DoesAnyArgumentContainDeclRefExpr"`

	IsHygienic                    bool `json:"IsHygienic"`
	IsDefinitionLocationValid     bool `json:"IsDefinitionLocationValid"`
	IsInvocationLocationValid     bool `json:"IsInvocationLocationValid"`
	IsObjectLike                  bool `json:"IsObjectLike"`
	IsInvokedInMacroArgument      bool `json:"IsInvokedInMacroArgument"`
	IsNamePresentInCPPConditional bool `json:"IsNamePresentInCPPConditional"`
	IsExpansionICE                bool `json:"IsExpansionICE"`

	IsExpansionTypeNull              bool `json:"IsExpansionTypeNull"`
	IsExpansionTypeAnonymous         bool `json:"IsExpansionTypeAnonymous"`
	IsExpansionTypeLocalType         bool `json:"IsExpansionTypeLocalType"`
	IsExpansionTypeDefinedAfterMacro bool `json:"IsExpansionTypeDefinedAfterMacro"`
	IsExpansionTypeVoid              bool `json:"IsExpansionTypeVoid"`

	IsAnyArgumentTypeNull              bool `json:"IsAnyArgumentTypeNull"`
	IsAnyArgumentTypeAnonymous         bool `json:"IsAnyArgumentTypeAnonymous"`
	IsAnyArgumentTypeLocalType         bool `json:"IsAnyArgumentTypeLocalType"`
	IsAnyArgumentTypeDefinedAfterMacro bool `json:"IsAnyArgumentTypeDefinedAfterMacro"`
	IsAnyArgumentTypeVoid              bool `json:"IsAnyArgumentTypeVoid"`

	IsInvokedWhereModifiableValueRequired  bool `json:"IsInvokedWhereModifiableValueRequired"`
	IsInvokedWhereAddressableValueRequired bool `json:"IsInvokedWhereAddressableValueRequired"`
	IsInvokedWhereICERequired              bool `json:"IsInvokedWhereICERequired"`

	IsAnyArgumentExpandedWhereModifiableValueRequired  bool `json:"IsAnyArgumentExpandedWhereModifiableValueRequired"`
	IsAnyArgumentExpandedWhereAddressableValueRequired bool `json:"IsAnyArgumentExpandedWhereAddressableValueRequired"`
	IsAnyArgumentConditionallyEvaluated                bool `json:"IsAnyArgumentConditionallyEvaluated"`
	IsAnyArgumentNeverExpanded                         bool `json:"IsAnyArgumentNeverExpanded"`
	IsAnyArgumentNotAnExpression                       bool `json:"IsAnyArgumentNotAnExpression"`
}

const recordHeader = "Top level invocation\t{"

// stringKeys, intKeys and boolKeys fix the emission order of the record.
var stringKeys = []string{
	"Name", "DefinitionLocation", "InvocationLocation", "ASTKind", "TypeSignature",
}

var intKeys = []string{"InvocationDepth", "NumASTRoots", "NumArguments"}

var boolKeys = []string{
	"HasStringification",
	"HasTokenPasting",
	"HasAlignedArguments",
	"HasSameNameAsOtherDeclaration",
	"DoesExpansionHaveControlFlowStmt",
	"DoesBodyReferenceMacroDefinedAfterMacro",
	"DoesBodyReferenceDeclDeclaredAfterMacro",
	"DoesBodyContainDeclRefExpr",
	"DoesSubexpressionExpandedFromBodyHaveLocalType",
	"DoesSubexpressionExpandedFromBodyHaveTypeDefinedAfterMacro",
	"DoesAnyArgumentHaveSideEffects",
	"DoesAnyArgumentContainDeclRefExpr",
	"IsHygienic",
	"IsDefinitionLocationValid",
	"IsInvocationLocationValid",
	"IsObjectLike",
	"IsInvokedInMacroArgument",
	"IsNamePresentInCPPConditional",
	"IsExpansionICE",
	"IsExpansionTypeNull",
	"IsExpansionTypeAnonymous",
	"IsExpansionTypeLocalType",
	"IsExpansionTypeDefinedAfterMacro",
	"IsExpansionTypeVoid",
	"IsAnyArgumentTypeNull",
	"IsAnyArgumentTypeAnonymous",
	"IsAnyArgumentTypeLocalType",
	"IsAnyArgumentTypeDefinedAfterMacro",
	"IsAnyArgumentTypeVoid",
	"IsInvokedWhereModifiableValueRequired",
	"IsInvokedWhereAddressableValueRequired",
	"IsInvokedWhereICERequired",
	"IsAnyArgumentExpandedWhereModifiableValueRequired",
	"IsAnyArgumentExpandedWhereAddressableValueRequired",
	"IsAnyArgumentConditionallyEvaluated",
	"IsAnyArgumentNeverExpanded",
	"IsAnyArgumentNotAnExpression",
}

// Format renders the record as its output block.
func (r *Record) Format() string {
	var sb strings.Builder
	sb.WriteString(recordHeader)
	sb.WriteByte('\n')

	fields := r.fieldMap()
	for _, k := range stringKeys {
		fmt.Fprintf(&sb, "    %q : %q,\n", k, fields[k])
	}
	for _, k := range intKeys {
		fmt.Fprintf(&sb, "    %q : %v,\n", k, fields[k])
	}
	for i, k := range boolKeys {
		sep := ","
		if i == len(boolKeys)-1 {
			sep = ""
		}
		fmt.Fprintf(&sb, "    %q : %v%s\n", k, fields[k], sep)
	}
	sb.WriteString(" }\n")
	return sb.String()
}

func (r *Record) fieldMap() map[string]interface{} {
	data, _ := json.Marshal(r)
	var m map[string]interface{}
	_ = json.Unmarshal(data, &m)
	return m
}

// ParseRecord reads a formatted record block back into a Record. The block
// body is a JSON object once the header line is stripped.
func ParseRecord(block string) (*Record, error) {
	idx := strings.Index(block, recordHeader)
	if idx < 0 {
		return nil, fmt.Errorf("not a record block")
	}
	body := block[idx+len(recordHeader)-1:]
	end := strings.LastIndex(body, "}")
	if end < 0 {
		return nil, fmt.Errorf("unterminated record block")
	}
	var r Record
	if err := json.Unmarshal([]byte(body[:end+1]), &r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &r, nil
}
