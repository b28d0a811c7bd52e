package cpp

import "github.com/macroaudit/macroaudit/internal/source"

// Macro is one #define. Only the most recent definition of a name is
// retained by the preprocessor.
type Macro struct {
	Name       string
	ObjectLike bool
	Params     []string
	Variadic   bool
	Body       []*Token

	// NameTok is the name token of the #define directive; its location is
	// the macro's definition location.
	NameTok *Token
	// LastTok is the final body token (or the name token for an empty body).
	LastTok *Token
}

// DefinitionLoc returns the file and offset of the macro's definition.
func (m *Macro) DefinitionLoc() (*source.File, int) {
	return m.NameTok.FileLoc()
}

// MacroArg is one comma-separated argument of a function-like invocation.
type MacroArg struct {
	// Written is the argument's token list exactly as the programmer wrote it.
	Written []*Token
	// Expanded is the argument after macro expansion, as substituted for
	// ordinary parameter uses.
	Expanded []*Token
	// Occurrences records, for every substitution of this argument into the
	// body, the copies that were spliced in.
	Occurrences [][]*Token
}

// Expansion is one macro invocation observed by the preprocessor. The
// forest wraps these into nodes; the preprocessor guarantees that nested
// ExpansionBegin/ExpansionEnd pairs arrive properly bracketed and in source
// order.
type Expansion struct {
	Macro *Macro

	// NameTok is the token that triggered the expansion. SpellBegin and
	// SpellEnd delimit the written invocation; for an object-like macro all
	// three coincide.
	NameTok    *Token
	SpellBegin *Token
	SpellEnd   *Token

	Args []*MacroArg

	// InMacroArg is true when this expansion happened while pre-expanding
	// the argument tokens of some invocation.
	InMacroArg bool

	// Emitted is the token sequence this expansion contributed to the
	// preprocessor output, including everything nested expansions produced.
	Emitted []*Token
}

// Include is one #include directive as observed in the source.
type Include struct {
	// HashTok is the '#' token of the directive.
	HashTok *Token
	// Spelling is the include operand as written, e.g. `<stdio.h>` or `"x.h"`.
	Spelling string
	// File is the resolved file, or nil if resolution failed.
	File *source.File
}

// Observer receives preprocessing events. All methods are called
// synchronously in source order.
type Observer interface {
	// MacroDefined fires for every #define after the macro is recorded.
	MacroDefined(m *Macro)
	// MacroInspected fires when a conditional examines an identifier
	// (#ifdef, #ifndef, defined).
	MacroInspected(name string)
	// ExpansionBegin opens an invocation; nested begins arrive before the
	// matching ExpansionEnd.
	ExpansionBegin(e *Expansion)
	// ExpansionEnd closes an invocation; e.Emitted is final.
	ExpansionEnd(e *Expansion)
	// IncludeDirective fires for every #include with a quoted or
	// angle-bracketed operand, resolved or not; other forms fire nothing.
	IncludeDirective(inc *Include)
}
