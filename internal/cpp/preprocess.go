package cpp

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/macroaudit/macroaudit/internal/source"
)

const maxIncludeDepth = 200

// Preprocessor drives lexing, directive handling and macro expansion for one
// translation unit, reporting events to the registered observers. It never
// fails on malformed input: untrackable constructs are dropped and
// processing continues.
type Preprocessor struct {
	sm          *source.Manager
	includeDirs []string
	observers   []Observer

	macros map[string]*Macro
	out    []*Token

	seq   int
	ids   int
	conds []*condIncl

	// inMacroArg is set while argument tokens of some invocation are being
	// pre-expanded; expansions fired in that window are argument-interior.
	inMacroArg bool
	// quiet suppresses expansion events, used while evaluating #if
	// conditions (those expansions produce no output tokens).
	quiet bool

	includeDepth int
}

// New creates a Preprocessor over the given source manager.
func New(sm *source.Manager, includeDirs []string, observers ...Observer) *Preprocessor {
	return &Preprocessor{
		sm:          sm,
		includeDirs: includeDirs,
		observers:   observers,
		macros:      make(map[string]*Macro),
	}
}

// Output returns the fully preprocessed token stream.
func (pp *Preprocessor) Output() []*Token { return pp.out }

// Macros returns the name to latest-definition mapping.
func (pp *Preprocessor) Macros() map[string]*Macro { return pp.macros }

// Predefine processes definitions of the form "NAME", "NAME=VALUE" or
// "NAME(args)=VALUE" before the main file, as if from a built-in buffer.
func (pp *Preprocessor) Predefine(defs []string) {
	if len(defs) == 0 {
		return
	}
	var buf []byte
	for _, d := range defs {
		name, val := d, "1"
		for i := 0; i < len(d); i++ {
			if d[i] == '=' {
				name, val = d[:i], d[i+1:]
				break
			}
		}
		buf = append(buf, []byte("#define "+name+" "+val+"\n")...)
	}
	f := pp.sm.AddVirtual("<built-in>", buf)
	toks := lex(f, &pp.ids)
	pp.processTokens(toks, ".")
}

// ProcessFile preprocesses path as the translation unit's main file.
func (pp *Preprocessor) ProcessFile(path string) error {
	f, err := pp.sm.Open(path)
	if err != nil {
		return fmt.Errorf("opening main file: %w", err)
	}
	toks := lex(f, &pp.ids)
	pp.processTokens(toks, filepath.Dir(path))
	return nil
}

func (pp *Preprocessor) nextSeq() int {
	pp.seq++
	return pp.seq
}

func (pp *Preprocessor) touch(t *Token) {
	if t.Seq == 0 {
		t.Seq = pp.nextSeq()
	}
}

// condIncl is one level of the conditional-inclusion stack.
type condIncl struct {
	parentActive bool
	taken        bool
	everTaken    bool
	inElse       bool
}

func (pp *Preprocessor) active() bool {
	for _, c := range pp.conds {
		if !c.parentActive || !c.taken {
			return false
		}
	}
	return true
}

func (pp *Preprocessor) processTokens(toks []*Token, dir string) {
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Kind == EOF {
			break
		}
		if t.BOL && t.IsPunct("#") {
			i = pp.directive(toks, i, dir)
			continue
		}
		if !pp.active() {
			i++
			continue
		}
		pp.touch(t)
		if t.Kind == Ident {
			if consumed, expanded, ok := pp.tryExpand(toks, i); ok {
				pp.out = append(pp.out, expanded...)
				i += consumed
				continue
			}
		}
		pp.out = append(pp.out, t)
		i++
	}
}

// directive interprets one # line and returns the index of the first token
// after it. Unknown directives are skipped.
func (pp *Preprocessor) directive(toks []*Token, i int, dir string) int {
	hash := toks[i]
	end := i + 1
	for end < len(toks) && toks[end].Kind != EOF && !toks[end].BOL {
		end++
	}
	line := toks[i+1 : end]
	if len(line) == 0 {
		return end
	}
	name := line[0]

	if !pp.active() {
		// Only the structure of conditionals matters inside a skipped
		// region.
		switch name.Text {
		case "if", "ifdef", "ifndef":
			pp.conds = append(pp.conds, &condIncl{parentActive: false})
		case "elif":
			pp.condElif(line)
		case "else":
			pp.condElse()
		case "endif":
			pp.condEndif()
		}
		return end
	}

	pp.touch(hash)
	for _, t := range line {
		pp.touch(t)
	}

	switch name.Text {
	case "define":
		pp.defineDirective(line)
	case "undef":
		if len(line) >= 2 && line[1].Kind == Ident {
			delete(pp.macros, line[1].Text)
		}
	case "include":
		pp.includeDirective(hash, line, dir)
	case "if":
		val := pp.evalCondition(line[1:])
		pp.conds = append(pp.conds, &condIncl{parentActive: true, taken: val != 0, everTaken: val != 0})
	case "ifdef", "ifndef":
		pp.condIfdef(line, name.Text == "ifndef")
	case "elif":
		pp.condElif(line)
	case "else":
		pp.condElse()
	case "endif":
		pp.condEndif()
	default:
		// #pragma, #error, #line and anything unrecognized: the host token
		// stream is authoritative, so these are dropped.
	}
	return end
}

func (pp *Preprocessor) condIfdef(line []*Token, negate bool) {
	defined := false
	if len(line) >= 2 && line[1].Kind == Ident {
		pp.inspected(line[1].Text)
		_, defined = pp.macros[line[1].Text]
	}
	taken := defined != negate
	pp.conds = append(pp.conds, &condIncl{parentActive: true, taken: taken, everTaken: taken})
}

func (pp *Preprocessor) condElif(line []*Token) {
	if len(pp.conds) == 0 {
		return
	}
	c := pp.conds[len(pp.conds)-1]
	if !c.parentActive || c.inElse {
		return
	}
	if c.everTaken {
		c.taken = false
		return
	}
	val := pp.evalCondition(line[1:])
	c.taken = val != 0
	c.everTaken = c.taken
}

func (pp *Preprocessor) condElse() {
	if len(pp.conds) == 0 {
		return
	}
	c := pp.conds[len(pp.conds)-1]
	c.inElse = true
	if !c.parentActive {
		return
	}
	c.taken = !c.everTaken
	c.everTaken = true
}

func (pp *Preprocessor) condEndif() {
	if len(pp.conds) > 0 {
		pp.conds = pp.conds[:len(pp.conds)-1]
	}
}

func (pp *Preprocessor) defineDirective(line []*Token) {
	if len(line) < 2 || line[1].Kind != Ident {
		return
	}
	nameTok := line[1]
	m := &Macro{Name: nameTok.Text, ObjectLike: true, NameTok: nameTok, LastTok: nameTok}
	rest := line[2:]

	if len(rest) > 0 && rest[0].IsPunct("(") && !rest[0].HasSpace {
		m.ObjectLike = false
		j := 1
		for j < len(rest) && !rest[j].IsPunct(")") {
			switch {
			case rest[j].Kind == Ident:
				m.Params = append(m.Params, rest[j].Text)
			case rest[j].IsPunct("..."):
				m.Params = append(m.Params, "__VA_ARGS__")
				m.Variadic = true
			}
			j++
		}
		if j < len(rest) {
			j++ // ')'
		}
		rest = rest[j:]
	}

	m.Body = rest
	if len(rest) > 0 {
		m.LastTok = rest[len(rest)-1]
	}
	pp.macros[m.Name] = m
	for _, o := range pp.observers {
		o.MacroDefined(m)
	}
}

func (pp *Preprocessor) includeDirective(hash *Token, line []*Token, dir string) {
	inc := &Include{HashTok: hash}
	var candidates []string

	switch {
	case len(line) >= 2 && line[1].Kind == String:
		name := line[1].Text
		if len(name) >= 2 {
			name = name[1 : len(name)-1]
		}
		inc.Spelling = "\"" + name + "\""
		candidates = append(candidates, filepath.Join(dir, name))
		for _, d := range pp.includeDirs {
			candidates = append(candidates, filepath.Join(d, name))
		}
	case len(line) >= 2 && line[1].IsPunct("<"):
		name := ""
		for _, t := range line[2:] {
			if t.IsPunct(">") {
				break
			}
			name += t.Text
		}
		inc.Spelling = "<" + name + ">"
		for _, d := range pp.includeDirs {
			candidates = append(candidates, filepath.Join(d, name))
		}
	default:
		return
	}

	var path string
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			path = c
			break
		}
	}

	if path != "" && pp.includeDepth < maxIncludeDepth {
		f, err := pp.sm.Open(path)
		if err == nil {
			inc.File = f
			for _, o := range pp.observers {
				o.IncludeDirective(inc)
			}
			pp.includeDepth++
			toks := lex(f, &pp.ids)
			pp.processTokens(toks, filepath.Dir(path))
			pp.includeDepth--
			return
		}
	}
	for _, o := range pp.observers {
		o.IncludeDirective(inc)
	}
}

func (pp *Preprocessor) inspected(name string) {
	for _, o := range pp.observers {
		o.MacroInspected(name)
	}
}
