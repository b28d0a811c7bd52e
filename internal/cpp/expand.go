package cpp

import "strings"

// tryExpand attempts to expand the macro named by toks[i]. It returns the
// number of input tokens consumed and the replacement sequence. A
// function-like macro name with no following '(' is not an invocation.
func (pp *Preprocessor) tryExpand(toks []*Token, i int) (consumed int, result []*Token, ok bool) {
	t := toks[i]
	m := pp.macros[t.Text]
	if m == nil || t.Hide.contains(m.Name) {
		return 0, nil, false
	}

	if m.ObjectLike {
		e := &Expansion{Macro: m, NameTok: t, SpellBegin: t, SpellEnd: t}
		return 1, pp.expandMacro(m, e, nil), true
	}

	j := i + 1
	if j >= len(toks) || !toks[j].IsPunct("(") {
		return 0, nil, false
	}
	args, next, closeTok, argsOK := pp.readArgs(toks, j, m)
	if !argsOK {
		return 0, nil, false
	}
	e := &Expansion{Macro: m, NameTok: t, SpellBegin: t, SpellEnd: closeTok}
	return next - i, pp.expandMacro(m, e, args), true
}

// readArgs reads a parenthesized argument list starting at the '(' token.
// Arguments split on top-level commas; a variadic macro's trailing
// parameter swallows the remaining commas.
func (pp *Preprocessor) readArgs(toks []*Token, open int, m *Macro) (args [][]*Token, next int, closeTok *Token, ok bool) {
	depth := 0
	var cur []*Token
	fixed := len(m.Params)
	if m.Variadic {
		fixed--
	}
	i := open
	for ; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == EOF {
			return nil, 0, nil, false
		}
		pp.touch(t)
		switch {
		case t.IsPunct("(") || t.IsPunct("[") || t.IsPunct("{"):
			if depth > 0 {
				cur = append(cur, t)
			}
			depth++
		case t.IsPunct(")") || t.IsPunct("]") || t.IsPunct("}"):
			depth--
			if depth == 0 {
				if len(cur) > 0 || len(args) > 0 || len(m.Params) > 0 {
					args = append(args, cur)
				}
				args = normalizeArgs(args, m)
				return args, i + 1, t, true
			}
			cur = append(cur, t)
		case t.IsPunct(",") && depth == 1 && (!m.Variadic || len(args) < fixed):
			args = append(args, cur)
			cur = nil
		default:
			cur = append(cur, t)
		}
	}
	return nil, 0, nil, false
}

// normalizeArgs pads missing arguments so every parameter has one, which
// keeps substitution total even for malformed invocations.
func normalizeArgs(args [][]*Token, m *Macro) [][]*Token {
	if len(m.Params) == 0 {
		return nil
	}
	for len(args) < len(m.Params) {
		args = append(args, nil)
	}
	return args[:len(m.Params)]
}

// expandMacro performs one full invocation: pre-expand arguments, announce
// the expansion, substitute the body, rescan, and announce completion.
func (pp *Preprocessor) expandMacro(m *Macro, e *Expansion, rawArgs [][]*Token) []*Token {
	e.InMacroArg = pp.inMacroArg

	e.Args = make([]*MacroArg, len(rawArgs))
	for k, raw := range rawArgs {
		a := &MacroArg{Written: raw}
		save := pp.inMacroArg
		pp.inMacroArg = true
		a.Expanded = pp.expandList(raw)
		pp.inMacroArg = save
		e.Args[k] = a
	}

	pp.begin(e)
	body := pp.subst(m, e)
	result := pp.expandList(body)
	e.Emitted = result
	pp.end(e)
	return result
}

// expandList rescans a token list, expanding every invocation it contains.
func (pp *Preprocessor) expandList(toks []*Token) []*Token {
	var out []*Token
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Kind == Ident {
			if consumed, expanded, ok := pp.tryExpand(toks, i); ok {
				out = append(out, expanded...)
				i += consumed
				continue
			}
		}
		out = append(out, t)
		i++
	}
	return out
}

// subst replaces parameters in the macro body, handling stringification and
// token pasting. Every returned token is a fresh copy.
func (pp *Preprocessor) subst(m *Macro, e *Expansion) []*Token {
	hs := e.NameTok.Hide
	if !m.ObjectLike && e.SpellEnd != nil {
		hs = hs.intersect(e.SpellEnd.Hide)
	}
	hs = hs.with(m.Name)

	var out []*Token
	body := m.Body
	n := len(body)
	for i := 0; i < n; i++ {
		t := body[i]

		// "#" parameter
		if t.IsPunct("#") && !m.ObjectLike && i+1 < n {
			if k := m.paramIndex(body[i+1]); k >= 0 {
				out = append(out, pp.stringize(t, e.arg(k).Written))
				i++
				continue
			}
		}

		// X ## Y (## chains fold left)
		if i+1 < n && body[i+1].IsPunct("##") && i+2 < n {
			ls := pp.pasteOperand(m, e, t)
			j := i
			for j+1 < n && body[j+1].IsPunct("##") && j+2 < n {
				rs := pp.pasteOperand(m, e, body[j+2])
				ls = pp.pasteJoin(ls, rs)
				j += 2
			}
			out = append(out, ls...)
			i = j
			continue
		}

		// plain parameter: substitute the pre-expanded argument and record
		// the occurrence for alignment
		if k := m.paramIndex(t); k >= 0 {
			occ := pp.copyList(e.arg(k).Expanded)
			e.arg(k).Occurrences = append(e.arg(k).Occurrences, occ)
			out = append(out, occ...)
			continue
		}

		out = append(out, pp.copyTok(t))
	}

	for _, t := range out {
		t.Hide = t.Hide.union(hs)
	}
	return out
}

func (m *Macro) paramIndex(t *Token) int {
	if t == nil || t.Kind != Ident {
		return -1
	}
	for i, p := range m.Params {
		if p == t.Text {
			return i
		}
	}
	return -1
}

func (e *Expansion) arg(k int) *MacroArg {
	if k < len(e.Args) {
		return e.Args[k]
	}
	// malformed invocation: substitute an empty argument
	a := &MacroArg{}
	for len(e.Args) <= k {
		e.Args = append(e.Args, a)
	}
	return e.Args[k]
}

// pasteOperand yields the raw (unexpanded) substitution of a ## operand.
func (pp *Preprocessor) pasteOperand(m *Macro, e *Expansion, t *Token) []*Token {
	if k := m.paramIndex(t); k >= 0 {
		return pp.copyList(e.arg(k).Written)
	}
	return []*Token{pp.copyTok(t)}
}

func (pp *Preprocessor) pasteJoin(ls, rs []*Token) []*Token {
	if len(ls) == 0 {
		return rs
	}
	if len(rs) == 0 {
		return ls
	}
	merged := pp.paste(ls[len(ls)-1], rs[0])
	out := append([]*Token{}, ls[:len(ls)-1]...)
	out = append(out, merged)
	return append(out, rs[1:]...)
}

// paste joins two tokens into one, reclassifying the result.
func (pp *Preprocessor) paste(l, r *Token) *Token {
	pp.ids++
	text := l.Text + r.Text
	kind := Punct
	switch {
	case len(text) > 0 && isIdentStart(text[0]) && allIdentChars(text):
		kind = Ident
	case len(text) > 0 && isDigit(text[0]):
		kind = Number
	}
	return &Token{
		Kind:     kind,
		Text:     text,
		Off:      -1,
		ID:       pp.ids,
		Seq:      l.Seq,
		HasSpace: l.HasSpace,
		Hide:     l.Hide.intersect(r.Hide),
		Origin:   l,
	}
}

// stringize renders an argument's written tokens as a string literal.
func (pp *Preprocessor) stringize(hash *Token, arg []*Token) *Token {
	var sb strings.Builder
	sb.WriteByte('"')
	for i, t := range arg {
		if i > 0 && t.HasSpace {
			sb.WriteByte(' ')
		}
		for j := 0; j < len(t.Text); j++ {
			c := t.Text[j]
			if c == '"' || c == '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	pp.ids++
	return &Token{
		Kind:     String,
		Text:     sb.String(),
		Off:      -1,
		ID:       pp.ids,
		Seq:      hash.Seq,
		HasSpace: hash.HasSpace,
		Origin:   hash,
	}
}

func (pp *Preprocessor) copyTok(t *Token) *Token {
	pp.ids++
	c := *t
	c.ID = pp.ids
	c.Origin = t
	return &c
}

func (pp *Preprocessor) copyList(toks []*Token) []*Token {
	out := make([]*Token, len(toks))
	for i, t := range toks {
		out[i] = pp.copyTok(t)
	}
	return out
}

func (pp *Preprocessor) begin(e *Expansion) {
	if pp.quiet {
		return
	}
	for _, o := range pp.observers {
		o.ExpansionBegin(e)
	}
}

func (pp *Preprocessor) end(e *Expansion) {
	if pp.quiet {
		return
	}
	for _, o := range pp.observers {
		o.ExpansionEnd(e)
	}
}

func allIdentChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isIdentCont(s[i]) {
			return false
		}
	}
	return true
}
