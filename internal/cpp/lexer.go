package cpp

import "github.com/macroaudit/macroaudit/internal/source"

// puncts are tried longest-first so maximal munch falls out of the order.
var puncts = []string{
	"<<=", ">>=", "...",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "##",
	"+", "-", "*", "/", "%", "&", "|", "^", "~", "!", "<", ">", "=",
	"(", ")", "[", "]", "{", "}", ",", ";", ":", "?", ".", "#",
}

type lexer struct {
	f     *source.File
	src   []byte
	pos   int
	bol   bool
	space bool
	ids   *int
}

// lex tokenizes one file into preprocessing tokens. Comments and line
// splices are consumed here; the preprocessor never sees them.
func lex(f *source.File, ids *int) []*Token {
	lx := &lexer{f: f, src: f.Contents, pos: 0, bol: true, ids: ids}
	var toks []*Token
	for {
		t := lx.next()
		toks = append(toks, t)
		if t.Kind == EOF {
			return toks
		}
	}
}

func (lx *lexer) make(kind Kind, start int) *Token {
	*lx.ids++
	t := &Token{
		Kind:     kind,
		Text:     string(lx.src[start:lx.pos]),
		File:     lx.f,
		Off:      start,
		Len:      lx.pos - start,
		ID:       *lx.ids,
		BOL:      lx.bol,
		HasSpace: lx.space,
	}
	lx.bol = false
	lx.space = false
	return t
}

func (lx *lexer) next() *Token {
	lx.skipSpace()
	if lx.pos >= len(lx.src) {
		*lx.ids++
		return &Token{Kind: EOF, File: lx.f, Off: len(lx.src), ID: *lx.ids, BOL: true}
	}

	start := lx.pos
	c := lx.src[lx.pos]

	switch {
	case isIdentStart(c):
		for lx.pos < len(lx.src) && isIdentCont(lx.src[lx.pos]) {
			lx.pos++
		}
		return lx.make(Ident, start)

	case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
		// pp-number: digits, identifier characters, '.' and exponent signs
		lx.pos++
		for lx.pos < len(lx.src) {
			b := lx.src[lx.pos]
			if (b == '+' || b == '-') && lx.pos > start {
				p := lx.src[lx.pos-1]
				if p == 'e' || p == 'E' || p == 'p' || p == 'P' {
					lx.pos++
					continue
				}
				break
			}
			if isIdentCont(b) || b == '.' {
				lx.pos++
				continue
			}
			break
		}
		return lx.make(Number, start)

	case c == '"':
		lx.scanQuoted('"')
		return lx.make(String, start)

	case c == '\'':
		lx.scanQuoted('\'')
		return lx.make(CharConst, start)
	}

	for _, p := range puncts {
		if hasPrefixAt(lx.src, lx.pos, p) {
			lx.pos += len(p)
			return lx.make(Punct, start)
		}
	}

	// Unknown byte: pass it through as a one-character punctuator.
	lx.pos++
	return lx.make(Punct, start)
}

func (lx *lexer) scanQuoted(q byte) {
	lx.pos++ // opening quote
	for lx.pos < len(lx.src) {
		b := lx.src[lx.pos]
		if b == '\\' && lx.pos+1 < len(lx.src) {
			lx.pos += 2
			continue
		}
		lx.pos++
		if b == q || b == '\n' {
			return
		}
	}
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.pos++
			lx.bol = true
			lx.space = false
		case c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f':
			lx.pos++
			lx.space = true
		case c == '\\' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '\n':
			lx.pos += 2 // line splice: the line logically continues
		case c == '\\' && lx.pos+2 < len(lx.src) && lx.src[lx.pos+1] == '\r' && lx.src[lx.pos+2] == '\n':
			lx.pos += 3
		case c == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
			lx.space = true
		case c == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '*':
			lx.pos += 2
			for lx.pos+1 < len(lx.src) && !(lx.src[lx.pos] == '*' && lx.src[lx.pos+1] == '/') {
				lx.pos++
			}
			lx.pos += 2
			if lx.pos > len(lx.src) {
				lx.pos = len(lx.src)
			}
			lx.space = true
		default:
			return
		}
	}
}

func hasPrefixAt(b []byte, i int, s string) bool {
	if i+len(s) > len(b) {
		return false
	}
	for j := 0; j < len(s); j++ {
		if b[i+j] != s[j] {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
