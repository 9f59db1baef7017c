package syntax

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexer turns source text into a token stream with explicit NEWLINE,
// INDENT and DEDENT tokens.
type lexer struct {
	src  string
	pos  int
	line int
	col  int // 1-based column of pos

	indents     []int
	brackets    []Token // open brackets, innermost last
	atLineStart bool
	tokens      []Token
}

// Lex scans src into tokens. The stream always ends with NEWLINE (when the
// source has any tokens), the DEDENTs that close open blocks, and EOF.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1, col: 1, indents: []int{0}, atLineStart: true}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return errorf(line, col, format, args...)
}

func (l *lexer) peekByte(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

// advance consumes n bytes, keeping line and column current.
func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else if l.src[l.pos]&0xC0 != 0x80 {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) emit(kind Kind, text string, value any, line, col int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text, Value: value, Line: line, Col: col})
}

func (l *lexer) lastKind() Kind {
	if len(l.tokens) == 0 {
		return NEWLINE
	}
	return l.tokens[len(l.tokens)-1].Kind
}

func (l *lexer) run() error {
	for {
		if l.atLineStart && len(l.brackets) == 0 {
			blank, err := l.indentation()
			if err != nil {
				return err
			}
			if blank {
				continue
			}
		}
		if l.pos >= len(l.src) {
			break
		}

		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\f':
			l.advance(1)
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
				l.advance(1)
			}
		case c == '\\':
			line, col := l.line, l.col
			l.advance(1)
			switch {
			case l.peekByte(0) == '\n':
				l.advance(1)
			case l.peekByte(0) == '\r' && l.peekByte(1) == '\n':
				l.advance(2)
			case l.peekByte(0) == '\r':
				l.pos++
				l.line++
				l.col = 1
			default:
				return l.errorf(line, col, "unexpected character after line continuation character")
			}
		case c == '\n' || c == '\r':
			line, col := l.line, l.col
			l.newline()
			if len(l.brackets) == 0 {
				if k := l.lastKind(); k != NEWLINE && k != INDENT && k != DEDENT {
					l.emit(NEWLINE, "\n", nil, line, col)
				}
				l.atLineStart = true
			}
		case c >= '0' && c <= '9' || c == '.' && isDigit(l.peekByte(1)):
			if err := l.number(); err != nil {
				return err
			}
		case c == '"' || c == '\'':
			if err := l.str("", l.line, l.col); err != nil {
				return err
			}
		case isIdentStart(l.src[l.pos:]):
			if err := l.name(); err != nil {
				return err
			}
		default:
			if err := l.operator(); err != nil {
				return err
			}
		}
	}

	if len(l.brackets) > 0 {
		open := l.brackets[len(l.brackets)-1]
		return l.errorf(open.Line, open.Col, "'%s' was never closed", open.Text)
	}
	if k := l.lastKind(); k != NEWLINE && k != INDENT && k != DEDENT {
		l.emit(NEWLINE, "", nil, l.line, l.col)
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(DEDENT, "", nil, l.line, l.col)
	}
	l.emit(EOF, "", nil, l.line, l.col)
	return nil
}

// newline consumes one "\n", "\r\n" or "\r".
func (l *lexer) newline() {
	if l.src[l.pos] == '\r' {
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '\n' {
			l.pos++
		}
		l.line++
		l.col = 1
		return
	}
	l.advance(1)
}

// indentation measures the leading whitespace of a logical line and emits
// INDENT/DEDENT tokens. Blank and comment-only lines are consumed whole and
// reported with blank=true.
func (l *lexer) indentation() (blank bool, err error) {
	width := 0
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ':
			width++
		case '\t':
			width = (width/8 + 1) * 8
		case '\f':
			width = 0
		default:
			goto measured
		}
		l.advance(1)
	}
measured:
	if l.pos >= len(l.src) {
		l.atLineStart = false
		return false, nil
	}
	switch l.src[l.pos] {
	case '#':
		for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
			l.advance(1)
		}
		if l.pos < len(l.src) {
			l.newline()
		}
		return true, nil
	case '\n', '\r':
		l.newline()
		return true, nil
	}

	l.atLineStart = false
	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(INDENT, "", nil, l.line, 1)
	case width < top:
		for width < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(DEDENT, "", nil, l.line, 1)
		}
		if width != l.indents[len(l.indents)-1] {
			return false, l.errorf(l.line, l.col, "unindent does not match any outer indentation level")
		}
	}
	return false, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *lexer) name() error {
	line, col := l.line, l.col
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.advance(size)
	}
	word := l.src[start:l.pos]

	if c := l.peekByte(0); (c == '"' || c == '\'') && isStringPrefix(word) {
		return l.str(strings.ToLower(word), line, col)
	}
	if keywords[word] {
		l.emit(KEYWORD, word, nil, line, col)
	} else {
		l.emit(NAME, word, nil, line, col)
	}
	return nil
}

func isStringPrefix(word string) bool {
	switch strings.ToLower(word) {
	case "r", "u", "f", "b", "rf", "fr", "br", "rb":
		return true
	}
	return false
}

func (l *lexer) number() error {
	line, col := l.line, l.col
	start := l.pos
	isFloat := false

	if l.src[l.pos] == '0' && strings.ContainsRune("xXoObB", rune(l.peekByte(1))) {
		l.advance(2)
		for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.advance(1)
		}
	} else {
		l.digits()
		if l.peekByte(0) == '.' {
			isFloat = true
			l.advance(1)
			l.digits()
		}
		if c := l.peekByte(0); c == 'e' || c == 'E' {
			next := l.peekByte(1)
			if isDigit(next) || (next == '+' || next == '-') && isDigit(l.peekByte(2)) {
				isFloat = true
				l.advance(2)
				l.digits()
			}
		}
	}
	text := l.src[start:l.pos]

	if c := l.peekByte(0); c == 'j' || c == 'J' {
		return l.errorf(line, col, "complex numbers are not supported")
	}
	if l.pos < len(l.src) && isIdentStart(l.src[l.pos:]) {
		return l.errorf(line, col, "invalid decimal literal")
	}

	clean := strings.ReplaceAll(text, "_", "")
	if isFloat {
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return l.errorf(line, col, "invalid float literal %q", text)
		}
		l.emit(FLOAT, text, f, line, col)
		return nil
	}
	if len(clean) > 1 && clean[0] == '0' && isDigit(clean[1]) && strings.Trim(clean, "0") != "" {
		return l.errorf(line, col, "leading zeros in decimal integer literals are not permitted")
	}
	if strings.Trim(clean, "0") == "" {
		clean = "0"
	}
	n, err := strconv.ParseInt(clean, 0, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return l.errorf(line, col, "integer literal %s is too large", text)
		}
		return l.errorf(line, col, "invalid integer literal %q", text)
	}
	l.emit(INT, text, n, line, col)
	return nil
}

func (l *lexer) digits() {
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.advance(1)
	}
}

func isHexDigit(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// str scans a string literal whose prefix (lower-cased) has already been
// consumed. The opening quote is at l.pos.
func (l *lexer) str(prefix string, line, col int) error {
	if strings.Contains(prefix, "b") {
		return l.errorf(line, col, "bytes literals are not supported")
	}
	raw := strings.Contains(prefix, "r")
	fstr := strings.Contains(prefix, "f")

	quote := l.src[l.pos]
	triple := l.peekByte(1) == quote && l.peekByte(2) == quote
	if triple {
		l.advance(3)
	} else {
		l.advance(1)
	}

	bodyStart := l.pos
	for {
		if l.pos >= len(l.src) {
			if triple {
				return l.errorf(line, col, "unterminated triple-quoted string literal")
			}
			return l.errorf(line, col, "unterminated string literal")
		}
		c := l.src[l.pos]
		if c == '\\' {
			l.advance(2)
			continue
		}
		if !triple && (c == '\n' || c == '\r') {
			return l.errorf(line, col, "unterminated string literal")
		}
		if c == quote && (!triple || l.peekByte(1) == quote && l.peekByte(2) == quote) {
			break
		}
		if c == '\r' {
			l.newline()
			continue
		}
		l.advance(1)
	}
	body := l.src[bodyStart:l.pos]
	if triple {
		l.advance(3)
	} else {
		l.advance(1)
	}
	text := l.src[bodyStart-len(prefix)-quoteLen(triple) : l.pos]

	if fstr {
		l.emit(FSTRING, text, fstringBody{body: body, raw: raw}, line, col)
		return nil
	}
	if raw {
		l.emit(STRING, text, body, line, col)
		return nil
	}
	decoded, err := unescape(body)
	if err != nil {
		return l.errorf(line, col, "%s", err.Error())
	}
	l.emit(STRING, text, decoded, line, col)
	return nil
}

func quoteLen(triple bool) int {
	if triple {
		return 3
	}
	return 1
}

func (l *lexer) operator() error {
	line, col := l.line, l.col
	rest := l.src[l.pos:]
	for _, op := range operators {
		if !strings.HasPrefix(rest, op) {
			continue
		}
		switch op {
		case "(", "[", "{":
			l.brackets = append(l.brackets, Token{Text: op, Line: line, Col: col})
		case ")", "]", "}":
			if len(l.brackets) == 0 {
				return l.errorf(line, col, "unmatched '%s'", op)
			}
			open := l.brackets[len(l.brackets)-1]
			if closerFor(open.Text) != op {
				return l.errorf(line, col, "closing parenthesis '%s' does not match opening parenthesis '%s'", op, open.Text)
			}
			l.brackets = l.brackets[:len(l.brackets)-1]
		}
		l.advance(len(op))
		l.emit(OP, op, nil, line, col)
		return nil
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return l.errorf(line, col, "invalid character '%c' (U+%04X)", r, r)
}

func closerFor(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	default:
		return "}"
	}
}

// unescape decodes backslash escapes of a non-raw string body.
func unescape(body string) (string, error) {
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := body[i]; e {
		case '\n':
		case '\r':
			if i+1 < len(body) && body[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(body) && j < i+3 && body[j] >= '0' && body[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(body[i:j], 8, 32)
			b.WriteRune(rune(n))
			i = j - 1
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[e]
			if i+1+width > len(body) {
				return "", fmt.Errorf("truncated \\%c escape", e)
			}
			n, err := strconv.ParseUint(body[i+1:i+1+width], 16, 32)
			if err != nil {
				return "", fmt.Errorf("truncated \\%c escape", e)
			}
			if n > unicode.MaxRune {
				return "", fmt.Errorf("illegal Unicode character")
			}
			b.WriteRune(rune(n))
			i += width
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String(), nil
}
