package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexIndentation(t *testing.T) {
	src := "if x:\n    y = 1\n\n    # comment\nz = 2\n"
	toks, err := Lex(src)
	require.NoError(t, err)

	assert.Equal(t, []Kind{
		KEYWORD, NAME, OP, NEWLINE,
		INDENT, NAME, OP, INT, NEWLINE,
		DEDENT, NAME, OP, INT, NEWLINE,
		EOF,
	}, kinds(toks))
}

func TestLexClosesOpenBlocksAtEOF(t *testing.T) {
	toks, err := Lex("def f():\n    return 1")
	require.NoError(t, err)

	n := len(toks)
	assert.Equal(t, NEWLINE, toks[n-3].Kind)
	assert.Equal(t, DEDENT, toks[n-2].Kind)
	assert.Equal(t, EOF, toks[n-1].Kind)
}

func TestLexImplicitLineJoining(t *testing.T) {
	toks, err := Lex("x = [1,\n     2]\n")
	require.NoError(t, err)
	assert.Equal(t, []Kind{NAME, OP, OP, INT, OP, INT, OP, NEWLINE, EOF}, kinds(toks))
}

func TestLexBackslashContinuation(t *testing.T) {
	toks, err := Lex("x = 1 + \\\n    2\n")
	require.NoError(t, err)
	assert.Equal(t, []Kind{NAME, OP, INT, OP, INT, NEWLINE, EOF}, kinds(toks))
}

func TestLexNumbers(t *testing.T) {
	tests := []struct {
		src  string
		kind Kind
		want any
	}{
		{"42", INT, int64(42)},
		{"1_000", INT, int64(1000)},
		{"0x1F", INT, int64(31)},
		{"0o17", INT, int64(15)},
		{"0b101", INT, int64(5)},
		{"000", INT, int64(0)},
		{"3.5", FLOAT, 3.5},
		{".5", FLOAT, 0.5},
		{"1e3", FLOAT, 1000.0},
		{"2.", FLOAT, 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks, err := Lex(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, toks[0].Kind)
			assert.Equal(t, tt.want, toks[0].Value)
		})
	}
}

func TestLexStrings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"single", `'hi'`, "hi"},
		{"double", `"hi"`, "hi"},
		{"escapes", `"a\tb\n"`, "a\tb\n"},
		{"hex", `"\x41"`, "A"},
		{"unicode", `"\u00e9"`, "\u00e9"},
		{"raw", `r"a\n"`, `a\n`},
		{"triple", "'''a\nb'''", "a\nb"},
		{"unknown escape kept", `"\d"`, `\d`},
		{"u prefix", `u"x"`, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Lex(tt.src)
			require.NoError(t, err)
			require.Equal(t, STRING, toks[0].Kind)
			assert.Equal(t, tt.want, toks[0].Value)
		})
	}
}

func TestLexFString(t *testing.T) {
	toks, err := Lex(`f"x={x}"`)
	require.NoError(t, err)
	require.Equal(t, FSTRING, toks[0].Kind)
	assert.Equal(t, fstringBody{body: "x={x}"}, toks[0].Value)
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
		line int
	}{
		{"unclosed paren", "def f(:\n", "'(' was never closed", 1},
		{"unmatched close", "x = 1)\n", "unmatched ')'", 1},
		{"mismatched close", "x = (1]\n", "closing parenthesis ']' does not match opening parenthesis '('", 1},
		{"unterminated string", "x = 'abc\n", "unterminated string literal", 1},
		{"unterminated triple", "x = '''abc\n", "unterminated triple-quoted string literal", 1},
		{"bad dedent", "if x:\n    y\n  z\n", "unindent does not match any outer indentation level", 3},
		{"leading zero", "x = 01\n", "leading zeros in decimal integer literals are not permitted", 1},
		{"complex", "x = 1j\n", "complex numbers are not supported", 1},
		{"bytes", "x = b'a'\n", "bytes literals are not supported", 1},
		{"too large", "x = 99999999999999999999\n", "integer literal 99999999999999999999 is too large", 1},
		{"bad char", "x = $\n", "invalid character '$' (U+0024)", 1},
		{"bad decimal", "x = 1abc\n", "invalid decimal literal", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.src)
			require.Error(t, err)
			se, ok := AsError(err)
			require.True(t, ok, "expected *Error, got %T", err)
			assert.Equal(t, tt.msg, se.Msg)
			assert.Equal(t, tt.line, se.Line)
		})
	}
}

func TestLexCRLF(t *testing.T) {
	toks, err := Lex("a = 1\r\nb = 2\r\n")
	require.NoError(t, err)
	assert.Equal(t, 2, toks[4].Line)
}

func TestSnippet(t *testing.T) {
	src := "a = 1\nb = (\nc = 3"
	got := Snippet(src, 2, 5)
	assert.Equal(t, "   1 | a = 1\n   2 | b = (\n     |     ^\n   3 | c = 3\n", got)
}
