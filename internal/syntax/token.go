package syntax

import "fmt"

// Kind is the lexical class of a token.
type Kind int

const (
	EOF Kind = iota
	NEWLINE
	INDENT
	DEDENT
	NAME
	KEYWORD
	INT
	FLOAT
	STRING
	FSTRING
	OP
)

var kindNames = [...]string{
	EOF:     "end of input",
	NEWLINE: "newline",
	INDENT:  "indent",
	DEDENT:  "dedent",
	NAME:    "name",
	KEYWORD: "keyword",
	INT:     "integer",
	FLOAT:   "float",
	STRING:  "string",
	FSTRING: "f-string",
	OP:      "operator",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a lexical token. Text is the raw source slice; Value carries the
// decoded literal (int64, float64, string) or, for FSTRING, an fstringBody.
type Token struct {
	Kind  Kind
	Text  string
	Value any
	Line  int
	Col   int
}

// fstringBody is the undecoded contents of an f-string literal.
type fstringBody struct {
	body string
	raw  bool
}

var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true,
	"in": true, "is": true, "lambda": true, "nonlocal": true, "not": true,
	"or": true, "pass": true, "raise": true, "return": true, "try": true,
	"while": true, "with": true, "yield": true,
}

// IsKeyword reports whether name is a reserved word of the dialect.
func IsKeyword(name string) bool { return keywords[name] }

// operators, longest first so the lexer can match greedily.
var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"->", "**", "//", "<<", ">>", "<=", ">=", "==", "!=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=", ":=",
	"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">",
	"(", ")", "[", "]", "{", "}", ",", ":", ".", ";", "=",
}
