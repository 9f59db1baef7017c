package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) Stmt {
	t.Helper()
	f, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, f.Body, 1)
	return f.Body[0]
}

func parseExprStmt(t *testing.T, src string) Expr {
	t.Helper()
	s, ok := parseOne(t, src).(*ExprStmt)
	require.True(t, ok, "expected expression statement")
	return s.X
}

func TestParseAssignment(t *testing.T) {
	s := parseOne(t, "a = b = 1\n").(*Assign)
	require.Len(t, s.Targets, 2)
	assert.Equal(t, "a", s.Targets[0].(*Name).Id)
	assert.Equal(t, "b", s.Targets[1].(*Name).Id)
	assert.Equal(t, int64(1), s.Value.(*Constant).Value)
	assert.Equal(t, 1, s.Line)
}

func TestParseTupleAssignment(t *testing.T) {
	s := parseOne(t, "a, b = b, a\n").(*Assign)
	target := s.Targets[0].(*TupleExpr)
	assert.Len(t, target.Elts, 2)
	assert.Len(t, s.Value.(*TupleExpr).Elts, 2)
}

func TestParseAugAssign(t *testing.T) {
	s := parseOne(t, "total += x * 2\n").(*AugAssign)
	assert.Equal(t, "+=", s.Op)
	assert.Equal(t, "*", s.Value.(*BinOp).Op)
}

func TestParseAnnAssign(t *testing.T) {
	s := parseOne(t, "n: int = 3\n").(*AnnAssign)
	assert.Equal(t, "n", s.Target.(*Name).Id)
	assert.Equal(t, int64(3), s.Value.(*Constant).Value)
}

func TestParsePrecedence(t *testing.T) {
	x := parseExprStmt(t, "1 + 2 * 3 ** 2\n").(*BinOp)
	assert.Equal(t, "+", x.Op)
	mul := x.Y.(*BinOp)
	assert.Equal(t, "*", mul.Op)
	assert.Equal(t, "**", mul.Y.(*BinOp).Op)
}

func TestParsePowerBindsTighterThanUnaryMinus(t *testing.T) {
	x := parseExprStmt(t, "-2 ** 2\n").(*UnaryOp)
	assert.Equal(t, "-", x.Op)
	assert.Equal(t, "**", x.X.(*BinOp).Op)
}

func TestParsePowerRightAssociative(t *testing.T) {
	x := parseExprStmt(t, "2 ** 3 ** 2\n").(*BinOp)
	assert.Equal(t, int64(2), x.X.(*Constant).Value)
	assert.Equal(t, "**", x.Y.(*BinOp).Op)
}

func TestParseChainedComparison(t *testing.T) {
	x := parseExprStmt(t, "a < b <= c not in d is not e\n").(*Compare)
	assert.Equal(t, []string{"<", "<=", "not in", "is not"}, x.Ops)
	assert.Len(t, x.Comparators, 4)
}

func TestParseBoolOps(t *testing.T) {
	x := parseExprStmt(t, "a or b and not c\n").(*BoolOp)
	assert.Equal(t, "or", x.Op)
	and := x.Values[1].(*BoolOp)
	assert.Equal(t, "and", and.Op)
	assert.Equal(t, "not", and.Values[1].(*UnaryOp).Op)
}

func TestParseConditionalExpression(t *testing.T) {
	x := parseExprStmt(t, "a if c else b\n").(*IfExp)
	assert.Equal(t, "c", x.Test.(*Name).Id)
}

func TestParseIfElifElse(t *testing.T) {
	src := "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n"
	s := parseOne(t, src).(*If)
	require.Len(t, s.Else, 1)
	elif := s.Else[0].(*If)
	assert.True(t, elif.Elif)
	assert.Equal(t, 3, elif.Line)
	require.Len(t, elif.Else, 1)
	assert.Equal(t, 6, elif.Else[0].Position().Line)
}

func TestParseSingleLineSuite(t *testing.T) {
	s := parseOne(t, "while True: pass\n").(*While)
	require.Len(t, s.Body, 1)
	assert.IsType(t, &Pass{}, s.Body[0])
}

func TestParseSemicolons(t *testing.T) {
	f, err := Parse("a = 1; b = 2;\n")
	require.NoError(t, err)
	assert.Len(t, f.Body, 2)
}

func TestParseFor(t *testing.T) {
	s := parseOne(t, "for i, v in enumerate(xs):\n    pass\nelse:\n    pass\n").(*For)
	assert.Len(t, s.Target.(*TupleExpr).Elts, 2)
	assert.IsType(t, &Call{}, s.Iter)
	assert.Len(t, s.Else, 1)
}

func TestParseFuncDef(t *testing.T) {
	src := "def f(a, b: int = 2, *rest, key=None) -> int:\n    return a\n"
	s := parseOne(t, src).(*FuncDef)
	assert.Equal(t, "f", s.Name)
	require.Len(t, s.Params, 3)
	assert.Equal(t, "a", s.Params[0].Name)
	assert.NotNil(t, s.Params[1].Default)
	assert.Equal(t, "rest", s.Vararg)
	assert.True(t, s.Params[2].KwOnly)
	assert.Nil(t, s.Scope, "scope is filled in by the compiler")
}

func TestParseTry(t *testing.T) {
	src := "try:\n    x = 1\nexcept (ValueError, TypeError) as e:\n    pass\nexcept:\n    pass\nelse:\n    pass\nfinally:\n    pass\n"
	s := parseOne(t, src).(*Try)
	require.Len(t, s.Handlers, 2)
	assert.Equal(t, "e", s.Handlers[0].Name)
	assert.IsType(t, &TupleExpr{}, s.Handlers[0].Type)
	assert.Nil(t, s.Handlers[1].Type)
	assert.Len(t, s.Else, 1)
	assert.Len(t, s.Finally, 1)
}

func TestParseImports(t *testing.T) {
	f, err := Parse("import math as m, random\nfrom collections import Counter, deque as dq\nfrom os import *\n")
	require.NoError(t, err)
	require.Len(t, f.Body, 3)

	imp := f.Body[0].(*Import)
	assert.Equal(t, "m", imp.Names[0].Bound())
	assert.Equal(t, "random", imp.Names[1].Bound())

	from := f.Body[1].(*ImportFrom)
	assert.Equal(t, "collections", from.Module)
	assert.Equal(t, "dq", from.Names[1].Bound())

	assert.True(t, f.Body[2].(*ImportFrom).Star)
}

func TestParseCalls(t *testing.T) {
	c := parseExprStmt(t, "print(a, *rest, sep=', ', end='')\n").(*Call)
	require.Len(t, c.Args, 2)
	assert.IsType(t, &Starred{}, c.Args[1])
	require.Len(t, c.Keywords, 2)
	assert.Equal(t, "sep", c.Keywords[0].Name)
}

func TestParseGeneratorArgument(t *testing.T) {
	c := parseExprStmt(t, "sum(x * x for x in xs if x)\n").(*Call)
	g := c.Args[0].(*GeneratorExp)
	require.Len(t, g.Gens, 1)
	assert.Len(t, g.Gens[0].Ifs, 1)
}

func TestParseComprehensions(t *testing.T) {
	assert.IsType(t, &ListComp{}, parseExprStmt(t, "[x for x in y]\n"))
	assert.IsType(t, &SetComp{}, parseExprStmt(t, "{x for x in y}\n"))
	assert.IsType(t, &DictComp{}, parseExprStmt(t, "{k: v for k, v in y}\n"))
	assert.IsType(t, &GeneratorExp{}, parseExprStmt(t, "(x for x in y)\n"))

	nested := parseExprStmt(t, "[(i, j) for i in a for j in b if i != j]\n").(*ListComp)
	assert.Len(t, nested.Gens, 2)
}

func TestParseDisplays(t *testing.T) {
	assert.Len(t, parseExprStmt(t, "[1, 2, 3,]\n").(*ListExpr).Elts, 3)
	assert.Len(t, parseExprStmt(t, "(1,)\n").(*TupleExpr).Elts, 1)
	assert.Len(t, parseExprStmt(t, "()\n").(*TupleExpr).Elts, 0)
	assert.Len(t, parseExprStmt(t, "{1, 2}\n").(*SetExpr).Elts, 2)
	assert.Len(t, parseExprStmt(t, "{'a': 1, 'b': 2}\n").(*DictExpr).Keys, 2)
	assert.Len(t, parseExprStmt(t, "{}\n").(*DictExpr).Keys, 0)
	assert.IsType(t, &Name{}, parseExprStmt(t, "(x)\n"))
}

func TestParseSubscripts(t *testing.T) {
	s := parseExprStmt(t, "xs[1:-1:2]\n").(*Subscript)
	sl := s.Index.(*Slice)
	assert.NotNil(t, sl.Lo)
	assert.NotNil(t, sl.Hi)
	assert.NotNil(t, sl.Step)

	s = parseExprStmt(t, "xs[::-1]\n").(*Subscript)
	sl = s.Index.(*Slice)
	assert.Nil(t, sl.Lo)
	assert.Nil(t, sl.Hi)
	assert.NotNil(t, sl.Step)

	s = parseExprStmt(t, "grid[i, j]\n").(*Subscript)
	assert.Len(t, s.Index.(*TupleExpr).Elts, 2)
}

func TestParseLambda(t *testing.T) {
	l := parseExprStmt(t, "lambda x, y=1: x + y\n").(*Lambda)
	require.Len(t, l.Params, 2)
	assert.IsType(t, &BinOp{}, l.Body)
}

func TestParseStringConcatenation(t *testing.T) {
	c := parseExprStmt(t, "'a' \"b\"\n").(*Constant)
	assert.Equal(t, "ab", c.Value)
}

func TestParseFString(t *testing.T) {
	fs := parseExprStmt(t, "f'x={x!r:>{width}} {{literal}}'\n").(*FString)
	require.Len(t, fs.Parts, 3)
	assert.Equal(t, "x=", fs.Parts[0].Lit)

	field := fs.Parts[1]
	assert.Equal(t, "x", field.Value.(*Name).Id)
	assert.Equal(t, byte('r'), field.Conv)
	require.NotNil(t, field.Spec)
	require.Len(t, field.Spec.Parts, 2)
	assert.Equal(t, ">", field.Spec.Parts[0].Lit)
	assert.Equal(t, "width", field.Spec.Parts[1].Value.(*Name).Id)

	assert.Equal(t, " {literal}", fs.Parts[2].Lit)
}

func TestParseFStringDebugSpecifier(t *testing.T) {
	fs := parseExprStmt(t, "f'{n=}'\n").(*FString)
	require.Len(t, fs.Parts, 2)
	assert.Equal(t, "n=", fs.Parts[0].Lit)
	assert.Equal(t, byte('r'), fs.Parts[1].Conv)
}

func TestParseFStringWithAdjacentLiteral(t *testing.T) {
	fs := parseExprStmt(t, "'a' f'{b}' 'c'\n").(*FString)
	require.Len(t, fs.Parts, 3)
	assert.Equal(t, "a", fs.Parts[0].Lit)
	assert.Equal(t, "c", fs.Parts[2].Lit)
}

func TestParseRejectedConstructsStillParse(t *testing.T) {
	f, err := Parse("class A:\n    pass\nwith open('f') as fh:\n    pass\n")
	require.NoError(t, err)
	assert.IsType(t, &ClassDef{}, f.Body[0])
	assert.IsType(t, &With{}, f.Body[1])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
		line int
	}{
		{"unclosed def", "def f(:\n", "'(' was never closed", 1},
		{"bad param", "def f(:)\n    pass\n", "invalid syntax", 1},
		{"missing colon", "if x\n    pass\n", "expected ':'", 1},
		{"unexpected indent", "x = 1\n    y = 2\n", "unexpected indent", 2},
		{"missing block", "if x:\npass\n", "expected an indented block", 2},
		{"assign to call", "f() = 1\n", "cannot assign to function call", 1},
		{"assign to literal", "1 = x\n", "cannot assign to literal", 1},
		{"assign to None", "None = 1\n", "cannot assign to None", 1},
		{"decorator", "@dec\ndef f():\n    pass\n", "decorators are not supported", 1},
		{"kwargs param", "def f(**kw):\n    pass\n", "**kwargs parameters are not supported", 1},
		{"walrus", "if (n := 3):\n    pass\n", "assignment expressions are not supported", 1},
		{"default order", "def f(a=1, b):\n    pass\n", "non-default argument follows default argument", 1},
		{"try alone", "try:\n    pass\nx = 1\n", "expected 'except' or 'finally' block", 3},
		{"positional after keyword", "f(a=1, 2)\n", "positional argument follows keyword argument", 1},
		{"fstring empty", "f'{}'\n", "f-string: empty expression not allowed", 1},
		{"fstring single brace", "f'a}'\n", "f-string: single '}' is not allowed", 1},
		{"relative import", "from . import x\n", "relative imports are not supported", 1},
		{"trailing operator", "x = 1 +\n", "invalid syntax", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			se, ok := AsError(err)
			require.True(t, ok, "expected *Error, got %T", err)
			assert.Equal(t, tt.msg, se.Msg)
			assert.Equal(t, tt.line, se.Line)
		})
	}
}

func TestParseErrorString(t *testing.T) {
	_, err := Parse("def f(:\n")
	require.Error(t, err)
	assert.Equal(t, "'(' was never closed (line 1)", err.Error())
}
