package syntax

import (
	"strings"
)

// Parse lexes and parses src into a syntax tree. Errors are *Error values
// carrying the position of the offending token.
func Parse(src string) (*File, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.file()
}

// ParseExpr parses a single expression, as used inside f-string fields.
func ParseExpr(src string) (Expr, error) {
	toks, err := Lex("(" + src + "\n)")
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	x, err := p.test()
	if err != nil {
		return nil, err
	}
	if p.tok().Kind != NEWLINE {
		return nil, p.unexpected(p.tok())
	}
	return x, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) tok() Token { return p.toks[p.pos] }

func (p *parser) peek(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.tok()
	return t.Kind == OP && t.Text == op
}

func (p *parser) isKw(kw string) bool {
	t := p.tok()
	return t.Kind == KEYWORD && t.Text == kw
}

func (p *parser) acceptOp(op string) bool {
	if p.isOp(op) {
		p.next()
		return true
	}
	return false
}

func (p *parser) acceptKw(kw string) bool {
	if p.isKw(kw) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectOp(op string) error {
	if p.acceptOp(op) {
		return nil
	}
	t := p.tok()
	if t.Kind == NEWLINE || t.Kind == EOF {
		return errorf(t.Line, t.Col, "expected '%s'", op)
	}
	return errorf(t.Line, t.Col, "invalid syntax")
}

func (p *parser) expectKw(kw string) error {
	if p.acceptKw(kw) {
		return nil
	}
	t := p.tok()
	return errorf(t.Line, t.Col, "expected '%s'", kw)
}

func (p *parser) expectName() (Token, error) {
	t := p.tok()
	if t.Kind != NAME {
		if t.Kind == KEYWORD {
			return t, errorf(t.Line, t.Col, "invalid syntax: '%s' is a reserved word", t.Text)
		}
		return t, p.unexpected(t)
	}
	return p.next(), nil
}

func (p *parser) unexpected(t Token) error {
	switch t.Kind {
	case INDENT:
		return errorf(t.Line, t.Col, "unexpected indent")
	case DEDENT:
		return errorf(t.Line, t.Col, "unexpected unindent")
	case EOF:
		return errorf(t.Line, t.Col, "unexpected end of input")
	default:
		return errorf(t.Line, t.Col, "invalid syntax")
	}
}

func posOf(t Token) Pos { return Pos{Line: t.Line, Col: t.Col} }

func (p *parser) file() (*File, error) {
	f := &File{}
	for p.tok().Kind != EOF {
		if p.tok().Kind == NEWLINE {
			p.next()
			continue
		}
		stmts, err := p.statement()
		if err != nil {
			return nil, err
		}
		f.Body = append(f.Body, stmts...)
	}
	return f, nil
}

// ---- statements ----

func (p *parser) statement() ([]Stmt, error) {
	t := p.tok()
	switch {
	case t.Kind == INDENT:
		return nil, errorf(t.Line, t.Col, "unexpected indent")
	case t.Kind == OP && t.Text == "@":
		return nil, errorf(t.Line, t.Col, "decorators are not supported")
	case t.Kind == KEYWORD:
		var s Stmt
		var err error
		switch t.Text {
		case "if":
			s, err = p.ifStmt()
		case "while":
			s, err = p.whileStmt()
		case "for":
			s, err = p.forStmt()
		case "try":
			s, err = p.tryStmt()
		case "def":
			s, err = p.funcDef()
		case "class":
			s, err = p.classDef()
		case "with":
			s, err = p.withStmt()
		case "async":
			return nil, errorf(t.Line, t.Col, "'async' is not supported")
		default:
			return p.simpleStatements()
		}
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	}
	return p.simpleStatements()
}

func (p *parser) simpleStatements() ([]Stmt, error) {
	var out []Stmt
	for {
		s, err := p.smallStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if !p.acceptOp(";") || p.tok().Kind == NEWLINE {
			break
		}
	}
	if p.tok().Kind != NEWLINE {
		return nil, p.unexpected(p.tok())
	}
	p.next()
	return out, nil
}

func (p *parser) atStatementEnd() bool {
	t := p.tok()
	return t.Kind == NEWLINE || t.Kind == EOF || t.Kind == OP && t.Text == ";"
}

func (p *parser) smallStatement() (Stmt, error) {
	t := p.tok()
	if t.Kind == KEYWORD {
		switch t.Text {
		case "pass":
			p.next()
			return &Pass{posOf(t)}, nil
		case "break":
			p.next()
			return &Break{posOf(t)}, nil
		case "continue":
			p.next()
			return &Continue{posOf(t)}, nil
		case "return":
			p.next()
			s := &Return{Pos: posOf(t)}
			if !p.atStatementEnd() {
				v, err := p.testListStar()
				if err != nil {
					return nil, err
				}
				s.Value = v
			}
			return s, nil
		case "raise":
			p.next()
			s := &Raise{Pos: posOf(t)}
			if !p.atStatementEnd() {
				exc, err := p.test()
				if err != nil {
					return nil, err
				}
				s.Exc = exc
				if p.acceptKw("from") {
					cause, err := p.test()
					if err != nil {
						return nil, err
					}
					s.Cause = cause
				}
			}
			return s, nil
		case "global", "nonlocal":
			p.next()
			var names []string
			for {
				n, err := p.expectName()
				if err != nil {
					return nil, err
				}
				names = append(names, n.Text)
				if !p.acceptOp(",") {
					break
				}
			}
			if t.Text == "global" {
				return &Global{Pos: posOf(t), Names: names}, nil
			}
			return &Nonlocal{Pos: posOf(t), Names: names}, nil
		case "del":
			p.next()
			targets, err := p.exprList()
			if err != nil {
				return nil, err
			}
			var list []Expr
			if tup, ok := targets.(*TupleExpr); ok {
				list = tup.Elts
			} else {
				list = []Expr{targets}
			}
			for _, x := range list {
				if err := checkTarget(x, "delete"); err != nil {
					return nil, err
				}
			}
			return &Delete{Pos: posOf(t), Targets: list}, nil
		case "assert":
			p.next()
			test, err := p.test()
			if err != nil {
				return nil, err
			}
			s := &Assert{Pos: posOf(t), Test: test}
			if p.acceptOp(",") {
				msg, err := p.test()
				if err != nil {
					return nil, err
				}
				s.Msg = msg
			}
			return s, nil
		case "import":
			return p.importStmt()
		case "from":
			return p.fromImport()
		}
	}
	return p.exprStatement()
}

var augOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true,
	"**=": true, "<<=": true, ">>=": true, "&=": true, "|=": true, "^=": true,
	"@=": true,
}

func (p *parser) exprStatement() (Stmt, error) {
	start := p.tok()
	first, err := p.testListStarOrYield()
	if err != nil {
		return nil, err
	}

	t := p.tok()
	switch {
	case t.Kind == OP && t.Text == ":":
		p.next()
		if err := checkTarget(first, "annotate"); err != nil {
			return nil, err
		}
		ann, err := p.test()
		if err != nil {
			return nil, err
		}
		s := &AnnAssign{Pos: posOf(start), Target: first, Annotation: ann}
		if p.acceptOp("=") {
			v, err := p.testListStarOrYield()
			if err != nil {
				return nil, err
			}
			s.Value = v
		}
		return s, nil

	case t.Kind == OP && augOps[t.Text]:
		p.next()
		if err := checkTarget(first, "assign"); err != nil {
			return nil, err
		}
		if _, ok := first.(*Name); !ok {
			if _, ok := first.(*Subscript); !ok {
				if _, ok := first.(*Attribute); !ok {
					return nil, errorf(t.Line, t.Col, "illegal expression for augmented assignment")
				}
			}
		}
		v, err := p.testListStarOrYield()
		if err != nil {
			return nil, err
		}
		return &AugAssign{Pos: posOf(start), Target: first, Op: t.Text, Value: v}, nil

	case t.Kind == OP && t.Text == "=":
		exprs := []Expr{first}
		for p.acceptOp("=") {
			x, err := p.testListStarOrYield()
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, x)
		}
		targets := exprs[:len(exprs)-1]
		for _, target := range targets {
			if err := checkTarget(target, "assign"); err != nil {
				return nil, err
			}
		}
		return &Assign{Pos: posOf(start), Targets: targets, Value: exprs[len(exprs)-1]}, nil

	case t.Kind == OP && t.Text == ":=":
		return nil, errorf(t.Line, t.Col, "assignment expressions are not supported")
	}
	return &ExprStmt{Pos: posOf(start), X: first}, nil
}

// checkTarget reports whether x may appear on the left of an assignment,
// in a for target, or after del.
func checkTarget(x Expr, verb string) error {
	switch t := x.(type) {
	case *Name, *Attribute, *Subscript:
		return nil
	case *TupleExpr:
		for _, e := range t.Elts {
			if err := checkTarget(e, verb); err != nil {
				return err
			}
		}
		return nil
	case *ListExpr:
		for _, e := range t.Elts {
			if err := checkTarget(e, verb); err != nil {
				return err
			}
		}
		return nil
	case *Starred:
		return errorf(t.Line, t.Col, "starred assignment targets are not supported")
	case *Call:
		return errorf(t.Line, t.Col, "cannot %s to function call", verb)
	case *Constant:
		if t.Value == nil || t.Value == true || t.Value == false {
			return errorf(t.Line, t.Col, "cannot %s to %s", verb, constantName(t.Value))
		}
		return errorf(t.Line, t.Col, "cannot %s to literal", verb)
	default:
		pos := x.Position()
		return errorf(pos.Line, pos.Col, "cannot %s to expression", verb)
	}
}

func constantName(v any) string {
	switch v {
	case nil:
		return "None"
	case true:
		return "True"
	default:
		return "False"
	}
}

func (p *parser) dottedName() (string, Token, error) {
	first, err := p.expectName()
	if err != nil {
		return "", first, err
	}
	name := first.Text
	for p.acceptOp(".") {
		n, err := p.expectName()
		if err != nil {
			return "", first, err
		}
		name += "." + n.Text
	}
	return name, first, nil
}

func (p *parser) importStmt() (Stmt, error) {
	t := p.next()
	s := &Import{Pos: posOf(t)}
	for {
		name, nt, err := p.dottedName()
		if err != nil {
			return nil, err
		}
		alias := &Alias{Pos: posOf(nt), Name: name}
		if p.acceptKw("as") {
			as, err := p.expectName()
			if err != nil {
				return nil, err
			}
			alias.AsName = as.Text
		}
		s.Names = append(s.Names, alias)
		if !p.acceptOp(",") {
			break
		}
	}
	return s, nil
}

func (p *parser) fromImport() (Stmt, error) {
	t := p.next()
	if p.isOp(".") || p.isOp("...") {
		d := p.tok()
		return nil, errorf(d.Line, d.Col, "relative imports are not supported")
	}
	module, _, err := p.dottedName()
	if err != nil {
		return nil, err
	}
	if err := p.expectKw("import"); err != nil {
		return nil, err
	}
	s := &ImportFrom{Pos: posOf(t), Module: module}
	if p.acceptOp("*") {
		s.Star = true
		return s, nil
	}
	paren := p.acceptOp("(")
	for {
		n, err := p.expectName()
		if err != nil {
			return nil, err
		}
		alias := &Alias{Pos: posOf(n), Name: n.Text}
		if p.acceptKw("as") {
			as, err := p.expectName()
			if err != nil {
				return nil, err
			}
			alias.AsName = as.Text
		}
		s.Names = append(s.Names, alias)
		if !p.acceptOp(",") {
			break
		}
		if paren && p.isOp(")") {
			break
		}
	}
	if paren {
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// block parses ":" followed by either a same-line simple statement list or
// an indented suite.
func (p *parser) block() ([]Stmt, error) {
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	if p.tok().Kind != NEWLINE {
		return p.simpleStatements()
	}
	p.next()
	if p.tok().Kind != INDENT {
		t := p.tok()
		return nil, errorf(t.Line, t.Col, "expected an indented block")
	}
	p.next()
	var body []Stmt
	for p.tok().Kind != DEDENT && p.tok().Kind != EOF {
		if p.tok().Kind == NEWLINE {
			p.next()
			continue
		}
		stmts, err := p.statement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
	p.next()
	return body, nil
}

func (p *parser) ifStmt() (Stmt, error) {
	t := p.next()
	test, err := p.test()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	s := &If{Pos: posOf(t), Test: test, Body: body, Elif: t.Text == "elif"}
	switch {
	case p.isKw("elif"):
		elif, err := p.ifStmt()
		if err != nil {
			return nil, err
		}
		s.Else = []Stmt{elif}
	case p.acceptKw("else"):
		if s.Else, err = p.block(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) whileStmt() (Stmt, error) {
	t := p.next()
	test, err := p.test()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	s := &While{Pos: posOf(t), Test: test, Body: body}
	if p.acceptKw("else") {
		if s.Else, err = p.block(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) forStmt() (Stmt, error) {
	t := p.next()
	target, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if err := checkTarget(target, "assign"); err != nil {
		return nil, err
	}
	if err := p.expectKw("in"); err != nil {
		return nil, err
	}
	iter, err := p.testListStar()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	s := &For{Pos: posOf(t), Target: target, Iter: iter, Body: body}
	if p.acceptKw("else") {
		if s.Else, err = p.block(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) tryStmt() (Stmt, error) {
	t := p.next()
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	s := &Try{Pos: posOf(t), Body: body}
	for p.isKw("except") {
		et := p.next()
		h := &Handler{Pos: posOf(et)}
		if !p.isOp(":") {
			if h.Type, err = p.test(); err != nil {
				return nil, err
			}
			if p.acceptKw("as") {
				n, err := p.expectName()
				if err != nil {
					return nil, err
				}
				h.Name = n.Text
			} else if p.isOp(",") {
				c := p.tok()
				return nil, errorf(c.Line, c.Col, "multiple exception types must be parenthesized")
			}
		}
		if h.Body, err = p.block(); err != nil {
			return nil, err
		}
		s.Handlers = append(s.Handlers, h)
	}
	if len(s.Handlers) > 0 && p.acceptKw("else") {
		if s.Else, err = p.block(); err != nil {
			return nil, err
		}
	}
	if p.acceptKw("finally") {
		if s.Finally, err = p.block(); err != nil {
			return nil, err
		}
	}
	if len(s.Handlers) == 0 && s.Finally == nil {
		c := p.tok()
		return nil, errorf(c.Line, c.Col, "expected 'except' or 'finally' block")
	}
	return s, nil
}

func (p *parser) funcDef() (Stmt, error) {
	t := p.next()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	params, vararg, err := p.params(")", true)
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	if p.acceptOp("->") {
		if _, err := p.test(); err != nil {
			return nil, err
		}
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &FuncDef{Pos: posOf(t), Name: name.Text, Params: params, Vararg: vararg, Body: body}, nil
}

// params parses a parameter list up to (not including) closer.
func (p *parser) params(closer string, annotations bool) ([]*Param, string, error) {
	var params []*Param
	vararg := ""
	kwOnly := false
	seenDefault := false
	for !p.isOp(closer) {
		t := p.tok()
		switch {
		case t.Kind == OP && t.Text == "**":
			return nil, "", errorf(t.Line, t.Col, "**kwargs parameters are not supported")
		case t.Kind == OP && t.Text == "*":
			p.next()
			if kwOnly {
				return nil, "", errorf(t.Line, t.Col, "* argument may appear only once")
			}
			kwOnly = true
			if p.tok().Kind == NAME {
				vararg = p.next().Text
				if annotations && p.acceptOp(":") {
					if _, err := p.test(); err != nil {
						return nil, "", err
					}
				}
			}
		case t.Kind == OP && t.Text == "/":
			p.next()
		default:
			n, err := p.expectName()
			if err != nil {
				return nil, "", err
			}
			param := &Param{Pos: posOf(n), Name: n.Text, KwOnly: kwOnly}
			if annotations && p.acceptOp(":") {
				if _, err := p.test(); err != nil {
					return nil, "", err
				}
			}
			if p.acceptOp("=") {
				if param.Default, err = p.test(); err != nil {
					return nil, "", err
				}
				if !kwOnly {
					seenDefault = true
				}
			} else if seenDefault && !kwOnly {
				return nil, "", errorf(n.Line, n.Col, "non-default argument follows default argument")
			}
			for _, prev := range params {
				if prev.Name == param.Name {
					return nil, "", errorf(n.Line, n.Col, "duplicate argument '%s' in function definition", n.Text)
				}
			}
			params = append(params, param)
		}
		if !p.acceptOp(",") {
			break
		}
	}
	return params, vararg, nil
}

func (p *parser) classDef() (Stmt, error) {
	t := p.next()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	s := &ClassDef{Pos: posOf(t), Name: name.Text}
	if p.acceptOp("(") {
		for !p.isOp(")") {
			b, err := p.test()
			if err != nil {
				return nil, err
			}
			s.Bases = append(s.Bases, b)
			if !p.acceptOp(",") {
				break
			}
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
	}
	if s.Body, err = p.block(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) withStmt() (Stmt, error) {
	t := p.next()
	s := &With{Pos: posOf(t)}
	for {
		item, err := p.test()
		if err != nil {
			return nil, err
		}
		if p.acceptKw("as") {
			if _, err := p.exprList(); err != nil {
				return nil, err
			}
		}
		s.Items = append(s.Items, item)
		if !p.acceptOp(",") {
			break
		}
	}
	var err error
	if s.Body, err = p.block(); err != nil {
		return nil, err
	}
	return s, nil
}

// ---- expressions ----

// testListStar parses "test_or_star (, test_or_star)* [,]", producing a
// tuple when a comma is present.
func (p *parser) testListStar() (Expr, error) {
	start := p.tok()
	first, err := p.testOrStar()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []Expr{first}
	for p.acceptOp(",") {
		if p.atTestListEnd() {
			break
		}
		x, err := p.testOrStar()
		if err != nil {
			return nil, err
		}
		elts = append(elts, x)
	}
	return &TupleExpr{Pos: posOf(start), Elts: elts}, nil
}

func (p *parser) testListStarOrYield() (Expr, error) {
	if p.isKw("yield") {
		return p.yieldExpr()
	}
	return p.testListStar()
}

func (p *parser) atTestListEnd() bool {
	t := p.tok()
	if t.Kind == NEWLINE || t.Kind == EOF {
		return true
	}
	if t.Kind == OP {
		switch t.Text {
		case "=", ")", "]", "}", ":", ";":
			return true
		}
		return augOps[t.Text]
	}
	return t.Kind == KEYWORD && t.Text == "in"
}

func (p *parser) yieldExpr() (Expr, error) {
	t := p.next()
	y := &Yield{Pos: posOf(t)}
	if !p.atTestListEnd() {
		v, err := p.testListStar()
		if err != nil {
			return nil, err
		}
		y.Value = v
	}
	return y, nil
}

func (p *parser) testOrStar() (Expr, error) {
	if p.isOp("*") {
		t := p.next()
		x, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		return &Starred{Pos: posOf(t), X: x}, nil
	}
	return p.test()
}

// exprList parses assignment targets: "expr (, expr)* [,]" at bitwise-or
// precedence so that a following "in" is not consumed.
func (p *parser) exprList() (Expr, error) {
	start := p.tok()
	first, err := p.starOrOrExpr()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []Expr{first}
	for p.acceptOp(",") {
		if p.atTestListEnd() {
			break
		}
		x, err := p.starOrOrExpr()
		if err != nil {
			return nil, err
		}
		elts = append(elts, x)
	}
	return &TupleExpr{Pos: posOf(start), Elts: elts}, nil
}

func (p *parser) starOrOrExpr() (Expr, error) {
	if p.isOp("*") {
		t := p.next()
		x, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		return &Starred{Pos: posOf(t), X: x}, nil
	}
	return p.orExpr()
}

func (p *parser) test() (Expr, error) {
	if p.isKw("lambda") {
		return p.lambda()
	}
	start := p.tok()
	x, err := p.orTest()
	if err != nil {
		return nil, err
	}
	if !p.acceptKw("if") {
		return x, nil
	}
	cond, err := p.orTest()
	if err != nil {
		return nil, err
	}
	if err := p.expectKw("else"); err != nil {
		return nil, err
	}
	other, err := p.test()
	if err != nil {
		return nil, err
	}
	return &IfExp{Pos: posOf(start), Test: cond, Body: x, Else: other}, nil
}

func (p *parser) testNoCond() (Expr, error) {
	if p.isKw("lambda") {
		return p.lambda()
	}
	return p.orTest()
}

func (p *parser) lambda() (Expr, error) {
	t := p.next()
	params, vararg, err := p.params(":", false)
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	body, err := p.test()
	if err != nil {
		return nil, err
	}
	return &Lambda{Pos: posOf(t), Params: params, Vararg: vararg, Body: body}, nil
}

func (p *parser) orTest() (Expr, error) {
	return p.boolOp("or", p.andTest)
}

func (p *parser) andTest() (Expr, error) {
	return p.boolOp("and", p.notTest)
}

func (p *parser) boolOp(op string, operand func() (Expr, error)) (Expr, error) {
	start := p.tok()
	x, err := operand()
	if err != nil {
		return nil, err
	}
	if !p.isKw(op) {
		return x, nil
	}
	values := []Expr{x}
	for p.acceptKw(op) {
		y, err := operand()
		if err != nil {
			return nil, err
		}
		values = append(values, y)
	}
	return &BoolOp{Pos: posOf(start), Op: op, Values: values}, nil
}

func (p *parser) notTest() (Expr, error) {
	if p.isKw("not") {
		t := p.next()
		x, err := p.notTest()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Pos: posOf(t), Op: "not", X: x}, nil
	}
	return p.comparison()
}

func (p *parser) compareOp() (string, bool) {
	t := p.tok()
	switch {
	case t.Kind == OP:
		switch t.Text {
		case "<", ">", "==", ">=", "<=", "!=":
			p.next()
			return t.Text, true
		}
	case t.Kind == KEYWORD && t.Text == "in":
		p.next()
		return "in", true
	case t.Kind == KEYWORD && t.Text == "not" && p.peek(1).Kind == KEYWORD && p.peek(1).Text == "in":
		p.next()
		p.next()
		return "not in", true
	case t.Kind == KEYWORD && t.Text == "is":
		p.next()
		if p.acceptKw("not") {
			return "is not", true
		}
		return "is", true
	}
	return "", false
}

func (p *parser) comparison() (Expr, error) {
	start := p.tok()
	x, err := p.orExpr()
	if err != nil {
		return nil, err
	}
	var ops []string
	var rest []Expr
	for {
		op, ok := p.compareOp()
		if !ok {
			break
		}
		y, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		rest = append(rest, y)
	}
	if len(ops) == 0 {
		return x, nil
	}
	return &Compare{Pos: posOf(start), X: x, Ops: ops, Comparators: rest}, nil
}

// binary parses a left-associative chain of the given operators.
func (p *parser) binary(ops []string, operand func() (Expr, error)) (Expr, error) {
	x, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		t := p.tok()
		if t.Kind != OP || !contains(ops, t.Text) {
			return x, nil
		}
		p.next()
		y, err := operand()
		if err != nil {
			return nil, err
		}
		x = &BinOp{Pos: x.Position(), Op: t.Text, X: x, Y: y}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (p *parser) orExpr() (Expr, error)  { return p.binary([]string{"|"}, p.xorExpr) }
func (p *parser) xorExpr() (Expr, error) { return p.binary([]string{"^"}, p.andExpr) }
func (p *parser) andExpr() (Expr, error) { return p.binary([]string{"&"}, p.shiftExpr) }
func (p *parser) shiftExpr() (Expr, error) {
	return p.binary([]string{"<<", ">>"}, p.arithExpr)
}
func (p *parser) arithExpr() (Expr, error) { return p.binary([]string{"+", "-"}, p.term) }
func (p *parser) term() (Expr, error) {
	return p.binary([]string{"*", "/", "//", "%", "@"}, p.factor)
}

func (p *parser) factor() (Expr, error) {
	t := p.tok()
	if t.Kind == OP && (t.Text == "-" || t.Text == "+" || t.Text == "~") {
		p.next()
		x, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Pos: posOf(t), Op: t.Text, X: x}, nil
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	x, err := p.atomExpr()
	if err != nil {
		return nil, err
	}
	if p.acceptOp("**") {
		y, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &BinOp{Pos: x.Position(), Op: "**", X: x, Y: y}, nil
	}
	return x, nil
}

func (p *parser) atomExpr() (Expr, error) {
	x, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		t := p.tok()
		if t.Kind != OP {
			return x, nil
		}
		switch t.Text {
		case "(":
			p.next()
			call, err := p.callArgs(x, t)
			if err != nil {
				return nil, err
			}
			x = call
		case "[":
			p.next()
			idx, err := p.subscriptList()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			x = &Subscript{Pos: posOf(t), X: x, Index: idx}
		case ".":
			p.next()
			n, err := p.expectName()
			if err != nil {
				return nil, err
			}
			x = &Attribute{Pos: posOf(n), X: x, Name: n.Text}
		default:
			return x, nil
		}
	}
}

func (p *parser) callArgs(fn Expr, open Token) (Expr, error) {
	call := &Call{Pos: posOf(open), Func: fn}
	for !p.isOp(")") {
		t := p.tok()
		switch {
		case t.Kind == OP && t.Text == "*":
			p.next()
			x, err := p.test()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, &Starred{Pos: posOf(t), X: x})
		case t.Kind == OP && t.Text == "**":
			return nil, errorf(t.Line, t.Col, "**kwargs unpacking is not supported")
		case t.Kind == NAME && p.peek(1).Kind == OP && p.peek(1).Text == "=":
			p.next()
			p.next()
			v, err := p.test()
			if err != nil {
				return nil, err
			}
			for _, kw := range call.Keywords {
				if kw.Name == t.Text {
					return nil, errorf(t.Line, t.Col, "keyword argument repeated: %s", t.Text)
				}
			}
			call.Keywords = append(call.Keywords, &Keyword{Pos: posOf(t), Name: t.Text, Value: v})
		default:
			x, err := p.test()
			if err != nil {
				return nil, err
			}
			if p.isKw("for") {
				gens, err := p.compFor()
				if err != nil {
					return nil, err
				}
				x = &GeneratorExp{Pos: x.Position(), Elt: x, Gens: gens}
			}
			if len(call.Keywords) > 0 {
				return nil, errorf(t.Line, t.Col, "positional argument follows keyword argument")
			}
			call.Args = append(call.Args, x)
		}
		if !p.acceptOp(",") {
			break
		}
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *parser) subscriptList() (Expr, error) {
	start := p.tok()
	first, err := p.subscript()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []Expr{first}
	for p.acceptOp(",") {
		if p.isOp("]") {
			break
		}
		x, err := p.subscript()
		if err != nil {
			return nil, err
		}
		elts = append(elts, x)
	}
	return &TupleExpr{Pos: posOf(start), Elts: elts}, nil
}

func (p *parser) subscript() (Expr, error) {
	start := p.tok()
	var lo Expr
	if !p.isOp(":") {
		x, err := p.test()
		if err != nil {
			return nil, err
		}
		if !p.isOp(":") {
			return x, nil
		}
		lo = x
	}
	p.next()
	s := &Slice{Pos: posOf(start), Lo: lo}
	if !p.isOp("]") && !p.isOp(",") && !p.isOp(":") {
		hi, err := p.test()
		if err != nil {
			return nil, err
		}
		s.Hi = hi
	}
	if p.acceptOp(":") && !p.isOp("]") && !p.isOp(",") {
		step, err := p.test()
		if err != nil {
			return nil, err
		}
		s.Step = step
	}
	return s, nil
}

func (p *parser) compFor() ([]*Comprehension, error) {
	var gens []*Comprehension
	for p.acceptKw("for") {
		target, err := p.exprList()
		if err != nil {
			return nil, err
		}
		if err := checkTarget(target, "assign"); err != nil {
			return nil, err
		}
		if err := p.expectKw("in"); err != nil {
			return nil, err
		}
		iter, err := p.orTest()
		if err != nil {
			return nil, err
		}
		c := &Comprehension{Target: target, Iter: iter}
		for p.acceptKw("if") {
			cond, err := p.testNoCond()
			if err != nil {
				return nil, err
			}
			c.Ifs = append(c.Ifs, cond)
		}
		gens = append(gens, c)
	}
	return gens, nil
}

func (p *parser) atom() (Expr, error) {
	t := p.tok()
	switch t.Kind {
	case NAME:
		p.next()
		return &Name{Pos: posOf(t), Id: t.Text}, nil
	case INT, FLOAT:
		p.next()
		return &Constant{Pos: posOf(t), Value: t.Value}, nil
	case STRING, FSTRING:
		return p.strings()
	case KEYWORD:
		switch t.Text {
		case "True":
			p.next()
			return &Constant{Pos: posOf(t), Value: true}, nil
		case "False":
			p.next()
			return &Constant{Pos: posOf(t), Value: false}, nil
		case "None":
			p.next()
			return &Constant{Pos: posOf(t), Value: nil}, nil
		case "await":
			return nil, errorf(t.Line, t.Col, "'await' outside async function")
		case "yield":
			return nil, errorf(t.Line, t.Col, "'yield' must be the whole statement or parenthesized")
		}
	case OP:
		switch t.Text {
		case "(":
			return p.parenAtom()
		case "[":
			return p.listAtom()
		case "{":
			return p.braceAtom()
		case "...":
			return nil, errorf(t.Line, t.Col, "Ellipsis is not supported")
		}
	}
	return nil, p.unexpected(t)
}

func (p *parser) parenAtom() (Expr, error) {
	open := p.next()
	if p.acceptOp(")") {
		return &TupleExpr{Pos: posOf(open)}, nil
	}
	if p.isKw("yield") {
		y, err := p.yieldExpr()
		if err != nil {
			return nil, err
		}
		return y, p.expectOp(")")
	}
	first, err := p.testOrStar()
	if err != nil {
		return nil, err
	}
	if p.isKw("for") {
		gens, err := p.compFor()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return &GeneratorExp{Pos: posOf(open), Elt: first, Gens: gens}, nil
	}
	if p.isOp(":=") {
		w := p.tok()
		return nil, errorf(w.Line, w.Col, "assignment expressions are not supported")
	}
	if !p.isOp(",") {
		if _, ok := first.(*Starred); ok {
			return nil, errorf(open.Line, open.Col, "cannot use starred expression here")
		}
		return first, p.expectOp(")")
	}
	elts := []Expr{first}
	for p.acceptOp(",") {
		if p.isOp(")") {
			break
		}
		x, err := p.testOrStar()
		if err != nil {
			return nil, err
		}
		elts = append(elts, x)
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return &TupleExpr{Pos: posOf(open), Elts: elts}, nil
}

func (p *parser) listAtom() (Expr, error) {
	open := p.next()
	if p.acceptOp("]") {
		return &ListExpr{Pos: posOf(open)}, nil
	}
	first, err := p.testOrStar()
	if err != nil {
		return nil, err
	}
	if p.isKw("for") {
		gens, err := p.compFor()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("]"); err != nil {
			return nil, err
		}
		return &ListComp{Pos: posOf(open), Elt: first, Gens: gens}, nil
	}
	elts := []Expr{first}
	for p.acceptOp(",") {
		if p.isOp("]") {
			break
		}
		x, err := p.testOrStar()
		if err != nil {
			return nil, err
		}
		elts = append(elts, x)
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return &ListExpr{Pos: posOf(open), Elts: elts}, nil
}

func (p *parser) braceAtom() (Expr, error) {
	open := p.next()
	if p.acceptOp("}") {
		return &DictExpr{Pos: posOf(open)}, nil
	}
	if p.isOp("**") {
		t := p.tok()
		return nil, errorf(t.Line, t.Col, "dict unpacking is not supported")
	}
	first, err := p.testOrStar()
	if err != nil {
		return nil, err
	}

	if p.acceptOp(":") {
		val, err := p.test()
		if err != nil {
			return nil, err
		}
		if p.isKw("for") {
			gens, err := p.compFor()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("}"); err != nil {
				return nil, err
			}
			return &DictComp{Pos: posOf(open), Key: first, Value: val, Gens: gens}, nil
		}
		d := &DictExpr{Pos: posOf(open), Keys: []Expr{first}, Values: []Expr{val}}
		for p.acceptOp(",") {
			if p.isOp("}") {
				break
			}
			k, err := p.test()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(":"); err != nil {
				return nil, err
			}
			v, err := p.test()
			if err != nil {
				return nil, err
			}
			d.Keys = append(d.Keys, k)
			d.Values = append(d.Values, v)
		}
		if err := p.expectOp("}"); err != nil {
			return nil, err
		}
		return d, nil
	}

	if p.isKw("for") {
		gens, err := p.compFor()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("}"); err != nil {
			return nil, err
		}
		return &SetComp{Pos: posOf(open), Elt: first, Gens: gens}, nil
	}
	elts := []Expr{first}
	for p.acceptOp(",") {
		if p.isOp("}") {
			break
		}
		x, err := p.testOrStar()
		if err != nil {
			return nil, err
		}
		elts = append(elts, x)
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return &SetExpr{Pos: posOf(open), Elts: elts}, nil
}

// strings concatenates adjacent string and f-string literals.
func (p *parser) strings() (Expr, error) {
	start := p.tok()
	var parts []FPart
	isF := false
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, FPart{Lit: lit.String()})
			lit.Reset()
		}
	}
	for p.tok().Kind == STRING || p.tok().Kind == FSTRING {
		t := p.next()
		if t.Kind == STRING {
			lit.WriteString(t.Value.(string))
			continue
		}
		isF = true
		body := t.Value.(fstringBody)
		fparts, err := parseFString(body.body, body.raw, t.Line, t.Col)
		if err != nil {
			return nil, err
		}
		for _, fp := range fparts {
			if fp.Value == nil {
				lit.WriteString(fp.Lit)
				continue
			}
			flush()
			parts = append(parts, fp)
		}
	}
	if !isF {
		return &Constant{Pos: posOf(start), Value: lit.String()}, nil
	}
	flush()
	return &FString{Pos: posOf(start), Parts: parts}, nil
}
