// Package compiler turns dialect source into an executable Program.
//
// Compilation parses the source, rejects constructs the sandbox does not
// allow, and lowers every attribute read, subscript access, iteration,
// sequence unpack and augmented assignment into the guarded node forms of
// package syntax. The evaluator has no code path for the unguarded forms,
// so a Program can only touch objects through a capability guard.
package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/syntax"
)

// Program is a compiled, restriction-checked script.
type Program struct {
	Script ir.Script
	Body   []syntax.Stmt
}

// Compile parses and restriction-checks source. All failures are
// *CompileError.
func Compile(source string) (*Program, error) {
	file, err := syntax.Parse(source)
	if err != nil {
		if se, ok := syntax.AsError(err); ok {
			return nil, &CompileError{Code: ErrSyntax, Message: se.Msg, Line: se.Line, Col: se.Col, Err: err}
		}
		return nil, &CompileError{Code: ErrSyntax, Message: err.Error(), Err: err}
	}

	c := &checker{}
	body := c.stmts(file.Body)
	if c.err != nil {
		return nil, c.err
	}
	return &Program{Script: ir.NewScript(source), Body: body}, nil
}

// Check compiles source and discards the result.
func Check(source string) error {
	_, err := Compile(source)
	return err
}

// checker walks the tree once, validating and lowering in place. It
// records the first error and keeps walking so the returned tree is always
// well formed.
type checker struct {
	err       *CompileError
	funcDepth int
	loopDepth int
	scopes    []*syntax.Scope // enclosing function scopes, innermost last
}

func (c *checker) fail(pos syntax.Pos, code, format string, args ...any) {
	if c.err != nil {
		return
	}
	c.err = &CompileError{Code: code, Message: fmt.Sprintf(format, args...), Line: pos.Line, Col: pos.Col}
}

func (c *checker) checkName(pos syntax.Pos, name string) {
	if strings.HasPrefix(name, "_") && name != "_" {
		c.fail(pos, ErrPrivateName, "%q is an invalid variable name because it starts with \"_\"", name)
	}
}

func (c *checker) checkAttr(pos syntax.Pos, name string) {
	if strings.HasPrefix(name, "_") {
		c.fail(pos, ErrPrivateName, "%q is an invalid attribute name because it starts with \"_\"", name)
	}
}

func (c *checker) stmts(list []syntax.Stmt) []syntax.Stmt {
	out := make([]syntax.Stmt, 0, len(list))
	for _, s := range list {
		out = append(out, c.stmt(s))
	}
	return out
}

func (c *checker) stmt(s syntax.Stmt) syntax.Stmt {
	switch s := s.(type) {
	case *syntax.ExprStmt:
		s.X = c.expr(s.X)
		return s

	case *syntax.Assign:
		for i, t := range s.Targets {
			s.Targets[i] = c.target(t)
		}
		s.Value = c.expr(s.Value)
		return s

	case *syntax.AnnAssign:
		target := c.target(s.Target)
		if s.Value == nil {
			return &syntax.Pass{Pos: s.Pos}
		}
		return &syntax.Assign{Pos: s.Pos, Targets: []syntax.Expr{target}, Value: c.expr(s.Value)}

	case *syntax.AugAssign:
		var target syntax.Expr
		switch t := s.Target.(type) {
		case *syntax.Name:
			c.checkName(t.Pos, t.Id)
			target = t
		case *syntax.Subscript:
			target = &syntax.GuardedStoreItem{Pos: t.Pos, X: c.expr(t.X), Index: c.expr(t.Index)}
		case *syntax.Attribute:
			c.fail(t.Pos, ErrAttributeMutation, "assigning to attributes is not allowed")
			target = t
		default:
			c.fail(s.Pos, ErrUnsupported, "illegal expression for augmented assignment")
			target = t
		}
		return &syntax.GuardedInPlace{Pos: s.Pos, Target: target, Op: s.Op, Value: c.expr(s.Value)}

	case *syntax.If:
		s.Test = c.expr(s.Test)
		s.Body = c.stmts(s.Body)
		s.Else = c.stmts(s.Else)
		return s

	case *syntax.While:
		s.Test = c.expr(s.Test)
		c.loopDepth++
		s.Body = c.stmts(s.Body)
		c.loopDepth--
		s.Else = c.stmts(s.Else)
		return s

	case *syntax.For:
		s.Iter = &syntax.GuardedIter{Pos: s.Iter.Position(), X: c.expr(s.Iter)}
		s.Target = c.target(s.Target)
		c.loopDepth++
		s.Body = c.stmts(s.Body)
		c.loopDepth--
		s.Else = c.stmts(s.Else)
		return s

	case *syntax.Break:
		if c.loopDepth == 0 {
			c.fail(s.Pos, ErrMisplaced, "'break' outside loop")
		}
		return s

	case *syntax.Continue:
		if c.loopDepth == 0 {
			c.fail(s.Pos, ErrMisplaced, "'continue' not properly in loop")
		}
		return s

	case *syntax.Pass:
		return s

	case *syntax.FuncDef:
		c.checkName(s.Pos, s.Name)
		c.params(s.Params, s.Vararg)
		s.Scope = functionScope(s.Params, s.Vararg, s.Body)
		saved := c.enter(s.Scope)
		s.Body = c.stmts(s.Body)
		c.leave(saved)
		return s

	case *syntax.Return:
		if c.funcDepth == 0 {
			c.fail(s.Pos, ErrMisplaced, "'return' outside function")
		}
		if s.Value != nil {
			s.Value = c.expr(s.Value)
		}
		return s

	case *syntax.Import:
		for _, a := range s.Names {
			for _, part := range strings.Split(a.Name, ".") {
				c.checkName(a.Pos, part)
			}
			c.checkName(a.Pos, a.Bound())
		}
		return s

	case *syntax.ImportFrom:
		for _, part := range strings.Split(s.Module, ".") {
			c.checkName(s.Pos, part)
		}
		if s.Star {
			c.fail(s.Pos, ErrStarImport, "'from %s import *' is not allowed", s.Module)
		}
		for _, a := range s.Names {
			c.checkName(a.Pos, a.Name)
			c.checkName(a.Pos, a.Bound())
		}
		return s

	case *syntax.Raise:
		if s.Exc != nil {
			s.Exc = c.expr(s.Exc)
		}
		if s.Cause != nil {
			s.Cause = c.expr(s.Cause)
		}
		return s

	case *syntax.Try:
		s.Body = c.stmts(s.Body)
		for _, h := range s.Handlers {
			if h.Type != nil {
				h.Type = c.expr(h.Type)
			}
			if h.Name != "" {
				c.checkName(h.Pos, h.Name)
			}
			h.Body = c.stmts(h.Body)
		}
		s.Else = c.stmts(s.Else)
		s.Finally = c.stmts(s.Finally)
		return s

	case *syntax.Assert:
		s.Test = c.expr(s.Test)
		if s.Msg != nil {
			s.Msg = c.expr(s.Msg)
		}
		return s

	case *syntax.Delete:
		var targets []syntax.Expr
		for _, t := range s.Targets {
			targets = append(targets, c.delTargets(t)...)
		}
		s.Targets = targets
		return s

	case *syntax.Global:
		if c.funcDepth == 0 {
			c.fail(s.Pos, ErrScopeDeclaration, "global declaration not allowed at module level")
		}
		for _, n := range s.Names {
			c.checkName(s.Pos, n)
		}
		return s

	case *syntax.Nonlocal:
		if c.funcDepth == 0 {
			c.fail(s.Pos, ErrScopeDeclaration, "nonlocal declaration not allowed at module level")
			return s
		}
		for _, n := range s.Names {
			c.checkName(s.Pos, n)
			if !c.enclosingBinds(n) {
				c.fail(s.Pos, ErrScopeDeclaration, "no binding for nonlocal '%s' found", n)
				continue
			}
			c.passThrough(n, len(c.scopes)-1)
		}
		return s

	case *syntax.ClassDef:
		c.fail(s.Pos, ErrUnsupported, "class definitions are not allowed")
		return s

	case *syntax.With:
		c.fail(s.Pos, ErrUnsupported, "with statements are not allowed")
		return s
	}

	c.fail(s.Position(), ErrUnsupported, "unsupported statement %T", s)
	return s
}

// enter pushes a function context; loops of the enclosing function do not
// make break/continue legal inside it.
func (c *checker) enter(scope *syntax.Scope) int {
	saved := c.loopDepth
	c.loopDepth = 0
	c.funcDepth++
	c.scopes = append(c.scopes, scope)
	return saved
}

func (c *checker) leave(savedLoop int) {
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.funcDepth--
	c.loopDepth = savedLoop
}

// enclosingBinds reports whether an enclosing function (not the innermost
// one) binds name, as a nonlocal declaration requires.
func (c *checker) enclosingBinds(name string) bool {
	for i := len(c.scopes) - 2; i >= 0; i-- {
		sc := c.scopes[i]
		if sc.Locals[name] || sc.Nonlocals[name] {
			return true
		}
	}
	return false
}

// capture records a read of name in the innermost scope as free when an
// enclosing function binds it.
func (c *checker) capture(name string) {
	n := len(c.scopes)
	if n == 0 {
		return
	}
	inner := c.scopes[n-1]
	if inner.Locals[name] || inner.Globals[name] || inner.Nonlocals[name] {
		return
	}
	c.passThrough(name, n)
}

// passThrough marks name free in scopes[i:end] where scopes[i-1] is the
// nearest enclosing scope that binds it. Nothing is marked when the name
// resolves to a global.
func (c *checker) passThrough(name string, end int) {
	for i := end - 1; i >= 0; i-- {
		sc := c.scopes[i]
		if sc.Globals[name] {
			return
		}
		if sc.Locals[name] || sc.Nonlocals[name] {
			for _, inner := range c.scopes[i+1 : end] {
				if inner.Frees == nil {
					inner.Frees = map[string]bool{}
				}
				inner.Frees[name] = true
			}
			return
		}
	}
}
