package compiler

import (
	"github.com/roach88/stepwise/internal/syntax"
)

func (c *checker) exprs(list []syntax.Expr) []syntax.Expr {
	for i, x := range list {
		list[i] = c.expr(x)
	}
	return list
}

// spread lowers display and argument lists, routing "*x" through the
// iteration guard.
func (c *checker) spread(list []syntax.Expr) []syntax.Expr {
	for i, x := range list {
		if st, ok := x.(*syntax.Starred); ok {
			st.X = &syntax.GuardedIter{Pos: st.Pos, X: c.expr(st.X)}
			list[i] = st
			continue
		}
		list[i] = c.expr(x)
	}
	return list
}

func (c *checker) expr(x syntax.Expr) syntax.Expr {
	switch x := x.(type) {
	case nil:
		return nil

	case *syntax.Name:
		c.checkName(x.Pos, x.Id)
		c.capture(x.Id)
		return x

	case *syntax.Constant:
		return x

	case *syntax.FString:
		c.fstring(x)
		return x

	case *syntax.ListExpr:
		x.Elts = c.spread(x.Elts)
		return x

	case *syntax.TupleExpr:
		x.Elts = c.spread(x.Elts)
		return x

	case *syntax.SetExpr:
		x.Elts = c.spread(x.Elts)
		return x

	case *syntax.DictExpr:
		x.Keys = c.exprs(x.Keys)
		x.Values = c.exprs(x.Values)
		return x

	case *syntax.Starred:
		c.fail(x.Pos, ErrUnsupported, "can't use starred expression here")
		return x

	case *syntax.ListComp:
		x.Scope = c.comprehension(x.Gens, func() { x.Elt = c.expr(x.Elt) })
		return x

	case *syntax.SetComp:
		x.Scope = c.comprehension(x.Gens, func() { x.Elt = c.expr(x.Elt) })
		return x

	case *syntax.GeneratorExp:
		x.Scope = c.comprehension(x.Gens, func() { x.Elt = c.expr(x.Elt) })
		return x

	case *syntax.DictComp:
		x.Scope = c.comprehension(x.Gens, func() {
			x.Key = c.expr(x.Key)
			x.Value = c.expr(x.Value)
		})
		return x

	case *syntax.Attribute:
		c.checkAttr(x.Pos, x.Name)
		return &syntax.GuardedAttr{Pos: x.Pos, X: c.expr(x.X), Name: x.Name}

	case *syntax.Subscript:
		return &syntax.GuardedItem{Pos: x.Pos, X: c.expr(x.X), Index: c.expr(x.Index)}

	case *syntax.Slice:
		x.Lo = c.expr(x.Lo)
		x.Hi = c.expr(x.Hi)
		x.Step = c.expr(x.Step)
		return x

	case *syntax.Call:
		x.Func = c.expr(x.Func)
		x.Args = c.spread(x.Args)
		for _, kw := range x.Keywords {
			c.checkName(kw.Pos, kw.Name)
			kw.Value = c.expr(kw.Value)
		}
		return x

	case *syntax.UnaryOp:
		x.X = c.expr(x.X)
		return x

	case *syntax.BinOp:
		x.X = c.expr(x.X)
		x.Y = c.expr(x.Y)
		return x

	case *syntax.BoolOp:
		x.Values = c.exprs(x.Values)
		return x

	case *syntax.Compare:
		x.X = c.expr(x.X)
		x.Comparators = c.exprs(x.Comparators)
		return x

	case *syntax.IfExp:
		x.Test = c.expr(x.Test)
		x.Body = c.expr(x.Body)
		x.Else = c.expr(x.Else)
		return x

	case *syntax.Lambda:
		c.params(x.Params, x.Vararg)
		x.Scope = paramScope(x.Params, x.Vararg)
		saved := c.enter(x.Scope)
		x.Body = c.expr(x.Body)
		c.leave(saved)
		return x

	case *syntax.Yield:
		c.fail(x.Pos, ErrUnsupported, "yield expressions are not allowed")
		return x
	}

	c.fail(x.Position(), ErrUnsupported, "unsupported expression %T", x)
	return x
}

func (c *checker) fstring(fs *syntax.FString) {
	for i := range fs.Parts {
		part := &fs.Parts[i]
		if part.Value != nil {
			part.Value = c.expr(part.Value)
		}
		if part.Spec != nil {
			c.fstring(part.Spec)
		}
	}
}

// comprehension lowers the generator clauses and the element. The first
// iterable is evaluated in the enclosing scope; everything else runs in the
// comprehension's own scope, whose locals are the loop targets.
func (c *checker) comprehension(gens []*syntax.Comprehension, elt func()) *syntax.Scope {
	scope := &syntax.Scope{Locals: map[string]bool{}}
	for _, g := range gens {
		collectTargets(g.Target, scope.Locals)
	}

	if len(gens) > 0 {
		gens[0].Iter = &syntax.GuardedIter{Pos: gens[0].Iter.Position(), X: c.expr(gens[0].Iter)}
	}
	c.scopes = append(c.scopes, scope)
	for i, g := range gens {
		if i > 0 {
			g.Iter = &syntax.GuardedIter{Pos: g.Iter.Position(), X: c.expr(g.Iter)}
		}
		g.Target = c.target(g.Target)
		g.Ifs = c.exprs(g.Ifs)
	}
	elt()
	c.scopes = c.scopes[:len(c.scopes)-1]
	return scope
}

// params checks parameter names and lowers default values, which are
// evaluated in the defining scope.
func (c *checker) params(params []*syntax.Param, vararg string) {
	for _, p := range params {
		c.checkName(p.Pos, p.Name)
		if p.Default != nil {
			p.Default = c.expr(p.Default)
		}
	}
	if vararg != "" {
		var pos syntax.Pos
		if len(params) > 0 {
			pos = params[0].Pos
		}
		c.checkName(pos, vararg)
	}
}

// target lowers an assignment or loop target.
func (c *checker) target(x syntax.Expr) syntax.Expr {
	switch t := x.(type) {
	case *syntax.Name:
		c.checkName(t.Pos, t.Id)
		return t
	case *syntax.TupleExpr:
		return c.unpack(t.Pos, t.Elts)
	case *syntax.ListExpr:
		return c.unpack(t.Pos, t.Elts)
	case *syntax.Subscript:
		return &syntax.GuardedStoreItem{Pos: t.Pos, X: c.expr(t.X), Index: c.expr(t.Index)}
	case *syntax.Attribute:
		c.fail(t.Pos, ErrAttributeMutation, "assigning to attributes is not allowed")
		return t
	}
	c.fail(x.Position(), ErrUnsupported, "cannot assign to expression")
	return x
}

func (c *checker) unpack(pos syntax.Pos, elts []syntax.Expr) syntax.Expr {
	targets := make([]syntax.Expr, len(elts))
	for i, e := range elts {
		targets[i] = c.target(e)
	}
	return &syntax.GuardedUnpack{Pos: pos, Targets: targets}
}

// delTargets lowers a del target, flattening tuple and list targets.
func (c *checker) delTargets(x syntax.Expr) []syntax.Expr {
	switch t := x.(type) {
	case *syntax.Name:
		c.checkName(t.Pos, t.Id)
		return []syntax.Expr{t}
	case *syntax.Subscript:
		return []syntax.Expr{&syntax.GuardedDelItem{Pos: t.Pos, X: c.expr(t.X), Index: c.expr(t.Index)}}
	case *syntax.Attribute:
		c.fail(t.Pos, ErrAttributeMutation, "deleting attributes is not allowed")
		return []syntax.Expr{t}
	case *syntax.TupleExpr:
		var out []syntax.Expr
		for _, e := range t.Elts {
			out = append(out, c.delTargets(e)...)
		}
		return out
	case *syntax.ListExpr:
		var out []syntax.Expr
		for _, e := range t.Elts {
			out = append(out, c.delTargets(e)...)
		}
		return out
	}
	c.fail(x.Position(), ErrUnsupported, "cannot delete expression")
	return []syntax.Expr{x}
}
