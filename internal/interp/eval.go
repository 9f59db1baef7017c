package interp

import (
	"strings"

	"github.com/roach88/stepwise/internal/syntax"
	"github.com/roach88/stepwise/internal/value"
)

func (th *thread) eval(fr *Frame, x syntax.Expr) (value.Value, error) {
	switch x := x.(type) {
	case *syntax.Name:
		return th.lookup(fr.env, x.Id)

	case *syntax.Constant:
		return constant(x.Value), nil

	case *syntax.FString:
		s, err := th.fstring(fr, x)
		if err != nil {
			return nil, err
		}
		return value.Str(s), nil

	case *syntax.ListExpr:
		elems, err := th.spread(fr, x.Elts)
		if err != nil {
			return nil, err
		}
		return value.NewList(elems), nil

	case *syntax.TupleExpr:
		elems, err := th.spread(fr, x.Elts)
		if err != nil {
			return nil, err
		}
		return value.Tuple(elems), nil

	case *syntax.SetExpr:
		elems, err := th.spread(fr, x.Elts)
		if err != nil {
			return nil, err
		}
		return value.SetOf(elems, false)

	case *syntax.DictExpr:
		d := value.NewDict()
		for i := range x.Keys {
			k, err := th.eval(fr, x.Keys[i])
			if err != nil {
				return nil, err
			}
			v, err := th.eval(fr, x.Values[i])
			if err != nil {
				return nil, err
			}
			if err := d.Set(k, v); err != nil {
				return nil, err
			}
		}
		return d, nil

	case *syntax.ListComp:
		out := value.NewList(nil)
		err := th.comprehend(fr, x.Gens, x.Scope, func() error {
			v, err := th.eval(fr, x.Elt)
			if err != nil {
				return err
			}
			return out.Append(v)
		})
		if err != nil {
			return nil, err
		}
		return out, nil

	case *syntax.SetComp:
		out := value.NewSet()
		err := th.comprehend(fr, x.Gens, x.Scope, func() error {
			v, err := th.eval(fr, x.Elt)
			if err != nil {
				return err
			}
			return out.Add(v)
		})
		if err != nil {
			return nil, err
		}
		return out, nil

	case *syntax.DictComp:
		out := value.NewDict()
		err := th.comprehend(fr, x.Gens, x.Scope, func() error {
			k, err := th.eval(fr, x.Key)
			if err != nil {
				return err
			}
			v, err := th.eval(fr, x.Value)
			if err != nil {
				return err
			}
			return out.Set(k, v)
		})
		if err != nil {
			return nil, err
		}
		return out, nil

	case *syntax.GeneratorExp:
		out := value.NewList(nil)
		err := th.comprehend(fr, x.Gens, x.Scope, func() error {
			v, err := th.eval(fr, x.Elt)
			if err != nil {
				return err
			}
			return out.Append(v)
		})
		if err != nil {
			return nil, err
		}
		return generator(out.Elems), nil

	case *syntax.GuardedAttr:
		obj, err := th.eval(fr, x.X)
		if err != nil {
			return nil, err
		}
		return th.guard.GetAttr(obj, x.Name)

	case *syntax.GuardedItem:
		obj, err := th.eval(fr, x.X)
		if err != nil {
			return nil, err
		}
		key, err := th.index(fr, x.Index)
		if err != nil {
			return nil, err
		}
		return th.guard.GetItem(th, obj, key)

	case *syntax.GuardedIter:
		obj, err := th.eval(fr, x.X)
		if err != nil {
			return nil, err
		}
		return th.guard.Iter(th, obj)

	case *syntax.Call:
		return th.call(fr, x)

	case *syntax.UnaryOp:
		v, err := th.eval(fr, x.X)
		if err != nil {
			return nil, err
		}
		if x.Op == "not" {
			return value.Bool(!v.Truth()), nil
		}
		return value.Unary(x.Op, v)

	case *syntax.BinOp:
		a, err := th.eval(fr, x.X)
		if err != nil {
			return nil, err
		}
		b, err := th.eval(fr, x.Y)
		if err != nil {
			return nil, err
		}
		return value.Binary(th, x.Op, a, b)

	case *syntax.BoolOp:
		var v value.Value
		for _, operand := range x.Values {
			var err error
			if v, err = th.eval(fr, operand); err != nil {
				return nil, err
			}
			if v.Truth() == (x.Op == "or") {
				break
			}
		}
		return v, nil

	case *syntax.Compare:
		return th.compare(fr, x)

	case *syntax.IfExp:
		test, err := th.eval(fr, x.Test)
		if err != nil {
			return nil, err
		}
		if test.Truth() {
			return th.eval(fr, x.Body)
		}
		return th.eval(fr, x.Else)

	case *syntax.Lambda:
		fn, err := th.makeFunction(fr, "<lambda>", x.Line, x.Params, x.Vararg, x.Scope)
		if err != nil {
			return nil, err
		}
		fn.expr = x.Body
		return fn, nil
	}
	return nil, value.Errorf(value.RuntimeError, "unsupported expression %T", x)
}

func constant(c any) value.Value {
	switch c := c.(type) {
	case bool:
		return value.Bool(c)
	case int64:
		return value.Int(c)
	case float64:
		return value.Float(c)
	case string:
		return value.Str(c)
	}
	return value.None
}

// generator wraps the materialized elements of a generator expression.
func generator(elems []value.Value) *value.Iterator {
	i := 0
	return value.NewIterator("generator", func(value.Thread) (value.Value, bool, error) {
		if i >= len(elems) {
			return nil, false, nil
		}
		i++
		return elems[i-1], true, nil
	})
}

// spread evaluates a display or argument list, expanding "*x" items.
func (th *thread) spread(fr *Frame, list []syntax.Expr) ([]value.Value, error) {
	out := make([]value.Value, 0, len(list))
	for _, x := range list {
		st, ok := x.(*syntax.Starred)
		if !ok {
			v, err := th.eval(fr, x)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}
		v, err := th.eval(fr, st.X)
		if err != nil {
			return nil, err
		}
		it := v.(*value.Iterator)
		for {
			e, ok, err := it.Next(th)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			if len(out) >= value.MaxContainerLen {
				return nil, value.Errorf(value.MemoryError, "container exceeds %d elements", value.MaxContainerLen)
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// index evaluates a subscript, building a slice object for "lo:hi:step".
func (th *thread) index(fr *Frame, x syntax.Expr) (value.Value, error) {
	sl, ok := x.(*syntax.Slice)
	if !ok {
		return th.eval(fr, x)
	}
	var out value.SliceValue
	for _, p := range []struct {
		x   syntax.Expr
		dst *value.Value
	}{{sl.Lo, &out.Lo}, {sl.Hi, &out.Hi}, {sl.Step, &out.Step}} {
		*p.dst = value.None
		if p.x == nil {
			continue
		}
		v, err := th.eval(fr, p.x)
		if err != nil {
			return nil, err
		}
		*p.dst = v
	}
	return out, nil
}

func (th *thread) call(fr *Frame, x *syntax.Call) (value.Value, error) {
	fn, err := th.eval(fr, x.Func)
	if err != nil {
		return nil, err
	}
	args, err := th.spread(fr, x.Args)
	if err != nil {
		return nil, err
	}
	var kwargs []value.Kwarg
	for _, kw := range x.Keywords {
		v, err := th.eval(fr, kw.Value)
		if err != nil {
			return nil, err
		}
		for _, prev := range kwargs {
			if prev.Name == kw.Name {
				return nil, value.Errorf(value.TypeError, "keyword argument repeated: %s", kw.Name)
			}
		}
		kwargs = append(kwargs, value.Kwarg{Name: kw.Name, Value: v})
	}
	return th.Call(fn, args, kwargs)
}

// compare evaluates a comparison chain, stopping at the first false link.
func (th *thread) compare(fr *Frame, x *syntax.Compare) (value.Value, error) {
	left, err := th.eval(fr, x.X)
	if err != nil {
		return nil, err
	}
	for i, op := range x.Ops {
		right, err := th.eval(fr, x.Comparators[i])
		if err != nil {
			return nil, err
		}
		ok, err := th.compareOp(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return value.False, nil
		}
		left = right
	}
	return value.True, nil
}

func (th *thread) compareOp(op string, a, b value.Value) (bool, error) {
	switch op {
	case "==":
		return value.Equal(a, b), nil
	case "!=":
		return !value.Equal(a, b), nil
	case "is":
		return value.Is(a, b), nil
	case "is not":
		return !value.Is(a, b), nil
	case "in":
		return value.Contains(th, b, a)
	case "not in":
		in, err := value.Contains(th, b, a)
		return !in, err
	}
	return value.Compare(op, a, b)
}

// comprehend runs the generator clauses of a comprehension, calling emit
// once per produced element. The first iterable is evaluated in the
// enclosing scope; the rest of the comprehension runs in its own scope.
func (th *thread) comprehend(fr *Frame, gens []*syntax.Comprehension, scope *syntax.Scope, emit func() error) error {
	first, err := th.eval(fr, gens[0].Iter)
	if err != nil {
		return err
	}
	saved := fr.env
	fr.env = &env{scope: scope, vars: newNamespace(), parent: saved}
	defer func() { fr.env = saved }()
	return th.generate(fr, gens, first.(*value.Iterator), emit)
}

func (th *thread) generate(fr *Frame, gens []*syntax.Comprehension, it *value.Iterator, emit func() error) error {
	g := gens[0]
outer:
	for {
		e, ok, err := it.Next(th)
		if err != nil || !ok {
			return err
		}
		if err := th.assign(fr, g.Target, e); err != nil {
			return err
		}
		for _, cond := range g.Ifs {
			v, err := th.eval(fr, cond)
			if err != nil {
				return err
			}
			if !v.Truth() {
				continue outer
			}
		}
		if len(gens) == 1 {
			if err := emit(); err != nil {
				return err
			}
			continue
		}
		next, err := th.eval(fr, gens[1].Iter)
		if err != nil {
			return err
		}
		if err := th.generate(fr, gens[1:], next.(*value.Iterator), emit); err != nil {
			return err
		}
	}
}

func (th *thread) fstring(fr *Frame, fs *syntax.FString) (string, error) {
	var b strings.Builder
	for _, part := range fs.Parts {
		if part.Value == nil {
			b.WriteString(part.Lit)
			continue
		}
		v, err := th.eval(fr, part.Value)
		if err != nil {
			return "", err
		}
		switch part.Conv {
		case 'r', 'a':
			v = value.Str(value.Repr(v))
		case 's':
			v = value.Str(value.ToStr(v))
		}
		spec := ""
		if part.Spec != nil {
			if spec, err = th.fstring(fr, part.Spec); err != nil {
				return "", err
			}
		}
		s, err := value.FormatValue(v, spec)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
