package interp

import (
	"github.com/roach88/stepwise/internal/syntax"
	"github.com/roach88/stepwise/internal/value"
)

// flow is the non-exceptional outcome of a statement.
type flow int

const (
	flowNext flow = iota
	flowBreak
	flowContinue
	flowReturn
)

func (th *thread) execBlock(fr *Frame, body []syntax.Stmt) (flow, error) {
	for _, s := range body {
		f, err := th.exec(fr, s)
		if err != nil || f != flowNext {
			return f, err
		}
	}
	return flowNext, nil
}

// line reports a line observation.
func (th *thread) line(fr *Frame, line int) error {
	fr.Line = line
	if err := th.hook.OnLine(fr, line); err != nil {
		return th.halt(err)
	}
	return nil
}

// raised records that exc escaped a statement of fr. Each exception is
// reported once per frame.
func (th *thread) raised(fr *Frame, line int, exc *value.Exception) error {
	if exc.Line == 0 {
		exc.Line = line
	}
	if fr.reported == exc {
		return nil
	}
	fr.reported = exc
	if err := th.hook.OnException(fr, line, exc); err != nil {
		return th.halt(err)
	}
	return nil
}

// fail finishes a header or simple statement that raised: the line is
// observed, then the exception.
func (th *thread) fail(fr *Frame, line int, err error) error {
	if IsHalt(err) {
		return err
	}
	if herr := th.line(fr, line); herr != nil {
		return herr
	}
	exc, _ := value.AsException(err)
	if herr := th.raised(fr, line, exc); herr != nil {
		return herr
	}
	return err
}

func (th *thread) exec(fr *Frame, s syntax.Stmt) (flow, error) {
	if err := th.Check(); err != nil {
		return flowNext, err
	}
	line := s.Position().Line
	fr.Line = line

	switch s := s.(type) {
	case *syntax.If:
		return th.execIf(fr, s)
	case *syntax.While:
		return th.execWhile(fr, s)
	case *syntax.For:
		return th.execFor(fr, s)
	case *syntax.Try:
		return th.execTry(fr, s)
	case *syntax.Global, *syntax.Nonlocal:
		return flowNext, nil
	}

	f, err := th.simple(fr, s)
	if err != nil {
		return flowNext, th.fail(fr, line, err)
	}
	if err := th.line(fr, line); err != nil {
		return flowNext, err
	}
	return f, nil
}

// simple executes a statement with no nested block.
func (th *thread) simple(fr *Frame, s syntax.Stmt) (flow, error) {
	switch s := s.(type) {
	case *syntax.ExprStmt:
		_, err := th.eval(fr, s.X)
		return flowNext, err

	case *syntax.Assign:
		v, err := th.eval(fr, s.Value)
		if err != nil {
			return flowNext, err
		}
		for _, t := range s.Targets {
			if err := th.assign(fr, t, v); err != nil {
				return flowNext, err
			}
		}
		return flowNext, nil

	case *syntax.GuardedInPlace:
		return flowNext, th.execInPlace(fr, s)

	case *syntax.Pass:
		return flowNext, nil
	case *syntax.Break:
		return flowBreak, nil
	case *syntax.Continue:
		return flowContinue, nil

	case *syntax.Return:
		fr.retval = value.None
		if s.Value != nil {
			v, err := th.eval(fr, s.Value)
			if err != nil {
				return flowNext, err
			}
			fr.retval = v
		}
		return flowReturn, nil

	case *syntax.FuncDef:
		fn, err := th.makeFunction(fr, s.Name, s.Line, s.Params, s.Vararg, s.Scope)
		if err != nil {
			return flowNext, err
		}
		fn.body = s.Body
		th.store(fr.env, s.Name, fn)
		return flowNext, nil

	case *syntax.Import:
		for _, a := range s.Names {
			m, err := th.catalog.Import(a.Name)
			if err != nil {
				return flowNext, err
			}
			th.store(fr.env, a.Bound(), m)
		}
		return flowNext, nil

	case *syntax.ImportFrom:
		for _, a := range s.Names {
			v, err := th.catalog.ImportFrom(s.Module, a.Name)
			if err != nil {
				return flowNext, err
			}
			th.store(fr.env, a.Bound(), v)
		}
		return flowNext, nil

	case *syntax.Raise:
		return flowNext, th.execRaise(fr, s)

	case *syntax.Assert:
		v, err := th.eval(fr, s.Test)
		if err != nil || v.Truth() {
			return flowNext, err
		}
		if s.Msg == nil {
			return flowNext, value.NewException(value.AssertionError)
		}
		msg, err := th.eval(fr, s.Msg)
		if err != nil {
			return flowNext, err
		}
		return flowNext, value.NewException(value.AssertionError, msg)

	case *syntax.Delete:
		for _, t := range s.Targets {
			if err := th.delete(fr, t); err != nil {
				return flowNext, err
			}
		}
		return flowNext, nil
	}
	return flowNext, value.Errorf(value.RuntimeError, "unsupported statement %T", s)
}

func (th *thread) execIf(fr *Frame, s *syntax.If) (flow, error) {
	test, err := th.eval(fr, s.Test)
	if err != nil {
		return flowNext, th.fail(fr, s.Line, err)
	}
	if err := th.line(fr, s.Line); err != nil {
		return flowNext, err
	}
	if test.Truth() {
		return th.execBlock(fr, s.Body)
	}
	return th.execBlock(fr, s.Else)
}

func (th *thread) execWhile(fr *Frame, s *syntax.While) (flow, error) {
	for {
		if err := th.Check(); err != nil {
			return flowNext, err
		}
		test, err := th.eval(fr, s.Test)
		if err != nil {
			return flowNext, th.fail(fr, s.Line, err)
		}
		if err := th.line(fr, s.Line); err != nil {
			return flowNext, err
		}
		if !test.Truth() {
			return th.execBlock(fr, s.Else)
		}
		f, err := th.execBlock(fr, s.Body)
		if err != nil {
			return flowNext, err
		}
		switch f {
		case flowBreak:
			return flowNext, nil
		case flowReturn:
			return f, nil
		}
	}
}

func (th *thread) execFor(fr *Frame, s *syntax.For) (flow, error) {
	x, err := th.eval(fr, s.Iter)
	if err != nil {
		return flowNext, th.fail(fr, s.Line, err)
	}
	it := x.(*value.Iterator)
	for {
		if err := th.Check(); err != nil {
			return flowNext, err
		}
		e, ok, err := it.Next(th)
		if err == nil && ok {
			err = th.assign(fr, s.Target, e)
		}
		if err != nil {
			return flowNext, th.fail(fr, s.Line, err)
		}
		if err := th.line(fr, s.Line); err != nil {
			return flowNext, err
		}
		if !ok {
			return th.execBlock(fr, s.Else)
		}
		f, err := th.execBlock(fr, s.Body)
		if err != nil {
			return flowNext, err
		}
		switch f {
		case flowBreak:
			return flowNext, nil
		case flowReturn:
			return f, nil
		}
	}
}

func (th *thread) execTry(fr *Frame, s *syntax.Try) (flow, error) {
	f, err := th.execBlock(fr, s.Body)
	if err == nil && f == flowNext {
		f, err = th.execBlock(fr, s.Else)
	} else if exc, ok := value.AsException(err); ok {
		f, err = th.handle(fr, s.Handlers, exc)
	}
	if IsHalt(err) || len(s.Finally) == 0 {
		return f, err
	}
	ff, ferr := th.execBlock(fr, s.Finally)
	if ferr != nil || ff != flowNext {
		return ff, ferr
	}
	return f, err
}

// handle runs the first except clause matching exc, or re-raises it.
func (th *thread) handle(fr *Frame, handlers []*syntax.Handler, exc *value.Exception) (flow, error) {
	for _, h := range handlers {
		match, err := th.matches(fr, h, exc)
		if err != nil {
			return flowNext, th.fail(fr, h.Line, err)
		}
		if !match {
			continue
		}
		fr.reported = nil
		if h.Name != "" {
			th.store(fr.env, h.Name, exc)
		}
		if err := th.line(fr, h.Line); err != nil {
			return flowNext, err
		}
		fr.handling = append(fr.handling, exc)
		f, err := th.execBlock(fr, h.Body)
		fr.handling = fr.handling[:len(fr.handling)-1]
		if h.Name != "" && err == nil {
			_ = th.owner(fr.env, h.Name).del(h.Name)
		}
		return f, err
	}
	return flowNext, exc
}

func (th *thread) matches(fr *Frame, h *syntax.Handler, exc *value.Exception) (bool, error) {
	if h.Type == nil {
		return true, nil
	}
	t, err := th.eval(fr, h.Type)
	if err != nil {
		return false, err
	}
	classes := []value.Value{t}
	if tup, ok := t.(value.Tuple); ok {
		classes = tup
	}
	for _, c := range classes {
		cls, ok := c.(*value.Class)
		if !ok || !value.IsExceptionClass(cls) {
			return false, value.Errorf(value.TypeError, "catching classes that do not inherit from BaseException is not allowed")
		}
		if exc.Class.IsSubclass(cls) {
			return true, nil
		}
	}
	return false, nil
}

func (th *thread) execRaise(fr *Frame, s *syntax.Raise) error {
	if s.Exc == nil {
		if n := len(fr.handling); n > 0 {
			return fr.handling[n-1]
		}
		return value.Errorf(value.RuntimeError, "No active exception to reraise")
	}
	exc, err := th.exception(fr, s.Exc)
	if err != nil {
		return err
	}
	if s.Cause != nil {
		cause, err := th.eval(fr, s.Cause)
		if err != nil {
			return err
		}
		if !value.IsNone(cause) {
			c, err := th.toException(cause)
			if err != nil {
				return err
			}
			exc.Cause = c
		}
	}
	return exc
}

func (th *thread) exception(fr *Frame, x syntax.Expr) (*value.Exception, error) {
	v, err := th.eval(fr, x)
	if err != nil {
		return nil, err
	}
	return th.toException(v)
}

// toException accepts an exception instance or an exception class, which
// is instantiated with no arguments.
func (th *thread) toException(v value.Value) (*value.Exception, error) {
	switch v := v.(type) {
	case *value.Exception:
		return v, nil
	case *value.Class:
		if value.IsExceptionClass(v) {
			inst, err := v.Call(th, nil, nil)
			if err != nil {
				return nil, err
			}
			return inst.(*value.Exception), nil
		}
	}
	return nil, value.Errorf(value.TypeError, "exceptions must derive from BaseException")
}

func (th *thread) execInPlace(fr *Frame, s *syntax.GuardedInPlace) error {
	switch t := s.Target.(type) {
	case *syntax.Name:
		cur, err := th.lookup(fr.env, t.Id)
		if err != nil {
			return err
		}
		rhs, err := th.eval(fr, s.Value)
		if err != nil {
			return err
		}
		v, err := th.guard.InPlace(th, s.Op, cur, rhs)
		if err != nil {
			return err
		}
		th.store(fr.env, t.Id, v)
		return nil
	case *syntax.GuardedStoreItem:
		obj, err := th.eval(fr, t.X)
		if err != nil {
			return err
		}
		key, err := th.index(fr, t.Index)
		if err != nil {
			return err
		}
		cur, err := th.guard.GetItem(th, obj, key)
		if err != nil {
			return err
		}
		rhs, err := th.eval(fr, s.Value)
		if err != nil {
			return err
		}
		v, err := th.guard.InPlace(th, s.Op, cur, rhs)
		if err != nil {
			return err
		}
		return th.guard.SetItem(th, obj, key, v)
	}
	return value.Errorf(value.RuntimeError, "unsupported augmented assignment target %T", s.Target)
}

// assign binds v to an assignment or loop target.
func (th *thread) assign(fr *Frame, target syntax.Expr, v value.Value) error {
	switch t := target.(type) {
	case *syntax.Name:
		th.store(fr.env, t.Id, v)
		return nil
	case *syntax.GuardedUnpack:
		vals, err := th.guard.Unpack(th, v, len(t.Targets))
		if err != nil {
			return err
		}
		for i, sub := range t.Targets {
			if err := th.assign(fr, sub, vals[i]); err != nil {
				return err
			}
		}
		return nil
	case *syntax.GuardedStoreItem:
		obj, err := th.eval(fr, t.X)
		if err != nil {
			return err
		}
		key, err := th.index(fr, t.Index)
		if err != nil {
			return err
		}
		return th.guard.SetItem(th, obj, key, v)
	}
	return value.Errorf(value.RuntimeError, "unsupported assignment target %T", target)
}

func (th *thread) delete(fr *Frame, target syntax.Expr) error {
	switch t := target.(type) {
	case *syntax.Name:
		return th.unbind(fr.env, t.Id)
	case *syntax.GuardedDelItem:
		obj, err := th.eval(fr, t.X)
		if err != nil {
			return err
		}
		key, err := th.index(fr, t.Index)
		if err != nil {
			return err
		}
		return th.guard.DelItem(th, obj, key)
	}
	return value.Errorf(value.RuntimeError, "unsupported delete target %T", target)
}
