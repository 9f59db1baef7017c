package interp

import (
	"fmt"
	"strings"

	"github.com/roach88/stepwise/internal/syntax"
	"github.com/roach88/stepwise/internal/value"
)

// Function is a user-defined function or lambda.
type Function struct {
	name     string
	line     int
	params   []*syntax.Param
	defaults []value.Value // parallel to params; nil where there is no default
	vararg   string
	body     []syntax.Stmt // def
	expr     syntax.Expr   // lambda
	scope    *syntax.Scope
	closure  *env
}

var (
	_ value.Callable = (*Function)(nil)
	_ value.Reprer   = (*Function)(nil)
)

func (*Function) Type() string   { return "function" }
func (*Function) Truth() bool    { return true }
func (f *Function) Name() string { return f.name }
func (f *Function) Repr() string { return fmt.Sprintf("<function %s>", f.name) }

func (th *thread) makeFunction(fr *Frame, name string, line int, params []*syntax.Param, vararg string, scope *syntax.Scope) (*Function, error) {
	fn := &Function{
		name:     name,
		line:     line,
		params:   params,
		defaults: make([]value.Value, len(params)),
		vararg:   vararg,
		scope:    scope,
		closure:  fr.env,
	}
	for i, p := range params {
		if p.Default == nil {
			continue
		}
		v, err := th.eval(fr, p.Default)
		if err != nil {
			return nil, err
		}
		fn.defaults[i] = v
	}
	return fn, nil
}

// bind assigns call arguments to parameters, in parameter order.
func (f *Function) bind(args []value.Value, kwargs []value.Kwarg) (*namespace, error) {
	vals := make([]value.Value, len(f.params))
	positional := 0
	for _, p := range f.params {
		if !p.KwOnly {
			positional++
		}
	}
	var extra value.Tuple
	for i, a := range args {
		if i < positional {
			vals[i] = a
			continue
		}
		if f.vararg == "" {
			return nil, value.Errorf(value.TypeError, "%s() takes %d positional argument%s but %d %s given",
				f.name, positional, plural(positional), len(args), wasWere(len(args)))
		}
		extra = append(extra, a)
	}
	for _, kw := range kwargs {
		i := f.paramIndex(kw.Name)
		if i < 0 {
			return nil, value.Errorf(value.TypeError, "%s() got an unexpected keyword argument '%s'", f.name, kw.Name)
		}
		if vals[i] != nil {
			return nil, value.Errorf(value.TypeError, "%s() got multiple values for argument '%s'", f.name, kw.Name)
		}
		vals[i] = kw.Value
	}
	var missing []string
	for i, p := range f.params {
		if vals[i] == nil {
			if f.defaults[i] == nil {
				missing = append(missing, "'"+p.Name+"'")
				continue
			}
			vals[i] = f.defaults[i]
		}
	}
	if len(missing) > 0 {
		return nil, value.Errorf(value.TypeError, "%s() missing %d required argument%s: %s",
			f.name, len(missing), plural(len(missing)), joinNames(missing))
	}

	ns := newNamespace()
	for i, p := range f.params {
		ns.set(p.Name, vals[i])
	}
	if f.vararg != "" {
		if extra == nil {
			extra = value.Tuple{}
		}
		ns.set(f.vararg, extra)
	}
	return ns, nil
}

func (f *Function) paramIndex(name string) int {
	for i, p := range f.params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}

// joinNames renders 'a', 'b' and 'c'.
func joinNames(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

// callFunction runs a user function in a new frame.
func (th *thread) callFunction(f *Function, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := th.Check(); err != nil {
		return nil, err
	}
	caller := th.current()
	if caller.Depth >= th.maxDepth {
		return nil, value.Errorf(value.RecursionError, "maximum recursion depth exceeded")
	}
	locals, err := f.bind(args, kwargs)
	if err != nil {
		return nil, err
	}
	fr := &Frame{
		Function: f.name,
		Depth:    caller.Depth + 1,
		Line:     f.line,
		locals:   locals,
		globals:  th.globals,
		env:      &env{scope: f.scope, vars: locals, parent: f.closure},
		retval:   value.None,
	}
	th.frames = append(th.frames, fr)
	defer func() { th.frames = th.frames[:len(th.frames)-1] }()

	if err := th.hook.OnCall(fr); err != nil {
		return nil, th.halt(err)
	}

	var result value.Value = value.None
	if f.body != nil {
		flow, err := th.execBlock(fr, f.body)
		if err != nil {
			return nil, th.unwind(fr, err)
		}
		if flow == flowReturn {
			result = fr.retval
		}
	} else {
		v, err := th.eval(fr, f.expr)
		if err != nil {
			if exc, ok := value.AsException(err); ok {
				if herr := th.raised(fr, fr.Line, exc); herr != nil {
					return nil, herr
				}
			}
			return nil, th.unwind(fr, err)
		}
		result = v
	}
	if err := th.hook.OnReturn(fr, result); err != nil {
		return nil, th.halt(err)
	}
	return result, nil
}

// unwind reports the return of a frame left by exception. Halts pass
// through without further observation.
func (th *thread) unwind(fr *Frame, err error) error {
	if IsHalt(err) {
		return err
	}
	if herr := th.hook.OnReturn(fr, value.None); herr != nil {
		return th.halt(herr)
	}
	return err
}

// halt wraps a hook error so it cannot be mistaken for a script exception.
func (th *thread) halt(err error) error {
	if _, ok := err.(*HaltError); ok {
		return err
	}
	return &HaltError{Cause: err}
}
