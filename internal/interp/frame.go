package interp

import (
	"sort"

	"github.com/roach88/stepwise/internal/syntax"
	"github.com/roach88/stepwise/internal/value"
)

// Binding is one visible variable.
type Binding struct {
	Name  string
	Value value.Value
}

// Frame is the activation record of the module body or of one user
// function call.
type Frame struct {
	// Function is the function name, or ModuleName at top level.
	Function string
	// Depth is the number of user frames below and including this one; 0
	// for the module frame.
	Depth int
	// Line is the line of the statement being executed.
	Line int

	locals  *namespace
	globals *namespace
	env     *env

	retval   value.Value
	reported *value.Exception
	handling []*value.Exception
}

// Bindings returns the frame's variables: the function's locals in
// binding order followed by the bound closure variables it reads or
// declares nonlocal, in name order. At top level they are the module
// globals.
func (fr *Frame) Bindings() []Binding {
	out := fr.locals.bindings()
	if fr.env == nil {
		return out
	}
	for _, name := range fr.env.closureNames() {
		if v, ok := fr.env.enclosing(name); ok {
			out = append(out, Binding{Name: name, Value: v})
		}
	}
	return out
}

// namespace is an insertion-ordered variable table.
type namespace struct {
	names []string
	vals  map[string]value.Value
}

func newNamespace() *namespace {
	return &namespace{vals: map[string]value.Value{}}
}

func (n *namespace) get(name string) (value.Value, bool) {
	v, ok := n.vals[name]
	return v, ok
}

func (n *namespace) set(name string, v value.Value) {
	if _, ok := n.vals[name]; !ok {
		n.names = append(n.names, name)
	}
	n.vals[name] = v
}

func (n *namespace) del(name string) bool {
	if _, ok := n.vals[name]; !ok {
		return false
	}
	delete(n.vals, name)
	for i, k := range n.names {
		if k == name {
			n.names = append(n.names[:i], n.names[i+1:]...)
			break
		}
	}
	return true
}

func (n *namespace) bindings() []Binding {
	out := make([]Binding, len(n.names))
	for i, k := range n.names {
		out[i] = Binding{Name: k, Value: n.vals[k]}
	}
	return out
}

// env is a lexical scope: a function activation or a comprehension. The
// module scope is represented by a nil env.
type env struct {
	scope  *syntax.Scope
	vars   *namespace
	parent *env
}

func (e *env) closureNames() []string {
	var names []string
	for name := range e.scope.Frees {
		names = append(names, name)
	}
	for name := range e.scope.Nonlocals {
		if !e.scope.Frees[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// enclosing finds the value of name in the nearest enclosing function
// scope that binds it.
func (e *env) enclosing(name string) (value.Value, bool) {
	for p := e.parent; p != nil; p = p.parent {
		if p.scope.Globals[name] {
			return nil, false
		}
		if p.scope.Locals[name] {
			return p.vars.get(name)
		}
	}
	return nil, false
}

// lookup resolves a name read: local, enclosing, global, then built-in.
func (th *thread) lookup(e *env, name string) (value.Value, error) {
	if e != nil && !e.scope.Globals[name] {
		if e.scope.Locals[name] {
			if v, ok := e.vars.get(name); ok {
				return v, nil
			}
			return nil, value.Errorf(value.UnboundLocalError, "cannot access local variable '%s' where it is not associated with a value", name)
		}
		for p := e.parent; p != nil; p = p.parent {
			if p.scope.Globals[name] {
				break
			}
			if p.scope.Locals[name] {
				if v, ok := p.vars.get(name); ok {
					return v, nil
				}
				return nil, value.Errorf(value.NameError, "cannot access free variable '%s' where it is not associated with a value in enclosing scope", name)
			}
		}
	}
	if v, ok := th.globals.get(name); ok {
		return v, nil
	}
	if v, ok := th.catalog.Builtin(name); ok {
		return v, nil
	}
	return nil, value.Errorf(value.NameError, "name '%s' is not defined", name)
}

// owner returns the namespace a store or delete of name targets.
func (th *thread) owner(e *env, name string) *namespace {
	if e == nil || e.scope.Globals[name] {
		return th.globals
	}
	if e.scope.Nonlocals[name] {
		for p := e.parent; p != nil; p = p.parent {
			if p.scope.Locals[name] {
				return p.vars
			}
		}
		return th.globals
	}
	return e.vars
}

func (th *thread) store(e *env, name string, v value.Value) {
	th.owner(e, name).set(name, v)
}

func (th *thread) unbind(e *env, name string) error {
	if th.owner(e, name).del(name) {
		return nil
	}
	if e != nil && e.scope.Locals[name] {
		return value.Errorf(value.UnboundLocalError, "cannot access local variable '%s' where it is not associated with a value", name)
	}
	return value.Errorf(value.NameError, "name '%s' is not defined", name)
}
