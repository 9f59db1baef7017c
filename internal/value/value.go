// Package value is the runtime object model of the dialect: scalars,
// containers, callables, classes and exceptions, together with the
// protocols (repr, equality, ordering, hashing, arithmetic, iteration,
// formatting, attribute and item access) that the evaluator and the
// built-in catalog share.
package value

import "math/rand"

// Value is any script-visible object.
type Value interface {
	// Type returns the script-level type name, as type(x).__name__ would.
	Type() string
	// Truth reports the object's truth value.
	Truth() bool
}

// Kwarg is a keyword argument at a call site.
type Kwarg struct {
	Name  string
	Value Value
}

// Thread is the view of the running interpreter that built-ins and
// protocols may use: calling back into script callables, writing to the
// captured output, polling the safepoint, and drawing random numbers.
type Thread interface {
	Call(fn Value, args []Value, kwargs []Kwarg) (Value, error)
	Print(s string) error
	// Check returns a non-nil error when the run must stop (deadline,
	// cancellation, step limit). The error is not catchable by scripts.
	Check() error
	Rand() *rand.Rand
}

// MaxContainerLen bounds the element count of any container or string a
// script can build; exceeding it raises MemoryError.
const MaxContainerLen = 10_000_000

// ---- scalars ----

// NoneType is the type of None.
type NoneType struct{}

// None is the singleton None value.
var None Value = NoneType{}

func (NoneType) Type() string { return "NoneType" }
func (NoneType) Truth() bool  { return false }

type Bool bool

const (
	True  Bool = true
	False Bool = false
)

func (Bool) Type() string  { return "bool" }
func (b Bool) Truth() bool { return bool(b) }

// Int is a 64-bit signed integer; arithmetic that leaves the range raises
// OverflowError.
type Int int64

func (Int) Type() string  { return "int" }
func (i Int) Truth() bool { return i != 0 }

type Float float64

func (Float) Type() string  { return "float" }
func (f Float) Truth() bool { return f != 0 }

type Str string

func (Str) Type() string  { return "str" }
func (s Str) Truth() bool { return len(s) > 0 }

// ---- containers ----

// Tuple is an immutable sequence.
type Tuple []Value

func (Tuple) Type() string  { return "tuple" }
func (t Tuple) Truth() bool { return len(t) > 0 }

// List is a mutable sequence. Tag "deque" marks a collections.deque, which
// shares the representation and adds MaxLen.
type List struct {
	Elems []Value
	Tag   string
	// MaxLen bounds a deque: 0 is unbounded, -1 is maxlen=0.
	MaxLen int
}

// NewList returns a list holding elems (not copied).
func NewList(elems []Value) *List { return &List{Elems: elems} }

func (l *List) Type() string {
	if l.Tag != "" {
		return l.Tag
	}
	return "list"
}
func (l *List) Truth() bool { return len(l.Elems) > 0 }

// IsDeque reports whether l is a collections.deque.
func (l *List) IsDeque() bool { return l.Tag == "deque" }

// Append adds v, dropping from the left when a bounded deque is full.
func (l *List) Append(v Value) error {
	if len(l.Elems) >= MaxContainerLen {
		return memoryError()
	}
	l.Elems = append(l.Elems, v)
	l.trim()
	return nil
}

// Bound returns the deque's maxlen, if any.
func (l *List) Bound() (int, bool) {
	switch {
	case l.MaxLen > 0:
		return l.MaxLen, true
	case l.MaxLen < 0:
		return 0, true
	}
	return 0, false
}

// trim drops elements from the left beyond the deque's bound.
func (l *List) trim() {
	if n, ok := l.Bound(); ok && len(l.Elems) > n {
		l.Elems = l.Elems[len(l.Elems)-n:]
	}
}

// Range is an immutable arithmetic progression.
type Range struct {
	Start, Stop, Step int64
}

func (Range) Type() string  { return "range" }
func (r Range) Truth() bool { return r.Len() > 0 }

// Len returns the number of elements of r.
func (r Range) Len() int64 {
	switch {
	case r.Step > 0 && r.Start < r.Stop:
		return (r.Stop-r.Start-1)/r.Step + 1
	case r.Step < 0 && r.Start > r.Stop:
		return (r.Start-r.Stop-1)/(-r.Step) + 1
	}
	return 0
}

// At returns the i-th element (0 <= i < Len()).
func (r Range) At(i int64) Int { return Int(r.Start + i*r.Step) }

// SliceValue is the runtime form of a "lo:hi:step" subscript.
type SliceValue struct {
	Lo, Hi, Step Value
}

func (SliceValue) Type() string { return "slice" }
func (SliceValue) Truth() bool  { return true }

// ---- callables, modules, classes ----

// BuiltinFunc implements a built-in function or method. recv is the bound
// receiver for methods and nil otherwise.
type BuiltinFunc func(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error)

// Builtin is a function implemented by the runtime.
type Builtin struct {
	name string
	recv Value
	fn   BuiltinFunc
}

// NewBuiltin returns an unbound built-in.
func NewBuiltin(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{name: name, fn: fn}
}

func (b *Builtin) Type() string {
	return "builtin_function_or_method"
}
func (*Builtin) Truth() bool { return true }

// Bind returns a copy of b bound to recv.
func (b *Builtin) Bind(recv Value) *Builtin {
	return &Builtin{name: b.name, recv: recv, fn: b.fn}
}

// Receiver returns the bound receiver, or nil.
func (b *Builtin) Receiver() Value { return b.recv }

// Call invokes the built-in.
func (b *Builtin) Call(th Thread, args []Value, kwargs []Kwarg) (Value, error) {
	return b.fn(th, b.recv, args, kwargs)
}

// Callable is implemented by every value the evaluator can call.
type Callable interface {
	Value
	Name() string
}

func (b *Builtin) Name() string { return b.name }

// Module is an imported, read-only namespace.
type Module struct {
	name    string
	members map[string]Value
	order   []string
}

// NewModule builds a module from its members; names keep the given order.
func NewModule(name string, members []Member) *Module {
	m := &Module{name: name, members: make(map[string]Value, len(members))}
	for _, mb := range members {
		if _, dup := m.members[mb.Name]; !dup {
			m.order = append(m.order, mb.Name)
		}
		m.members[mb.Name] = mb.Value
	}
	return m
}

// Member is one named entry of a module.
type Member struct {
	Name  string
	Value Value
}

func (*Module) Type() string   { return "module" }
func (*Module) Truth() bool    { return true }
func (m *Module) Name() string { return m.name }

// Lookup returns a module member.
func (m *Module) Lookup(name string) (Value, bool) {
	v, ok := m.members[name]
	return v, ok
}

// Names returns the member names in declaration order.
func (m *Module) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Class is a type object: a built-in type or an exception class. Calling it
// constructs an instance through New.
type Class struct {
	ClassName string
	Base      *Class
	New       BuiltinFunc
	attrs     map[string]Value
}

// NewClass declares a class.
func NewClass(name string, base *Class, ctor BuiltinFunc) *Class {
	return &Class{ClassName: name, Base: base, New: ctor}
}

func (*Class) Type() string   { return "type" }
func (*Class) Truth() bool    { return true }
func (c *Class) Name() string { return c.ClassName }

// SetAttr attaches a class-level attribute (e.g. dict.fromkeys). It is
// only used while the catalog is being built.
func (c *Class) SetAttr(name string, v Value) {
	if c.attrs == nil {
		c.attrs = map[string]Value{}
	}
	c.attrs[name] = v
}

// Attr returns a class-level attribute.
func (c *Class) Attr(name string) (Value, bool) {
	v, ok := c.attrs[name]
	return v, ok
}

// IsSubclass reports whether c is other or derives from it.
func (c *Class) IsSubclass(other *Class) bool {
	for k := c; k != nil; k = k.Base {
		if k == other {
			return true
		}
	}
	return false
}

// Call constructs an instance of c.
func (c *Class) Call(th Thread, args []Value, kwargs []Kwarg) (Value, error) {
	if c.New == nil {
		return nil, Errorf(TypeError, "cannot create '%s' instances", c.ClassName)
	}
	return c.New(th, c, args, kwargs)
}

// ---- iterators ----

// Iterator is a one-shot stream of values. Iterators are their own
// iterables.
type Iterator struct {
	kind string
	next func(th Thread) (Value, bool, error)
}

// NewIterator wraps next, which reports (value, true, nil) for each element
// and (nil, false, nil) when exhausted.
func NewIterator(kind string, next func(th Thread) (Value, bool, error)) *Iterator {
	return &Iterator{kind: kind, next: next}
}

func (it *Iterator) Type() string { return it.kind }
func (*Iterator) Truth() bool     { return true }

// Next advances the iterator. An exhausted iterator stays exhausted.
func (it *Iterator) Next(th Thread) (Value, bool, error) {
	if it.next == nil {
		return nil, false, nil
	}
	v, ok, err := it.next(th)
	if err != nil || !ok {
		it.next = nil
		return nil, false, err
	}
	return v, true, nil
}

// TypeName returns the script-level type name of v, tolerating nil.
func TypeName(v Value) string {
	if v == nil {
		return "NoneType"
	}
	return v.Type()
}

func memoryError() error {
	return Errorf(MemoryError, "container exceeds %d elements", MaxContainerLen)
}

// checkLen raises MemoryError when n elements would exceed the cap.
func checkLen(n int64) error {
	if n > MaxContainerLen || n < 0 {
		return memoryError()
	}
	return nil
}

// String makes values printable with %v in Go diagnostics.
func String(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return Repr(v)
}
