package value

import (
	"math"
	"strconv"
	"strings"
	"sync"
)

// Built-in type objects. Like the exception classes they are assigned in
// init, since their constructors refer back to them.
var (
	TypeType      *Class
	NoneClass     *Class
	IntType       *Class
	BoolType      *Class
	FloatType     *Class
	StrType       *Class
	ListType      *Class
	TupleType     *Class
	DictType      *Class
	SetType       *Class
	FrozensetType *Class
	RangeType     *Class
	SliceType     *Class

	CounterType     *Class
	DefaultDictType *Class
	OrderedDictType *Class
	DequeType       *Class
)

func init() {
	Object.New = newObject
	TypeType = NewClass("type", Object, newType)
	NoneClass = NewClass("NoneType", Object, nil)
	IntType = NewClass("int", Object, newInt)
	BoolType = NewClass("bool", IntType, newBool)
	FloatType = NewClass("float", Object, newFloat)
	StrType = NewClass("str", Object, newStr)
	ListType = NewClass("list", Object, newList)
	TupleType = NewClass("tuple", Object, newTuple)
	DictType = NewClass("dict", Object, newDict)
	SetType = NewClass("set", Object, newSet)
	FrozensetType = NewClass("frozenset", Object, newSet)
	RangeType = NewClass("range", Object, newRange)
	SliceType = NewClass("slice", Object, nil)

	CounterType = NewClass("Counter", DictType, newCounter)
	DefaultDictType = NewClass("defaultdict", DictType, newDefaultDict)
	OrderedDictType = NewClass("OrderedDict", DictType, newOrderedDict)
	DequeType = NewClass("deque", Object, newDeque)

	DictType.SetAttr("fromkeys", NewBuiltin("fromkeys", dictFromKeys))
	CounterType.SetAttr("fromkeys", NewBuiltin("fromkeys", func(Thread, Value, []Value, []Kwarg) (Value, error) {
		return nil, Errorf(NotImplementedError, "Counter.fromkeys() is undefined.  Use Counter(iterable) instead.")
	}))
	StrType.SetAttr("maketrans", NewBuiltin("maketrans", strMakeTrans))
}

var dynamicClasses sync.Map // type name -> *Class

// ClassOf returns the type object of v, as type(v) would.
func ClassOf(v Value) *Class {
	switch v := v.(type) {
	case nil, NoneType:
		return NoneClass
	case Bool:
		return BoolType
	case Int:
		return IntType
	case Float:
		return FloatType
	case Str:
		return StrType
	case Tuple:
		return TupleType
	case *List:
		if v.IsDeque() {
			return DequeType
		}
		return ListType
	case *Dict:
		switch v.Tag {
		case "Counter":
			return CounterType
		case "defaultdict":
			return DefaultDictType
		case "OrderedDict":
			return OrderedDictType
		}
		return DictType
	case *Set:
		if v.Frozen {
			return FrozensetType
		}
		return SetType
	case Range:
		return RangeType
	case SliceValue:
		return SliceType
	case *Class:
		return TypeType
	case *Exception:
		return v.Class
	}
	name := v.Type()
	if c, ok := dynamicClasses.Load(name); ok {
		return c.(*Class)
	}
	c, _ := dynamicClasses.LoadOrStore(name, NewClass(name, Object, nil))
	return c.(*Class)
}

// IsInstance reports whether v is an instance of cls or a subclass.
func IsInstance(v Value, cls *Class) bool {
	return ClassOf(v).IsSubclass(cls)
}

// objectValue is the featureless instance returned by object().
type objectValue struct{ _ byte }

func (*objectValue) Type() string { return "object" }
func (*objectValue) Truth() bool  { return true }

func newObject(_ Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	if len(args) > 0 || len(kwargs) > 0 {
		return nil, Errorf(TypeError, "object() takes no arguments")
	}
	return &objectValue{}, nil
}

func newType(_ Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	if len(args) != 1 || len(kwargs) > 0 {
		return nil, Errorf(TypeError, "type() takes 1 argument")
	}
	return ClassOf(args[0]), nil
}

func newBool(_ Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value = False
	if err := UnpackArgs("bool", args, kwargs, ArgSpec{"x?", &x}); err != nil {
		return nil, err
	}
	return Bool(x.Truth()), nil
}

func newInt(_ Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x, base Value
	if err := UnpackArgs("int", args, kwargs, ArgSpec{"x?", &x}, ArgSpec{"base?", &base}); err != nil {
		return nil, err
	}
	if x == nil {
		if base != nil {
			return nil, Errorf(TypeError, "int() missing string argument")
		}
		return Int(0), nil
	}
	if base != nil {
		s, ok := x.(Str)
		if !ok {
			return nil, Errorf(TypeError, "int() can't convert non-string with explicit base")
		}
		b, err := AsInt(base)
		if err != nil {
			return nil, err
		}
		if b != 0 && (b < 2 || b > 36) {
			return nil, Errorf(ValueError, "int() base must be >= 2 and <= 36, or 0")
		}
		return ParseInt(string(s), int(b))
	}
	switch v := x.(type) {
	case Int:
		return v, nil
	case Bool:
		n, _ := AsInt(v)
		return Int(n), nil
	case Float:
		return FloatToInt(float64(v))
	case Str:
		return ParseInt(string(v), 10)
	}
	return nil, Errorf(TypeError, "int() argument must be a string or a real number, not '%s'", TypeName(x))
}

// ParseInt parses an integer literal the way int(s, base) does.
func ParseInt(s string, base int) (Value, error) {
	invalid := Errorf(ValueError, "invalid literal for int() with base %d: %s", base, Quote(s))
	t := strings.TrimSpace(s)
	neg := false
	if t != "" && (t[0] == '+' || t[0] == '-') {
		neg, t = t[0] == '-', t[1:]
	}
	lower := strings.ToLower(t)
	prefixed := func(p string, b int) bool {
		if (base == 0 || base == b) && strings.HasPrefix(lower, p) {
			t = strings.TrimPrefix(t[len(p):], "_")
			base = b
			return true
		}
		return false
	}
	if !prefixed("0x", 16) && !prefixed("0o", 8) && !prefixed("0b", 2) && base == 0 {
		base = 10
		if len(t) > 1 && t[0] == '0' && strings.Trim(t, "0_") != "" {
			return nil, invalid
		}
	}
	if t == "" || t[0] == '_' || t[len(t)-1] == '_' || strings.Contains(t, "__") {
		return nil, invalid
	}
	t = strings.ReplaceAll(t, "_", "")
	u, err := strconv.ParseUint(t, base, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return nil, overflow()
		}
		return nil, invalid
	}
	if neg {
		if u > 1<<63 {
			return nil, overflow()
		}
		return Int(-int64(u)), nil
	}
	if u > math.MaxInt64 {
		return nil, overflow()
	}
	return Int(int64(u)), nil
}

func newFloat(_ Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value = Float(0)
	if err := UnpackArgs("float", args, kwargs, ArgSpec{"x?", &x}); err != nil {
		return nil, err
	}
	if s, ok := x.(Str); ok {
		return ParseFloat(string(s))
	}
	f, err := AsFloat(x)
	if err != nil {
		return nil, Errorf(TypeError, "float() argument must be a string or a real number, not '%s'", TypeName(x))
	}
	return Float(f), nil
}

// ParseFloat parses a float literal the way float(s) does.
func ParseFloat(s string) (Value, error) {
	t := strings.TrimSpace(s)
	invalid := Errorf(ValueError, "could not convert string to float: %s", Quote(s))
	lower := strings.ToLower(strings.TrimLeft(t, "+-"))
	switch lower {
	case "inf", "infinity", "nan":
	default:
		if t == "" || strings.ContainsAny(lower, "xp") || strings.Contains(t, "__") ||
			strings.HasPrefix(t, "_") || strings.HasSuffix(t, "_") ||
			strings.Contains(t, "_.") || strings.Contains(t, "._") {
			return nil, invalid
		}
		t = strings.ReplaceAll(t, "_", "")
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Float(f), nil
		}
		return nil, invalid
	}
	return Float(f), nil
}

func newStr(_ Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value = Str("")
	if err := UnpackArgs("str", args, kwargs, ArgSpec{"object?", &x}); err != nil {
		return nil, err
	}
	return Str(ToStr(x)), nil
}

func newList(th Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := NoKwargs("list", kwargs); err != nil {
		return nil, err
	}
	if err := ArgCount("list", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return NewList(nil), nil
	}
	elems, err := Collect(th, args[0])
	if err != nil {
		return nil, err
	}
	return NewList(elems), nil
}

func newTuple(th Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := NoKwargs("tuple", kwargs); err != nil {
		return nil, err
	}
	if err := ArgCount("tuple", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Tuple{}, nil
	}
	if t, ok := args[0].(Tuple); ok {
		return t, nil
	}
	elems, err := Collect(th, args[0])
	if err != nil {
		return nil, err
	}
	return Tuple(elems), nil
}

func newSet(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	cls := recv.(*Class)
	if err := NoKwargs(cls.ClassName, kwargs); err != nil {
		return nil, err
	}
	if err := ArgCount(cls.ClassName, args, 0, 1); err != nil {
		return nil, err
	}
	frozen := cls == FrozensetType
	if len(args) == 0 {
		s := NewSet()
		s.Frozen = frozen
		return s, nil
	}
	elems, err := Collect(th, args[0])
	if err != nil {
		return nil, err
	}
	return SetOf(elems, frozen)
}

func newDict(th Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := ArgCount("dict", args, 0, 1); err != nil {
		return nil, err
	}
	d := NewDict()
	var src Value
	if len(args) == 1 {
		src = args[0]
	}
	if err := UpdateDict(th, d, src, kwargs); err != nil {
		return nil, err
	}
	return d, nil
}

func dictFromKeys(th Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	var keys Value
	var v Value = None
	if err := UnpackArgs("fromkeys", args, kwargs, ArgSpec{"iterable", &keys}, ArgSpec{"value?", &v}); err != nil {
		return nil, err
	}
	elems, err := Collect(th, keys)
	if err != nil {
		return nil, err
	}
	d := NewDict()
	for _, k := range elems {
		if err := d.Set(k, v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func newRange(_ Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := NoKwargs("range", kwargs); err != nil {
		return nil, err
	}
	if err := ArgCount("range", args, 1, 3); err != nil {
		return nil, err
	}
	ints := make([]int64, len(args))
	for i, a := range args {
		n, err := AsInt(a)
		if err != nil {
			return nil, err
		}
		ints[i] = n
	}
	r := Range{Step: 1}
	switch len(ints) {
	case 1:
		r.Stop = ints[0]
	case 2:
		r.Start, r.Stop = ints[0], ints[1]
	case 3:
		r.Start, r.Stop, r.Step = ints[0], ints[1], ints[2]
		if r.Step == 0 {
			return nil, Errorf(ValueError, "range() arg 3 must not be zero")
		}
	}
	return r, nil
}

func newCounter(th Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := ArgCount("Counter", args, 0, 1); err != nil {
		return nil, err
	}
	d := NewDict()
	d.Tag = "Counter"
	var src Value
	if len(args) == 1 {
		src = args[0]
	}
	if err := CounterUpdate(th, d, src, kwargs, 1); err != nil {
		return nil, err
	}
	return d, nil
}

// CounterUpdate adds (sign 1) or subtracts (sign -1) counts from an
// iterable of elements or a mapping of counts.
func CounterUpdate(th Thread, d *Dict, src Value, kwargs []Kwarg, sign int64) error {
	bump := func(k Value, by Value) error {
		n, err := AsInt(by)
		if err != nil {
			return err
		}
		cur, ok, err := d.Get(k)
		if err != nil {
			return err
		}
		var c int64
		if ok {
			if c, err = AsInt(cur); err != nil {
				return err
			}
		}
		r, err := arith("+", num{i: c}, num{i: sign * n})
		if err != nil {
			return err
		}
		return d.Set(k, r)
	}
	switch s := src.(type) {
	case nil:
	case *Dict:
		for i := range s.keys {
			if err := bump(s.keys[i], s.vals[i]); err != nil {
				return err
			}
		}
	default:
		it, err := Iterate(th, src)
		if err != nil {
			return err
		}
		for {
			e, ok, err := it.Next(th)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := bump(e, Int(1)); err != nil {
				return err
			}
		}
	}
	for _, kw := range kwargs {
		if err := bump(Str(kw.Name), kw.Value); err != nil {
			return err
		}
	}
	return nil
}

func newDefaultDict(th Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	d := NewDict()
	d.Tag = "defaultdict"
	d.Default = None
	if len(args) > 0 {
		f := args[0]
		if !IsNone(f) && !IsCallable(f) {
			return nil, Errorf(TypeError, "first argument must be callable or None")
		}
		d.Default = f
		args = args[1:]
	}
	if err := ArgCount("defaultdict", args, 0, 1); err != nil {
		return nil, err
	}
	var src Value
	if len(args) == 1 {
		src = args[0]
	}
	if err := UpdateDict(th, d, src, kwargs); err != nil {
		return nil, err
	}
	return d, nil
}

// IsCallable implements callable().
func IsCallable(v Value) bool {
	switch v.(type) {
	case *Builtin, *Class:
		return true
	case *Module:
		return false
	}
	_, ok := v.(Callable)
	return ok
}

func newOrderedDict(th Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	v, err := newDict(th, nil, args, kwargs)
	if err != nil {
		return nil, err
	}
	d := v.(*Dict)
	d.Tag = "OrderedDict"
	return d, nil
}

func newDeque(th Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	var src, maxlen Value
	if err := UnpackArgs("deque", args, kwargs, ArgSpec{"iterable?", &src}, ArgSpec{"maxlen?", &maxlen}); err != nil {
		return nil, err
	}
	l := &List{Tag: "deque"}
	if !IsNone(maxlen) {
		n, err := AsInt(maxlen)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, Errorf(ValueError, "maxlen must be non-negative")
		}
		l.MaxLen = int(n)
		if n == 0 {
			l.MaxLen = -1
		}
	}
	if src != nil {
		elems, err := Collect(th, src)
		if err != nil {
			return nil, err
		}
		for _, e := range elems {
			if err := l.Append(e); err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}
