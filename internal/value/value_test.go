package value

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testThread calls built-ins and classes directly.
type testThread struct {
	out    strings.Builder
	checks int
	halt   error
}

func (t *testThread) Call(fn Value, args []Value, kwargs []Kwarg) (Value, error) {
	switch f := fn.(type) {
	case *Builtin:
		return f.Call(t, args, kwargs)
	case *Class:
		return f.Call(t, args, kwargs)
	}
	return nil, Errorf(TypeError, "'%s' object is not callable", TypeName(fn))
}

func (t *testThread) Print(s string) error { t.out.WriteString(s); return nil }

func (t *testThread) Check() error {
	t.checks++
	return t.halt
}

func (t *testThread) Rand() *rand.Rand { return rand.New(rand.NewSource(1)) }

func list(vals ...Value) *List { return NewList(vals) }

func dict(t *testing.T, kv ...Value) *Dict {
	t.Helper()
	d := NewDict()
	for i := 0; i < len(kv); i += 2 {
		require.NoError(t, d.Set(kv[i], kv[i+1]))
	}
	return d
}

func requireExc(t *testing.T, err error, cls *Class, msg string) {
	t.Helper()
	require.Error(t, err)
	exc, ok := AsException(err)
	require.True(t, ok, "not a script exception: %v", err)
	assert.Equal(t, cls.ClassName, exc.Class.ClassName)
	if msg != "" {
		assert.Equal(t, msg, exc.Message())
	}
}

func TestRepr(t *testing.T) {
	self := list(Int(1))
	self.Elems = append(self.Elems, self)
	frozen, err := SetOf([]Value{Int(1)}, true)
	require.NoError(t, err)
	counter := dict(t, Str("a"), Int(2))
	counter.Tag = "Counter"

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"none", None, "None"},
		{"bools", Tuple{True, False}, "(True, False)"},
		{"single tuple", Tuple{Int(1)}, "(1,)"},
		{"float integral", Float(3), "3.0"},
		{"float small", Float(1e-5), "1e-05"},
		{"float large", Float(1e16), "1e+16"},
		{"float tenth", Float(0.1), "0.1"},
		{"float nan", Float(math.NaN()), "nan"},
		{"float neg inf", Float(math.Inf(-1)), "-inf"},
		{"str quotes", Str("it's"), `"it's"`},
		{"str both quotes", Str(`it's "x"`), `'it\'s "x"'`},
		{"str escapes", Str("a\nb\t\x01"), `'a\nb\t\x01'`},
		{"list", list(Int(1), Str("x")), "[1, 'x']"},
		{"cycle", self, "[1, [...]]"},
		{"dict", dict(t, Str("k"), list()), "{'k': []}"},
		{"empty set", NewSet(), "set()"},
		{"frozenset", frozen, "frozenset({1})"},
		{"range", Range{0, 5, 1}, "range(0, 5)"},
		{"range step", Range{0, 5, 2}, "range(0, 5, 2)"},
		{"counter", counter, "Counter({'a': 2})"},
		{"deque", &List{Elems: []Value{Int(1)}, Tag: "deque", MaxLen: 3}, "deque([1], maxlen=3)"},
		{"exception", NewException(ValueError, Str("bad")), "ValueError('bad')"},
		{"class", IntType, "<class 'int'>"},
		{"builtin method", mustAttr(t, Str("x"), "upper"), "<built-in method upper of str object>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Repr(tt.v))
		})
	}
}

func mustAttr(t *testing.T, v Value, name string) Value {
	t.Helper()
	a, err := GetAttr(v, name)
	require.NoError(t, err)
	return a
}

func TestExceptionMessage(t *testing.T) {
	assert.Equal(t, "KeyError: 'missing'", NewException(KeyError, Str("missing")).Error())
	assert.Equal(t, "ValueError: bad", NewException(ValueError, Str("bad")).Error())
	assert.Equal(t, "StopIteration", NewException(StopIteration).Error())
	assert.Equal(t, "Exception: (1, 2)", NewException(ExceptionBase, Int(1), Int(2)).Error())
	assert.True(t, ZeroDivisionError.IsSubclass(ArithmeticError))
	assert.True(t, KeyError.IsSubclass(LookupError))
	assert.False(t, KeyError.IsSubclass(ArithmeticError))
}

func TestEqualityAndHashing(t *testing.T) {
	assert.True(t, Equal(Int(1), Float(1.0)))
	assert.True(t, Equal(True, Int(1)))
	assert.True(t, Equal(Tuple{Int(1), Str("a")}, Tuple{Float(1), Str("a")}))
	assert.False(t, Equal(list(Int(1)), Tuple{Int(1)}))
	assert.True(t, Equal(Range{0, 0, 1}, Range{5, 2, 3}))

	k1, err := HashKey(Int(1))
	require.NoError(t, err)
	k2, err := HashKey(Float(1))
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	_, err = HashKey(list())
	requireExc(t, err, TypeError, "unhashable type: 'list'")

	d := dict(t, Int(1), Str("one"))
	v, ok, err := d.Get(True)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Str("one"), v)
}

func TestCompare(t *testing.T) {
	lt, err := Compare("<", Tuple{Int(1), Int(2)}, Tuple{Int(1), Int(3)})
	require.NoError(t, err)
	assert.True(t, lt)

	lt, err = Compare("<", Str("abc"), Str("abd"))
	require.NoError(t, err)
	assert.True(t, lt)

	_, err = Compare("<", Int(1), Str("a"))
	requireExc(t, err, TypeError, "'<' not supported between instances of 'int' and 'str'")
}

func TestContains(t *testing.T) {
	th := &testThread{}
	in, err := Contains(th, Range{0, 10, 2}, Int(4))
	require.NoError(t, err)
	assert.True(t, in)
	in, err = Contains(th, Range{0, 10, 2}, Int(5))
	require.NoError(t, err)
	assert.False(t, in)
	in, err = Contains(th, Str("hello"), Str("ell"))
	require.NoError(t, err)
	assert.True(t, in)
	_, err = Contains(th, Str("hello"), Int(1))
	requireExc(t, err, TypeError, "'in <string>' requires string as left operand, not int")
	_, err = Contains(th, Int(3), Int(1))
	requireExc(t, err, TypeError, "argument of type 'int' is not iterable")
}

func TestBinaryArithmetic(t *testing.T) {
	th := &testThread{}
	tests := []struct {
		op   string
		x, y Value
		want Value
	}{
		{"+", Int(2), Int(3), Int(5)},
		{"-", Int(2), Int(3), Int(-1)},
		{"*", Int(4), Float(0.5), Float(2)},
		{"/", Int(7), Int(2), Float(3.5)},
		{"//", Int(-7), Int(2), Int(-4)},
		{"%", Int(-7), Int(2), Int(1)},
		{"%", Int(7), Int(-2), Int(-1)},
		{"**", Int(2), Int(10), Int(1024)},
		{"**", Int(2), Int(-1), Float(0.5)},
		{"<<", Int(1), Int(4), Int(16)},
		{">>", Int(-16), Int(2), Int(-4)},
		{"&", Int(6), Int(3), Int(2)},
		{"|", True, False, True},
		{"+", True, True, Int(2)},
		{"//", Float(7), Int(2), Float(3)},
		{"%", Float(-1), Int(3), Float(2)},
		{"+", Str("ab"), Str("cd"), Str("abcd")},
		{"*", Str("ab"), Int(3), Str("ababab")},
		{"*", Int(2), Tuple{Int(1)}, Tuple{Int(1), Int(1)}},
		{"*", Str("ab"), Int(-1), Str("")},
	}
	for _, tt := range tests {
		t.Run(Repr(tt.x)+tt.op+Repr(tt.y), func(t *testing.T) {
			got, err := Binary(th, tt.op, tt.x, tt.y)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBinaryErrors(t *testing.T) {
	th := &testThread{}
	tests := []struct {
		op   string
		x, y Value
		cls  *Class
		msg  string
	}{
		{"/", Int(1), Int(0), ZeroDivisionError, "division by zero"},
		{"//", Int(1), Int(0), ZeroDivisionError, "integer division or modulo by zero"},
		{"%", Int(1), Int(0), ZeroDivisionError, "integer modulo by zero"},
		{"/", Float(1), Int(0), ZeroDivisionError, "float division by zero"},
		{"+", Int(math.MaxInt64), Int(1), OverflowError, ""},
		{"*", Int(math.MaxInt64), Int(2), OverflowError, ""},
		{"**", Int(10), Int(30), OverflowError, ""},
		{"<<", Int(1), Int(-1), ValueError, "negative shift count"},
		{"+", Int(1), Str("a"), TypeError, "unsupported operand type(s) for +: 'int' and 'str'"},
		{"+", list(), Tuple{}, TypeError, `can only concatenate list (not "tuple") to list`},
		{"+", Str("a"), Int(1), TypeError, `can only concatenate str (not "int") to str`},
		{"-", Str("a"), Str("b"), TypeError, "unsupported operand type(s) for -: 'str' and 'str'"},
		{"*", Str("ab"), Int(MaxContainerLen), MemoryError, ""},
	}
	for _, tt := range tests {
		t.Run(Repr(tt.x)+tt.op+Repr(tt.y), func(t *testing.T) {
			_, err := Binary(th, tt.op, tt.x, tt.y)
			requireExc(t, err, tt.cls, tt.msg)
		})
	}
}

func TestUnary(t *testing.T) {
	v, err := Unary("-", True)
	require.NoError(t, err)
	assert.Equal(t, Int(-1), v)
	v, err = Unary("~", Int(5))
	require.NoError(t, err)
	assert.Equal(t, Int(-6), v)
	_, err = Unary("-", Str("x"))
	requireExc(t, err, TypeError, "bad operand type for unary -: 'str'")
	_, err = Unary("-", Int(math.MinInt64))
	requireExc(t, err, OverflowError, "")
}

func TestSetAndDictOperators(t *testing.T) {
	th := &testThread{}
	a, _ := SetOf([]Value{Int(1), Int(2), Int(3)}, false)
	b, _ := SetOf([]Value{Int(2), Int(4)}, false)

	for op, want := range map[string]string{
		"|": "{1, 2, 3, 4}",
		"&": "{2}",
		"-": "{1, 3}",
		"^": "{1, 3, 4}",
	} {
		got, err := Binary(th, op, a, b)
		require.NoError(t, err)
		assert.Equal(t, want, Repr(got), op)
	}

	merged, err := Binary(th, "|", dict(t, Str("a"), Int(1)), dict(t, Str("a"), Int(2), Str("b"), Int(3)))
	require.NoError(t, err)
	assert.Equal(t, "{'a': 2, 'b': 3}", Repr(merged))

	c1 := dict(t, Str("x"), Int(3), Str("y"), Int(1))
	c1.Tag = "Counter"
	c2 := dict(t, Str("x"), Int(1), Str("y"), Int(2))
	c2.Tag = "Counter"
	diff, err := Binary(th, "-", c1, c2)
	require.NoError(t, err)
	assert.Equal(t, "Counter({'x': 2})", Repr(diff))
}

func TestInPlace(t *testing.T) {
	th := &testThread{}
	l := list(Int(1))
	got, err := InPlace(th, "+", l, Tuple{Int(2), Int(3)})
	require.NoError(t, err)
	assert.Same(t, l, got)
	assert.Equal(t, "[1, 2, 3]", Repr(l))

	got, err = InPlace(th, "*", l, Int(2))
	require.NoError(t, err)
	assert.Same(t, l, got)
	assert.Len(t, l.Elems, 6)

	s, _ := SetOf([]Value{Int(1)}, false)
	other, _ := SetOf([]Value{Int(2)}, false)
	got, err = InPlace(th, "|", s, other)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 2, s.Len())

	n, err := InPlace(th, "+", Int(1), Int(2))
	require.NoError(t, err)
	assert.Equal(t, Int(3), n)

	_, err = InPlace(th, "+", list(), Int(1))
	requireExc(t, err, TypeError, "'int' object is not iterable")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    Value
		spec string
		want string
	}{
		{Float(3.14159), ".2f", "3.14"},
		{Float(0.5), ".1%", "50.0%"},
		{Float(1234.5), ",.1f", "1,234.5"},
		{Float(1.0), "", "1.0"},
		{Float(1.0), "g", "1"},
		{Float(1e20), ".3", "1e+20"},
		{Float(12345.678), "e", "1.234568e+04"},
		{Int(42), "05d", "00042"},
		{Int(-42), "+06d", "-00042"},
		{Int(255), "#x", "0xff"},
		{Int(255), "08b", "11111111"},
		{Int(1234567), ",", "1,234,567"},
		{Int(5), "^5", "  5  "},
		{Str("ab"), ">4", "  ab"},
		{Str("ab"), "*<4", "ab**"},
		{Str("abcdef"), ".3", "abc"},
		{True, "", "True"},
		{True, "d", "1"},
	}
	for _, tt := range tests {
		t.Run(Repr(tt.v)+":"+tt.spec, func(t *testing.T) {
			got, err := FormatValue(tt.v, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FormatValue(Str("x"), "d")
	requireExc(t, err, ValueError, "Unknown format code 'd' for object of type 'str'")
	_, err = FormatValue(list(), "5")
	requireExc(t, err, TypeError, "unsupported format string passed to list.__format__")
}

func TestStrFormat(t *testing.T) {
	th := &testThread{}
	got, err := StrFormat(th, "{} + {} = {}", []Value{Int(1), Int(2), Int(3)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1 + 2 = 3", got)

	got, err = StrFormat(th, "{0}{1}{0} {name!r:>6} {{x}}", []Value{Str("a"), Str("b")}, []Kwarg{{Name: "name", Value: Str("z")}})
	require.NoError(t, err)
	assert.Equal(t, "aba    'z' {x}", got)

	got, err = StrFormat(th, "{:{}}|{p[1]}", []Value{Int(7), Int(3)}, []Kwarg{{Name: "p", Value: list(Int(8), Int(9))}})
	require.NoError(t, err)
	assert.Equal(t, "  7|9", got)

	_, err = StrFormat(th, "{} {}", []Value{Int(1)}, nil)
	requireExc(t, err, IndexError, "Replacement index 1 out of range for positional args tuple")
	_, err = StrFormat(th, "{", nil, nil)
	requireExc(t, err, ValueError, "Single '{' encountered in format string")
	_, err = StrFormat(th, "}", nil, nil)
	requireExc(t, err, ValueError, "Single '}' encountered in format string")
	_, err = StrFormat(th, "{0} {}", []Value{Int(1), Int(2)}, nil)
	requireExc(t, err, ValueError, "cannot switch from manual field specification to automatic field numbering")
}

func TestPercentFormat(t *testing.T) {
	th := &testThread{}
	tests := []struct {
		format string
		args   Value
		want   string
	}{
		{"%s=%d", Tuple{Str("x"), Int(3)}, "x=3"},
		{"%5.2f|", Float(3.14159), " 3.14|"},
		{"%-4s|", Str("ab"), "ab  |"},
		{"%03d", Int(7), "007"},
		{"%x %o %r", Tuple{Int(255), Int(8), Str("s")}, "ff 10 's'"},
		{"%d%%", Float(99.9), "99%"},
		{"%(a)s-%(b)s", nil, "1-2"},
		{"%c%c", Tuple{Int(104), Str("i")}, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			args := tt.args
			if args == nil {
				args = dict(t, Str("a"), Int(1), Str("b"), Int(2))
			}
			got, err := PercentFormat(th, tt.format, args)
			require.NoError(t, err)
			assert.Equal(t, Str(tt.want), got)
		})
	}

	_, err := PercentFormat(th, "%s %s", Tuple{Int(1)})
	requireExc(t, err, TypeError, "not enough arguments for format string")
	_, err = PercentFormat(th, "%s", Tuple{Int(1), Int(2)})
	requireExc(t, err, TypeError, "not all arguments converted during string formatting")
	_, err = PercentFormat(th, "%d", Str("x"))
	requireExc(t, err, TypeError, "%d format: a real number is required, not str")
}

func TestIteration(t *testing.T) {
	th := &testThread{}
	elems, err := Collect(th, Str("héllo"))
	require.NoError(t, err)
	assert.Len(t, elems, 5)
	assert.Equal(t, Str("é"), elems[1])

	d := dict(t, Str("a"), Int(1))
	it, err := Iterate(th, d)
	require.NoError(t, err)
	require.NoError(t, d.Set(Str("b"), Int(2)))
	_, _, err = it.Next(th)
	requireExc(t, err, RuntimeError, "dictionary changed size during iteration")

	_, err = Iterate(th, Int(3))
	requireExc(t, err, TypeError, "'int' object is not iterable")
}

func TestIterationPollsSafepoint(t *testing.T) {
	th := &testThread{}
	_, err := Collect(th, Range{0, 5000, 1})
	require.NoError(t, err)
	assert.Equal(t, 4, th.checks)

	halt := NewException(RuntimeError, Str("halt"))
	th = &testThread{halt: halt}
	_, err = Collect(th, Range{0, 5000, 1})
	assert.Same(t, halt, err)
}

func TestUnpack(t *testing.T) {
	th := &testThread{}
	vals, err := Unpack(th, Tuple{Int(1), Int(2)}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(1), Int(2)}, vals)

	_, err = Unpack(th, list(Int(1)), 2)
	requireExc(t, err, ValueError, "not enough values to unpack (expected 2, got 1)")
	_, err = Unpack(th, list(Int(1), Int(2), Int(3)), 2)
	requireExc(t, err, ValueError, "too many values to unpack (expected 2, got 3)")
	_, err = Unpack(th, Str("abc"), 2)
	requireExc(t, err, ValueError, "too many values to unpack (expected 2)")
	_, err = Unpack(th, Int(1), 2)
	requireExc(t, err, TypeError, "cannot unpack non-iterable int object")
}

func TestGetItem(t *testing.T) {
	th := &testThread{}
	l := list(Int(10), Int(20), Int(30), Int(40))

	v, err := GetItem(th, l, Int(-1))
	require.NoError(t, err)
	assert.Equal(t, Int(40), v)

	v, err = GetItem(th, l, SliceValue{Lo: Int(1), Hi: None, Step: Int(2)})
	require.NoError(t, err)
	assert.Equal(t, "[20, 40]", Repr(v))

	v, err = GetItem(th, l, SliceValue{Lo: None, Hi: None, Step: Int(-1)})
	require.NoError(t, err)
	assert.Equal(t, "[40, 30, 20, 10]", Repr(v))

	v, err = GetItem(th, Str("héllo"), Int(1))
	require.NoError(t, err)
	assert.Equal(t, Str("é"), v)

	v, err = GetItem(th, Str("hello"), SliceValue{Lo: Int(1), Hi: Int(-1), Step: None})
	require.NoError(t, err)
	assert.Equal(t, Str("ell"), v)

	v, err = GetItem(th, Range{0, 10, 2}, SliceValue{Lo: Int(1), Hi: Int(3), Step: None})
	require.NoError(t, err)
	assert.Equal(t, Range{2, 6, 2}, v)

	_, err = GetItem(th, l, Int(4))
	requireExc(t, err, IndexError, "list index out of range")
	_, err = GetItem(th, l, Str("a"))
	requireExc(t, err, TypeError, "list indices must be integers or slices, not str")
	_, err = GetItem(th, Tuple{}, Int(0))
	requireExc(t, err, IndexError, "tuple index out of range")
	_, err = GetItem(th, dict(t), Str("k"))
	requireExc(t, err, KeyError, "'k'")
	_, err = GetItem(th, Int(1), Int(0))
	requireExc(t, err, TypeError, "'int' object is not subscriptable")
	_, err = GetItem(th, l, SliceValue{Step: Int(0)})
	requireExc(t, err, ValueError, "slice step cannot be zero")
}

func TestGetItemCollections(t *testing.T) {
	th := &testThread{}
	counter := NewDict()
	counter.Tag = "Counter"
	v, err := GetItem(th, counter, Str("x"))
	require.NoError(t, err)
	assert.Equal(t, Int(0), v)
	assert.Equal(t, 0, counter.Len())

	dd := NewDict()
	dd.Tag = "defaultdict"
	dd.Default = ListType
	v, err = GetItem(th, dd, Str("x"))
	require.NoError(t, err)
	assert.Equal(t, "[]", Repr(v))
	assert.Equal(t, 1, dd.Len())
}

func TestSetAndDelItem(t *testing.T) {
	th := &testThread{}
	l := list(Int(1), Int(2), Int(3), Int(4))
	require.NoError(t, SetItem(th, l, SliceValue{Lo: Int(1), Hi: Int(3)}, Tuple{Str("a")}))
	assert.Equal(t, "[1, 'a', 4]", Repr(l))

	err := SetItem(th, l, SliceValue{Step: Int(2)}, Tuple{Int(0)})
	requireExc(t, err, ValueError, "attempt to assign sequence of size 1 to extended slice of size 2")

	require.NoError(t, DelItem(th, l, Int(0)))
	assert.Equal(t, "['a', 4]", Repr(l))

	err = SetItem(th, Tuple{Int(1)}, Int(0), Int(2))
	requireExc(t, err, TypeError, "'tuple' object does not support item assignment")
	err = SetItem(th, Str("ab"), Int(0), Str("x"))
	requireExc(t, err, TypeError, "'str' object does not support item assignment")
	err = DelItem(th, l, Int(9))
	requireExc(t, err, IndexError, "list assignment index out of range")
	err = DelItem(th, dict(t), Str("k"))
	requireExc(t, err, KeyError, "'k'")
}

func call(t *testing.T, th Thread, recv Value, name string, args ...Value) Value {
	t.Helper()
	m, err := GetAttr(recv, name)
	require.NoError(t, err)
	v, err := m.(*Builtin).Call(th, args, nil)
	require.NoError(t, err)
	return v
}

func TestStrMethods(t *testing.T) {
	th := &testThread{}
	tests := []struct {
		recv string
		name string
		args []Value
		want string
	}{
		{"Hello", "upper", nil, "'HELLO'"},
		{"Straße", "casefold", nil, "'strasse'"},
		{"they're bill's", "title", nil, `"They'Re Bill'S"`},
		{"hello world", "capitalize", nil, "'Hello world'"},
		{" a b  c ", "split", nil, "['a', 'b', 'c']"},
		{"a,b,,c", "split", []Value{Str(",")}, "['a', 'b', '', 'c']"},
		{"a b c d", "split", []Value{None, Int(2)}, "['a', 'b', 'c d']"},
		{"a b c d", "rsplit", []Value{None, Int(1)}, "['a b c', 'd']"},
		{"a-b-c", "rsplit", []Value{Str("-"), Int(1)}, "['a-b', 'c']"},
		{"-", "join", []Value{list(Str("a"), Str("b"))}, "'a-b'"},
		{"xxhixx", "strip", []Value{Str("x")}, "'hi'"},
		{"banana", "count", []Value{Str("a")}, "3"},
		{"banana", "find", []Value{Str("na")}, "2"},
		{"banana", "rfind", []Value{Str("na")}, "4"},
		{"banana", "find", []Value{Str("z")}, "-1"},
		{"héllo", "find", []Value{Str("l")}, "2"},
		{"abc", "find", []Value{Str(""), Int(5)}, "-1"},
		{"banana", "replace", []Value{Str("a"), Str("o"), Int(2)}, "'bonona'"},
		{"42", "zfill", []Value{Int(5)}, "'00042'"},
		{"-42", "zfill", []Value{Int(5)}, "'-0042'"},
		{"ab", "center", []Value{Int(6), Str("*")}, "'**ab**'"},
		{"a=b=c", "partition", []Value{Str("=")}, "('a', '=', 'b=c')"},
		{"a=b=c", "rpartition", []Value{Str("=")}, "('a=b', '=', 'c')"},
		{"line1\nline2\r\n", "splitlines", nil, "['line1', 'line2']"},
		{"hello", "startswith", []Value{Tuple{Str("x"), Str("he")}}, "True"},
		{"abc", "isalpha", nil, "True"},
		{"", "isdigit", nil, "False"},
		{"ABC", "isupper", nil, "True"},
		{"{}-{}", "format", []Value{Int(1), Int(2)}, "'1-2'"},
	}
	for _, tt := range tests {
		t.Run(tt.recv+"."+tt.name, func(t *testing.T) {
			got := call(t, th, Str(tt.recv), tt.name, tt.args...)
			assert.Equal(t, tt.want, Repr(got))
		})
	}

	m, err := GetAttr(Str("a"), "join")
	require.NoError(t, err)
	_, err = m.(*Builtin).Call(th, []Value{list(Int(1))}, nil)
	requireExc(t, err, TypeError, "sequence item 0: expected str instance, int found")

	m, err = GetAttr(Str("a"), "index")
	require.NoError(t, err)
	_, err = m.(*Builtin).Call(th, []Value{Str("z")}, nil)
	requireExc(t, err, ValueError, "substring not found")
}

func TestListMethods(t *testing.T) {
	th := &testThread{}
	l := list(Int(3), Int(1), Int(2))
	call(t, th, l, "append", Int(0))
	call(t, th, l, "insert", Int(0), Int(9))
	assert.Equal(t, "[9, 3, 1, 2, 0]", Repr(l))
	assert.Equal(t, Int(0), call(t, th, l, "pop"))
	assert.Equal(t, Int(9), call(t, th, l, "pop", Int(0)))
	call(t, th, l, "sort")
	assert.Equal(t, "[1, 2, 3]", Repr(l))
	call(t, th, l, "reverse")
	assert.Equal(t, "[3, 2, 1]", Repr(l))
	assert.Equal(t, Int(1), call(t, th, l, "index", Int(2)))
	call(t, th, l, "remove", Int(2))
	assert.Equal(t, "[3, 1]", Repr(l))

	m, _ := GetAttr(l, "index")
	_, err := m.(*Builtin).Call(th, []Value{Int(7)}, nil)
	requireExc(t, err, ValueError, "7 is not in list")

	empty := list()
	m, _ = GetAttr(empty, "pop")
	_, err = m.(*Builtin).Call(th, nil, nil)
	requireExc(t, err, IndexError, "pop from empty list")

	mixed := list(Int(1), Str("a"))
	m, _ = GetAttr(mixed, "sort")
	_, err = m.(*Builtin).Call(th, nil, nil)
	requireExc(t, err, TypeError, "'<' not supported between instances of 'str' and 'int'")
}

func TestSortValuesStableWithKey(t *testing.T) {
	th := &testThread{}
	elems := []Value{Str("bb"), Str("a"), Str("cc"), Str("d")}
	lenFn := NewBuiltin("len", func(_ Thread, _ Value, args []Value, _ []Kwarg) (Value, error) {
		n, err := Len(args[0])
		return Int(n), err
	})
	require.NoError(t, SortValues(th, elems, lenFn, false))
	assert.Equal(t, "['a', 'd', 'bb', 'cc']", Repr(NewList(elems)))
	require.NoError(t, SortValues(th, elems, lenFn, true))
	assert.Equal(t, "['bb', 'cc', 'a', 'd']", Repr(NewList(elems)))
}

func TestDictMethods(t *testing.T) {
	th := &testThread{}
	d := dict(t, Str("a"), Int(1), Str("b"), Int(2))
	assert.Equal(t, "['a', 'b']", Repr(call(t, th, d, "keys")))
	assert.Equal(t, "[('a', 1), ('b', 2)]", Repr(call(t, th, d, "items")))
	assert.Equal(t, Int(0), call(t, th, d, "get", Str("z"), Int(0)))
	assert.Equal(t, None, call(t, th, d, "get", Str("z")))
	assert.Equal(t, Int(5), call(t, th, d, "setdefault", Str("c"), Int(5)))
	assert.Equal(t, Int(1), call(t, th, d, "pop", Str("a")))
	assert.Equal(t, "('c', 5)", Repr(call(t, th, d, "popitem")))
	call(t, th, d, "update", list(Tuple{Str("x"), Int(9)}))
	assert.Equal(t, "{'b': 2, 'x': 9}", Repr(d))

	m, _ := GetAttr(d, "pop")
	_, err := m.(*Builtin).Call(th, []Value{Str("nope")}, nil)
	requireExc(t, err, KeyError, "'nope'")
}

func TestCollectionsTypes(t *testing.T) {
	th := &testThread{}
	c, err := CounterType.Call(th, []Value{Str("abracadabra")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[('a', 5), ('b', 2)]", Repr(call(t, th, c, "most_common", Int(2))))
	assert.Equal(t, Int(11), call(t, th, c, "total"))
	assert.True(t, IsInstance(c, DictType))

	dq, err := DequeType.Call(th, []Value{list(Int(1), Int(2), Int(3))}, []Kwarg{{Name: "maxlen", Value: Int(2)}})
	require.NoError(t, err)
	assert.Equal(t, "deque([2, 3], maxlen=2)", Repr(dq))
	call(t, th, dq, "appendleft", Int(0))
	assert.Equal(t, "deque([0, 2], maxlen=2)", Repr(dq))
	call(t, th, dq, "rotate")
	assert.Equal(t, "deque([2, 0], maxlen=2)", Repr(dq))
	assert.Equal(t, Int(2), call(t, th, dq, "popleft"))

	od, err := OrderedDictType.Call(th, []Value{list(Tuple{Str("a"), Int(1)}, Tuple{Str("b"), Int(2)})}, nil)
	require.NoError(t, err)
	call(t, th, od, "move_to_end", Str("a"))
	assert.Equal(t, "OrderedDict({'b': 2, 'a': 1})", Repr(od))

	dd, err := DefaultDictType.Call(th, []Value{IntType}, nil)
	require.NoError(t, err)
	assert.Equal(t, "defaultdict(<class 'int'>, {})", Repr(dd))
}

func TestSetMethods(t *testing.T) {
	th := &testThread{}
	s, _ := SetOf([]Value{Int(1), Int(2)}, false)
	call(t, th, s, "add", Int(3))
	call(t, th, s, "discard", Int(9))
	assert.Equal(t, "{1, 2, 3}", Repr(s))
	assert.Equal(t, "{1, 2, 3, 4}", Repr(call(t, th, s, "union", list(Int(4)))))
	assert.Equal(t, True, call(t, th, s, "issuperset", list(Int(1))))
	call(t, th, s, "intersection_update", Tuple{Int(1), Int(3)})
	assert.Equal(t, "{1, 3}", Repr(s))

	m, _ := GetAttr(s, "remove")
	_, err := m.(*Builtin).Call(th, []Value{Int(7)}, nil)
	requireExc(t, err, KeyError, "7")

	frozen, _ := SetOf(nil, true)
	_, err = GetAttr(frozen, "add")
	requireExc(t, err, AttributeError, "'frozenset' object has no attribute 'add'")
}

func TestGetAttr(t *testing.T) {
	v, err := GetAttr(Range{1, 10, 3}, "step")
	require.NoError(t, err)
	assert.Equal(t, Int(3), v)

	v, err = GetAttr(NewException(ValueError, Str("x")), "args")
	require.NoError(t, err)
	assert.Equal(t, "('x',)", Repr(v))

	_, err = GetAttr(Int(1), "nope")
	requireExc(t, err, AttributeError, "'int' object has no attribute 'nope'")

	m := NewModule("mod", []Member{{Name: "x", Value: Int(1)}})
	_, err = GetAttr(m, "y")
	requireExc(t, err, AttributeError, "module 'mod' has no attribute 'y'")

	fromkeys, err := GetAttr(DictType, "fromkeys")
	require.NoError(t, err)
	d, err := fromkeys.(*Builtin).Call(&testThread{}, []Value{Str("ab")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "{'a': None, 'b': None}", Repr(d))

	assert.Contains(t, AttrNames(list()), "append")
	assert.Contains(t, AttrNames(m), "x")
}

func TestTypeConstructors(t *testing.T) {
	th := &testThread{}
	tests := []struct {
		cls  *Class
		args []Value
		want string
	}{
		{IntType, []Value{Str(" 42 ")}, "42"},
		{IntType, []Value{Str("-0x1f"), Int(0)}, "-31"},
		{IntType, []Value{Str("1_000")}, "1000"},
		{IntType, []Value{Float(-3.9)}, "-3"},
		{FloatType, []Value{Str("1e3")}, "1000.0"},
		{FloatType, []Value{Str("-inf")}, "-inf"},
		{StrType, []Value{list(Int(1))}, "'[1]'"},
		{BoolType, []Value{list()}, "False"},
		{ListType, []Value{Str("ab")}, "['a', 'b']"},
		{TupleType, []Value{Range{0, 3, 1}}, "(0, 1, 2)"},
		{SetType, []Value{list(Int(1), Int(1))}, "{1}"},
		{RangeType, []Value{Int(5)}, "range(0, 5)"},
		{TypeType, []Value{True}, "<class 'bool'>"},
	}
	for _, tt := range tests {
		t.Run(tt.cls.ClassName, func(t *testing.T) {
			v, err := tt.cls.Call(th, tt.args, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Repr(v))
		})
	}

	_, err := IntType.Call(th, []Value{Str("abc")}, nil)
	requireExc(t, err, ValueError, "invalid literal for int() with base 10: 'abc'")
	_, err = IntType.Call(th, []Value{Str("010"), Int(0)}, nil)
	requireExc(t, err, ValueError, "invalid literal for int() with base 0: '010'")
	_, err = FloatType.Call(th, []Value{Str("x")}, nil)
	requireExc(t, err, ValueError, "could not convert string to float: 'x'")
	_, err = RangeType.Call(th, []Value{Int(0), Int(5), Int(0)}, nil)
	requireExc(t, err, ValueError, "range() arg 3 must not be zero")
	_, err = IntType.Call(th, []Value{Float(math.Inf(1))}, nil)
	requireExc(t, err, OverflowError, "cannot convert float infinity to integer")

	assert.True(t, IsInstance(True, IntType))
	assert.False(t, IsInstance(Int(1), BoolType))
	assert.Same(t, ClassOf(NewIterator("x_iterator", nil)), ClassOf(NewIterator("x_iterator", nil)))
}
