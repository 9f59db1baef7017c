package capability

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/roach88/stepwise/internal/value"
)

func param(name string, ptr any) value.ArgSpec {
	return value.ArgSpec{Name: name, Ptr: ptr}
}

func builtinFuncs() map[string]value.Value {
	fns := map[string]value.BuiltinFunc{
		"abs":        builtinAbs,
		"all":        allAny("all", true),
		"any":        allAny("any", false),
		"bin":        radix("bin", "#b"),
		"callable":   builtinCallable,
		"chr":        builtinChr,
		"divmod":     builtinDivmod,
		"enumerate":  builtinEnumerate,
		"filter":     builtinFilter,
		"format":     builtinFormat,
		"hasattr":    builtinHasattr,
		"hash":       builtinHash,
		"hex":        radix("hex", "#x"),
		"isinstance": builtinIsinstance,
		"issubclass": builtinIssubclass,
		"iter":       builtinIter,
		"len":        builtinLen,
		"map":        builtinMap,
		"max":        minMax("max", ">"),
		"min":        minMax("min", "<"),
		"next":       builtinNext,
		"oct":        radix("oct", "#o"),
		"ord":        builtinOrd,
		"pow":        builtinPow,
		"print":      builtinPrint,
		"repr":       builtinRepr,
		"reversed":   builtinReversed,
		"round":      builtinRound,
		"sorted":     builtinSorted,
		"sum":        builtinSum,
		"zip":        builtinZip,
	}
	out := map[string]value.Value{
		"bool":      value.BoolType,
		"dict":      value.DictType,
		"float":     value.FloatType,
		"frozenset": value.FrozensetType,
		"int":       value.IntType,
		"list":      value.ListType,
		"range":     value.RangeType,
		"set":       value.SetType,
		"str":       value.StrType,
		"tuple":     value.TupleType,
		"type":      value.TypeType,
	}
	for name, fn := range fns {
		out[name] = value.NewBuiltin(name, fn)
	}
	return out
}

func oneArg(name string, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs(name, kwargs); err != nil {
		return nil, err
	}
	if err := value.ArgCount(name, args, 1, 1); err != nil {
		return nil, err
	}
	return args[0], nil
}

func builtinAbs(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("abs", args, kwargs)
	if err != nil {
		return nil, err
	}
	switch x := x.(type) {
	case value.Bool, value.Int:
		n, _ := value.AsInt(x)
		if n < 0 {
			return value.Unary("-", value.Int(n))
		}
		return value.Int(n), nil
	case value.Float:
		return value.Float(math.Abs(float64(x))), nil
	}
	return nil, value.Errorf(value.TypeError, "bad operand type for abs(): '%s'", value.TypeName(x))
}

func allAny(name string, all bool) value.BuiltinFunc {
	return func(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		x, err := oneArg(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		it, err := value.Iterate(th, x)
		if err != nil {
			return nil, err
		}
		for {
			e, ok, err := it.Next(th)
			if err != nil {
				return nil, err
			}
			if !ok {
				return value.Bool(all), nil
			}
			if e.Truth() != all {
				return value.Bool(!all), nil
			}
		}
	}
}

func radix(name, spec string) value.BuiltinFunc {
	return func(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		x, err := oneArg(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		n, err := value.AsInt(x)
		if err != nil {
			return nil, err
		}
		s, err := value.FormatValue(value.Int(n), spec)
		if err != nil {
			return nil, err
		}
		return value.Str(s), nil
	}
}

func builtinCallable(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("callable", args, kwargs)
	if err != nil {
		return nil, err
	}
	return value.Bool(value.IsCallable(x)), nil
}

func builtinChr(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("chr", args, kwargs)
	if err != nil {
		return nil, err
	}
	n, err := value.AsInt(x)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > utf8.MaxRune {
		return nil, value.Errorf(value.ValueError, "chr() arg not in range(0x110000)")
	}
	return value.Str(string(rune(n))), nil
}

func builtinOrd(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("ord", args, kwargs)
	if err != nil {
		return nil, err
	}
	s, ok := x.(value.Str)
	if !ok {
		return nil, value.Errorf(value.TypeError, "ord() expected string of length 1, but %s found", value.TypeName(x))
	}
	if n := utf8.RuneCountInString(string(s)); n != 1 {
		return nil, value.Errorf(value.TypeError, "ord() expected a character, but string of length %d found", n)
	}
	r, _ := utf8.DecodeRuneInString(string(s))
	return value.Int(r), nil
}

func builtinDivmod(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("divmod", kwargs); err != nil {
		return nil, err
	}
	if err := value.ArgCount("divmod", args, 2, 2); err != nil {
		return nil, err
	}
	if !value.IsNumber(args[0]) || !value.IsNumber(args[1]) {
		return nil, value.Errorf(value.TypeError, "unsupported operand type(s) for divmod(): '%s' and '%s'",
			value.TypeName(args[0]), value.TypeName(args[1]))
	}
	q, err := value.Binary(th, "//", args[0], args[1])
	if err != nil {
		return nil, err
	}
	r, err := value.Binary(th, "%", args[0], args[1])
	if err != nil {
		return nil, err
	}
	return value.Tuple{q, r}, nil
}

func builtinEnumerate(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var iterable value.Value
	var start int64
	if err := value.UnpackArgs("enumerate", args, kwargs, param("iterable", &iterable), param("start?", &start)); err != nil {
		return nil, err
	}
	it, err := value.Iterate(th, iterable)
	if err != nil {
		return nil, err
	}
	i := start
	return value.NewIterator("enumerate", func(th value.Thread) (value.Value, bool, error) {
		e, ok, err := it.Next(th)
		if err != nil || !ok {
			return nil, false, err
		}
		i++
		return value.Tuple{value.Int(i - 1), e}, true, nil
	}), nil
}

func builtinFilter(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("filter", kwargs); err != nil {
		return nil, err
	}
	if err := value.ArgCount("filter", args, 2, 2); err != nil {
		return nil, err
	}
	fn := args[0]
	it, err := value.Iterate(th, args[1])
	if err != nil {
		return nil, err
	}
	return value.NewIterator("filter", func(th value.Thread) (value.Value, bool, error) {
		for {
			e, ok, err := it.Next(th)
			if err != nil || !ok {
				return nil, false, err
			}
			keep := e
			if !value.IsNone(fn) {
				if keep, err = th.Call(fn, []value.Value{e}, nil); err != nil {
					return nil, false, err
				}
			}
			if keep.Truth() {
				return e, true, nil
			}
		}
	}), nil
}

func builtinFormat(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var v value.Value
	var spec string
	if err := value.UnpackArgs("format", args, kwargs, param("value", &v), param("format_spec?", &spec)); err != nil {
		return nil, err
	}
	s, err := value.FormatValue(v, spec)
	if err != nil {
		return nil, err
	}
	return value.Str(s), nil
}

func builtinHasattr(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("hasattr", kwargs); err != nil {
		return nil, err
	}
	if err := value.ArgCount("hasattr", args, 2, 2); err != nil {
		return nil, err
	}
	name, ok := args[1].(value.Str)
	if !ok {
		return nil, value.Errorf(value.TypeError, "attribute name must be string, not '%s'", value.TypeName(args[1]))
	}
	if strings.HasPrefix(string(name), "_") {
		return value.False, nil
	}
	if _, err := value.GetAttr(args[0], string(name)); err != nil {
		if exc, ok := value.AsException(err); ok && exc.Class.IsSubclass(value.AttributeError) {
			return value.False, nil
		}
		return nil, err
	}
	return value.True, nil
}

func builtinHash(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("hash", args, kwargs)
	if err != nil {
		return nil, err
	}
	return value.Hash(x)
}

// classInfo flattens the second argument of isinstance/issubclass.
func classInfo(fname string, v value.Value) ([]*value.Class, error) {
	switch v := v.(type) {
	case *value.Class:
		return []*value.Class{v}, nil
	case value.Tuple:
		var out []*value.Class
		for _, e := range v {
			cls, err := classInfo(fname, e)
			if err != nil {
				return nil, err
			}
			out = append(out, cls...)
		}
		return out, nil
	}
	return nil, value.Errorf(value.TypeError, "%s() arg 2 must be a type, a tuple of types, or a union", fname)
}

func builtinIsinstance(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("isinstance", kwargs); err != nil {
		return nil, err
	}
	if err := value.ArgCount("isinstance", args, 2, 2); err != nil {
		return nil, err
	}
	classes, err := classInfo("isinstance", args[1])
	if err != nil {
		return nil, err
	}
	for _, cls := range classes {
		if value.IsInstance(args[0], cls) {
			return value.True, nil
		}
	}
	return value.False, nil
}

func builtinIssubclass(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("issubclass", kwargs); err != nil {
		return nil, err
	}
	if err := value.ArgCount("issubclass", args, 2, 2); err != nil {
		return nil, err
	}
	sub, ok := args[0].(*value.Class)
	if !ok {
		return nil, value.Errorf(value.TypeError, "issubclass() arg 1 must be a class")
	}
	classes, err := classInfo("issubclass", args[1])
	if err != nil {
		return nil, err
	}
	for _, cls := range classes {
		if sub.IsSubclass(cls) {
			return value.True, nil
		}
	}
	return value.False, nil
}

func builtinIter(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("iter", args, kwargs)
	if err != nil {
		return nil, err
	}
	return value.Iterate(th, x)
}

func builtinLen(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("len", args, kwargs)
	if err != nil {
		return nil, err
	}
	n, err := value.Len(x)
	if err != nil {
		return nil, err
	}
	return value.Int(n), nil
}

func builtinMap(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("map", kwargs); err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, value.Errorf(value.TypeError, "map() must have at least two arguments.")
	}
	fn := args[0]
	its, err := iterators(th, args[1:])
	if err != nil {
		return nil, err
	}
	return value.NewIterator("map", func(th value.Thread) (value.Value, bool, error) {
		row, ok, err := nextRow(th, its)
		if err != nil || !ok {
			return nil, false, err
		}
		v, err := th.Call(fn, row, nil)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}), nil
}

func iterators(th value.Thread, iterables []value.Value) ([]*value.Iterator, error) {
	its := make([]*value.Iterator, len(iterables))
	for i, x := range iterables {
		it, err := value.Iterate(th, x)
		if err != nil {
			return nil, err
		}
		its[i] = it
	}
	return its, nil
}

// nextRow advances every iterator once; ok is false as soon as any of them
// is exhausted.
func nextRow(th value.Thread, its []*value.Iterator) ([]value.Value, bool, error) {
	row := make([]value.Value, len(its))
	for i, it := range its {
		e, ok, err := it.Next(th)
		if err != nil || !ok {
			return nil, false, err
		}
		row[i] = e
	}
	return row, true, nil
}

func minMax(name, op string) value.BuiltinFunc {
	return func(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		var key, def value.Value
		for _, kw := range kwargs {
			switch kw.Name {
			case "key":
				key = kw.Value
			case "default":
				def = kw.Value
			default:
				return nil, value.Errorf(value.TypeError, "%s() got an unexpected keyword argument '%s'", name, kw.Name)
			}
		}
		var items []value.Value
		switch len(args) {
		case 0:
			return nil, value.Errorf(value.TypeError, "%s expected at least 1 argument, got 0", name)
		case 1:
			var err error
			if items, err = value.Collect(th, args[0]); err != nil {
				return nil, err
			}
		default:
			if def != nil {
				return nil, value.Errorf(value.TypeError, "Cannot specify a default for %s() with multiple positional arguments", name)
			}
			items = args
		}
		if len(items) == 0 {
			if def != nil {
				return def, nil
			}
			return nil, value.Errorf(value.ValueError, "%s() iterable argument is empty", name)
		}
		keyOf := func(v value.Value) (value.Value, error) {
			if value.IsNone(key) {
				return v, nil
			}
			return th.Call(key, []value.Value{v}, nil)
		}
		best := items[0]
		bestKey, err := keyOf(best)
		if err != nil {
			return nil, err
		}
		for _, e := range items[1:] {
			k, err := keyOf(e)
			if err != nil {
				return nil, err
			}
			better, err := value.Compare(op, k, bestKey)
			if err != nil {
				return nil, err
			}
			if better {
				best, bestKey = e, k
			}
		}
		return best, nil
	}
}

func builtinNext(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("next", kwargs); err != nil {
		return nil, err
	}
	if err := value.ArgCount("next", args, 1, 2); err != nil {
		return nil, err
	}
	it, ok := args[0].(*value.Iterator)
	if !ok {
		return nil, value.Errorf(value.TypeError, "'%s' object is not an iterator", value.TypeName(args[0]))
	}
	v, ok, err := it.Next(th)
	if err != nil {
		return nil, err
	}
	if !ok {
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, value.NewException(value.StopIteration)
	}
	return v, nil
}

func builtinPow(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var base, exp, mod value.Value
	if err := value.UnpackArgs("pow", args, kwargs, param("base", &base), param("exp", &exp), param("mod?", &mod)); err != nil {
		return nil, err
	}
	if value.IsNone(mod) {
		return value.Binary(th, "**", base, exp)
	}
	b, err1 := value.AsInt(base)
	e, err2 := value.AsInt(exp)
	m, err3 := value.AsInt(mod)
	if _, isFloat := base.(value.Float); isFloat || err1 != nil || err2 != nil || err3 != nil {
		return nil, value.Errorf(value.TypeError, "pow() 3rd argument not allowed unless all arguments are integers")
	}
	if m == 0 {
		return nil, value.Errorf(value.ValueError, "pow() 3rd argument cannot be 0")
	}
	bm := big.NewInt(m)
	r := new(big.Int)
	if e < 0 {
		inv := new(big.Int).ModInverse(new(big.Int).Mod(big.NewInt(b), bm), new(big.Int).Abs(bm))
		if inv == nil {
			return nil, value.Errorf(value.ValueError, "base is not invertible for the given modulus")
		}
		r.Exp(inv, big.NewInt(-e), new(big.Int).Abs(bm))
	} else {
		r.Exp(big.NewInt(b), big.NewInt(e), new(big.Int).Abs(bm))
	}
	// The result takes the sign of the modulus.
	if m < 0 && r.Sign() != 0 {
		r.Add(r, bm)
	}
	return value.Int(r.Int64()), nil
}

func builtinPrint(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	sep, end := " ", "\n"
	for _, kw := range kwargs {
		var dst *string
		switch kw.Name {
		case "sep":
			dst = &sep
		case "end":
			dst = &end
		default:
			return nil, value.Errorf(value.TypeError, "'%s' is an invalid keyword argument for print()", kw.Name)
		}
		switch v := kw.Value.(type) {
		case value.Str:
			*dst = string(v)
		case value.NoneType:
		default:
			return nil, value.Errorf(value.TypeError, "%s must be None or a string, not %s", kw.Name, value.TypeName(v))
		}
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.ToStr(a)
	}
	if err := th.Print(strings.Join(parts, sep) + end); err != nil {
		return nil, err
	}
	return value.None, nil
}

func builtinRepr(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("repr", args, kwargs)
	if err != nil {
		return nil, err
	}
	return value.Str(value.Repr(x)), nil
}

func builtinReversed(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("reversed", args, kwargs)
	if err != nil {
		return nil, err
	}
	var elems []value.Value
	kind := "reversed"
	switch x := x.(type) {
	case *value.List:
		elems, kind = x.Elems, "list_reverseiterator"
	case value.Tuple:
		elems = x
	case value.Str:
		for _, r := range string(x) {
			elems = append(elems, value.Str(string(r)))
		}
	case value.Range:
		n := x.Len()
		i := n
		return value.NewIterator("range_iterator", func(value.Thread) (value.Value, bool, error) {
			if i <= 0 {
				return nil, false, nil
			}
			i--
			return x.At(i), true, nil
		}), nil
	case *value.Dict:
		elems, kind = x.Keys(), "dict_reversekeyiterator"
	default:
		return nil, value.Errorf(value.TypeError, "'%s' object is not reversible", value.TypeName(x))
	}
	i := len(elems)
	return value.NewIterator(kind, func(value.Thread) (value.Value, bool, error) {
		if i <= 0 {
			return nil, false, nil
		}
		i--
		if i >= len(elems) {
			return nil, false, nil
		}
		return elems[i], true, nil
	}), nil
}

func builtinRound(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var x, nd value.Value
	if err := value.UnpackArgs("round", args, kwargs, param("number", &x), param("ndigits?", &nd)); err != nil {
		return nil, err
	}
	var digits int64
	if !value.IsNone(nd) {
		n, err := value.AsInt(nd)
		if err != nil {
			return nil, err
		}
		digits = n
	}
	switch v := x.(type) {
	case value.Bool, value.Int:
		n, _ := value.AsInt(v)
		if value.IsNone(nd) || digits >= 0 {
			return value.Int(n), nil
		}
		return roundInt(n, -digits), nil
	case value.Float:
		f := float64(v)
		if value.IsNone(nd) {
			return value.FloatToInt(math.RoundToEven(f))
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return v, nil
		}
		return value.Float(roundFloat(f, digits)), nil
	}
	return nil, value.Errorf(value.TypeError, "type %s doesn't define __round__ method", value.TypeName(x))
}

// roundInt rounds n to a multiple of 10**places, ties to even.
func roundInt(n, places int64) value.Int {
	if places > 18 {
		return 0
	}
	p := int64(1)
	for i := int64(0); i < places; i++ {
		p *= 10
	}
	q, r := n/p, n%p
	if r < 0 {
		q, r = q-1, r+p
	}
	if 2*r > p || 2*r == p && q%2 != 0 {
		q++
	}
	return value.Int(q * p)
}

// roundFloat rounds f to digits decimal places using the exact binary
// value, so round(2.675, 2) gives 2.67.
func roundFloat(f float64, digits int64) float64 {
	switch {
	case digits > 308:
		return f
	case digits >= 0:
		r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', int(digits), 64), 64)
		if err != nil {
			return f
		}
		return r
	case digits < -308:
		return math.Copysign(0, f)
	}
	p := math.Pow(10, float64(-digits))
	return math.RoundToEven(f/p) * p
}

func builtinSorted(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if len(args) != 1 {
		return nil, value.Errorf(value.TypeError, "sorted expected 1 argument, got %d", len(args))
	}
	var key value.Value = value.None
	var reverse bool
	if err := value.UnpackArgs("sorted", nil, kwargs, param("key?", &key), param("reverse?", &reverse)); err != nil {
		return nil, err
	}
	elems, err := value.Collect(th, args[0])
	if err != nil {
		return nil, err
	}
	if err := value.SortValues(th, elems, key, reverse); err != nil {
		return nil, err
	}
	return value.NewList(elems), nil
}

func builtinSum(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var iterable value.Value
	var acc value.Value = value.Int(0)
	if err := value.UnpackArgs("sum", args, kwargs, param("iterable", &iterable), param("start?", &acc)); err != nil {
		return nil, err
	}
	if _, ok := acc.(value.Str); ok {
		return nil, value.Errorf(value.TypeError, "sum() can't sum strings [use ''.join(seq) instead]")
	}
	it, err := value.Iterate(th, iterable)
	if err != nil {
		return nil, err
	}
	for {
		e, ok, err := it.Next(th)
		if err != nil {
			return nil, err
		}
		if !ok {
			return acc, nil
		}
		if acc, err = value.Binary(th, "+", acc, e); err != nil {
			return nil, err
		}
	}
}

func builtinZip(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	strict := false
	if err := value.UnpackArgs("zip", nil, kwargs, param("strict?", &strict)); err != nil {
		return nil, err
	}
	its, err := iterators(th, args)
	if err != nil {
		return nil, err
	}
	return value.NewIterator("zip", func(th value.Thread) (value.Value, bool, error) {
		if len(its) == 0 {
			return nil, false, nil
		}
		row := make(value.Tuple, len(its))
		for i, it := range its {
			e, ok, err := it.Next(th)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				if strict && i > 0 {
					return nil, false, value.Errorf(value.ValueError, "zip() argument %d is shorter than argument 1", i+1)
				}
				if strict {
					for j, rest := range its[1:] {
						if _, more, err := rest.Next(th); err != nil {
							return nil, false, err
						} else if more {
							return nil, false, value.Errorf(value.ValueError, "zip() argument %d is longer than argument 1", j+2)
						}
					}
				}
				return nil, false, nil
			}
			row[i] = e
		}
		return row, true, nil
	}), nil
}
