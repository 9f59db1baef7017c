package capability

import (
	"strings"

	"github.com/roach88/stepwise/internal/value"
)

func stringModule() *value.Module {
	const (
		lower       = "abcdefghijklmnopqrstuvwxyz"
		upper       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		digits      = "0123456789"
		punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
		whitespace  = " \t\n\r\x0b\x0c"
	)
	str := func(name, s string) value.Member { return value.Member{Name: name, Value: value.Str(s)} }
	return value.NewModule("string", []value.Member{
		str("ascii_letters", lower+upper),
		str("ascii_lowercase", lower),
		str("ascii_uppercase", upper),
		str("digits", digits),
		str("hexdigits", digits+"abcdefABCDEF"),
		str("octdigits", "01234567"),
		str("punctuation", punctuation),
		str("whitespace", whitespace),
		str("printable", digits+lower+upper+punctuation+whitespace),
		fn("capwords", stringCapwords),
	})
}

func stringCapwords(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var s string
	var sep value.Value = value.None
	if err := value.UnpackArgs("capwords", args, kwargs, param("s", &s), param("sep?", &sep)); err != nil {
		return nil, err
	}
	var words []string
	joiner := " "
	if value.IsNone(sep) {
		words = strings.Fields(s)
	} else {
		sp, ok := sep.(value.Str)
		if !ok {
			return nil, value.Errorf(value.TypeError, "must be str or None, not %s", value.TypeName(sep))
		}
		words = strings.Split(s, string(sp))
		joiner = string(sp)
	}
	capitalize, err := value.GetAttr(value.Str(""), "capitalize")
	if err != nil {
		return nil, err
	}
	out := make([]string, len(words))
	for i, w := range words {
		v, err := capitalize.(*value.Builtin).Bind(value.Str(w)).Call(th, nil, nil)
		if err != nil {
			return nil, err
		}
		out[i] = string(v.(value.Str))
	}
	return value.Str(strings.Join(out, joiner)), nil
}

func collectionsModule() *value.Module {
	return value.NewModule("collections", []value.Member{
		{Name: "Counter", Value: value.CounterType},
		{Name: "defaultdict", Value: value.DefaultDictType},
		{Name: "OrderedDict", Value: value.OrderedDictType},
		{Name: "deque", Value: value.DequeType},
	})
}

func functoolsModule() *value.Module {
	return value.NewModule("functools", []value.Member{
		fn("reduce", functoolsReduce),
		fn("partial", functoolsPartial),
	})
}

func functoolsReduce(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("reduce", kwargs); err != nil {
		return nil, err
	}
	if err := value.ArgCount("reduce", args, 2, 3); err != nil {
		return nil, err
	}
	it, err := value.Iterate(th, args[1])
	if err != nil {
		return nil, err
	}
	var acc value.Value
	if len(args) == 3 {
		acc = args[2]
	} else {
		first, ok, err := it.Next(th)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, value.Errorf(value.TypeError, "reduce() of empty iterable with no initial value")
		}
		acc = first
	}
	for {
		e, ok, err := it.Next(th)
		if err != nil {
			return nil, err
		}
		if !ok {
			return acc, nil
		}
		if acc, err = th.Call(args[0], []value.Value{acc, e}, nil); err != nil {
			return nil, err
		}
	}
}

// functoolsPartial returns a built-in that prepends the frozen positional
// arguments and merges the frozen keywords, later keywords winning.
func functoolsPartial(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if len(args) == 0 {
		return nil, value.Errorf(value.TypeError, "partial expected at least 1 argument, got 0")
	}
	target := args[0]
	if !value.IsCallable(target) {
		return nil, value.Errorf(value.TypeError, "the first argument must be callable")
	}
	frozen := append([]value.Value(nil), args[1:]...)
	frozenKw := append([]value.Kwarg(nil), kwargs...)
	return value.NewBuiltin("partial", func(th value.Thread, _ value.Value, more []value.Value, moreKw []value.Kwarg) (value.Value, error) {
		all := append(append([]value.Value(nil), frozen...), more...)
		kw := make([]value.Kwarg, 0, len(frozenKw)+len(moreKw))
		for _, k := range frozenKw {
			overridden := false
			for _, m := range moreKw {
				if m.Name == k.Name {
					overridden = true
					break
				}
			}
			if !overridden {
				kw = append(kw, k)
			}
		}
		kw = append(kw, moreKw...)
		return th.Call(target, all, kw)
	}), nil
}
