package capability

import (
	"github.com/roach88/stepwise/internal/value"
)

// The itertools members return lazy iterators. Infinite ones (count, cycle,
// repeat without times) stay interruptible because every consumer drives
// them through value.Iterate, which polls the safepoint.
func itertoolsModule() *value.Module {
	chain := value.NewClass("chain", nil, iterChain)
	chain.SetAttr("from_iterable", value.NewBuiltin("from_iterable", chainFromIterable))
	return value.NewModule("itertools", []value.Member{
		fn("count", iterCount),
		fn("cycle", iterCycle),
		fn("repeat", iterRepeat),
		{Name: "chain", Value: chain},
		fn("islice", iterIslice),
		fn("accumulate", iterAccumulate),
		fn("product", iterProduct),
		fn("permutations", iterPermutations),
		fn("combinations", iterCombinations(false)),
		fn("combinations_with_replacement", iterCombinations(true)),
		fn("zip_longest", iterZipLongest),
		fn("takewhile", iterWhile("takewhile", true)),
		fn("dropwhile", iterWhile("dropwhile", false)),
		fn("filterfalse", iterFilterFalse),
		fn("groupby", iterGroupby),
		fn("starmap", iterStarmap),
		fn("pairwise", iterPairwise),
		fn("compress", iterCompress),
	})
}

func iterCount(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var start, step value.Value = value.Int(0), value.Int(1)
	if err := value.UnpackArgs("count", args, kwargs, param("start?", &start), param("step?", &step)); err != nil {
		return nil, err
	}
	if !value.IsNumber(start) || !value.IsNumber(step) {
		return nil, value.Errorf(value.TypeError, "a number is required")
	}
	cur := start
	return value.NewIterator("count", func(th value.Thread) (value.Value, bool, error) {
		v := cur
		next, err := value.Binary(th, "+", cur, step)
		if err != nil {
			return nil, false, err
		}
		cur = next
		return v, true, nil
	}), nil
}

func iterCycle(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("cycle", args, kwargs)
	if err != nil {
		return nil, err
	}
	src, err := value.Iterate(th, x)
	if err != nil {
		return nil, err
	}
	var saved []value.Value
	i := -1
	return value.NewIterator("cycle", func(th value.Thread) (value.Value, bool, error) {
		if i < 0 {
			e, ok, err := src.Next(th)
			if err != nil {
				return nil, false, err
			}
			if ok {
				if len(saved) >= value.MaxContainerLen {
					return nil, false, value.Errorf(value.MemoryError, "container exceeds %d elements", value.MaxContainerLen)
				}
				saved = append(saved, e)
				return e, true, nil
			}
			if len(saved) == 0 {
				return nil, false, nil
			}
			i = 0
		}
		e := saved[i]
		i = (i + 1) % len(saved)
		return e, true, nil
	}), nil
}

func iterRepeat(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var obj value.Value
	times := int64(-1)
	if err := value.UnpackArgs("repeat", args, kwargs, param("object", &obj), param("times?", &times)); err != nil {
		return nil, err
	}
	if times < -1 {
		times = 0
	}
	return value.NewIterator("repeat", func(value.Thread) (value.Value, bool, error) {
		if times == 0 {
			return nil, false, nil
		}
		if times > 0 {
			times--
		}
		return obj, true, nil
	}), nil
}

// concat yields the elements of each iterable in turn; iterables are
// opened lazily.
func concat(name string, next func(th value.Thread) (value.Value, bool, error)) *value.Iterator {
	var cur *value.Iterator
	return value.NewIterator(name, func(th value.Thread) (value.Value, bool, error) {
		for {
			if cur == nil {
				src, ok, err := next(th)
				if err != nil || !ok {
					return nil, false, err
				}
				if cur, err = value.Iterate(th, src); err != nil {
					return nil, false, err
				}
			}
			e, ok, err := cur.Next(th)
			if err != nil {
				return nil, false, err
			}
			if ok {
				return e, true, nil
			}
			cur = nil
		}
	})
}

func iterChain(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("chain", kwargs); err != nil {
		return nil, err
	}
	i := 0
	return concat("chain", func(value.Thread) (value.Value, bool, error) {
		if i >= len(args) {
			return nil, false, nil
		}
		i++
		return args[i-1], true, nil
	}), nil
}

func chainFromIterable(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("from_iterable", args, kwargs)
	if err != nil {
		return nil, err
	}
	outer, err := value.Iterate(th, x)
	if err != nil {
		return nil, err
	}
	return concat("chain", outer.Next), nil
}

// islice accepts (stop) or (start, stop[, step]) with None meaning the
// default for that position.
func iterIslice(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("islice", kwargs); err != nil {
		return nil, err
	}
	if err := value.ArgCount("islice", args, 2, 4); err != nil {
		return nil, err
	}
	src, err := value.Iterate(th, args[0])
	if err != nil {
		return nil, err
	}
	bound := func(v value.Value, def int64) (int64, error) {
		if value.IsNone(v) {
			return def, nil
		}
		n, err := value.AsInt(v)
		if err != nil || n < 0 {
			return 0, value.Errorf(value.ValueError, "Indices for islice() must be None or an integer: 0 <= x <= sys.maxsize.")
		}
		return n, nil
	}
	var start, stop, step int64 = 0, -1, 1
	if len(args) == 2 {
		if stop, err = bound(args[1], -1); err != nil {
			return nil, err
		}
	} else {
		if start, err = bound(args[1], 0); err != nil {
			return nil, err
		}
		if stop, err = bound(args[2], -1); err != nil {
			return nil, err
		}
		if len(args) == 4 {
			if step, err = bound(args[3], 1); err != nil {
				return nil, err
			}
			if step == 0 {
				return nil, value.Errorf(value.ValueError, "Step for islice() must be a positive integer or None.")
			}
		}
	}
	var pos int64
	next := start
	return value.NewIterator("islice", func(th value.Thread) (value.Value, bool, error) {
		for {
			if stop >= 0 && next >= stop {
				return nil, false, nil
			}
			e, ok, err := src.Next(th)
			if err != nil || !ok {
				return nil, false, err
			}
			pos++
			if pos-1 == next {
				next += step
				return e, true, nil
			}
		}
	}), nil
}

func iterAccumulate(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var iterable value.Value
	var fnv, initial value.Value = value.None, value.None
	if err := value.UnpackArgs("accumulate", args, kwargs, param("iterable", &iterable), param("func?", &fnv), param("initial?", &initial)); err != nil {
		return nil, err
	}
	src, err := value.Iterate(th, iterable)
	if err != nil {
		return nil, err
	}
	var acc value.Value
	if !value.IsNone(initial) {
		acc = initial
	}
	pending := acc != nil
	return value.NewIterator("accumulate", func(th value.Thread) (value.Value, bool, error) {
		if pending {
			pending = false
			return acc, true, nil
		}
		e, ok, err := src.Next(th)
		if err != nil || !ok {
			return nil, false, err
		}
		switch {
		case acc == nil:
			acc = e
		case value.IsNone(fnv):
			acc, err = value.Binary(th, "+", acc, e)
		default:
			acc, err = th.Call(fnv, []value.Value{acc, e}, nil)
		}
		if err != nil {
			return nil, false, err
		}
		return acc, true, nil
	}), nil
}

// pools collects every iterable argument up front.
func pools(th value.Thread, iterables []value.Value) ([][]value.Value, error) {
	out := make([][]value.Value, len(iterables))
	for i, x := range iterables {
		p, err := value.Collect(th, x)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func pick(pool []value.Value, idx []int) value.Value {
	t := make(value.Tuple, len(idx))
	for i, j := range idx {
		t[i] = pool[j]
	}
	return t
}

func iterProduct(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	repeat := int64(1)
	for _, kw := range kwargs {
		if kw.Name != "repeat" {
			return nil, value.Errorf(value.TypeError, "product() got an unexpected keyword argument '%s'", kw.Name)
		}
		n, err := value.AsInt(kw.Value)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, value.Errorf(value.ValueError, "repeat argument cannot be negative")
		}
		repeat = n
	}
	base, err := pools(th, args)
	if err != nil {
		return nil, err
	}
	if int64(len(base))*repeat > value.MaxContainerLen {
		return nil, value.Errorf(value.MemoryError, "container exceeds %d elements", value.MaxContainerLen)
	}
	var ps [][]value.Value
	for r := int64(0); r < repeat; r++ {
		ps = append(ps, base...)
	}
	idx := make([]int, len(ps))
	done := false
	for _, p := range ps {
		if len(p) == 0 {
			done = true
		}
	}
	first := true
	return value.NewIterator("product", func(value.Thread) (value.Value, bool, error) {
		if done {
			return nil, false, nil
		}
		if !first {
			i := len(idx) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < len(ps[i]) {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				done = true
				return nil, false, nil
			}
		}
		first = false
		t := make(value.Tuple, len(idx))
		for i, j := range idx {
			t[i] = ps[i][j]
		}
		return t, true, nil
	}), nil
}

func iterPermutations(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var iterable value.Value
	var rv value.Value = value.None
	if err := value.UnpackArgs("permutations", args, kwargs, param("iterable", &iterable), param("r?", &rv)); err != nil {
		return nil, err
	}
	pool, err := value.Collect(th, iterable)
	if err != nil {
		return nil, err
	}
	n := len(pool)
	r := n
	if !value.IsNone(rv) {
		k, err := value.AsInt(rv)
		if err != nil {
			return nil, err
		}
		if k < 0 {
			return nil, value.Errorf(value.ValueError, "r must be non-negative")
		}
		r = int(min(k, int64(n)+1))
	}
	if r > n {
		return value.NewIterator("permutations", func(value.Thread) (value.Value, bool, error) { return nil, false, nil }), nil
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	cycles := make([]int, r)
	for i := range cycles {
		cycles[i] = n - i
	}
	first, done := true, false
	return value.NewIterator("permutations", func(value.Thread) (value.Value, bool, error) {
		if done {
			return nil, false, nil
		}
		if first {
			first = false
			return pick(pool, indices[:r]), true, nil
		}
		for i := r - 1; i >= 0; i-- {
			cycles[i]--
			if cycles[i] == 0 {
				moved := indices[i]
				copy(indices[i:], indices[i+1:])
				indices[n-1] = moved
				cycles[i] = n - i
				continue
			}
			j := n - cycles[i]
			indices[i], indices[j] = indices[j], indices[i]
			return pick(pool, indices[:r]), true, nil
		}
		done = true
		return nil, false, nil
	}), nil
}

func iterCombinations(replacement bool) value.BuiltinFunc {
	name := "combinations"
	if replacement {
		name = "combinations_with_replacement"
	}
	return func(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		var iterable value.Value
		var r int
		if err := value.UnpackArgs(name, args, kwargs, param("iterable", &iterable), param("r", &r)); err != nil {
			return nil, err
		}
		if r < 0 {
			return nil, value.Errorf(value.ValueError, "r must be non-negative")
		}
		pool, err := value.Collect(th, iterable)
		if err != nil {
			return nil, err
		}
		n := len(pool)
		idx := make([]int, r)
		if !replacement {
			for i := range idx {
				idx[i] = i
			}
		}
		done := (!replacement && r > n) || (replacement && n == 0 && r > 0)
		first := true
		return value.NewIterator(name, func(value.Thread) (value.Value, bool, error) {
			if done {
				return nil, false, nil
			}
			if first {
				first = false
				return pick(pool, idx), true, nil
			}
			i := r - 1
			if replacement {
				for ; i >= 0 && idx[i] == n-1; i-- {
				}
				if i < 0 {
					done = true
					return nil, false, nil
				}
				v := idx[i] + 1
				for j := i; j < r; j++ {
					idx[j] = v
				}
				return pick(pool, idx), true, nil
			}
			for ; i >= 0 && idx[i] == i+n-r; i-- {
			}
			if i < 0 {
				done = true
				return nil, false, nil
			}
			idx[i]++
			for j := i + 1; j < r; j++ {
				idx[j] = idx[j-1] + 1
			}
			return pick(pool, idx), true, nil
		}), nil
	}
}

func iterZipLongest(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var fill value.Value = value.None
	for _, kw := range kwargs {
		if kw.Name != "fillvalue" {
			return nil, value.Errorf(value.TypeError, "zip_longest() got an unexpected keyword argument '%s'", kw.Name)
		}
		fill = kw.Value
	}
	its, err := iterators(th, args)
	if err != nil {
		return nil, err
	}
	live := make([]bool, len(its))
	for i := range live {
		live[i] = true
	}
	return value.NewIterator("zip_longest", func(th value.Thread) (value.Value, bool, error) {
		row := make(value.Tuple, len(its))
		alive := false
		for i, it := range its {
			if live[i] {
				e, ok, err := it.Next(th)
				if err != nil {
					return nil, false, err
				}
				if ok {
					row[i] = e
					alive = true
					continue
				}
				live[i] = false
			}
			row[i] = fill
		}
		if !alive {
			return nil, false, nil
		}
		return row, true, nil
	}), nil
}

func predicateArgs(th value.Thread, name string, args []value.Value, kwargs []value.Kwarg) (value.Value, *value.Iterator, error) {
	if err := value.NoKwargs(name, kwargs); err != nil {
		return nil, nil, err
	}
	if err := value.ArgCount(name, args, 2, 2); err != nil {
		return nil, nil, err
	}
	src, err := value.Iterate(th, args[1])
	if err != nil {
		return nil, nil, err
	}
	return args[0], src, nil
}

func truthOf(th value.Thread, pred, e value.Value) (bool, error) {
	if value.IsNone(pred) {
		return e.Truth(), nil
	}
	r, err := th.Call(pred, []value.Value{e}, nil)
	if err != nil {
		return false, err
	}
	return r.Truth(), nil
}

// iterWhile implements takewhile (take=true) and dropwhile.
func iterWhile(name string, take bool) value.BuiltinFunc {
	return func(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		pred, src, err := predicateArgs(th, name, args, kwargs)
		if err != nil {
			return nil, err
		}
		switched := false
		return value.NewIterator(name, func(th value.Thread) (value.Value, bool, error) {
			for {
				if take && switched {
					return nil, false, nil
				}
				e, ok, err := src.Next(th)
				if err != nil || !ok {
					return nil, false, err
				}
				if switched {
					return e, true, nil
				}
				hold, err := truthOf(th, pred, e)
				if err != nil {
					return nil, false, err
				}
				if take {
					if hold {
						return e, true, nil
					}
					switched = true
					continue
				}
				if !hold {
					switched = true
					return e, true, nil
				}
			}
		}), nil
	}
}

func iterFilterFalse(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	pred, src, err := predicateArgs(th, "filterfalse", args, kwargs)
	if err != nil {
		return nil, err
	}
	return value.NewIterator("filterfalse", func(th value.Thread) (value.Value, bool, error) {
		for {
			e, ok, err := src.Next(th)
			if err != nil || !ok {
				return nil, false, err
			}
			hold, err := truthOf(th, pred, e)
			if err != nil {
				return nil, false, err
			}
			if !hold {
				return e, true, nil
			}
		}
	}), nil
}

// iterGroupby yields (key, group) pairs. Each group is materialized as a
// list iterator before the next pair is produced, so groups stay valid
// after the outer iterator advances.
func iterGroupby(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var iterable value.Value
	var keyfn value.Value = value.None
	if err := value.UnpackArgs("groupby", args, kwargs, param("iterable", &iterable), param("key?", &keyfn)); err != nil {
		return nil, err
	}
	src, err := value.Iterate(th, iterable)
	if err != nil {
		return nil, err
	}
	keyOf := func(th value.Thread, e value.Value) (value.Value, error) {
		if value.IsNone(keyfn) {
			return e, nil
		}
		return th.Call(keyfn, []value.Value{e}, nil)
	}
	var (
		pendElem, pendKey value.Value
		started, eof      bool
	)
	return value.NewIterator("groupby", func(th value.Thread) (value.Value, bool, error) {
		if !started {
			started = true
			e, ok, err := src.Next(th)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				eof = true
			} else {
				pendElem = e
				if pendKey, err = keyOf(th, e); err != nil {
					return nil, false, err
				}
			}
		}
		if eof {
			return nil, false, nil
		}
		key := pendKey
		group := []value.Value{pendElem}
		for {
			e, ok, err := src.Next(th)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				eof = true
				break
			}
			k, err := keyOf(th, e)
			if err != nil {
				return nil, false, err
			}
			if !value.Equal(k, key) {
				pendElem, pendKey = e, k
				break
			}
			group = append(group, e)
		}
		it, err := value.Iterate(th, value.NewList(group))
		if err != nil {
			return nil, false, err
		}
		return value.Tuple{key, it}, true, nil
	}), nil
}

func iterStarmap(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	f, src, err := predicateArgs(th, "starmap", args, kwargs)
	if err != nil {
		return nil, err
	}
	return value.NewIterator("starmap", func(th value.Thread) (value.Value, bool, error) {
		e, ok, err := src.Next(th)
		if err != nil || !ok {
			return nil, false, err
		}
		callArgs, err := value.Collect(th, e)
		if err != nil {
			return nil, false, err
		}
		r, err := th.Call(f, callArgs, nil)
		if err != nil {
			return nil, false, err
		}
		return r, true, nil
	}), nil
}

func iterPairwise(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("pairwise", args, kwargs)
	if err != nil {
		return nil, err
	}
	src, err := value.Iterate(th, x)
	if err != nil {
		return nil, err
	}
	var prev value.Value
	return value.NewIterator("pairwise", func(th value.Thread) (value.Value, bool, error) {
		if prev == nil {
			e, ok, err := src.Next(th)
			if err != nil || !ok {
				return nil, false, err
			}
			prev = e
		}
		e, ok, err := src.Next(th)
		if err != nil || !ok {
			return nil, false, err
		}
		pair := value.Tuple{prev, e}
		prev = e
		return pair, true, nil
	}), nil
}

func iterCompress(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var data, selectors value.Value
	if err := value.UnpackArgs("compress", args, kwargs, param("data", &data), param("selectors", &selectors)); err != nil {
		return nil, err
	}
	its, err := iterators(th, []value.Value{data, selectors})
	if err != nil {
		return nil, err
	}
	return value.NewIterator("compress", func(th value.Thread) (value.Value, bool, error) {
		for {
			row, ok, err := nextRow(th, its)
			if err != nil || !ok {
				return nil, false, err
			}
			if row[1].Truth() {
				return row[0], true, nil
			}
		}
	}), nil
}
