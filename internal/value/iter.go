package value

import (
	"unicode/utf8"
)

// checkEvery is how many elements built-in iteration produces between
// safepoint polls.
const checkEvery = 1024

// Iterate returns an iterator over v. Iteration polls th.Check every
// checkEvery elements so long built-in loops stay interruptible.
func Iterate(th Thread, v Value) (*Iterator, error) {
	it, err := rawIterate(v)
	if err != nil {
		return nil, err
	}
	if th == nil {
		return it, nil
	}
	count := 0
	inner := it
	return NewIterator(it.kind, func(th Thread) (Value, bool, error) {
		count++
		if count%checkEvery == 0 {
			if err := th.Check(); err != nil {
				return nil, false, err
			}
		}
		return inner.Next(th)
	}), nil
}

func rawIterate(v Value) (*Iterator, error) {
	switch v := v.(type) {
	case *Iterator:
		return v, nil
	case *List:
		i := 0
		return NewIterator(v.Type()+"_iterator", func(Thread) (Value, bool, error) {
			if i >= len(v.Elems) {
				return nil, false, nil
			}
			i++
			return v.Elems[i-1], true, nil
		}), nil
	case Tuple:
		i := 0
		return NewIterator("tuple_iterator", func(Thread) (Value, bool, error) {
			if i >= len(v) {
				return nil, false, nil
			}
			i++
			return v[i-1], true, nil
		}), nil
	case Str:
		s := string(v)
		i := 0
		return NewIterator("str_iterator", func(Thread) (Value, bool, error) {
			if i >= len(s) {
				return nil, false, nil
			}
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			return Str(s[i-size : i]), true, nil
		}), nil
	case Range:
		var i int64
		n := v.Len()
		return NewIterator("range_iterator", func(Thread) (Value, bool, error) {
			if i >= n {
				return nil, false, nil
			}
			i++
			return v.At(i - 1), true, nil
		}), nil
	case *Dict:
		i := 0
		size := v.Len()
		return NewIterator("dict_keyiterator", func(Thread) (Value, bool, error) {
			if v.Len() != size {
				return nil, false, Errorf(RuntimeError, "dictionary changed size during iteration")
			}
			if i >= v.Len() {
				return nil, false, nil
			}
			i++
			return v.keys[i-1], true, nil
		}), nil
	case *Set:
		items := v.Items()
		i := 0
		return NewIterator("set_iterator", func(Thread) (Value, bool, error) {
			if i >= len(items) {
				return nil, false, nil
			}
			i++
			return items[i-1], true, nil
		}), nil
	}
	return nil, Errorf(TypeError, "'%s' object is not iterable", TypeName(v))
}

// Collect drains an iterable into a slice. Sequences are copied directly.
func Collect(th Thread, v Value) ([]Value, error) {
	switch v := v.(type) {
	case *List:
		return append([]Value(nil), v.Elems...), nil
	case Tuple:
		return append([]Value(nil), v...), nil
	case Range:
		if err := checkLen(v.Len()); err != nil {
			return nil, err
		}
	}
	it, err := Iterate(th, v)
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		e, ok, err := it.Next(th)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		if len(out) >= MaxContainerLen {
			return nil, memoryError()
		}
		out = append(out, e)
	}
}

// Len implements len().
func Len(v Value) (int, error) {
	switch v := v.(type) {
	case Str:
		return utf8.RuneCountInString(string(v)), nil
	case Tuple:
		return len(v), nil
	case *List:
		return len(v.Elems), nil
	case *Dict:
		return v.Len(), nil
	case *Set:
		return v.Len(), nil
	case Range:
		return int(v.Len()), nil
	}
	return 0, Errorf(TypeError, "object of type '%s' has no len()", TypeName(v))
}

// Unpack splits v into exactly n values.
func Unpack(th Thread, v Value, n int) ([]Value, error) {
	var elems []Value
	switch v := v.(type) {
	case Tuple:
		elems = v
	case *List:
		elems = v.Elems
	default:
		it, err := Iterate(th, v)
		if err != nil {
			return nil, Errorf(TypeError, "cannot unpack non-iterable %s object", TypeName(v))
		}
		for len(elems) <= n {
			e, ok, err := it.Next(th)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			elems = append(elems, e)
		}
	}
	switch {
	case len(elems) < n:
		return nil, Errorf(ValueError, "not enough values to unpack (expected %d, got %d)", n, len(elems))
	case len(elems) > n:
		switch v.(type) {
		case Tuple, *List:
			return nil, Errorf(ValueError, "too many values to unpack (expected %d, got %d)", n, len(elems))
		}
		return nil, Errorf(ValueError, "too many values to unpack (expected %d)", n)
	}
	return append([]Value(nil), elems...), nil
}
