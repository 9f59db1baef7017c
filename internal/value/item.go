package value

import "unicode/utf8"

// GetItem implements x[key].
func GetItem(th Thread, x, key Value) (Value, error) {
	switch x := x.(type) {
	case Str:
		s := string(x)
		if sl, ok := key.(SliceValue); ok {
			runes := []rune(s)
			start, _, step, count, err := sliceIndices(sl, len(runes))
			if err != nil {
				return nil, err
			}
			out := make([]rune, count)
			for i := range out {
				out[i] = runes[start+i*step]
			}
			return Str(string(out)), nil
		}
		if !isIndex(key) {
			return nil, Errorf(TypeError, "string indices must be integers, not '%s'", TypeName(key))
		}
		n := utf8.RuneCountInString(s)
		i, err := index(key, n, "string")
		if err != nil {
			return nil, err
		}
		if n == len(s) {
			return Str(s[i : i+1]), nil
		}
		return Str(string([]rune(s)[i])), nil
	case Tuple:
		if sl, ok := key.(SliceValue); ok {
			return Tuple(sliceOf(x, sl)), sliceErr(x, sl)
		}
		if !isIndex(key) {
			return nil, Errorf(TypeError, "tuple indices must be integers or slices, not %s", TypeName(key))
		}
		i, err := index(key, len(x), "tuple")
		if err != nil {
			return nil, err
		}
		return x[i], nil
	case *List:
		if sl, ok := key.(SliceValue); ok {
			if x.IsDeque() {
				return nil, Errorf(TypeError, "sequence index must be integer, not 'slice'")
			}
			if err := sliceErr(x.Elems, sl); err != nil {
				return nil, err
			}
			return NewList(sliceOf(x.Elems, sl)), nil
		}
		if !isIndex(key) {
			if x.IsDeque() {
				return nil, Errorf(TypeError, "sequence index must be integer, not '%s'", TypeName(key))
			}
			return nil, Errorf(TypeError, "list indices must be integers or slices, not %s", TypeName(key))
		}
		i, err := index(key, len(x.Elems), x.Type())
		if err != nil {
			return nil, err
		}
		return x.Elems[i], nil
	case Range:
		if sl, ok := key.(SliceValue); ok {
			start, stop, step, _, err := sliceIndices(sl, int(x.Len()))
			if err != nil {
				return nil, err
			}
			return Range{
				Start: x.Start + int64(start)*x.Step,
				Stop:  x.Start + int64(stop)*x.Step,
				Step:  x.Step * int64(step),
			}, nil
		}
		if !isIndex(key) {
			return nil, Errorf(TypeError, "range indices must be integers or slices, not %s", TypeName(key))
		}
		i, err := index(key, int(x.Len()), "range object")
		if err != nil {
			return nil, err
		}
		return x.At(int64(i)), nil
	case *Dict:
		v, ok, err := x.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
		switch x.Tag {
		case "Counter":
			return Int(0), nil
		case "defaultdict":
			if IsNone(x.Default) {
				break
			}
			v, err := th.Call(x.Default, nil, nil)
			if err != nil {
				return nil, err
			}
			if err := x.Set(key, v); err != nil {
				return nil, err
			}
			return v, nil
		}
		return nil, NewException(KeyError, key)
	case *Class:
		return nil, Errorf(TypeError, "type '%s' is not subscriptable", x.ClassName)
	}
	return nil, Errorf(TypeError, "'%s' object is not subscriptable", TypeName(x))
}

func isIndex(v Value) bool {
	switch v.(type) {
	case Int, Bool:
		return true
	}
	return false
}

func sliceOf(elems []Value, sl SliceValue) []Value {
	start, _, step, count, err := sliceIndices(sl, len(elems))
	if err != nil {
		return nil
	}
	out := make([]Value, count)
	for i := range out {
		out[i] = elems[start+i*step]
	}
	return out
}

func sliceErr(elems []Value, sl SliceValue) error {
	_, _, _, _, err := sliceIndices(sl, len(elems))
	return err
}

// SetItem implements x[key] = v.
func SetItem(th Thread, x, key, v Value) error {
	switch x := x.(type) {
	case *List:
		if sl, ok := key.(SliceValue); ok {
			if x.IsDeque() {
				return Errorf(TypeError, "sequence index must be integer, not 'slice'")
			}
			return setSlice(th, x, sl, v)
		}
		if !isIndex(key) {
			return Errorf(TypeError, "list indices must be integers or slices, not %s", TypeName(key))
		}
		i, err := index(key, len(x.Elems), x.Type()+" assignment")
		if err != nil {
			return err
		}
		x.Elems[i] = v
		return nil
	case *Dict:
		return x.Set(key, v)
	}
	return Errorf(TypeError, "'%s' object does not support item assignment", TypeName(x))
}

func setSlice(th Thread, l *List, sl SliceValue, v Value) error {
	start, stop, step, count, err := sliceIndices(sl, len(l.Elems))
	if err != nil {
		return err
	}
	src, err := Collect(th, v)
	if err != nil {
		if exc, ok := AsException(err); ok && exc.Class == TypeError {
			return Errorf(TypeError, "can only assign an iterable")
		}
		return err
	}
	if step == 1 {
		if stop < start {
			stop = start
		}
		if err := checkLen(int64(len(l.Elems) - (stop - start) + len(src))); err != nil {
			return err
		}
		out := make([]Value, 0, len(l.Elems)-(stop-start)+len(src))
		out = append(out, l.Elems[:start]...)
		out = append(out, src...)
		out = append(out, l.Elems[stop:]...)
		l.Elems = out
		return nil
	}
	if len(src) != count {
		return Errorf(ValueError, "attempt to assign sequence of size %d to extended slice of size %d", len(src), count)
	}
	for i, e := range src {
		l.Elems[start+i*step] = e
	}
	return nil
}

// DelItem implements del x[key].
func DelItem(th Thread, x, key Value) error {
	switch x := x.(type) {
	case *List:
		if sl, ok := key.(SliceValue); ok {
			start, _, step, count, err := sliceIndices(sl, len(x.Elems))
			if err != nil {
				return err
			}
			drop := make(map[int]bool, count)
			for i := 0; i < count; i++ {
				drop[start+i*step] = true
			}
			out := x.Elems[:0:0]
			for i, e := range x.Elems {
				if !drop[i] {
					out = append(out, e)
				}
			}
			x.Elems = out
			return nil
		}
		if !isIndex(key) {
			return Errorf(TypeError, "list indices must be integers or slices, not %s", TypeName(key))
		}
		i, err := index(key, len(x.Elems), x.Type()+" assignment")
		if err != nil {
			return err
		}
		x.Elems = append(x.Elems[:i:i], x.Elems[i+1:]...)
		return nil
	case *Dict:
		_, ok, err := x.Delete(key)
		if err != nil {
			return err
		}
		if !ok {
			return NewException(KeyError, key)
		}
		return nil
	}
	return Errorf(TypeError, "'%s' object doesn't support item deletion", TypeName(x))
}
