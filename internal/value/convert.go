package value

import (
	"fmt"
	"math"
	"strings"
)

// AsInt returns the integer value of an int or bool.
func AsInt(v Value) (int64, error) {
	switch v := v.(type) {
	case Int:
		return int64(v), nil
	case Bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, Errorf(TypeError, "'%s' object cannot be interpreted as an integer", TypeName(v))
}

// AsFloat returns the float value of an int, bool or float.
func AsFloat(v Value) (float64, error) {
	switch v := v.(type) {
	case Float:
		return float64(v), nil
	case Int:
		return float64(v), nil
	case Bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, Errorf(TypeError, "must be real number, not %s", TypeName(v))
}

// IsNumber reports whether v is an int, bool or float.
func IsNumber(v Value) bool {
	_, ok := numeric(v)
	return ok
}

// FloatToInt truncates f toward zero.
func FloatToInt(f float64) (Int, error) {
	switch {
	case math.IsNaN(f):
		return 0, Errorf(ValueError, "cannot convert float NaN to integer")
	case math.IsInf(f, 0):
		return 0, Errorf(OverflowError, "cannot convert float infinity to integer")
	case math.Abs(f) >= 1<<63:
		return 0, overflow()
	}
	return Int(int64(f)), nil
}

func overflow() error {
	return Errorf(OverflowError, "int too large to represent (64-bit limit)")
}

// index resolves a possibly negative sequence index against length n.
func index(key Value, n int, what string) (int, error) {
	i, err := AsInt(key)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, Errorf(IndexError, "%s index out of range", what)
	}
	return int(i), nil
}

// sliceIndices clamps a slice against a sequence of length n, returning
// start, stop, step and the number of selected elements.
func sliceIndices(s SliceValue, n int) (start, stop, step, count int, err error) {
	get := func(v Value) (int64, bool, error) {
		if v == nil {
			return 0, false, nil
		}
		if _, ok := v.(NoneType); ok {
			return 0, false, nil
		}
		i, err := AsInt(v)
		if err != nil {
			return 0, false, Errorf(TypeError, "slice indices must be integers or None or have an __index__ method")
		}
		return i, true, nil
	}
	st, ok, err := get(s.Step)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if !ok {
		st = 1
	}
	if st == 0 {
		return 0, 0, 0, 0, Errorf(ValueError, "slice step cannot be zero")
	}
	lo, loSet, err := get(s.Lo)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	hi, hiSet, err := get(s.Hi)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	size := int64(n)
	clamp := func(i int64, set bool, def int64) int64 {
		if !set {
			return def
		}
		if i < 0 {
			i += size
			if i < 0 {
				if st < 0 {
					return -1
				}
				return 0
			}
		}
		if i >= size {
			if st < 0 {
				return size - 1
			}
			return size
		}
		return i
	}
	if st > 0 {
		lo = clamp(lo, loSet, 0)
		hi = clamp(hi, hiSet, size)
		if hi > lo {
			count = int((hi - lo + st - 1) / st)
		}
	} else {
		lo = clamp(lo, loSet, size-1)
		hi = clamp(hi, hiSet, -1)
		if lo > hi {
			count = int((lo - hi - st - 1) / -st)
		}
	}
	return int(lo), int(hi), int(st), count, nil
}

// ArgSpec names one parameter for UnpackArgs. A trailing "?" marks it
// optional. Ptr must be one of *Value, *int64, *int, *float64, *string or
// *bool.
type ArgSpec struct {
	Name string
	Ptr  any
}

// UnpackArgs binds positional and keyword arguments of a built-in to the
// given parameters, in order.
func UnpackArgs(fname string, args []Value, kwargs []Kwarg, params ...ArgSpec) error {
	if len(args) > len(params) {
		return Errorf(TypeError, "%s() takes at most %d argument%s (%d given)", fname, len(params), plural(len(params)), len(args))
	}
	bound := make([]Value, len(params))
	copy(bound, args)
	for _, kw := range kwargs {
		found := false
		for i, p := range params {
			if strings.TrimSuffix(p.Name, "?") != kw.Name {
				continue
			}
			if bound[i] != nil {
				return Errorf(TypeError, "%s() got multiple values for argument '%s'", fname, kw.Name)
			}
			bound[i] = kw.Value
			found = true
			break
		}
		if !found {
			return Errorf(TypeError, "%s() got an unexpected keyword argument '%s'", fname, kw.Name)
		}
	}
	for i, p := range params {
		name, optional := strings.CutSuffix(p.Name, "?")
		v := bound[i]
		if v == nil {
			if !optional {
				return Errorf(TypeError, "%s() missing required argument '%s' (pos %d)", fname, name, i+1)
			}
			continue
		}
		if err := assignArg(fname, name, v, p.Ptr); err != nil {
			return err
		}
	}
	return nil
}

func assignArg(fname, name string, v Value, ptr any) error {
	switch p := ptr.(type) {
	case *Value:
		*p = v
	case *int64:
		n, err := AsInt(v)
		if err != nil {
			return Errorf(TypeError, "%s() argument '%s' must be int, not %s", fname, name, TypeName(v))
		}
		*p = n
	case *int:
		n, err := AsInt(v)
		if err != nil {
			return Errorf(TypeError, "%s() argument '%s' must be int, not %s", fname, name, TypeName(v))
		}
		*p = int(n)
	case *float64:
		f, err := AsFloat(v)
		if err != nil {
			return Errorf(TypeError, "%s() argument '%s' must be a number, not %s", fname, name, TypeName(v))
		}
		*p = f
	case *string:
		s, ok := v.(Str)
		if !ok {
			return Errorf(TypeError, "%s() argument '%s' must be str, not %s", fname, name, TypeName(v))
		}
		*p = string(s)
	case *bool:
		*p = v.Truth()
	default:
		panic(fmt.Sprintf("UnpackArgs: unsupported destination %T", ptr))
	}
	return nil
}

// NoKwargs rejects keyword arguments for built-ins that take none.
func NoKwargs(fname string, kwargs []Kwarg) error {
	if len(kwargs) > 0 {
		return Errorf(TypeError, "%s() takes no keyword arguments", fname)
	}
	return nil
}

// ArgCount checks the positional argument count of a built-in.
func ArgCount(fname string, args []Value, min, max int) error {
	n := len(args)
	switch {
	case min == max && n != min:
		if min == 1 {
			return Errorf(TypeError, "%s() takes exactly one argument (%d given)", fname, n)
		}
		return Errorf(TypeError, "%s() takes exactly %d arguments (%d given)", fname, min, n)
	case n < min:
		return Errorf(TypeError, "%s expected at least %d argument%s, got %d", fname, min, plural(min), n)
	case max >= 0 && n > max:
		return Errorf(TypeError, "%s expected at most %d argument%s, got %d", fname, max, plural(max), n)
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// IsNone reports whether v is None (or the Go nil used for absent values).
func IsNone(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(NoneType)
	return ok
}
