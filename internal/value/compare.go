package value

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"strings"
)

// HashKey returns the identity used for dict keys and set members. Values
// that compare equal (1, 1.0 and True) share a key. Mutable containers are
// unhashable.
func HashKey(v Value) (string, error) {
	switch v := v.(type) {
	case NoneType:
		return "n", nil
	case Bool:
		if v {
			return "i1", nil
		}
		return "i0", nil
	case Int:
		return "i" + strconv.FormatInt(int64(v), 10), nil
	case Float:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return "i" + strconv.FormatInt(int64(f), 10), nil
		}
		return "f" + strconv.FormatFloat(f, 'g', -1, 64), nil
	case Str:
		return "s" + string(v), nil
	case Tuple:
		var b strings.Builder
		b.WriteString("t")
		for _, e := range v {
			k, err := HashKey(e)
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
		}
		return b.String(), nil
	case Range:
		return fmt.Sprintf("r%d:%d:%d", v.Start, v.Stop, v.Step), nil
	case *Set:
		if !v.Frozen {
			break
		}
		keys := make([]string, 0, len(v.items))
		for _, e := range v.items {
			k, _ := HashKey(e)
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("F")
		for _, k := range keys {
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
		}
		return b.String(), nil
	case *List, *Dict:
		// unhashable
	default:
		return fmt.Sprintf("p%p", v), nil
	}
	return "", Errorf(TypeError, "unhashable type: '%s'", v.Type())
}

// Hash implements the hash() built-in.
func Hash(v Value) (Int, error) {
	switch v := v.(type) {
	case Bool, Int:
		n, _ := AsInt(v)
		return Int(n), nil
	case Float:
		if float64(v) == math.Trunc(float64(v)) && math.Abs(float64(v)) < 1<<63 {
			return Int(int64(v)), nil
		}
	}
	k, err := HashKey(v)
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	h.Write([]byte(k))
	return Int(int64(h.Sum64() >> 1)), nil
}

// Equal reports script-level equality (==).
func Equal(a, b Value) bool {
	return equal(a, b, 0)
}

const maxCompareDepth = 100

func equal(a, b Value, depth int) bool {
	if depth > maxCompareDepth {
		return false
	}
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return x.eq(y)
		}
		return false
	}
	switch a := a.(type) {
	case NoneType:
		_, ok := b.(NoneType)
		return ok
	case Str:
		s, ok := b.(Str)
		return ok && a == s
	case Tuple:
		t, ok := b.(Tuple)
		return ok && equalSeq(a, t, depth)
	case *List:
		l, ok := b.(*List)
		return ok && (a == l || a.IsDeque() == l.IsDeque() && equalSeq(a.Elems, l.Elems, depth))
	case Range:
		r, ok := b.(Range)
		if !ok {
			return false
		}
		n := a.Len()
		if n != r.Len() {
			return false
		}
		return n == 0 || a.Start == r.Start && (n == 1 || a.Step == r.Step)
	case *Dict:
		d, ok := b.(*Dict)
		if !ok {
			return false
		}
		if a == d {
			return true
		}
		if a.Len() != d.Len() {
			return false
		}
		for i := range a.keys {
			v, found, err := d.Get(a.keys[i])
			if err != nil || !found || !equal(a.vals[i], v, depth+1) {
				return false
			}
		}
		return true
	case *Set:
		s, ok := b.(*Set)
		if !ok || a.Len() != s.Len() {
			return false
		}
		for _, e := range a.items {
			if has, _ := s.Has(e); !has {
				return false
			}
		}
		return true
	case *Exception:
		e, ok := b.(*Exception)
		return ok && a == e
	case SliceValue:
		s, ok := b.(SliceValue)
		return ok && equal(a.Lo, s.Lo, depth+1) && equal(a.Hi, s.Hi, depth+1) && equal(a.Step, s.Step, depth+1)
	}
	return Is(a, b)
}

func equalSeq(a, b []Value, depth int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal(a[i], b[i], depth+1) {
			return false
		}
	}
	return true
}

// Is reports identity (the "is" operator). Immutable scalars compare by
// value, which matches interned small values.
func Is(a, b Value) bool {
	switch a := a.(type) {
	case NoneType:
		_, ok := b.(NoneType)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && a == y
	case Int:
		y, ok := b.(Int)
		return ok && a == y
	case Float:
		y, ok := b.(Float)
		return ok && a == y
	case Str:
		y, ok := b.(Str)
		return ok && a == y
	case Tuple:
		y, ok := b.(Tuple)
		if !ok || len(a) != len(y) {
			return false
		}
		return len(a) == 0 || &a[0] == &y[0]
	case Range:
		y, ok := b.(Range)
		return ok && a == y
	case SliceValue:
		return false
	}
	return isPointerEqual(a, b)
}

func isPointerEqual(a, b Value) bool {
	switch a := a.(type) {
	case *List:
		y, ok := b.(*List)
		return ok && a == y
	case *Dict:
		y, ok := b.(*Dict)
		return ok && a == y
	case *Set:
		y, ok := b.(*Set)
		return ok && a == y
	case *Builtin:
		y, ok := b.(*Builtin)
		return ok && a == y
	case *Module:
		y, ok := b.(*Module)
		return ok && a == y
	case *Class:
		y, ok := b.(*Class)
		return ok && a == y
	case *Exception:
		y, ok := b.(*Exception)
		return ok && a == y
	case *Iterator:
		y, ok := b.(*Iterator)
		return ok && a == y
	}
	return identical(a, b)
}

// identical compares values of types declared outside this package, such
// as the evaluator's functions. Those are pointers, but an uncomparable
// dynamic type must not panic.
func identical(a, b Value) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Compare evaluates an ordering operator: "<", "<=", ">" or ">=".
func Compare(op string, a, b Value) (bool, error) {
	return compare(op, a, b, 0)
}

func compare(op string, a, b Value, depth int) (bool, error) {
	if depth > maxCompareDepth {
		return false, Errorf(RecursionError, "maximum recursion depth exceeded in comparison")
	}
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return x.cmp(op, y), nil
		}
	}
	switch a := a.(type) {
	case Str:
		if y, ok := b.(Str); ok {
			return ordered(op, strings.Compare(string(a), string(y))), nil
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			return compareSeq(op, a, y, depth)
		}
	case *List:
		if y, ok := b.(*List); ok {
			return compareSeq(op, a.Elems, y.Elems, depth)
		}
	case *Set:
		if y, ok := b.(*Set); ok {
			return compareSets(op, a, y), nil
		}
	}
	return false, Errorf(TypeError, "'%s' not supported between instances of '%s' and '%s'", op, TypeName(a), TypeName(b))
}

func ordered(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

func compareSeq(op string, a, b []Value, depth int) (bool, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if !equal(a[i], b[i], depth+1) {
			return compare(op, a[i], b[i], depth+1)
		}
	}
	return ordered(op, len(a)-len(b)), nil
}

func compareSets(op string, a, b *Set) bool {
	subset := func(x, y *Set) bool {
		for _, e := range x.items {
			if has, _ := y.Has(e); !has {
				return false
			}
		}
		return true
	}
	switch op {
	case "<":
		return a.Len() < b.Len() && subset(a, b)
	case "<=":
		return subset(a, b)
	case ">":
		return a.Len() > b.Len() && subset(b, a)
	default:
		return subset(b, a)
	}
}

// Contains implements "item in container".
func Contains(th Thread, container, item Value) (bool, error) {
	switch c := container.(type) {
	case Str:
		s, ok := item.(Str)
		if !ok {
			return false, Errorf(TypeError, "'in <string>' requires string as left operand, not %s", TypeName(item))
		}
		return strings.Contains(string(c), string(s)), nil
	case Tuple:
		return containsSeq(c, item), nil
	case *List:
		return containsSeq(c.Elems, item), nil
	case *Dict:
		_, ok, err := c.Get(item)
		return ok, err
	case *Set:
		return c.Has(item)
	case Range:
		n, ok := exactInt(item)
		if !ok {
			return containsIter(th, c, item)
		}
		if c.Len() == 0 {
			return false, nil
		}
		if c.Step > 0 && (n < c.Start || n >= c.Stop) || c.Step < 0 && (n > c.Start || n <= c.Stop) {
			return false, nil
		}
		return (n-c.Start)%c.Step == 0, nil
	case *Iterator:
		return containsIter(th, c, item)
	}
	return false, Errorf(TypeError, "argument of type '%s' is not iterable", TypeName(container))
}

func containsSeq(elems []Value, item Value) bool {
	for _, e := range elems {
		if Is(e, item) || Equal(e, item) {
			return true
		}
	}
	return false
}

func containsIter(th Thread, iterable, item Value) (bool, error) {
	it, err := Iterate(th, iterable)
	if err != nil {
		return false, err
	}
	for {
		v, ok, err := it.Next(th)
		if err != nil || !ok {
			return false, err
		}
		if Equal(v, item) {
			return true, nil
		}
	}
}

// exactInt returns the integer value of an int, bool or integral float.
func exactInt(v Value) (int64, bool) {
	switch v := v.(type) {
	case Int:
		return int64(v), true
	case Bool:
		if v {
			return 1, true
		}
		return 0, true
	case Float:
		if float64(v) == math.Trunc(float64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// num is a normalized numeric operand.
type num struct {
	isFloat bool
	i       int64
	f       float64
}

func numeric(v Value) (num, bool) {
	switch v := v.(type) {
	case Int:
		return num{i: int64(v)}, true
	case Bool:
		if v {
			return num{i: 1}, true
		}
		return num{}, true
	case Float:
		return num{isFloat: true, f: float64(v)}, true
	}
	return num{}, false
}

func (n num) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func (n num) eq(m num) bool {
	if !n.isFloat && !m.isFloat {
		return n.i == m.i
	}
	return n.float() == m.float()
}

func (n num) cmp(op string, m num) bool {
	if !n.isFloat && !m.isFloat {
		switch {
		case n.i < m.i:
			return ordered(op, -1)
		case n.i > m.i:
			return ordered(op, 1)
		}
		return ordered(op, 0)
	}
	x, y := n.float(), m.float()
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	switch {
	case x < y:
		return ordered(op, -1)
	case x > y:
		return ordered(op, 1)
	}
	return ordered(op, 0)
}
