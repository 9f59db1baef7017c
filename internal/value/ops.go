package value

import (
	"math"
	"strings"
)

// Binary evaluates x op y for the arithmetic, bitwise and sequence
// operators: + - * / // % ** << >> & | ^.
func Binary(th Thread, op string, x, y Value) (Value, error) {
	if a, ok := numeric(x); ok {
		if b, ok := numeric(y); ok {
			if _, isBool := x.(Bool); isBool && isBitOp(op) {
				if yb, ok := y.(Bool); ok {
					return boolBitOp(op, bool(x.(Bool)), bool(yb)), nil
				}
			}
			return arith(op, a, b)
		}
	}

	switch op {
	case "+":
		return add(x, y)
	case "*":
		if r, ok, err := repeat(x, y); ok {
			return r, err
		}
		if r, ok, err := repeat(y, x); ok {
			return r, err
		}
	case "%":
		if s, ok := x.(Str); ok {
			return PercentFormat(th, string(s), y)
		}
	case "-", "&", "|", "^":
		if r, ok, err := setOp(op, x, y); ok {
			return r, err
		}
		if r, ok, err := dictOp(op, x, y); ok {
			return r, err
		}
	}
	return nil, unsupported(op, x, y)
}

func unsupported(op string, x, y Value) error {
	if op == "**" {
		op = "** or pow()"
	}
	return Errorf(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(x), TypeName(y))
}

func isBitOp(op string) bool { return op == "&" || op == "|" || op == "^" }

func boolBitOp(op string, a, b bool) Value {
	switch op {
	case "&":
		return Bool(a && b)
	case "|":
		return Bool(a || b)
	}
	return Bool(a != b)
}

func arith(op string, a, b num) (Value, error) {
	if a.isFloat || b.isFloat {
		if op == "/" || op == "//" || op == "%" || op == "**" || op == "+" || op == "-" || op == "*" {
			return floatArith(op, a.float(), b.float())
		}
		return nil, Errorf(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, a.typeName(), b.typeName())
	}
	x, y := a.i, b.i
	switch op {
	case "+":
		r := x + y
		if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
			return nil, overflow()
		}
		return Int(r), nil
	case "-":
		r := x - y
		if (x >= 0 && y < 0 && r < 0) || (x < 0 && y > 0 && r >= 0) {
			return nil, overflow()
		}
		return Int(r), nil
	case "*":
		return mulInt(x, y)
	case "/":
		if y == 0 {
			return nil, Errorf(ZeroDivisionError, "division by zero")
		}
		return Float(float64(x) / float64(y)), nil
	case "//":
		if y == 0 {
			return nil, Errorf(ZeroDivisionError, "integer division or modulo by zero")
		}
		if x == math.MinInt64 && y == -1 {
			return nil, overflow()
		}
		return Int(floorDiv(x, y)), nil
	case "%":
		if y == 0 {
			return nil, Errorf(ZeroDivisionError, "integer modulo by zero")
		}
		if y == -1 {
			return Int(0), nil
		}
		return Int(floorMod(x, y)), nil
	case "**":
		if y < 0 {
			if x == 0 {
				return nil, Errorf(ZeroDivisionError, "0.0 cannot be raised to a negative power")
			}
			return Float(math.Pow(float64(x), float64(y))), nil
		}
		return powInt(x, y)
	case "<<":
		if y < 0 {
			return nil, Errorf(ValueError, "negative shift count")
		}
		if x == 0 {
			return Int(0), nil
		}
		if y >= 63 {
			return nil, overflow()
		}
		r := x << uint(y)
		if r>>uint(y) != x {
			return nil, overflow()
		}
		return Int(r), nil
	case ">>":
		if y < 0 {
			return nil, Errorf(ValueError, "negative shift count")
		}
		if y >= 64 {
			if x < 0 {
				return Int(-1), nil
			}
			return Int(0), nil
		}
		return Int(x >> uint(y)), nil
	case "&":
		return Int(x & y), nil
	case "|":
		return Int(x | y), nil
	case "^":
		return Int(x ^ y), nil
	}
	return nil, Errorf(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, a.typeName(), b.typeName())
}

func (n num) typeName() string {
	if n.isFloat {
		return "float"
	}
	return "int"
}

func mulInt(x, y int64) (Value, error) {
	if x == 0 || y == 0 {
		return Int(0), nil
	}
	r := x * y
	if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return nil, overflow()
	}
	return Int(r), nil
}

func powInt(x, y int64) (Value, error) {
	result := int64(1)
	base := x
	for y > 0 {
		if y&1 == 1 {
			r, err := mulInt(result, base)
			if err != nil {
				return nil, err
			}
			result = int64(r.(Int))
		}
		y >>= 1
		if y > 0 {
			b, err := mulInt(base, base)
			if err != nil {
				return nil, err
			}
			base = int64(b.(Int))
		}
	}
	return Int(result), nil
}

func floorDiv(x, y int64) int64 {
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q
}

func floorMod(x, y int64) int64 {
	m := x % y
	if m != 0 && ((m < 0) != (y < 0)) {
		m += y
	}
	return m
}

func floatArith(op string, x, y float64) (Value, error) {
	switch op {
	case "+":
		return Float(x + y), nil
	case "-":
		return Float(x - y), nil
	case "*":
		return Float(x * y), nil
	case "/":
		if y == 0 {
			return nil, Errorf(ZeroDivisionError, "float division by zero")
		}
		return Float(x / y), nil
	case "//":
		if y == 0 {
			return nil, Errorf(ZeroDivisionError, "float floor division by zero")
		}
		return Float(math.Floor(x / y)), nil
	case "%":
		if y == 0 {
			return nil, Errorf(ZeroDivisionError, "float modulo")
		}
		return Float(floatMod(x, y)), nil
	case "**":
		if x == 0 && y < 0 {
			return nil, Errorf(ZeroDivisionError, "0.0 cannot be raised to a negative power")
		}
		if x < 0 && y != math.Trunc(y) {
			return nil, Errorf(ValueError, "negative number cannot be raised to a fractional power")
		}
		r := math.Pow(x, y)
		if math.IsInf(r, 0) && !math.IsInf(x, 0) && !math.IsInf(y, 0) {
			return nil, Errorf(OverflowError, "(34, 'Numerical result out of range')")
		}
		return Float(r), nil
	}
	return nil, Errorf(TypeError, "unsupported operand type(s) for %s: 'float' and 'float'", op)
}

func floatMod(x, y float64) float64 {
	m := math.Mod(x, y)
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	if m == 0 {
		m = math.Copysign(0, y)
	}
	return m
}

func add(x, y Value) (Value, error) {
	switch x := x.(type) {
	case Str:
		if s, ok := y.(Str); ok {
			if err := checkLen(int64(len(x) + len(s))); err != nil {
				return nil, err
			}
			return x + s, nil
		}
		return nil, Errorf(TypeError, "can only concatenate str (not \"%s\") to str", TypeName(y))
	case Tuple:
		if t, ok := y.(Tuple); ok {
			if err := checkLen(int64(len(x) + len(t))); err != nil {
				return nil, err
			}
			out := make(Tuple, 0, len(x)+len(t))
			return append(append(out, x...), t...), nil
		}
		return nil, Errorf(TypeError, "can only concatenate tuple (not \"%s\") to tuple", TypeName(y))
	case *List:
		l, ok := y.(*List)
		if !ok || l.IsDeque() != x.IsDeque() {
			if x.IsDeque() {
				return nil, Errorf(TypeError, "can only concatenate deque (not \"%s\") to deque", TypeName(y))
			}
			return nil, Errorf(TypeError, "can only concatenate list (not \"%s\") to list", TypeName(y))
		}
		if err := checkLen(int64(len(x.Elems) + len(l.Elems))); err != nil {
			return nil, err
		}
		out := make([]Value, 0, len(x.Elems)+len(l.Elems))
		out = append(append(out, x.Elems...), l.Elems...)
		r := &List{Elems: out, Tag: x.Tag, MaxLen: x.MaxLen}
		r.trim()
		return r, nil
	case *Dict:
		if d, ok := y.(*Dict); ok && x.Tag == "Counter" && d.Tag == "Counter" {
			return counterCombine(x, d, func(a, b int64) int64 { return a + b })
		}
	}
	return nil, unsupported("+", x, y)
}

// repeat implements seq * n. ok is false when the operands are not a
// sequence and an integer.
func repeat(seq, n Value) (Value, bool, error) {
	if _, isNum := numeric(seq); isNum {
		return nil, false, nil
	}
	count, err := AsInt(n)
	if err != nil {
		return nil, false, nil
	}
	if count < 0 {
		count = 0
	}
	var size int64
	switch s := seq.(type) {
	case Str:
		size = int64(len(s))
	case Tuple:
		size = int64(len(s))
	case *List:
		size = int64(len(s.Elems))
	default:
		return nil, false, nil
	}
	if size > 0 && count > MaxContainerLen/size {
		return nil, true, memoryError()
	}
	switch s := seq.(type) {
	case Str:
		return Str(strings.Repeat(string(s), int(count))), true, nil
	case Tuple:
		out := make(Tuple, 0, int(size*count))
		for i := int64(0); i < count; i++ {
			out = append(out, s...)
		}
		return out, true, nil
	case *List:
		out := make([]Value, 0, int(size*count))
		for i := int64(0); i < count; i++ {
			out = append(out, s.Elems...)
		}
		r := &List{Elems: out, Tag: s.Tag, MaxLen: s.MaxLen}
		r.trim()
		return r, true, nil
	}
	return nil, false, nil
}

func setOp(op string, x, y Value) (Value, bool, error) {
	a, ok := x.(*Set)
	if !ok {
		return nil, false, nil
	}
	b, ok := y.(*Set)
	if !ok {
		return nil, false, nil
	}
	out := NewSet()
	out.Frozen = a.Frozen
	var err error
	switch op {
	case "|":
		for _, e := range a.items {
			err = firstErr(err, out.Add(e))
		}
		for _, e := range b.items {
			err = firstErr(err, out.Add(e))
		}
	case "&":
		for _, e := range a.items {
			if has, _ := b.Has(e); has {
				err = firstErr(err, out.Add(e))
			}
		}
	case "-":
		for _, e := range a.items {
			if has, _ := b.Has(e); !has {
				err = firstErr(err, out.Add(e))
			}
		}
	case "^":
		for _, e := range a.items {
			if has, _ := b.Has(e); !has {
				err = firstErr(err, out.Add(e))
			}
		}
		for _, e := range b.items {
			if has, _ := a.Has(e); !has {
				err = firstErr(err, out.Add(e))
			}
		}
	}
	if err != nil {
		return nil, true, err
	}
	return out, true, nil
}

func firstErr(prev, next error) error {
	if prev != nil {
		return prev
	}
	return next
}

func dictOp(op string, x, y Value) (Value, bool, error) {
	a, ok := x.(*Dict)
	if !ok {
		return nil, false, nil
	}
	b, ok := y.(*Dict)
	if !ok {
		return nil, false, nil
	}
	if a.Tag == "Counter" && b.Tag == "Counter" {
		var r Value
		var err error
		switch op {
		case "-":
			r, err = counterCombine(a, b, func(p, q int64) int64 { return p - q })
		case "|":
			r, err = counterCombine(a, b, func(p, q int64) int64 { return max(p, q) })
		case "&":
			r, err = counterCombine(a, b, func(p, q int64) int64 { return min(p, q) })
		default:
			return nil, false, nil
		}
		return r, true, err
	}
	if op != "|" {
		return nil, false, nil
	}
	out := a.Copy()
	for i := range b.keys {
		if err := out.Set(b.keys[i], b.vals[i]); err != nil {
			return nil, true, err
		}
	}
	return out, true, nil
}

// counterCombine merges two Counters key by key, keeping only positive
// results.
func counterCombine(a, b *Dict, f func(int64, int64) int64) (Value, error) {
	out := NewDict()
	out.Tag = "Counter"
	count := func(d *Dict, k Value) int64 {
		v, ok, _ := d.Get(k)
		if !ok {
			return 0
		}
		n, _ := AsInt(v)
		return n
	}
	seen := NewSet()
	for _, d := range []*Dict{a, b} {
		for _, k := range d.keys {
			if has, _ := seen.Has(k); has {
				continue
			}
			if err := seen.Add(k); err != nil {
				return nil, err
			}
			if n := f(count(a, k), count(b, k)); n > 0 {
				if err := out.Set(k, Int(n)); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

// Unary evaluates -x, +x or ~x.
func Unary(op string, x Value) (Value, error) {
	switch v := x.(type) {
	case Bool:
		n, _ := AsInt(v)
		return Unary(op, Int(n))
	case Int:
		switch op {
		case "-":
			if v == math.MinInt64 {
				return nil, overflow()
			}
			return -v, nil
		case "+":
			return v, nil
		case "~":
			return ^v, nil
		}
	case Float:
		switch op {
		case "-":
			return -v, nil
		case "+":
			return v, nil
		}
	}
	return nil, Errorf(TypeError, "bad operand type for unary %s: '%s'", op, TypeName(x))
}

// InPlace evaluates an augmented assignment. Lists, deques, sets and dicts
// are mutated in place where the host language does so; everything else
// falls back to Binary.
func InPlace(th Thread, op string, x, y Value) (Value, error) {
	switch a := x.(type) {
	case *List:
		switch op {
		case "+":
			elems, err := Collect(th, y)
			if err != nil {
				return nil, err
			}
			for _, e := range elems {
				if err := a.Append(e); err != nil {
					return nil, err
				}
			}
			return a, nil
		case "*":
			if a.IsDeque() {
				break
			}
			r, ok, err := repeat(a, y)
			if !ok {
				break
			}
			if err != nil {
				return nil, err
			}
			a.Elems = r.(*List).Elems
			return a, nil
		}
	case *Set:
		if a.Frozen {
			break
		}
		r, ok, err := setOp(op, a, y)
		if !ok {
			break
		}
		if err != nil {
			return nil, err
		}
		res := r.(*Set)
		a.items, a.index = res.items, res.index
		return a, nil
	case *Dict:
		if op == "|" && a.Tag != "Counter" {
			if err := UpdateDict(th, a, y, nil); err != nil {
				return nil, err
			}
			return a, nil
		}
	}
	return Binary(th, op, x, y)
}

// UpdateDict implements dict.update(other, **kwargs): other is a mapping
// or an iterable of pairs.
func UpdateDict(th Thread, d *Dict, other Value, kwargs []Kwarg) error {
	if other != nil {
		if src, ok := other.(*Dict); ok {
			for i := range src.keys {
				if err := d.Set(src.keys[i], src.vals[i]); err != nil {
					return err
				}
			}
		} else {
			it, err := Iterate(th, other)
			if err != nil {
				return err
			}
			for n := 0; ; n++ {
				e, ok, err := it.Next(th)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				pair, err := Collect(th, e)
				if err != nil {
					return Errorf(TypeError, "cannot convert dictionary update sequence element #%d to a sequence", n)
				}
				if len(pair) != 2 {
					return Errorf(ValueError, "dictionary update sequence element #%d has length %d; 2 is required", n, len(pair))
				}
				if err := d.Set(pair[0], pair[1]); err != nil {
					return err
				}
			}
		}
	}
	for _, kw := range kwargs {
		if err := d.Set(Str(kw.Name), kw.Value); err != nil {
			return err
		}
	}
	return nil
}
