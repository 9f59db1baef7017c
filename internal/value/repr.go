package value

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reprer is implemented by values declared outside this package that
// render themselves.
type Reprer interface {
	Repr() string
}

// Repr renders repr(v).
func Repr(v Value) string {
	var b strings.Builder
	p := printer{b: &b, seen: map[any]bool{}}
	p.repr(v)
	return b.String()
}

// ToStr renders str(v).
func ToStr(v Value) string {
	switch v := v.(type) {
	case Str:
		return string(v)
	case *Exception:
		return v.Message()
	}
	return Repr(v)
}

type printer struct {
	b    *strings.Builder
	seen map[any]bool
}

func (p *printer) enter(ptr any, placeholder string) bool {
	if p.seen[ptr] {
		p.b.WriteString(placeholder)
		return false
	}
	p.seen[ptr] = true
	return true
}

func (p *printer) leave(ptr any) { delete(p.seen, ptr) }

func (p *printer) seq(elems []Value) {
	for i, e := range elems {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.repr(e)
	}
}

func (p *printer) dictBody(d *Dict) {
	p.b.WriteByte('{')
	for i := range d.keys {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.repr(d.keys[i])
		p.b.WriteString(": ")
		p.repr(d.vals[i])
	}
	p.b.WriteByte('}')
}

func (p *printer) repr(v Value) {
	b := p.b
	switch v := v.(type) {
	case nil:
		b.WriteString("None")
	case NoneType:
		b.WriteString("None")
	case Bool:
		if v {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case Int:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case Float:
		b.WriteString(FormatFloat(float64(v)))
	case Str:
		b.WriteString(Quote(string(v)))
	case Tuple:
		b.WriteByte('(')
		p.seq(v)
		if len(v) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case *List:
		if !p.enter(v, "[...]") {
			return
		}
		defer p.leave(v)
		if v.IsDeque() {
			b.WriteString("deque([")
			p.seq(v.Elems)
			b.WriteString("]")
			if n, ok := v.Bound(); ok {
				b.WriteString(", maxlen=" + strconv.Itoa(n))
			}
			b.WriteString(")")
			return
		}
		b.WriteByte('[')
		p.seq(v.Elems)
		b.WriteByte(']')
	case *Dict:
		if !p.enter(v, "{...}") {
			return
		}
		defer p.leave(v)
		switch v.Tag {
		case "Counter", "OrderedDict":
			b.WriteString(v.Tag + "(")
			if v.Len() > 0 {
				p.dictBody(v)
			}
			b.WriteString(")")
		case "defaultdict":
			b.WriteString("defaultdict(")
			if v.Default == nil {
				b.WriteString("None")
			} else {
				p.repr(v.Default)
			}
			b.WriteString(", ")
			p.dictBody(v)
			b.WriteString(")")
		default:
			p.dictBody(v)
		}
	case *Set:
		switch {
		case v.Len() == 0 && v.Frozen:
			b.WriteString("frozenset()")
		case v.Len() == 0:
			b.WriteString("set()")
		case v.Frozen:
			b.WriteString("frozenset({")
			p.seq(v.items)
			b.WriteString("})")
		default:
			b.WriteByte('{')
			p.seq(v.items)
			b.WriteByte('}')
		}
	case Range:
		b.WriteString("range(" + strconv.FormatInt(v.Start, 10) + ", " + strconv.FormatInt(v.Stop, 10))
		if v.Step != 1 {
			b.WriteString(", " + strconv.FormatInt(v.Step, 10))
		}
		b.WriteByte(')')
	case SliceValue:
		b.WriteString("slice(")
		p.repr(v.Lo)
		b.WriteString(", ")
		p.repr(v.Hi)
		b.WriteString(", ")
		p.repr(v.Step)
		b.WriteByte(')')
	case *Builtin:
		if v.recv != nil {
			b.WriteString("<built-in method " + v.name + " of " + v.recv.Type() + " object>")
		} else {
			b.WriteString("<built-in function " + v.name + ">")
		}
	case *Module:
		b.WriteString("<module '" + v.name + "'>")
	case *Class:
		b.WriteString("<class '" + v.ClassName + "'>")
	case *Exception:
		b.WriteString(ExceptionRepr(v))
	case *Iterator:
		b.WriteString("<" + v.kind + " object>")
	case Reprer:
		b.WriteString(v.Repr())
	default:
		b.WriteString("<" + v.Type() + " object>")
	}
}

// FormatFloat renders a float the way repr() does: the shortest string
// that round-trips, in positional notation for exponents in [-4, 16) and
// scientific notation otherwise.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64) // e.g. -1.2345e+06
	sign := ""
	if sci[0] == '-' {
		sign, sci = "-", sci[1:]
	}
	epos := strings.IndexByte(sci, 'e')
	mant, expStr := sci[:epos], sci[epos+1:]
	exp, _ := strconv.Atoi(expStr)
	digits := strings.Replace(mant, ".", "", 1)

	if exp < -4 || exp >= 16 {
		m := digits[:1]
		if len(digits) > 1 {
			m += "." + digits[1:]
		}
		es := "+"
		if exp < 0 {
			es, exp = "-", -exp
		}
		e := strconv.Itoa(exp)
		if len(e) < 2 {
			e = "0" + e
		}
		return sign + m + "e" + es + e
	}

	var s string
	switch point := exp + 1; {
	case point <= 0:
		s = "0." + strings.Repeat("0", -point) + digits
	case point >= len(digits):
		s = digits + strings.Repeat("0", point-len(digits)) + ".0"
	default:
		s = digits[:point] + "." + digits[point:]
	}
	return sign + s
}

// Quote renders a string literal the way repr() does, preferring single
// quotes.
func Quote(s string) string {
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(quote)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteString(`\udcff`)
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			b.WriteString(`\x` + hex2(int(r)))
		case r < 0x80 || unicode.IsPrint(r):
			b.WriteRune(r)
		case r <= 0xff:
			b.WriteString(`\x` + hex2(int(r)))
		case r <= 0xffff:
			b.WriteString(`\u` + padHex(int64(r), 4))
		default:
			b.WriteString(`\U` + padHex(int64(r), 8))
		}
	}
	b.WriteByte(quote)
	return b.String()
}

func hex2(n int) string { return padHex(int64(n), 2) }

func padHex(n int64, width int) string {
	s := strconv.FormatInt(n, 16)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}
