package value

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// fmtSpec is a parsed format specification:
// [[fill]align][sign][#][0][width][grouping][.precision][type].
type fmtSpec struct {
	fill     rune
	align    byte
	sign     byte
	alt      bool
	width    int
	grouping byte
	prec     int
	typ      byte
}

func parseSpec(s string) (fmtSpec, error) {
	sp := fmtSpec{fill: ' ', prec: -1}
	bad := Errorf(ValueError, "Invalid format specifier '%s'", s)
	isAlign := func(c byte) bool { return c == '<' || c == '>' || c == '^' || c == '=' }
	if r, size := utf8.DecodeRuneInString(s); size > 0 && size < len(s) && isAlign(s[size]) {
		sp.fill, sp.align, s = r, s[size], s[size+1:]
	} else if len(s) > 0 && isAlign(s[0]) {
		sp.align, s = s[0], s[1:]
	}
	if len(s) > 0 && (s[0] == '+' || s[0] == '-' || s[0] == ' ') {
		sp.sign, s = s[0], s[1:]
	}
	if len(s) > 0 && s[0] == '#' {
		sp.alt, s = true, s[1:]
	}
	if len(s) > 0 && s[0] == '0' {
		if sp.align == 0 {
			sp.fill, sp.align = '0', '='
		}
		s = s[1:]
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		w, err := strconv.Atoi(s[:i])
		if err != nil || w > MaxContainerLen {
			return sp, bad
		}
		sp.width, s = w, s[i:]
	}
	if len(s) > 0 && (s[0] == ',' || s[0] == '_') {
		sp.grouping, s = s[0], s[1:]
	}
	if len(s) > 0 && s[0] == '.' {
		s = s[1:]
		i = 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 0 {
			return sp, Errorf(ValueError, "Format specifier missing precision")
		}
		p, err := strconv.Atoi(s[:i])
		if err != nil || p > 1000 {
			return sp, Errorf(ValueError, "precision too big")
		}
		sp.prec, s = p, s[i:]
	}
	switch len(s) {
	case 0:
	case 1:
		sp.typ = s[0]
	default:
		return sp, bad
	}
	return sp, nil
}

// FormatValue implements format(v, spec).
func FormatValue(v Value, spec string) (string, error) {
	if spec == "" {
		return ToStr(v), nil
	}
	sp, err := parseSpec(spec)
	if err != nil {
		return "", err
	}
	switch v := v.(type) {
	case Bool:
		if sp.typ == 0 || sp.typ == 's' {
			return sp.pad(ToStr(v), '<'), nil
		}
		n, _ := AsInt(v)
		return formatInt(n, sp)
	case Int:
		return formatInt(int64(v), sp)
	case Float:
		return formatFloat(float64(v), sp)
	case Str:
		if sp.typ != 0 && sp.typ != 's' {
			return "", Errorf(ValueError, "Unknown format code '%c' for object of type 'str'", sp.typ)
		}
		if sp.sign != 0 {
			return "", Errorf(ValueError, "Sign not allowed in string format specifier")
		}
		if sp.align == '=' {
			return "", Errorf(ValueError, "'=' alignment not allowed in string format specifier")
		}
		s := string(v)
		if sp.prec >= 0 && utf8.RuneCountInString(s) > sp.prec {
			s = string([]rune(s)[:sp.prec])
		}
		return sp.pad(s, '<'), nil
	}
	return "", Errorf(TypeError, "unsupported format string passed to %s.__format__", TypeName(v))
}

func formatInt(n int64, sp fmtSpec) (string, error) {
	var digits, prefix string
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	switch sp.typ {
	case 0, 'd', 'n':
		digits = strconv.FormatUint(u, 10)
	case 'b':
		digits, prefix = strconv.FormatUint(u, 2), "0b"
	case 'o':
		digits, prefix = strconv.FormatUint(u, 8), "0o"
	case 'x':
		digits, prefix = strconv.FormatUint(u, 16), "0x"
	case 'X':
		digits, prefix = strings.ToUpper(strconv.FormatUint(u, 16)), "0X"
	case 'c':
		if n < 0 || n > utf8.MaxRune {
			return "", Errorf(OverflowError, "%%c arg not in range(0x110000)")
		}
		return sp.pad(string(rune(n)), '<'), nil
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		return formatFloat(float64(n), sp)
	default:
		return "", Errorf(ValueError, "Unknown format code '%c' for object of type 'int'", sp.typ)
	}
	if sp.prec >= 0 {
		return "", Errorf(ValueError, "Precision not allowed in integer format specifier")
	}
	if sp.grouping != 0 {
		every := 3
		if sp.typ != 0 && sp.typ != 'd' && sp.typ != 'n' {
			every = 4
		}
		digits = group(digits, sp.grouping, every)
	}
	if !sp.alt {
		prefix = ""
	}
	return sp.number(neg, prefix, digits), nil
}

func formatFloat(f float64, sp fmtSpec) (string, error) {
	neg := math.Signbit(f) && !math.IsNaN(f)
	a := math.Abs(f)
	prec := sp.prec
	var body string
	switch sp.typ {
	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(a, 'e', prec, 64)
	case 'f', 'F':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(a, 'f', prec, 64)
	case '%':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(a*100, 'f', prec, 64) + "%"
	case 'g', 'G', 'n':
		if prec < 0 {
			prec = 6
		}
		if prec == 0 {
			prec = 1
		}
		body = formatG(a, prec, sp.alt)
	case 0:
		if prec < 0 {
			body = FormatFloat(a)
		} else {
			if prec == 0 {
				prec = 1
			}
			body = formatG(a, prec, sp.alt)
			if !strings.ContainsAny(body, ".e") && !math.IsInf(a, 0) && !math.IsNaN(a) {
				body += ".0"
			}
		}
	default:
		return "", Errorf(ValueError, "Unknown format code '%c' for object of type 'float'", sp.typ)
	}
	switch {
	case math.IsNaN(f):
		body = "nan"
	case math.IsInf(f, 0):
		body = "inf"
		if sp.typ == '%' {
			body += "%"
		}
	}
	if sp.typ == 'E' || sp.typ == 'F' || sp.typ == 'G' {
		body = strings.ToUpper(body)
	}
	if sp.grouping != 0 {
		intPart, rest := body, ""
		if i := strings.IndexAny(body, ".e%"); i >= 0 {
			intPart, rest = body[:i], body[i:]
		}
		if intPart != "" && intPart[0] >= '0' && intPart[0] <= '9' {
			body = group(intPart, sp.grouping, 3) + rest
		}
	}
	return sp.number(neg, "", body), nil
}

// formatG renders the 'g' presentation: scientific when the exponent is
// below -4 or at least prec, positional otherwise, trailing zeros removed
// unless alt is set.
func formatG(f float64, prec int, alt bool) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', prec, 64)
	}
	s := strconv.FormatFloat(f, 'g', prec, 64)
	if alt && !strings.Contains(s, ".") {
		if i := strings.IndexByte(s, 'e'); i >= 0 {
			s = s[:i] + "." + s[i:]
		} else {
			s += "."
		}
	}
	return s
}

func group(digits string, sep byte, every int) string {
	if len(digits) <= every {
		return digits
	}
	var b strings.Builder
	head := len(digits) % every
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += every {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(digits[i : i+every])
	}
	return b.String()
}

// number assembles sign, prefix and digits, applying '=' padding between
// the sign and the digits.
func (sp fmtSpec) number(neg bool, prefix, digits string) string {
	sign := ""
	switch {
	case neg:
		sign = "-"
	case sp.sign == '+':
		sign = "+"
	case sp.sign == ' ':
		sign = " "
	}
	if sp.align == '=' {
		n := utf8.RuneCountInString(sign + prefix + digits)
		if n < sp.width {
			digits = strings.Repeat(string(sp.fill), sp.width-n) + digits
		}
		return sign + prefix + digits
	}
	return sp.pad(sign+prefix+digits, '>')
}

func (sp fmtSpec) pad(s string, def byte) string {
	n := utf8.RuneCountInString(s)
	if n >= sp.width {
		return s
	}
	fill := string(sp.fill)
	gap := sp.width - n
	align := sp.align
	if align == 0 || align == '=' {
		align = def
	}
	switch align {
	case '<':
		return s + strings.Repeat(fill, gap)
	case '^':
		left := gap / 2
		return strings.Repeat(fill, left) + s + strings.Repeat(fill, gap-left)
	}
	return strings.Repeat(fill, gap) + s
}

// StrFormat implements str.format. Fields are {}, {n} or {name},
// optionally followed by [key] lookups, a !r/!s/!a conversion and a
// :spec that may itself contain nested fields.
func StrFormat(th Thread, format string, args []Value, kwargs []Kwarg) (string, error) {
	f := strFormatter{th: th, args: args, kwargs: kwargs}
	return f.format(format, 0)
}

type strFormatter struct {
	th     Thread
	args   []Value
	kwargs []Kwarg
	auto   int
	mode   int // 0 unset, 1 automatic, 2 manual
}

func (f *strFormatter) format(s string, depth int) (string, error) {
	if depth > 2 {
		return "", Errorf(ValueError, "Max string recursion exceeded")
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '}':
			return "", Errorf(ValueError, "Single '}' encountered in format string")
		case c == '{':
			end := matchField(s, i)
			if end < 0 {
				if strings.IndexByte(s[i:], '}') < 0 {
					return "", Errorf(ValueError, "Single '{' encountered in format string")
				}
				return "", Errorf(ValueError, "expected '}' before end of string")
			}
			out, err := f.field(s[i+1:end], depth)
			if err != nil {
				return "", err
			}
			b.WriteString(out)
			i = end + 1
		default:
			b.WriteByte(c)
			i++
		}
		if b.Len() > MaxContainerLen {
			return "", memoryError()
		}
	}
	return b.String(), nil
}

// matchField returns the index of the '}' closing the field opened at i.
func matchField(s string, i int) int {
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func (f *strFormatter) field(body string, depth int) (string, error) {
	name, spec := body, ""
	if i := strings.IndexByte(body, ':'); i >= 0 {
		name, spec = body[:i], body[i+1:]
	}
	conv := byte(0)
	if i := strings.IndexByte(name, '!'); i >= 0 {
		if len(name) != i+2 {
			return "", Errorf(ValueError, "expected ':' after conversion specifier")
		}
		conv, name = name[i+1], name[:i]
	}
	v, err := f.lookup(name)
	if err != nil {
		return "", err
	}
	switch conv {
	case 0:
	case 'r', 'a':
		v = Str(Repr(v))
	case 's':
		v = Str(ToStr(v))
	default:
		return "", Errorf(ValueError, "Unknown conversion specifier %c", conv)
	}
	if strings.IndexByte(spec, '{') >= 0 {
		if spec, err = f.format(spec, depth+1); err != nil {
			return "", err
		}
	}
	return FormatValue(v, spec)
}

func (f *strFormatter) lookup(field string) (Value, error) {
	head, rest := field, ""
	if i := strings.IndexAny(field, "[."); i >= 0 {
		head, rest = field[:i], field[i:]
	}
	var v Value
	switch {
	case head == "":
		if f.mode == 2 {
			return nil, Errorf(ValueError, "cannot switch from manual field specification to automatic field numbering")
		}
		f.mode = 1
		if f.auto >= len(f.args) {
			return nil, Errorf(IndexError, "Replacement index %d out of range for positional args tuple", f.auto)
		}
		v = f.args[f.auto]
		f.auto++
	case head[0] >= '0' && head[0] <= '9':
		n, err := strconv.Atoi(head)
		if err != nil {
			return nil, Errorf(ValueError, "Format string contains positional fields")
		}
		if f.mode == 1 {
			return nil, Errorf(ValueError, "cannot switch from automatic field numbering to manual field specification")
		}
		f.mode = 2
		if n >= len(f.args) {
			return nil, Errorf(IndexError, "Replacement index %d out of range for positional args tuple", n)
		}
		v = f.args[n]
	default:
		found := false
		for _, kw := range f.kwargs {
			if kw.Name == head {
				v, found = kw.Value, true
			}
		}
		if !found {
			return nil, NewException(KeyError, Str(head))
		}
	}
	for rest != "" {
		if rest[0] == '.' {
			return nil, Errorf(ValueError, "attribute lookup is not supported in format fields")
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, Errorf(ValueError, "Missing ']' in format string")
		}
		var key Value = Str(rest[1:end])
		if n, err := strconv.Atoi(rest[1:end]); err == nil {
			key = Int(n)
		}
		var err error
		if v, err = GetItem(f.th, v, key); err != nil {
			return nil, err
		}
		rest = rest[end+1:]
	}
	return v, nil
}

// PercentFormat implements the printf-style "format % args" operator.
func PercentFormat(th Thread, format string, args Value) (Value, error) {
	var items []Value
	mapping, _ := args.(*Dict)
	if t, ok := args.(Tuple); ok {
		items = t
	} else {
		items = []Value{args}
	}
	next := 0
	arg := func() (Value, error) {
		if next >= len(items) {
			return nil, Errorf(TypeError, "not enough arguments for format string")
		}
		next++
		return items[next-1], nil
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return nil, Errorf(ValueError, "incomplete format")
		}
		var key *string
		if format[i] == '(' {
			end := strings.IndexByte(format[i:], ')')
			if end < 0 {
				return nil, Errorf(ValueError, "incomplete format key")
			}
			k := format[i+1 : i+end]
			key = &k
			i += end + 1
		}
		sp := fmtSpec{fill: ' ', prec: -1}
		zero := false
	flags:
		for ; i < len(format); i++ {
			switch format[i] {
			case '-':
				sp.align = '<'
			case '+':
				sp.sign = '+'
			case ' ':
				if sp.sign == 0 {
					sp.sign = ' '
				}
			case '#':
				sp.alt = true
			case '0':
				zero = true
			default:
				break flags
			}
		}
		readNum := func() (int, bool, error) {
			if i < len(format) && format[i] == '*' {
				i++
				v, err := arg()
				if err != nil {
					return 0, false, err
				}
				n, err := AsInt(v)
				if err != nil {
					return 0, false, Errorf(TypeError, "* wants int")
				}
				return int(n), true, nil
			}
			j := i
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				i++
			}
			if j == i {
				return 0, false, nil
			}
			n, err := strconv.Atoi(format[j:i])
			if err != nil || n > MaxContainerLen {
				return 0, false, Errorf(ValueError, "width too big")
			}
			return n, true, nil
		}
		w, _, err := readNum()
		if err != nil {
			return nil, err
		}
		if w < 0 {
			sp.align, w = '<', -w
		}
		sp.width = w
		if i < len(format) && format[i] == '.' {
			i++
			p, _, err := readNum()
			if err != nil {
				return nil, err
			}
			sp.prec = max(p, 0)
		}
		if i >= len(format) {
			return nil, Errorf(ValueError, "incomplete format")
		}
		conv := format[i]
		if conv == '%' {
			b.WriteByte('%')
			continue
		}

		var v Value
		if key != nil {
			if mapping == nil {
				return nil, Errorf(TypeError, "format requires a mapping")
			}
			val, ok, err := mapping.Get(Str(*key))
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, NewException(KeyError, Str(*key))
			}
			v = val
		} else if v, err = arg(); err != nil {
			return nil, err
		}

		if zero && sp.align != '<' {
			sp.fill, sp.align = '0', '='
		}
		var out string
		switch conv {
		case 's', 'r', 'a':
			s := ToStr(v)
			if conv != 's' {
				s = Repr(v)
			}
			if sp.prec >= 0 && utf8.RuneCountInString(s) > sp.prec {
				s = string([]rune(s)[:sp.prec])
			}
			sp.fill = ' '
			out = sp.pad(s, '>')
		case 'd', 'i', 'u':
			n, err := percentInt(v, conv, true)
			if err != nil {
				return nil, err
			}
			sp.prec, sp.typ = -1, 'd'
			out, err = formatInt(n, sp)
			if err != nil {
				return nil, err
			}
		case 'x', 'X', 'o':
			n, err := percentInt(v, conv, false)
			if err != nil {
				return nil, err
			}
			sp.prec, sp.typ = -1, conv
			out, err = formatInt(n, sp)
			if err != nil {
				return nil, err
			}
		case 'e', 'E', 'f', 'F', 'g', 'G':
			f, err := AsFloat(v)
			if err != nil {
				return nil, Errorf(TypeError, "must be real number, not %s", TypeName(v))
			}
			sp.typ = conv
			out, err = formatFloat(f, sp)
			if err != nil {
				return nil, err
			}
		case 'c':
			switch x := v.(type) {
			case Str:
				if utf8.RuneCountInString(string(x)) != 1 {
					return nil, Errorf(TypeError, "%%c requires int or char")
				}
				out = sp.pad(string(x), '>')
			default:
				n, err := AsInt(v)
				if err != nil {
					return nil, Errorf(TypeError, "%%c requires int or char")
				}
				if n < 0 || n > utf8.MaxRune {
					return nil, Errorf(OverflowError, "%%c arg not in range(0x110000)")
				}
				out = sp.pad(string(rune(n)), '>')
			}
		default:
			return nil, Errorf(ValueError, "unsupported format character '%c' (0x%x) at index %d", conv, conv, i)
		}
		b.WriteString(out)
		if b.Len() > MaxContainerLen {
			return nil, memoryError()
		}
	}
	if mapping == nil && next < len(items) {
		return nil, Errorf(TypeError, "not all arguments converted during string formatting")
	}
	return Str(b.String()), nil
}

func percentInt(v Value, conv byte, allowFloat bool) (int64, error) {
	switch x := v.(type) {
	case Int, Bool:
		return AsInt(x)
	case Float:
		if allowFloat {
			n, err := FloatToInt(float64(x))
			return int64(n), err
		}
		return 0, Errorf(TypeError, "%%%c format: an integer is required, not float", conv)
	}
	if allowFloat {
		return 0, Errorf(TypeError, "%%%c format: a real number is required, not %s", conv, TypeName(v))
	}
	return 0, Errorf(TypeError, "%%%c format: an integer is required, not %s", conv, TypeName(v))
}
