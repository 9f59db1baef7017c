package value

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casers carry state, so each call builds its own.
func upper(s string) string    { return cases.Upper(language.Und).String(s) }
func lower(s string) string    { return cases.Lower(language.Und).String(s) }
func casefold(s string) string { return cases.Fold().String(s) }

var strMethods map[string]BuiltinFunc

func init() {
	strMethods = map[string]BuiltinFunc{
		"capitalize":   strCapitalize,
		"casefold":     strMapper("casefold", casefold),
		"center":       strJustify("center"),
		"count":        strCount,
		"endswith":     strAffix("endswith", strings.HasSuffix),
		"find":         strFind("find", false, false),
		"format":       strFormatMethod,
		"index":        strFind("index", false, true),
		"isalnum":      strPredicate("isalnum", func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }),
		"isalpha":      strPredicate("isalpha", unicode.IsLetter),
		"isascii":      strIsASCII,
		"isdecimal":    strPredicate("isdecimal", unicode.IsDigit),
		"isdigit":      strPredicate("isdigit", unicode.IsDigit),
		"isidentifier": strIsIdentifier,
		"islower":      strCased("islower", unicode.IsLower, unicode.IsUpper),
		"isnumeric":    strPredicate("isnumeric", unicode.IsNumber),
		"isprintable":  strIsPrintable,
		"isspace":      strPredicate("isspace", unicode.IsSpace),
		"istitle":      strIsTitle,
		"isupper":      strCased("isupper", unicode.IsUpper, unicode.IsLower),
		"join":         strJoin,
		"ljust":        strJustify("ljust"),
		"lower":        strMapper("lower", lower),
		"lstrip":       strStrip("lstrip"),
		"partition":    strPartition("partition"),
		"removeprefix": strRemoveAffix("removeprefix"),
		"removesuffix": strRemoveAffix("removesuffix"),
		"replace":      strReplace,
		"rfind":        strFind("rfind", true, false),
		"rindex":       strFind("rindex", true, true),
		"rjust":        strJustify("rjust"),
		"rpartition":   strPartition("rpartition"),
		"rsplit":       strSplit("rsplit"),
		"rstrip":       strStrip("rstrip"),
		"split":        strSplit("split"),
		"splitlines":   strSplitLines,
		"startswith":   strAffix("startswith", strings.HasPrefix),
		"strip":        strStrip("strip"),
		"swapcase":     strMapper("swapcase", swapCase),
		"title":        strMapper("title", titleCase),
		"translate":    strTranslate,
		"upper":        strMapper("upper", upper),
		"zfill":        strZfill,
	}
}

func recvStr(recv Value) string { return string(recv.(Str)) }

func strMapper(name string, f func(string) string) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		if err := UnpackArgs(name, args, kwargs); err != nil {
			return nil, err
		}
		return Str(f(recvStr(recv))), nil
	}
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return unicode.ToLower(r)
		case unicode.IsLower(r):
			return unicode.ToUpper(r)
		}
		return r
	}, s)
}

// titleCase upper-cases the first cased letter after any uncased run and
// lower-cases the rest, so "they're" becomes "They'Re".
func titleCase(s string) string {
	var b strings.Builder
	prevCased := false
	for _, r := range s {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && !prevCased:
			b.WriteRune(unicode.ToTitle(r))
		case cased:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevCased = cased
	}
	return b.String()
}

func strCapitalize(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("capitalize", args, kwargs); err != nil {
		return nil, err
	}
	s := recvStr(recv)
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return Str(""), nil
	}
	return Str(string(unicode.ToTitle(r)) + lower(s[size:])), nil
}

func strPredicate(name string, f func(rune) bool) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		if err := UnpackArgs(name, args, kwargs); err != nil {
			return nil, err
		}
		s := recvStr(recv)
		if s == "" {
			return False, nil
		}
		for _, r := range s {
			if !f(r) {
				return False, nil
			}
		}
		return True, nil
	}
}

// strCased implements islower/isupper: at least one cased rune and none of
// the opposite case.
func strCased(name string, want, reject func(rune) bool) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		if err := UnpackArgs(name, args, kwargs); err != nil {
			return nil, err
		}
		seen := false
		for _, r := range recvStr(recv) {
			if reject(r) || unicode.IsTitle(r) {
				return False, nil
			}
			if want(r) {
				seen = true
			}
		}
		return Bool(seen), nil
	}
}

func strIsASCII(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("isascii", args, kwargs); err != nil {
		return nil, err
	}
	for _, r := range recvStr(recv) {
		if r >= utf8.RuneSelf {
			return False, nil
		}
	}
	return True, nil
}

func strIsIdentifier(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("isidentifier", args, kwargs); err != nil {
		return nil, err
	}
	s := recvStr(recv)
	if s == "" {
		return False, nil
	}
	for i, r := range s {
		if !(r == '_' || unicode.IsLetter(r) || i > 0 && unicode.IsDigit(r)) {
			return False, nil
		}
	}
	return True, nil
}

func strIsPrintable(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("isprintable", args, kwargs); err != nil {
		return nil, err
	}
	for _, r := range recvStr(recv) {
		if !unicode.IsPrint(r) {
			return False, nil
		}
	}
	return True, nil
}

func strIsTitle(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("istitle", args, kwargs); err != nil {
		return nil, err
	}
	s := recvStr(recv)
	return Bool(s != "" && titleCase(s) == s && strings.ToLower(s) != s), nil
}

func strJustify(name string) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		var width int
		fill := " "
		if err := UnpackArgs(name, args, kwargs, ArgSpec{"width", &width}, ArgSpec{"fillchar?", &fill}); err != nil {
			return nil, err
		}
		if utf8.RuneCountInString(fill) != 1 {
			return nil, Errorf(TypeError, "The fill character must be exactly one character long")
		}
		if width > MaxContainerLen {
			return nil, memoryError()
		}
		r, _ := utf8.DecodeRuneInString(fill)
		sp := fmtSpec{fill: r, width: width}
		switch name {
		case "center":
			sp.align = '^'
		case "ljust":
			sp.align = '<'
		default:
			sp.align = '>'
		}
		return Str(sp.pad(recvStr(recv), sp.align)), nil
	}
}

func strZfill(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var width int
	if err := UnpackArgs("zfill", args, kwargs, ArgSpec{"width", &width}); err != nil {
		return nil, err
	}
	if width > MaxContainerLen {
		return nil, memoryError()
	}
	s := recvStr(recv)
	n := utf8.RuneCountInString(s)
	if n >= width {
		return Str(s), nil
	}
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}
	return Str(sign + strings.Repeat("0", width-n) + s), nil
}

// window returns the rune-indexed s[start:end] and its rune offset. An
// empty window that starts past the end of s reports errOutOfWindow.
func window(s string, start, end Value) (string, int, error) {
	if IsNone(start) && IsNone(end) {
		return s, 0, nil
	}
	runes := []rune(s)
	lo, hi, _, _, err := sliceIndices(SliceValue{Lo: start, Hi: end, Step: None}, len(runes))
	if err != nil {
		return "", 0, err
	}
	if raw, err := AsInt(start); err == nil && raw > int64(len(runes)) || hi < lo {
		return "", lo, errOutOfWindow
	}
	return string(runes[lo:hi]), lo, nil
}

var errOutOfWindow = errors.New("window starts past the end of the string")

func runeIndex(s string, byteIdx int) int {
	return utf8.RuneCountInString(s[:byteIdx])
}

func strCount(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var sub string
	var start, end Value = None, None
	if err := UnpackArgs("count", args, kwargs, ArgSpec{"sub", &sub}, ArgSpec{"start?", &start}, ArgSpec{"end?", &end}); err != nil {
		return nil, err
	}
	s, _, err := window(recvStr(recv), start, end)
	if err == errOutOfWindow {
		return Int(0), nil
	} else if err != nil {
		return nil, err
	}
	if sub == "" {
		return Int(utf8.RuneCountInString(s) + 1), nil
	}
	return Int(strings.Count(s, sub)), nil
}

func strFind(name string, last, raise bool) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		var sub string
		var start, end Value = None, None
		if err := UnpackArgs(name, args, kwargs, ArgSpec{"sub", &sub}, ArgSpec{"start?", &start}, ArgSpec{"end?", &end}); err != nil {
			return nil, err
		}
		s, off, err := window(recvStr(recv), start, end)
		i := -1
		if err == nil {
			if last {
				i = strings.LastIndex(s, sub)
			} else {
				i = strings.Index(s, sub)
			}
		} else if err != errOutOfWindow {
			return nil, err
		}
		if i < 0 {
			if raise {
				return nil, Errorf(ValueError, "substring not found")
			}
			return Int(-1), nil
		}
		return Int(off + runeIndex(s, i)), nil
	}
}

func strAffix(name string, match func(string, string) bool) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		var affix Value
		var start, end Value = None, None
		if err := UnpackArgs(name, args, kwargs, ArgSpec{"prefix", &affix}, ArgSpec{"start?", &start}, ArgSpec{"end?", &end}); err != nil {
			return nil, err
		}
		s, _, err := window(recvStr(recv), start, end)
		if err == errOutOfWindow {
			return False, nil
		} else if err != nil {
			return nil, err
		}
		candidates := []Value{affix}
		if t, ok := affix.(Tuple); ok {
			candidates = t
		}
		for _, c := range candidates {
			p, ok := c.(Str)
			if !ok {
				return nil, Errorf(TypeError, "%s first arg must be str or a tuple of str, not %s", name, TypeName(c))
			}
			if match(s, string(p)) {
				return True, nil
			}
		}
		return False, nil
	}
}

func strFormatMethod(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	s, err := StrFormat(th, recvStr(recv), args, kwargs)
	if err != nil {
		return nil, err
	}
	return Str(s), nil
}

func strJoin(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var iterable Value
	if err := UnpackArgs("join", args, kwargs, ArgSpec{"iterable", &iterable}); err != nil {
		return nil, err
	}
	elems, err := Collect(th, iterable)
	if err != nil {
		return nil, Errorf(TypeError, "can only join an iterable")
	}
	sep := recvStr(recv)
	parts := make([]string, len(elems))
	total := 0
	for i, e := range elems {
		s, ok := e.(Str)
		if !ok {
			return nil, Errorf(TypeError, "sequence item %d: expected str instance, %s found", i, TypeName(e))
		}
		parts[i] = string(s)
		total += len(s) + len(sep)
		if total > MaxContainerLen {
			return nil, memoryError()
		}
	}
	return Str(strings.Join(parts, sep)), nil
}

func strStrip(name string) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		var chars Value = None
		if err := UnpackArgs(name, args, kwargs, ArgSpec{"chars?", &chars}); err != nil {
			return nil, err
		}
		s := recvStr(recv)
		if IsNone(chars) {
			switch name {
			case "strip":
				return Str(strings.TrimSpace(s)), nil
			case "lstrip":
				return Str(strings.TrimLeftFunc(s, unicode.IsSpace)), nil
			}
			return Str(strings.TrimRightFunc(s, unicode.IsSpace)), nil
		}
		cs, ok := chars.(Str)
		if !ok {
			return nil, Errorf(TypeError, "%s arg must be None or str", name)
		}
		switch name {
		case "strip":
			return Str(strings.Trim(s, string(cs))), nil
		case "lstrip":
			return Str(strings.TrimLeft(s, string(cs))), nil
		}
		return Str(strings.TrimRight(s, string(cs))), nil
	}
}

func strPartition(name string) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		var sep string
		if err := UnpackArgs(name, args, kwargs, ArgSpec{"sep", &sep}); err != nil {
			return nil, err
		}
		if sep == "" {
			return nil, Errorf(ValueError, "empty separator")
		}
		s := recvStr(recv)
		if name == "partition" {
			if before, after, ok := strings.Cut(s, sep); ok {
				return Tuple{Str(before), Str(sep), Str(after)}, nil
			}
			return Tuple{Str(s), Str(""), Str("")}, nil
		}
		if i := strings.LastIndex(s, sep); i >= 0 {
			return Tuple{Str(s[:i]), Str(sep), Str(s[i+len(sep):])}, nil
		}
		return Tuple{Str(""), Str(""), Str(s)}, nil
	}
}

func strRemoveAffix(name string) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		var affix string
		if err := UnpackArgs(name, args, kwargs, ArgSpec{"affix", &affix}); err != nil {
			return nil, err
		}
		if name == "removeprefix" {
			return Str(strings.TrimPrefix(recvStr(recv), affix)), nil
		}
		return Str(strings.TrimSuffix(recvStr(recv), affix)), nil
	}
}

func strReplace(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var old, repl string
	count := int64(-1)
	if err := UnpackArgs("replace", args, kwargs, ArgSpec{"old", &old}, ArgSpec{"new", &repl}, ArgSpec{"count?", &count}); err != nil {
		return nil, err
	}
	s := recvStr(recv)
	n := strings.Count(s, old)
	if count >= 0 && int64(n) > count {
		n = int(count)
	}
	if int64(len(s))+int64(n)*int64(len(repl)-len(old)) > MaxContainerLen {
		return nil, memoryError()
	}
	return Str(strings.Replace(s, old, repl, n)), nil
}

func strSplit(name string) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		var sep Value = None
		maxsplit := int64(-1)
		if err := UnpackArgs(name, args, kwargs, ArgSpec{"sep?", &sep}, ArgSpec{"maxsplit?", &maxsplit}); err != nil {
			return nil, err
		}
		s := recvStr(recv)
		var parts []string
		if IsNone(sep) {
			parts = splitWhitespace(s, int(maxsplit), name == "rsplit")
		} else {
			sp, ok := sep.(Str)
			if !ok {
				return nil, Errorf(TypeError, "must be str or None, not %s", TypeName(sep))
			}
			if sp == "" {
				return nil, Errorf(ValueError, "empty separator")
			}
			switch {
			case maxsplit < 0:
				parts = strings.Split(s, string(sp))
			case name == "split":
				parts = strings.SplitN(s, string(sp), int(maxsplit)+1)
			default:
				parts = rsplitN(s, string(sp), int(maxsplit))
			}
		}
		out := make([]Value, len(parts))
		for i, p := range parts {
			out[i] = Str(p)
		}
		return NewList(out), nil
	}
}

func rsplitN(s, sep string, n int) []string {
	var rev []string
	for n > 0 {
		i := strings.LastIndex(s, sep)
		if i < 0 {
			break
		}
		rev = append(rev, s[i+len(sep):])
		s = s[:i]
		n--
	}
	out := []string{s}
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

func splitWhitespace(s string, maxsplit int, fromRight bool) []string {
	if maxsplit < 0 {
		return strings.Fields(s)
	}
	if fromRight {
		s = strings.TrimRightFunc(s, unicode.IsSpace)
		var rev []string
		for maxsplit > 0 && s != "" {
			i := strings.LastIndexFunc(s, unicode.IsSpace)
			if i < 0 {
				break
			}
			_, size := utf8.DecodeRuneInString(s[i:])
			rev = append(rev, s[i+size:])
			s = strings.TrimRightFunc(s[:i], unicode.IsSpace)
			maxsplit--
		}
		var out []string
		if s != "" {
			out = append(out, s)
		}
		for i := len(rev) - 1; i >= 0; i-- {
			out = append(out, rev[i])
		}
		return out
	}
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	var out []string
	for maxsplit > 0 && s != "" {
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			break
		}
		out = append(out, s[:i])
		s = strings.TrimLeftFunc(s[i:], unicode.IsSpace)
		maxsplit--
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func strSplitLines(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	keep := false
	if err := UnpackArgs("splitlines", args, kwargs, ArgSpec{"keepends?", &keep}); err != nil {
		return nil, err
	}
	s := recvStr(recv)
	var out []Value
	for len(s) > 0 {
		i := strings.IndexAny(s, "\n\r")
		if i < 0 {
			out = append(out, Str(s))
			break
		}
		end := i + 1
		if s[i] == '\r' && end < len(s) && s[end] == '\n' {
			end++
		}
		if keep {
			out = append(out, Str(s[:end]))
		} else {
			out = append(out, Str(s[:i]))
		}
		s = s[end:]
	}
	return NewList(out), nil
}

func strTranslate(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var table Value
	if err := UnpackArgs("translate", args, kwargs, ArgSpec{"table", &table}); err != nil {
		return nil, err
	}
	d, ok := table.(*Dict)
	if !ok {
		return nil, Errorf(TypeError, "translate() table must be a dict")
	}
	var b strings.Builder
	for _, r := range recvStr(recv) {
		v, found, err := d.Get(Int(r))
		if err != nil {
			return nil, err
		}
		if !found {
			b.WriteRune(r)
			continue
		}
		switch m := v.(type) {
		case NoneType:
		case Str:
			b.WriteString(string(m))
		case Int:
			b.WriteRune(rune(m))
		default:
			return nil, Errorf(TypeError, "character mapping must return integer, None or str")
		}
	}
	return Str(b.String()), nil
}

func strMakeTrans(_ Thread, _ Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x, y, z Value
	if err := UnpackArgs("maketrans", args, kwargs, ArgSpec{"x", &x}, ArgSpec{"y?", &y}, ArgSpec{"z?", &z}); err != nil {
		return nil, err
	}
	out := NewDict()
	if y == nil {
		src, ok := x.(*Dict)
		if !ok {
			return nil, Errorf(TypeError, "if you give only one argument to maketrans it must be a dict")
		}
		for i := range src.keys {
			k := src.keys[i]
			if s, ok := k.(Str); ok {
				if utf8.RuneCountInString(string(s)) != 1 {
					return nil, Errorf(ValueError, "string keys in translate table must be of length 1")
				}
				r, _ := utf8.DecodeRuneInString(string(s))
				k = Int(r)
			}
			if err := out.Set(k, src.vals[i]); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	from, ok1 := x.(Str)
	to, ok2 := y.(Str)
	if !ok1 || !ok2 {
		return nil, Errorf(TypeError, "maketrans() arguments must be str")
	}
	fr, tr := []rune(string(from)), []rune(string(to))
	if len(fr) != len(tr) {
		return nil, Errorf(ValueError, "the first two maketrans arguments must have equal length")
	}
	for i := range fr {
		if err := out.Set(Int(fr[i]), Int(tr[i])); err != nil {
			return nil, err
		}
	}
	if z != nil {
		del, ok := z.(Str)
		if !ok {
			return nil, Errorf(TypeError, "maketrans() argument 3 must be str")
		}
		for _, r := range string(del) {
			if err := out.Set(Int(r), None); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
