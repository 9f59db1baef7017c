package value

import (
	"math"
	"sort"
)

var (
	listMethods      map[string]BuiltinFunc
	dequeMethods     map[string]BuiltinFunc
	tupleMethods     map[string]BuiltinFunc
	dictMethods      map[string]BuiltinFunc
	counterMethods   map[string]BuiltinFunc
	orderedMethods   map[string]BuiltinFunc
	setMethods       map[string]BuiltinFunc
	frozensetMethods map[string]BuiltinFunc
	intMethods       map[string]BuiltinFunc
	floatMethods     map[string]BuiltinFunc
	rangeMethods     map[string]BuiltinFunc
)

func init() {
	listMethods = map[string]BuiltinFunc{
		"append":  listAppend,
		"clear":   listClear,
		"copy":    listCopy,
		"count":   seqCount,
		"extend":  listExtend,
		"index":   seqIndex,
		"insert":  listInsert,
		"pop":     listPop,
		"remove":  listRemove,
		"reverse": listReverse,
		"sort":    listSort,
	}
	dequeMethods = map[string]BuiltinFunc{
		"append":     listAppend,
		"appendleft": dequeAppendLeft,
		"clear":      listClear,
		"copy":       listCopy,
		"count":      seqCount,
		"extend":     listExtend,
		"extendleft": dequeExtendLeft,
		"index":      seqIndex,
		"insert":     listInsert,
		"pop":        listPop,
		"popleft":    dequePopLeft,
		"remove":     listRemove,
		"reverse":    listReverse,
		"rotate":     dequeRotate,
	}
	tupleMethods = map[string]BuiltinFunc{
		"count": seqCount,
		"index": seqIndex,
	}
	dictMethods = map[string]BuiltinFunc{
		"clear":      dictClear,
		"copy":       dictCopy,
		"get":        dictGet,
		"items":      dictView("items", (*Dict).Items),
		"keys":       dictView("keys", (*Dict).Keys),
		"pop":        dictPop,
		"popitem":    dictPopItem,
		"setdefault": dictSetDefault,
		"update":     dictUpdate,
		"values":     dictView("values", (*Dict).Values),
	}
	counterMethods = map[string]BuiltinFunc{
		"elements":    counterElements,
		"most_common": counterMostCommon,
		"subtract":    counterUpdate("subtract", -1),
		"total":       counterTotal,
		"update":      counterUpdate("update", 1),
	}
	orderedMethods = map[string]BuiltinFunc{
		"move_to_end": orderedMoveToEnd,
		"popitem":     orderedPopItem,
	}
	frozensetMethods = map[string]BuiltinFunc{
		"copy":                 setCopy,
		"difference":           setAlgebra("difference", "-"),
		"intersection":         setAlgebra("intersection", "&"),
		"isdisjoint":           setRelation("isdisjoint"),
		"issubset":             setRelation("issubset"),
		"issuperset":           setRelation("issuperset"),
		"symmetric_difference": setAlgebra("symmetric_difference", "^"),
		"union":                setAlgebra("union", "|"),
	}
	setMethods = map[string]BuiltinFunc{
		"add":                         setAdd,
		"clear":                       setClear,
		"difference_update":           setUpdate("difference_update", "-"),
		"discard":                     setDiscard,
		"intersection_update":         setUpdate("intersection_update", "&"),
		"pop":                         setPop,
		"remove":                      setRemove,
		"symmetric_difference_update": setUpdate("symmetric_difference_update", "^"),
		"update":                      setUpdate("update", "|"),
	}
	for k, v := range frozensetMethods {
		setMethods[k] = v
	}
	intMethods = map[string]BuiltinFunc{
		"bit_length": intBitLength,
		"is_integer": func(Thread, Value, []Value, []Kwarg) (Value, error) { return True, nil },
	}
	floatMethods = map[string]BuiltinFunc{
		"is_integer": floatIsInteger,
	}
	rangeMethods = map[string]BuiltinFunc{
		"count": seqCount,
		"index": seqIndex,
	}
}

// methodTables returns the method tables consulted for v, most specific
// first.
func methodTables(v Value) []map[string]BuiltinFunc {
	switch v := v.(type) {
	case Str:
		return []map[string]BuiltinFunc{strMethods}
	case *List:
		if v.IsDeque() {
			return []map[string]BuiltinFunc{dequeMethods}
		}
		return []map[string]BuiltinFunc{listMethods}
	case Tuple:
		return []map[string]BuiltinFunc{tupleMethods}
	case *Dict:
		switch v.Tag {
		case "Counter":
			return []map[string]BuiltinFunc{counterMethods, dictMethods}
		case "OrderedDict":
			return []map[string]BuiltinFunc{orderedMethods, dictMethods}
		}
		return []map[string]BuiltinFunc{dictMethods}
	case *Set:
		if v.Frozen {
			return []map[string]BuiltinFunc{frozensetMethods}
		}
		return []map[string]BuiltinFunc{setMethods}
	case Int, Bool:
		return []map[string]BuiltinFunc{intMethods}
	case Float:
		return []map[string]BuiltinFunc{floatMethods}
	case Range:
		return []map[string]BuiltinFunc{rangeMethods}
	}
	return nil
}

// GetAttr implements attribute reads on built-in values: methods (bound to
// v), data attributes, module members and class attributes.
func GetAttr(v Value, name string) (Value, error) {
	if a, ok, err := dataAttr(v, name); ok || err != nil {
		return a, err
	}
	for _, table := range methodTables(v) {
		if fn, ok := table[name]; ok {
			return NewBuiltin(name, fn).Bind(v), nil
		}
	}
	switch v := v.(type) {
	case *Module:
		if m, ok := v.Lookup(name); ok {
			return m, nil
		}
		return nil, Errorf(AttributeError, "module '%s' has no attribute '%s'", v.name, name)
	case *Class:
		for c := v; c != nil; c = c.Base {
			if a, ok := c.Attr(name); ok {
				return a, nil
			}
		}
		return nil, Errorf(AttributeError, "type object '%s' has no attribute '%s'", v.ClassName, name)
	}
	return nil, Errorf(AttributeError, "'%s' object has no attribute '%s'", TypeName(v), name)
}

func dataAttr(v Value, name string) (Value, bool, error) {
	switch v := v.(type) {
	case *Exception:
		if name == "args" {
			return v.Args, true, nil
		}
	case Range:
		switch name {
		case "start":
			return Int(v.Start), true, nil
		case "stop":
			return Int(v.Stop), true, nil
		case "step":
			return Int(v.Step), true, nil
		}
	case SliceValue:
		get := func(x Value) Value {
			if x == nil {
				return None
			}
			return x
		}
		switch name {
		case "start":
			return get(v.Lo), true, nil
		case "stop":
			return get(v.Hi), true, nil
		case "step":
			return get(v.Step), true, nil
		}
	case *List:
		if v.IsDeque() && name == "maxlen" {
			if n, ok := v.Bound(); ok {
				return Int(n), true, nil
			}
			return None, true, nil
		}
	case *Dict:
		if v.Tag == "defaultdict" && name == "default_factory" {
			if v.Default == nil {
				return None, true, nil
			}
			return v.Default, true, nil
		}
	case Int, Bool:
		n, _ := AsInt(v)
		switch name {
		case "real", "numerator":
			return Int(n), true, nil
		case "denominator":
			return Int(1), true, nil
		}
	case Float:
		if name == "real" {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// AttrNames lists the attribute names GetAttr resolves for v, sorted.
func AttrNames(v Value) []string {
	seen := map[string]bool{}
	for _, table := range methodTables(v) {
		for k := range table {
			seen[k] = true
		}
	}
	switch v := v.(type) {
	case *Module:
		for _, n := range v.Names() {
			seen[n] = true
		}
	case *Class:
		for c := v; c != nil; c = c.Base {
			for k := range c.attrs {
				seen[k] = true
			}
		}
	}
	for _, n := range []string{"args", "start", "stop", "step", "maxlen", "default_factory", "real", "numerator", "denominator"} {
		if _, ok, _ := dataAttr(v, n); ok {
			seen[n] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ---- sequences ----

func seqElems(v Value) []Value {
	switch v := v.(type) {
	case *List:
		return v.Elems
	case Tuple:
		return v
	}
	return nil
}

func seqCount(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value
	if err := UnpackArgs("count", args, kwargs, ArgSpec{"value", &x}); err != nil {
		return nil, err
	}
	if r, ok := recv.(Range); ok {
		in, err := Contains(th, r, x)
		if err != nil {
			return nil, err
		}
		if in {
			return Int(1), nil
		}
		return Int(0), nil
	}
	n := 0
	for _, e := range seqElems(recv) {
		if Is(e, x) || Equal(e, x) {
			n++
		}
	}
	return Int(n), nil
}

func seqIndex(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value
	var start, stop Value = None, None
	if err := UnpackArgs("index", args, kwargs, ArgSpec{"value", &x}, ArgSpec{"start?", &start}, ArgSpec{"stop?", &stop}); err != nil {
		return nil, err
	}
	if r, ok := recv.(Range); ok {
		if n, isInt := exactInt(x); isInt {
			if in, _ := Contains(th, r, x); in {
				return Int((n - r.Start) / r.Step), nil
			}
		}
		return nil, Errorf(ValueError, "%s is not in range", Repr(x))
	}
	elems := seqElems(recv)
	lo, hi, _, _, err := sliceIndices(SliceValue{Lo: start, Hi: stop, Step: None}, len(elems))
	if err != nil {
		return nil, err
	}
	for i := lo; i < hi; i++ {
		if Is(elems[i], x) || Equal(elems[i], x) {
			return Int(i), nil
		}
	}
	switch recv.(type) {
	case Tuple:
		return nil, Errorf(ValueError, "tuple.index(x): x not in tuple")
	}
	if recv.(*List).IsDeque() {
		return nil, Errorf(ValueError, "%s is not in deque", Repr(x))
	}
	return nil, Errorf(ValueError, "%s is not in list", Repr(x))
}

func listAppend(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value
	if err := UnpackArgs("append", args, kwargs, ArgSpec{"object", &x}); err != nil {
		return nil, err
	}
	return None, recv.(*List).Append(x)
}

func listClear(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("clear", args, kwargs); err != nil {
		return nil, err
	}
	recv.(*List).Elems = nil
	return None, nil
}

func listCopy(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("copy", args, kwargs); err != nil {
		return nil, err
	}
	l := recv.(*List)
	return &List{Elems: append([]Value(nil), l.Elems...), Tag: l.Tag, MaxLen: l.MaxLen}, nil
}

func listExtend(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var it Value
	if err := UnpackArgs("extend", args, kwargs, ArgSpec{"iterable", &it}); err != nil {
		return nil, err
	}
	l := recv.(*List)
	elems, err := Collect(th, it)
	if err != nil {
		return nil, err
	}
	for _, e := range elems {
		if err := l.Append(e); err != nil {
			return nil, err
		}
	}
	return None, nil
}

func listInsert(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var i int64
	var x Value
	if err := UnpackArgs("insert", args, kwargs, ArgSpec{"index", &i}, ArgSpec{"object", &x}); err != nil {
		return nil, err
	}
	l := recv.(*List)
	if n, ok := l.Bound(); ok && len(l.Elems) >= n {
		return nil, Errorf(IndexError, "deque already at its maximum size")
	}
	if len(l.Elems) >= MaxContainerLen {
		return nil, memoryError()
	}
	n := int64(len(l.Elems))
	if i < 0 {
		i = max(i+n, 0)
	}
	i = min(i, n)
	l.Elems = append(l.Elems, nil)
	copy(l.Elems[i+1:], l.Elems[i:])
	l.Elems[i] = x
	return None, nil
}

func listPop(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	l := recv.(*List)
	i := int64(-1)
	if l.IsDeque() {
		if err := UnpackArgs("pop", args, kwargs); err != nil {
			return nil, err
		}
		if len(l.Elems) == 0 {
			return nil, Errorf(IndexError, "pop from an empty deque")
		}
	} else {
		if err := UnpackArgs("pop", args, kwargs, ArgSpec{"index?", &i}); err != nil {
			return nil, err
		}
		if len(l.Elems) == 0 {
			return nil, Errorf(IndexError, "pop from empty list")
		}
	}
	n := int64(len(l.Elems))
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, Errorf(IndexError, "pop index out of range")
	}
	v := l.Elems[i]
	l.Elems = append(l.Elems[:i:i], l.Elems[i+1:]...)
	return v, nil
}

func listRemove(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value
	if err := UnpackArgs("remove", args, kwargs, ArgSpec{"value", &x}); err != nil {
		return nil, err
	}
	l := recv.(*List)
	for i, e := range l.Elems {
		if Is(e, x) || Equal(e, x) {
			l.Elems = append(l.Elems[:i:i], l.Elems[i+1:]...)
			return None, nil
		}
	}
	if l.IsDeque() {
		return nil, Errorf(ValueError, "deque.remove(x): x not in deque")
	}
	return nil, Errorf(ValueError, "list.remove(x): x not in list")
}

func listReverse(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("reverse", args, kwargs); err != nil {
		return nil, err
	}
	e := recv.(*List).Elems
	for i, j := 0, len(e)-1; i < j; i, j = i+1, j-1 {
		e[i], e[j] = e[j], e[i]
	}
	return None, nil
}

func listSort(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if len(args) > 0 {
		return nil, Errorf(TypeError, "sort() takes no positional arguments")
	}
	var key Value = None
	reverse := false
	if err := UnpackArgs("sort", nil, kwargs, ArgSpec{"key?", &key}, ArgSpec{"reverse?", &reverse}); err != nil {
		return nil, err
	}
	l := recv.(*List)
	return None, SortValues(th, l.Elems, key, reverse)
}

// SortValues sorts elems in place with the "<" ordering, stably, optionally
// through a key function. The first comparison error aborts the sort.
func SortValues(th Thread, elems []Value, key Value, reverse bool) error {
	keys := elems
	if !IsNone(key) {
		keys = make([]Value, len(elems))
		for i, e := range elems {
			k, err := th.Call(key, []Value{e}, nil)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	}
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	less := func(a, b Value) bool {
		if sortErr != nil {
			return false
		}
		lt, err := Compare("<", a, b)
		if err != nil {
			sortErr = err
		}
		return lt
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if reverse {
			return less(keys[idx[j]], keys[idx[i]])
		}
		return less(keys[idx[i]], keys[idx[j]])
	})
	if sortErr != nil {
		return sortErr
	}
	out := make([]Value, len(elems))
	for i, j := range idx {
		out[i] = elems[j]
	}
	copy(elems, out)
	return nil
}

func dequeAppendLeft(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value
	if err := UnpackArgs("appendleft", args, kwargs, ArgSpec{"x", &x}); err != nil {
		return nil, err
	}
	return None, prepend(recv.(*List), x)
}

func prepend(l *List, x Value) error {
	if len(l.Elems) >= MaxContainerLen {
		return memoryError()
	}
	l.Elems = append([]Value{x}, l.Elems...)
	if n, ok := l.Bound(); ok && len(l.Elems) > n {
		l.Elems = l.Elems[:n]
	}
	return nil
}

func dequeExtendLeft(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var it Value
	if err := UnpackArgs("extendleft", args, kwargs, ArgSpec{"iterable", &it}); err != nil {
		return nil, err
	}
	elems, err := Collect(th, it)
	if err != nil {
		return nil, err
	}
	for _, e := range elems {
		if err := prepend(recv.(*List), e); err != nil {
			return nil, err
		}
	}
	return None, nil
}

func dequePopLeft(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("popleft", args, kwargs); err != nil {
		return nil, err
	}
	l := recv.(*List)
	if len(l.Elems) == 0 {
		return nil, Errorf(IndexError, "pop from an empty deque")
	}
	v := l.Elems[0]
	l.Elems = append([]Value(nil), l.Elems[1:]...)
	return v, nil
}

func dequeRotate(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	n := int64(1)
	if err := UnpackArgs("rotate", args, kwargs, ArgSpec{"n?", &n}); err != nil {
		return nil, err
	}
	l := recv.(*List)
	size := int64(len(l.Elems))
	if size == 0 {
		return None, nil
	}
	k := floorMod(n, size)
	l.Elems = append(append([]Value(nil), l.Elems[size-k:]...), l.Elems[:size-k]...)
	return None, nil
}

// ---- dicts ----

func dictClear(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("clear", args, kwargs); err != nil {
		return nil, err
	}
	recv.(*Dict).Clear()
	return None, nil
}

func dictCopy(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("copy", args, kwargs); err != nil {
		return nil, err
	}
	return recv.(*Dict).Copy(), nil
}

func dictGet(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var k Value
	var def Value = None
	if err := UnpackArgs("get", args, kwargs, ArgSpec{"key", &k}, ArgSpec{"default?", &def}); err != nil {
		return nil, err
	}
	v, ok, err := recv.(*Dict).Get(k)
	if err != nil {
		return nil, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// dictView returns keys(), values() or items() as a list snapshot.
func dictView(name string, f func(*Dict) []Value) BuiltinFunc {
	return func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		if err := UnpackArgs(name, args, kwargs); err != nil {
			return nil, err
		}
		return NewList(f(recv.(*Dict))), nil
	}
}

func dictPop(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var k, def Value
	if err := UnpackArgs("pop", args, kwargs, ArgSpec{"key", &k}, ArgSpec{"default?", &def}); err != nil {
		return nil, err
	}
	v, ok, err := recv.(*Dict).Delete(k)
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	if def != nil {
		return def, nil
	}
	return nil, NewException(KeyError, k)
}

func dictPopItem(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("popitem", args, kwargs); err != nil {
		return nil, err
	}
	k, v, ok := recv.(*Dict).PopLast()
	if !ok {
		return nil, NewException(KeyError, Str("popitem(): dictionary is empty"))
	}
	return Tuple{k, v}, nil
}

func dictSetDefault(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var k Value
	var def Value = None
	if err := UnpackArgs("setdefault", args, kwargs, ArgSpec{"key", &k}, ArgSpec{"default?", &def}); err != nil {
		return nil, err
	}
	d := recv.(*Dict)
	v, ok, err := d.Get(k)
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	return def, d.Set(k, def)
}

func dictUpdate(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := ArgCount("update", args, 0, 1); err != nil {
		return nil, err
	}
	var src Value
	if len(args) == 1 {
		src = args[0]
	}
	return None, UpdateDict(th, recv.(*Dict), src, kwargs)
}

func counterUpdate(name string, sign int64) BuiltinFunc {
	return func(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		if err := ArgCount(name, args, 0, 1); err != nil {
			return nil, err
		}
		var src Value
		if len(args) == 1 {
			src = args[0]
		}
		return None, CounterUpdate(th, recv.(*Dict), src, kwargs, sign)
	}
}

func counterMostCommon(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var n Value = None
	if err := UnpackArgs("most_common", args, kwargs, ArgSpec{"n?", &n}); err != nil {
		return nil, err
	}
	items := recv.(*Dict).Items()
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		gt, err := Compare(">", items[i].(Tuple)[1], items[j].(Tuple)[1])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return gt
	})
	if sortErr != nil {
		return nil, sortErr
	}
	if !IsNone(n) {
		k, err := AsInt(n)
		if err != nil {
			return nil, err
		}
		items = items[:max(0, min(int(k), len(items)))]
	}
	return NewList(items), nil
}

func counterElements(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("elements", args, kwargs); err != nil {
		return nil, err
	}
	d := recv.(*Dict)
	var out []Value
	for i := range d.keys {
		n, _ := AsInt(d.vals[i])
		if int64(len(out))+n > MaxContainerLen {
			return nil, memoryError()
		}
		for ; n > 0; n-- {
			out = append(out, d.keys[i])
		}
	}
	return NewIterator("itertools.chain", func(Thread) (Value, bool, error) {
		if len(out) == 0 {
			return nil, false, nil
		}
		v := out[0]
		out = out[1:]
		return v, true, nil
	}), nil
}

func counterTotal(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("total", args, kwargs); err != nil {
		return nil, err
	}
	var sum Value = Int(0)
	for _, v := range recv.(*Dict).vals {
		var err error
		if sum, err = Binary(nil, "+", sum, v); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

func orderedMoveToEnd(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var k Value
	last := true
	if err := UnpackArgs("move_to_end", args, kwargs, ArgSpec{"key", &k}, ArgSpec{"last?", &last}); err != nil {
		return nil, err
	}
	d := recv.(*Dict)
	v, ok, err := d.Delete(k)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewException(KeyError, k)
	}
	if last {
		return None, d.Set(k, v)
	}
	rest := d.Copy()
	d.Clear()
	if err := d.Set(k, v); err != nil {
		return nil, err
	}
	for i := range rest.keys {
		if err := d.Set(rest.keys[i], rest.vals[i]); err != nil {
			return nil, err
		}
	}
	return None, nil
}

func orderedPopItem(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	last := true
	if err := UnpackArgs("popitem", args, kwargs, ArgSpec{"last?", &last}); err != nil {
		return nil, err
	}
	d := recv.(*Dict)
	if d.Len() == 0 {
		return nil, NewException(KeyError, Str("dictionary is empty"))
	}
	if last {
		k, v, _ := d.PopLast()
		return Tuple{k, v}, nil
	}
	k, v := d.Entry(0)
	if _, _, err := d.Delete(k); err != nil {
		return nil, err
	}
	return Tuple{k, v}, nil
}

// ---- sets ----

func toSet(th Thread, v Value) (*Set, error) {
	if s, ok := v.(*Set); ok {
		return s, nil
	}
	elems, err := Collect(th, v)
	if err != nil {
		return nil, err
	}
	return SetOf(elems, false)
}

func setAlgebra(name, op string) BuiltinFunc {
	return func(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		if err := NoKwargs(name, kwargs); err != nil {
			return nil, err
		}
		var acc Value = recv.(*Set).Copy()
		for _, a := range args {
			other, err := toSet(th, a)
			if err != nil {
				return nil, err
			}
			if acc, _, err = setOp(op, acc, other); err != nil {
				return nil, err
			}
		}
		return acc, nil
	}
}

func setUpdate(name, op string) BuiltinFunc {
	algebra := setAlgebra(name, op)
	return func(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		r, err := algebra(th, recv, args, kwargs)
		if err != nil {
			return nil, err
		}
		s, res := recv.(*Set), r.(*Set)
		s.items, s.index = res.items, res.index
		return None, nil
	}
}

func setRelation(name string) BuiltinFunc {
	return func(th Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		var other Value
		if err := UnpackArgs(name, args, kwargs, ArgSpec{"other", &other}); err != nil {
			return nil, err
		}
		o, err := toSet(th, other)
		if err != nil {
			return nil, err
		}
		s := recv.(*Set)
		switch name {
		case "issubset":
			return Bool(compareSets("<=", s, o)), nil
		case "issuperset":
			return Bool(compareSets(">=", s, o)), nil
		}
		for _, e := range s.items {
			if has, _ := o.Has(e); has {
				return False, nil
			}
		}
		return True, nil
	}
}

func setCopy(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("copy", args, kwargs); err != nil {
		return nil, err
	}
	return recv.(*Set).Copy(), nil
}

func setAdd(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value
	if err := UnpackArgs("add", args, kwargs, ArgSpec{"elem", &x}); err != nil {
		return nil, err
	}
	return None, recv.(*Set).Add(x)
}

func setClear(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("clear", args, kwargs); err != nil {
		return nil, err
	}
	recv.(*Set).Clear()
	return None, nil
}

func setDiscard(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value
	if err := UnpackArgs("discard", args, kwargs, ArgSpec{"elem", &x}); err != nil {
		return nil, err
	}
	_, err := recv.(*Set).Remove(x)
	return None, err
}

func setRemove(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	var x Value
	if err := UnpackArgs("remove", args, kwargs, ArgSpec{"elem", &x}); err != nil {
		return nil, err
	}
	ok, err := recv.(*Set).Remove(x)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewException(KeyError, x)
	}
	return None, nil
}

func setPop(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("pop", args, kwargs); err != nil {
		return nil, err
	}
	s := recv.(*Set)
	if s.Len() == 0 {
		return nil, Errorf(KeyError, "pop from an empty set")
	}
	v := s.items[0]
	_, err := s.Remove(v)
	return v, err
}

// ---- numbers ----

func intBitLength(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("bit_length", args, kwargs); err != nil {
		return nil, err
	}
	n, _ := AsInt(recv)
	u := uint64(n)
	if n < 0 {
		u = uint64(-n)
	}
	bits := 0
	for ; u > 0; u >>= 1 {
		bits++
	}
	return Int(bits), nil
}

func floatIsInteger(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
	if err := UnpackArgs("is_integer", args, kwargs); err != nil {
		return nil, err
	}
	f := float64(recv.(Float))
	return Bool(f == math.Trunc(f) && !math.IsInf(f, 0)), nil
}
