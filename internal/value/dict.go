package value

// Dict is an insertion-ordered hash map. Tag distinguishes the
// collections variants that share the representation: "Counter",
// "defaultdict" and "OrderedDict".
type Dict struct {
	keys  []Value
	vals  []Value
	index map[string]int

	Tag     string
	Default Value // defaultdict factory; nil or None when unset
}

// NewDict returns an empty dict.
func NewDict() *Dict {
	return &Dict{index: map[string]int{}}
}

func (d *Dict) Type() string {
	if d.Tag != "" {
		return d.Tag
	}
	return "dict"
}
func (d *Dict) Truth() bool { return len(d.keys) > 0 }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Get looks up k. It fails only when k is unhashable.
func (d *Dict) Get(k Value) (Value, bool, error) {
	hk, err := HashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[hk]
	if !ok {
		return nil, false, nil
	}
	return d.vals[i], true, nil
}

// Set inserts or replaces k. Replacing keeps the original position.
func (d *Dict) Set(k, v Value) error {
	hk, err := HashKey(k)
	if err != nil {
		return err
	}
	if d.index == nil {
		d.index = map[string]int{}
	}
	if i, ok := d.index[hk]; ok {
		d.vals[i] = v
		return nil
	}
	if len(d.keys) >= MaxContainerLen {
		return memoryError()
	}
	d.index[hk] = len(d.keys)
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
	return nil
}

// Delete removes k and reports whether it was present.
func (d *Dict) Delete(k Value) (Value, bool, error) {
	hk, err := HashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[hk]
	if !ok {
		return nil, false, nil
	}
	v := d.vals[i]
	d.removeAt(i, hk)
	return v, true, nil
}

func (d *Dict) removeAt(i int, hk string) {
	delete(d.index, hk)
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	for j := i; j < len(d.keys); j++ {
		k, _ := HashKey(d.keys[j])
		d.index[k] = j
	}
}

// PopLast removes and returns the most recently inserted entry.
func (d *Dict) PopLast() (Value, Value, bool) {
	n := len(d.keys)
	if n == 0 {
		return nil, nil, false
	}
	k, v := d.keys[n-1], d.vals[n-1]
	hk, _ := HashKey(k)
	d.removeAt(n-1, hk)
	return k, v, true
}

// Clear removes every entry.
func (d *Dict) Clear() {
	d.keys, d.vals = nil, nil
	d.index = map[string]int{}
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	out := make([]Value, len(d.keys))
	copy(out, d.keys)
	return out
}

// Values returns the values in insertion order.
func (d *Dict) Values() []Value {
	out := make([]Value, len(d.vals))
	copy(out, d.vals)
	return out
}

// Items returns (key, value) tuples in insertion order.
func (d *Dict) Items() []Value {
	out := make([]Value, len(d.keys))
	for i := range d.keys {
		out[i] = Tuple{d.keys[i], d.vals[i]}
	}
	return out
}

// Entry returns the i-th key and value.
func (d *Dict) Entry(i int) (Value, Value) { return d.keys[i], d.vals[i] }

// Copy returns a shallow copy, preserving the tag and default factory.
func (d *Dict) Copy() *Dict {
	c := &Dict{
		keys:    append([]Value(nil), d.keys...),
		vals:    append([]Value(nil), d.vals...),
		index:   make(map[string]int, len(d.index)),
		Tag:     d.Tag,
		Default: d.Default,
	}
	for k, i := range d.index {
		c.index[k] = i
	}
	return c
}

// Set is a hash set in insertion order. Frozen marks a frozenset.
type Set struct {
	items  []Value
	index  map[string]int
	Frozen bool
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{index: map[string]int{}}
}

func (s *Set) Type() string {
	if s.Frozen {
		return "frozenset"
	}
	return "set"
}
func (s *Set) Truth() bool { return len(s.items) > 0 }

// Len returns the number of elements.
func (s *Set) Len() int { return len(s.items) }

// Has reports membership; it fails only when v is unhashable.
func (s *Set) Has(v Value) (bool, error) {
	hk, err := HashKey(v)
	if err != nil {
		return false, err
	}
	_, ok := s.index[hk]
	return ok, nil
}

// Add inserts v.
func (s *Set) Add(v Value) error {
	hk, err := HashKey(v)
	if err != nil {
		return err
	}
	if s.index == nil {
		s.index = map[string]int{}
	}
	if _, ok := s.index[hk]; ok {
		return nil
	}
	if len(s.items) >= MaxContainerLen {
		return memoryError()
	}
	s.index[hk] = len(s.items)
	s.items = append(s.items, v)
	return nil
}

// Remove deletes v and reports whether it was present.
func (s *Set) Remove(v Value) (bool, error) {
	hk, err := HashKey(v)
	if err != nil {
		return false, err
	}
	i, ok := s.index[hk]
	if !ok {
		return false, nil
	}
	delete(s.index, hk)
	s.items = append(s.items[:i], s.items[i+1:]...)
	for j := i; j < len(s.items); j++ {
		k, _ := HashKey(s.items[j])
		s.index[k] = j
	}
	return true, nil
}

// Clear removes every element.
func (s *Set) Clear() {
	s.items = nil
	s.index = map[string]int{}
}

// Items returns the elements in insertion order.
func (s *Set) Items() []Value {
	out := make([]Value, len(s.items))
	copy(out, s.items)
	return out
}

// Copy returns a shallow copy with the same frozenness.
func (s *Set) Copy() *Set {
	c := &Set{
		items:  append([]Value(nil), s.items...),
		index:  make(map[string]int, len(s.index)),
		Frozen: s.Frozen,
	}
	for k, i := range s.index {
		c.index[k] = i
	}
	return c
}

// SetOf builds a set from vals.
func SetOf(vals []Value, frozen bool) (*Set, error) {
	s := NewSet()
	s.Frozen = frozen
	for _, v := range vals {
		if err := s.Add(v); err != nil {
			return nil, err
		}
	}
	return s, nil
}
