package capability

import (
	"strings"

	"github.com/roach88/stepwise/internal/value"
)

// Guard mediates every operation the compiler lowers into a guarded form.
// The evaluator has no other path to attributes, items, iteration,
// unpacking or in-place updates, so a Guard implementation decides
// exactly what a script can touch.
type Guard interface {
	GetAttr(obj value.Value, name string) (value.Value, error)
	GetItem(th value.Thread, obj, key value.Value) (value.Value, error)
	SetItem(th value.Thread, obj, key, v value.Value) error
	DelItem(th value.Thread, obj, key value.Value) error
	Iter(th value.Thread, obj value.Value) (*value.Iterator, error)
	Unpack(th value.Thread, obj value.Value, n int) ([]value.Value, error)
	InPlace(th value.Thread, op string, x, y value.Value) (value.Value, error)
}

// inPlaceOps maps augmented-assignment operators to the binary operator
// they apply.
var inPlaceOps = map[string]string{
	"+=":  "+",
	"-=":  "-",
	"*=":  "*",
	"/=":  "/",
	"//=": "//",
	"%=":  "%",
	"**=": "**",
	"<<=": "<<",
	">>=": ">>",
	"&=":  "&",
	"|=":  "|",
	"^=":  "^",
}

// DefaultGuard is the standard policy: the declared attribute surface of
// built-in values and module members, never a name starting with "_";
// item access on sequences, strings, mappings and ranges; iteration over
// built-in iterables only; exact-arity unpacking; and the fixed in-place
// operator table.
type DefaultGuard struct{}

var _ Guard = DefaultGuard{}

// GetAttr implements Guard.
func (DefaultGuard) GetAttr(obj value.Value, name string) (value.Value, error) {
	if strings.HasPrefix(name, "_") {
		return nil, value.Errorf(value.AttributeError, "'%s' is an invalid attribute name because it starts with \"_\"", name)
	}
	return value.GetAttr(obj, name)
}

// GetItem implements Guard.
func (DefaultGuard) GetItem(th value.Thread, obj, key value.Value) (value.Value, error) {
	return value.GetItem(th, obj, key)
}

// SetItem implements Guard.
func (DefaultGuard) SetItem(th value.Thread, obj, key, v value.Value) error {
	return value.SetItem(th, obj, key, v)
}

// DelItem implements Guard.
func (DefaultGuard) DelItem(th value.Thread, obj, key value.Value) error {
	return value.DelItem(th, obj, key)
}

// Iter implements Guard. The returned iterator polls the safepoint every
// 1024 elements.
func (DefaultGuard) Iter(th value.Thread, obj value.Value) (*value.Iterator, error) {
	return value.Iterate(th, obj)
}

// Unpack implements Guard.
func (DefaultGuard) Unpack(th value.Thread, obj value.Value, n int) ([]value.Value, error) {
	return value.Unpack(th, obj, n)
}

// InPlace implements Guard. op is the augmented operator including its
// trailing "=".
func (DefaultGuard) InPlace(th value.Thread, op string, x, y value.Value) (value.Value, error) {
	bin, ok := inPlaceOps[op]
	if !ok {
		return nil, value.Errorf(value.TypeError, "unsupported in-place operator %s", op)
	}
	return value.InPlace(th, bin, x, y)
}
