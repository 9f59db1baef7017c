package queryir

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidQuery is wrapped by every error Validate returns.
var ErrInvalidQuery = errors.New("invalid query")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that q only names plain identifiers and that every
// value it compares against can be bound as a parameter.
//
// Identifiers end up in the SQL text, so this is the only thing standing
// between a caller-supplied field name and the statement.
func Validate(q Query) error {
	switch q := q.(type) {
	case Select:
		return validateSelect(q)
	case *Select:
		if q == nil {
			return fmt.Errorf("%w: nil select", ErrInvalidQuery)
		}
		return validateSelect(*q)
	default:
		return fmt.Errorf("%w: unsupported query type %T", ErrInvalidQuery, q)
	}
}

func validateSelect(sel Select) error {
	if err := checkIdent("table", sel.From); err != nil {
		return err
	}
	if len(sel.Columns) == 0 {
		return fmt.Errorf("%w: select from %s has no columns", ErrInvalidQuery, sel.From)
	}
	for _, c := range sel.Columns {
		if err := checkIdent("column", c); err != nil {
			return err
		}
	}
	if len(sel.OrderBy) == 0 {
		return fmt.Errorf("%w: select from %s has no ORDER BY", ErrInvalidQuery, sel.From)
	}
	for _, o := range sel.OrderBy {
		if err := checkIdent("order field", o.Field); err != nil {
			return err
		}
	}
	if sel.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, sel.Limit)
	}
	if sel.Filter == nil {
		return nil
	}
	return validatePredicate(sel.Filter)
}

func validatePredicate(p Predicate) error {
	switch p := p.(type) {
	case Equals:
		return validateEquals(p)
	case *Equals:
		return validateEquals(*p)
	case And:
		return validateAnd(p)
	case *And:
		return validateAnd(*p)
	default:
		return fmt.Errorf("%w: unsupported predicate type %T", ErrInvalidQuery, p)
	}
}

func validateEquals(eq Equals) error {
	if err := checkIdent("field", eq.Field); err != nil {
		return err
	}
	switch eq.Value.(type) {
	case string, int, int64, bool:
		return nil
	default:
		return fmt.Errorf("%w: %s compared to unsupported value type %T", ErrInvalidQuery, eq.Field, eq.Value)
	}
}

func validateAnd(and And) error {
	for _, p := range and.Predicates {
		if err := validatePredicate(p); err != nil {
			return err
		}
	}
	return nil
}

func checkIdent(what, name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %s %q is not an identifier", ErrInvalidQuery, what, name)
	}
	return nil
}
