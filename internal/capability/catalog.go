// Package capability defines what a sandboxed script may reach: the
// enumerated built-in functions, the allow-listed importable modules, and
// the Guard through which every attribute, item, iteration, unpack and
// in-place operation passes.
//
// A Catalog is built once and never mutated afterwards, so a single value
// is shared by every concurrent execution.
package capability

import (
	"sort"
	"sync"

	"github.com/roach88/stepwise/internal/value"
)

// builtinNames lists the enumerated built-in functions, in the order the
// catalog command prints them.
var builtinNames = []string{
	"abs", "all", "any", "bin", "bool", "callable", "chr", "dict", "divmod",
	"enumerate", "filter", "float", "format", "frozenset", "hasattr", "hash",
	"hex", "int", "isinstance", "issubclass", "iter", "len", "list", "map",
	"max", "min", "next", "oct", "ord", "pow", "print", "range", "repr",
	"reversed", "round", "set", "sorted", "str", "sum", "tuple", "type", "zip",
}

// Catalog is the immutable capability catalog handed to every execution.
type Catalog struct {
	builtins map[string]value.Value
	names    []string
	modules  map[string]*value.Module
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog, building it on first use.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = build()
	})
	return defaultCatalog
}

func build() *Catalog {
	c := &Catalog{
		builtins: map[string]value.Value{},
		modules:  map[string]*value.Module{},
	}
	add := func(name string, v value.Value) {
		if _, dup := c.builtins[name]; !dup {
			c.names = append(c.names, name)
		}
		c.builtins[name] = v
	}

	funcs := builtinFuncs()
	for _, name := range builtinNames {
		add(name, funcs[name])
	}
	add("True", value.True)
	add("False", value.False)
	add("None", value.None)
	for _, cls := range value.ExceptionClasses() {
		add(cls.ClassName, cls)
	}

	for _, m := range []*value.Module{
		mathModule(),
		stringModule(),
		randomModule(),
		statisticsModule(),
		functoolsModule(),
		itertoolsModule(),
		collectionsModule(),
	} {
		c.modules[m.Name()] = m
	}
	return c
}

// Builtin returns a built-in binding: a function, type, exception class or
// constant.
func (c *Catalog) Builtin(name string) (value.Value, bool) {
	v, ok := c.builtins[name]
	return v, ok
}

// BuiltinNames returns every built-in binding name in catalog order.
func (c *Catalog) BuiltinNames() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// ModuleNames returns the importable module names, sorted.
func (c *Catalog) ModuleNames() []string {
	out := make([]string, 0, len(c.modules))
	for name := range c.modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Import resolves an import of name. Anything outside the allow-list,
// including dotted submodules, raises ImportError.
func (c *Catalog) Import(name string) (*value.Module, error) {
	if m, ok := c.modules[name]; ok {
		return m, nil
	}
	return nil, value.Errorf(value.ImportError, "Import of '%s' is not allowed in the sandbox", name)
}

// ImportFrom resolves "from module import name".
func (c *Catalog) ImportFrom(module, name string) (value.Value, error) {
	m, err := c.Import(module)
	if err != nil {
		return nil, err
	}
	v, ok := m.Lookup(name)
	if !ok {
		return nil, value.Errorf(value.ImportError, "cannot import name '%s' from '%s'", name, module)
	}
	return v, nil
}
