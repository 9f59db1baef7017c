package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/capability"
)

// CatalogOutput lists what a script may use.
type CatalogOutput struct {
	Builtins []string        `json:"builtins"`
	Modules  []CatalogModule `json:"modules"`
}

// CatalogModule is one importable module and its members.
type CatalogModule struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [module]",
		Short: "List the builtins and modules available to scripts",
		Long: `List the built-in names and the importable modules of the sandbox.
With a module name, list only that module's members.

Examples:
  stepwise catalog
  stepwise catalog math
  stepwise catalog --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runCatalog(opts *RootOptions, cmd *cobra.Command, args []string) error {
	cat := capability.Default()

	out := CatalogOutput{Builtins: cat.BuiltinNames(), Modules: []CatalogModule{}}
	names := cat.ModuleNames()
	if len(args) == 1 {
		out.Builtins = nil
		names = args
	}
	for _, name := range names {
		m, err := cat.Import(name)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeNotFound+": unknown module", err)
		}
		out.Modules = append(out.Modules, CatalogModule{Name: m.Name(), Members: m.Names()})
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).JSON(out, nil, "")
	}

	w := cmd.OutOrStdout()
	st := newStyles(w)
	if out.Builtins != nil {
		fmt.Fprintln(w, st.header.Render(fmt.Sprintf("Builtins (%d)", len(out.Builtins))))
		fmt.Fprintln(w, wrapNames(out.Builtins, 72, "  "))
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, st.header.Render(fmt.Sprintf("Modules (%d)", len(out.Modules))))
	for _, m := range out.Modules {
		fmt.Fprintf(w, "  %s\n", m.Name)
		fmt.Fprintln(w, wrapNames(m.Members, 72, "      "))
	}
	return nil
}

// wrapNames joins names with ", " and wraps at width.
func wrapNames(names []string, width int, indent string) string {
	var (
		b    strings.Builder
		line = indent
	)
	for i, name := range names {
		item := name
		if i < len(names)-1 {
			item += ","
		}
		if line != indent && len(line)+1+len(item) > width {
			b.WriteString(line + "\n")
			line = indent
		}
		if line != indent {
			line += " "
		}
		line += item
	}
	b.WriteString(line)
	return b.String()
}
