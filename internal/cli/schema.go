package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/ir"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of a trace",
		Long: `Print the JSON Schema that every trace document conforms to.

Examples:
  stepwise schema
  stepwise schema -o trace.schema.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := ir.GenerateJSONSchema()
			if err != nil {
				return WrapExitError(ExitFailure, ErrCodeGeneric+": failed to generate schema", err)
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, append(data, '\n'), 0644); err != nil {
				return WrapExitError(ExitCommandError, ErrCodeWriteFailed+": failed to write schema", err)
			}
			rootOpts.formatter(cmd).VerboseLog("wrote %s", output)
			if rootOpts.Format == "json" {
				return rootOpts.formatter(cmd).JSON(map[string]string{"path": output}, nil, "")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Schema written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the schema to a file instead of stdout")
	return cmd
}
