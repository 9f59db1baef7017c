package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/ir"
)

// CheckResult is the JSON payload of the check command.
type CheckResult struct {
	Valid bool               `json:"valid"`
	Error *ir.ExecutionError `json:"error,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [script.py | -]",
		Short: "Check that a script compiles, without running it",
		Long: `Compile a script against the supported language subset without
running it. Reports the SyntaxError a trace of the script would stop with.

Exit codes:
  0 - Script accepted
  1 - Script rejected
  2 - Command error

Examples:
  stepwise check fib.py
  echo 'def f(:' | stepwise check --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, cmd *cobra.Command, args []string) error {
	source, err := readSource(cmd, args, opts.settings().Limits.MaxSourceLength)
	if err != nil {
		return err
	}

	syntaxErr := opts.newEngine().CompileAndCheck(source)
	result := CheckResult{Valid: syntaxErr == nil, Error: syntaxErr}

	if opts.Format == "json" {
		var cliErr *CLIError
		if syntaxErr != nil {
			cliErr = &CLIError{Code: ErrCodeScriptFailed, Message: syntaxErr.Error()}
		}
		if err := opts.formatter(cmd).JSON(result, cliErr, ""); err != nil {
			return err
		}
	} else {
		st := newStyles(cmd.OutOrStdout())
		if syntaxErr == nil {
			fmt.Fprintln(cmd.OutOrStdout(), st.ok.Render("✓ Script accepted"))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), st.exception.Render("✗ "+syntaxErr.Error()))
		}
	}

	if syntaxErr != nil {
		return reported(NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeScriptFailed, syntaxErr.Error())))
	}
	return nil
}
