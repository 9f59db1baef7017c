package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one schema violation.
type ValidationIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <trace.json | ->",
		Short: "Validate a trace document against the trace schema",
		Long: `Validate a trace JSON document against the trace schema.

Accepts a bare trace or the output of "stepwise trace --format json",
which is unwrapped first.

Exit codes:
  0 - Document is a valid trace
  1 - Document violates the schema
  2 - Command error (unreadable file, not JSON)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: file not found: %s", ErrCodeNotFound, path))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeReadFailed+": failed to read trace", err)
	}

	doc, err := unwrapTrace(data)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeInvalidTrace+": not a JSON document", err)
	}
	formatter.VerboseLog("Validating %d bytes from %s", len(doc), path)

	schemaErrs, err := ir.ValidateTraceJSON(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeInvalidTrace+": validation could not run", err)
	}

	result := ValidationResult{Valid: len(schemaErrs) == 0}
	for _, e := range schemaErrs {
		result.Errors = append(result.Errors, ValidationIssue{Path: "/" + e.Path, Message: e.Message})
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if !result.Valid {
			cliErr = &CLIError{
				Code:    ErrCodeInvalidTrace,
				Message: fmt.Sprintf("%d schema violation(s)", len(result.Errors)),
			}
		}
		if err := formatter.JSON(result, cliErr, ""); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if result.Valid {
			fmt.Fprintln(w, "✓ Trace is valid")
		} else {
			fmt.Fprintf(w, "✗ Trace has %d schema violation(s):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s: %s\n", e.Path, e.Message)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: trace failed schema validation", ErrCodeInvalidTrace))
	}
	return nil
}

// unwrapTrace returns the trace inside a trace-command response, or data
// itself when it is not one.
func unwrapTrace(data []byte) ([]byte, error) {
	var envelope struct {
		Status string `json:"status"`
		Data   *struct {
			Trace json.RawMessage `json:"trace"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if envelope.Status != "" && envelope.Data != nil && len(envelope.Data.Trace) > 0 {
		return envelope.Data.Trace, nil
	}
	return data, nil
}
