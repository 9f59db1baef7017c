package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <trace-id>",
		Short: "Show an archived trace",
		Long: `Print an archived trace, the same way trace printed it.

Examples:
  stepwise show 3f2a9c1e-... --db ./traces.db
  stepwise show 3f2a9c1e-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default store.path)")
	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command, traceID string) error {
	st, err := openExistingArchive(opts.archivePath(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	entry, err := st.Get(cmd.Context(), traceID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: trace not found: %s", ErrCodeNotFound, traceID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to read trace", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).JSON(entry, nil, entry.TraceID)
	}
	renderTrace(cmd.OutOrStdout(), entry.Result)
	fmt.Fprintf(cmd.OutOrStdout(), "\nArchived %s (depth %s, engine %s)\n",
		entry.CreatedAt.Format("2006-01-02 15:04:05"), entry.Depth, entry.EngineVersion)
	return nil
}
