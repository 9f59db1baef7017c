package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/config"
	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/ir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Timeout  string
	MaxSteps int
	Seed     int64
	Database string
	Depth    string
}

// TraceOutput is the JSON payload of the trace command.
type TraceOutput struct {
	Depth    ir.Depth        `json:"depth"`
	Archived bool            `json:"archived"`
	Trace    *ir.TraceResult `json:"trace"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [script.py | -]",
		Short: "Trace a script step by step",
		Long: `Run a script in the sandbox and print its step trace.

Every step records the line executed, the visible variables, what
changed since the previous step and the control-flow meaning of the
line. The script is read from the file argument, or from stdin when
the argument is "-" or missing.

When a database is given (--db or store.path in the config) the trace
is archived and can be inspected later with show, history and replay.

Exit codes:
  0 - Script completed (or stopped at the step limit)
  1 - Script raised an error, was rejected or timed out
  2 - Command error (unreadable script, bad flags, etc.)

Examples:
  stepwise trace fib.py
  stepwise trace fib.py --max-steps 100 --seed 7
  echo 'x = 1' | stepwise trace --format json
  stepwise trace fib.py --db ./traces.db --depth advanced`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Timeout, "timeout", "", "wall-clock limit, e.g. 2s or 2.5 (default from config)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "step limit (default from config)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed for the random module (default: fresh)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive the trace in this SQLite database")
	cmd.Flags().StringVar(&opts.Depth, "depth", "beginner", "explanation depth recorded with the trace (beginner|intermediate|advanced)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command, args []string) error {
	cfg := opts.settings()

	depth, err := ir.ParseDepth(opts.Depth)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeInvalidFlag+": invalid --depth", err)
	}
	traceOpts, err := opts.traceOptions(cmd)
	if err != nil {
		return err
	}

	source, err := readSource(cmd, args, cfg.Limits.MaxSourceLength)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	result := opts.newEngine().Trace(ctx, source, traceOpts...)

	archived := false
	if path := opts.archivePath(opts.Database); path != "" {
		st, err := openArchive(path)
		if err != nil {
			return err
		}
		defer st.Close()

		inserted, err := st.Save(ctx, result, depth)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeStore+": failed to archive trace", err)
		}
		archived = true
		opts.logger().Debug("trace archived", "trace_id", result.TraceID, "inserted", inserted, "db", path)
	}

	f := opts.formatter(cmd)
	if opts.Format == "json" {
		if err := f.JSON(TraceOutput{Depth: depth, Archived: archived, Trace: result}, nil, result.TraceID); err != nil {
			return err
		}
	} else {
		renderTrace(cmd.OutOrStdout(), result)
		if archived {
			fmt.Fprintf(cmd.OutOrStdout(), "\nArchived as %s\n", result.TraceID)
		}
	}

	return traceExit(result)
}

// traceOptions translates the per-run flags. Only flags the user set
// override the engine's configured defaults.
func (o *TraceOptions) traceOptions(cmd *cobra.Command) ([]engine.TraceOption, error) {
	var opts []engine.TraceOption
	if o.Timeout != "" {
		d, err := config.ParseTimeout(o.Timeout)
		if err != nil || d <= 0 {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: invalid --timeout %q", ErrCodeInvalidFlag, o.Timeout))
		}
		opts = append(opts, engine.Timeout(d))
	}
	if cmd.Flags().Changed("max-steps") {
		if o.MaxSteps <= 0 {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: --max-steps must be positive, got %d", ErrCodeInvalidFlag, o.MaxSteps))
		}
		opts = append(opts, engine.MaxSteps(o.MaxSteps))
	}
	if cmd.Flags().Changed("seed") {
		opts = append(opts, engine.Seed(o.Seed))
	}
	return opts, nil
}

// traceExit maps the terminal state of a trace to an exit code. Stopping
// at the step limit is a normal outcome. The rendered trace already shows
// the error.
func traceExit(r *ir.TraceResult) error {
	switch r.Status() {
	case "failed", "timed_out":
		return reported(NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeScriptFailed, r.Error.Error())))
	default:
		return nil
	}
}
