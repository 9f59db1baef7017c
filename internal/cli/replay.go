package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayOutput holds the replay result.
type ReplayOutput struct {
	TraceID        string `json:"trace_id"`
	Identical      bool   `json:"identical"`
	Divergence     int    `json:"divergence,omitempty"`
	OriginalHash   string `json:"original_hash"`
	ReplayedHash   string `json:"replayed_hash"`
	OriginalStatus string `json:"original_status"`
	ReplayedStatus string `json:"replayed_status"`
	Steps          int    `json:"steps"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <trace-id>",
		Short: "Replay an archived trace and verify determinism",
		Long: `Re-run the source of an archived trace with its recorded seed and
verify that the new trace is identical to the archived one.

Traces that timed out depend on machine speed and cannot be replayed.

Exit codes:
  0 - Replay reproduced the trace
  1 - Determinism verification failed (the traces differ)
  2 - Command error (database or trace not found, trace not replayable)

Examples:
  stepwise replay 3f2a9c1e-... --db ./traces.db
  stepwise replay 3f2a9c1e-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default store.path)")
	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command, traceID string) error {
	ctx := cmd.Context()

	st, err := openExistingArchive(opts.archivePath(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	entry, err := st.Get(ctx, traceID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: trace not found: %s", ErrCodeNotFound, traceID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to read trace", err)
	}

	// The replayed trace reuses the archived ID.
	eng := opts.newEngine(engine.WithTraceIDs(engine.ConstantGenerator(entry.TraceID)))
	res, err := eng.Replay(ctx, entry.Result)
	if errors.Is(err, engine.ErrNotReplayable) {
		return WrapExitError(ExitCommandError, ErrCodeNotReplayable+": cannot replay", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeGeneric+": replay failed", err)
	}

	out := ReplayOutput{
		TraceID:        entry.TraceID,
		Identical:      res.Identical(),
		Divergence:     res.Divergence,
		OriginalHash:   res.OriginalHash,
		ReplayedHash:   res.ReplayedHash,
		OriginalStatus: res.Original.Status(),
		ReplayedStatus: res.Replayed.Status(),
		Steps:          res.Replayed.StepCount,
	}
	opts.logger().Debug("replay finished", "trace_id", out.TraceID, "identical", out.Identical)

	if opts.Format == "json" {
		var cliErr *CLIError
		if !out.Identical {
			cliErr = &CLIError{Code: ErrCodeReplayDiffers, Message: "replay diverged from the archived trace"}
		}
		if err := opts.formatter(cmd).JSON(out, cliErr, out.TraceID); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd, out, opts.Verbose)
	}

	if !out.Identical {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: replay of %s diverged", ErrCodeReplayDiffers, out.TraceID))
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, out ReplayOutput, verbose bool) {
	w := cmd.OutOrStdout()
	st := newStyles(w)

	fmt.Fprintf(w, "Replay of %s: %d steps, %s\n", out.TraceID, out.Steps, out.ReplayedStatus)
	if verbose {
		fmt.Fprintf(w, "  original hash: %s\n", out.OriginalHash)
		fmt.Fprintf(w, "  replayed hash: %s\n", out.ReplayedHash)
	}
	if out.Identical {
		fmt.Fprintln(w, st.ok.Render("✓ Deterministic: replay is identical"))
		return
	}

	switch {
	case out.Divergence > 0:
		fmt.Fprintln(w, st.exception.Render(fmt.Sprintf("✗ Diverged at step %d", out.Divergence)))
	case out.OriginalStatus != out.ReplayedStatus:
		fmt.Fprintln(w, st.exception.Render(fmt.Sprintf("✗ Diverged: status %s, replay %s", out.OriginalStatus, out.ReplayedStatus)))
	default:
		fmt.Fprintln(w, st.exception.Render("✗ Diverged in terminal state"))
	}
}
