package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Status   string
	Source   string
	Limit    int
}

var validStatuses = []string{"completed", "truncated", "timed_out", "failed", "incomplete"}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived traces",
		Long: `List archived traces, newest first.

Examples:
  stepwise history --db ./traces.db
  stepwise history --status failed --limit 5
  stepwise history --source fib.py --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default store.path)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only traces with this status ("+strings.Join(validStatuses, "|")+")")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only traces of this script file")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of traces (0 for all)")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	filter := store.Filter{Status: opts.Status, Limit: opts.Limit}
	if opts.Status != "" && !contains(validStatuses, opts.Status) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("%s: invalid --status %q: must be one of %v", ErrCodeInvalidFlag, opts.Status, validStatuses))
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: --limit must be non-negative, got %d", ErrCodeInvalidFlag, opts.Limit))
	}
	if opts.Source != "" {
		data, err := os.ReadFile(opts.Source)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeReadFailed+": failed to read --source", err)
		}
		filter.SourceHash = ir.SourceHash(string(data))
	}

	st, err := openExistingArchive(opts.archivePath(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.List(cmd.Context(), filter)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to list traces", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).JSON(records, nil, "")
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No traces found.")
		return nil
	}
	writeHistoryTable(cmd.OutOrStdout(), records)
	return nil
}

// writeHistoryTable writes records as aligned columns.
func writeHistoryTable(w io.Writer, records []store.Record) {
	header := []string{"SEQ", "TRACE ID", "STATUS", "STEPS", "DEPTH", "CREATED"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.Seq, 10),
			r.TraceID,
			r.Status,
			strconv.Itoa(r.StepCount),
			string(r.Depth),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	st := newStyles(w)
	fmt.Fprintln(w, st.header.Render(formatRow(header, widths)))
	for _, row := range rows {
		fmt.Fprintln(w, formatRow(row, widths))
	}
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		if i == len(cells)-1 {
			padded[i] = cell
			continue
		}
		padded[i] = runewidth.FillRight(cell, widths[i])
	}
	return strings.Join(padded, "  ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
