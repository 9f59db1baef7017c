package cli

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // glob over scenario file names, without extension
}

// Golden file states reported per scenario.
const (
	GoldenMatched = "matched"
	GoldenUpdated = "updated"
	GoldenMissing = "missing"
	GoldenDiffers = "differs"
)

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Status string   `json:"status,omitempty"` // trace status, when the scenario ran
	Steps  int      `json:"steps"`
	Golden string   `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult is the JSON payload of the test command.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run trace scenarios",
		Long: `Run every YAML scenario under a directory.

Each scenario names a script, the bounds to trace it under and what
the trace must look like. Every trace is also archived and replayed,
and compared against golden/<name>.golden next to the scenario when
that file exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  stepwise test ./scenarios
  stepwise test ./scenarios --filter "loop-*"
  stepwise test ./scenarios --update
  stepwise test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose file name matches this glob")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: scenarios directory not found: %s", ErrCodeNotFound, dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeInvalidFlag+": failed to find scenarios", err)
	}

	w := cmd.OutOrStdout()
	text := opts.Format != "json"
	st := newStyles(w)

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := runScenario(opts, cmd, file)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if text {
			printScenario(w, st, sr)
		}
	}

	var failure error
	if result.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%s: %d scenario(s) failed", ErrCodeTestFailed, result.Failed))
	}

	if !text {
		var cliErr *CLIError
		if failure != nil {
			cliErr = &CLIError{Code: ErrCodeTestFailed, Message: fmt.Sprintf("%d scenario(s) failed", result.Failed)}
		}
		if err := opts.formatter(cmd).JSON(result, cliErr, ""); err != nil {
			return err
		}
		return failure
	}

	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if failure == nil {
		fmt.Fprintln(w, st.ok.Render("✓ All scenarios passed"))
	}
	return failure
}

// findScenarioFiles returns the .yaml and .yml files under dir in path
// order. Golden directories are skipped.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// runScenario loads, runs and golden-checks one scenario file.
func runScenario(opts *TestOptions, cmd *cobra.Command, file string) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}
	fail := func(errs ...string) ScenarioResult {
		sr.Pass = false
		sr.Errors = append(sr.Errors, errs...)
		return sr
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail(fmt.Sprintf("failed to load scenario: %v", err))
	}
	sr.Name = scenario.Name
	opts.formatter(cmd).VerboseLog("Running %s (%s)", scenario.Name, file)

	result, err := harness.RunContext(cmd.Context(), scenario)
	if err != nil {
		return fail(fmt.Sprintf("execution failed: %v", err))
	}
	sr.Status = result.Trace.Status()
	sr.Steps = result.Trace.StepCount
	sr.Errors = append(sr.Errors, result.Errors...)

	if opts.Update {
		if err := harness.UpdateGolden(file, scenario, result); err != nil {
			return fail(fmt.Sprintf("failed to update golden file: %v", err))
		}
		sr.Golden = GoldenUpdated
	} else {
		match, found, err := harness.CompareGolden(file, scenario, result)
		switch {
		case err != nil:
			return fail(fmt.Sprintf("golden comparison failed: %v", err))
		case !found:
			sr.Golden = GoldenMissing
		case match:
			sr.Golden = GoldenMatched
		default:
			sr.Golden = GoldenDiffers
			return fail("trace does not match golden file (run with --update to regenerate)")
		}
	}

	sr.Pass = result.Pass
	return sr
}

func printScenario(w io.Writer, st styles, sr ScenarioResult) {
	if !sr.Pass {
		fmt.Fprintln(w, st.exception.Render("✗ "+sr.Name))
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}

	line := "✓ " + sr.Name
	if sr.Golden == GoldenUpdated {
		line += " (golden updated)"
	}
	fmt.Fprintf(w, "%s %s\n", st.ok.Render(line), st.dim.Render(fmt.Sprintf("%s, %d steps", sr.Status, sr.Steps)))
}
