package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/store"
)

const (
	promptPrimary      = ">>> "
	promptContinuation = "... "
)

const replHelp = `Enter a statement to trace it. A line ending in ":" opens a block;
finish the block with an empty line.

Commands:
  :help   show this help
  :clear  discard the block being typed
  :quit   leave (also Ctrl-D)`

// lineReader is the part of a readline instance the REPL uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// newLineReader opens the terminal line editor. Tests replace it.
var newLineReader = func(cmd *cobra.Command) (lineReader, func(), error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: promptPrimary,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem(":help"),
			readline.PcItem(":clear"),
			readline.PcItem(":quit"),
		),
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, err
	}
	return rl, func() { rl.Close() }, nil
}

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	Database string
	Seed     int64
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Trace statements interactively",
		Long: `Start an interactive session. Each statement or block you enter is
traced on its own and its steps are printed.

` + replHelp,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, closeFn, err := newLineReader(cmd)
			if err != nil {
				return WrapExitError(ExitCommandError, ErrCodeGeneric+": failed to start line editor", err)
			}
			defer closeFn()
			return runRepl(opts, cmd, rl)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "archive every trace in this SQLite database")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed for the random module (default: fresh per trace)")
	return cmd
}

// replSession is the state of one interactive session.
type replSession struct {
	opts   *ReplOptions
	cmd    *cobra.Command
	engine *engine.Engine
	trace  []engine.TraceOption
	store  *store.Store
	block  []string
}

func runRepl(opts *ReplOptions, cmd *cobra.Command, rl lineReader) error {
	s := &replSession{opts: opts, cmd: cmd, engine: opts.newEngine()}
	if cmd.Flags().Changed("seed") {
		s.trace = append(s.trace, engine.Seed(opts.Seed))
	}
	if path := opts.archivePath(opts.Database); path != "" {
		st, err := openArchive(path)
		if err != nil {
			return err
		}
		defer st.Close()
		s.store = st
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "stepwise "+ir.EngineVersion+" (type :help for help)")

	for {
		if len(s.block) == 0 {
			rl.SetPrompt(promptPrimary)
		} else {
			rl.SetPrompt(promptContinuation)
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(s.block) > 0 {
				s.block = nil
				continue
			}
			return nil
		}
		if errors.Is(err, io.EOF) {
			if len(s.block) > 0 {
				s.submit()
			}
			return nil
		}
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeReadFailed+": failed to read input", err)
		}

		if strings.HasPrefix(line, ":") {
			if quit := s.command(strings.TrimSpace(line)); quit {
				return nil
			}
			continue
		}

		s.feed(line)
	}
}

// feed adds one input line. A complete statement is traced at once; a
// block is traced when an empty line ends it.
func (s *replSession) feed(line string) {
	if len(s.block) == 0 {
		if strings.TrimSpace(line) == "" {
			return
		}
		s.block = append(s.block, line)
		if !opensBlock(line) {
			s.submit()
		}
		return
	}

	if strings.TrimSpace(line) == "" {
		s.submit()
		return
	}
	s.block = append(s.block, line)
}

// opensBlock reports whether line starts an indented block.
func opensBlock(line string) bool {
	code, _, _ := strings.Cut(line, "#")
	return strings.HasSuffix(strings.TrimSpace(code), ":")
}

func (s *replSession) command(cmd string) (quit bool) {
	w := s.cmd.OutOrStdout()
	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(w, replHelp)
	case ":clear":
		s.block = nil
	default:
		fmt.Fprintf(w, "Unknown command %s (type :help for help)\n", cmd)
	}
	return false
}

// submit traces the buffered block and prints the trace.
func (s *replSession) submit() {
	source := strings.Join(s.block, "\n") + "\n"
	s.block = nil

	w := s.cmd.OutOrStdout()
	if _, err := checkSource(source, s.opts.settings().Limits.MaxSourceLength); err != nil {
		fmt.Fprintln(w, err)
		return
	}

	ctx := s.cmd.Context()
	result := s.engine.Trace(ctx, source, s.trace...)
	if s.store != nil {
		if _, err := s.store.Save(ctx, result, ir.DepthBeginner); err != nil {
			s.opts.logger().Warn("failed to archive trace", "trace_id", result.TraceID, "error", err)
		}
	}

	if s.opts.Format == "json" {
		if err := s.opts.formatter(s.cmd).JSON(result, nil, result.TraceID); err != nil {
			s.opts.logger().Warn("failed to write trace", "error", err)
		}
		return
	}
	renderTrace(w, result)
	fmt.Fprintln(w)
}
