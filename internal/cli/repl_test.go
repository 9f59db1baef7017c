package cli

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const interrupt = "\x03"

// scriptedReader replays input lines and records the prompts shown.
type scriptedReader struct {
	lines   []string
	prompts []string
	prompt  string
}

func (r *scriptedReader) Readline() (string, error) {
	r.prompts = append(r.prompts, r.prompt)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	if line == interrupt {
		return "", readline.ErrInterrupt
	}
	return line, nil
}

func (r *scriptedReader) SetPrompt(prompt string) { r.prompt = prompt }

// runReplLines runs the repl command over lines.
func runReplLines(t *testing.T, opts *RootOptions, lines []string, args ...string) (string, *scriptedReader) {
	t.Helper()
	reader := &scriptedReader{lines: lines}
	orig := newLineReader
	newLineReader = func(*cobra.Command) (lineReader, func(), error) {
		return reader, func() {}, nil
	}
	t.Cleanup(func() { newLineReader = orig })

	out, err := runCommand(t, NewReplCommand(opts), "", args...)
	require.NoError(t, err)
	return out, reader
}

func TestReplStatement(t *testing.T) {
	out, reader := runReplLines(t, &RootOptions{Format: "text"}, []string{"x = 41 + 1"})

	assert.Contains(t, out, "type :help for help")
	assert.Contains(t, out, "+x=42")
	assert.Equal(t, []string{promptPrimary, promptPrimary}, reader.prompts)
}

func TestReplBlock(t *testing.T) {
	out, reader := runReplLines(t, &RootOptions{Format: "text"}, []string{
		"total = 0",
		"for i in range(3):  # sum",
		"    total = i",
		"",
		"",
	})

	assert.Contains(t, out, "+total=0")
	assert.Contains(t, out, "loop header")
	assert.Equal(t, 2, strings.Count(out, "status: completed"))
	assert.Equal(t, []string{
		promptPrimary,      // total = 0
		promptPrimary,      // for ...
		promptContinuation, // body
		promptContinuation, // blank ends block
		promptPrimary,      // blank at top level is ignored
		promptPrimary,      // EOF
	}, reader.prompts)
}

func TestReplBlockTracedAtEOF(t *testing.T) {
	out, _ := runReplLines(t, &RootOptions{Format: "text"}, []string{
		"if True:",
		"    y = 'yes'",
	})
	assert.Contains(t, out, "+y='yes'")
}

func TestReplCommands(t *testing.T) {
	out, _ := runReplLines(t, &RootOptions{Format: "text"}, []string{
		":help",
		":bogus",
		"while True:",
		":clear",
		":quit",
		"never = 1",
	})

	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, "Unknown command :bogus")
	assert.NotContains(t, out, "Trace ", "cleared block and quit leave nothing to trace")
	assert.NotContains(t, out, "never")
}

func TestReplInterrupt(t *testing.T) {
	out, _ := runReplLines(t, &RootOptions{Format: "text"}, []string{
		"def f():",
		interrupt, // drops the block
		"z = 3",
		interrupt, // leaves
		"after = 1",
	})

	assert.Contains(t, out, "+z=3")
	assert.Equal(t, 1, strings.Count(out, "Trace "))
	assert.NotContains(t, out, "after")
}

func TestReplErrorsDoNotEndSession(t *testing.T) {
	out, _ := runReplLines(t, &RootOptions{Format: "text"}, []string{
		"1 / 0",
		"ok = True",
	})

	assert.Contains(t, out, "ZeroDivisionError")
	assert.Contains(t, out, "+ok=True")
}

func TestReplJSONAndArchive(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "repl.db")
	out, _ := runReplLines(t, &RootOptions{Format: "json"}, []string{"n = 7"}, "--db", dbPath, "--seed", "2")

	start := strings.Index(out, "{")
	require.GreaterOrEqual(t, start, 0)
	var resp struct {
		Status  string `json:"status"`
		TraceID string `json:"trace_id"`
		Data    struct {
			Seed      int64 `json:"seed"`
			Completed bool  `json:"completed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Completed)
	assert.Equal(t, int64(2), resp.Data.Seed)

	records := historyJSON(t, "--db", dbPath)
	require.Len(t, records, 1)
	assert.Equal(t, resp.TraceID, records[0].TraceID)
}

func TestOpensBlock(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"for i in range(3):", true},
		{"if x:  # note", true},
		{"else:", true},
		{"x = 1", false},
		{"d = {'a': 1}", false},
		{"x = 1  # done:", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, opensBlock(tt.line), tt.line)
	}
}
