package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/store"
)

// archive saves r directly, bypassing the trace command.
func archive(t *testing.T, dbPath string, r *ir.TraceResult) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.Save(context.Background(), r, ir.DepthBeginner)
	require.NoError(t, err)
}

func TestReplayIdentical(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	resp := traceInto(t, dbPath, "import random\nxs = [random.randint(1, 6) for _ in range(3)]\nprint(xs)\n")

	out, err := runCommand(t, NewReplayCommand(&RootOptions{Format: "text"}), "", resp.TraceID, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay of "+resp.TraceID)
	assert.Contains(t, out, "✓ Deterministic")
}

func TestReplayTruncatedAndFailed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	truncated := traceInto(t, dbPath, "n = 0\nwhile True:\n    n += 1\n", "--max-steps", "10")
	failed := traceInto(t, dbPath, "xs = []\nxs[3]\n")

	for _, id := range []string{truncated.TraceID, failed.TraceID} {
		out, err := runCommand(t, NewReplayCommand(&RootOptions{Format: "json"}), "", id, "--db", dbPath)
		require.NoError(t, err)

		var resp struct {
			Status string       `json:"status"`
			Data   ReplayOutput `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.Data.Identical)
		assert.Equal(t, resp.Data.OriginalHash, resp.Data.ReplayedHash)
		assert.Equal(t, resp.Data.OriginalStatus, resp.Data.ReplayedStatus)
	}
}

func TestReplayDiverged(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")

	eng := engine.New(engine.WithTraceIDs(engine.ConstantGenerator("forged")))
	r := eng.Trace(context.Background(), "a = 1\nb = 2\nc = 3\n", engine.Seed(1))
	require.True(t, r.Completed)
	r.Steps[1].SourceLine = "b = 20"
	archive(t, dbPath, r)

	out, err := runCommand(t, NewReplayCommand(&RootOptions{Format: "text"}), "", "forged", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeReplayDiffers)
	assert.Contains(t, out, "✗ Diverged at step 2")

	out, err = runCommand(t, NewReplayCommand(&RootOptions{Format: "json"}), "", "forged", "--db", dbPath)
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayOutput `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Identical)
	assert.Equal(t, 2, resp.Data.Divergence)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeReplayDiffers, resp.Error.Code)
}

func TestReplayDivergedStdout(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")

	eng := engine.New(engine.WithTraceIDs(engine.ConstantGenerator("forged-stdout")))
	r := eng.Trace(context.Background(), "x = 1\n", engine.Seed(1))
	r.Stdout = "forged\n"
	archive(t, dbPath, r)

	out, err := runCommand(t, NewReplayCommand(&RootOptions{Format: "text", Verbose: true}), "", "forged-stdout", "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, out, "original hash:")
	assert.Contains(t, out, "✗ Diverged in terminal state")
}

func TestReplayTimedOut(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")

	r := ir.NewTraceResult("slow", ir.NewScript("while True:\n    pass\n"))
	r.Error = &ir.ExecutionError{Kind: ir.KindTimeoutError, Message: "execution exceeded 0.05 seconds"}
	archive(t, dbPath, r)

	_, err := runCommand(t, NewReplayCommand(&RootOptions{Format: "text"}), "", "slow", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotReplayable)
	assert.ErrorIs(t, err, engine.ErrNotReplayable)
}

func TestReplayErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	traceInto(t, dbPath, "x = 1\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown trace", []string{"nope", "--db", dbPath}, "trace not found"},
		{"missing database", []string{"nope", "--db", "/nonexistent/path/test.db"}, "database not found"},
		{"no archive", []string{"nope"}, "no trace archive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, NewReplayCommand(&RootOptions{Format: "text"}), "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReplayHelpText(t *testing.T) {
	out, err := runCommand(t, NewReplayCommand(&RootOptions{Format: "text"}), "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Replay")
	assert.Contains(t, out, "--db")
	assert.Contains(t, out, "determinism")
}
