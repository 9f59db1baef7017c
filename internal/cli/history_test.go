package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/store"
)

// historyJSON runs history in JSON mode and decodes the records.
func historyJSON(t *testing.T, args ...string) []store.Record {
	t.Helper()
	out, err := runCommand(t, NewHistoryCommand(&RootOptions{Format: "json"}), "", args...)
	require.NoError(t, err)

	var resp struct {
		Data []store.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp.Data
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "traces.db")

	ok := traceInto(t, dbPath, "x = 1\n")
	failed := traceInto(t, dbPath, "x = 1 / 0\n")
	script := writeScript(t, dir, "loop.py", "for i in range(2):\n    pass\n")
	looped := traceInto(t, dbPath, "for i in range(2):\n    pass\n")

	t.Run("text", func(t *testing.T) {
		out, err := runCommand(t, NewHistoryCommand(&RootOptions{Format: "text"}), "", "--db", dbPath)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "SEQ"))
		assert.Contains(t, lines[0], "TRACE ID")
		// Newest first.
		assert.Contains(t, lines[1], looped.TraceID)
		assert.Contains(t, lines[2], failed.TraceID)
		assert.Contains(t, lines[3], ok.TraceID)
	})

	t.Run("all", func(t *testing.T) {
		records := historyJSON(t, "--db", dbPath)
		require.Len(t, records, 3)
		assert.Equal(t, looped.TraceID, records[0].TraceID)
	})

	t.Run("status", func(t *testing.T) {
		records := historyJSON(t, "--db", dbPath, "--status", "failed")
		require.Len(t, records, 1)
		assert.Equal(t, failed.TraceID, records[0].TraceID)
	})

	t.Run("limit", func(t *testing.T) {
		records := historyJSON(t, "--db", dbPath, "--limit", "2")
		assert.Len(t, records, 2)
	})

	t.Run("source", func(t *testing.T) {
		records := historyJSON(t, "--db", dbPath, "--source", script)
		require.Len(t, records, 1)
		assert.Equal(t, looped.TraceID, records[0].TraceID)
	})
}

func TestHistoryEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runCommand(t, NewHistoryCommand(&RootOptions{Format: "text"}), "", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No traces found.")

	assert.Empty(t, historyJSON(t, "--db", dbPath))
}

func TestHistoryErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	traceInto(t, dbPath, "x = 1\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad status", []string{"--db", dbPath, "--status", "broken"}, "invalid --status"},
		{"negative limit", []string{"--db", dbPath, "--limit", "-1"}, "--limit must be non-negative"},
		{"missing source", []string{"--db", dbPath, "--source", "/nonexistent.py"}, "failed to read --source"},
		{"missing database", []string{"--db", filepath.Join(t.TempDir(), "none.db")}, "database not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, NewHistoryCommand(&RootOptions{Format: "text"}), "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFormatRow(t *testing.T) {
	assert.Equal(t, "a   bb  c", formatRow([]string{"a", "bb", "c"}, []int{3, 2, 5}))
	assert.Equal(t, "日本  x", formatRow([]string{"日本", "x"}, []int{4, 1}))
}
