package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/config"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/store"
)

func TestShowText(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	resp := traceInto(t, dbPath, "x = 1\nx = x + 1\n", "--depth", "intermediate")

	out, err := runCommand(t, NewShowCommand(&RootOptions{Format: "text"}), "", resp.TraceID, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Trace "+resp.TraceID)
	assert.Contains(t, out, "~x: 1→2")
	assert.Contains(t, out, "depth intermediate")
	assert.Contains(t, out, "engine "+ir.EngineVersion)
}

func TestShowJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	resp := traceInto(t, dbPath, "print('hi')\n", "--seed", "5")

	out, err := runCommand(t, NewShowCommand(&RootOptions{Format: "json"}), "", resp.TraceID, "--db", dbPath)
	require.NoError(t, err)

	var shown struct {
		Status  string      `json:"status"`
		Data    store.Entry `json:"data"`
		TraceID string      `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, resp.TraceID, shown.TraceID)
	assert.Equal(t, "completed", shown.Data.Status)
	assert.Equal(t, int64(5), shown.Data.Seed)
	require.NotNil(t, shown.Data.Result)
	assert.Equal(t, "hi\n", shown.Data.Result.Stdout)

	want, err := ir.TraceHash(resp.Data.Trace)
	require.NoError(t, err)
	got, err := ir.TraceHash(shown.Data.Result)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestShowUsesConfiguredStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "traces.db")
	resp := traceInto(t, cfg.Store.Path, "x = 1\n")

	out, err := runCommand(t, NewShowCommand(&RootOptions{Format: "text", Config: cfg}), "", resp.TraceID)
	require.NoError(t, err)
	assert.Contains(t, out, resp.TraceID)
}

func TestShowErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	traceInto(t, dbPath, "x = 1\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown trace", []string{"no-such-trace", "--db", dbPath}, "trace not found"},
		{"missing database", []string{"id", "--db", filepath.Join(t.TempDir(), "none.db")}, "database not found"},
		{"no archive", []string{"id"}, "no trace archive"},
		{"missing id", []string{"--db", dbPath}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, NewShowCommand(&RootOptions{Format: "text"}), "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
