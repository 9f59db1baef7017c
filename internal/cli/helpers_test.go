package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// traceResponse is the JSON envelope of the trace command.
type traceResponse struct {
	Status  string      `json:"status"`
	Data    TraceOutput `json:"data"`
	Error   *CLIError   `json:"error"`
	TraceID string      `json:"trace_id"`
}

// runCommand executes cmd with stdin and args and returns its stdout.
func runCommand(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0644))
	return path
}

// traceInto traces source with the archive at dbPath and returns the
// decoded response.
func traceInto(t *testing.T, dbPath, source string, args ...string) traceResponse {
	t.Helper()
	out, _ := runCommand(t, NewTraceCommand(&RootOptions{Format: "json"}), source,
		append([]string{"--db", dbPath}, args...)...)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.True(t, resp.Data.Archived)
	return resp
}
