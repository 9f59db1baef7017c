package config

import (
	"bytes"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/engine"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, cfg.Limits.Timeout)
	assert.Equal(t, 500, cfg.Limits.MaxSteps)
	assert.Equal(t, 5000, cfg.Limits.MaxSourceLength)
	assert.Equal(t, 50, cfg.Serializer.MaxItems)
	assert.Equal(t, 8, cfg.Serializer.MaxDepth)
	assert.Equal(t, 10000, cfg.Serializer.MaxString)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.Store.Path)
}

func TestParse(t *testing.T) {
	data := []byte(`
limits:
  timeout: 2s
  max_steps: 100
serializer:
  max_items: 10
log:
  level: debug
  format: json
store:
  path: /tmp/traces.db
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Limits.Timeout)
	assert.Equal(t, 100, cfg.Limits.MaxSteps)
	assert.Equal(t, 10, cfg.Serializer.MaxItems)
	// Unset fields keep their defaults.
	assert.Equal(t, 8, cfg.Serializer.MaxDepth)
	assert.Equal(t, 5000, cfg.Limits.MaxSourceLength)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/traces.db", cfg.Store.Path)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown field", "limits:\n  max_stepz: 3\n", "max_stepz"},
		{"negative steps", "limits:\n  max_steps: -1\n", "limits.max_steps must be positive"},
		{"zero timeout", "limits:\n  timeout: 0s\n", "limits.timeout must be positive"},
		{"bad level", "log:\n  level: loud\n", `unknown level "loud"`},
		{"bad format", "log:\n  format: xml\n", "log.format must be text or json"},
		{"not yaml", "limits: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvTimeout:  "1.5",
		EnvMaxSteps: "42",
		EnvLogLevel: "debug",
		EnvDB:       "archive.db",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, 1500*time.Millisecond, cfg.Limits.Timeout)
	assert.Equal(t, 42, cfg.Limits.MaxSteps)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "archive.db", cfg.Store.Path)
}

func TestApplyEnv_Invalid(t *testing.T) {
	for _, key := range []string{EnvTimeout, EnvMaxSteps} {
		t.Run(key, func(t *testing.T) {
			err := Default().ApplyEnv(func(k string) string {
				if k == key {
					return "soon"
				}
				return ""
			})
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepwise.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  max_steps: 7\n"), 0o644))
	t.Setenv(EnvMaxSteps, "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Limits.MaxSteps, "environment overrides the file")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"5s", 5 * time.Second, true},
		{"250ms", 250 * time.Millisecond, true},
		{"2", 2 * time.Second, true},
		{"0.5", 500 * time.Millisecond, true},
		{"1e300", time.Duration(math.MaxInt64), true},
		{"later", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeout(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.Limits.MaxSteps = 3

	e := engine.New(cfg.EngineOptions()...)
	r := e.TraceExecution("a = 1\nb = 2\nc = 3\nd = 4\n", 0, 0)
	assert.True(t, r.Truncated)
	assert.Equal(t, 3, r.StepCount)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn", "json")
	log.Info("hidden")
	log.Warn("shown", "event", "test")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger(&buf, "bogus", "text").Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
