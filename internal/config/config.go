// Package config loads stepwise settings from a YAML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the config file, STEPWISE_*
// environment variables. Command-line flags are applied by the CLI on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/interp"
)

// ErrConfiguration marks an invalid setting.
var ErrConfiguration = errors.New("invalid configuration")

// Environment variables read by Load.
const (
	EnvConfig   = "STEPWISE_CONFIG"
	EnvTimeout  = "STEPWISE_TIMEOUT"
	EnvMaxSteps = "STEPWISE_MAX_STEPS"
	EnvLogLevel = "STEPWISE_LOG_LEVEL"
	EnvDB       = "STEPWISE_DB"
)

// DefaultMaxSourceLength caps submitted scripts in characters.
const DefaultMaxSourceLength = 5000

// Config is the complete settings tree.
type Config struct {
	Limits     Limits     `yaml:"limits"`
	Serializer Serializer `yaml:"serializer"`
	Log        Log        `yaml:"log"`
	Store      Store      `yaml:"store"`
}

// Limits bounds one trace.
type Limits struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxSteps        int           `yaml:"max_steps"`
	MaxSourceLength int           `yaml:"max_source_length"`
	MaxCallDepth    int           `yaml:"max_call_depth"`
}

// Serializer bounds the recorded form of values.
type Serializer struct {
	MaxItems  int `yaml:"max_items"`
	MaxDepth  int `yaml:"max_depth"`
	MaxString int `yaml:"max_string"`
}

// Log selects the log level and handler format.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Store locates the trace archive. An empty path disables archiving.
type Store struct {
	Path string `yaml:"path"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Limits: Limits{
			Timeout:         engine.DefaultTimeout,
			MaxSteps:        engine.DefaultMaxSteps,
			MaxSourceLength: DefaultMaxSourceLength,
			MaxCallDepth:    interp.DefaultMaxDepth,
		},
		Serializer: Serializer{
			MaxItems:  engine.DefaultMaxItems,
			MaxDepth:  engine.DefaultMaxDepth,
			MaxString: engine.DefaultMaxString,
		},
		Log: Log{Level: "warn", Format: "text"},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("%w: parse config: %v", ErrConfiguration, err)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables read through
// getenv. STEPWISE_TIMEOUT accepts a duration ("2s") or plain seconds
// ("2.5").
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvTimeout); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfiguration, EnvTimeout, err)
		}
		c.Limits.Timeout = d
	}
	if v := getenv(EnvMaxSteps); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfiguration, EnvMaxSteps, err)
		}
		c.Limits.MaxSteps = n
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvDB); v != "" {
		c.Store.Path = v
	}
	return nil
}

// ParseTimeout reads a duration string, or a number of seconds.
func ParseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return engine.Seconds(secs), nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	positive := func(name string, n int) {
		if n <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", name, n))
		}
	}

	if c.Limits.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("limits.timeout must be positive, got %s", c.Limits.Timeout))
	}
	positive("limits.max_steps", c.Limits.MaxSteps)
	positive("limits.max_source_length", c.Limits.MaxSourceLength)
	positive("limits.max_call_depth", c.Limits.MaxCallDepth)
	positive("serializer.max_items", c.Serializer.MaxItems)
	positive("serializer.max_depth", c.Serializer.MaxDepth)
	positive("serializer.max_string", c.Serializer.MaxString)

	if _, err := ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level: "+err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// EngineOptions translates the settings into engine options.
func (c *Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithTimeout(c.Limits.Timeout),
		engine.WithMaxSteps(c.Limits.MaxSteps),
		engine.WithCallDepth(c.Limits.MaxCallDepth),
		engine.WithLimits(engine.Limits{
			MaxItems:  c.Serializer.MaxItems,
			MaxDepth:  c.Serializer.MaxDepth,
			MaxString: c.Serializer.MaxString,
		}),
	}
}

// DefaultPath returns the config file used when none is given:
// $STEPWISE_CONFIG, else ~/.stepwise/config.yaml if it exists, else "".
func DefaultPath() string {
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".stepwise", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
