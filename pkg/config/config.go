// Package config loads chatterbox settings from a TOML file, a .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/subosito/gotenv"

	"github.com/papercomputeco/chatterbox/pkg/completion"
)

const (
	// DefaultFile is read when no config path is given and the file exists.
	DefaultFile = "chatterbox.toml"

	// DefaultEnvFile holds credentials for local runs.
	DefaultEnvFile = ".env"

	EnvCompletionKey = "GROQ_API_KEY"
	EnvTracingKey    = "LANGCHAIN_API_KEY"
	EnvModel         = "CHATTERBOX_MODEL"
	EnvListen        = "CHATTERBOX_LISTEN"
)

// Config is the full chatterbox configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	Listen string `toml:"listen"`
	Debug  bool   `toml:"debug"`

	Completion CompletionConfig `toml:"completion"`
	Tracing    TracingConfig    `toml:"tracing"`
	Session    SessionConfig    `toml:"session"`
	Chat       ChatConfig       `toml:"chat"`
}

// CompletionConfig configures the completion provider.
type CompletionConfig struct {
	// APIKey only ever comes from the environment.
	APIKey string `toml:"-"`

	BaseURL      string        `toml:"base_url"`
	Model        string        `toml:"model"`
	SystemPrompt string        `toml:"system_prompt"`
	Temperature  float64       `toml:"temperature"`
	MaxTokens    int           `toml:"max_tokens"`
	Timeout      time.Duration `toml:"timeout"`
}

// TracingConfig configures run recording.
type TracingConfig struct {
	// APIKey only ever comes from the environment. Setting it enables tracing.
	APIKey string `toml:"-"`

	Enabled bool `toml:"enabled"`

	// DBPath is the SQLite transcript database. Empty keeps runs in memory.
	DBPath string `toml:"db_path"`
}

// SessionConfig configures browser sessions.
type SessionConfig struct {
	// TTL is how long an idle conversation is kept.
	TTL time.Duration `toml:"ttl"`
}

// ChatConfig configures the terminal chat.
type ChatConfig struct {
	// LogFile receives logs while the terminal UI owns stdout. Empty discards them.
	LogFile string `toml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Completion: CompletionConfig{
			BaseURL: completion.GroqBaseURL,
			Model:   completion.DefaultModel,
			Timeout: 60 * time.Second,
		},
		Session: SessionConfig{
			TTL: time.Hour,
		},
	}
}

// Load builds a Config from defaults, the TOML file at path, the env file and the
// process environment, in increasing order of precedence. An empty path reads
// DefaultFile if it exists; an explicit path must exist.
func Load(path, envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil || explicit {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TracingEnabled reports whether completion runs should be recorded.
func (c *Config) TracingEnabled() bool {
	return c.Tracing.Enabled || c.Tracing.APIKey != ""
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Completion.Model == "" {
		errs = append(errs, errors.New("completion.model is required"))
	}
	if c.Completion.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("completion.timeout must be positive, got %s", c.Completion.Timeout))
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		errs = append(errs, fmt.Errorf("completion.temperature must be between 0 and 2, got %g", c.Completion.Temperature))
	}
	if c.Completion.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("completion.max_tokens must not be negative, got %d", c.Completion.MaxTokens))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Completion.APIKey = os.Getenv(EnvCompletionKey)
	c.Tracing.APIKey = os.Getenv(EnvTracingKey)
	if v := os.Getenv(EnvModel); v != "" {
		c.Completion.Model = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
}

// loadEnvFile exports variables from path without overriding ones already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
