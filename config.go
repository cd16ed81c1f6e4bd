package pgextdemo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// TeardownPolicy controls how teardown reacts to a failing structural step
// (schema or role drop).
type TeardownPolicy string

const (
	// TeardownStop aborts teardown at the first structural failure and skips
	// extension cleanup.
	TeardownStop TeardownPolicy = "stop"

	// TeardownContinue runs every teardown step and returns the joined errors.
	TeardownContinue TeardownPolicy = "continue"
)

// ErrMutuallyExclusive is returned when NoTeardown and OnlyTeardown are both set.
var ErrMutuallyExclusive = errors.New("-no-teardown and -only-teardown are mutually exclusive")

// Flags selects which lifecycle phases run.
type Flags struct {
	// Init runs the setup phase and creates the demo table.
	Init bool

	// Teardown runs cleanup after the demo.
	Teardown bool

	// TeardownOnly skips the demo and runs only cleanup.
	TeardownOnly bool
}

// Config holds settings for a demo run.
type Config struct {
	// URL is the PostgreSQL connection URL.
	URL string `json:"url" env:"PGEXTDEMO_URL"`

	// NoInit skips the setup phase; the demo objects must already exist.
	NoInit bool `json:"noInit" env:"PGEXTDEMO_NO_INIT"`

	// NoTeardown leaves the demo objects in place.
	NoTeardown bool `json:"noTeardown" env:"PGEXTDEMO_NO_TEARDOWN"`

	// OnlyTeardown runs only the cleanup phase.
	OnlyTeardown bool `json:"onlyTeardown" env:"PGEXTDEMO_ONLY_TEARDOWN"`

	// TeardownPolicy is "stop" or "continue".
	TeardownPolicy TeardownPolicy `json:"teardownPolicy" env:"PGEXTDEMO_TEARDOWN_POLICY"`

	// NoPause disables the "Press enter" prompts.
	NoPause bool `json:"noPause" env:"PGEXTDEMO_NO_PAUSE"`

	// StatePath is the extension ledger database. Empty disables the ledger.
	StatePath string `json:"statePath" env:"PGEXTDEMO_STATE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel" env:"PGEXTDEMO_LOG_LEVEL"`

	// Batches and BatchSize control how many fake addresses are loaded.
	Batches   int `json:"batches" env:"PGEXTDEMO_BATCHES"`
	BatchSize int `json:"batchSize" env:"PGEXTDEMO_BATCH_SIZE"`

	// MonitorPassword is the password given to the restricted role.
	MonitorPassword string `json:"monitorPassword" env:"PGEXTDEMO_MONITOR_PASSWORD"`
}

// DefaultConfig provides default values for configuration.
var DefaultConfig = Config{
	TeardownPolicy:  TeardownStop,
	LogLevel:        "info",
	Batches:         10,
	BatchSize:       100000,
	MonitorPassword: "__monitorpw",
}

// DefaultStatePath returns the ledger location under the user cache directory.
func DefaultStatePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pgextdemo", "ledger.db")
}

// LoadConfig reads a JSON configuration file into cfg.
func LoadConfig(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(cfg)
}

// ApplyEnv overlays PGEXTDEMO_* environment variables onto cfg. Unset
// variables leave the existing values alone. DATABASE_URL is used when
// PGEXTDEMO_URL is unset and wins over a URL from the config file.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if os.Getenv("PGEXTDEMO_URL") == "" {
		if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
			cfg.URL = dbURL
		}
	}
	return nil
}

// WithDefaults fills any zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	if c.TeardownPolicy == "" {
		c.TeardownPolicy = DefaultConfig.TeardownPolicy
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultConfig.LogLevel
	}
	if c.Batches <= 0 {
		c.Batches = DefaultConfig.Batches
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultConfig.BatchSize
	}
	if c.MonitorPassword == "" {
		c.MonitorPassword = DefaultConfig.MonitorPassword
	}
	return c
}

// Validate checks the configuration for conflicting or missing values.
func (c Config) Validate() error {
	if c.NoTeardown && c.OnlyTeardown {
		return ErrMutuallyExclusive
	}
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("connection URL must be provided via -url flag, PGEXTDEMO_URL or DATABASE_URL env var, or \"url\" in config file")
	}
	switch c.TeardownPolicy {
	case TeardownStop, TeardownContinue:
	default:
		return fmt.Errorf("teardown policy must be one of: stop, continue (got %q)", c.TeardownPolicy)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Flags derives the lifecycle flags from the configuration.
func (c Config) Flags() Flags {
	return Flags{
		Init:         !c.NoInit,
		Teardown:     !c.NoTeardown,
		TeardownOnly: c.OnlyTeardown,
	}
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("log level must be one of: debug, info, warn, error (got %q)", name)
	}
	return level, nil
}
