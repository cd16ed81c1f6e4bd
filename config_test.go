package pgextdemo

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{URL: "postgres://localhost/postgres", Batches: -1}.WithDefaults()
	if cfg.TeardownPolicy != TeardownStop {
		t.Errorf("expected stop policy, got %q", cfg.TeardownPolicy)
	}
	if cfg.Batches != 10 || cfg.BatchSize != 100000 {
		t.Errorf("expected 10 batches of 100000, got %d of %d", cfg.Batches, cfg.BatchSize)
	}
	if cfg.LogLevel != "info" || cfg.MonitorPassword != "__monitorpw" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	base := Config{URL: "postgres://localhost/postgres"}.WithDefaults()
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"exclusive", func(c *Config) { c.NoTeardown, c.OnlyTeardown = true, true }, "mutually exclusive"},
		{"no url", func(c *Config) { c.URL = "  " }, "connection URL must be provided"},
		{"bad policy", func(c *Config) { c.TeardownPolicy = "maybe" }, "teardown policy must be one of"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log level must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
	cfg := base
	cfg.NoTeardown, cfg.OnlyTeardown = true, true
	if !errors.Is(cfg.Validate(), ErrMutuallyExclusive) {
		t.Error("expected ErrMutuallyExclusive")
	}
}

func TestConfigFlags(t *testing.T) {
	tests := []struct {
		cfg  Config
		want Flags
	}{
		{Config{}, Flags{Init: true, Teardown: true}},
		{Config{NoInit: true}, Flags{Teardown: true}},
		{Config{NoTeardown: true}, Flags{Init: true}},
		{Config{OnlyTeardown: true}, Flags{Init: true, Teardown: true, TeardownOnly: true}},
	}
	for _, tt := range tests {
		if got := tt.cfg.Flags(); got != tt.want {
			t.Errorf("%+v: expected %+v, got %+v", tt.cfg, tt.want, got)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	data := `{"url": "postgres://file/db", "teardownPolicy": "continue", "noPause": true}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	var cfg Config
	if err := LoadConfig(path, &cfg); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.URL != "postgres://file/db" || cfg.TeardownPolicy != TeardownContinue || !cfg.NoPause {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PGEXTDEMO_URL", "")
	t.Setenv("DATABASE_URL", "postgres://heroku/db")
	t.Setenv("PGEXTDEMO_NO_PAUSE", "true")
	t.Setenv("PGEXTDEMO_TEARDOWN_POLICY", "continue")

	cfg := Config{URL: "postgres://file/db", Batches: 2}
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.URL != "postgres://heroku/db" {
		t.Errorf("expected DATABASE_URL, got %q", cfg.URL)
	}
	if !cfg.NoPause || cfg.TeardownPolicy != TeardownContinue {
		t.Errorf("expected env overrides, got %+v", cfg)
	}
	if cfg.Batches != 2 {
		t.Errorf("expected unset variables to keep existing values, got %d", cfg.Batches)
	}

	t.Setenv("PGEXTDEMO_URL", "postgres://own/db")
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.URL != "postgres://own/db" {
		t.Errorf("expected PGEXTDEMO_URL to beat DATABASE_URL, got %q", cfg.URL)
	}
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
}
