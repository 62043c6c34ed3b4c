package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
)

// DefaultPollInterval is how often change streams re-read the store when no
// local write woke them.
const DefaultPollInterval = "250ms"

// Config represents the global ~/.chatsync/config.toml.
type Config struct {
	// DefaultSession is the user id a session runs as when --session is not given.
	DefaultSession string `toml:"default_session"`
	// StorePath is the shared document store. Empty means ~/.chatsync/store.db.
	StorePath    string `toml:"store_path,omitempty"`
	PollInterval string `toml:"poll_interval,omitempty"`
	LogLevel     string `toml:"log_level,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{PollInterval: DefaultPollInterval, LogLevel: "info"}
}

// Load reads config from the given path. Returns zero config and error if file missing.
// Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks the duration and level fields.
func (c *Config) Validate() error {
	if c.PollInterval != "" {
		d, err := time.ParseDuration(c.PollInterval)
		if err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
		}
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}

// Poll returns the poll interval, falling back to the default.
func (c *Config) Poll() time.Duration {
	if d, err := time.ParseDuration(c.PollInterval); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultPollInterval)
	return d
}

// Level returns the log level, falling back to info.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
