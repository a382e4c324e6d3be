package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves a field unset.
const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultTempRetries = 20
	DefaultMaxPathLen  = 4096
	DefaultTempPrefix  = ".fspec-"
)

// Config represents the complete fspec configuration
type Config struct {
	Log  LogConfig  `yaml:"log"`
	Sync SyncConfig `yaml:"sync"`
}

// LogConfig configures diagnostics on stderr
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SyncConfig configures the synchronizer
type SyncConfig struct {
	DryRun bool `yaml:"dry_run"`
	// TempRetries bounds the attempts to find a free temporary symlink name.
	TempRetries int `yaml:"temp_retries"`
	// MaxPathLen is the longest root-joined path the synchronizer accepts.
	MaxPathLen int `yaml:"max_path_len"`
	// StrictSize turns a fetched size that differs from the declared size
	// into an integrity failure instead of a warning.
	StrictSize bool `yaml:"strict_size"`
	// TempPrefix prefixes temporary regular files created next to their
	// destination.
	TempPrefix string `yaml:"temp_prefix"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default when
// it does not. Any other read or parse error is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// DefaultPath returns $XDG_CONFIG_HOME/fspec/config.yaml, falling back to
// ~/.config/fspec/config.yaml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "fspec", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "fspec", "config.yaml"), nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Log.Level = os.ExpandEnv(c.Log.Level)
	c.Log.Format = os.ExpandEnv(c.Log.Format)
	c.Sync.TempPrefix = os.ExpandEnv(c.Sync.TempPrefix)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Sync.TempRetries == 0 {
		c.Sync.TempRetries = DefaultTempRetries
	}
	if c.Sync.MaxPathLen == 0 {
		c.Sync.MaxPathLen = DefaultMaxPathLen
	}
	if c.Sync.TempPrefix == "" {
		c.Sync.TempPrefix = DefaultTempPrefix
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	switch c.Log.Format {
	case "text", "json":
		// valid
	default:
		return fmt.Errorf("invalid log.format: %s (must be text or json)", c.Log.Format)
	}

	if c.Sync.TempRetries < 1 {
		return fmt.Errorf("sync.temp_retries must be positive, got %d", c.Sync.TempRetries)
	}
	if c.Sync.MaxPathLen < 2 {
		return fmt.Errorf("sync.max_path_len is too small: %d", c.Sync.MaxPathLen)
	}

	// Temporary files live next to their destination; a prefix containing a
	// separator would put them elsewhere.
	if filepath.Base(c.Sync.TempPrefix) != c.Sync.TempPrefix {
		return fmt.Errorf("sync.temp_prefix must not contain a path separator: %s", c.Sync.TempPrefix)
	}

	return nil
}
