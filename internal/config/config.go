// Package config loads pwvault settings from config.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forest6511/pwvault/pkg/generate"
)

// FileName is the name of the config file inside Dir().
const FileName = "config.yaml"

// Version is the only supported config schema version.
const Version = 1

// Environment variables that override the file.
const (
	EnvVaultPath = "PWVAULT_PATH"
	EnvLogLevel  = "PWVAULT_LOG_LEVEL"
)

var (
	// ErrInsecure is returned when the config file is readable by others.
	ErrInsecure = errors.New("config: file has insecure permissions")
	// ErrSymlink is returned when the config file is a symlink.
	ErrSymlink = errors.New("config: file is a symlink")
	// ErrNotOwnedByUser is returned when the config file belongs to another user.
	ErrNotOwnedByUser = errors.New("config: file not owned by current user")
)

// Config holds every setting. Zero values in the file leave the defaults
// in place.
type Config struct {
	Version   int            `yaml:"version"`
	VaultPath string         `yaml:"vault_path"`
	LogLevel  string         `yaml:"log_level"`
	Audit     AuditConfig    `yaml:"audit"`
	Generate  GenerateConfig `yaml:"generate"`
}

// AuditConfig controls the audit log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// GenerateConfig sets password generator defaults.
type GenerateConfig struct {
	Length  int  `yaml:"length"`
	Symbols bool `yaml:"symbols"`
}

// Dir returns $XDG_CONFIG_HOME/pwvault, falling back to the OS user
// config directory.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pwvault"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to resolve config directory: %w", err)
	}
	return filepath.Join(base, "pwvault"), nil
}

// DefaultPath returns Dir()/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Default returns the built-in settings. VaultPath and Audit.Path stay
// empty and are resolved by the caller.
func Default() *Config {
	return &Config{
		Version:  Version,
		LogLevel: "warn",
		Audit: AuditConfig{
			Enabled: true,
		},
		Generate: GenerateConfig{
			Length:  generate.DefaultLength,
			Symbols: true,
		},
	}
}

// Load reads the config file at path over the defaults. A missing file
// yields the defaults. The file is opened without following symlinks and
// must be private to the current user.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := openConfigFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("config: failed to stat %s: %w", path, err)
	}
	if err := checkFileAccess(info); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	cfg.Version = 0 // the file must state its version
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment via lookup
// (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvVaultPath); ok && v != "" {
		c.VaultPath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
}

// Validate checks the schema version and value ranges.
func (c *Config) Validate() error {
	if c.Version != Version {
		return fmt.Errorf("config: unsupported config version: %d", c.Version)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Generate.Length < generate.MinLength || c.Generate.Length > generate.MaxLength {
		return fmt.Errorf("config: generate.length must be between %d and %d", generate.MinLength, generate.MaxLength)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// GenerateOptions returns generator options from the config.
func (c *Config) GenerateOptions() generate.Options {
	opts := generate.DefaultOptions()
	opts.Length = c.Generate.Length
	opts.Symbols = c.Generate.Symbols
	return opts
}

// ParseLevel accepts debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", s)
	}
	return level, nil
}
