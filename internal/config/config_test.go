package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/forest6511/pwvault/pkg/generate"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `version: 1
vault_path: /tmp/test-vault.dat
log_level: debug
audit:
  enabled: false
  path: /tmp/audit
generate:
  length: 32
  symbols: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VaultPath != "/tmp/test-vault.dat" {
		t.Errorf("VaultPath = %q", cfg.VaultPath)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", cfg.Level())
	}
	if cfg.Audit.Enabled || cfg.Audit.Path != "/tmp/audit" {
		t.Errorf("Audit = %+v", cfg.Audit)
	}
	opts := cfg.GenerateOptions()
	if opts.Length != 32 || opts.Symbols {
		t.Errorf("GenerateOptions() = %+v", opts)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "version: 1\nvault_path: /x\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Audit.Enabled {
		t.Error("Audit.Enabled = false, want default true")
	}
	if cfg.Generate.Length != generate.DefaultLength {
		t.Errorf("Generate.Length = %d, want %d", cfg.Generate.Length, generate.DefaultLength)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"wrong version", "version: 2\n"},
		{"missing version", "vault_path: /x\n"},
		{"bad log level", "version: 1\nlog_level: loud\n"},
		{"length too short", "version: 1\ngenerate:\n  length: 4\n"},
		{"length too long", "version: 1\ngenerate:\n  length: 1000\n"},
		{"not yaml", "version: [1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvVaultPath: "/env/vault.dat",
		EnvLogLevel:  "error",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	cfg.VaultPath = "/file/vault.dat"
	cfg.ApplyEnv(lookup)

	if cfg.VaultPath != "/env/vault.dat" {
		t.Errorf("VaultPath = %q", cfg.VaultPath)
	}
	if cfg.Level() != slog.LevelError {
		t.Errorf("Level() = %v", cfg.Level())
	}

	empty := Default()
	empty.VaultPath = "/file/vault.dat"
	empty.ApplyEnv(func(string) (string, bool) { return "", true })
	if empty.VaultPath != "/file/vault.dat" {
		t.Errorf("empty env var overrode VaultPath: %q", empty.VaultPath)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if dir != filepath.Join("/xdg", "pwvault") {
		t.Errorf("Dir() = %q", dir)
	}
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if filepath.Base(path) != FileName {
		t.Errorf("DefaultPath() = %q", path)
	}
}
