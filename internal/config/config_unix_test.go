//go:build !windows

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_InsecurePermissions(t *testing.T) {
	path := writeConfig(t, "version: 1\n")
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrInsecure) {
		t.Errorf("Load() error = %v, want ErrInsecure", err)
	}
}

func TestLoad_Symlink(t *testing.T) {
	target := writeConfig(t, "version: 1\n")
	link := filepath.Join(t.TempDir(), FileName)
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	_, err := Load(link)
	if !errors.Is(err, ErrSymlink) {
		t.Errorf("Load() error = %v, want ErrSymlink", err)
	}
}
