//go:build windows

package config

import (
	"fmt"
	"os"
)

// openConfigFile opens path. Windows has no O_NOFOLLOW.
func openConfigFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("config: failed to open %s: %w", path, err)
	}
	return f, nil
}

// checkFileAccess is a no-op; Windows uses ACLs rather than mode bits.
func checkFileAccess(_ os.FileInfo) error {
	return nil
}
