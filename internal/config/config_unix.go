//go:build !windows

package config

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/forest6511/pwvault/internal/fsutil"
)

// openConfigFile opens path with O_NOFOLLOW to reject symlinks.
func openConfigFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NOFOLLOW, 0)
	if err != nil {
		if errors.Is(err, syscall.ELOOP) {
			return nil, ErrSymlink
		}
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("config: failed to open %s: %w", path, err)
	}
	return f, nil
}

// checkFileAccess requires mode 0600 or stricter and the current user as
// owner.
func checkFileAccess(info os.FileInfo) error {
	if fsutil.InsecurePerm(info.Mode()) {
		return fmt.Errorf("%w: %o (expected %o)", ErrInsecure, info.Mode().Perm(), fsutil.FileMode)
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		if stat.Uid != uint32(os.Getuid()) {
			return ErrNotOwnedByUser
		}
	}
	return nil
}
