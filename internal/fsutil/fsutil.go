// Package fsutil holds the file-system helpers shared by the vault store
// and the audit log: atomic replacement and free-space checks.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Permission modes for vault material.
const (
	FileMode = 0600 // Owner read/write only
	DirMode  = 0700 // Owner read/write/execute only
)

// Disk capacity thresholds
const (
	MinDiskSpaceBytes  = 10 * 1024 * 1024 // 10 MB minimum free space
	DiskWarningPercent = 90               // Warn when disk is 90% full
)

// ErrInsufficientDisk is returned when a write would not fit.
var ErrInsufficientDisk = errors.New("fsutil: insufficient disk space")

// DiskSpaceInfo contains disk usage information
type DiskSpaceInfo struct {
	Total     uint64 `json:"total"`     // Total disk space in bytes
	Free      uint64 `json:"free"`      // Free disk space in bytes
	Available uint64 `json:"available"` // Available to non-root users
	UsedPct   int    `json:"used_pct"`  // Percentage of disk used
}

// CheckSpaceForWrite returns ErrInsufficientDisk when the file system
// holding path has less than max(MinDiskSpaceBytes, 2*size) available.
// It reports low == true when the disk is at least DiskWarningPercent full.
// If the stats cannot be read the write is allowed.
func CheckSpaceForWrite(path string, size int) (low bool, err error) {
	info, err := DiskSpace(path)
	if err != nil {
		return false, nil
	}

	required := uint64(MinDiskSpaceBytes)
	if uint64(size)*2 > required {
		required = uint64(size) * 2
	}
	if info.Available < required {
		return false, fmt.Errorf("%w: only %d MB available, need at least %d MB",
			ErrInsufficientDisk,
			info.Available/(1024*1024),
			required/(1024*1024))
	}
	return info.UsedPct >= DiskWarningPercent, nil
}

// WriteFileAtomic replaces path with data.
//
// The data goes to a temp file in the same directory, which is synced,
// chmodded to perm and renamed over path, so readers see either the old
// file or the new one. The directory is synced afterwards where the
// platform supports it.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Chmod(perm); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		return err
	}
	return syncDir(dir)
}

// CopyFileAtomic copies src over dst with WriteFileAtomic.
func CopyFileAtomic(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return WriteFileAtomic(dst, data, perm)
}

// InsecurePerm reports whether mode grants any access to group or others.
func InsecurePerm(mode os.FileMode) bool {
	return mode.Perm()&0077 != 0
}
