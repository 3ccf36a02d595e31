// Package fileutil holds small filesystem helpers shared by the
// persistence layer.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEmptyPath is returned when a caller passes an empty target path.
var ErrEmptyPath = errors.New("path is empty")

// WriteAtomic replaces the file at path with data under the given
// permissions. The data is written to a temp file first and renamed over
// the target, so a concurrent reader sees either the old content or the
// new, never a torn write. The temp file lives in the target's directory
// because rename is only atomic within a single filesystem.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Every failure path removes the temp file so aborted writes do not
	// pile up next to the target.
	fail := func(step string, cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%s temp file: %w", step, cause)
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	// Sync the directory so the rename itself survives a crash. Best
	// effort: some filesystems reject directory syncs.
	if dirFile, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir derives from the caller's path
		_ = dirFile.Sync()
		_ = dirFile.Close()
	}

	return nil
}
