package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// ErrNotRegularFile is returned when a path exists but is a directory.
var ErrNotRegularFile = errors.New("not a regular file")

// FileExists checks if a regular file exists at the given path
func FileExists(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if file exists: %w", err)
	}
	return !info.IsDir(), nil
}

// DirExists checks if a directory exists at the given path
func DirExists(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat directory: %w", err)
	}
	return info.IsDir(), nil
}

// ReadRegularFile reads path, returning os.ErrNotExist (wrapped) when it is missing and
// ErrNotRegularFile when it is a directory.
func ReadRegularFile(fs afero.Fs, path string) ([]byte, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// AtomicWriteFile replaces path with data. The content goes to a temporary file in the same
// directory first and is renamed over the target, so readers never see a partial file.
// The mode of an existing target is kept; new files get ReadWriteUserReadOthers.
func AtomicWriteFile(fs afero.Fs, path string, data []byte) error {
	perm := os.FileMode(ReadWriteUserReadOthers)
	if info, err := fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			if rmErr := fs.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn("Failed to remove temp file", "path", tmpName, "error", rmErr)
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set mode on temp file for %s: %w", path, err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	committed = true
	return nil
}

// TempDir creates a fresh directory and returns it with a cleanup function.
// Cleanup is best effort: a directory that is already gone is not an error, other
// failures are logged.
func TempDir(fs afero.Fs, prefix string) (dir string, cleanup func(), err error) {
	dir, err = afero.TempDir(fs, "", prefix)
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup = func() {
		if err := fs.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove temp directory", "path", dir, "error", err)
			return
		}
		log.Debug("Removed temp directory", "path", dir)
	}
	return dir, cleanup, nil
}
