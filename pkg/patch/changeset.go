package patch

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/lucas-albers-lz4/ciprep/pkg/fileutil"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// Change describes one staged file.
type Change struct {
	Path    string
	Created bool
	Before  int
	After   int
}

// ChangeSet collects new file contents in memory and writes them only on Commit, so a failure
// in any step leaves every file of the tree untouched.
type ChangeSet struct {
	fs       afero.Fs
	order    []string
	staged   map[string][]byte
	original map[string][]byte
}

// NewChangeSet creates an empty ChangeSet over fs.
func NewChangeSet(fs afero.Fs) *ChangeSet {
	return &ChangeSet{
		fs:       fs,
		staged:   make(map[string][]byte),
		original: make(map[string][]byte),
	}
}

// Read returns the staged content of path, or the file on disk when nothing is staged.
func (c *ChangeSet) Read(path string) ([]byte, error) {
	if data, ok := c.staged[path]; ok {
		return data, nil
	}
	if data, ok := c.original[path]; ok {
		return data, nil
	}
	data, err := fileutil.ReadRegularFile(c.fs, path)
	if err != nil {
		return nil, err
	}
	c.original[path] = data
	return data, nil
}

// Exists reports whether path is staged or present on disk.
func (c *ChangeSet) Exists(path string) (bool, error) {
	if _, ok := c.staged[path]; ok {
		return true, nil
	}
	return fileutil.FileExists(c.fs, path)
}

// Stage records the new content of path.
func (c *ChangeSet) Stage(path string, data []byte) {
	if _, ok := c.original[path]; !ok {
		if existing, err := fileutil.ReadRegularFile(c.fs, path); err == nil {
			c.original[path] = existing
		}
	}
	if _, ok := c.staged[path]; !ok {
		c.order = append(c.order, path)
	}
	c.staged[path] = data
}

// Changes lists staged files whose content differs from disk, in staging order.
func (c *ChangeSet) Changes() []Change {
	var changes []Change
	for _, path := range c.order {
		data := c.staged[path]
		orig, existed := c.original[path]
		if existed && string(orig) == string(data) {
			continue
		}
		changes = append(changes, Change{Path: path, Created: !existed, Before: len(orig), After: len(data)})
	}
	return changes
}

// Commit writes every changed file with a temp-file-and-rename.
func (c *ChangeSet) Commit() error {
	for _, change := range c.Changes() {
		if err := fileutil.AtomicWriteFile(c.fs, change.Path, c.staged[change.Path]); err != nil {
			return fmt.Errorf("failed to commit changes: %w", err)
		}
		log.Info("Updated file", "path", change.Path, "created", change.Created, "bytes", change.After)
	}
	return nil
}

// IsNotExist reports whether err means a file was missing.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
