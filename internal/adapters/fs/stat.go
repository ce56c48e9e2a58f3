package fs

import (
	"os"
	"path/filepath"

	"go.remake.sh/remake/internal/core/domain"
)

// Stater implements ports.Stat against the local filesystem, resolving
// targets relative to the same build root as the Normaliser.
type Stater struct {
	root string
}

// NewStater creates a Stater anchored at root.
func NewStater(root string) *Stater {
	return &Stater{root: root}
}

// Stat reports t's modification time in whole seconds, and whether t exists.
// A missing file reports (0, false).
func (s *Stater) Stat(t domain.Target) (mtime int64, exists bool) {
	path := t.String()
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return info.ModTime().Unix(), true
}

// Unlink removes t's underlying file, if any. Missing files are not an error.
func (s *Stater) Unlink(t domain.Target) error {
	path := t.String()
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
