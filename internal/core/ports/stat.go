package ports

import "go.remake.sh/remake/internal/core/domain"

// Stat defines the interface for observing and removing target files.
//
//go:generate go run go.uber.org/mock/mockgen -source=stat.go -destination=mocks/mock_stat.go -package=mocks
type Stat interface {
	// Stat reports t's modification time in whole seconds, and whether t
	// exists. A missing file reports (0, false).
	Stat(t domain.Target) (mtime int64, exists bool)

	// Unlink removes t's underlying file. Missing files are not an error.
	Unlink(t domain.Target) error
}
