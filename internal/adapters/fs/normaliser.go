// Package fs adapts the local filesystem to the core: path normalisation
// relative to the build root, and mtime observation for the status engine.
package fs

import (
	"path"
	"path/filepath"
	"strings"

	"go.remake.sh/remake/internal/core/domain"
)

// Normaliser collapses "."/".." segments and re-expresses absolute paths
// inside the build root in relative form, per spec §4.1.
type Normaliser struct {
	root string
}

// NewNormaliser creates a Normaliser anchored at root. root itself must
// already be an absolute, clean path (the build root captured at bootstrap).
func NewNormaliser(root string) *Normaliser {
	return &Normaliser{root: filepath.Clean(root)}
}

// Root returns the build root this normaliser is anchored at.
func (n *Normaliser) Root() string {
	return n.root
}

// Normalise reduces raw to its canonical Target form.
func (n *Normaliser) Normalise(raw string) domain.Target {
	return domain.NewTarget(n.normalise(raw))
}

func (n *Normaliser) normalise(raw string) string {
	if raw == "" {
		return "."
	}

	if filepath.IsAbs(raw) {
		rel, ok := relativeTo(n.root, raw)
		if !ok {
			// Outside the build root: preserve as an absolute path, but still
			// collapse "." / ".." within it.
			return collapse(splitAny(raw), true)
		}
		if rel == "" {
			return "."
		}
		raw = rel
	}

	segments := splitAny(raw)
	if c := path.Clean(strings.Join(segments, "/")); c == ".." || strings.HasPrefix(c, "../") {
		// Climbs above the build root: re-anchor at the root and recurse.
		return n.normalise(n.root + "/" + raw)
	}
	result := collapse(segments, false)
	if result == "" {
		return "."
	}
	return result
}

// splitAny splits on '/' and, for platforms where '\\' is also a separator,
// on '\\' as well.
func splitAny(p string) []string {
	if filepath.Separator == '\\' {
		p = strings.ReplaceAll(p, "\\", "/")
	}
	return strings.Split(p, "/")
}

// collapse applies "." / ".." reduction. A ".." with no preceding segment
// left to pop is dropped; normalise never hands it a relative path that
// climbs above the build root, since it re-anchors those first.
func collapse(segments []string, absolute bool) string {
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else if !absolute {
				// re-anchored at root: nothing to pop, drop the ".."
				continue
			}
		default:
			out = append(out, seg)
		}
	}
	joined := strings.Join(out, "/")
	if absolute {
		return "/" + joined
	}
	return joined
}

// relativeTo returns p expressed relative to root, if p lies within root.
func relativeTo(root, p string) (string, bool) {
	root = filepath.Clean(root)
	p = filepath.Clean(p)
	if p == root {
		return "", true
	}
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	return strings.TrimPrefix(p, prefix), true
}
