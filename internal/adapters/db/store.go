// Package db persists the dependency database `.remake`: one line per
// dependency group, grammar and merge semantics exactly spec §4.4.
package db

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"go.remake.sh/remake/internal/core/domain"
)

// Store holds every dependency group known this run, keyed by every
// target that belongs to it. Owned exclusively by the scheduler goroutine
// (spec §5); not safe for concurrent use.
type Store struct {
	path string
	groups map[domain.Target]*domain.DependencyGroup
}

// NewStore creates a Store rooted at path (conventionally "<root>/.remake")
// and loads any existing content. A missing file is not an error.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path: filepath.Clean(path),
		groups: make(map[domain.Target]*domain.DependencyGroup),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	//nolint:gosec // path is a cleaned, trusted build-root-relative path
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read dependency database")
	}
	_, err = s.mergeLines(string(data))
	return err
}

// LoadReader merges every dependency-group line read from r into the
// store, using the same grammar and later-line-wins merge semantics as
// `.remake` itself (spec §4.4). It returns the first parsed line's
// dependencies, which the `-r` flag uses as the default build set when
// no targets are given on the command line.
func (s *Store) LoadReader(r io.Reader) (domain.Targets, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read dependency input")
	}
	return s.mergeLines(string(data))
}

// mergeLines parses data line by line in the `.remake` grammar, merging
// each line's group into s.groups, and reports the first parsed line's
// dependency list.
func (s *Store) mergeLines(data string) (domain.Targets, error) {
	var firstDeps domain.Targets
	haveFirst := false
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rawTargets, rest := readWords(line)
		if len(rawTargets) == 0 {
			continue
		}
		rest = strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(rest, ":") {
			return nil, zerr.With(zerr.New("malformed dependency database line"), "line", line)
		}
		rawDeps, _ := readWords(rest[1:])

		targets := make(domain.Targets, len(rawTargets))
		for i, t := range rawTargets {
			targets[i] = domain.NewTarget(t)
		}
		deps := make(domain.Targets, len(rawDeps))
		for i, d := range rawDeps {
			deps[i] = domain.NewTarget(d)
		}
		group := domain.NewDependencyGroup(targets)
		for _, d := range deps {
			group.AddDep(d)
		}
		// Later lines win for any target they redeclare.
		for _, t := range targets {
			s.groups[t] = group
		}
		if !haveFirst {
			firstDeps = deps
			haveFirst = true
		}
	}
	return firstDeps, nil
}

// Save writes every group exactly once to path, in target-sorted order for
// determinism, then exits with every group still resident in memory (the
// in-process map is not cleared — callers are tearing down).
func (s *Store) Save() error {
	var keys domain.Targets
	for t := range s.groups {
		keys = append(keys, t)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var b strings.Builder
	seen := make(map[uint64]bool)
	for _, t := range keys {
		g := s.groups[t]
		digest := groupDigest(g)
		if seen[digest] {
			continue
		}
		seen[digest] = true
		for i, gt := range g.Targets {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(escapeString(gt.String()))
		}
		b.WriteString(" :")
		for _, d := range g.SortedDeps() {
			b.WriteByte(' ')
			b.WriteString(escapeString(d.String()))
		}
		b.WriteByte('\n')
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create directory for dependency database")
	}
	//nolint:gosec // path is a cleaned, trusted build-root-relative path
	if err := os.WriteFile(s.path, []byte(b.String()), 0o644); err != nil {
		return zerr.Wrap(err, "failed to write dependency database")
	}
	return nil
}

// groupDigest hashes g's target list into a stable identity key. Save uses
// it instead of g's pointer to dedupe a group reachable from several of
// its own targets in s.groups, so dedup stays correct even if two group
// values ever end up holding the same target set under distinct pointers.
func groupDigest(g *domain.DependencyGroup) uint64 {
	h := xxhash.New()
	for _, t := range g.Targets {
		_, _ = h.WriteString(t.String())
		_, _ = h.WriteString("\x00")
	}
	return h.Sum64()
}

// Group returns the dependency group t belongs to, if any.
func (s *Store) Group(t domain.Target) (*domain.DependencyGroup, bool) {
	g, ok := s.groups[t]
	return g, ok
}

// RegisterGroup creates a shared dependency group for targets, unioning
// staticDeps with any pre-existing dynamic deps recorded for these
// targets, and redirects every target to the new group (spec §4.4's
// runtime merge semantics, fired when a scripted rule runs).
func (s *Store) RegisterGroup(targets domain.Targets, staticDeps domain.Targets) *domain.DependencyGroup {
	group := domain.NewDependencyGroup(targets)
	group.AddDeps(staticDeps)
	for _, t := range targets {
		if existing, ok := s.groups[t]; ok {
			group.AddDeps(existing.SortedDeps())
		}
	}
	for _, t := range targets {
		s.groups[t] = group
	}
	return group
}

// AddDynamicDep records dep as a dependency of owner's group, so it
// persists in `.remake`. Used by the IPC server when a job posts a
// request for further targets (spec §4.8 step 4).
func (s *Store) AddDynamicDep(owner domain.Target, dep domain.Target) {
	if g, ok := s.groups[owner]; ok {
		g.AddDep(dep)
	}
}
