// Package status implements the obsoleteness engine of spec §4.5: a
// memoized per-target status computed from on-disk timestamps, static
// prerequisites, and persisted dynamic dependencies.
package status

import (
	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/core/ports"
)

// GroupIndex resolves a target to the dependency group it belongs to, if
// any. Implemented by the dependency database adapter so the status
// engine observes dynamic groups created mid-run by run_script.
type GroupIndex interface {
	Group(t domain.Target) (*domain.DependencyGroup, bool)
}

// Engine computes and memoizes domain.StatusRecord values for targets.
// Not safe for concurrent use — it is owned exclusively by the single
// scheduler goroutine, matching spec §5's "no locks needed" invariant.
type Engine struct {
	stat ports.Stat
	groups GroupIndex
	records map[domain.Target]*domain.StatusRecord
	// now is the server's startup instant, captured once to compensate for
	// second-granularity mtimes (spec §4.5, §9 "Clock resolution").
	now int64
}

// New creates a status Engine. now is the build-start instant used by
// UpdateStatus to decide Uptodate vs. Remade.
func New(stat ports.Stat, groups GroupIndex, now int64) *Engine {
	return &Engine{
		stat: stat,
		groups: groups,
		records: make(map[domain.Target]*domain.StatusRecord),
		now: now,
	}
}

// Get computes and memoizes t's status, recursing into its dependency
// group's siblings and deps as spec §4.5 describes. The record is
// inserted before recursion begins, so a cyclic static dependency reads
// back as the zero record (Uptodate, mtime 0) rather than looping
// forever — why domain.Uptodate is the zero Status value.
func (e *Engine) Get(t domain.Target) domain.StatusRecord {
	if rec, ok := e.records[t]; ok {
		return *rec
	}
	rec := &domain.StatusRecord{}
	e.records[t] = rec

	group, hasGroup := e.groups.Group(t)
	if !hasGroup {
		mtime, exists := e.stat.Stat(t)
		if !exists {
			rec.Status = domain.Todo
			rec.LastMTime = 0
		} else {
			rec.Status = domain.Uptodate
			rec.LastMTime = mtime
		}
		return *rec
	}

	var latest int64
	anyMissing := false
	for _, sib := range group.Targets {
		mtime, exists := e.stat.Stat(sib)
		if !exists {
			anyMissing = true
			mtime = 0
		}
		e.recordFor(sib).LastMTime = mtime
		if mtime > latest {
			latest = mtime
		}
	}

	st := domain.Uptodate
	if anyMissing {
		st = domain.Todo
	} else {
		for _, dep := range group.SortedDeps() {
			depRec := e.Get(dep)
			if latest < depRec.LastMTime {
				st = domain.Todo
				break
			}
			if depRec.Status != domain.Uptodate {
				st = domain.Recheck
			}
		}
	}

	for _, sib := range group.Targets {
		e.recordFor(sib).Status = st
	}
	return *rec
}

// recordFor returns t's memoized record, creating a zero one if absent.
func (e *Engine) recordFor(t domain.Target) *domain.StatusRecord {
	rec, ok := e.records[t]
	if !ok {
		rec = &domain.StatusRecord{}
		e.records[t] = rec
	}
	return rec
}

// UpdateStatus is called after the job building t succeeds: it re-stats t
// and settles its status between Remade and Uptodate (spec §4.5).
func (e *Engine) UpdateStatus(t domain.Target) {
	rec := e.recordFor(t)
	rec.Status = domain.Remade
	if rec.LastMTime >= e.now {
		return
	}
	mtime, exists := e.stat.Stat(t)
	if !exists {
		rec.LastMTime = 0
		return
	}
	if mtime != rec.LastMTime {
		rec.LastMTime = mtime
		return
	}
	rec.Status = domain.Uptodate
}

// MarkRunning memoizes t's status (computing its siblings/deps as Get
// would) and then forces it to Running — called by start() once it has
// committed to rebuilding t, so a later handle_clients pass sees the
// in-flight job rather than re-deriving Todo/Recheck from disk state.
func (e *Engine) MarkRunning(t domain.Target) {
	e.Get(t)
	e.recordFor(t).Status = domain.Running
}

// Fail marks every target in targets Failed, without touching mtime.
func (e *Engine) Fail(targets domain.Targets) {
	for _, t := range targets {
		e.recordFor(t).Status = domain.Failed
	}
}

// StillNeedRebuild is called when a dependency-client finishes (spec
// §4.5): if t is not in Recheck, a rebuild is unconditionally needed. If
// every dep in t's group ended up Uptodate, the whole group collapses to
// Uptodate and no rebuild is needed — this is invariant I7.
func (e *Engine) StillNeedRebuild(t domain.Target) bool {
	rec := e.recordFor(t)
	if rec.Status != domain.Recheck {
		return true
	}
	group, hasGroup := e.groups.Group(t)
	if !hasGroup {
		return true
	}
	for _, dep := range group.SortedDeps() {
		if e.recordFor(dep).Status != domain.Uptodate {
			return true
		}
	}
	for _, sib := range group.Targets {
		e.recordFor(sib).Status = domain.Uptodate
	}
	return false
}
