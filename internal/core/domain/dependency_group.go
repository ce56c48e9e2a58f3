package domain

import "sort"

// DependencyGroup records the full prerequisite set for a group of targets
// that share a single rule/job: the targets it produces, and every
// prerequisite ever observed for them — both the ones declared in the
// Remakefile and the dynamic ones a job discovered for itself at build time.
// It is the persisted unit in the `.remake` database.
type DependencyGroup struct {
	Targets Targets
	Deps map[Target]struct{}
}

// NewDependencyGroup creates a group for targets with no recorded deps yet.
func NewDependencyGroup(targets Targets) *DependencyGroup {
	return &DependencyGroup{
		Targets: targets,
		Deps: make(map[Target]struct{}),
	}
}

// AddDep records dep as a prerequisite of the group, idempotently.
func (g *DependencyGroup) AddDep(dep Target) {
	g.Deps[dep] = struct{}{}
}

// AddDeps records every dep in deps as a prerequisite of the group.
func (g *DependencyGroup) AddDeps(deps Targets) {
	for _, d := range deps {
		g.AddDep(d)
	}
}

// SortedDeps returns the group's dependencies sorted by path, for
// deterministic persistence.
func (g *DependencyGroup) SortedDeps() Targets {
	out := make(Targets, 0, len(g.Deps))
	for d := range g.Deps {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
