package ports

import "go.remake.sh/remake/internal/core/domain"

// Store persists the dependency database `.remake`: dependency groups,
// keyed by every target belonging to them (spec §4.4).
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type Store interface {
	// Group returns the dependency group t belongs to, if any.
	Group(t domain.Target) (*domain.DependencyGroup, bool)

	// RegisterGroup creates a shared group for targets, unioning staticDeps
	// with any pre-existing dynamic deps for the same targets.
	RegisterGroup(targets domain.Targets, staticDeps domain.Targets) *domain.DependencyGroup

	// AddDynamicDep records dep as a dependency of owner's group.
	AddDynamicDep(owner domain.Target, dep domain.Target)

	// Save writes every known group to the backing file.
	Save() error
}
