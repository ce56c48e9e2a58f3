package app

import "go.remake.sh/remake/internal/core/ports"

// Components bundles the graft-resolved singleton adapters cmd/remake
// needs to build a Bootstrap: the ones whose construction has no
// dependency on per-invocation flags or the build root (spec §6
// AMBIENT). Path- and flag-derived pieces (the rule loader, the request
// listener, Config) are still assembled by the caller.
type Components struct {
	Logger    ports.Logger
	Executor  ports.Executor
	Telemetry ports.Telemetry
}

// NewComponents creates a Components struct from its resolved dependencies.
func NewComponents(logger ports.Logger, executor ports.Executor, telemetry ports.Telemetry) *Components {
	return &Components{
		Logger:    logger,
		Executor:  executor,
		Telemetry: telemetry,
	}
}
