// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.remake.sh/remake/internal/adapters/logger"
	_ "go.remake.sh/remake/internal/adapters/shell"
	_ "go.remake.sh/remake/internal/adapters/telemetry/progrock"
	// Register app nodes.
	_ "go.remake.sh/remake/internal/app"
)
