package app

import (
	"context"

	"github.com/grindlemire/graft"

	"go.remake.sh/remake/internal/adapters/logger"
	"go.remake.sh/remake/internal/adapters/shell"
	"go.remake.sh/remake/internal/adapters/telemetry/progrock"
	"go.remake.sh/remake/internal/core/ports"
)

// ComponentsNodeID is the graft node identifier for the resolved
// Components bundle.
const ComponentsNodeID graft.ID = "app.components"

func init() {
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, shell.NodeID, progrock.NodeID},
		Run:       runComponentsNode,
	})
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}
	telemetry, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}
	return NewComponents(log, executor, telemetry), nil
}
