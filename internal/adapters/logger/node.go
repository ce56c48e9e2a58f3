package logger

import (
	"context"

	"github.com/grindlemire/graft"
	"go.remake.sh/remake/internal/core/ports"
)

// NodeID is the graft node identifier for the logger adapter.
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Logger, error) {
			return New(false), nil
		},
	})
}
