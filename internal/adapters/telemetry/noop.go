// Package telemetry holds the silent ports.Telemetry implementation used
// when the server is started with -s/--silent; the progrock-backed
// implementation lives in the telemetry/progrock subpackage.
package telemetry

import (
	"context"
	"io"

	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/core/ports"
)

// NoOp is a ports.Telemetry that records nothing.
type NoOp struct{}

// New creates a NoOp telemetry recorder.
func New() ports.Telemetry {
	return NoOp{}
}

// Record returns a vertex that discards everything written to it.
func (NoOp) Record(ctx context.Context, _ domain.Job, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
	return ctx, noopVertex{}
}

// Close is a no-op.
func (NoOp) Close() error { return nil }

type noopVertex struct{}

func (noopVertex) Stdout() io.Writer           { return io.Discard }
func (noopVertex) Stderr() io.Writer           { return io.Discard }
func (noopVertex) Log(domain.LogLevel, string) {}
func (noopVertex) Complete(error)              {}
func (noopVertex) Cached()                     {}
