package ports

import (
	"context"
	"io"

	"go.remake.sh/remake/internal/core/domain"
)

// Telemetry records the progress vertices the scheduler emits as jobs
// start and finish (SPEC_FULL §4.7 AMBIENT). Each vertex tracks one job,
// identified by its job ID and the targets it builds, so an
// implementation can label and dedupe vertices by job identity rather
// than by a caller-formatted string.
//
//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks
type Telemetry interface {
	// Record starts a new vertex for job.
	Record(ctx context.Context, job domain.Job, opts ...VertexOption) (context.Context, Vertex)
	// Close flushes and closes the recording session.
	Close() error
}

// Vertex is one unit of progress: a single job's shell run.
type Vertex interface {
	Stdout() io.Writer
	Stderr() io.Writer
	// Log records a structured message associated with this vertex.
	Log(level domain.LogLevel, msg string)
	// Complete marks the vertex finished, successfully or with err.
	Complete(err error)
	// Cached marks the vertex as skipped because its target was Uptodate.
	Cached()
}

// VertexConfig holds configuration for a started vertex.
type VertexConfig struct{}

// VertexOption is a functional option for configuring a vertex.
type VertexOption func(*VertexConfig)

type vertexContextKey struct{}

// ContextWithVertex returns a context carrying v, retrievable with
// VertexFromContext.
func ContextWithVertex(ctx context.Context, v Vertex) context.Context {
	return context.WithValue(ctx, vertexContextKey{}, v)
}

// VertexFromContext returns the Vertex stored in ctx, if any.
func VertexFromContext(ctx context.Context) (Vertex, bool) {
	v, ok := ctx.Value(vertexContextKey{}).(Vertex)
	return v, ok
}
