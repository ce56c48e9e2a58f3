// Package progrock renders job progress as a Progrock tape: one vertex
// per job, labeled by the targets it builds.
package progrock

import (
	"context"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"

	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/core/ports"
)

// Recorder implements ports.Telemetry on top of a progrock.Recorder.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a Recorder writing to a fresh in-memory tape. Nothing renders
// that tape, so its vertices are not printed.
func New() ports.Telemetry {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{w: w, rec: progrock.NewRecorder(w)}
}

// Record starts a vertex for job, labeled by the targets it builds. The
// vertex digest is keyed by job ID rather than the label text, so two
// jobs that happen to build identically-named targets never collide on
// the tape.
func (r *Recorder) Record(ctx context.Context, job domain.Job, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
	d := digest.FromString("job-" + strconv.Itoa(job.ID))
	v := r.rec.Vertex(d, vertexLabel(job))
	vertex := &Vertex{vertex: v}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

// vertexLabel renders the "Building a.o b.o..." text shown for job.
func vertexLabel(job domain.Job) string {
	return "Building " + strings.Join(job.Targets.Strings(), " ") + "..."
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
