package progrock

import (
	"fmt"
	"io"

	"github.com/vito/progrock"
	"go.remake.sh/remake/internal/core/domain"
)

// Vertex implements ports.Vertex for one job's tape entry.
type Vertex struct {
	vertex *progrock.VertexRecorder
}

// Stdout returns the writer a job's shell stdout is piped through.
func (v *Vertex) Stdout() io.Writer {
	return v.vertex.Stdout()
}

// Stderr returns the writer a job's shell stderr is piped through.
func (v *Vertex) Stderr() io.Writer {
	return v.vertex.Stderr()
}

// Log annotates the vertex with a leveled build-server log line.
func (v *Vertex) Log(level domain.LogLevel, msg string) {
	_, _ = fmt.Fprintf(v.vertex.Stdout(), "[%s] %s\n", level.String(), msg)
}

// Complete marks the job's vertex done, successfully or with err.
func (v *Vertex) Complete(err error) {
	v.vertex.Done(err)
}

// Cached marks the vertex as skipped because the job's target was
// already up to date.
func (v *Vertex) Cached() {
	v.vertex.Cached()
}
