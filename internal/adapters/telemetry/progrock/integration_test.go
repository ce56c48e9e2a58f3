package progrock_test

import (
	"context"
	"testing"

	"go.remake.sh/remake/internal/adapters/telemetry/progrock"
	"go.remake.sh/remake/internal/core/domain"
)

func TestRecorder_Integration(t *testing.T) {
	// 1. Initialize the Recorder
	recorder := progrock.New()

	// 2. Start a job's vertex
	ctx := context.Background()
	job := domain.Job{ID: 1, Targets: domain.Targets{domain.NewTarget("out.o")}}
	_, vertex := recorder.Record(ctx, job)

	// 3. Write to Stdout
	if _, err := vertex.Stdout().Write([]byte("Standard Output\n")); err != nil {
		t.Errorf("failed to write to stdout: %v", err)
	}

	// 4. Log a debug message
	vertex.Log(domain.LogLevelDebug, "debug msg")

	// 5. Complete the vertex
	vertex.Complete(nil)

	// 6. Close the recorder
	if err := recorder.Close(); err != nil {
		t.Errorf("failed to close recorder: %v", err)
	}
}
