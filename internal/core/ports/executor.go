// Package ports defines the core interfaces the engine depends on.
package ports

import (
	"context"

	"go.remake.sh/remake/internal/core/domain"
)

// JobResult is delivered exactly once on a job's result channel when its
// shell process terminates.
type JobResult struct {
	JobID int
	Success bool
}

// Executor spawns the shell process that runs a job's expanded script
// (spec §4.7 run_script): /bin/sh -e -s, fed the script on stdin, with
// REMAKE_JOB_ID set in its environment.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Start spawns the job and returns immediately. The returned channel
	// receives exactly one JobResult when the process exits. If the process
	// cannot be started, Start returns an error and a nil channel.
	Start(ctx context.Context, jobID int, targets domain.Targets, script string, echo bool) (<-chan JobResult, error)
}
