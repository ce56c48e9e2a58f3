// Package shell spawns the POSIX shell that runs a job's script.
package shell

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/core/ports"
)

// Executor implements ports.Executor using os/exec, mirroring spec
// §4.7's run_script: a pipe feeds the expanded script to a shell's
// stdin, and REMAKE_JOB_ID is set in its environment.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates an Executor that logs job output through logger.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{logger: logger}
}

// Start spawns `/bin/sh -e -s [-v] <targets...>`, pipes script to its
// stdin, and reports completion asynchronously on the returned channel
// (spec §5): one goroutine per job waits on the child and reports back
// instead of a shared signal flag.
func (e *Executor) Start(ctx context.Context, jobID int, targets domain.Targets, script string, echo bool) (<-chan ports.JobResult, error) {
	args := []string{"-e", "-s"}
	if echo {
		args = append(args, "-v")
	}
	args = append(args, targets.Strings()...)

	cmd := exec.CommandContext(ctx, "/bin/sh", args...) //nolint:gosec // script content is the build's own rule recipe
	cmd.Env = append(os.Environ(), "REMAKE_JOB_ID="+strconv.Itoa(jobID))
	cmd.Stdin = strings.NewReader(script)
	cmd.Stdout = &logWriter{logger: e.logger, level: "info"}
	cmd.Stderr = &logWriter{logger: e.logger, level: "error"}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	result := make(chan ports.JobResult, 1)
	go func() {
		err := cmd.Wait()
		result <- ports.JobResult{JobID: jobID, Success: err == nil}
		close(result)
	}()
	return result, nil
}

type logWriter struct {
	logger ports.Logger
	level string
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(strings.TrimSuffix(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		if w.level == "info" {
			w.logger.Info(line)
		} else {
			w.logger.Warn(line)
		}
	}
	return len(p), nil
}
