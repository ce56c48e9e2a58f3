// Package main is the entry point for the remake CLI: a long-lived
// server process driving one build, or a short-lived client posting a
// dependency request when REMAKE_SOCKET names a live server (spec §6).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"

	"go.remake.sh/remake/cmd/remake/commands"
	"go.remake.sh/remake/internal/adapters/ipc"
	"go.remake.sh/remake/internal/app"
	"go.remake.sh/remake/internal/core/domain"
	_ "go.remake.sh/remake/internal/wiring"
)

// ComponentProvider resolves the graft-wired singleton adapters.
type ComponentProvider func(context.Context) (*app.Components, error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, func(ctx context.Context) (*app.Components, error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, err
	}))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, provider ComponentProvider) int {
	if socketPath := os.Getenv("REMAKE_SOCKET"); socketPath != "" {
		return runClient(socketPath, args, stderr)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, err := provider(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}

	cli := commands.New(components)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		if !errors.Is(err, domain.ErrBuildFailed) {
			components.Logger.Error(err)
		}
		return 1
	}
	return 0
}

// runClient implements the child-process half of spec §6: post the
// requested targets to the server named by REMAKE_SOCKET and exit
// according to its one-byte reply.
func runClient(socketPath string, targets []string, stderr io.Writer) int {
	jobID := ipc.JobIDFromEnv(os.Getenv("REMAKE_JOB_ID"))
	success, err := ipc.RequestBuild(socketPath, jobID, targets)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%+v\n", err)
		return 1
	}
	if !success {
		return 1
	}
	return 0
}
