package ipc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.remake.sh/remake/internal/adapters/ipc"
	"go.remake.sh/remake/internal/core/domain"
)

type identityNormaliser struct{}

func (identityNormaliser) Normalise(raw string) domain.Target {
	return domain.NewTarget(raw)
}

type discardLogger struct{}

func (discardLogger) Debug(string) {}
func (discardLogger) Info(string)  {}
func (discardLogger) Warn(string)  {}
func (discardLogger) Error(error)  {}

func TestListener_RoundTripSuccess(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "remake.sock")
	l, err := ipc.Listen(sockPath, identityNormaliser{}, discardLogger{})
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests, err := l.Listen(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	var success bool
	var reqErr error
	go func() {
		defer close(done)
		success, reqErr = ipc.RequestBuild(sockPath, 3, []string{"a", "b"})
	}()

	select {
	case req := <-requests:
		require.Equal(t, 3, req.JobID)
		require.Equal(t, []string{"a", "b"}, req.Targets.Strings())
		require.NoError(t, req.Reply.Reply(true))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client reply")
	}
	require.NoError(t, reqErr)
	require.True(t, success)
}

func TestListener_RoundTripFailure(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "remake.sock")
	l, err := ipc.Listen(sockPath, identityNormaliser{}, discardLogger{})
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests, err := l.Listen(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	var success bool
	go func() {
		defer close(done)
		success, _ = ipc.RequestBuild(sockPath, -1, []string{"out"})
	}()

	req := <-requests
	require.Equal(t, -1, req.JobID)
	require.NoError(t, req.Reply.Reply(false))

	<-done
	require.False(t, success)
}

func TestJobIDFromEnv(t *testing.T) {
	require.Equal(t, -1, ipc.JobIDFromEnv(""))
	require.Equal(t, -1, ipc.JobIDFromEnv("not-a-number"))
	require.Equal(t, 7, ipc.JobIDFromEnv("7"))
}
