package shell_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.remake.sh/remake/internal/adapters/shell"
	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/core/ports"
	"go.remake.sh/remake/internal/core/ports/mocks"
)

func awaitResult(t *testing.T, ch <-chan ports.JobResult) ports.JobResult {
	t.Helper()
	select {
	case res, ok := <-ch:
		require.True(t, ok, "result channel closed without a value")
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job result")
		return ports.JobResult{}
	}
}

func TestExecutor_Start_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("hello").Times(1)

	e := shell.NewExecutor(mockLogger)
	ch, err := e.Start(context.Background(), 1, domain.Targets{domain.NewTarget("out")}, "echo hello", false)
	require.NoError(t, err)

	res := awaitResult(t, ch)
	require.Equal(t, 1, res.JobID)
	require.True(t, res.Success)
}

func TestExecutor_Start_NonZeroExit(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()

	e := shell.NewExecutor(mockLogger)
	ch, err := e.Start(context.Background(), 2, domain.Targets{domain.NewTarget("out")}, "exit 1", false)
	require.NoError(t, err)

	res := awaitResult(t, ch)
	require.Equal(t, 2, res.JobID)
	require.False(t, res.Success)
}

func TestExecutor_Start_StderrRoutedToWarn(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn("oops").Times(1)

	e := shell.NewExecutor(mockLogger)
	ch, err := e.Start(context.Background(), 3, domain.Targets{domain.NewTarget("out")}, "echo oops 1>&2", false)
	require.NoError(t, err)

	res := awaitResult(t, ch)
	require.True(t, res.Success)
}

func TestExecutor_Start_EchoAddsShellVFlag(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	// With -v, sh echoes the script line itself to stderr before running it.
	mockLogger.EXPECT().Warn(gomock.Any()).MinTimes(1)
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()

	e := shell.NewExecutor(mockLogger)
	ch, err := e.Start(context.Background(), 4, domain.Targets{domain.NewTarget("out")}, "echo hi", true)
	require.NoError(t, err)

	res := awaitResult(t, ch)
	require.True(t, res.Success)
}

func TestExecutor_Start_ContextCancelKillsProcess(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	e := shell.NewExecutor(mockLogger)
	ch, err := e.Start(ctx, 5, domain.Targets{domain.NewTarget("out")}, "sleep 5", false)
	require.NoError(t, err)

	cancel()
	res := awaitResult(t, ch)
	require.False(t, res.Success)
}
