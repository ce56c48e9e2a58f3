package status_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.remake.sh/remake/internal/adapters/db"
	"go.remake.sh/remake/internal/adapters/fs"
	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/engine/status"
)

func newEngine(t *testing.T) (root string, stater *fs.Stater, store *db.Store, e *status.Engine) {
	t.Helper()
	root = t.TempDir()
	store, err := db.NewStore(filepath.Join(root, ".remake"))
	require.NoError(t, err)
	stater = fs.NewStater(root)
	e = status.New(stater, store, time.Now().Unix())
	return
}

func touch(t *testing.T, root, name string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestEngine_Get_MissingFileWithNoGroupIsTodo(t *testing.T) {
	_, _, _, e := newEngine(t)
	rec := e.Get(domain.NewTarget("out"))
	require.Equal(t, domain.Todo, rec.Status)
}

func TestEngine_Get_ExistingFileWithNoGroupIsUptodate(t *testing.T) {
	root, _, _, e := newEngine(t)
	touch(t, root, "out", time.Now())
	rec := e.Get(domain.NewTarget("out"))
	require.Equal(t, domain.Uptodate, rec.Status)
}

func TestEngine_Get_MissingSiblingInGroupIsTodo(t *testing.T) {
	root, _, store, e := newEngine(t)
	touch(t, root, "a", time.Now())
	store.RegisterGroup(domain.Targets{domain.NewTarget("a"), domain.NewTarget("b")}, nil)

	rec := e.Get(domain.NewTarget("a"))
	require.Equal(t, domain.Todo, rec.Status)
}

func TestEngine_Get_DepNewerThanTargetIsTodo(t *testing.T) {
	root, _, store, e := newEngine(t)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	touch(t, root, "out", older)
	touch(t, root, "in", newer)
	store.RegisterGroup(domain.Targets{domain.NewTarget("out")}, domain.Targets{domain.NewTarget("in")})

	rec := e.Get(domain.NewTarget("out"))
	require.Equal(t, domain.Todo, rec.Status)
}

func TestEngine_Get_DepOlderThanTargetIsUptodate(t *testing.T) {
	root, _, store, e := newEngine(t)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	touch(t, root, "in", older)
	touch(t, root, "out", newer)
	store.RegisterGroup(domain.Targets{domain.NewTarget("out")}, domain.Targets{domain.NewTarget("in")})

	rec := e.Get(domain.NewTarget("out"))
	require.Equal(t, domain.Uptodate, rec.Status)
}

func TestEngine_Get_DepThatIsStillRecheckedPropagates(t *testing.T) {
	root, _, store, e := newEngine(t)
	t0 := time.Now().Add(-time.Hour)
	touch(t, root, "mid", t0)
	touch(t, root, "out", t0.Add(time.Minute))
	// "mid" itself has a group with a missing dependency, which leaves it Recheck.
	store.RegisterGroup(domain.Targets{domain.NewTarget("mid")}, domain.Targets{domain.NewTarget("missing")})
	store.RegisterGroup(domain.Targets{domain.NewTarget("out")}, domain.Targets{domain.NewTarget("mid")})

	rec := e.Get(domain.NewTarget("out"))
	require.Equal(t, domain.Recheck, rec.Status)
}

func TestEngine_UpdateStatus_FreshlyWrittenFileSettlesAtRemade(t *testing.T) {
	root, _, _, e := newEngine(t)
	touch(t, root, "out", time.Now())

	e.UpdateStatus(domain.NewTarget("out"))
	rec := e.Get(domain.NewTarget("out"))
	require.Equal(t, domain.Remade, rec.Status)
}

func TestEngine_UpdateStatus_UnchangedMTimeSettlesAtUptodate(t *testing.T) {
	root, stater, _, e := newEngine(t)
	past := time.Now().Add(-time.Hour)
	touch(t, root, "out", past)
	// Establish LastMTime from disk before the script "runs".
	e.Get(domain.NewTarget("out"))
	mtime, _ := stater.Stat(domain.NewTarget("out"))

	e.UpdateStatus(domain.NewTarget("out"))
	rec := e.Get(domain.NewTarget("out"))
	require.Equal(t, domain.Uptodate, rec.Status)
	require.Equal(t, mtime, rec.LastMTime)
}

func TestEngine_MarkRunning_ForcesRunningRegardlessOfDiskState(t *testing.T) {
	_, _, _, e := newEngine(t)
	e.MarkRunning(domain.NewTarget("out"))
	rec := e.Get(domain.NewTarget("out"))
	require.Equal(t, domain.Running, rec.Status)
}

func TestEngine_Fail_MarksEveryTargetFailed(t *testing.T) {
	_, _, _, e := newEngine(t)
	e.Fail(domain.Targets{domain.NewTarget("a"), domain.NewTarget("b")})
	require.Equal(t, domain.Failed, e.Get(domain.NewTarget("a")).Status)
	require.Equal(t, domain.Failed, e.Get(domain.NewTarget("b")).Status)
}

func TestEngine_StillNeedRebuild_NonRecheckStatusAlwaysNeedsRebuild(t *testing.T) {
	_, _, _, e := newEngine(t)
	// Never computed: zero record defaults to Uptodate, not Recheck.
	require.True(t, e.StillNeedRebuild(domain.NewTarget("out")))
}

func TestEngine_StillNeedRebuild_AllDepsUptodateCollapsesGroup(t *testing.T) {
	root, _, store, e := newEngine(t)
	older := time.Now().Add(-time.Hour)
	dep := domain.NewTarget("dep")
	out := domain.NewTarget("out")
	touch(t, root, "dep", older)
	touch(t, root, "out", older.Add(time.Minute))
	store.RegisterGroup(domain.Targets{dep}, nil)
	store.RegisterGroup(domain.Targets{out}, domain.Targets{dep})

	// dep is still in flight when out is first evaluated, so out reads
	// Recheck rather than a settled Uptodate/Todo.
	e.MarkRunning(dep)
	rec := e.Get(out)
	require.Equal(t, domain.Recheck, rec.Status)

	// dep's job finishes without touching the file: it settles at Uptodate.
	e.UpdateStatus(dep)
	require.Equal(t, domain.Uptodate, e.Get(dep).Status)

	require.False(t, e.StillNeedRebuild(out))
	require.Equal(t, domain.Uptodate, e.Get(out).Status)
}
