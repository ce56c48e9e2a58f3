// Package app implements the top-level orchestration for remake: the
// seven-step bootstrap sequence of spec §4.9, wiring together the rule
// store, status engine, dependency database and scheduler for a single
// server run.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"

	"go.remake.sh/remake/internal/adapters/db"
	"go.remake.sh/remake/internal/adapters/fs"
	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/core/ports"
	"go.remake.sh/remake/internal/engine/rules"
	"go.remake.sh/remake/internal/engine/scheduler"
	"go.remake.sh/remake/internal/engine/status"
)

// Config holds every flag- and environment-derived value Bootstrap needs
// to run one build (spec §6).
type Config struct {
	// Root is the build root; targets and the Remakefile are resolved
	// relative to it.
	Root string
	// RulefilePath is the Remakefile to load, relative to Root unless
	// absolute.
	RulefilePath string
	// DBPath is the `.remake` dependency database's path.
	DBPath string
	// SocketPath is where the server's Unix socket is created.
	SocketPath string
	// Targets are the command-line-requested build targets, already
	// normalised. Empty means "use the default target".
	Targets domain.Targets
	// StdinDeps is -r's dependency input, same grammar as `.remake`. Nil
	// means -r was not given. Its first line's deps are used as the
	// default build set when Targets is empty.
	StdinDeps io.Reader
	// Jobs is the -j parallelism cap; 0 means unbounded.
	Jobs int
	// KeepGoing is -k.
	KeepGoing bool
	// Echo is -d's first occurrence: echo expanded scripts to the child
	// shell via -v.
	Echo bool
	// Now is the build-start instant (spec §4.5, §9's clock-resolution
	// note), captured once by the caller so it can be held fixed in tests.
	Now int64
}

// Bootstrap wires the engine and adapters together and runs the full
// spec §4.9 sequence once.
type Bootstrap struct {
	Config Config

	RuleLoader ports.RuleLoader
	Listener   ports.RequestListener
	Executor   ports.Executor
	Logger     ports.Logger
	Telemetry  ports.Telemetry
}

// Run executes spec §4.9's seven steps and returns the process's exit
// error: nil on a clean build, domain.ErrBuildFailed (or a wrapped
// startup error) otherwise.
func (b *Bootstrap) Run(ctx context.Context) error {
	normaliser := fs.NewNormaliser(b.Config.Root)
	stater := fs.NewStater(b.Config.Root)

	store, err := db.NewStore(b.Config.DBPath)
	if err != nil {
		return zerr.Wrap(err, "failed to load dependency database")
	}

	var stdinDeps domain.Targets
	if b.Config.StdinDeps != nil {
		stdinDeps, err = store.LoadReader(b.Config.StdinDeps)
		if err != nil {
			return zerr.Wrap(err, "failed to read dependencies from standard input")
		}
	}

	requests, err := b.Listener.Listen(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to start server socket")
	}
	defer b.Listener.Close()

	// Every job spawned from here inherits this in its environment (spec
	// §6 "Export on server startup: socket address under a well-known
	// variable"), letting a recursive client invocation find its way back.
	if err := os.Setenv("REMAKE_SOCKET", b.Listener.Addr()); err != nil {
		return zerr.Wrap(err, "failed to export server socket address")
	}
	defer func() { _ = os.Unsetenv("REMAKE_SOCKET") }()

	statusEngine := status.New(stater, store, b.Config.Now)

	ruleFile, err := b.loadRules()
	if err != nil {
		return err
	}

	rulefileTarget := normaliser.Normalise(b.Config.RulefilePath)
	if statusEngine.Get(rulefileTarget).Status != domain.Uptodate {
		preflight := b.newScheduler(ruleFile, statusEngine, store, stater)
		preflight.Enqueue(domain.Targets{rulefileTarget})
		if err := preflight.Run(ctx, requests); err != nil {
			_ = store.Save()
			return err
		}
		ruleFile, err = b.loadRules()
		if err != nil {
			return err
		}
	}

	targets := b.Config.Targets
	if len(targets) == 0 {
		targets = stdinDeps
	}
	if len(targets) == 0 {
		if ruleFile.DefaultTarget.IsZero() {
			return domain.ErrNoDefaultTarget
		}
		targets = domain.Targets{ruleFile.DefaultTarget}
	}

	sched := b.newScheduler(ruleFile, statusEngine, store, stater)
	sched.Enqueue(targets)
	runErr := sched.Run(ctx, requests)

	if err := store.Save(); err != nil {
		b.Logger.Error(zerr.Wrap(err, "failed to save dependency database"))
	}
	return runErr
}

// loadRules parses the Remakefile at Config.RulefilePath into a fresh
// RuleFile, implementing the "clear rules and variables and re-load" half
// of spec §4.9 step 4; newScheduler then registers it in a fresh
// rules.Store, since rules.Store.AddRule has no way to un-register a prior
// rule set.
func (b *Bootstrap) loadRules() (*domain.RuleFile, error) {
	path := b.Config.RulefilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.Config.Root, path)
	}
	ruleFile, err := b.RuleLoader.Load(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load rules")
	}
	return ruleFile, nil
}

// newScheduler builds a scheduler.Scheduler bound to ruleFile's rules and
// variables. Bootstrap constructs a new one for each of the two Run
// phases (rule-file preflight, then the real build) since a rules.Store
// cannot be repopulated in place.
func (b *Bootstrap) newScheduler(
	ruleFile *domain.RuleFile,
	statusEngine *status.Engine,
	store *db.Store,
	stater *fs.Stater,
) *scheduler.Scheduler {
	ruleStore := rules.NewStore()
	for _, r := range ruleFile.Rules {
		if err := ruleStore.AddRule(r); err != nil {
			b.Logger.Warn(zerr.Wrap(err, "skipping rule").Error())
		}
	}
	return scheduler.New(
		ruleStore,
		statusEngine,
		store,
		stater,
		b.Executor,
		b.Logger,
		b.Telemetry,
		ruleFile.Variables,
		b.Config.KeepGoing,
		b.Config.Echo,
		b.Config.Jobs,
	)
}
