// Package scheduler implements the cooperative single-threaded event loop
// of spec §4.7: a client list, a rule matcher, and a status engine driven
// by two alternating phases, handle_clients and wait_events.
package scheduler

import (
	"container/list"
	"context"

	"go.trai.ch/zerr"

	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/core/ports"
	"go.remake.sh/remake/internal/engine/rules"
	"go.remake.sh/remake/internal/engine/script"
	"go.remake.sh/remake/internal/engine/status"
)

// RuleMatcher is the subset of rules.Store the scheduler depends on.
type RuleMatcher interface {
	FindRule(t domain.Target) (domain.Rule, error)
}

// StatusEngine is the subset of status.Engine the scheduler depends on.
type StatusEngine interface {
	Get(t domain.Target) domain.StatusRecord
	UpdateStatus(t domain.Target)
	Fail(targets domain.Targets)
	StillNeedRebuild(t domain.Target) bool
	MarkRunning(t domain.Target)
}

var (
	_ RuleMatcher  = (*rules.Store)(nil)
	_ StatusEngine = (*status.Engine)(nil)
)

// Scheduler owns the client list, the job table and the running/waiting
// counters. It is not safe for concurrent use — a single goroutine (spec
// §5) runs Run and nothing else touches its state.
type Scheduler struct {
	rules     RuleMatcher
	status    StatusEngine
	store     ports.Store
	stat      ports.Stat
	exec      ports.Executor
	logger    ports.Logger
	telemetry ports.Telemetry

	globals   domain.VariableTable
	keepGoing bool
	echo      bool
	maxJobs   int // <= 0 means unbounded

	clients     *list.List // of *domain.Client
	jobs        map[int]domain.Job
	jobVertices map[int]ports.Vertex
	jobCounter  int
	runningJobs int
	waitingJobs int
	buildFailed bool

	jobResults chan ports.JobResult
}

// New creates a Scheduler. A maxJobs of 0 or less means unlimited parallelism.
func New(
	ruleMatcher RuleMatcher,
	statusEngine StatusEngine,
	store ports.Store,
	stat ports.Stat,
	exec ports.Executor,
	logger ports.Logger,
	telemetry ports.Telemetry,
	globals domain.VariableTable,
	keepGoing bool,
	echo bool,
	maxJobs int,
) *Scheduler {
	return &Scheduler{
		rules:       ruleMatcher,
		status:      statusEngine,
		store:       store,
		stat:        stat,
		exec:        exec,
		logger:      logger,
		telemetry:   telemetry,
		globals:     globals,
		keepGoing:   keepGoing,
		echo:        echo,
		maxJobs:     maxJobs,
		clients:     list.New(),
		jobs:        make(map[int]domain.Job),
		jobVertices: make(map[int]ports.Vertex),
		jobResults:  make(chan ports.JobResult, 16),
	}
}

// Enqueue adds a pseudo-client (job_id -1, no reply channel) requesting
// targets, at the back of the client list. Used for the top-level
// invocation and the "rebuild the rule file" preflight (spec §4.9).
func (s *Scheduler) Enqueue(targets domain.Targets) {
	s.clients.PushBack(domain.NewClient(-1, targets))
}

// AcceptRequest admits a real client's request at the front of the list
// (spec §4.8 step 4-5): every requested target becomes a dynamic
// dependency of the posting job's group, and waitingJobs is incremented.
func (s *Scheduler) AcceptRequest(req domain.Request) {
	if req.JobID >= 0 {
		owner, ok := s.jobs[req.JobID]
		if !ok {
			s.logger.Warn(zerr.With(domain.ErrUnknownJob, "job_id", req.JobID).Error())
			if req.Reply != nil {
				_ = req.Reply.Reply(false)
			}
			return
		}
		for _, t := range req.Targets {
			s.store.AddDynamicDep(owner.Targets[0], t)
		}
	}
	c := domain.NewClient(req.JobID, req.Targets)
	c.Reply = req.Reply
	s.clients.PushFront(c)
	s.waitingJobs++
}

// Run drives the event loop to completion: it alternates handleClients
// with waiting for a job result or an incoming request, until the client
// list is empty and no jobs remain outstanding.
func (s *Scheduler) Run(ctx context.Context, requests <-chan domain.Request) error {
	for s.clients.Len() > 0 || s.runningJobs > 0 {
		s.handleClients()
		if s.clients.Len() == 0 && s.runningJobs == 0 {
			break
		}
		select {
		case res := <-s.jobResults:
			s.completeJob(res.JobID, res.Success)
		case req, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			s.AcceptRequest(req)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.buildFailed {
		return domain.ErrBuildFailed
	}
	return nil
}

// handleClients runs scheduling passes until a pass makes no further
// progress, then checks the progress guarantee. A freshly created
// dependency-client sits unprocessed until the next pass, so running
// and waiting can legitimately both read zero right after one is
// spawned; only a pass that changes nothing at all means the client
// list is genuinely stuck.
func (s *Scheduler) handleClients() {
	for {
		if s.pass() {
			continue
		}
		if s.clients.Len() > 0 && s.runningJobs == s.waitingJobs {
			s.failHeadClient()
			continue
		}
		break
	}
}

// pass iterates the client list front to back, starting jobs while free
// slots exist, exactly spec §4.7's handle_clients algorithm. It reports
// whether it changed any client's state, so handleClients can tell a
// quiescent pass from a merely-just-getting-started one.
func (s *Scheduler) pass() bool {
	progressed := false
	for e := s.clients.Front(); e != nil; {
		next := e.Next()
		c := e.Value.(*domain.Client)

		for t := range c.Running {
			switch s.status.Get(t).Status {
			case domain.Running:
				// keep
			case domain.Failed:
				if !s.keepGoing {
					s.completeRequest(c, false)
					s.clients.Remove(e)
					progressed = true
					goto advance
				}
				c.Failed = true
				delete(c.Running, t)
				progressed = true
			case domain.Uptodate, domain.Remade:
				delete(c.Running, t)
				progressed = true
			}
		}

		for len(c.Pending) > 0 {
			if !s.hasFreeSlot() {
				return progressed
			}
			t := c.Pending[0]
			c.Pending = c.Pending[1:]
			progressed = true

			switch s.status.Get(t).Status {
			case domain.Running:
				c.Running[t] = struct{}{}
			case domain.Failed:
				if !s.keepGoing {
					s.completeRequest(c, false)
					s.clients.Remove(e)
					goto advance
				}
				c.Failed = true
			case domain.Uptodate, domain.Remade:
				// discard
			case domain.Todo, domain.Recheck:
				if err := s.start(t, e); err != nil {
					s.status.Fail(domain.Targets{t})
					c.Failed = true
				} else {
					c.Running[t] = struct{}{}
				}
			}
		}

		if len(c.Running) == 0 && len(c.Pending) == 0 {
			s.completeRequest(c, !c.Failed)
			s.clients.Remove(e)
			progressed = true
		}

	advance:
		e = next
	}
	return progressed
}

// hasFreeSlot reports whether another job can be started under the -j cap.
func (s *Scheduler) hasFreeSlot() bool {
	if s.maxJobs <= 0 {
		return true
	}
	return s.runningJobs-s.waitingJobs < s.maxJobs
}

// failHeadClient implements the progress guarantee: when every
// outstanding job is mutually stuck waiting, the head client is forced to
// fail so the scheduler always terminates on a cyclic dependency graph.
func (s *Scheduler) failHeadClient() {
	e := s.clients.Front()
	if e == nil {
		return
	}
	c := e.Value.(*domain.Client)
	s.logger.Error(zerr.With(domain.ErrCycleDetected, "targets", c.Pending.Strings()))
	s.completeRequest(c, false)
	s.clients.Remove(e)
}

// start implements spec §4.7's start(t, client_iter): find t's rule,
// mark siblings Running, and either spawn the script directly or defer
// it behind a dependency-client for the rule's prerequisites.
func (s *Scheduler) start(t domain.Target, clientIter *list.Element) error {
	rule, err := s.rules.FindRule(t)
	if err != nil {
		return err
	}
	if rule.IsEmpty() {
		if _, exists := s.stat.Stat(t); exists {
			return nil
		}
		return zerr.With(domain.ErrNoRule, "target", t.String())
	}

	jobID := s.jobCounter
	s.jobCounter++
	s.jobs[jobID] = domain.Job{ID: jobID, Targets: rule.Targets}

	for _, sib := range rule.Targets {
		s.status.MarkRunning(sib)
	}

	prereqs := append(append(domain.Targets{}, rule.Prerequisites...), rule.OrderOnly...)
	if len(prereqs) > 0 {
		dep := domain.NewClient(jobID, prereqs)
		dep.Delayed = &rule
		s.clients.InsertBefore(dep, clientIter)
		return nil
	}
	s.runScript(jobID, rule)
	return nil
}

// runScript implements spec §4.7's run_script: register the rule's
// prerequisites as the dynamic dep set of a fresh shared group, expand
// the recipe, and spawn the shell.
func (s *Scheduler) runScript(jobID int, rule domain.Rule) {
	s.store.RegisterGroup(rule.Targets, rule.Prerequisites)

	expanded := script.Expand(script.Context{Rule: rule, Pattern: rule.Stem, Globals: s.globals})
	ch, err := s.exec.Start(context.Background(), jobID, rule.Targets, expanded, s.echo)
	if err != nil {
		s.logger.Error(zerr.Wrap(err, "failed to start job"))
		s.completeJob(jobID, false)
		return
	}
	_, vertex := s.telemetry.Record(context.Background(), s.jobs[jobID])
	s.jobVertices[jobID] = vertex
	s.runningJobs++
	go func() {
		res, ok := <-ch
		if !ok {
			res = ports.JobResult{JobID: jobID, Success: false}
		}
		s.jobResults <- res
	}()
}

// completeRequest implements spec §4.7's complete_request(client, success).
func (s *Scheduler) completeRequest(c *domain.Client, success bool) {
	if c.Delayed != nil {
		if success {
			if s.status.StillNeedRebuild(c.Delayed.Targets[0]) {
				s.runScript(c.JobID, *c.Delayed)
			} else {
				s.completeJob(c.JobID, true)
			}
		} else {
			s.completeJob(c.JobID, false)
		}
	} else if c.Reply != nil {
		_ = c.Reply.Reply(success)
		s.waitingJobs--
	}
	if c.IsPseudo() && !success {
		s.buildFailed = true
	}
}

// completeJob implements spec §4.7's complete_job(job_id, success): drop
// the job's target record, and settle every target's status.
func (s *Scheduler) completeJob(jobID int, success bool) {
	targets := s.jobs[jobID].Targets
	delete(s.jobs, jobID)

	// A job only ever ran a script (and so only ever incremented
	// runningJobs) if runScript recorded a vertex for it; a rule whose
	// still_need_rebuild turned out false never spawned a process.
	if vertex, ran := s.jobVertices[jobID]; ran {
		delete(s.jobVertices, jobID)
		s.runningJobs--
		vertex.Complete(errorFor(success))
	}

	if success {
		for _, t := range targets {
			s.status.UpdateStatus(t)
		}
	} else {
		s.status.Fail(targets)
		for _, t := range targets {
			if err := s.stat.Unlink(t); err != nil {
				s.logger.Warn(zerr.Wrap(err, "failed to remove target after failed build").Error())
			}
		}
	}
}

func errorFor(success bool) error {
	if success {
		return nil
	}
	return domain.ErrTargetFailed
}
