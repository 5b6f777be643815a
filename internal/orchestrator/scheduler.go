// Package orchestrator implements the level-synchronous Scheduler: it
// drives a task graph through its levels one barrier at a time, dispatching
// each level's tasks across a bounded worker pool, invoking the Merge
// Coordinator once a level completes, and reacting to the Health Monitor's
// restart/terminate signals (spec.md §4.6). It is the one component that
// wires together the graph validator, state manager, worker runtime,
// health monitor, merge coordinator, and hook bus.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/waveforge/orc/internal/config"
	"github.com/waveforge/orc/internal/gitutil"
	"github.com/waveforge/orc/internal/graph"
	"github.com/waveforge/orc/internal/health"
	"github.com/waveforge/orc/internal/hooks"
	"github.com/waveforge/orc/internal/logger"
	"github.com/waveforge/orc/internal/merge"
	"github.com/waveforge/orc/internal/models"
	"github.com/waveforge/orc/internal/state"
	"github.com/waveforge/orc/internal/worker"
)

// Mode selects the isolation model a run's worker slots use.
type Mode string

const (
	// ModeIsolatedWorktree gives each worker its own git worktree and
	// branch, merged back through the staging protocol of spec.md §4.5.
	// This is the canonical mode.
	ModeIsolatedWorktree Mode = "isolated_worktree"

	// ModeSharedBranch runs every worker against the same checkout with no
	// per-worker worktree, a diagnostic mode for single-worker debugging
	// runs where the isolation overhead isn't worth paying.
	ModeSharedBranch Mode = "shared_branch"
)

// AgentFactory builds the AgentInvoker a worker slot uses, letting the
// caller supply a real CLI-backed invoker or a test double per worker.
type AgentFactory func(workerID int, workDir string) worker.AgentInvoker

// Options configures a new Scheduler.
type Options struct {
	Feature string
	Graph   *models.TaskGraph

	// RepoDir is the base git checkout the orchestrator itself operates
	// from: the branch every level promotes onto.
	RepoDir string

	// HomeDir holds the orchestrator's own runtime artifacts: the state
	// snapshot, worker worktrees, and heartbeat files. Defaults to
	// <RepoDir>/.orc.
	HomeDir string

	Config *config.Config
	Log    logger.Logger
	Mode   Mode

	// NewAgent builds the AgentInvoker for a worker slot. Defaults to a
	// ProcessAgentInvoker running AgentCommand.
	NewAgent AgentFactory

	// GateRunner overrides how merge quality gates execute. Defaults to
	// merge.ShellGateRunner.
	GateRunner merge.GateRunner

	// AgentCommand is the CLI invoked by the default NewAgent when the
	// caller doesn't supply one, e.g. []string{"claude", "-p"}.
	AgentCommand []string
}

type workerSlot struct {
	id        int
	worktree  string
	branch    string
	heartbeat *worker.HeartbeatPublisher

	runMu       sync.Mutex
	currentTask string
	cancelTask  context.CancelFunc
}

// startTask records taskID as the slot's in-flight work and returns a
// context the Health Monitor consumer can cancel to force a restart.
func (w *workerSlot) startTask(ctx context.Context, taskID string) context.Context {
	taskCtx, cancel := context.WithCancel(ctx)
	w.runMu.Lock()
	w.currentTask = taskID
	w.cancelTask = cancel
	w.runMu.Unlock()
	return taskCtx
}

// finishTask releases the slot's task context and clears the in-flight
// task, so a health signal arriving afterward finds nothing to cancel.
func (w *workerSlot) finishTask() {
	w.runMu.Lock()
	cancel := w.cancelTask
	w.currentTask = ""
	w.cancelTask = nil
	w.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// current returns the slot's in-flight task ID and its cancel func, or
// ("", nil) if the slot is idle between tasks.
func (w *workerSlot) current() (string, context.CancelFunc) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.currentTask, w.cancelTask
}

// Scheduler drives one feature's task graph to completion.
type Scheduler struct {
	feature string
	graph   *models.TaskGraph
	repo    *gitutil.Repo
	homeDir string
	cfg     *config.Config
	log     logger.Logger
	mode    Mode

	newAgent   AgentFactory
	gateRunner merge.GateRunner

	state   *state.Manager
	health  *health.Supervisor
	hooks   *hooks.Bus
	sessions sync.Map // task ID -> last known agent session ID

	mu         sync.Mutex
	slots      map[int]*workerSlot
	baseBranch string
	cancelRun  context.CancelFunc

	stopRequested atomic.Bool
}

// New validates graph and opens the State Manager, returning a Scheduler
// ready to Run or Resume.
func New(opts Options) (*Scheduler, error) {
	if opts.Feature == "" {
		return nil, fmt.Errorf("orchestrator: Feature is required")
	}
	if opts.Graph == nil {
		return nil, fmt.Errorf("orchestrator: Graph is required")
	}
	if err := graph.Validate(opts.Graph); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	homeDir := opts.HomeDir
	if homeDir == "" {
		homeDir = filepath.Join(opts.RepoDir, ".orc")
	}
	if err := os.MkdirAll(homeDir, 0755); err != nil {
		return nil, fmt.Errorf("orchestrator: create home dir: %w", err)
	}

	st, err := state.Open(opts.Graph, filepath.Join(homeDir, "state.yaml"))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open state: %w", err)
	}

	log := opts.Log
	if log == nil {
		log = logger.MultiLogger(nil)
	}

	if cfg.HistoryEnabled {
		history, herr := state.OpenHistory(filepath.Join(homeDir, "history.db"))
		if herr != nil {
			return nil, fmt.Errorf("orchestrator: open history ledger: %w", herr)
		}
		st.EnableHistory(history, func(err error) {
			log.Warnf("orchestrator: history ledger write failed: %v", err)
		})
	}

	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zlog = zlog.Level(lvl)
	}

	supervisor := health.NewSupervisor(zlog)
	supervisor.StallThreshold = cfg.Health.StallThreshold
	supervisor.PollInterval = cfg.Health.PollInterval
	supervisor.MaxRestarts = cfg.Health.MaxAutoRestarts

	bus := hooks.NewBus(log)
	bus.RegisterShellHooks(cfg.Hooks)

	mode := opts.Mode
	if mode == "" {
		mode = ModeIsolatedWorktree
	}

	newAgent := opts.NewAgent
	if newAgent == nil {
		command := opts.AgentCommand
		newAgent = func(workerID int, workDir string) worker.AgentInvoker {
			return &worker.ProcessAgentInvoker{Command: command, WorkDir: workDir, Timeout: cfg.Worker.InvokeTimeout}
		}
	}

	return &Scheduler{
		feature:    opts.Feature,
		graph:      opts.Graph,
		repo:       gitutil.NewRepo(opts.RepoDir),
		homeDir:    homeDir,
		cfg:        cfg,
		log:        log,
		mode:       mode,
		newAgent:   newAgent,
		gateRunner: opts.GateRunner,
		state:      st,
		health:     supervisor,
		hooks:      bus,
		slots:      make(map[int]*workerSlot),
	}, nil
}

// Run executes the feature's task graph level by level from the State
// Manager's current level to completion, or until a level fails or Stop is
// called (spec.md §4.6 "startup" and "level loop").
func (s *Scheduler) Run(ctx context.Context) error {
	s.stopRequested.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()
	defer cancel()

	branch, err := s.repo.CurrentBranch(runCtx)
	if err != nil {
		return fmt.Errorf("orchestrator: read current branch: %w", err)
	}
	s.baseBranch = branch

	s.hooks.Emit(runCtx, hooks.Payload{Event: hooks.ExecutionStarted, Feature: s.feature, Timestamp: time.Now()})

	go s.watchHealth(runCtx)

	start := s.state.Snapshot().CurrentLevel
	if start < 1 {
		start = 1
	}

	for level := start; level <= s.graph.MaxLevel(); level++ {
		if s.stopRequested.Load() {
			s.log.Infof("orchestrator: stop requested, pausing before level %d", level)
			return nil
		}

		if _, err := s.runLevel(runCtx, level); err != nil {
			return err
		}
	}

	s.hooks.Emit(runCtx, hooks.Payload{Event: hooks.ExecutionFinished, Feature: s.feature, Timestamp: time.Now()})
	return nil
}

// Resume continues a feature whose State Manager snapshot already exists,
// picking up at CurrentLevel. State.Open has already reconciled any gap
// between the persisted snapshot and the graph, so Resume is Run against
// that reconciled state (spec.md §6 "resume").
func (s *Scheduler) Resume(ctx context.Context) error {
	return s.Run(ctx)
}

func (s *Scheduler) maxRetries() int {
	if s.cfg.Worker.MaxRetries > 0 {
		return s.cfg.Worker.MaxRetries
	}
	return worker.DefaultConfig().MaxRetries
}

func (s *Scheduler) gateRunnerOrDefault() merge.GateRunner {
	if s.gateRunner != nil {
		return s.gateRunner
	}
	return merge.ShellGateRunner{}
}

func (s *Scheduler) workerCount(levelWidth int) int {
	n := s.cfg.Worker.Count
	if n <= 0 {
		n = config.DefaultConfig().Worker.Count
	}
	if levelWidth > 0 && levelWidth < n {
		n = levelWidth
	}
	if s.cfg.Worker.MaxCount > 0 && n > s.cfg.Worker.MaxCount {
		n = s.cfg.Worker.MaxCount
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ensureSlot returns the worker slot for id, preparing its worktree,
// branch, and heartbeat publisher on first use. In ModeSharedBranch every
// slot shares the base checkout instead of an isolated worktree.
func (s *Scheduler) ensureSlot(ctx context.Context, id int) (*workerSlot, error) {
	s.mu.Lock()
	if slot, ok := s.slots[id]; ok {
		s.mu.Unlock()
		return slot, nil
	}
	s.mu.Unlock()

	branch := gitutil.WorkerBranch(s.feature, id)
	slot := &workerSlot{id: id, branch: branch}

	if s.mode == ModeSharedBranch {
		slot.worktree = s.repo.WorkDir
	} else {
		slot.worktree = filepath.Join(s.homeDir, "worktrees", fmt.Sprintf("worker-%d", id))
		if _, err := os.Stat(slot.worktree); os.IsNotExist(err) {
			if err := s.repo.AddWorktree(ctx, slot.worktree, branch, s.baseBranch); err != nil {
				return nil, fmt.Errorf("orchestrator: prepare worker %d worktree: %w", id, err)
			}
		}
	}

	slot.heartbeat = worker.NewHeartbeatPublisher(id, filepath.Join(s.homeDir, "heartbeats"))
	s.health.Watch(ctx, id, slot.heartbeat.Channel())

	s.mu.Lock()
	s.slots[id] = slot
	s.mu.Unlock()

	s.hooks.Emit(ctx, hooks.Payload{Event: hooks.WorkerSpawned, WorkerID: id, Branch: branch, Timestamp: time.Now()})
	s.log.WorkerSpawned(id, branch)
	return slot, nil
}

func (s *Scheduler) runnerFor(slot *workerSlot) *worker.Runner {
	return &worker.Runner{
		WorkerID:  slot.id,
		Feature:   s.feature,
		Repo:      &gitutil.Repo{WorkDir: slot.worktree, Runner: s.repo.Runner},
		Agent:     s.newAgent(slot.id, slot.worktree),
		Verify:    worker.ShellCommandRunner{},
		State:     s.state,
		Heartbeat: slot.heartbeat,
		Config: worker.Config{
			MaxRetries:          s.cfg.Worker.MaxRetries,
			CheckpointThreshold: s.cfg.Worker.CheckpointThreshold,
			SyntaxCommand:       s.cfg.Merge.SyntaxCommand,
			QualityCommand:      s.cfg.Merge.QualityCommand,
		},
		Warnf: s.log.Warnf,
	}
}

// executeOne runs task on slot, choosing RunTask, ResumeTask, or a
// crash-recovery re-run depending on the task's persisted status (spec.md
// §4.6 "resume", §7 "WORKER_CRASHED").
func (s *Scheduler) executeOne(ctx context.Context, slot *workerSlot, task models.Task) (models.TaskResult, worker.ExitCode) {
	runner := s.runnerFor(slot)
	rec, _ := s.state.GetTask(task.ID)

	var result models.TaskResult
	var exit worker.ExitCode

	switch rec.Status {
	case models.TaskPaused:
		sessionID := s.lastSession(task.ID)
		if err := s.state.UpdateTaskStatus(task.ID, models.TaskInProgress, ""); err != nil {
			return models.TaskResult{TaskID: task.ID, Status: models.TaskFailed, Error: err}, worker.ExitError
		}
		s.log.Infof("orchestrator: resuming checkpointed task %s on worker %d", task.ID, slot.id)
		result, exit = runner.ResumeTask(ctx, task, sessionID)
	case models.TaskInProgress:
		_ = s.state.UpdateTaskStatus(task.ID, models.TaskFailed, "worker_crashed: orchestrator restarted mid-task")
		if err := s.state.UpdateTaskStatus(task.ID, models.TaskPending, ""); err != nil {
			return models.TaskResult{TaskID: task.ID, Status: models.TaskFailed, Error: err}, worker.ExitError
		}
		result, exit = runner.RunTask(ctx, task)
	default:
		result, exit = runner.RunTask(ctx, task)
	}

	if result.SessionID != "" {
		s.sessions.Store(task.ID, result.SessionID)
	}
	return result, exit
}

func (s *Scheduler) lastSession(taskID string) string {
	v, ok := s.sessions.Load(taskID)
	if !ok {
		return ""
	}
	sid, _ := v.(string)
	return sid
}

func (s *Scheduler) slotByID(id int) (*workerSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	return slot, ok
}

// watchHealth drains the Health Monitor's signal channel for the lifetime
// of a run, applying restart/terminate escalation to whichever task each
// stalled worker is currently executing (spec.md §4.4, §4.6 step 3).
func (s *Scheduler) watchHealth(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-s.health.Signals():
			if !ok {
				return
			}
			s.handleHealthSignal(sig)
		}
	}
}

// handleHealthSignal reacts to one stall/terminate signal: it interrupts
// the stalled worker's in-flight task, letting the Worker Runtime's own
// failure path (agent invoke error -> FAILED) and the dispatch loop's
// applyExit retry/block decision put the task back in PENDING or BLOCKED
// it just like any other worker crash. On TERMINATE it additionally marks
// the worker CRASHED and stops its monitor so an already-terminated worker
// doesn't keep emitting TERMINATE on every subsequent poll tick.
func (s *Scheduler) handleHealthSignal(sig health.Signal) {
	slot, ok := s.slotByID(sig.WorkerID)
	if !ok {
		return
	}

	taskID, cancel := slot.current()
	if taskID == "" {
		return
	}

	switch sig.Kind {
	case health.SignalRestart:
		s.log.Warnf("orchestrator: worker %d stalled, restarting task %s on a fresh invocation", sig.WorkerID, taskID)
		if cancel != nil {
			cancel()
		}
	case health.SignalTerminate:
		s.log.Warnf("orchestrator: worker %d exhausted auto-restarts, failing task %s and terminating the worker", sig.WorkerID, taskID)
		if cancel != nil {
			cancel()
		}
		s.health.Stop(sig.WorkerID)
		if err := s.state.RecordWorkerHeartbeat(models.Worker{
			WorkerID:      sig.WorkerID,
			Status:        models.WorkerCrashed,
			CurrentTaskID: taskID,
		}); err != nil {
			s.log.Warnf("orchestrator: record worker %d crashed: %v", sig.WorkerID, err)
		}
	}
}
