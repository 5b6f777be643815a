package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/waveforge/orc/internal/config"
	"github.com/waveforge/orc/internal/merge"
	"github.com/waveforge/orc/internal/models"
	"github.com/waveforge/orc/internal/state"
)

// Stop requests the scheduler pause between levels (spec.md §4.6 "graceful
// stop"). With graceful=true, in-flight tasks are left to finish or
// checkpoint on their own schedule for up to Config.GracefulStopTimeout
// before Run's context is cancelled; graceful=false cancels immediately.
func (s *Scheduler) Stop(graceful bool) {
	s.stopRequested.Store(true)

	s.mu.Lock()
	cancel := s.cancelRun
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	if !graceful {
		cancel()
		return
	}

	timeout := s.cfg.GracefulStopTimeout
	if timeout <= 0 {
		timeout = config.DefaultConfig().GracefulStopTimeout
	}
	go func() {
		time.Sleep(timeout)
		cancel()
	}()
}

// Retry resets a FAILED task back to PENDING so the next Run/Resume
// redispatches it. BLOCKED is terminal in the task lifecycle (spec.md §3)
// and has no retry path short of editing the task graph.
func (s *Scheduler) Retry(taskID string) error {
	rec, ok := s.state.GetTask(taskID)
	if !ok {
		return fmt.Errorf("orchestrator: retry: unknown task %q", taskID)
	}

	switch rec.Status {
	case models.TaskPending:
		return nil
	case models.TaskFailed:
		return s.state.UpdateTaskStatus(taskID, models.TaskPending, "")
	case models.TaskBlocked:
		return fmt.Errorf("orchestrator: retry: task %q is BLOCKED, a terminal status in this lifecycle", taskID)
	default:
		return fmt.Errorf("orchestrator: retry: task %q is %s, not retryable", taskID, rec.Status)
	}
}

// Merge manually invokes the Merge Coordinator for level, the abstract
// merge(level, {force}) control operation of spec.md §6, using whatever
// worker slots are currently prepared for that level's branches.
func (s *Scheduler) Merge(ctx context.Context, level int, force bool) (*merge.Result, error) {
	tasks := s.graph.TasksAtLevel(level)
	if len(tasks) == 0 {
		return nil, fmt.Errorf("orchestrator: merge: level %d has no tasks", level)
	}
	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}

	if s.baseBranch == "" {
		branch, err := s.repo.CurrentBranch(ctx)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: merge: read current branch: %w", err)
		}
		s.baseBranch = branch
	}

	s.mu.Lock()
	branches := make([]string, 0, len(s.slots))
	for i := 0; i < len(s.slots); i++ {
		if slot, ok := s.slots[i]; ok {
			branches = append(branches, slot.branch)
		}
	}
	s.mu.Unlock()

	cfg := s.cfg.Merge
	cfg.Force = cfg.Force || force

	coordinator := &merge.Coordinator{
		Feature:    s.feature,
		Repo:       s.repo,
		Config:     cfg,
		GateRunner: s.gateRunnerOrDefault(),
		Log:        s.log,
	}

	result, err := coordinator.Merge(ctx, s.buildLevelInput(level, taskIDs, branches))
	if err != nil {
		return nil, err
	}

	if err := s.state.SetLevelStatus(level, models.LevelMerged, result.MergeCommit); err != nil {
		return result, fmt.Errorf("orchestrator: merge: mark level %d merged: %w", level, err)
	}
	return result, nil
}

// Cleanup removes every prepared worker worktree, and (unless keepBranches
// is set) the worker branches behind them, the abstract cleanup() control
// operation of spec.md §6. With dryRun=true, Cleanup only reports what it
// would remove: no worktree, branch, or health-monitor state is touched.
func (s *Scheduler) Cleanup(ctx context.Context, keepBranches, dryRun bool) error {
	s.mu.Lock()
	slots := make([]*workerSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		slots = append(slots, slot)
	}
	s.mu.Unlock()

	if dryRun {
		for _, slot := range slots {
			if s.mode == ModeSharedBranch {
				continue
			}
			s.log.Infof("cleanup (dry run): would remove worktree %s", slot.worktree)
			if !keepBranches {
				s.log.Infof("cleanup (dry run): would delete branch %s", slot.branch)
			}
		}
		return nil
	}

	s.mu.Lock()
	s.slots = make(map[int]*workerSlot)
	s.mu.Unlock()

	s.health.StopAll()

	var errs []string
	for _, slot := range slots {
		if s.mode == ModeSharedBranch {
			continue
		}
		if err := s.repo.RemoveWorktree(ctx, slot.worktree, true); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if !keepBranches {
			if err := s.repo.DeleteBranch(ctx, slot.branch); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("orchestrator: cleanup: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Archive snapshots the feature's current state into a shared bolt-backed
// archive database (default <HomeDir>/archive.db), keyed by feature ID. A
// feature's own state.yaml is overwritten by its next run, so an operator
// who wants a durable cross-feature history of completed runs calls Archive
// before starting a new one over the same graph file.
func (s *Scheduler) Archive(archivePath string) error {
	if archivePath == "" {
		archivePath = filepath.Join(s.homeDir, "archive.db")
	}

	store, err := state.OpenBoltSnapshotStore(archivePath)
	if err != nil {
		return fmt.Errorf("orchestrator: archive: open %s: %w", archivePath, err)
	}
	defer store.Close()

	snap := s.state.Snapshot()
	if err := store.Save(s.feature, &snap); err != nil {
		return fmt.Errorf("orchestrator: archive: save %q: %w", s.feature, err)
	}
	return nil
}
