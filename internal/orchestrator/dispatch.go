package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/waveforge/orc/internal/hooks"
	"github.com/waveforge/orc/internal/merge"
	"github.com/waveforge/orc/internal/models"
	"github.com/waveforge/orc/internal/report"
	"github.com/waveforge/orc/internal/state"
	"github.com/waveforge/orc/internal/worker"
)

// levelQueue is the central work queue a level's worker pool drains. Pop
// blocks until either a task ID is available or every task in the level
// has reached a terminal status, so a worker slot never exits while a
// sibling's checkpoint or crash-recovery push is still in flight.
type levelQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []string
	tasks []string
	state *state.Manager
}

func newLevelQueue(st *state.Manager, taskIDs []string) *levelQueue {
	q := &levelQueue{state: st, tasks: taskIDs}
	q.cond = sync.NewCond(&q.mu)
	for _, id := range taskIDs {
		rec, _ := st.GetTask(id)
		if rec.Status == models.TaskPending || rec.Status == models.TaskPaused || rec.Status == models.TaskInProgress {
			q.items = append(q.items, id)
		}
	}
	return q
}

func (q *levelQueue) push(id string) {
	q.mu.Lock()
	q.items = append(q.items, id)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// poke wakes every waiting popper to re-check allTerminal, used after a
// task reaches a terminal status without anything being pushed.
func (q *levelQueue) poke() {
	q.cond.Broadcast()
}

func (q *levelQueue) allTerminal() bool {
	for _, id := range q.tasks {
		rec, ok := q.state.GetTask(id)
		if !ok || (rec.Status != models.TaskCompleted && rec.Status != models.TaskBlocked) {
			return false
		}
	}
	return true
}

func (q *levelQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if len(q.items) > 0 {
			id := q.items[0]
			q.items = q.items[1:]
			return id, true
		}
		if q.allTerminal() {
			return "", false
		}
		q.cond.Wait()
	}
}

// runLevel dispatches every task at level across a bounded worker pool and,
// once the level is complete, hands it to the Merge Coordinator (spec.md
// §4.6 "level loop").
func (s *Scheduler) runLevel(ctx context.Context, level int) (*models.LevelExecutionResult, error) {
	levelStart := time.Now()
	tasks := s.graph.TasksAtLevel(level)

	if snap := s.state.Snapshot(); snap.Levels[level] != nil && snap.Levels[level].Status == models.LevelMerged {
		return models.NewLevelExecutionResult(level, nil, 0), nil
	}

	if len(tasks) == 0 {
		if err := s.state.SetLevelStatus(level, models.LevelMerged, ""); err != nil {
			return nil, fmt.Errorf("orchestrator: mark empty level %d merged: %w", level, err)
		}
		return models.NewLevelExecutionResult(level, nil, time.Since(levelStart)), nil
	}

	if err := s.state.SetLevelStatus(level, models.LevelRunning, ""); err != nil {
		return nil, fmt.Errorf("orchestrator: start level %d: %w", level, err)
	}

	taskIDs := make([]string, 0, len(tasks))
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
		byID[t.ID] = t
	}

	n := s.workerCount(len(tasks))
	slots := make([]*workerSlot, n)
	for i := 0; i < n; i++ {
		slot, err := s.ensureSlot(ctx, i)
		if err != nil {
			return nil, err
		}
		slots[i] = slot
	}

	q := newLevelQueue(s.state, taskIDs)

	var resultsMu sync.Mutex
	var results []models.TaskResult

	g, gctx := errgroup.WithContext(ctx)
	for _, slot := range slots {
		slot := slot
		g.Go(func() error {
			for {
				if s.stopRequested.Load() {
					return nil
				}
				taskID, ok := q.pop()
				if !ok {
					return nil
				}
				task := byID[taskID]

				s.hooks.Emit(gctx, hooks.Payload{Event: hooks.TaskStarted, TaskID: task.ID, Level: level, WorkerID: slot.id, Timestamp: time.Now()})
				s.log.TaskStarted(task.ID, level, slot.id)

				taskCtx := slot.startTask(gctx, task.ID)
				result, exit := s.executeOne(taskCtx, slot, task)
				slot.finishTask()

				resultsMu.Lock()
				results = append(results, result)
				resultsMu.Unlock()

				s.log.TaskCompleted(task.ID, level, result.Status, result.Duration.String())
				s.hooks.Emit(gctx, hooks.Payload{
					Event: hooks.TaskCompleted, TaskID: task.ID, Level: level, WorkerID: slot.id,
					Status: string(result.Status), Duration: result.Duration, Timestamp: time.Now(),
				})

				s.applyExit(q, task, result, exit)
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, slot := range slots {
		s.health.Stop(slot.id)
	}

	aggregate := models.NewLevelExecutionResult(level, results, time.Since(levelStart))
	s.hooks.Emit(ctx, hooks.Payload{Event: hooks.LevelComplete, Level: level, Timestamp: time.Now()})
	s.log.LevelComplete(level, *aggregate)

	if s.stopRequested.Load() {
		return aggregate, nil
	}

	if err := s.mergeLevel(ctx, level, taskIDs, slots); err != nil {
		return aggregate, err
	}

	return aggregate, nil
}

// applyExit reacts to one task's outcome: a checkpoint goes back on the
// queue for a fresh resume, a recoverable crash re-enters PENDING, and an
// exhausted task is blocked — mirroring the automatic retry/block decision
// the Worker Runtime itself applies for verification failures (spec.md
// §4.3 steps 7-8, generalized to the orchestrator-level crash case).
func (s *Scheduler) applyExit(q *levelQueue, task models.Task, result models.TaskResult, exit worker.ExitCode) {
	defer q.poke()

	switch exit {
	case worker.ExitCheckpoint:
		q.push(task.ID)
	case worker.ExitError:
		rec, ok := s.state.GetTask(task.ID)
		if !ok {
			return
		}
		switch rec.Status {
		case models.TaskFailed:
			if rec.RetryCount < s.maxRetries() {
				if err := s.state.UpdateTaskStatus(task.ID, models.TaskPending, ""); err == nil {
					q.push(task.ID)
				}
			} else {
				_ = s.state.UpdateTaskStatus(task.ID, models.TaskBlocked, "exceeded retry limit after worker error")
			}
		case models.TaskPending:
			q.push(task.ID)
		}
	}
}

func (s *Scheduler) buildLevelInput(level int, taskIDs, branches []string) merge.LevelInput {
	statuses := make(map[string]models.TaskStatus, len(taskIDs))
	var newFiles []string
	for _, id := range taskIDs {
		rec, _ := s.state.GetTask(id)
		statuses[id] = rec.Status
		newFiles = append(newFiles, s.graph.Tasks[id].Files.Create...)
	}
	return merge.LevelInput{
		Level:          level,
		BaseBranch:     s.baseBranch,
		WorkerBranches: branches,
		TaskStatuses:   statuses,
		NewFiles:       newFiles,
	}
}

// mergeLevel hands a completed level to the Merge Coordinator and applies
// its outcome to the State Manager (spec.md §4.5, §4.6 step "invoke merge").
func (s *Scheduler) mergeLevel(ctx context.Context, level int, taskIDs []string, slots []*workerSlot) error {
	if err := s.state.SetLevelStatus(level, models.LevelGatesRunning, ""); err != nil {
		return fmt.Errorf("orchestrator: mark level %d gates running: %w", level, err)
	}

	branches := make([]string, len(slots))
	for i, slot := range slots {
		branches[i] = slot.branch
	}

	coordinator := &merge.Coordinator{
		Feature:    s.feature,
		Repo:       s.repo,
		Config:     s.cfg.Merge,
		GateRunner: s.gateRunnerOrDefault(),
		Log:        s.log,
	}

	result, err := coordinator.Merge(ctx, s.buildLevelInput(level, taskIDs, branches))
	if err != nil {
		var lfe *merge.LevelFailedError
		if errors.As(err, &lfe) {
			_ = s.state.SetLevelStatus(level, models.LevelFailed, "")
			if path, werr := s.writeFailureReport(level, taskIDs, lfe); werr != nil {
				s.log.Warnf("orchestrator: write level %d failure report: %v", level, werr)
			} else {
				s.log.Warnf("orchestrator: level %d failure report written to %s", level, path)
			}
		}
		return err
	}

	if err := s.state.SetLevelStatus(level, models.LevelMerged, result.MergeCommit); err != nil {
		return fmt.Errorf("orchestrator: mark level %d merged: %w", level, err)
	}

	for _, branch := range result.NeedsRebase {
		s.log.Warnf("orchestrator: worker branch %s needs manual rebase onto %s after level %d merge", branch, s.baseBranch, level)
	}
	for _, w := range result.WiringWarnings {
		s.log.Warnf("orchestrator: %s: %s", w.File, w.Message)
	}

	s.hooks.Emit(ctx, hooks.Payload{Event: hooks.MergeComplete, Level: level, Timestamp: time.Now()})
	s.log.MergeComplete(level, result.MergeCommit)
	return nil
}

// writeFailureReport renders a LEVEL_FAILED outcome into the operator-facing
// digest spec.md §7 requires and writes it under the run's home directory,
// so an operator resuming after a LEVEL_FAILED pause has the categorized
// failure, the latest output, and any unresolved escalation in one place
// without re-deriving it from the state snapshot.
func (s *Scheduler) writeFailureReport(level int, taskIDs []string, lfe *merge.LevelFailedError) (string, error) {
	digest := report.FailureDigest{
		FeatureID:   s.feature,
		Category:    string(lfe.Kind),
		LevelIndex:  level,
		Output:      lfe.Detail,
		GeneratedAt: time.Now(),
	}

	inLevel := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		inLevel[id] = true
	}
	for _, e := range s.state.Snapshot().Escalations {
		if e.Resolved || !inLevel[e.TaskID] {
			continue
		}
		esc := e
		digest.Escalation = &esc
		digest.TaskID = e.TaskID
		break
	}

	dir := filepath.Join(s.homeDir, "reports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("orchestrator: create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("level-%d-failure.md", level))
	if err := os.WriteFile(path, []byte(report.RenderMarkdown(digest)), 0644); err != nil {
		return "", fmt.Errorf("orchestrator: write failure report: %w", err)
	}
	return path, nil
}
