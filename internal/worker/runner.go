package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waveforge/orc/internal/gitutil"
	"github.com/waveforge/orc/internal/models"
)

// ExitCode is the worker process's contract with the Orchestrator
// (spec.md §6 "Worker exit codes").
type ExitCode int

const (
	ExitSuccess     ExitCode = 0
	ExitError       ExitCode = 1
	ExitCheckpoint  ExitCode = 2
	ExitBlocked     ExitCode = 3
	ExitEscalation  ExitCode = 4
	ExitInterrupted ExitCode = 130
)

// StateStore is the slice of *state.Manager the Worker Runtime depends on,
// named separately so RunTask can be exercised against a fake in tests.
type StateStore interface {
	ClaimTask(taskID string, workerID int) (bool, error)
	UpdateTaskStatus(taskID string, status models.TaskStatus, lastErr string) error
	RecordWorkerHeartbeat(w models.Worker) error
	RecordEscalation(e models.Escalation) error
}

// Config bounds one RunTask execution.
type Config struct {
	MaxRetries          int
	CheckpointThreshold float64
	SyntaxCommand       string
	QualityCommand      string
}

// DefaultConfig mirrors spec.md §4.3's defaults: 3 retries, 0.70 context-usage
// checkpoint threshold.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, CheckpointThreshold: 0.70}
}

// Runner executes tasks one at a time against an isolated worktree on
// behalf of a single worker slot (spec.md §4.3).
type Runner struct {
	WorkerID  int
	Feature   string
	Repo      *gitutil.Repo
	Agent     AgentInvoker
	Verify    CommandRunner
	State     StateStore
	Heartbeat *HeartbeatPublisher
	Config    Config

	// Warnf logs a non-fatal warning (integration test absent, etc). May be nil.
	Warnf func(format string, args ...interface{})
}

func (r *Runner) warnf(format string, args ...interface{}) {
	if r.Warnf != nil {
		r.Warnf(format, args...)
	}
}

func (r *Runner) heartbeat(taskID string, step models.WorkerStep, progressPct float64) {
	if r.Heartbeat != nil {
		r.Heartbeat.Report(taskID, step, progressPct)
	}
}

// RunTask drives one task through the full execution loop of spec.md §4.3:
// claim, implement, three-tier verify, commit or checkpoint, retry on
// verification failure, and block without an escalation once retries are
// exhausted. Precondition and ownership failures escalate without retry.
func (r *Runner) RunTask(ctx context.Context, task models.Task) (models.TaskResult, ExitCode) {
	start := time.Now()

	claimed, err := r.State.ClaimTask(task.ID, r.WorkerID)
	if err != nil {
		return models.TaskResult{
			TaskID:   task.ID,
			Status:   models.TaskFailed,
			Error:    fmt.Errorf("worker: claim_task %s: %w", task.ID, err),
			Duration: time.Since(start),
		}, ExitError
	}
	if !claimed {
		return models.TaskResult{TaskID: task.ID, Status: models.TaskPending, Duration: time.Since(start)}, ExitSuccess
	}

	return r.runClaimedTask(ctx, task, start, "")
}

// ResumeTask continues a task a prior worker checkpointed: the task record
// is already IN_PROGRESS (transitioned from PAUSED by the caller) and
// assigned to this worker slot, so ResumeTask skips claim_task and resumes
// the agent session from sessionID (spec.md §4.6 "CHECKPOINT: restart a
// fresh worker on the same assignment").
func (r *Runner) ResumeTask(ctx context.Context, task models.Task, sessionID string) (models.TaskResult, ExitCode) {
	return r.runClaimedTask(ctx, task, time.Now(), sessionID)
}

// runClaimedTask is the shared retry loop behind RunTask and ResumeTask,
// entered only once the task is already claimed (IN_PROGRESS) for r.WorkerID.
func (r *Runner) runClaimedTask(ctx context.Context, task models.Task, start time.Time, sessionID string) (models.TaskResult, ExitCode) {
	result := models.TaskResult{TaskID: task.ID}
	maxRetries := r.Config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultConfig().MaxRetries
	}

	for attempt := 0; ; attempt++ {
		result.RetryCount = attempt
		attemptStart := time.Now()

		r.heartbeat(task.ID, models.StepLoadingContext, 0.1)

		if err := checkPreconditions(r.Repo.WorkDir, task); err != nil {
			return r.escalateImmediately(task, result, start, err)
		}

		r.heartbeat(task.ID, models.StepImplementing, 0.3)
		agentResult, err := r.Agent.Invoke(ctx, AgentRequest{
			Prompt:    buildPrompt(task),
			SessionID: sessionID,
		})
		if err != nil {
			result.Status = models.TaskFailed
			result.Error = fmt.Errorf("worker: agent invoke: %w", err)
			result.Duration = time.Since(start)
			_ = r.State.UpdateTaskStatus(task.ID, models.TaskFailed, result.Error.Error())
			return result, ExitError
		}
		sessionID = agentResult.SessionID
		result.Output = agentResult.Output

		if agentResult.ContextUsage >= checkpointThreshold(r.Config) {
			return r.checkpoint(ctx, task, result, start, sessionID, agentResult)
		}

		r.heartbeat(task.ID, models.StepVerifyingTier1, 0.5)
		tier1 := runTier1(ctx, r.Verify, r.Repo.WorkDir, r.Config.SyntaxCommand)
		historyEntry := models.ExecutionAttempt{Attempt: attempt + 1, AgentOutput: agentResult.Output, Duration: time.Since(attemptStart)}
		if !tier1.Passed {
			result.ExecutionHistory = append(result.ExecutionHistory, historyEntry)
			verr := &VerificationFailedError{TaskID: task.ID, Tier: 1, Output: tier1.Output, Err: tier1.Error}
			if done, exit := r.retryOrBlock(task, &result, start, attempt, maxRetries, verr); done {
				return result, exit
			}
			continue
		}

		r.heartbeat(task.ID, models.StepVerifyingTier2, 0.7)
		primary, integration, _ := runTier2(ctx, r.Verify, r.Repo.WorkDir, task, r.warnf)
		if !primary.Passed || (integration.Command != "" && !integration.Passed) {
			failed := primary
			if primary.Passed {
				failed = integration
			}
			result.ExecutionHistory = append(result.ExecutionHistory, historyEntry)
			verr := &VerificationFailedError{TaskID: task.ID, Tier: 2, Output: failed.Output, Err: failed.Error}
			if done, exit := r.retryOrBlock(task, &result, start, attempt, maxRetries, verr); done {
				return result, exit
			}
			continue
		}

		r.heartbeat(task.ID, models.StepVerifyingTier3, 0.85)
		_ = runTier3(ctx, r.Verify, r.Repo.WorkDir, r.Config.QualityCommand)

		touched, err := r.Repo.ChangedFiles(ctx)
		if err != nil {
			result.Status = models.TaskFailed
			result.Error = fmt.Errorf("worker: list changed files: %w", err)
			result.Duration = time.Since(start)
			_ = r.State.UpdateTaskStatus(task.ID, models.TaskFailed, result.Error.Error())
			return result, ExitError
		}
		if err := checkOwnership(task, touched); err != nil {
			return r.escalateImmediately(task, result, start, err)
		}

		r.heartbeat(task.ID, models.StepCommitting, 0.95)
		message := buildCommitMessage(r.Feature, r.WorkerID, task, primary)
		commit, err := r.Repo.CommitAll(ctx, message)
		if err != nil {
			result.Status = models.TaskFailed
			result.Error = fmt.Errorf("worker: commit: %w", err)
			result.Duration = time.Since(start)
			_ = r.State.UpdateTaskStatus(task.ID, models.TaskFailed, result.Error.Error())
			return result, ExitError
		}

		result.ExecutionHistory = append(result.ExecutionHistory, models.ExecutionAttempt{
			Attempt: attempt + 1, AgentOutput: agentResult.Output, Duration: time.Since(attemptStart),
		})
		result.Status = models.TaskCompleted
		result.SessionID = commit
		result.Duration = time.Since(start)
		r.heartbeat(task.ID, models.StepIdle, 1.0)
		if err := r.State.UpdateTaskStatus(task.ID, models.TaskCompleted, ""); err != nil {
			result.Error = err
			return result, ExitError
		}
		return result, ExitSuccess
	}
}

// checkpointThreshold returns the configured checkpoint threshold, falling
// back to the spec default when unset.
func checkpointThreshold(cfg Config) float64 {
	if cfg.CheckpointThreshold <= 0 {
		return DefaultConfig().CheckpointThreshold
	}
	return cfg.CheckpointThreshold
}

// checkpoint stages in-progress work into a WIP commit and pauses the task
// (spec.md §4.3 step 9).
func (r *Runner) checkpoint(ctx context.Context, task models.Task, result models.TaskResult, start time.Time, sessionID string, agentResult *AgentResult) (models.TaskResult, ExitCode) {
	message := fmt.Sprintf("wip(%s): checkpoint task %s\n\nworker_id: %d\nresume_hint: %s\ncontext_usage: %.2f",
		task.ID, task.ID, r.WorkerID, sessionID, agentResult.ContextUsage)
	commit, err := r.Repo.CommitAll(ctx, message)
	if err != nil && !isNothingToCommit(err) {
		result.Status = models.TaskFailed
		result.Error = fmt.Errorf("worker: checkpoint commit: %w", err)
		result.Duration = time.Since(start)
		_ = r.State.UpdateTaskStatus(task.ID, models.TaskFailed, result.Error.Error())
		return result, ExitError
	}

	result.Status = models.TaskPaused
	result.SessionID = sessionID
	result.Output = commit
	result.Duration = time.Since(start)
	_ = r.State.UpdateTaskStatus(task.ID, models.TaskPaused, "")
	return result, ExitCheckpoint
}

// isNothingToCommit tolerates a checkpoint racing against a worktree with no
// uncommitted changes (the agent made no edits before exhausting context).
func isNothingToCommit(err error) bool {
	return strings.Contains(err.Error(), "nothing to commit")
}

// retryOrBlock applies the retry-or-block decision of spec.md §4.3 steps
// 7-8 for a recoverable verification failure; a task that exhausts its
// retries is blocked with no escalation record. It reports whether the
// loop should stop (done) and, if so, the exit code to return.
func (r *Runner) retryOrBlock(task models.Task, result *models.TaskResult, start time.Time, attempt, maxRetries int, verr *VerificationFailedError) (bool, ExitCode) {
	_ = r.State.UpdateTaskStatus(task.ID, models.TaskFailed, verr.Error())

	if attempt+1 >= maxRetries {
		_ = r.State.UpdateTaskStatus(task.ID, models.TaskBlocked, verr.Error())
		result.Status = models.TaskBlocked
		result.Error = verr
		result.Duration = time.Since(start)
		return true, ExitBlocked
	}

	if err := r.State.UpdateTaskStatus(task.ID, models.TaskPending, ""); err != nil {
		result.Status = models.TaskFailed
		result.Error = err
		result.Duration = time.Since(start)
		return true, ExitError
	}
	claimed, err := r.State.ClaimTask(task.ID, r.WorkerID)
	if err != nil || !claimed {
		result.Status = models.TaskFailed
		result.Error = fmt.Errorf("worker: re-claim after retry: %w", errors.Join(err, errNotReclaimed(claimed)))
		result.Duration = time.Since(start)
		return true, ExitError
	}
	return false, 0
}

func errNotReclaimed(claimed bool) error {
	if claimed {
		return nil
	}
	return errors.New("task no longer claimable")
}

// escalateImmediately handles the structural failures of spec.md §4.3's
// "edge cases" (missing modify target, pre-existing create target) and the
// post-execution ownership-scope violation of §7 TASK_PROTOCOL_VIOLATION:
// all three fail without retry and always escalate.
func (r *Runner) escalateImmediately(task models.Task, result models.TaskResult, start time.Time, cause error) (models.TaskResult, ExitCode) {
	category := models.CategoryAmbiguousSpec
	var depErr *DependencyMissingError
	if errors.As(cause, &depErr) {
		category = models.CategoryDependencyMissing
	}

	_ = r.State.UpdateTaskStatus(task.ID, models.TaskFailed, cause.Error())
	_ = r.State.UpdateTaskStatus(task.ID, models.TaskBlocked, cause.Error())
	_ = r.State.RecordEscalation(models.Escalation{
		ID:        uuid.NewString(),
		WorkerID:  r.WorkerID,
		TaskID:    task.ID,
		Timestamp: time.Now(),
		Category:  category,
		Message:   cause.Error(),
		Resolved:  false,
	})

	result.Status = models.TaskBlocked
	result.Error = cause
	result.Duration = time.Since(start)
	return result, ExitEscalation
}

// buildPrompt assembles the agent prompt from the task's declared scope.
// Context-artifact assembly (requirements/design documents) is the
// orchestrator's responsibility; RunTask only describes the task itself.
func buildPrompt(task models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %s: %s\n", task.ID, task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", task.Description)
	}
	if len(task.Files.Create) > 0 {
		fmt.Fprintf(&b, "\nCreate: %s\n", strings.Join(task.Files.Create, ", "))
	}
	if len(task.Files.Modify) > 0 {
		fmt.Fprintf(&b, "Modify: %s\n", strings.Join(task.Files.Modify, ", "))
	}
	if len(task.Files.Read) > 0 {
		fmt.Fprintf(&b, "Read for context: %s\n", strings.Join(task.Files.Read, ", "))
	}
	fmt.Fprintf(&b, "\nVerification: %s\n", task.Verification.Command)
	return b.String()
}

// buildCommitMessage composes the commit message for a successfully
// verified task (spec.md §4.3 step 5): the task's declared CommitSpec when
// present, otherwise a message built from the required metadata footer.
func buildCommitMessage(feature string, workerID int, task models.Task, verification models.VerificationResult) string {
	var subject, body string
	if task.Commit != nil && !task.Commit.IsEmpty() {
		subject = task.Commit.BuildCommitMessage()
		body = task.Commit.Body
	} else {
		subject = fmt.Sprintf("task(%s): %s", task.ID, task.Title)
	}

	footer := fmt.Sprintf("feature: %s\ntask_id: %s\nworker_id: %d\nlevel: %d\nverification: passed (%s)",
		feature, task.ID, workerID, task.Level, verification.Command)

	if body != "" {
		return subject + "\n\n" + body + "\n\n" + footer
	}
	return subject + "\n\n" + footer
}
