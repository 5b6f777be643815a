// Package models defines the data model shared by the graph validator,
// state manager, worker runtime, merge coordinator, and orchestrator:
// tasks, task graphs, levels, workers, feature state, and escalations.
package models

import (
	"regexp"
	"time"
)

// taskIDPattern is the identifier grammar required by task IDs:
// [A-Za-z][A-Za-z0-9_\-]{0,63}
var taskIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-]{0,63}$`)

// ValidTaskID reports whether id matches the task identifier grammar.
func ValidTaskID(id string) bool {
	return taskIDPattern.MatchString(id)
}

// FileSet holds a task's ownership-by-contract file declarations.
type FileSet struct {
	Create []string `yaml:"create,omitempty" json:"create,omitempty"`
	Modify []string `yaml:"modify,omitempty" json:"modify,omitempty"`
	Read   []string `yaml:"read,omitempty" json:"read,omitempty"`
}

// Owned returns the union of Create and Modify: the files this task holds
// exclusive rights over for the duration of its level.
func (f FileSet) Owned() []string {
	owned := make([]string, 0, len(f.Create)+len(f.Modify))
	owned = append(owned, f.Create...)
	owned = append(owned, f.Modify...)
	return owned
}

// Verification describes the task's blocking correctness check.
type Verification struct {
	Command        string `yaml:"command" json:"command"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Duration returns the verification timeout as a time.Duration.
func (v Verification) Duration() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// Task is a single node in the task graph (spec.md §3 "Task").
type Task struct {
	ID              string       `yaml:"id" json:"id"`
	Title           string       `yaml:"title" json:"title"`
	Description     string       `yaml:"description,omitempty" json:"description,omitempty"`
	Level           int          `yaml:"level" json:"level"`
	Dependencies    []string     `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Files           FileSet      `yaml:"files" json:"files"`
	Verification    Verification `yaml:"verification" json:"verification"`
	EstimateMinutes int          `yaml:"estimate_minutes,omitempty" json:"estimate_minutes,omitempty"`
	IntegrationTest string       `yaml:"integration_test,omitempty" json:"integration_test,omitempty"`

	// Commit is an optional declared commit spec (conventional-commit type,
	// message, body) the worker runtime composes its final commit message
	// from (see CommitSpec). Tasks that omit it get a commit message built
	// solely from the spec-required metadata footer (feature/task/worker/
	// level/verification summary).
	Commit *CommitSpec `yaml:"commit,omitempty" json:"commit,omitempty"`
}

// TaskStatus is one of the states in the task lifecycle (spec.md §3).
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskBlocked    TaskStatus = "BLOCKED"
	TaskFailed     TaskStatus = "FAILED"
	TaskPaused     TaskStatus = "PAUSED"
)

// validTaskTransitions enumerates the legal TaskStatus edges from spec.md §3.
var validTaskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress},
	TaskInProgress: {TaskCompleted, TaskFailed, TaskPaused},
	TaskFailed:     {TaskPending, TaskBlocked},
	TaskPaused:     {TaskInProgress},
}

// CanTransition reports whether moving from 'from' to 'to' is a legal
// TaskStatus edge per the lifecycle in spec.md §3.
func CanTransition(from, to TaskStatus) bool {
	for _, allowed := range validTaskTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TaskRecord is the State Manager's per-task runtime record (FeatureState.tasks[id]).
type TaskRecord struct {
	Status           TaskStatus `yaml:"status" json:"status"`
	AssignedWorkerID *int       `yaml:"assigned_worker_id,omitempty" json:"assigned_worker_id,omitempty"`
	RetryCount       int        `yaml:"retry_count" json:"retry_count"`
	LastError        string     `yaml:"last_error,omitempty" json:"last_error,omitempty"`
	StartedAt        *time.Time `yaml:"started_at,omitempty" json:"started_at,omitempty"`
	FinishedAt       *time.Time `yaml:"finished_at,omitempty" json:"finished_at,omitempty"`
}

// WorkerStatus enumerates Worker.status values (spec.md §3 "Worker").
type WorkerStatus string

const (
	WorkerStarting   WorkerStatus = "STARTING"
	WorkerRunning    WorkerStatus = "RUNNING"
	WorkerIdle       WorkerStatus = "IDLE"
	WorkerCheckpoint WorkerStatus = "CHECKPOINT"
	WorkerStalled    WorkerStatus = "STALLED"
	WorkerCrashed    WorkerStatus = "CRASHED"
	WorkerStopped    WorkerStatus = "STOPPED"
)

// Worker is a runtime snapshot of one isolated worker execution context.
type Worker struct {
	WorkerID                 int          `yaml:"worker_id" json:"worker_id"`
	Status                   WorkerStatus `yaml:"status" json:"status"`
	CurrentTaskID            string       `yaml:"current_task_id,omitempty" json:"current_task_id,omitempty"`
	RetryCountForCurrentTask int          `yaml:"retry_count_for_current_task" json:"retry_count_for_current_task"`
	LastHeartbeatAt          time.Time    `yaml:"last_heartbeat_at" json:"last_heartbeat_at"`
	ContextUsage             float64      `yaml:"context_usage" json:"context_usage"`
	Worktree                 string       `yaml:"worktree" json:"worktree"`
	Branch                   string       `yaml:"branch" json:"branch"`
	NeedsRebase              bool         `yaml:"needs_rebase,omitempty" json:"needs_rebase,omitempty"`
}

// LevelStatus is one of the states of a Level record in FeatureState.
type LevelStatus string

const (
	LevelPending      LevelStatus = "PENDING"
	LevelRunning      LevelStatus = "RUNNING"
	LevelGatesRunning LevelStatus = "GATES_RUNNING"
	LevelMerged       LevelStatus = "MERGED"
	LevelFailed       LevelStatus = "FAILED"
)

// LevelRecord is the State Manager's per-level runtime record.
type LevelRecord struct {
	Status      LevelStatus `yaml:"status" json:"status"`
	MergeCommit string      `yaml:"merge_commit,omitempty" json:"merge_commit,omitempty"`
}

// EscalationCategory enumerates the reasons a task can be escalated.
type EscalationCategory string

const (
	CategoryAmbiguousSpec       EscalationCategory = "AMBIGUOUS_SPEC"
	CategoryDependencyMissing   EscalationCategory = "DEPENDENCY_MISSING"
	CategoryVerificationUnclear EscalationCategory = "VERIFICATION_UNCLEAR"
)

// Escalation is a structured record of a human-resolvable ambiguity
// (spec.md §3 "Escalation").
type Escalation struct {
	ID        string                 `yaml:"id" json:"id"`
	WorkerID  int                    `yaml:"worker_id" json:"worker_id"`
	TaskID    string                 `yaml:"task_id" json:"task_id"`
	Timestamp time.Time              `yaml:"timestamp" json:"timestamp"`
	Category  EscalationCategory     `yaml:"category" json:"category"`
	Message   string                 `yaml:"message" json:"message"`
	Context   map[string]interface{} `yaml:"context,omitempty" json:"context,omitempty"`
	Resolved  bool                   `yaml:"resolved" json:"resolved"`
}

// Level is an ordered partition of the task graph: a maximal set of tasks
// with no dependencies on each other (the scheduling barrier unit).
type Level struct {
	Index int      `yaml:"level_index" json:"level_index"`
	Tasks []string `yaml:"tasks" json:"tasks"`
}

// TaskGraph is the static, immutable-after-validation plan for one feature
// (spec.md §3 "TaskGraph").
type TaskGraph struct {
	FeatureID string          `yaml:"feature" json:"feature"`
	Tasks     map[string]Task `yaml:"-" json:"-"`
	Levels    []Level         `yaml:"-" json:"-"`
}

// MaxParallelization returns the size of the largest level.
func (g *TaskGraph) MaxParallelization() int {
	max := 0
	for _, lvl := range g.Levels {
		if len(lvl.Tasks) > max {
			max = len(lvl.Tasks)
		}
	}
	return max
}

// TasksAtLevel returns the Task values belonging to level index idx (1-based).
func (g *TaskGraph) TasksAtLevel(idx int) []Task {
	for _, lvl := range g.Levels {
		if lvl.Index == idx {
			out := make([]Task, 0, len(lvl.Tasks))
			for _, id := range lvl.Tasks {
				out = append(out, g.Tasks[id])
			}
			return out
		}
	}
	return nil
}

// MaxLevel returns the highest level index in the graph, or 0 if empty.
func (g *TaskGraph) MaxLevel() int {
	max := 0
	for _, lvl := range g.Levels {
		if lvl.Index > max {
			max = lvl.Index
		}
	}
	return max
}
