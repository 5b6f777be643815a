package models

import "time"

// WorkerStep is the step a worker reports itself to be in within its
// current task, one of the values enumerated in spec.md §4.3 step 10.
type WorkerStep string

const (
	StepInitializing   WorkerStep = "initializing"
	StepLoadingContext WorkerStep = "loading_context"
	StepImplementing   WorkerStep = "implementing"
	StepVerifyingTier1 WorkerStep = "verifying_tier1"
	StepVerifyingTier2 WorkerStep = "verifying_tier2"
	StepVerifyingTier3 WorkerStep = "verifying_tier3"
	StepCommitting     WorkerStep = "committing"
	StepIdle           WorkerStep = "idle"
)

// Heartbeat is the per-worker artifact (spec.md §6 "Heartbeat artifact"),
// overwritten each time the worker reports a step of its task loop.
type Heartbeat struct {
	WorkerID    int        `json:"worker_id" yaml:"worker_id"`
	Timestamp   time.Time  `json:"timestamp" yaml:"timestamp"`
	TaskID      string     `json:"task_id" yaml:"task_id"`
	Step        WorkerStep `json:"step" yaml:"step"`
	ProgressPct float64    `json:"progress_pct" yaml:"progress_pct"`
}
