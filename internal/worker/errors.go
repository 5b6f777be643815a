package worker

import (
	"fmt"
	"time"
)

// ProtocolViolationError is returned when a worker's diff touches a path
// outside its task's declared create/modify ownership set (spec.md §4.3
// step 3, §7 TASK_PROTOCOL_VIOLATION).
type ProtocolViolationError struct {
	TaskID      string
	OutOfScope  []string
	DetectedAt  time.Time
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("task %s: protocol violation, touched out-of-scope paths %v", e.TaskID, e.OutOfScope)
}

// DependencyMissingError fires when a `modify` file doesn't exist at task
// start (spec.md §4.3 "edge cases").
type DependencyMissingError struct {
	TaskID string
	Path   string
}

func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("task %s: modify target %q missing at task start", e.TaskID, e.Path)
}

// AmbiguousCreateError fires when a `create` file already exists at task
// start (spec.md §4.3 "edge cases").
type AmbiguousCreateError struct {
	TaskID string
	Path   string
}

func (e *AmbiguousCreateError) Error() string {
	return fmt.Sprintf("task %s: create target %q already exists at task start", e.TaskID, e.Path)
}

// VerificationFailedError wraps a failed tier-1 or tier-2 command.
type VerificationFailedError struct {
	TaskID string
	Tier   int
	Output string
	Err    error
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("task %s: tier-%d verification failed: %v", e.TaskID, e.Tier, e.Err)
}

func (e *VerificationFailedError) Unwrap() error {
	return e.Err
}
