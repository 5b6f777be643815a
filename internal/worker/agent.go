// Package worker implements the Worker Runtime: the per-task execution
// loop that claims a task, invokes an external coding agent against an
// isolated worktree, runs three-tier verification, commits on success,
// checkpoints on context exhaustion, and escalates ambiguous failures.
package worker

import (
	"context"
	"time"
)

// AgentRequest is everything an AgentInvoker needs to produce one attempt
// at a task: the assembled prompt plus an optional session to resume.
type AgentRequest struct {
	Prompt    string
	SessionID string
}

// AgentResult is what an agent invocation reports back. ContextUsage is a
// 0..1 fraction of the agent's context window consumed so far; the Worker
// Runtime checkpoints once it crosses the configured threshold.
type AgentResult struct {
	Summary      string
	Output       string
	Files        []string
	SessionID    string
	ContextUsage float64
}

// AgentInvoker runs an external coding agent process against the current
// worktree and returns its structured result. Implementations wrap a
// specific agent CLI (the reference implementation wraps the claude CLI
// via internal/claude); tests use a fake.
type AgentInvoker interface {
	Invoke(ctx context.Context, req AgentRequest) (*AgentResult, error)
}

// InvokeTimeout bounds a single agent invocation when the caller's
// context carries no deadline of its own.
const InvokeTimeout = 20 * time.Minute
