package worker

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/waveforge/orc/internal/models"
)

// CommandRunner abstracts subprocess execution so verification can be
// exercised without touching a real shell in unit tests.
type CommandRunner interface {
	Run(ctx context.Context, dir string, timeout time.Duration, command string) models.VerificationResult
}

// ShellCommandRunner runs command through "sh -c" in dir, bounded by
// timeout, matching the teacher's subprocess-invocation style throughout
// internal/executor (CommandRunner interfaces wrapping os/exec.Command).
type ShellCommandRunner struct{}

func (ShellCommandRunner) Run(ctx context.Context, dir string, timeout time.Duration, command string) models.VerificationResult {
	start := time.Now()
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	return models.VerificationResult{
		Command:  command,
		Output:   string(out),
		Error:    err,
		Passed:   err == nil,
		Duration: time.Since(start),
	}
}

// runTier1 runs the optional blocking syntax/lint command (spec.md §4.3
// step 4 tier 1). An empty command is treated as "not configured": it
// always passes.
func runTier1(ctx context.Context, runner CommandRunner, dir, command string) models.VerificationResult {
	if strings.TrimSpace(command) == "" {
		return models.VerificationResult{Passed: true}
	}
	return runner.Run(ctx, dir, 0, command)
}

// runTier2 runs the blocking correctness tier: the task's own verification
// command, and its integration_test command if declared and present on
// disk. integration_test is run the same opaque way as verification.command
// -- it is not assumed to be a Go import path -- so a task can declare any
// language's test invocation there. Both must pass; the first failure
// short-circuits the second.
func runTier2(ctx context.Context, runner CommandRunner, dir string, task models.Task, warnf func(string, ...interface{})) (primary, integration models.VerificationResult, skippedIntegration bool) {
	primary = runner.Run(ctx, dir, task.Verification.Duration(), task.Verification.Command)
	if !primary.Passed {
		return primary, models.VerificationResult{}, false
	}

	if task.IntegrationTest == "" {
		return primary, models.VerificationResult{}, false
	}

	if _, err := os.Stat(filepath.Join(dir, strings.Fields(task.IntegrationTest)[0])); err != nil {
		if warnf != nil {
			warnf("task %s: integration_test %q not found, skipping (non-fatal)", task.ID, task.IntegrationTest)
		}
		return primary, models.VerificationResult{}, true
	}

	integration = runner.Run(ctx, dir, task.Verification.Duration(), task.IntegrationTest)
	return primary, integration, false
}

// runTier3 runs the optional non-blocking quality command. Its result is
// recorded but never fails the task (spec.md §4.3 step 4 tier 3).
func runTier3(ctx context.Context, runner CommandRunner, dir, command string) models.VerificationResult {
	if strings.TrimSpace(command) == "" {
		return models.VerificationResult{Passed: true}
	}
	return runner.Run(ctx, dir, 0, command)
}
