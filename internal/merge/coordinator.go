// Package merge implements the Merge Coordinator: it takes a completed
// level's worker branches, stages them into a per-level integration
// branch, runs quality gates, and promotes the result to the base branch
// (spec.md §4.5).
package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/waveforge/orc/internal/config"
	"github.com/waveforge/orc/internal/gitutil"
	"github.com/waveforge/orc/internal/logger"
	"github.com/waveforge/orc/internal/models"
	"github.com/waveforge/orc/internal/worker"
)

// FailureKind enumerates the LEVEL_FAILED categories of spec.md §4.5
// "Failure semantics".
type FailureKind string

const (
	FailureIncomplete    FailureKind = "INCOMPLETE"
	FailureMergeConflict FailureKind = "MERGE_CONFLICT"
	FailureGate          FailureKind = "GATE"
)

// LevelFailedError signals the Orchestrator to pause the scheduler
// (spec.md §4.5 "produce either ... or a LEVEL_FAILED signal").
type LevelFailedError struct {
	Level  int
	Kind   FailureKind
	Detail string
}

func (e *LevelFailedError) Error() string {
	return fmt.Sprintf("level %d failed (%s): %s", e.Level, e.Kind, e.Detail)
}

// WiringWarning flags a newly created file with no detected production
// caller (spec.md §4.5 step 5, "advisory, not blocker").
type WiringWarning struct {
	File    string
	Message string
}

// GateRunner executes one configured quality gate against a working tree.
type GateRunner interface {
	RunGate(ctx context.Context, dir string, gate config.GateConfig) models.GateResult
}

// ShellGateRunner runs a gate's command through the same subprocess
// abstraction the Worker Runtime's verification tiers use, mapping a clean
// exit to PASS and a failing one to FAIL.
type ShellGateRunner struct {
	Command worker.CommandRunner
}

// RunGate implements GateRunner.
func (g ShellGateRunner) RunGate(ctx context.Context, dir string, gate config.GateConfig) models.GateResult {
	runner := g.Command
	if runner == nil {
		runner = worker.ShellCommandRunner{}
	}
	if strings.TrimSpace(gate.Command) == "" {
		return models.GateResult{Verdict: models.GateVerdictSkip, Feedback: "no command configured"}
	}

	vr := runner.Run(ctx, dir, gate.Timeout, gate.Command)
	switch {
	case vr.Passed:
		return models.GateResult{Verdict: models.GateVerdictPass, Feedback: vr.Output}
	case vr.Error == context.DeadlineExceeded:
		return models.GateResult{Verdict: models.GateVerdictTimeout, Feedback: vr.Output}
	default:
		return models.GateResult{Verdict: models.GateVerdictFail, Feedback: vr.Output}
	}
}

// LevelInput is everything the Coordinator needs to merge one level.
type LevelInput struct {
	Level         int
	BaseBranch    string
	WorkerBranches []string
	// TaskStatuses maps task ID to its final status, used for the
	// level-completion check (step 1) and the BLOCKED policy.
	TaskStatuses map[string]models.TaskStatus
	// NewFiles is the set of files created by tasks at this level, for the
	// wiring advisory (step 5).
	NewFiles []string
}

// Coordinator drives the protocol of spec.md §4.5 against a single
// checked-out repository.
type Coordinator struct {
	Feature    string
	Repo       *gitutil.Repo
	Config     config.MergeConfig
	GateRunner GateRunner
	Log        logger.Logger
}

// Result is what a successful Merge returns.
type Result struct {
	MergeCommit    string
	NeedsRebase    []string
	WiringWarnings []WiringWarning
	GateResults    map[string]models.GateResult
}

// Merge runs the full protocol for one level: staging, sequential merges,
// quality gates, promotion, tag, and worker-branch rebase.
func (c *Coordinator) Merge(ctx context.Context, in LevelInput) (*Result, error) {
	force := c.Config.Force

	if err := checkLevelComplete(in, force); err != nil {
		return nil, err
	}

	staging := gitutil.StagingBranch(c.Feature, in.Level)
	if err := c.Repo.CreateBranch(ctx, staging, in.BaseBranch); err != nil {
		return nil, fmt.Errorf("merge: create staging branch: %w", err)
	}
	if err := c.Repo.Checkout(ctx, staging); err != nil {
		return nil, fmt.Errorf("merge: checkout staging branch: %w", err)
	}

	for _, branch := range in.WorkerBranches {
		message := fmt.Sprintf("merge(%s): integrate %s into level %d staging", c.Feature, branch, in.Level)
		if err := c.Repo.MergeNoFF(ctx, branch, message); err != nil {
			conflicted, _ := c.Repo.ConflictedFiles(ctx)
			if !force {
				_ = c.Repo.AbortMerge(ctx)
				detail := fmt.Sprintf("merging %s: %v", branch, err)
				if len(conflicted) > 0 {
					detail = fmt.Sprintf("%s (conflicted: %s)", detail, strings.Join(conflicted, ", "))
				}
				return nil, &LevelFailedError{Level: in.Level, Kind: FailureMergeConflict, Detail: detail}
			}
			c.log().Warnf("merge: forced past conflict merging %s into staging-L-%d (conflicted: %s): %v", branch, in.Level, strings.Join(conflicted, ", "), err)
			_ = c.Repo.AbortMerge(ctx)
		}
	}

	gateResults := make(map[string]models.GateResult, len(c.Config.Gates))
	for _, gate := range c.Config.Gates {
		result := c.GateRunner.RunGate(ctx, c.Repo.WorkDir, toGateConfig(gate))
		gateResults[gate.Name] = result
		c.log().QualityGateRun(in.Level, gate.Name, result.Verdict)

		if result.Verdict.Blocking(gate.Required) && !force {
			return nil, &LevelFailedError{Level: in.Level, Kind: FailureGate, Detail: fmt.Sprintf("gate %q: %s", gate.Name, result.Verdict)}
		}
	}

	warnings := detectWiringWarnings(c.Repo.WorkDir, in.NewFiles)

	if err := c.Repo.Checkout(ctx, in.BaseBranch); err != nil {
		return nil, fmt.Errorf("merge: checkout base branch: %w", err)
	}
	promoteMsg := fmt.Sprintf("merge(%s): promote level %d staging to %s", c.Feature, in.Level, in.BaseBranch)
	if err := c.Repo.MergeNoFF(ctx, staging, promoteMsg); err != nil {
		return nil, fmt.Errorf("merge: promote staging to base: %w", err)
	}
	mergeCommit, err := c.Repo.HeadCommit(ctx)
	if err != nil {
		return nil, fmt.Errorf("merge: read promoted head: %w", err)
	}

	tag := gitutil.LevelCompleteTag(c.Feature, in.Level)
	if err := c.Repo.Tag(ctx, tag, fmt.Sprintf("level %d complete", in.Level)); err != nil {
		return nil, fmt.Errorf("merge: tag %s: %w", tag, err)
	}

	var needsRebase []string
	for _, branch := range in.WorkerBranches {
		if err := c.Repo.Checkout(ctx, branch); err != nil {
			needsRebase = append(needsRebase, branch)
			continue
		}
		if err := c.Repo.RebaseOnto(ctx, in.BaseBranch); err != nil {
			needsRebase = append(needsRebase, branch)
		}
	}
	_ = c.Repo.Checkout(ctx, in.BaseBranch)

	c.log().MergeComplete(in.Level, mergeCommit)

	return &Result{
		MergeCommit:    mergeCommit,
		NeedsRebase:    needsRebase,
		WiringWarnings: warnings,
		GateResults:    gateResults,
	}, nil
}

func (c *Coordinator) log() logger.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logger.MultiLogger(nil)
}

// checkLevelComplete enforces step 1: every task at the level must be
// COMPLETED. With force=true the check is skipped, so any non-COMPLETED
// task (BLOCKED or otherwise) is tolerated.
func checkLevelComplete(in LevelInput, force bool) error {
	var incomplete int
	for _, status := range in.TaskStatuses {
		if status != models.TaskCompleted && status != models.TaskBlocked {
			incomplete++
		}
		if status == models.TaskBlocked && !force {
			incomplete++
		}
	}
	if incomplete > 0 && !force {
		return &LevelFailedError{
			Level:  in.Level,
			Kind:   FailureIncomplete,
			Detail: fmt.Sprintf("%d task(s) not completed", incomplete),
		}
	}
	return nil
}

func toGateConfig(g config.GateConfig) config.GateConfig {
	if g.Timeout <= 0 {
		g.Timeout = 5 * time.Minute
	}
	return g
}

// detectWiringWarnings implements the step-5 advisory: for each newly
// created file, search the tree for a non-test reference to its base name.
// A file with zero matches outside itself is reported as unwired.
func detectWiringWarnings(root string, newFiles []string) []WiringWarning {
	if len(newFiles) == 0 {
		return nil
	}

	var warnings []WiringWarning
	for _, f := range newFiles {
		if strings.HasSuffix(f, "_test.go") {
			continue
		}
		base := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		if base == "" {
			continue
		}
		if !hasProductionReference(root, filepath.Clean(f), base) {
			warnings = append(warnings, WiringWarning{
				File:    f,
				Message: fmt.Sprintf("no non-test reference to %q found outside the file itself", base),
			})
		}
	}
	return warnings
}

// hasProductionReference walks root looking for a non-test Go file other
// than own (the new file itself) that mentions base, a crude but cheap
// caller check: a newly created file nobody imports or names is the usual
// symptom of an unwired task.
func hasProductionReference(root, own, base string) bool {
	if root == "" {
		return true
	}
	found := false
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || found {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if filepath.Clean(rel) == own {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if strings.Contains(string(data), base) {
			found = true
		}
		return nil
	})
	return found
}
