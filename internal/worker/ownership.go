package worker

import (
	"os"
	"path/filepath"

	"github.com/waveforge/orc/internal/models"
)

// checkPreconditions enforces the two file-ownership edge cases of
// spec.md §4.3: a `modify` target missing at task start is
// DEPENDENCY_MISSING, and a `create` target already present is
// AMBIGUOUS_SPEC. dir is the worker's worktree root.
func checkPreconditions(dir string, task models.Task) error {
	for _, f := range task.Files.Modify {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return &DependencyMissingError{TaskID: task.ID, Path: f}
		}
	}
	for _, f := range task.Files.Create {
		if _, err := os.Stat(filepath.Join(dir, f)); err == nil {
			return &AmbiguousCreateError{TaskID: task.ID, Path: f}
		}
	}
	return nil
}

// checkOwnership compares the set of paths actually touched (from a git
// diff/status scan) against the task's declared create+modify set and
// returns a ProtocolViolationError listing anything out of scope
// (spec.md §4.3 step 3, scenario 3).
func checkOwnership(task models.Task, touched []string) error {
	owned := make(map[string]bool, len(task.Files.Create)+len(task.Files.Modify))
	for _, f := range task.Files.Owned() {
		owned[filepath.Clean(f)] = true
	}

	var outOfScope []string
	for _, f := range touched {
		if !owned[filepath.Clean(f)] {
			outOfScope = append(outOfScope, f)
		}
	}
	if len(outOfScope) > 0 {
		return &ProtocolViolationError{TaskID: task.ID, OutOfScope: outOfScope}
	}
	return nil
}
