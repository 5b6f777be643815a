package graph

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/waveforge/orc/internal/models"
)

// ValidationError is one violation found while validating a task graph.
type ValidationError struct {
	Rule    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// InvalidGraphError aggregates every validation violation found in a single
// pass, per spec.md §4.1: "Graph validation fails with INVALID_GRAPH listing
// every violation. No partial graph is returned."
type InvalidGraphError struct {
	Errors []ValidationError
}

func (e *InvalidGraphError) Error() string {
	lines := make([]string, 0, len(e.Errors)+1)
	lines = append(lines, fmt.Sprintf("INVALID_GRAPH: %d violation(s)", len(e.Errors)))
	for _, v := range e.Errors {
		lines = append(lines, "  - "+v.Error())
	}
	return strings.Join(lines, "\n")
}

// Validate checks a task graph against every rule in spec.md §4.1 and
// returns an *InvalidGraphError listing every violation found, or nil if
// the graph is valid. It never returns a partially validated graph: the
// caller should treat any non-nil error as "do not use this graph".
func Validate(g *models.TaskGraph) error {
	var errs []ValidationError

	errs = append(errs, validateIdentifiers(g)...)
	errs = append(errs, validateLevelsContiguous(g)...)
	errs = append(errs, validateDependencies(g)...)
	errs = append(errs, validateNoCycles(g)...)
	errs = append(errs, validateFileOwnership(g)...)
	errs = append(errs, validateVerification(g)...)

	if len(errs) > 0 {
		return &InvalidGraphError{Errors: errs}
	}
	return nil
}

// validateIdentifiers enforces rules 1 and 2: every task_id matches the
// identifier grammar and no two tasks share one.
func validateIdentifiers(g *models.TaskGraph) []ValidationError {
	var errs []ValidationError
	for id, t := range g.Tasks {
		if id != t.ID {
			errs = append(errs, ValidationError{"duplicate-or-mismatched-id",
				fmt.Sprintf("task map key %q does not match task.ID %q", id, t.ID)})
		}
		if !models.ValidTaskID(id) {
			errs = append(errs, ValidationError{"invalid-identifier",
				fmt.Sprintf("task_id %q does not match [A-Za-z][A-Za-z0-9_-]{0,63}", id)})
		}
	}
	return errs
}

// validateLevelsContiguous enforces rule 3: every task's level >= 1, and
// declared level indices are contiguous starting at 1.
func validateLevelsContiguous(g *models.TaskGraph) []ValidationError {
	var errs []ValidationError

	for id, t := range g.Tasks {
		if t.Level < 1 {
			errs = append(errs, ValidationError{"invalid-level",
				fmt.Sprintf("task %q has level %d, must be >= 1", id, t.Level)})
		}
	}

	indices := make([]int, 0, len(g.Levels))
	for _, lvl := range g.Levels {
		indices = append(indices, lvl.Index)
	}
	sort.Ints(indices)
	for i, idx := range indices {
		want := i + 1
		if idx != want {
			errs = append(errs, ValidationError{"non-contiguous-levels",
				fmt.Sprintf("level indices must be contiguous starting at 1; found %v", indices)})
			break
		}
	}

	// Every task belongs to exactly one declared level, and that level's
	// task set must agree with the task's own Level field.
	levelOf := make(map[string]int, len(g.Tasks))
	seen := make(map[string]bool, len(g.Tasks))
	for _, lvl := range g.Levels {
		for _, id := range lvl.Tasks {
			if seen[id] {
				errs = append(errs, ValidationError{"task-in-multiple-levels",
					fmt.Sprintf("task %q appears in more than one level", id)})
			}
			seen[id] = true
			levelOf[id] = lvl.Index
		}
	}
	for id, t := range g.Tasks {
		lvl, ok := levelOf[id]
		if !ok {
			errs = append(errs, ValidationError{"task-not-in-any-level",
				fmt.Sprintf("task %q is not listed in any level", id)})
			continue
		}
		if lvl != t.Level {
			errs = append(errs, ValidationError{"level-mismatch",
				fmt.Sprintf("task %q declares level %d but appears under level %d", id, t.Level, lvl)})
		}
	}

	return errs
}

// validateDependencies enforces rule 4: every dependency points to an
// existing task whose level is strictly less than the dependent's level.
func validateDependencies(g *models.TaskGraph) []ValidationError {
	var errs []ValidationError
	for id, t := range g.Tasks {
		for _, dep := range t.Dependencies {
			depTask, ok := g.Tasks[dep]
			if !ok {
				errs = append(errs, ValidationError{"dependency-missing",
					fmt.Sprintf("task %q depends on non-existent task %q", id, dep)})
				continue
			}
			if depTask.Level >= t.Level {
				errs = append(errs, ValidationError{"dependency-not-strictly-lower",
					fmt.Sprintf("task %q (level %d) depends on %q (level %d): dependency level must be strictly lower",
						id, t.Level, dep, depTask.Level)})
			}
		}
	}
	return errs
}

// validateNoCycles enforces rule 5 defensively: even though a correct level
// assignment makes cycles impossible, a malformed document could declare
// levels that don't actually respect dependency order. DFS with color
// marking catches that case directly on the dependency edges.
func validateNoCycles(g *models.TaskGraph) []ValidationError {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[string]int, len(g.Tasks))

	var dfs func(string) bool
	dfs = func(id string) bool {
		colors[id] = gray
		for _, dep := range g.Tasks[id].Dependencies {
			if _, ok := g.Tasks[dep]; !ok {
				continue // reported by validateDependencies
			}
			if colors[dep] == gray {
				return true
			}
			if colors[dep] == white && dfs(dep) {
				return true
			}
		}
		colors[id] = black
		return false
	}

	for id := range g.Tasks {
		if colors[id] == white {
			if dfs(id) {
				return []ValidationError{{"cycle-detected",
					fmt.Sprintf("dependency cycle involving task %q", id)}}
			}
		}
	}
	return nil
}

// validateFileOwnership enforces rule 6: within a level, create sets are
// pairwise disjoint, modify sets are pairwise disjoint, a task's own create
// and modify sets don't overlap, and no file created by one task is
// modified by another.
func validateFileOwnership(g *models.TaskGraph) []ValidationError {
	var errs []ValidationError

	for _, lvl := range g.Levels {
		createOwner := make(map[string]string)
		modifyOwner := make(map[string]string)

		for _, id := range lvl.Tasks {
			t, ok := g.Tasks[id]
			if !ok {
				continue
			}

			for _, f := range t.Files.Create {
				for _, m := range t.Files.Modify {
					if filepath.Clean(f) == filepath.Clean(m) {
						errs = append(errs, ValidationError{"create-modify-overlap",
							fmt.Sprintf("task %q lists %q in both create and modify", id, f)})
					}
				}
			}

			for _, f := range t.Files.Create {
				norm := filepath.Clean(f)
				if owner, exists := createOwner[norm]; exists && owner != id {
					errs = append(errs, ValidationError{"create-set-overlap",
						fmt.Sprintf("level %d: file %q claimed for creation by both %q and %q", lvl.Index, norm, owner, id)})
					continue
				}
				createOwner[norm] = id
			}

			for _, f := range t.Files.Modify {
				norm := filepath.Clean(f)
				if owner, exists := modifyOwner[norm]; exists && owner != id {
					errs = append(errs, ValidationError{"modify-set-overlap",
						fmt.Sprintf("level %d: file %q claimed for modification by both %q and %q", lvl.Index, norm, owner, id)})
					continue
				}
				modifyOwner[norm] = id
			}
		}

		for norm, creator := range createOwner {
			if modifier, exists := modifyOwner[norm]; exists && modifier != creator {
				errs = append(errs, ValidationError{"create-modify-cross-task-overlap",
					fmt.Sprintf("level %d: file %q is created by %q and modified by %q", lvl.Index, norm, creator, modifier)})
			}
		}
	}

	return errs
}

// validateVerification enforces rule 7: every task has a non-empty
// verification command and a timeout in (0, 86400].
func validateVerification(g *models.TaskGraph) []ValidationError {
	var errs []ValidationError
	for id, t := range g.Tasks {
		if strings.TrimSpace(t.Verification.Command) == "" {
			errs = append(errs, ValidationError{"missing-verification-command",
				fmt.Sprintf("task %q has no verification.command", id)})
		}
		if t.Verification.TimeoutSeconds <= 0 || t.Verification.TimeoutSeconds > 86400 {
			errs = append(errs, ValidationError{"invalid-verification-timeout",
				fmt.Sprintf("task %q verification.timeout_seconds = %d, must be in (0, 86400]", id, t.Verification.TimeoutSeconds)})
		}
	}
	return errs
}
