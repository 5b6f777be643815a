package graph

import "github.com/waveforge/orc/internal/models"

// MaxParallelization returns max over L of |tasks at L|, as defined in
// spec.md §4.1.
func MaxParallelization(g *models.TaskGraph) int {
	return g.MaxParallelization()
}

// TasksEligibleAt returns the task IDs at the given level whose dependencies
// are all in the completed set. This is the eligibility check the
// Orchestrator uses when dispatching within a level (spec.md §4.6 step 2),
// factored out here since it only needs the static graph plus a completion
// oracle.
func TasksEligibleAt(g *models.TaskGraph, levelIndex int, completed map[string]bool) []string {
	var eligible []string
	for _, t := range g.TasksAtLevel(levelIndex) {
		ready := true
		for _, dep := range t.Dependencies {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			eligible = append(eligible, t.ID)
		}
	}
	return eligible
}
