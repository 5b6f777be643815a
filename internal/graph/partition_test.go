package graph

import "testing"

func TestTasksEligibleAt(t *testing.T) {
	g := baseGraph()

	eligible := TasksEligibleAt(g, 1, map[string]bool{})
	if len(eligible) != 2 {
		t.Fatalf("expected both level-1 tasks eligible, got %v", eligible)
	}

	eligible = TasksEligibleAt(g, 2, map[string]bool{"a": true})
	if len(eligible) != 0 {
		t.Fatalf("expected no eligible level-2 tasks until both deps complete, got %v", eligible)
	}

	eligible = TasksEligibleAt(g, 2, map[string]bool{"a": true, "b": true})
	if len(eligible) != 1 || eligible[0] != "c" {
		t.Fatalf("expected task c eligible, got %v", eligible)
	}
}

func TestMaxParallelization(t *testing.T) {
	g := baseGraph()
	if got := MaxParallelization(g); got != 2 {
		t.Errorf("MaxParallelization = %d, want 2", got)
	}
}
