package models

import "testing"

func TestValidTaskID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"task-1", true},
		{"A", true},
		{"_leading_underscore", false},
		{"1starts-with-digit", false},
		{"", false},
		{"has space", false},
	}
	for _, tt := range tests {
		if got := ValidTaskID(tt.id); got != tt.want {
			t.Errorf("ValidTaskID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestFileSet_Owned(t *testing.T) {
	fs := FileSet{Create: []string{"a.go"}, Modify: []string{"b.go"}, Read: []string{"c.go"}}
	owned := fs.Owned()
	if len(owned) != 2 {
		t.Fatalf("expected 2 owned files, got %v", owned)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskPending, TaskInProgress, true},
		{TaskPending, TaskCompleted, false},
		{TaskInProgress, TaskCompleted, true},
		{TaskInProgress, TaskFailed, true},
		{TaskFailed, TaskPending, true},
		{TaskFailed, TaskBlocked, true},
		{TaskFailed, TaskCompleted, false},
		{TaskCompleted, TaskInProgress, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTaskGraph_LevelHelpers(t *testing.T) {
	g := &TaskGraph{
		FeatureID: "demo",
		Tasks: map[string]Task{
			"a": {ID: "a", Level: 1},
			"b": {ID: "b", Level: 1},
			"c": {ID: "c", Level: 2},
		},
		Levels: []Level{
			{Index: 1, Tasks: []string{"a", "b"}},
			{Index: 2, Tasks: []string{"c"}},
		},
	}

	if g.MaxLevel() != 2 {
		t.Errorf("MaxLevel() = %d, want 2", g.MaxLevel())
	}
	if g.MaxParallelization() != 2 {
		t.Errorf("MaxParallelization() = %d, want 2", g.MaxParallelization())
	}
	if len(g.TasksAtLevel(1)) != 2 {
		t.Errorf("TasksAtLevel(1) len = %d, want 2", len(g.TasksAtLevel(1)))
	}
	if g.TasksAtLevel(99) != nil {
		t.Errorf("TasksAtLevel(99) = %v, want nil", g.TasksAtLevel(99))
	}
}

func TestNewFeatureState_SeedsPending(t *testing.T) {
	g := &TaskGraph{
		FeatureID: "demo",
		Tasks: map[string]Task{
			"a": {ID: "a", Level: 1},
			"b": {ID: "b", Level: 1},
		},
		Levels: []Level{{Index: 1, Tasks: []string{"a", "b"}}},
	}

	fs := NewFeatureState(g)

	if fs.CurrentLevel != 1 {
		t.Errorf("CurrentLevel = %d, want 1", fs.CurrentLevel)
	}
	if len(fs.Tasks) != 2 {
		t.Fatalf("expected 2 task records, got %d", len(fs.Tasks))
	}
	for id, rec := range fs.Tasks {
		if rec.Status != TaskPending {
			t.Errorf("task %s status = %s, want PENDING", id, rec.Status)
		}
	}
	if fs.Levels[1].Status != LevelPending {
		t.Errorf("level 1 status = %s, want PENDING", fs.Levels[1].Status)
	}
}

func TestFeatureState_LevelComplete(t *testing.T) {
	fs := &FeatureState{Tasks: map[string]*TaskRecord{
		"a": {Status: TaskCompleted},
		"b": {Status: TaskInProgress},
	}}
	if fs.LevelComplete([]string{"a", "b"}) {
		t.Error("expected level incomplete while b is IN_PROGRESS")
	}
	fs.Tasks["b"].Status = TaskCompleted
	if !fs.LevelComplete([]string{"a", "b"}) {
		t.Error("expected level complete once both tasks are COMPLETED")
	}
}

func TestFeatureState_ActiveWorkerCount(t *testing.T) {
	fs := &FeatureState{Workers: map[int]*Worker{
		1: {WorkerID: 1, Status: WorkerRunning},
		2: {WorkerID: 2, Status: WorkerCrashed},
		3: {WorkerID: 3, Status: WorkerIdle},
	}}
	if got := fs.ActiveWorkerCount(); got != 2 {
		t.Errorf("ActiveWorkerCount() = %d, want 2", got)
	}
}
