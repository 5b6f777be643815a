package models

import (
	"testing"
	"time"
)

func TestNewLevelExecutionResult_Aggregates(t *testing.T) {
	results := []TaskResult{
		{TaskID: "a", Status: TaskCompleted, Duration: 2 * time.Second},
		{TaskID: "b", Status: TaskCompleted, Duration: 4 * time.Second},
		{TaskID: "c", Status: TaskFailed, Duration: 1 * time.Second},
		{TaskID: "d", Status: TaskBlocked, Duration: 0},
	}

	er := NewLevelExecutionResult(2, results, 10*time.Second)

	if er.TotalTasks != 4 {
		t.Errorf("TotalTasks = %d, want 4", er.TotalTasks)
	}
	if er.Completed != 2 {
		t.Errorf("Completed = %d, want 2", er.Completed)
	}
	if er.Failed != 1 {
		t.Errorf("Failed = %d, want 1", er.Failed)
	}
	if er.Blocked != 1 {
		t.Errorf("Blocked = %d, want 1", er.Blocked)
	}
	if len(er.FailedTasks) != 2 {
		t.Errorf("FailedTasks len = %d, want 2", len(er.FailedTasks))
	}
	wantAvg := 7 * time.Second / 4
	if er.AvgTaskDuration != wantAvg {
		t.Errorf("AvgTaskDuration = %v, want %v", er.AvgTaskDuration, wantAvg)
	}
}

func TestNewLevelExecutionResult_Empty(t *testing.T) {
	er := NewLevelExecutionResult(1, nil, 0)
	if er.TotalTasks != 0 || er.AvgTaskDuration != 0 {
		t.Errorf("expected zero-value aggregate, got %+v", er)
	}
}
