package models

import "time"

// ExecutionAttempt represents a single worker attempt at a task (for retry
// tracking and escalation context).
type ExecutionAttempt struct {
	Attempt     int           // Attempt number (1-indexed)
	AgentOutput string        // Raw JSON output from the worker's agent process
	GateResult  string        // Raw JSON output from the quality gate, if one ran
	Verdict     GateVerdict   // Gate verdict for this attempt, if any
	Duration    time.Duration
}

// TaskResult is the worker runtime's record of executing a single task,
// independent of the TaskRecord held by the State Manager (this is richer
// and retained for reporting, not for scheduling decisions).
type TaskResult struct {
	TaskID           string             // The task's identifier
	Status           TaskStatus         // Final status reached
	Output           string             // Captured output from the agent
	Error            error              // Error if execution failed
	Duration         time.Duration      // Time taken to execute
	RetryCount       int                // Number of retries attempted
	ExecutionHistory []ExecutionAttempt // Detailed history of all attempts
	SessionID        string             // Resume hint (for checkpoint/retry)
}

// LevelExecutionResult is the aggregate result of executing one level:
// every task attempted, broken down by final status, for the operator
// summary the merge coordinator and report package render.
type LevelExecutionResult struct {
	LevelIndex      int                  `json:"level_index" yaml:"level_index"`
	TotalTasks      int                  `json:"total_tasks" yaml:"total_tasks"`
	Completed       int                  `json:"completed" yaml:"completed"`
	Failed          int                  `json:"failed" yaml:"failed"`
	Blocked         int                  `json:"blocked" yaml:"blocked"`
	Duration        time.Duration        `json:"duration" yaml:"duration"`
	FailedTasks     []TaskResult         `json:"failed_tasks" yaml:"failed_tasks"`
	StatusBreakdown map[TaskStatus]int   `json:"status_breakdown" yaml:"status_breakdown"`
	AvgTaskDuration time.Duration        `json:"avg_task_duration" yaml:"avg_task_duration"`
}

// NewLevelExecutionResult aggregates a slice of TaskResults into a
// LevelExecutionResult, computing status breakdowns and average duration.
func NewLevelExecutionResult(levelIndex int, results []TaskResult, totalDuration time.Duration) *LevelExecutionResult {
	er := &LevelExecutionResult{
		LevelIndex:      levelIndex,
		TotalTasks:      len(results),
		Duration:        totalDuration,
		FailedTasks:     []TaskResult{},
		StatusBreakdown: make(map[TaskStatus]int),
	}

	var totalDur time.Duration
	for _, result := range results {
		er.StatusBreakdown[result.Status]++
		totalDur += result.Duration

		switch result.Status {
		case TaskCompleted:
			er.Completed++
		case TaskBlocked:
			er.Blocked++
			er.FailedTasks = append(er.FailedTasks, result)
		case TaskFailed:
			er.Failed++
			er.FailedTasks = append(er.FailedTasks, result)
		}
	}

	if len(results) > 0 {
		er.AvgTaskDuration = totalDur / time.Duration(len(results))
	}

	return er
}
