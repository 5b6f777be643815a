// Package logger provides the orchestrator's operator-facing logging:
// a console implementation with TTY-aware status coloring and a file
// implementation that writes timestamped per-run logs. Grounded on the
// teacher's internal/logger/{console,file}.go, trimmed to the lifecycle
// events this spec's Orchestrator and Hook surface emit (spec.md §4.7).
package logger

import "github.com/waveforge/orc/internal/models"

// Logger is implemented by every sink the orchestrator reports progress
// to. Methods correspond to the lifecycle events of spec.md §4.7 plus the
// escalation artifact of §6.
type Logger interface {
	TaskStarted(taskID string, level int, workerID int)
	TaskCompleted(taskID string, level int, status models.TaskStatus, duration string)
	LevelComplete(level int, result models.LevelExecutionResult)
	MergeComplete(level int, mergeCommit string)
	WorkerSpawned(workerID int, branch string)
	QualityGateRun(level int, gate string, verdict models.GateVerdict)
	Escalation(e models.Escalation)
	Warnf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}

// MultiLogger fans a single call out to every logger it wraps, so the
// orchestrator can report to the console and a file logger at once.
type MultiLogger []Logger

func (m MultiLogger) TaskStarted(taskID string, level, workerID int) {
	for _, l := range m {
		l.TaskStarted(taskID, level, workerID)
	}
}

func (m MultiLogger) TaskCompleted(taskID string, level int, status models.TaskStatus, duration string) {
	for _, l := range m {
		l.TaskCompleted(taskID, level, status, duration)
	}
}

func (m MultiLogger) LevelComplete(level int, result models.LevelExecutionResult) {
	for _, l := range m {
		l.LevelComplete(level, result)
	}
}

func (m MultiLogger) MergeComplete(level int, mergeCommit string) {
	for _, l := range m {
		l.MergeComplete(level, mergeCommit)
	}
}

func (m MultiLogger) WorkerSpawned(workerID int, branch string) {
	for _, l := range m {
		l.WorkerSpawned(workerID, branch)
	}
}

func (m MultiLogger) QualityGateRun(level int, gate string, verdict models.GateVerdict) {
	for _, l := range m {
		l.QualityGateRun(level, gate, verdict)
	}
}

func (m MultiLogger) Escalation(e models.Escalation) {
	for _, l := range m {
		l.Escalation(e)
	}
}

func (m MultiLogger) Warnf(format string, args ...interface{}) {
	for _, l := range m {
		l.Warnf(format, args...)
	}
}

func (m MultiLogger) Infof(format string, args ...interface{}) {
	for _, l := range m {
		l.Infof(format, args...)
	}
}
