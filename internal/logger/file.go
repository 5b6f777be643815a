package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/waveforge/orc/internal/models"
)

// FileLogger writes orchestrator events to a timestamped per-run log file
// under logDir, and maintains a latest.log symlink pointing at it, exactly
// as the teacher's FileLogger does for .conductor/logs/.
type FileLogger struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileLogger creates logDir if needed, opens a new run-<timestamp>.log
// file, and refreshes the latest.log symlink to point at it.
func NewFileLogger(logDir string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}

	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logger: open run log: %w", err)
	}

	symlink := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlink); err == nil {
		if err := os.Remove(symlink); err != nil {
			f.Close()
			return nil, fmt.Errorf("logger: remove stale symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlink); err != nil {
		f.Close()
		return nil, fmt.Errorf("logger: create latest.log symlink: %w", err)
	}

	return &FileLogger{file: f}, nil
}

func (fl *FileLogger) write(format string, args ...interface{}) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	ts := time.Now().Format(time.RFC3339)
	fmt.Fprintf(fl.file, "%s %s\n", ts, fmt.Sprintf(format, args...))
}

// Close flushes and closes the underlying run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.file.Close()
}

func (fl *FileLogger) TaskStarted(taskID string, level, workerID int) {
	fl.write("task_started level=%d task=%s worker=%d", level, taskID, workerID)
}

func (fl *FileLogger) TaskCompleted(taskID string, level int, status models.TaskStatus, duration string) {
	fl.write("task_completed level=%d task=%s status=%s duration=%s", level, taskID, status, duration)
}

func (fl *FileLogger) LevelComplete(level int, result models.LevelExecutionResult) {
	fl.write("level_complete level=%d completed=%d failed=%d blocked=%d duration=%s",
		level, result.Completed, result.Failed, result.Blocked, result.Duration)
}

func (fl *FileLogger) MergeComplete(level int, mergeCommit string) {
	fl.write("merge_complete level=%d commit=%s", level, mergeCommit)
}

func (fl *FileLogger) WorkerSpawned(workerID int, branch string) {
	fl.write("worker_spawned worker=%d branch=%s", workerID, branch)
}

func (fl *FileLogger) QualityGateRun(level int, gate string, verdict models.GateVerdict) {
	fl.write("quality_gate_run level=%d gate=%s verdict=%s", level, gate, verdict)
}

func (fl *FileLogger) Escalation(e models.Escalation) {
	fl.write("escalation worker=%d task=%s category=%s message=%q", e.WorkerID, e.TaskID, e.Category, e.Message)
}

func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.write("WARN "+format, args...)
}

func (fl *FileLogger) Infof(format string, args ...interface{}) {
	fl.write("INFO "+format, args...)
}
