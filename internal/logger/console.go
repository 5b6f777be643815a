package logger

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/waveforge/orc/internal/models"
)

// statusColor picks the color a task/level status renders in, mirroring
// the teacher's GREEN/RED/YELLOW verdict coloring generalized to
// spec.md's TaskStatus set: COMPLETED is green, FAILED/BLOCKED is red,
// PAUSED is yellow, everything else is cyan.
func statusColor(status models.TaskStatus) *color.Color {
	switch status {
	case models.TaskCompleted:
		return color.New(color.FgGreen)
	case models.TaskFailed, models.TaskBlocked:
		return color.New(color.FgRed)
	case models.TaskPaused:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

// ConsoleLogger writes timestamped, optionally colorized progress lines to
// a writer. Color is enabled only when the writer is a terminal, as detected
// via go-isatty.
type ConsoleLogger struct {
	writer io.Writer
	color  bool
	mu     sync.Mutex
}

// NewConsoleLogger returns a ConsoleLogger writing to w. Color output is
// enabled automatically when w is a terminal (os.Stdout/os.Stderr with TTY
// support), matching the teacher's isTerminal detection.
func NewConsoleLogger(w io.Writer) *ConsoleLogger {
	return &ConsoleLogger{writer: w, color: isTerminalWriter(w)}
}

func isTerminalWriter(w io.Writer) bool {
	type fdGetter interface{ Fd() uintptr }
	f, ok := w.(fdGetter)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *ConsoleLogger) line(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(c.writer, "[%s] %s\n", ts, fmt.Sprintf(format, args...))
}

func (c *ConsoleLogger) colored(col *color.Color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.color {
		msg = col.Sprint(msg)
	}
	c.line("%s", msg)
}

func (c *ConsoleLogger) TaskStarted(taskID string, level, workerID int) {
	c.line("[L%d] worker %d claimed %s", level, workerID, taskID)
}

func (c *ConsoleLogger) TaskCompleted(taskID string, level int, status models.TaskStatus, duration string) {
	c.colored(statusColor(status), "[L%d] %s -> %s (%s)", level, taskID, status, duration)
}

func (c *ConsoleLogger) LevelComplete(level int, result models.LevelExecutionResult) {
	c.line("level %d complete: %d completed, %d failed, %d blocked (%s)",
		level, result.Completed, result.Failed, result.Blocked, result.Duration)
}

func (c *ConsoleLogger) MergeComplete(level int, mergeCommit string) {
	c.colored(color.New(color.FgGreen), "level %d merged -> %s", level, mergeCommit)
}

func (c *ConsoleLogger) WorkerSpawned(workerID int, branch string) {
	c.line("worker %d spawned on branch %s", workerID, branch)
}

func (c *ConsoleLogger) QualityGateRun(level int, gate string, verdict models.GateVerdict) {
	col := color.New(color.FgGreen)
	if verdict == models.GateVerdictFail || verdict == models.GateVerdictError {
		col = color.New(color.FgRed)
	} else if verdict == models.GateVerdictTimeout {
		col = color.New(color.FgYellow)
	}
	c.colored(col, "level %d gate %q -> %s", level, gate, verdict)
}

func (c *ConsoleLogger) Escalation(e models.Escalation) {
	c.colored(color.New(color.FgRed), "ESCALATION worker %d task %s [%s]: %s", e.WorkerID, e.TaskID, e.Category, e.Message)
}

func (c *ConsoleLogger) Warnf(format string, args ...interface{}) {
	c.colored(color.New(color.FgYellow), format, args...)
}

func (c *ConsoleLogger) Infof(format string, args ...interface{}) {
	c.line(format, args...)
}
