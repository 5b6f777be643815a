package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waveforge/orc/internal/models"
)

func TestConsoleLoggerTaskCompleted(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf)
	cl.TaskCompleted("T1", 1, models.TaskCompleted, "1.2s")
	out := buf.String()
	require.Contains(t, out, "T1")
	require.Contains(t, out, "COMPLETED")
}

func TestConsoleLoggerNoColorForNonTTY(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf)
	require.False(t, cl.color)
}

func TestFileLoggerWritesRunFileAndSymlink(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLogger(dir)
	require.NoError(t, err)
	defer fl.Close()

	fl.TaskStarted("T1", 1, 0)
	fl.Escalation(models.Escalation{WorkerID: 0, TaskID: "T1", Category: models.CategoryAmbiguousSpec, Message: "unclear"})

	latest := filepath.Join(dir, "latest.log")
	info, err := os.Lstat(latest)
	require.NoError(t, err)
	require.True(t, info.Mode()&os.ModeSymlink != 0)

	target, err := os.Readlink(latest)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(target, "run-"))

	data, err := os.ReadFile(latest)
	require.NoError(t, err)
	require.Contains(t, string(data), "task_started")
	require.Contains(t, string(data), "escalation")
}

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	ml := MultiLogger{NewConsoleLogger(&a), NewConsoleLogger(&b)}
	ml.Infof("hello %s", "world")
	require.Contains(t, a.String(), "hello world")
	require.Contains(t, b.String(), "hello world")
}
