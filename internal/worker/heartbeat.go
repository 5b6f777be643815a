package worker

import (
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/waveforge/orc/internal/filelock"
	"github.com/waveforge/orc/internal/models"
	"gopkg.in/yaml.v3"
)

// HeartbeatInterval is the 15-second heartbeat cadence. Nothing in this
// package reads it: Runner reports a heartbeat at each step of the task
// loop, not on a timer, so no heartbeat is published while a single step
// (such as an agent invocation) is running.
const HeartbeatInterval = 15 * time.Second

// HeartbeatPublisher fans a worker's progress out two ways: an in-process
// channel the Health Monitor reads directly (grounded in the Open Question
// decision that heartbeats are channel-fed, not file-polled, since the
// Worker Runtime and Health Monitor share a process) and a per-worker
// artifact file overwritten on every report for external visibility
// (spec.md §6 "Heartbeat artifact").
type HeartbeatPublisher struct {
	workerID     int
	artifactPath string

	mu     sync.Mutex
	latest models.Heartbeat

	ch chan models.Heartbeat
}

// NewHeartbeatPublisher creates a publisher that writes its artifact under
// artifactDir as heartbeat-worker-<id>.yaml.
func NewHeartbeatPublisher(workerID int, artifactDir string) *HeartbeatPublisher {
	return &HeartbeatPublisher{
		workerID:     workerID,
		artifactPath: filepath.Join(artifactDir, heartbeatFileName(workerID)),
		ch:           make(chan models.Heartbeat, 1),
	}
}

func heartbeatFileName(workerID int) string {
	return "heartbeat-worker-" + strconv.Itoa(workerID) + ".yaml"
}

// Report publishes a new heartbeat: it updates the latest-known value,
// offers it on the channel (non-blocking — a slow or absent consumer never
// stalls the worker loop), and rewrites the disk artifact.
func (p *HeartbeatPublisher) Report(taskID string, step models.WorkerStep, progressPct float64) {
	hb := models.Heartbeat{
		WorkerID:    p.workerID,
		Timestamp:   time.Now(),
		TaskID:      taskID,
		Step:        step,
		ProgressPct: progressPct,
	}

	p.mu.Lock()
	p.latest = hb
	p.mu.Unlock()

	select {
	case p.ch <- hb:
	default:
	}

	_ = p.writeArtifact(hb)
}

func (p *HeartbeatPublisher) writeArtifact(hb models.Heartbeat) error {
	data, err := yaml.Marshal(hb)
	if err != nil {
		return err
	}
	return filelock.AtomicWrite(p.artifactPath, data)
}

// Latest returns the most recently reported heartbeat.
func (p *HeartbeatPublisher) Latest() models.Heartbeat {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Channel returns the read side of the in-process fan-out the Health
// Monitor subscribes to.
func (p *HeartbeatPublisher) Channel() <-chan models.Heartbeat {
	return p.ch
}
