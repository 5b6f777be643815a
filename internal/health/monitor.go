// Package health implements the Health Monitor: it watches each worker's
// heartbeat stream for staleness and signals the Orchestrator to restart
// or terminate a stalled worker (spec.md §4.4). It never mutates task or
// worker state itself — only the Orchestrator applies state changes,
// through the State Manager's single-writer discipline.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/waveforge/orc/internal/models"
)

// StallThreshold is the default heartbeat staleness threshold (spec.md §4.4).
const StallThreshold = 120 * time.Second

// MaxAutoRestarts bounds how many times the monitor asks the Orchestrator
// to restart a stalled worker before giving up on it (spec.md §4.4).
const MaxAutoRestarts = 2

// defaultPollInterval is how often a Monitor checks for staleness between
// heartbeats, grounded on the teacher's RateLimitWaiter ticker pattern.
const defaultPollInterval = 5 * time.Second

// SignalKind is what a Monitor is asking the Orchestrator to do.
type SignalKind string

const (
	SignalRestart   SignalKind = "RESTART"
	SignalTerminate SignalKind = "TERMINATE"
)

// Signal is a Monitor's report to the Orchestrator.
type Signal struct {
	WorkerID int
	Kind     SignalKind
}

// Monitor watches a single worker's heartbeat channel for staleness.
type Monitor struct {
	WorkerID       int
	StallThreshold time.Duration
	PollInterval   time.Duration
	MaxRestarts    int

	Heartbeats <-chan models.Heartbeat
	Signals    chan<- Signal
	Log        zerolog.Logger

	mu           sync.Mutex
	lastSeen     time.Time
	lastRestart  time.Time
	restartCount int
}

// NewMonitor returns a Monitor with spec.md §4.4's defaults, ready to Run.
func NewMonitor(workerID int, heartbeats <-chan models.Heartbeat, signals chan<- Signal, log zerolog.Logger) *Monitor {
	return &Monitor{
		WorkerID:       workerID,
		StallThreshold: StallThreshold,
		PollInterval:   defaultPollInterval,
		MaxRestarts:    MaxAutoRestarts,
		Heartbeats:     heartbeats,
		Signals:        signals,
		Log:            log,
		lastSeen:       time.Now(),
	}
}

// Run blocks, consuming heartbeats and polling for staleness, until ctx is
// cancelled.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case hb, ok := <-m.Heartbeats:
			if !ok {
				return
			}
			m.touch(hb.Timestamp)
		case <-ticker.C:
			m.checkStale()
		}
	}
}

// touch records a fresh heartbeat and, once the worker has stayed healthy
// for a full threshold window since its last forced restart, clears the
// restart count. The window matters: the attempt a restart itself spawns
// always sends an immediate heartbeat, and counting that as "recovered"
// would let a worker loop forever at one restart instead of ever reaching
// MaxRestarts.
func (m *Monitor) touch(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen = at
	threshold := m.StallThreshold
	if threshold <= 0 {
		threshold = StallThreshold
	}
	if m.lastRestart.IsZero() || at.Sub(m.lastRestart) >= threshold {
		m.restartCount = 0
	}
}

func (m *Monitor) checkStale() {
	threshold := m.StallThreshold
	if threshold <= 0 {
		threshold = StallThreshold
	}
	maxRestarts := m.MaxRestarts
	if maxRestarts <= 0 {
		maxRestarts = MaxAutoRestarts
	}

	m.mu.Lock()
	stale := time.Since(m.lastSeen) >= threshold
	restarts := m.restartCount
	m.mu.Unlock()

	if !stale {
		return
	}

	if restarts >= maxRestarts {
		m.Log.Warn().Int("worker_id", m.WorkerID).Msg("worker stalled past max auto-restarts, terminating")
		m.emit(Signal{WorkerID: m.WorkerID, Kind: SignalTerminate})
		return
	}

	m.mu.Lock()
	m.restartCount++
	m.lastSeen = time.Now()
	m.lastRestart = m.lastSeen
	m.mu.Unlock()

	m.Log.Warn().Int("worker_id", m.WorkerID).Int("attempt", restarts+1).Msg("worker stalled, requesting restart")
	m.emit(Signal{WorkerID: m.WorkerID, Kind: SignalRestart})
}

func (m *Monitor) emit(sig Signal) {
	select {
	case m.Signals <- sig:
	default:
	}
}
