package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/waveforge/orc/internal/models"
)

// Supervisor runs one Monitor per active worker and fans every monitor's
// signal into a single channel the Orchestrator consumes.
type Supervisor struct {
	StallThreshold time.Duration
	PollInterval   time.Duration
	MaxRestarts    int
	Log            zerolog.Logger

	mu      sync.Mutex
	cancels map[int]context.CancelFunc
	signals chan Signal
}

// NewSupervisor returns a ready Supervisor.
func NewSupervisor(log zerolog.Logger) *Supervisor {
	return &Supervisor{
		Log:     log,
		cancels: make(map[int]context.CancelFunc),
		signals: make(chan Signal, 16),
	}
}

// Signals returns the channel the Orchestrator reads restart/terminate
// requests from.
func (s *Supervisor) Signals() <-chan Signal {
	return s.signals
}

// Watch starts monitoring workerID's heartbeat stream, replacing any prior
// monitor for the same worker slot (used when a worker is restarted).
func (s *Supervisor) Watch(ctx context.Context, workerID int, heartbeats <-chan models.Heartbeat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.cancels[workerID]; ok {
		cancel()
	}

	monCtx, cancel := context.WithCancel(ctx)
	mon := NewMonitor(workerID, heartbeats, s.signals, s.Log)
	if s.StallThreshold > 0 {
		mon.StallThreshold = s.StallThreshold
	}
	if s.PollInterval > 0 {
		mon.PollInterval = s.PollInterval
	}
	if s.MaxRestarts > 0 {
		mon.MaxRestarts = s.MaxRestarts
	}

	s.cancels[workerID] = cancel
	go mon.Run(monCtx)
}

// Stop cancels monitoring for workerID (the worker finished its level
// cleanly and no longer needs stall detection).
func (s *Supervisor) Stop(workerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[workerID]; ok {
		cancel()
		delete(s.cancels, workerID)
	}
}

// StopAll cancels every monitor, used on scheduler shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = make(map[int]context.CancelFunc)
}
