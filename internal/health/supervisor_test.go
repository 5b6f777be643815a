package health

import (
	"context"
	"testing"
	"time"

	"github.com/waveforge/orc/internal/models"
)

func TestSupervisor_WatchEmitsSignalsForTheRightWorker(t *testing.T) {
	sup := NewSupervisor(discardLog())
	sup.StallThreshold = 15 * time.Millisecond
	sup.PollInterval = 5 * time.Millisecond
	sup.MaxRestarts = 3

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	heartbeats := make(chan models.Heartbeat)
	sup.Watch(ctx, 7, heartbeats)

	select {
	case sig := <-sup.Signals():
		if sig.WorkerID != 7 {
			t.Fatalf("WorkerID = %d, want 7", sig.WorkerID)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected a signal before timeout")
	}
}

func TestSupervisor_StopCancelsMonitor(t *testing.T) {
	sup := NewSupervisor(discardLog())
	sup.StallThreshold = 10 * time.Millisecond
	sup.PollInterval = 5 * time.Millisecond

	ctx := context.Background()
	heartbeats := make(chan models.Heartbeat)
	sup.Watch(ctx, 1, heartbeats)
	sup.Stop(1)

	select {
	case sig := <-sup.Signals():
		t.Fatalf("did not expect a signal after Stop, got %+v", sig)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSupervisor_StopAllCancelsEveryMonitor(t *testing.T) {
	sup := NewSupervisor(discardLog())
	sup.StallThreshold = 10 * time.Millisecond
	sup.PollInterval = 5 * time.Millisecond

	ctx := context.Background()
	sup.Watch(ctx, 1, make(chan models.Heartbeat))
	sup.Watch(ctx, 2, make(chan models.Heartbeat))
	sup.StopAll()

	select {
	case sig := <-sup.Signals():
		t.Fatalf("did not expect a signal after StopAll, got %+v", sig)
	case <-time.After(100 * time.Millisecond):
	}
}
