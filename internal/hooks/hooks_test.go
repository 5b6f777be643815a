package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/waveforge/orc/internal/config"
)

func TestBus_EmitDispatchesToCallback(t *testing.T) {
	b := NewBus(nil)
	var got Payload
	b.On(TaskStarted, func(p Payload) { got = p })

	b.Emit(context.Background(), Payload{Event: TaskStarted, TaskID: "T1", Level: 2})

	if got.TaskID != "T1" || got.Level != 2 {
		t.Fatalf("callback did not receive expected payload: %+v", got)
	}
}

func TestBus_PanicIsolation(t *testing.T) {
	b := NewBus(nil)
	called := false
	b.On(TaskCompleted, func(Payload) { panic("boom") })
	b.On(TaskCompleted, func(Payload) { called = true })

	b.Emit(context.Background(), Payload{Event: TaskCompleted})

	if !called {
		t.Fatal("a panicking callback must not prevent other callbacks from running")
	}
}

type fakeRunner struct {
	ran     bool
	command string
}

func (f *fakeRunner) Run(ctx context.Context, command string, timeout time.Duration) error {
	f.ran = true
	f.command = command
	return nil
}

func TestBus_ShellHookDispatch(t *testing.T) {
	b := NewBus(nil)
	fr := &fakeRunner{}
	b.runner = fr
	b.RegisterShellHooks([]config.HookConfig{
		{Event: string(LevelComplete), Command: "echo hi", Timeout: time.Second},
	})

	b.Emit(context.Background(), Payload{Event: LevelComplete})

	if !fr.ran || fr.command != "echo hi" {
		t.Fatalf("expected shell hook to run, got ran=%v command=%q", fr.ran, fr.command)
	}
}

func TestBus_EmitIsNoOpForUnregisteredEvent(t *testing.T) {
	b := NewBus(nil)
	// Should not panic or block even with nothing registered.
	b.Emit(context.Background(), Payload{Event: MergeComplete})
}
