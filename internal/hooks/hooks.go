// Package hooks implements the narrow, observer-only lifecycle surface of
// spec.md §4.7: named events carrying a read-only payload, dispatched to
// in-process callbacks and registered shell commands. Hooks may not mutate
// scheduler state and a panicking or slow hook must never take down the
// Orchestrator — generalized from the teacher's concrete hook family
// (setup_hook.go, rollback_hook.go, branch_guard_hook.go,
// checkpoint_cleanup_hook.go) into one event-bus shape.
package hooks

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/waveforge/orc/internal/config"
	"github.com/waveforge/orc/internal/logger"
)

// Event names the lifecycle events of spec.md §4.7.
type Event string

const (
	TaskStarted       Event = "task_started"
	TaskCompleted     Event = "task_completed"
	LevelComplete     Event = "level_complete"
	MergeComplete     Event = "merge_complete"
	WorkerSpawned     Event = "worker_spawned"
	QualityGateRun    Event = "quality_gate_run"
	ExecutionStarted  Event = "execution_started"
	ExecutionFinished Event = "execution_finished"
)

// Payload is the read-only data a hook receives. Fields are populated
// according to the event; a callback should only read the ones relevant to
// the event it registered for.
type Payload struct {
	Event     Event
	Timestamp time.Time
	Feature   string
	TaskID    string
	Level     int
	WorkerID  int
	Branch    string
	Gate      string
	Status    string
	Duration  time.Duration
	Extra     map[string]string
}

// Callback is an in-process observer. It must not mutate scheduler state;
// the Bus isolates panics so a misbehaving callback cannot crash the
// Orchestrator.
type Callback func(Payload)

// Bus fans one Emit call out to every registered in-process callback and
// shell hook for that event, each isolated and time-bounded.
type Bus struct {
	mu        sync.RWMutex
	callbacks map[Event][]Callback
	shell     map[Event][]config.HookConfig
	runner    CommandRunner
	log       logger.Logger
}

// CommandRunner abstracts shell hook execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, command string, timeout time.Duration) error
}

// ShellRunner runs a hook command through "/bin/sh -c" with a hard timeout,
// matching the teacher's subprocess-with-timeout hook pattern.
type ShellRunner struct{}

// Run implements CommandRunner.
func (ShellRunner) Run(ctx context.Context, command string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	return cmd.Run()
}

// NewBus returns a ready Bus. log may be nil.
func NewBus(log logger.Logger) *Bus {
	return &Bus{
		callbacks: make(map[Event][]Callback),
		shell:     make(map[Event][]config.HookConfig),
		runner:    ShellRunner{},
		log:       log,
	}
}

// RegisterShellHooks wires a Config's declared shell hooks into the bus,
// keyed by their configured event name.
func (b *Bus) RegisterShellHooks(hooks []config.HookConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range hooks {
		b.shell[Event(h.Event)] = append(b.shell[Event(h.Event)], h)
	}
}

// On registers an in-process callback for event.
func (b *Bus) On(event Event, cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks[event] = append(b.callbacks[event], cb)
}

// Emit dispatches payload to every callback and shell hook registered for
// its event. Each callback is isolated: a panic is recovered and logged,
// never propagated to the caller. Shell hooks run under their configured
// timeout (default 60s) and a failure is logged, not returned, since hooks
// are observer-only and must never block or fail the Orchestrator.
func (b *Bus) Emit(ctx context.Context, payload Payload) {
	b.mu.RLock()
	callbacks := append([]Callback(nil), b.callbacks[payload.Event]...)
	shellHooks := append([]config.HookConfig(nil), b.shell[payload.Event]...)
	b.mu.RUnlock()

	for _, cb := range callbacks {
		b.invoke(cb, payload)
	}
	for _, h := range shellHooks {
		if err := b.runner.Run(ctx, h.Command, h.Timeout); err != nil {
			b.warnf("hooks: shell hook %q for %s failed: %v", h.Command, payload.Event, err)
		}
	}
}

// invoke runs cb with panic isolation.
func (b *Bus) invoke(cb Callback, payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			b.warnf("hooks: callback for %s panicked: %v", payload.Event, r)
		}
	}()
	cb(payload)
}

func (b *Bus) warnf(format string, args ...interface{}) {
	if b.log != nil {
		b.log.Warnf(format, args...)
	}
}
