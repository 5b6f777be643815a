// Package config loads the orchestrator's YAML configuration: worker pool
// sizing, timeouts, health-monitor thresholds, merge/gate settings, and
// hook registration. Grounded on the teacher's internal/config/config.go
// struct-tag-driven Config/DefaultConfig pattern, trimmed to the concerns
// this spec's components actually read.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConsoleConfig controls terminal output formatting for internal/logger.
type ConsoleConfig struct {
	EnableColor       bool `yaml:"enable_color"`
	EnableProgressBar bool `yaml:"enable_progress_bar"`
	ShowWorkerDetails bool `yaml:"show_worker_details"`
	CompactMode       bool `yaml:"compact_mode"`
}

// WorkerConfig bounds the worker pool and per-task retry/checkpoint policy
// (spec.md §4.3, §4.6).
type WorkerConfig struct {
	// Count is the requested worker pool size; the orchestrator clamps it
	// to MaxParallelization at the current level and MaxCount.
	Count int `yaml:"count"`

	// MaxCount is the hard ceiling on worker pool size regardless of level
	// width or the requested Count.
	MaxCount int `yaml:"max_count"`

	// MaxRetries is the per-task retry limit before a task transitions
	// FAILED -> BLOCKED (spec.md §3 task lifecycle).
	MaxRetries int `yaml:"max_retries"`

	// HeartbeatInterval is the heartbeat cadence setting (default 15s). It
	// is not passed to the Worker Runtime, which reports a heartbeat at
	// each step of the task loop rather than on a timer.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// CheckpointThreshold is the context_usage fraction at which a worker
	// checkpoints in-progress work (spec.md §4.3 step 9, default 0.70).
	CheckpointThreshold float64 `yaml:"checkpoint_threshold"`

	// InvokeTimeout bounds a single agent process invocation.
	InvokeTimeout time.Duration `yaml:"invoke_timeout"`
}

// HealthConfig configures the Health Monitor's stall detection and
// auto-restart policy (spec.md §4.4).
type HealthConfig struct {
	// StallThreshold is how long a worker may go without a heartbeat
	// before being declared STALLED (default 120s).
	StallThreshold time.Duration `yaml:"stall_threshold"`

	// MaxAutoRestarts bounds how many times a stalled worker is
	// auto-restarted before its task is FAILED and returned to PENDING
	// (default 2).
	MaxAutoRestarts int `yaml:"max_auto_restarts"`

	// PollInterval is how often the monitor sweeps for stalls.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// GateConfig describes one registered quality gate run during merge
// (spec.md §4.5 step 4).
type GateConfig struct {
	Name     string        `yaml:"name"`
	Command  string        `yaml:"command"`
	Required bool          `yaml:"required"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MergeConfig configures the Merge Coordinator (spec.md §4.5).
type MergeConfig struct {
	// SyntaxCommand is the optional tier-1 blocking syntax/lint check a
	// worker runs before the correctness tier (spec.md §4.3 step 4).
	SyntaxCommand string `yaml:"syntax_command"`

	// QualityCommand is the optional tier-3 non-blocking quality check.
	QualityCommand string `yaml:"quality_command"`

	// Gates is the registered quality-gate list, run in order during
	// promotion in addition to any gates a hook registers at runtime.
	Gates []GateConfig `yaml:"gates"`

	// Force makes merge proceed past BLOCKED tasks and merge conflicts,
	// matching the `force` flag of the abstract merge(level, {force}) op.
	Force bool `yaml:"force"`
}

// HookConfig configures a shell-based lifecycle hook (spec.md §4.7).
type HookConfig struct {
	Event   string        `yaml:"event"`
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// Config is the orchestrator's top-level configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_dir"`

	// HistoryEnabled turns on the sqlite audit ledger alongside the
	// authoritative Tier A/B snapshot (spec.md §4.2), for operators who
	// want a queryable transition/escalation history. Defaults off: the
	// ledger is purely a convenience, never read for scheduling decisions.
	HistoryEnabled bool `yaml:"history_enabled"`

	// GracefulStopTimeout bounds how long the scheduler waits for running
	// workers to checkpoint before forcing termination (spec.md §4.6).
	GracefulStopTimeout time.Duration `yaml:"graceful_stop_timeout"`

	// HookTimeout bounds a registered shell hook's runtime (spec.md §4.7).
	HookTimeout time.Duration `yaml:"hook_timeout"`

	Console ConsoleConfig `yaml:"console"`
	Worker  WorkerConfig  `yaml:"worker"`
	Health  HealthConfig  `yaml:"health"`
	Merge   MergeConfig   `yaml:"merge"`
	Hooks   []HookConfig  `yaml:"hooks"`
}

// DefaultConfig returns a Config with the defaults spec.md names explicitly:
// 15s heartbeat, 0.70 checkpoint threshold, 120s stall threshold, 2
// auto-restarts, 3 max retries, 30s graceful stop timeout.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:            "info",
		LogDir:              ".orc/logs",
		GracefulStopTimeout: 30 * time.Second,
		HookTimeout:         60 * time.Second,
		Console: ConsoleConfig{
			EnableColor:       true,
			EnableProgressBar: true,
			ShowWorkerDetails: true,
		},
		Worker: WorkerConfig{
			Count:               4,
			MaxCount:            16,
			MaxRetries:          3,
			HeartbeatInterval:   15 * time.Second,
			CheckpointThreshold: 0.70,
			InvokeTimeout:       20 * time.Minute,
		},
		Health: HealthConfig{
			StallThreshold:  120 * time.Second,
			MaxAutoRestarts: 2,
			PollInterval:    15 * time.Second,
		},
		Merge: MergeConfig{},
	}
}

// Load reads and parses a YAML config file at path, applying it over
// DefaultConfig so unspecified fields keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
