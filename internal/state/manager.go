// Package state implements the two-tier State Manager: an in-process
// authoritative task/worker/level registry (Tier A) backed by a durably
// persisted snapshot (Tier B), reconciled on startup and rewritten after
// every mutation under a single-writer discipline (spec.md §4.2).
package state

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/waveforge/orc/internal/filelock"
	"github.com/waveforge/orc/internal/models"
	"gopkg.in/yaml.v3"
)

// Manager is the authoritative State Manager for one feature's execution.
// All mutations are serialized through mu (the "single-writer discipline"
// of spec.md §5); Tier A is the state field, Tier B is the file at
// snapshotPath.
type Manager struct {
	mu           sync.Mutex
	state        *models.FeatureState
	graph        *models.TaskGraph
	snapshotPath string
	backupPath   string
	lock         *filelock.FileLock

	// history is the optional sqlite audit ledger (see history.go). It is
	// never read to make scheduling decisions, so a write failure here is
	// logged and swallowed rather than failing the caller's state mutation.
	history    *History
	historyLog func(error)
}

// EnableHistory attaches a sqlite-backed audit ledger to the Manager: every
// UpdateTaskStatus transition and escalation recorded from here on is also
// appended to it for operator inspection, alongside the authoritative
// Tier A/B snapshot. ClaimTask's PENDING -> IN_PROGRESS claim is not
// written to the ledger. onError, if non-nil, receives any ledger write failure
// (the state mutation itself still succeeds).
func (m *Manager) EnableHistory(h *History, onError func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = h
	m.historyLog = onError
}

// Open reconciles Tier A and Tier B and returns a ready Manager. If a
// snapshot already exists at snapshotPath it seeds Tier A (cold start);
// otherwise a fresh FeatureState is derived from graph and immediately
// persisted, so Tier B always exists once Open returns.
func Open(graph *models.TaskGraph, snapshotPath string) (*Manager, error) {
	m := &Manager{
		graph:        graph,
		snapshotPath: snapshotPath,
		backupPath:   snapshotPath + ".bak",
		lock:         filelock.NewFileLock(snapshotPath + ".lock"),
	}

	if err := m.lock.Lock(); err != nil {
		return nil, fmt.Errorf("state: acquire lock: %w", err)
	}
	defer m.lock.Unlock()

	existing, err := loadSnapshot(snapshotPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("state: load snapshot: %w", err)
	}

	if existing != nil {
		m.state = reconcile(existing, graph)
	} else {
		m.state = models.NewFeatureState(graph)
	}

	if err := m.persistLocked(); err != nil {
		return nil, fmt.Errorf("state: seed snapshot: %w", err)
	}

	return m, nil
}

// reconcile seeds any task/level present in graph but missing from a
// loaded snapshot (e.g. the graph grew since the snapshot was written),
// leaving every existing record untouched. Tier A, once running, is
// authoritative; this only runs once at cold start to fill gaps.
func reconcile(loaded *models.FeatureState, graph *models.TaskGraph) *models.FeatureState {
	if loaded.Tasks == nil {
		loaded.Tasks = make(map[string]*models.TaskRecord)
	}
	if loaded.Workers == nil {
		loaded.Workers = make(map[int]*models.Worker)
	}
	if loaded.Levels == nil {
		loaded.Levels = make(map[int]*models.LevelRecord)
	}
	for id := range graph.Tasks {
		if _, ok := loaded.Tasks[id]; !ok {
			loaded.Tasks[id] = &models.TaskRecord{Status: models.TaskPending}
		}
	}
	for _, lvl := range graph.Levels {
		if _, ok := loaded.Levels[lvl.Index]; !ok {
			loaded.Levels[lvl.Index] = &models.LevelRecord{Status: models.LevelPending}
		}
	}
	if loaded.CurrentLevel == 0 {
		loaded.CurrentLevel = 1
	}
	return loaded
}

func loadSnapshot(path string) (*models.FeatureState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fs models.FeatureState
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &fs, nil
}

// persistLocked backs up the current Tier B contents (if any) and
// atomically writes the in-memory state. Caller must hold mu and m.lock.
func (m *Manager) persistLocked() error {
	if data, err := os.ReadFile(m.snapshotPath); err == nil {
		_ = filelock.AtomicWrite(m.backupPath, data)
	}

	m.state.UpdatedAt = nowFunc()
	data, err := yaml.Marshal(m.state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return filelock.AtomicWrite(m.snapshotPath, data)
}

// nowFunc is indirected so tests can pin a deterministic timestamp.
var nowFunc = time.Now

// GetTask returns a copy of a task's runtime record.
func (m *Manager) GetTask(taskID string) (models.TaskRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.state.Tasks[taskID]
	if !ok {
		return models.TaskRecord{}, false
	}
	return *rec, true
}

// ListTasks returns a snapshot copy of every task record, keyed by task ID.
func (m *Manager) ListTasks() map[string]models.TaskRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.TaskRecord, len(m.state.Tasks))
	for id, rec := range m.state.Tasks {
		out[id] = *rec
	}
	return out
}

// ClaimTask atomically transitions a task from PENDING to IN_PROGRESS for
// the given worker, but only if the task is currently PENDING and every
// dependency is COMPLETED (spec.md §4.2 "Atomic claim"). Returns false
// without mutating anything if the claim can't proceed.
func (m *Manager) ClaimTask(taskID string, workerID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.state.Tasks[taskID]
	if !ok || rec.Status != models.TaskPending {
		return false, nil
	}

	task, ok := m.graph.Tasks[taskID]
	if !ok {
		return false, fmt.Errorf("state: claim_task: task %q not in graph", taskID)
	}
	for _, dep := range task.Dependencies {
		depRec, ok := m.state.Tasks[dep]
		if !ok || depRec.Status != models.TaskCompleted {
			return false, nil
		}
	}

	now := nowFunc()
	rec.Status = models.TaskInProgress
	rec.AssignedWorkerID = &workerID
	rec.StartedAt = &now

	if err := m.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateTaskStatus applies a status transition to a task, validating it
// against the lifecycle in spec.md §3, and persists the change.
func (m *Manager) UpdateTaskStatus(taskID string, status models.TaskStatus, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.state.Tasks[taskID]
	if !ok {
		return fmt.Errorf("state: update_task_status: unknown task %q", taskID)
	}
	if !models.CanTransition(rec.Status, status) {
		return fmt.Errorf("state: illegal transition %s -> %s for task %q", rec.Status, status, taskID)
	}

	from := rec.Status
	workerID := -1
	if rec.AssignedWorkerID != nil {
		workerID = *rec.AssignedWorkerID
	}

	rec.Status = status
	if lastErr != "" {
		rec.LastError = lastErr
	}
	if status == models.TaskFailed {
		rec.RetryCount++
	}
	if status == models.TaskCompleted || status == models.TaskBlocked {
		now := nowFunc()
		rec.FinishedAt = &now
	}

	if err := m.persistLocked(); err != nil {
		return err
	}

	if m.history != nil {
		if err := m.history.RecordTransition(context.Background(), m.state.FeatureID, taskID, from, status, workerID, lastErr); err != nil && m.historyLog != nil {
			m.historyLog(err)
		}
	}
	return nil
}

// RecordWorkerHeartbeat upserts a worker's runtime snapshot and persists it.
func (m *Manager) RecordWorkerHeartbeat(w models.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w.LastHeartbeatAt = nowFunc()
	m.state.Workers[w.WorkerID] = &w
	return m.persistLocked()
}

// RecordEscalation appends an escalation record and persists it.
func (m *Manager) RecordEscalation(e models.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Escalations = append(m.state.Escalations, e)
	if err := m.persistLocked(); err != nil {
		return err
	}

	if m.history != nil {
		if err := m.history.RecordEscalation(context.Background(), m.state.FeatureID, e); err != nil && m.historyLog != nil {
			m.historyLog(err)
		}
	}
	return nil
}

// SetLevelStatus updates a level's runtime record and persists it.
func (m *Manager) SetLevelStatus(levelIndex int, status models.LevelStatus, mergeCommit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lvl, ok := m.state.Levels[levelIndex]
	if !ok {
		lvl = &models.LevelRecord{}
		m.state.Levels[levelIndex] = lvl
	}
	lvl.Status = status
	if mergeCommit != "" {
		lvl.MergeCommit = mergeCommit
	}
	if status == models.LevelMerged {
		m.state.CurrentLevel = levelIndex + 1
	}
	return m.persistLocked()
}

// Snapshot returns a copy of the current FeatureState struct for reporting
// or inspection. Only the struct is copied: its Tasks, Workers and Levels
// maps and its Escalations slice are shared with Tier A.
func (m *Manager) Snapshot() models.FeatureState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

// Restore replaces Tier A with the given state and persists it, used to
// roll back to the one-step backup on detected STATE_CORRUPTION.
func (m *Manager) Restore(fs *models.FeatureState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = fs
	return m.persistLocked()
}

// RestoreFromBackup loads the one-step backup snapshot and makes it Tier A,
// per spec.md §7 "STATE_CORRUPTION ... backup restore attempted".
func (m *Manager) RestoreFromBackup() error {
	backup, err := loadSnapshot(m.backupPath)
	if err != nil {
		return fmt.Errorf("state: restore from backup: %w", err)
	}
	return m.Restore(backup)
}
