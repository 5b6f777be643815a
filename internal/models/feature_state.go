package models

import "time"

// FeatureState is the State Manager's authoritative runtime record for one
// feature's execution: the current level, and the per-task, per-worker, and
// per-level records that the orchestrator, worker runtime, and merge
// coordinator all read and mutate (spec.md §3 "FeatureState").
type FeatureState struct {
	FeatureID    string                 `yaml:"feature" json:"feature"`
	CurrentLevel int                    `yaml:"current_level" json:"current_level"`
	Tasks        map[string]*TaskRecord `yaml:"tasks" json:"tasks"`
	Workers      map[int]*Worker        `yaml:"workers" json:"workers"`
	Levels       map[int]*LevelRecord   `yaml:"levels" json:"levels"`
	Escalations  []Escalation           `yaml:"escalations,omitempty" json:"escalations,omitempty"`
	UpdatedAt    time.Time              `yaml:"updated_at" json:"updated_at"`
}

// NewFeatureState returns a FeatureState seeded from a validated TaskGraph,
// with every task PENDING and no workers or level records yet assigned.
func NewFeatureState(graph *TaskGraph) *FeatureState {
	fs := &FeatureState{
		FeatureID:    graph.FeatureID,
		CurrentLevel: 1,
		Tasks:        make(map[string]*TaskRecord, len(graph.Tasks)),
		Workers:      make(map[int]*Worker),
		Levels:       make(map[int]*LevelRecord, len(graph.Levels)),
	}
	for id := range graph.Tasks {
		fs.Tasks[id] = &TaskRecord{Status: TaskPending}
	}
	for _, lvl := range graph.Levels {
		fs.Levels[lvl.Index] = &LevelRecord{Status: LevelPending}
	}
	return fs
}

// TasksWithStatus returns the IDs of tasks currently in the given status.
func (fs *FeatureState) TasksWithStatus(status TaskStatus) []string {
	var ids []string
	for id, rec := range fs.Tasks {
		if rec.Status == status {
			ids = append(ids, id)
		}
	}
	return ids
}

// LevelComplete reports whether every task known to belong to levelTasks has
// reached a terminal, non-blocking status (COMPLETED).
func (fs *FeatureState) LevelComplete(levelTasks []string) bool {
	for _, id := range levelTasks {
		rec, ok := fs.Tasks[id]
		if !ok || rec.Status != TaskCompleted {
			return false
		}
	}
	return true
}

// ActiveWorkerCount returns the number of workers not in a terminal state.
func (fs *FeatureState) ActiveWorkerCount() int {
	n := 0
	for _, w := range fs.Workers {
		if w.Status != WorkerStopped && w.Status != WorkerCrashed {
			n++
		}
	}
	return n
}
