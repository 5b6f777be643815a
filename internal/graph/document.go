// Package graph loads and validates task-graph documents: the static,
// per-feature execution plan that declares tasks, their levels, their file
// ownership, and their verification commands.
package graph

import (
	"encoding/json"
	"fmt"

	"github.com/waveforge/orc/internal/models"
	"gopkg.in/yaml.v3"
)

// levelEntry is one entry of the document's "levels" map: the set of task
// IDs assigned to a level, plus the levels it is declared to depend on
// (informational — the validator derives the real ordering from each
// task's own dependencies).
type levelEntry struct {
	Tasks           []string `json:"tasks" yaml:"tasks"`
	DependsOnLevels []int    `json:"depends_on_levels,omitempty" yaml:"depends_on_levels,omitempty"`
}

// taskEntry mirrors models.Task's shape for document decoding, matching
// the external task-graph document schema field-for-field.
type taskEntry struct {
	ID              string             `json:"id" yaml:"id"`
	Title           string             `json:"title" yaml:"title"`
	Description     string             `json:"description,omitempty" yaml:"description,omitempty"`
	Level           int                `json:"level" yaml:"level"`
	Dependencies    []string           `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Files           models.FileSet     `json:"files" yaml:"files"`
	Verification    models.Verification `json:"verification" yaml:"verification"`
	IntegrationTest string             `json:"integration_test,omitempty" yaml:"integration_test,omitempty"`
	EstimateMinutes int                `json:"estimate_minutes,omitempty" yaml:"estimate_minutes,omitempty"`
	Commit          *models.CommitSpec `json:"commit,omitempty" yaml:"commit,omitempty"`
}

// Document is the decoded form of the external task-graph document
// (spec.md §6 "Task-graph document").
type Document struct {
	Feature            string                `json:"feature" yaml:"feature"`
	TotalTasks         int                   `json:"total_tasks,omitempty" yaml:"total_tasks,omitempty"`
	MaxParallelization int                   `json:"max_parallelization,omitempty" yaml:"max_parallelization,omitempty"`
	Levels             map[string]levelEntry `json:"levels" yaml:"levels"`
	Tasks              []taskEntry           `json:"tasks" yaml:"tasks"`
}

// ParseJSON decodes a task-graph document from its canonical JSON form.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("graph: parse json: %w", err)
	}
	return &doc, nil
}

// ParseYAML decodes a task-graph document from an equivalent YAML form,
// for operators who prefer to hand-author plans as YAML.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("graph: parse yaml: %w", err)
	}
	return &doc, nil
}

// ToTaskGraph converts a decoded Document into the in-memory models.TaskGraph
// the rest of the system operates on. It performs no validation beyond what
// is needed to build the structure; call Validate on the result before use.
func (d *Document) ToTaskGraph() *models.TaskGraph {
	g := &models.TaskGraph{
		FeatureID: d.Feature,
		Tasks:     make(map[string]models.Task, len(d.Tasks)),
	}

	for _, te := range d.Tasks {
		g.Tasks[te.ID] = models.Task{
			ID:              te.ID,
			Title:           te.Title,
			Description:     te.Description,
			Level:           te.Level,
			Dependencies:    te.Dependencies,
			Files:           te.Files,
			Verification:    te.Verification,
			IntegrationTest: te.IntegrationTest,
			EstimateMinutes: te.EstimateMinutes,
			Commit:          te.Commit,
		}
	}

	var levels []models.Level
	if len(d.Levels) > 0 {
		levels = make([]models.Level, 0, len(d.Levels))
		for idxStr, entry := range d.Levels {
			idx := 0
			fmt.Sscanf(idxStr, "%d", &idx)
			levels = append(levels, models.Level{Index: idx, Tasks: entry.Tasks})
		}
	} else {
		levels = levelsFromTasks(g.Tasks)
	}
	sortLevels(levels)
	g.Levels = levels

	return g
}

// levelsFromTasks derives a level partition directly from each task's own
// Level field, for documents that omit the "levels" map.
func levelsFromTasks(tasks map[string]models.Task) []models.Level {
	byLevel := make(map[int][]string)
	for id, t := range tasks {
		byLevel[t.Level] = append(byLevel[t.Level], id)
	}
	levels := make([]models.Level, 0, len(byLevel))
	for idx, ids := range byLevel {
		levels = append(levels, models.Level{Index: idx, Tasks: ids})
	}
	return levels
}

func sortLevels(levels []models.Level) {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j-1].Index > levels[j].Index; j-- {
			levels[j-1], levels[j] = levels[j], levels[j-1]
		}
	}
}
