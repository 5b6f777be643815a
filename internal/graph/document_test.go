package graph

import (
	"testing"

	"github.com/waveforge/orc/internal/models"
)

const sampleDoc = `{
  "feature": "widgets",
  "levels": {
    "1": {"tasks": ["T1a", "T1b"]},
    "2": {"tasks": ["T2"]}
  },
  "tasks": [
    {"id": "T1a", "title": "Foundation a", "level": 1,
     "files": {"create": ["a.go"]},
     "verification": {"command": "go test ./...", "timeout_seconds": 60}},
    {"id": "T1b", "title": "Foundation b", "level": 1,
     "files": {"create": ["b.go"]},
     "verification": {"command": "go test ./...", "timeout_seconds": 60}},
    {"id": "T2", "title": "Combine", "level": 2,
     "dependencies": ["T1a", "T1b"],
     "files": {"modify": ["a.go", "b.go"]},
     "verification": {"command": "go test ./...", "timeout_seconds": 60}}
  ]
}`

func TestParseJSON_ToTaskGraph(t *testing.T) {
	doc, err := ParseJSON([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	g := doc.ToTaskGraph()

	if g.FeatureID != "widgets" {
		t.Errorf("FeatureID = %q, want widgets", g.FeatureID)
	}
	if len(g.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(g.Tasks))
	}
	if err := Validate(g); err != nil {
		t.Fatalf("expected valid graph, got: %v", err)
	}
	if MaxParallelization(g) != 2 {
		t.Errorf("MaxParallelization = %d, want 2", MaxParallelization(g))
	}
}

func TestParseJSON_MalformedJSON(t *testing.T) {
	if _, err := ParseJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestToTaskGraph_DerivesLevelsWhenOmitted(t *testing.T) {
	doc := &Document{
		Feature: "demo",
		Tasks: []taskEntry{
			{ID: "a", Level: 1, Verification: models.Verification{Command: "echo ok", TimeoutSeconds: 10}},
		},
	}
	g := doc.ToTaskGraph()
	if len(g.Levels) != 1 || g.Levels[0].Index != 1 {
		t.Fatalf("expected derived level 1, got %+v", g.Levels)
	}
}
