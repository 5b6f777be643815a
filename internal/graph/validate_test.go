package graph

import (
	"testing"

	"github.com/waveforge/orc/internal/models"
)

func verif() models.Verification {
	return models.Verification{Command: "go test ./...", TimeoutSeconds: 60}
}

func baseGraph() *models.TaskGraph {
	return &models.TaskGraph{
		FeatureID: "demo",
		Tasks: map[string]models.Task{
			"a": {ID: "a", Level: 1, Files: models.FileSet{Create: []string{"a.go"}}, Verification: verif()},
			"b": {ID: "b", Level: 1, Files: models.FileSet{Create: []string{"b.go"}}, Verification: verif()},
			"c": {ID: "c", Level: 2, Dependencies: []string{"a", "b"}, Files: models.FileSet{Modify: []string{"a.go", "b.go"}}, Verification: verif()},
		},
		Levels: []models.Level{
			{Index: 1, Tasks: []string{"a", "b"}},
			{Index: 2, Tasks: []string{"c"}},
		},
	}
}

func TestValidate_ValidGraph(t *testing.T) {
	if err := Validate(baseGraph()); err != nil {
		t.Fatalf("expected valid graph, got: %v", err)
	}
}

func TestValidate_InvalidIdentifier(t *testing.T) {
	g := baseGraph()
	bad := g.Tasks["a"]
	bad.ID = "1bad"
	delete(g.Tasks, "a")
	g.Tasks["1bad"] = bad
	g.Levels[0].Tasks[0] = "1bad"

	err := Validate(g)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ige := err.(*InvalidGraphError)
	if !hasRule(ige, "invalid-identifier") {
		t.Errorf("expected invalid-identifier violation, got: %v", ige)
	}
}

func TestValidate_NonContiguousLevels(t *testing.T) {
	g := baseGraph()
	g.Levels[1].Index = 3
	for id, t := range g.Tasks {
		if t.Level == 2 {
			t.Level = 3
			g.Tasks[id] = t
		}
	}

	err := Validate(g)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !hasRule(err.(*InvalidGraphError), "non-contiguous-levels") {
		t.Errorf("expected non-contiguous-levels violation, got: %v", err)
	}
}

func TestValidate_DependencyNotStrictlyLower(t *testing.T) {
	g := baseGraph()
	bad := g.Tasks["c"]
	bad.Level = 1
	g.Tasks["c"] = bad
	g.Levels[0].Tasks = append(g.Levels[0].Tasks, "c")
	g.Levels[1].Tasks = nil

	err := Validate(g)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !hasRule(err.(*InvalidGraphError), "dependency-not-strictly-lower") {
		t.Errorf("expected dependency-not-strictly-lower violation, got: %v", err)
	}
}

func TestValidate_DependencyMissing(t *testing.T) {
	g := baseGraph()
	bad := g.Tasks["c"]
	bad.Dependencies = append(bad.Dependencies, "ghost")
	g.Tasks["c"] = bad

	err := Validate(g)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !hasRule(err.(*InvalidGraphError), "dependency-missing") {
		t.Errorf("expected dependency-missing violation, got: %v", err)
	}
}

func TestValidate_CreateSetOverlap(t *testing.T) {
	g := baseGraph()
	bad := g.Tasks["b"]
	bad.Files.Create = []string{"a.go"}
	g.Tasks["b"] = bad

	err := Validate(g)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !hasRule(err.(*InvalidGraphError), "create-set-overlap") {
		t.Errorf("expected create-set-overlap violation, got: %v", err)
	}
}

func TestValidate_MissingVerificationCommand(t *testing.T) {
	g := baseGraph()
	bad := g.Tasks["a"]
	bad.Verification.Command = ""
	g.Tasks["a"] = bad

	err := Validate(g)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !hasRule(err.(*InvalidGraphError), "missing-verification-command") {
		t.Errorf("expected missing-verification-command violation, got: %v", err)
	}
}

func TestValidate_InvalidTimeout(t *testing.T) {
	g := baseGraph()
	bad := g.Tasks["a"]
	bad.Verification.TimeoutSeconds = 999999
	g.Tasks["a"] = bad

	err := Validate(g)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !hasRule(err.(*InvalidGraphError), "invalid-verification-timeout") {
		t.Errorf("expected invalid-verification-timeout violation, got: %v", err)
	}
}

func TestValidate_CycleDetected(t *testing.T) {
	g := baseGraph()
	// Force a cycle directly on the dependency edges, independent of level
	// bookkeeping, to exercise the defensive DFS check.
	a := g.Tasks["a"]
	a.Dependencies = []string{"c"}
	g.Tasks["a"] = a

	err := Validate(g)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !hasRule(err.(*InvalidGraphError), "cycle-detected") && !hasRule(err.(*InvalidGraphError), "dependency-not-strictly-lower") {
		t.Errorf("expected cycle or ordering violation, got: %v", err)
	}
}

func hasRule(e *InvalidGraphError, rule string) bool {
	for _, v := range e.Errors {
		if v.Rule == rule {
			return true
		}
	}
	return false
}
