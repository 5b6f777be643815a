package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/waveforge/orc/internal/models"
)

func TestCheckPreconditions_ModifyMissingIsDependencyMissing(t *testing.T) {
	dir := t.TempDir()
	task := models.Task{ID: "T1", Files: models.FileSet{Modify: []string{"missing.go"}}}

	err := checkPreconditions(dir, task)
	if _, ok := err.(*DependencyMissingError); !ok {
		t.Fatalf("expected *DependencyMissingError, got %T: %v", err, err)
	}
}

func TestCheckPreconditions_CreateExistingIsAmbiguous(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "already-there.go"), []byte("package x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	task := models.Task{ID: "T1", Files: models.FileSet{Create: []string{"already-there.go"}}}

	err := checkPreconditions(dir, task)
	if _, ok := err.(*AmbiguousCreateError); !ok {
		t.Fatalf("expected *AmbiguousCreateError, got %T: %v", err, err)
	}
}

func TestCheckPreconditions_PassesWhenOwnershipSatisfied(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.go"), []byte("package x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	task := models.Task{ID: "T1", Files: models.FileSet{
		Create: []string{"new.go"},
		Modify: []string{"existing.go"},
	}}

	if err := checkPreconditions(dir, task); err != nil {
		t.Fatalf("checkPreconditions: %v", err)
	}
}

func TestCheckOwnership_FlagsOutOfScopeWrites(t *testing.T) {
	task := models.Task{ID: "T1", Files: models.FileSet{Create: []string{"a.go"}}}

	err := checkOwnership(task, []string{"a.go", "b.go"})
	violation, ok := err.(*ProtocolViolationError)
	if !ok {
		t.Fatalf("expected *ProtocolViolationError, got %T", err)
	}
	if len(violation.OutOfScope) != 1 || violation.OutOfScope[0] != "b.go" {
		t.Fatalf("OutOfScope = %v, want [b.go]", violation.OutOfScope)
	}
}

func TestCheckOwnership_PassesWithinScope(t *testing.T) {
	task := models.Task{ID: "T1", Files: models.FileSet{Create: []string{"a.go"}, Modify: []string{"b.go"}}}

	if err := checkOwnership(task, []string{"a.go", "b.go"}); err != nil {
		t.Fatalf("checkOwnership: %v", err)
	}
}

