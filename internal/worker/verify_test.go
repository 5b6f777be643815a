package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/waveforge/orc/internal/models"
)

type scriptedRunner struct {
	results map[string]models.VerificationResult
}

func (s *scriptedRunner) Run(ctx context.Context, dir string, timeout time.Duration, command string) models.VerificationResult {
	if r, ok := s.results[command]; ok {
		return r
	}
	return models.VerificationResult{Command: command, Passed: true}
}

func TestRunTier1_EmptyCommandAlwaysPasses(t *testing.T) {
	got := runTier1(context.Background(), &scriptedRunner{}, "/tmp", "")
	if !got.Passed {
		t.Fatal("expected empty tier-1 command to pass")
	}
}

func TestRunTier1_RunsConfiguredCommand(t *testing.T) {
	runner := &scriptedRunner{results: map[string]models.VerificationResult{
		"golangci-lint run": {Passed: false, Error: errors.New("lint error")},
	}}
	got := runTier1(context.Background(), runner, "/tmp", "golangci-lint run")
	if got.Passed {
		t.Fatal("expected configured tier-1 command to fail")
	}
}

func TestRunTier2_BothPass(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "tests", "integration"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tests", "integration", "run.sh"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	task := models.Task{
		ID:              "T1",
		Verification:    models.Verification{Command: "go test ./...", TimeoutSeconds: 30},
		IntegrationTest: "tests/integration/run.sh",
	}
	runner := &scriptedRunner{results: map[string]models.VerificationResult{
		"go test ./...":                {Passed: true},
		"tests/integration/run.sh": {Passed: true},
	}}

	primary, integration, skipped := runTier2(context.Background(), runner, dir, task, nil)
	if !primary.Passed {
		t.Fatal("expected primary to pass")
	}
	if !integration.Passed {
		t.Fatal("expected integration to pass")
	}
	if skipped {
		t.Fatal("did not expect integration to be skipped")
	}
}

func TestRunTier2_SkipsMissingIntegrationTest(t *testing.T) {
	dir := t.TempDir()
	task := models.Task{
		ID:              "T1",
		Verification:    models.Verification{Command: "go test ./...", TimeoutSeconds: 30},
		IntegrationTest: "tests/integration",
	}
	runner := &scriptedRunner{results: map[string]models.VerificationResult{
		"go test ./...": {Passed: true},
	}}

	var warned string
	primary, _, skipped := runTier2(context.Background(), runner, dir, task, func(format string, args ...interface{}) {
		warned = format
	})
	if !primary.Passed {
		t.Fatal("expected primary to pass")
	}
	if !skipped {
		t.Fatal("expected integration test to be skipped")
	}
	if warned == "" {
		t.Fatal("expected a non-fatal warning to be logged")
	}
}

func TestRunTier2_PrimaryFailureShortCircuits(t *testing.T) {
	dir := t.TempDir()
	task := models.Task{
		ID:              "T1",
		Verification:    models.Verification{Command: "go test ./...", TimeoutSeconds: 30},
		IntegrationTest: "tests/integration",
	}
	runner := &scriptedRunner{results: map[string]models.VerificationResult{
		"go test ./...": {Passed: false, Error: errors.New("boom")},
	}}

	primary, integration, skipped := runTier2(context.Background(), runner, dir, task, nil)
	if primary.Passed {
		t.Fatal("expected primary to fail")
	}
	if integration.Command != "" {
		t.Fatal("expected integration not to run after primary failure")
	}
	if skipped {
		t.Fatal("short-circuit is not the same as skip")
	}
}

func TestRunTier3_NonBlocking(t *testing.T) {
	got := runTier3(context.Background(), &scriptedRunner{results: map[string]models.VerificationResult{
		"golint ./...": {Passed: false, Error: errors.New("style issues")},
	}}, "/tmp", "golint ./...")
	if got.Passed {
		t.Fatal("scripted result should reflect failure even though tier 3 never blocks the caller")
	}
}
