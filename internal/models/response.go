package models

import "fmt"

// AgentResponse is the structured JSON output a worker's external agent
// process is expected to emit on completion (spec.md §6 "output contract").
// The worker runtime parses this to attribute a summary and the files the
// agent claims to have touched; it does not trust Files over the task's own
// declared FileSet for ownership enforcement.
type AgentResponse struct {
	Status    string                 `json:"status"`               // "success" or "failed"
	Summary   string                 `json:"summary"`              // Brief description
	Output    string                 `json:"output"`               // Full execution output
	Errors    []string               `json:"errors"`               // Error messages
	Files     []string               `json:"files_modified"`       // Modified file paths
	Metadata  map[string]interface{} `json:"metadata"`             // Additional data
	SessionID string                 `json:"session_id,omitempty"` // resume hint for checkpoint/retry
}

// Validate checks if required fields are present.
func (r *AgentResponse) Validate() error {
	if r.Status == "" {
		return fmt.Errorf("status is required")
	}
	if r.Status != "success" && r.Status != "failed" {
		return fmt.Errorf("status must be 'success' or 'failed'")
	}
	return nil
}

// GateVerdict is the outcome of a single quality gate (spec.md §5 "quality
// gates"): PASS, FAIL, SKIP (gate not applicable), TIMEOUT, or ERROR (gate
// itself misbehaved). Only PASS and SKIP allow promotion when the gate is
// required.
type GateVerdict string

const (
	GateVerdictPass    GateVerdict = "PASS"
	GateVerdictFail    GateVerdict = "FAIL"
	GateVerdictSkip    GateVerdict = "SKIP"
	GateVerdictTimeout GateVerdict = "TIMEOUT"
	GateVerdictError   GateVerdict = "ERROR"
)

// Blocking reports whether a required gate with this verdict should block
// promotion of the level being merged.
func (v GateVerdict) Blocking(required bool) bool {
	if !required {
		return false
	}
	return v != GateVerdictPass && v != GateVerdictSkip
}

// Issue represents a specific issue found during a quality gate review.
type Issue struct {
	Severity    string `json:"severity"`    // "critical", "warning", "info"
	Description string `json:"description"` // Issue description
	Location    string `json:"location"`    // File:line or component
}

// GateResult is the structured output of a quality gate run against a
// merged level (the non-blocking "quality" tier of spec.md §5's three-tier
// verification, plus the required/non-required gates the merge coordinator
// runs during promotion).
type GateResult struct {
	Verdict         GateVerdict `json:"verdict"`
	Feedback        string      `json:"feedback"`
	Issues          []Issue     `json:"issues"`
	Recommendations []string    `json:"recommendations"`
	ShouldRetry     bool        `json:"should_retry"`
}

// Validate checks if required fields are present.
func (r *GateResult) Validate() error {
	if r.Verdict == "" {
		return fmt.Errorf("verdict is required")
	}
	switch r.Verdict {
	case GateVerdictPass, GateVerdictFail, GateVerdictSkip, GateVerdictTimeout, GateVerdictError:
		return nil
	default:
		return fmt.Errorf("verdict must be one of PASS, FAIL, SKIP, TIMEOUT, ERROR")
	}
}
