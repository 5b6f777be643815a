package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waveforge/orc/internal/models"
)

// ProcessAgentInvoker implements AgentInvoker by spawning an external agent
// CLI as its own process and parsing its structured output, keeping the
// AI inference itself — which command it runs, what it decides — entirely
// outside the core's concern (spec.md §1 "out of scope"). Generalized from
// the teacher's claude.Invoker, which hardcodes the "claude" binary and its
// own CLI flags; ProcessAgentInvoker instead runs whatever command the
// deployment configures, passing the prompt as the final argument and
// expecting a single models.AgentResponse JSON object on stdout.
type ProcessAgentInvoker struct {
	// Command is the agent CLI to run, e.g. []string{"claude", "-p"}. The
	// assembled prompt is appended as the final argument.
	Command []string

	// WorkDir is the worker's isolated worktree; the agent process runs
	// with this as its current directory so its edits land there.
	WorkDir string

	// Timeout bounds a single invocation when ctx carries no deadline.
	Timeout time.Duration
}

// Invoke runs the configured agent command once and parses its stdout as a
// models.AgentResponse. A non-JSON or unparseable response is tolerated by
// falling back to treating stdout as plain Summary/Output text, matching
// the teacher's ParseResponse fallback-extraction behavior.
func (p *ProcessAgentInvoker) Invoke(ctx context.Context, req AgentRequest) (*AgentResult, error) {
	if len(p.Command) == 0 {
		return nil, fmt.Errorf("worker: process invoker: no command configured")
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = InvokeTimeout
		}
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append([]string(nil), p.Command[1:]...)
	if req.SessionID != "" {
		args = append(args, "--resume", req.SessionID)
	}
	args = append(args, req.Prompt)

	cmd := exec.CommandContext(runCtx, p.Command[0], args...)
	cmd.Dir = p.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil && stdout.Len() == 0 {
		return nil, fmt.Errorf("worker: agent process: %w (stderr: %s)", runErr, stderr.String())
	}

	resp, err := parseAgentOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("worker: parse agent output: %w", err)
	}

	sessionID := resp.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	contextUsage, _ := contextUsageFromMetadata(resp.Metadata)

	result := &AgentResult{
		Summary:      resp.Summary,
		Output:       resp.Output,
		Files:        resp.Files,
		SessionID:    sessionID,
		ContextUsage: contextUsage,
	}
	if runErr != nil {
		return result, fmt.Errorf("worker: agent reported failure: %s", strings.Join(resp.Errors, "; "))
	}
	return result, nil
}

// parseAgentOutput extracts a models.AgentResponse from raw agent stdout,
// tolerating leading/trailing non-JSON noise the way the teacher's
// ParseResponse does for mixed CLI output.
func parseAgentOutput(raw []byte) (*models.AgentResponse, error) {
	var resp models.AgentResponse
	if err := json.Unmarshal(raw, &resp); err == nil {
		return &resp, nil
	}

	text := string(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err == nil {
			return &resp, nil
		}
	}

	// No parseable JSON: treat the whole output as a successful summary so a
	// plain-text agent CLI still drives the worker loop forward.
	return &models.AgentResponse{Status: "success", Summary: strings.TrimSpace(text), Output: text}, nil
}

// contextUsageFromMetadata reads a "context_usage" float out of an agent
// response's free-form metadata map.
func contextUsageFromMetadata(meta map[string]interface{}) (float64, bool) {
	if meta == nil {
		return 0, false
	}
	v, ok := meta["context_usage"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
