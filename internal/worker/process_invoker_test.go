package worker

import (
	"context"
	"testing"
)

func TestProcessAgentInvoker_ParsesJSONResponse(t *testing.T) {
	// The shell script ignores its args and prints a fixed JSON response;
	// Invoke appends the prompt as the final arg to "sh -c <script>".
	inv := &ProcessAgentInvoker{
		Command: []string{"/bin/sh", "-c", `echo '{"status":"success","summary":"did it","session_id":"abc123","metadata":{"context_usage":0.4}}'`},
	}

	result, err := inv.Invoke(context.Background(), AgentRequest{Prompt: "build it"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Summary != "did it" || result.SessionID != "abc123" || result.ContextUsage != 0.4 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestProcessAgentInvoker_FallsBackOnNonJSON(t *testing.T) {
	inv := &ProcessAgentInvoker{
		Command: []string{"/bin/sh", "-c", `echo 'plain text output, no JSON here'`},
	}

	result, err := inv.Invoke(context.Background(), AgentRequest{Prompt: "build it"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Summary == "" {
		t.Fatal("expected fallback summary from plain text output")
	}
	if result.SessionID == "" {
		t.Fatal("expected a generated session ID when the agent reports none")
	}
}

func TestProcessAgentInvoker_NoCommandConfigured(t *testing.T) {
	inv := &ProcessAgentInvoker{}
	if _, err := inv.Invoke(context.Background(), AgentRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error with no command configured")
	}
}
