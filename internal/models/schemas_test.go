package models

import (
	"encoding/json"
	"testing"
)

func TestAgentResponseSchema_IsValidJSON(t *testing.T) {
	var v interface{}
	if err := json.Unmarshal([]byte(AgentResponseSchema()), &v); err != nil {
		t.Fatalf("AgentResponseSchema() is not valid JSON: %v", err)
	}
}

func TestGateResultSchema_IsValidJSON(t *testing.T) {
	var v map[string]interface{}
	if err := json.Unmarshal([]byte(GateResultSchema()), &v); err != nil {
		t.Fatalf("GateResultSchema() is not valid JSON: %v", err)
	}
	required, ok := v["required"].([]interface{})
	if !ok || len(required) != 2 {
		t.Fatalf("expected 2 required fields, got %v", v["required"])
	}
}
