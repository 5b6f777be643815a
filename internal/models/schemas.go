package models

import (
	"encoding/json"
)

// AgentResponseSchema returns a JSON Schema for the AgentResponse struct.
// This schema enforces the structure expected from a worker's agent
// process on completion. It requires 'status' and 'summary' fields, uses
// enum constraints for status, and supports dynamic metadata through
// additionalProperties.
func AgentResponseSchema() string {
	return `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Agent Response",
  "description": "Structured JSON output from a worker agent process",
  "type": "object",
  "required": ["status", "summary"],
  "properties": {
    "status": {
      "type": "string",
      "enum": ["success", "failed"],
      "description": "Task execution status"
    },
    "summary": {
      "type": "string",
      "description": "Brief description of the result"
    },
    "output": {
      "type": "string",
      "description": "Full execution output"
    },
    "errors": {
      "type": "array",
      "items": {
        "type": "string"
      },
      "description": "List of error messages"
    },
    "files_modified": {
      "type": "array",
      "items": {
        "type": "string"
      },
      "description": "Paths of files modified during execution"
    },
    "metadata": {
      "type": "object",
      "additionalProperties": true,
      "description": "Additional execution metadata"
    },
    "session_id": {
      "type": "string",
      "description": "Resume hint for checkpoint/retry (optional)"
    }
  },
  "additionalProperties": false
}`
}

// GateResultSchema returns a JSON Schema for the GateResult struct. This
// schema enforces the structure expected from a quality gate's output. It
// requires 'verdict' and 'feedback' fields, and uses enum constraints for
// verdict.
func GateResultSchema() string {
	schema := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "Gate Result",
		"description": "Structured JSON output from a quality gate run",
		"type":        "object",
		"required":    []string{"verdict", "feedback"},
		"properties": map[string]interface{}{
			"verdict": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"PASS", "FAIL", "SKIP", "TIMEOUT", "ERROR"},
				"description": "Gate verdict",
			},
			"feedback": map[string]interface{}{
				"type":        "string",
				"description": "Detailed gate feedback",
			},
			"issues": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []string{"severity", "description"},
					"properties": map[string]interface{}{
						"severity": map[string]interface{}{
							"type":        "string",
							"enum":        []string{"critical", "warning", "info"},
							"description": "Issue severity level",
						},
						"description": map[string]interface{}{
							"type":        "string",
							"description": "Issue description",
						},
						"location": map[string]interface{}{
							"type":        "string",
							"description": "Location of issue (file:line or component)",
						},
					},
					"additionalProperties": false,
				},
				"description": "List of specific issues found",
			},
			"recommendations": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "string",
				},
				"description": "Suggested improvements",
			},
			"should_retry": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether the gated task should be retried",
			},
		},
		"additionalProperties": false,
	}

	jsonBytes, _ := json.Marshal(schema)
	return string(jsonBytes)
}
