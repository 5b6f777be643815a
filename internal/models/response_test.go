package models

import "testing"

func TestAgentResponse_Validate(t *testing.T) {
	tests := []struct {
		name    string
		resp    AgentResponse
		wantErr bool
	}{
		{name: "missing status", resp: AgentResponse{Summary: "x"}, wantErr: true},
		{name: "invalid status", resp: AgentResponse{Status: "ok"}, wantErr: true},
		{name: "success", resp: AgentResponse{Status: "success"}, wantErr: false},
		{name: "failed", resp: AgentResponse{Status: "failed"}, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.resp.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGateVerdict_Blocking(t *testing.T) {
	tests := []struct {
		verdict  GateVerdict
		required bool
		want     bool
	}{
		{GateVerdictPass, true, false},
		{GateVerdictSkip, true, false},
		{GateVerdictFail, true, true},
		{GateVerdictTimeout, true, true},
		{GateVerdictError, true, true},
		{GateVerdictFail, false, false},
	}
	for _, tt := range tests {
		if got := tt.verdict.Blocking(tt.required); got != tt.want {
			t.Errorf("%s.Blocking(%v) = %v, want %v", tt.verdict, tt.required, got, tt.want)
		}
	}
}

func TestGateResult_Validate(t *testing.T) {
	if err := (&GateResult{}).Validate(); err == nil {
		t.Error("expected error for missing verdict")
	}
	if err := (&GateResult{Verdict: "BOGUS"}).Validate(); err == nil {
		t.Error("expected error for invalid verdict")
	}
	if err := (&GateResult{Verdict: GateVerdictPass}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
