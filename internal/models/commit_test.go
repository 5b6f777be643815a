package models

import "testing"

func TestCommitSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    CommitSpec
		wantErr bool
	}{
		{name: "missing message", spec: CommitSpec{Type: "feat"}, wantErr: true},
		{name: "message only", spec: CommitSpec{Message: "add widget"}, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommitSpec_IsEmpty(t *testing.T) {
	if !(&CommitSpec{}).IsEmpty() {
		t.Error("zero-value CommitSpec should be empty")
	}
	if (&CommitSpec{Message: "x"}).IsEmpty() {
		t.Error("CommitSpec with a message should not be empty")
	}
}

func TestCommitSpec_BuildCommitMessage(t *testing.T) {
	c := CommitSpec{Type: "feat", Message: "add widget"}
	if got := c.BuildCommitMessage(); got != "feat: add widget" {
		t.Errorf("BuildCommitMessage() = %q", got)
	}
	c2 := CommitSpec{Message: "add widget"}
	if got := c2.BuildCommitMessage(); got != "add widget" {
		t.Errorf("BuildCommitMessage() = %q", got)
	}
}

func TestCommitSpec_BuildFullCommitMessage(t *testing.T) {
	c := CommitSpec{Type: "fix", Message: "fix bug", Body: "details here"}
	want := "fix: fix bug\n\ndetails here"
	if got := c.BuildFullCommitMessage(); got != want {
		t.Errorf("BuildFullCommitMessage() = %q, want %q", got, want)
	}
}
