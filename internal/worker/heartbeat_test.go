package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/waveforge/orc/internal/models"
	"gopkg.in/yaml.v3"
)

func TestHeartbeatPublisher_ReportWritesArtifactAndChannel(t *testing.T) {
	dir := t.TempDir()
	p := NewHeartbeatPublisher(2, dir)

	p.Report("T1", models.StepImplementing, 0.4)

	select {
	case hb := <-p.Channel():
		if hb.TaskID != "T1" || hb.Step != models.StepImplementing {
			t.Fatalf("unexpected heartbeat on channel: %+v", hb)
		}
	default:
		t.Fatal("expected a heartbeat on the channel")
	}

	latest := p.Latest()
	if latest.WorkerID != 2 || latest.ProgressPct != 0.4 {
		t.Fatalf("Latest() = %+v, unexpected", latest)
	}

	data, err := os.ReadFile(filepath.Join(dir, "heartbeat-worker-2.yaml"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var onDisk models.Heartbeat
	if err := yaml.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("unmarshal artifact: %v", err)
	}
	if onDisk.TaskID != "T1" || onDisk.Step != models.StepImplementing {
		t.Fatalf("artifact = %+v, unexpected", onDisk)
	}
}

func TestHeartbeatPublisher_OverwritesArtifactOnSuccessiveReports(t *testing.T) {
	dir := t.TempDir()
	p := NewHeartbeatPublisher(1, dir)

	p.Report("T1", models.StepImplementing, 0.1)
	<-p.Channel()
	p.Report("T1", models.StepCommitting, 0.9)
	<-p.Channel()

	data, err := os.ReadFile(filepath.Join(dir, "heartbeat-worker-1.yaml"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var onDisk models.Heartbeat
	if err := yaml.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("unmarshal artifact: %v", err)
	}
	if onDisk.Step != models.StepCommitting {
		t.Fatalf("expected latest step to overwrite artifact, got %q", onDisk.Step)
	}
}
