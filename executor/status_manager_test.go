package executor

import (
	"testing"
	"time"
)

func TestStatusManagerLifecycle(t *testing.T) {
	sm := NewStatusManager()

	sm.SetStatus("md", StatusQueued)
	status, ok := sm.Status("md")
	if !ok || status.Status != StatusQueued {
		t.Errorf("expected Queued, got %+v", status)
	}

	start := time.Now()
	sm.UpdateStatus("md", StatusRunning, start, time.Time{})
	sm.UpdateStatus("md", StatusBuilt, time.Time{}, start.Add(time.Second))

	status, _ = sm.Status("md")
	if status.Status != StatusBuilt {
		t.Errorf("expected Built, got %s", status.Status)
	}
	if !status.StartTime.Equal(start) {
		t.Error("start time was not preserved across updates")
	}
	if status.EndTime.IsZero() {
		t.Error("end time was not recorded")
	}
}

func TestStatusManagerFailures(t *testing.T) {
	sm := NewStatusManager()

	if sm.FailedCount() != 0 {
		t.Errorf("expected no failures initially, got %d", sm.FailedCount())
	}

	sm.SetStatus("json", StatusRunning)
	sm.MarkAsFailed("json")

	if sm.FailedCount() != 1 {
		t.Errorf("expected 1 failure, got %d", sm.FailedCount())
	}
	status, _ := sm.Status("json")
	if status.Status != StatusFailed {
		t.Errorf("expected Failed, got %s", status.Status)
	}
}

func TestStatusManagerUnknownTarget(t *testing.T) {
	sm := NewStatusManager()
	if _, ok := sm.Status("nope"); ok {
		t.Error("unknown target should not have a status")
	}
}
