package telemetry

import (
	"testing"
	"time"
)

func record(t *testing.T, repo *MemoryRepository, typ EventType, metadata EventMetadata) {
	t.Helper()
	if err := repo.RecordEvent(typ, metadata); err != nil {
		t.Fatalf("RecordEvent(%s): %v", typ, err)
	}
}

func TestCalculateStats(t *testing.T) {
	repo := NewMemoryRepository()

	// two commands: one clean two-step run, one that fails at its step
	record(t, repo, EventCommandReceived, nil)
	record(t, repo, EventSpecProduced, EventMetadata{"steps": 2})
	record(t, repo, EventStepExecuted, EventMetadata{"operation": "read"})
	record(t, repo, EventStepExecuted, EventMetadata{"operation": "update_batch"})
	record(t, repo, EventExecutionCompleted, nil)

	record(t, repo, EventCommandReceived, nil)
	record(t, repo, EventSpecProduced, EventMetadata{"steps": 1})
	record(t, repo, EventStepFailed, EventMetadata{"operation": "delete"})
	record(t, repo, EventExecutionFailed, nil)

	events, err := repo.GetEvents(time.Time{}, nil)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	stats, err := CalculateStats(events, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CalculateStats: %v", err)
	}

	if stats.Period != "2026-03-09" {
		t.Errorf("period = %q", stats.Period)
	}
	if stats.CommandsReceived != 2 {
		t.Errorf("commands received = %d, want 2", stats.CommandsReceived)
	}
	if stats.Executions != 2 || stats.ExecutionsFailed != 1 {
		t.Errorf("executions = %d/%d failed, want 2/1", stats.Executions, stats.ExecutionsFailed)
	}
	if stats.SuccessRate != 0.5 {
		t.Errorf("success rate = %v, want 0.5", stats.SuccessRate)
	}
	if stats.StepsPerCommand != 1.5 {
		t.Errorf("steps per command = %v, want 1.5", stats.StepsPerCommand)
	}
	if stats.StepsByOperation["read"] != 1 || stats.StepsByOperation["update_batch"] != 1 || stats.StepsByOperation["delete"] != 1 {
		t.Errorf("steps by operation = %v", stats.StepsByOperation)
	}
	if stats.FailuresByStage["step"] != 1 || stats.FailuresByStage["execution"] != 1 {
		t.Errorf("failures by stage = %v", stats.FailuresByStage)
	}
}

func TestCalculateStats_Empty(t *testing.T) {
	stats, err := CalculateStats(nil, time.Now())
	if err != nil {
		t.Fatalf("CalculateStats: %v", err)
	}
	if stats.SuccessRate != 0 || stats.StepsPerCommand != 0 || stats.CommandsReceived != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestMemoryRepository_FiltersByTypeAndTime(t *testing.T) {
	repo := NewMemoryRepository()
	record(t, repo, EventCommandReceived, nil)
	record(t, repo, EventSpecRejected, EventMetadata{"reason": "decode"})

	events, err := repo.GetEvents(time.Time{}, []EventType{EventSpecRejected})
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventSpecRejected {
		t.Fatalf("events = %+v", events)
	}

	events, err = repo.GetEvents(time.Now().Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events in the future window, got %d", len(events))
	}

	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	events, _ = repo.GetEvents(time.Time{}, nil)
	if len(events) != 0 {
		t.Fatalf("expected empty repository after Clear, got %d", len(events))
	}
}
