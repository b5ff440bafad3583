// Package telemetry records command-execution events so operators can
// see what the engine is doing and how often plans fail.
package telemetry

import "time"

type EventType string

const (
	EventCommandReceived    EventType = "command_received"
	EventSpecProduced       EventType = "spec_produced"
	EventSpecRejected       EventType = "spec_rejected"
	EventStepExecuted       EventType = "step_executed"
	EventStepFailed         EventType = "step_failed"
	EventExecutionCompleted EventType = "execution_completed"
	EventExecutionFailed    EventType = "execution_failed"
)

type Event struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata"`
}

type EventMetadata map[string]any
