package telemetry

import (
	"encoding/json"
	"time"
)

type Stats struct {
	Period           string            `json:"period"`
	EventCounts      map[EventType]int `json:"event_counts"`
	CommandsReceived int               `json:"commands_received"`
	SpecsRejected    int               `json:"specs_rejected"`
	Executions       int               `json:"executions"`
	ExecutionsFailed int               `json:"executions_failed"`
	SuccessRate      float64           `json:"success_rate"`
	StepsPerCommand  float64           `json:"steps_per_command"`
	StepsByOperation map[string]int    `json:"steps_by_operation"`
	FailuresByStage  map[string]int    `json:"failures_by_stage"`
}

// CalculateStats summarizes command traffic from recorded events.
func CalculateStats(events []Event, since time.Time) (Stats, error) {
	stats := Stats{
		Period:           since.Format("2006-01-02"),
		EventCounts:      make(map[EventType]int),
		StepsByOperation: make(map[string]int),
		FailuresByStage:  make(map[string]int),
	}

	steps := 0
	for _, event := range events {
		stats.EventCounts[event.Type]++

		var metadata EventMetadata
		if err := json.Unmarshal([]byte(event.Metadata), &metadata); err != nil {
			continue
		}

		switch event.Type {
		case EventCommandReceived:
			stats.CommandsReceived++
		case EventSpecRejected:
			stats.SpecsRejected++
			stats.FailuresByStage["spec"]++
		case EventStepExecuted:
			steps++
			if op, ok := metadata["operation"].(string); ok {
				stats.StepsByOperation[op]++
			}
		case EventStepFailed:
			steps++
			if op, ok := metadata["operation"].(string); ok {
				stats.StepsByOperation[op]++
			}
			stats.FailuresByStage["step"]++
		case EventExecutionCompleted:
			stats.Executions++
		case EventExecutionFailed:
			stats.Executions++
			stats.ExecutionsFailed++
			stats.FailuresByStage["execution"]++
		}
	}

	if stats.Executions > 0 {
		stats.SuccessRate = float64(stats.Executions-stats.ExecutionsFailed) / float64(stats.Executions)
	}
	if stats.CommandsReceived > 0 {
		stats.StepsPerCommand = float64(steps) / float64(stats.CommandsReceived)
	}

	return stats, nil
}
