// Package engine executes a validated specification against the task
// store: it picks an operation strategy per step, threads results
// between steps, and stops the chain at the first failure.
package engine

// OperationResult is the outcome of one step. Data is opaque to the
// executor: a single task, a list, a scalar map, or nil.
type OperationResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

func failure(message string) OperationResult {
	return OperationResult{Success: false, Message: message}
}

// ExecutionResult aggregates a whole run. Success is true iff every
// executed step succeeded; Data is the final step's payload.
type ExecutionResult struct {
	Success bool              `json:"success"`
	Results []OperationResult `json:"results"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
}

// execContext is the transient name->data hand-off between steps of a
// single execution. It never outlives the run.
type execContext map[string]any
