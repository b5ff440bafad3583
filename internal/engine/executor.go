package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krishnaAiGen/voice-first-to-do/internal/query"
	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
	"github.com/krishnaAiGen/voice-first-to-do/internal/task"
)

const DefaultReadLimit = 100

// Executor runs a specification to completion or first failure.
// Execution is strictly sequential: a step never starts before the
// previous step's side effects are committed, because later steps may
// reference its results. There is no rollback; earlier successful
// side effects stand.
type Executor struct {
	store  task.Store
	create *createOperation
	read   *readOperation
	update *updateOperation
	delete *deleteOperation
	logger *zap.Logger

	defaultLimit int
}

func NewExecutor(store task.Store, builder *query.SafeQueryBuilder, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		store:        store,
		create:       &createOperation{store: store, logger: logger},
		read:         &readOperation{store: store, builder: builder, logger: logger, defaultLimit: DefaultReadLimit},
		update:       &updateOperation{store: store, logger: logger},
		delete:       &deleteOperation{store: store, logger: logger},
		logger:       logger,
		defaultLimit: DefaultReadLimit,
	}
}

// SetDefaultReadLimit overrides the limit used when a read step does
// not bound itself.
func (e *Executor) SetDefaultReadLimit(n int) {
	if n > 0 {
		e.defaultLimit = n
		e.read.defaultLimit = n
	}
}

// Execute runs the plan for one user. It returns an error only for
// storage failures; every business outcome, including a failed chain,
// is reported through the ExecutionResult.
func (e *Executor) Execute(ctx context.Context, s spec.Specification, userID uuid.UUID) (ExecutionResult, error) {
	if err := s.Validate(); err != nil {
		return ExecutionResult{}, err
	}

	e.logger.Info("executing specification",
		zap.String("complexity", string(s.Complexity)),
		zap.Int("steps", len(s.Steps)))

	// interactive currently runs one sequential round; no mid-chain
	// renegotiation with the producer.
	return e.executeSequential(ctx, s, userID)
}

func (e *Executor) executeSequential(ctx context.Context, s spec.Specification, userID uuid.UUID) (ExecutionResult, error) {
	results := make([]OperationResult, 0, len(s.Steps))
	ec := execContext{}

	for i, step := range s.Steps {
		result, err := e.executeStep(ctx, step, userID, ec)
		if err != nil {
			return ExecutionResult{}, err
		}

		if step.SaveResultAs != "" {
			ec[step.SaveResultAs] = result.Data
			// An empty result that a later single-entity update/delete
			// depends on can only fail downstream; fail here instead so
			// the doomed step never runs. Batch consumers still get the
			// empty set (a trivial success with count 0).
			if result.Success && isEmptyData(result.Data) && emptyResultFatal(s.Steps[i+1:], step.SaveResultAs) {
				result = failure("No tasks found matching your criteria. Please try a different search.")
			}
		}
		results = append(results, result)
		if !result.Success {
			e.logger.Warn("step failed, stopping execution",
				zap.Int("order", step.Order),
				zap.String("message", result.Message))
			break
		}
	}

	final := results[len(results)-1]
	out := ExecutionResult{
		Success: true,
		Results: results,
		Message: s.NaturalResponse,
		Data:    formatData(final.Data),
	}
	for _, r := range results {
		if !r.Success {
			out.Success = false
			out.Message = r.Message
			break
		}
	}
	return out, nil
}

// executeStep resolves one step, in precedence order: batch update,
// read, implicit search-then-act, delete by index, prior-result
// hand-off, then plain parameter dispatch.
func (e *Executor) executeStep(ctx context.Context, step spec.Step, userID uuid.UUID, ec execContext) (OperationResult, error) {
	e.logger.Debug("executing step",
		zap.Int("order", step.Order),
		zap.String("operation", string(step.Operation)))

	switch {
	case step.Operation == spec.OpUpdateBatch:
		return e.executeUpdateBatch(ctx, step, userID, ec)

	case step.Operation == spec.OpRead:
		return e.read.Execute(ctx, step, userID)

	case step.Operation == spec.OpUpdate && wantsSearch(step):
		return e.executeWithSearch(ctx, step, userID, e.applyUpdateTo)

	case step.Operation == spec.OpDelete && step.Selector == spec.SelectorByIndex:
		return e.executeDeleteByIndex(ctx, step, userID)

	case step.Operation == spec.OpDelete && wantsSearch(step):
		return e.executeWithSearch(ctx, step, userID, e.applyDeleteTo)

	case step.UseResultFrom != "":
		return e.executeFromContext(ctx, step, userID, ec)
	}

	switch step.Operation {
	case spec.OpCreate:
		return e.create.Execute(ctx, step.Params, userID)
	case spec.OpUpdate:
		return e.update.Execute(ctx, step.Params, userID)
	case spec.OpDelete:
		return e.delete.Execute(ctx, step.Params, userID)
	default:
		// Unreachable after Validate; the operation enum is closed.
		return failure(fmt.Sprintf("unknown operation %q", step.Operation)), nil
	}
}

// wantsSearch marks an update/delete that names no target: it carries
// filters but no explicit id and no prior-result reference, so the
// target is found by running the step's own filters as a read.
func wantsSearch(step spec.Step) bool {
	id, _ := step.Params["task_id"].(string)
	return len(step.Filters) > 0 && id == "" && step.UseResultFrom == ""
}

// executeWithSearch is the implicit search-then-act path. The search
// is a literal throwaway read step reusing the filters with limit 1,
// so filter semantics stay single-sourced.
func (e *Executor) executeWithSearch(ctx context.Context, step spec.Step, userID uuid.UUID, apply func(context.Context, spec.Step, task.Task, uuid.UUID) (OperationResult, error)) (OperationResult, error) {
	search := spec.Step{
		Order:     1,
		Operation: spec.OpRead,
		Filters:   step.Filters,
		Limit:     1,
	}
	found, err := e.read.Execute(ctx, search, userID)
	if err != nil {
		return OperationResult{}, err
	}
	if !found.Success {
		return found, nil
	}

	target, ok := firstTask(found.Data)
	if !ok {
		return failure("No tasks found matching your criteria. Please try a different search."), nil
	}
	return apply(ctx, step, target, userID)
}

func (e *Executor) applyUpdateTo(ctx context.Context, step spec.Step, target task.Task, userID uuid.UUID) (OperationResult, error) {
	params := map[string]any{"task_id": target.ID.String()}
	for k, v := range step.Modifications {
		params[k] = v
	}
	return e.update.Execute(ctx, params, userID)
}

func (e *Executor) applyDeleteTo(ctx context.Context, step spec.Step, target task.Task, userID uuid.UUID) (OperationResult, error) {
	return e.delete.Execute(ctx, map[string]any{"task_id": target.ID.String()}, userID)
}

// executeUpdateBatch mutates a previously resolved set of tasks in one
// atomic store call. An empty resolved set is a trivial success.
func (e *Executor) executeUpdateBatch(ctx context.Context, step spec.Step, userID uuid.UUID, ec execContext) (OperationResult, error) {
	data, ok := ec[step.UseResultFrom]
	if step.UseResultFrom == "" || !ok {
		return failure("No tasks found in context for batch update"), nil
	}
	tasks, ok := data.([]task.Task)
	if !ok {
		return failure("Invalid task list for batch update"), nil
	}

	patch, err := task.ParsePatch(step.Modifications)
	if err != nil {
		return failure(err.Error()), nil
	}

	ids := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	count, err := e.store.UpdateBatch(ctx, ids, patch, userID)
	if err != nil {
		return outcome(err)
	}

	return OperationResult{
		Success: true,
		Data:    map[string]any{"updated_count": count},
		Message: fmt.Sprintf("Updated %d tasks", count),
	}, nil
}

// executeDeleteByIndex deletes the N-th task of the user's
// default-ordered list. Index is 1-based; out of range is an explicit
// bounded failure with nothing deleted.
func (e *Executor) executeDeleteByIndex(ctx context.Context, step spec.Step, userID uuid.UUID) (OperationResult, error) {
	tasks, err := e.store.GetAll(ctx, userID, e.defaultLimit)
	if err != nil {
		return outcome(err)
	}

	idx := step.Index - 1
	if idx < 0 || idx >= len(tasks) {
		return failure(fmt.Sprintf("Task index %d out of range", step.Index)), nil
	}
	target := tasks[idx]

	if err := e.store.Delete(ctx, target.ID, userID); err != nil {
		return outcome(err)
	}
	return OperationResult{
		Success: true,
		Data:    map[string]any{"deleted": true, "task_id": target.ID.String()},
		Message: fmt.Sprintf("Deleted task '%s'", target.Title),
	}, nil
}

// executeFromContext resolves a step's target from a previous step's
// saved result. A missing name or an empty result is a terminal "no
// data to act on" failure.
func (e *Executor) executeFromContext(ctx context.Context, step spec.Step, userID uuid.UUID, ec execContext) (OperationResult, error) {
	data, ok := ec[step.UseResultFrom]
	if !ok {
		return failure(fmt.Sprintf("No data found from previous step '%s'", step.UseResultFrom)), nil
	}
	if isEmptyData(data) {
		return failure("No tasks found matching your criteria. Please try a different search."), nil
	}

	switch step.Operation {
	case spec.OpUpdate:
		target, ok := firstTask(data)
		if !ok {
			return failure("No tasks found to update."), nil
		}
		return e.applyUpdateTo(ctx, step, target, userID)
	case spec.OpDelete:
		target, ok := firstTask(data)
		if !ok {
			return failure("No tasks found to delete."), nil
		}
		return e.applyDeleteTo(ctx, step, target, userID)
	case spec.OpCreate:
		return e.create.Execute(ctx, step.Params, userID)
	default:
		return failure(fmt.Sprintf("operation %q cannot use a previous result", step.Operation)), nil
	}
}

// emptyResultFatal reports whether the first later consumer of name
// needs a non-empty result (single-entity update or delete).
func emptyResultFatal(rest []spec.Step, name string) bool {
	for _, s := range rest {
		if s.UseResultFrom == name {
			return s.Operation == spec.OpUpdate || s.Operation == spec.OpDelete
		}
	}
	return false
}

// firstTask extracts a single target from saved result data: the first
// element of a list, or the value itself for a single task.
func firstTask(data any) (task.Task, bool) {
	switch v := data.(type) {
	case []task.Task:
		if len(v) == 0 {
			return task.Task{}, false
		}
		return v[0], true
	case task.Task:
		return v, true
	}
	return task.Task{}, false
}

func isEmptyData(data any) bool {
	if data == nil {
		return true
	}
	if tasks, ok := data.([]task.Task); ok {
		return len(tasks) == 0
	}
	return false
}

// formatData is the final formatting pass: it normalizes the outward
// payload without altering success semantics.
func formatData(data any) any {
	if tasks, ok := data.([]task.Task); ok && tasks == nil {
		return []task.Task{}
	}
	return data
}
