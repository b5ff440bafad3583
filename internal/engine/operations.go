package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krishnaAiGen/voice-first-to-do/internal/query"
	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
	"github.com/krishnaAiGen/voice-first-to-do/internal/task"
)

// Operation strategies share one contract: Validate names the missing
// or invalid parameter; Execute reports business failures through a
// failed OperationResult and only returns an error for storage
// failures, which abort the whole chain.

// outcome splits an error into the two classes: storage errors
// propagate, everything else (validation, not-found) becomes a failed
// result so a chain can stop cleanly.
func outcome(err error) (OperationResult, error) {
	var se *task.StorageError
	if errors.As(err, &se) {
		return OperationResult{}, err
	}
	return failure(err.Error()), nil
}

type createOperation struct {
	store  task.Store
	logger *zap.Logger
}

func (o *createOperation) Validate(params map[string]any) error {
	title, _ := params["title"].(string)
	if title == "" {
		return errors.New("task title is required")
	}
	if raw, ok := params["priority"]; ok {
		n, ok := intParam(raw)
		if !ok || n < 0 || n > 3 {
			return errors.New("priority must be an integer between 0 and 3")
		}
	}
	return nil
}

func (o *createOperation) Execute(ctx context.Context, params map[string]any, userID uuid.UUID) (OperationResult, error) {
	if err := o.Validate(params); err != nil {
		return failure(err.Error()), nil
	}

	in := task.CreateInput{Title: params["title"].(string)}
	if s, ok := params["description"].(string); ok {
		in.Description = s
	}
	if s, ok := params["category"].(string); ok {
		in.Category = s
	}
	if raw, ok := params["priority"]; ok {
		in.Priority, _ = intParam(raw)
	}
	if s, ok := params["scheduled_time"].(string); ok {
		in.ScheduledTime = s
	}

	t, err := o.store.Create(ctx, in, userID)
	if err != nil {
		return outcome(err)
	}

	o.logger.Info("created task", zap.String("task_id", t.ID.String()))
	return OperationResult{
		Success: true,
		Data:    t,
		Message: fmt.Sprintf("Created task '%s'", t.Title),
	}, nil
}

type readOperation struct {
	store        task.Store
	builder      *query.SafeQueryBuilder
	logger       *zap.Logger
	defaultLimit int
}

func (o *readOperation) Validate(map[string]any) error { return nil }

// Execute always routes through the SafeQueryBuilder, so an empty
// step means "all of this user's tasks, default order, default limit".
func (o *readOperation) Execute(ctx context.Context, step spec.Step, userID uuid.UUID) (OperationResult, error) {
	if step.Limit == 0 {
		step.Limit = o.defaultLimit
	}
	q, err := o.builder.Build(step, userID)
	if err != nil {
		return failure(err.Error()), nil
	}

	tasks, err := o.store.ExecuteQuery(ctx, q)
	if err != nil {
		return outcome(err)
	}

	o.logger.Debug("read tasks", zap.Int("count", len(tasks)))
	return OperationResult{
		Success: true,
		Data:    tasks,
		Message: fmt.Sprintf("Found %d tasks", len(tasks)),
	}, nil
}

type updateOperation struct {
	store  task.Store
	logger *zap.Logger
}

func (o *updateOperation) Validate(params map[string]any) error {
	if s, _ := params["task_id"].(string); s == "" {
		return errors.New("task id is required for update")
	}
	return nil
}

func (o *updateOperation) Execute(ctx context.Context, params map[string]any, userID uuid.UUID) (OperationResult, error) {
	if err := o.Validate(params); err != nil {
		return failure(err.Error()), nil
	}
	id, err := uuid.Parse(params["task_id"].(string))
	if err != nil {
		return failure("task id is not a valid uuid"), nil
	}

	fields := make(map[string]any, len(params))
	for k, v := range params {
		if k != "task_id" {
			fields[k] = v
		}
	}
	patch, err := task.ParsePatch(fields)
	if err != nil {
		return failure(err.Error()), nil
	}

	t, err := o.store.Update(ctx, id, patch, userID)
	if errors.Is(err, task.ErrNotFound) {
		return failure(fmt.Sprintf("Task %s not found", id)), nil
	}
	if err != nil {
		return outcome(err)
	}

	o.logger.Info("updated task", zap.String("task_id", id.String()))
	return OperationResult{
		Success: true,
		Data:    t,
		Message: fmt.Sprintf("Updated task '%s'", t.Title),
	}, nil
}

type deleteOperation struct {
	store  task.Store
	logger *zap.Logger
}

func (o *deleteOperation) Validate(params map[string]any) error {
	if s, _ := params["task_id"].(string); s == "" {
		return errors.New("task id is required for delete")
	}
	return nil
}

func (o *deleteOperation) Execute(ctx context.Context, params map[string]any, userID uuid.UUID) (OperationResult, error) {
	if err := o.Validate(params); err != nil {
		return failure(err.Error()), nil
	}
	id, err := uuid.Parse(params["task_id"].(string))
	if err != nil {
		return failure("task id is not a valid uuid"), nil
	}

	err = o.store.Delete(ctx, id, userID)
	if errors.Is(err, task.ErrNotFound) {
		return failure(fmt.Sprintf("Task %s not found", id)), nil
	}
	if err != nil {
		return outcome(err)
	}

	o.logger.Info("deleted task", zap.String("task_id", id.String()))
	return OperationResult{
		Success: true,
		Data:    map[string]any{"deleted": true, "task_id": id.String()},
		Message: "Deleted task",
	}, nil
}

func intParam(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}
