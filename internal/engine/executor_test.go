package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaAiGen/voice-first-to-do/internal/query"
	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
	"github.com/krishnaAiGen/voice-first-to-do/internal/task"
)

var engineNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type engineFixture struct {
	store    *task.SQLStore
	executor *Executor
	userID   uuid.UUID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	store, err := task.NewSQLStore(filepath.Join(t.TempDir(), "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	store.Clock = query.FixedClock{T: engineNow}

	builder := query.NewSafeQueryBuilder(query.FixedClock{T: engineNow}, nil)
	return &engineFixture{
		store:    store,
		executor: NewExecutor(store, builder, nil),
		userID:   uuid.New(),
	}
}

func (f *engineFixture) seed(t *testing.T, in task.CreateInput) task.Task {
	t.Helper()
	created, err := f.store.Create(context.Background(), in, f.userID)
	require.NoError(t, err)
	return created
}

func (f *engineFixture) run(t *testing.T, s spec.Specification) ExecutionResult {
	t.Helper()
	res, err := f.executor.Execute(context.Background(), s, f.userID)
	require.NoError(t, err)
	return res
}

func simplePlan(steps ...spec.Step) spec.Specification {
	complexity := spec.ComplexitySimple
	if len(steps) > 1 {
		complexity = spec.ComplexityMultiStep
	}
	return spec.Specification{
		Complexity:      complexity,
		Strategy:        spec.StrategySequential,
		Steps:           steps,
		NaturalResponse: "All done.",
	}
}

func TestExecutor_SimpleCreate(t *testing.T) {
	f := newEngineFixture(t)

	res := f.run(t, simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpCreate,
		Params:    map[string]any{"title": "Buy milk", "priority": float64(2), "category": "shopping"},
	}))

	assert.True(t, res.Success)
	assert.Equal(t, "All done.", res.Message)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Created task 'Buy milk'", res.Results[0].Message)

	tasks, err := f.store.GetAll(context.Background(), f.userID, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].Priority)
}

func TestExecutor_CreateWithoutTitleFailsFast(t *testing.T) {
	f := newEngineFixture(t)

	res := f.run(t, simplePlan(
		spec.Step{Order: 1, Operation: spec.OpCreate, Params: map[string]any{"category": "x"}},
		spec.Step{Order: 2, Operation: spec.OpCreate, Params: map[string]any{"title": "never created"}},
	))

	assert.False(t, res.Success)
	assert.Equal(t, "task title is required", res.Message)
	// second step never ran
	require.Len(t, res.Results, 1)

	tasks, err := f.store.GetAll(context.Background(), f.userID, 0)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestExecutor_ReadOverdueNewestFirst(t *testing.T) {
	f := newEngineFixture(t)

	f.store.Clock = query.FixedClock{T: engineNow.Add(-2 * time.Hour)}
	f.seed(t, task.CreateInput{Title: "older overdue", ScheduledTime: "2026-03-14T08:00:00Z"})
	f.store.Clock = query.FixedClock{T: engineNow.Add(-time.Hour)}
	f.seed(t, task.CreateInput{Title: "newer overdue", ScheduledTime: "2026-03-14T09:00:00Z"})
	f.store.Clock = query.FixedClock{T: engineNow}
	f.seed(t, task.CreateInput{Title: "future", ScheduledTime: "2026-03-20T08:00:00Z"})

	res := f.run(t, simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpRead,
		Filters:   []spec.Filter{{Type: spec.FilterIsOverdue}},
	}))

	assert.True(t, res.Success)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Found 2 tasks", res.Results[0].Message)

	tasks, ok := res.Data.([]task.Task)
	require.True(t, ok)
	require.Len(t, tasks, 2)
	assert.Equal(t, "newer overdue", tasks[0].Title)
	assert.Equal(t, "older overdue", tasks[1].Title)
}

func TestExecutor_ReadEmptyIsSuccessWithEmptyList(t *testing.T) {
	f := newEngineFixture(t)

	res := f.run(t, simplePlan(spec.Step{Order: 1, Operation: spec.OpRead}))
	assert.True(t, res.Success)
	tasks, ok := res.Data.([]task.Task)
	require.True(t, ok)
	assert.Empty(t, tasks)
}

func TestExecutor_ReadRejectsUnknownFilter(t *testing.T) {
	f := newEngineFixture(t)

	// step validation happens before execution
	_, err := f.executor.Execute(context.Background(), simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpRead,
		Filters:   []spec.Filter{{Type: "evil"}},
	}), f.userID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter type")
}

func TestExecutor_SearchThenUpdate(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, task.CreateInput{Title: "Buy grocery items"})
	f.seed(t, task.CreateInput{Title: "Call dentist"})

	res := f.run(t, simplePlan(
		spec.Step{Order: 1, Operation: spec.OpRead, Filters: []spec.Filter{{Type: spec.FilterKeyword, Value: "grocery"}}, SaveResultAs: "found"},
		spec.Step{Order: 2, Operation: spec.OpUpdate, UseResultFrom: "found", Modifications: map[string]any{"status": "completed"}},
	))

	assert.True(t, res.Success)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "Updated task 'Buy grocery items'", res.Results[1].Message)

	tasks, err := f.store.GetAll(context.Background(), f.userID, 0)
	require.NoError(t, err)
	for _, tk := range tasks {
		if tk.Title == "Buy grocery items" {
			assert.Equal(t, task.StatusCompleted, tk.Status)
			assert.NotNil(t, tk.CompletedAt)
		} else {
			assert.Equal(t, task.StatusPending, tk.Status)
		}
	}
}

func TestExecutor_ImplicitSearchUpdate(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, task.CreateInput{Title: "Water the plants", Category: "home"})

	res := f.run(t, simplePlan(spec.Step{
		Order:         1,
		Operation:     spec.OpUpdate,
		Filters:       []spec.Filter{{Type: spec.FilterKeyword, Value: "plants"}},
		Modifications: map[string]any{"priority": float64(3)},
	}))

	assert.True(t, res.Success)
	tasks, err := f.store.GetAll(context.Background(), f.userID, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 3, tasks[0].Priority)
}

func TestExecutor_ImplicitSearchDelete(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, task.CreateInput{Title: "Cancel gym membership"})
	keep := f.seed(t, task.CreateInput{Title: "Keep me"})

	res := f.run(t, simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpDelete,
		Filters:   []spec.Filter{{Type: spec.FilterKeyword, Value: "gym"}},
	}))

	assert.True(t, res.Success)
	tasks, err := f.store.GetAll(context.Background(), f.userID, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, keep.ID, tasks[0].ID)
}

func TestExecutor_ImplicitSearchNoMatchFails(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, task.CreateInput{Title: "Unrelated"})

	res := f.run(t, simplePlan(spec.Step{
		Order:         1,
		Operation:     spec.OpUpdate,
		Filters:       []spec.Filter{{Type: spec.FilterKeyword, Value: "nonexistent"}},
		Modifications: map[string]any{"status": "completed"},
	}))

	assert.False(t, res.Success)
	assert.Equal(t, "No tasks found matching your criteria. Please try a different search.", res.Message)
}

func TestExecutor_UseResultFromMissingName(t *testing.T) {
	f := newEngineFixture(t)

	res := f.run(t, simplePlan(
		spec.Step{Order: 1, Operation: spec.OpRead},
		spec.Step{Order: 2, Operation: spec.OpUpdate, UseResultFrom: "never_saved", Modifications: map[string]any{"status": "completed"}},
	))

	assert.False(t, res.Success)
	assert.Equal(t, "No data found from previous step 'never_saved'", res.Message)
}

func TestExecutor_EmptySavedResultFailsBeforeUpdate(t *testing.T) {
	f := newEngineFixture(t)

	res := f.run(t, simplePlan(
		spec.Step{Order: 1, Operation: spec.OpRead, Filters: []spec.Filter{{Type: spec.FilterIsCompleted}}, SaveResultAs: "done"},
		spec.Step{Order: 2, Operation: spec.OpDelete, UseResultFrom: "done"},
	))

	assert.False(t, res.Success)
	assert.Equal(t, "No tasks found matching your criteria. Please try a different search.", res.Message)
	// the consumer never ran
	require.Len(t, res.Results, 1)
}

func TestExecutor_UpdateBatchEmptySetIsTrivialSuccess(t *testing.T) {
	f := newEngineFixture(t)

	res := f.run(t, simplePlan(
		spec.Step{Order: 1, Operation: spec.OpRead, Filters: []spec.Filter{{Type: spec.FilterIsOverdue}}, SaveResultAs: "overdue"},
		spec.Step{Order: 2, Operation: spec.OpUpdateBatch, UseResultFrom: "overdue", Modifications: map[string]any{"status": "completed"}},
	))

	assert.True(t, res.Success)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "Updated 0 tasks", res.Results[1].Message)
	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0, data["updated_count"])
}

func TestExecutor_UpdateBatchCompletesAllOverdue(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, task.CreateInput{Title: "overdue a", ScheduledTime: "2026-03-14T08:00:00Z"})
	f.seed(t, task.CreateInput{Title: "overdue b", ScheduledTime: "2026-03-13T08:00:00Z"})
	f.seed(t, task.CreateInput{Title: "future", ScheduledTime: "2026-03-20T08:00:00Z"})

	res := f.run(t, simplePlan(
		spec.Step{Order: 1, Operation: spec.OpRead, Filters: []spec.Filter{{Type: spec.FilterIsOverdue}}, SaveResultAs: "overdue"},
		spec.Step{Order: 2, Operation: spec.OpUpdateBatch, UseResultFrom: "overdue", Modifications: map[string]any{"status": "completed"}},
	))

	assert.True(t, res.Success)
	assert.Equal(t, "All done.", res.Message)
	assert.Equal(t, "Updated 2 tasks", res.Results[1].Message)

	tasks, err := f.store.GetAll(context.Background(), f.userID, 0)
	require.NoError(t, err)
	completed := 0
	for _, tk := range tasks {
		if tk.Status == task.StatusCompleted {
			completed++
		}
	}
	assert.Equal(t, 2, completed)
}

func TestExecutor_DeleteByIndex(t *testing.T) {
	f := newEngineFixture(t)
	for i, title := range []string{"oldest", "middle", "newest"} {
		f.store.Clock = query.FixedClock{T: engineNow.Add(time.Duration(i) * time.Minute)}
		f.seed(t, task.CreateInput{Title: title})
	}

	// index 2 of the newest-first listing is "middle"
	res := f.run(t, simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpDelete,
		Selector:  spec.SelectorByIndex,
		Index:     2,
	}))

	assert.True(t, res.Success)
	assert.Equal(t, "Deleted task 'middle'", res.Results[0].Message)

	tasks, err := f.store.GetAll(context.Background(), f.userID, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "newest", tasks[0].Title)
	assert.Equal(t, "oldest", tasks[1].Title)
}

func TestExecutor_DeleteByIndexOutOfRange(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, task.CreateInput{Title: "only one"})

	res := f.run(t, simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpDelete,
		Selector:  spec.SelectorByIndex,
		Index:     5,
	}))

	assert.False(t, res.Success)
	assert.Equal(t, "Task index 5 out of range", res.Message)

	tasks, err := f.store.GetAll(context.Background(), f.userID, 0)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestExecutor_UpdateUnknownIDIsBusinessFailure(t *testing.T) {
	f := newEngineFixture(t)
	ghost := uuid.New()

	res := f.run(t, simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpUpdate,
		Params:    map[string]any{"task_id": ghost.String(), "status": "completed"},
	}))

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "not found")
}

func TestExecutor_TenantScopingInPlans(t *testing.T) {
	f := newEngineFixture(t)
	other := uuid.New()
	foreign, err := f.store.Create(context.Background(), task.CreateInput{Title: "foreign grocery run"}, other)
	require.NoError(t, err)

	res := f.run(t, simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpRead,
		Filters:   []spec.Filter{{Type: spec.FilterKeyword, Value: "grocery"}},
	}))
	assert.True(t, res.Success)
	tasks, ok := res.Data.([]task.Task)
	require.True(t, ok)
	assert.Empty(t, tasks)

	res = f.run(t, simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpDelete,
		Params:    map[string]any{"task_id": foreign.ID.String()},
	}))
	assert.False(t, res.Success)

	got, err := f.store.GetByID(context.Background(), foreign.ID, other)
	require.NoError(t, err)
	assert.Equal(t, "foreign grocery run", got.Title)
}

func TestExecutor_InvalidSpecificationIsAnError(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.executor.Execute(context.Background(), spec.Specification{
		Complexity: spec.ComplexitySimple,
		Strategy:   spec.StrategySequential,
	}, f.userID)
	assert.ErrorIs(t, err, spec.ErrNoSteps)
}

// failingStore returns a storage error from every call, to prove
// transport failures abort the chain as Go errors.
type failingStore struct{}

var errBoom = &task.StorageError{Op: "test", Err: errors.New("boom")}

func (failingStore) Create(context.Context, task.CreateInput, uuid.UUID) (task.Task, error) {
	return task.Task{}, errBoom
}
func (failingStore) GetByID(context.Context, uuid.UUID, uuid.UUID) (task.Task, error) {
	return task.Task{}, errBoom
}
func (failingStore) GetAll(context.Context, uuid.UUID, int) ([]task.Task, error) {
	return nil, errBoom
}
func (failingStore) Update(context.Context, uuid.UUID, task.Patch, uuid.UUID) (task.Task, error) {
	return task.Task{}, errBoom
}
func (failingStore) Delete(context.Context, uuid.UUID, uuid.UUID) error { return errBoom }
func (failingStore) UpdateBatch(context.Context, []uuid.UUID, task.Patch, uuid.UUID) (int, error) {
	return 0, errBoom
}
func (failingStore) ExecuteQuery(context.Context, *query.Query) ([]task.Task, error) {
	return nil, errBoom
}

func TestExecutor_StorageErrorAbortsChain(t *testing.T) {
	builder := query.NewSafeQueryBuilder(query.FixedClock{T: engineNow}, nil)
	executor := NewExecutor(failingStore{}, builder, nil)

	_, err := executor.Execute(context.Background(), simplePlan(spec.Step{
		Order:     1,
		Operation: spec.OpCreate,
		Params:    map[string]any{"title": "x"},
	}), uuid.New())
	require.Error(t, err)

	var se *task.StorageError
	assert.ErrorAs(t, err, &se)
}
