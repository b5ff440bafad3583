package task

import (
	"context"

	"github.com/google/uuid"

	"github.com/krishnaAiGen/voice-first-to-do/internal/query"
)

// CreateInput carries the fields a caller may set on a new task.
type CreateInput struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Priority      int    `json:"priority"`
	ScheduledTime string `json:"scheduled_time"`
}

// Store is the entity-store contract. Implementations must return
// ErrNotFound for absent or foreign-owned tasks, a *StorageError for
// transport failures, and must apply UpdateBatch as one atomic
// mutation.
type Store interface {
	Create(ctx context.Context, in CreateInput, userID uuid.UUID) (Task, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (Task, error)
	GetAll(ctx context.Context, userID uuid.UUID, limit int) ([]Task, error)
	Update(ctx context.Context, id uuid.UUID, p Patch, userID uuid.UUID) (Task, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	UpdateBatch(ctx context.Context, ids []uuid.UUID, p Patch, userID uuid.UUID) (int, error)
	ExecuteQuery(ctx context.Context, q *query.Query) ([]Task, error)
}
