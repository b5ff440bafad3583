package query

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
)

// Ordering is fixed: newest first. Plans do not control ordering, but
// AllowedOrderColumns stays as the validation hook for when they do.
const defaultOrder = "created_at DESC"

var AllowedOrderColumns = []string{
	"priority", "scheduled_time", "created_at", "updated_at", "title", "status",
}

// SafeQueryBuilder composes the user scope, every declared filter, the
// fixed ordering and an optional limit into one query.
type SafeQueryBuilder struct {
	filters *FilterBuilder
	logger  *zap.Logger
}

func NewSafeQueryBuilder(clock Clock, logger *zap.Logger) *SafeQueryBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SafeQueryBuilder{
		filters: NewFilterBuilder(clock),
		logger:  logger,
	}
}

// Build returns a query scoped to userID. A single invalid filter
// fails the whole build; partial application never happens silently.
func (b *SafeQueryBuilder) Build(step spec.Step, userID uuid.UUID) (*Query, error) {
	q := NewUserScoped(userID)

	for _, f := range step.Filters {
		if err := b.filters.Apply(q, f); err != nil {
			return nil, err
		}
	}

	q.OrderBy(defaultOrder)
	if step.Limit > 0 {
		q.Limit(step.Limit)
	}

	b.logger.Debug("built query",
		zap.Int("filters", len(step.Filters)),
		zap.Int("limit", step.Limit))
	return q, nil
}

// ValidateOrderColumn rejects columns outside the whitelist.
func ValidateOrderColumn(column string) error {
	for _, c := range AllowedOrderColumns {
		if c == column {
			return nil
		}
	}
	return fmt.Errorf("order column %q is not allowed, allowed columns: %s",
		column, strings.Join(AllowedOrderColumns, ", "))
}
