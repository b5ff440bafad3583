package query

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
)

func TestSafeQueryBuilder_Build(t *testing.T) {
	b := NewSafeQueryBuilder(FixedClock{T: testNow}, nil)
	userID := uuid.New()

	q, err := b.Build(spec.Step{
		Operation: spec.OpRead,
		Filters: []spec.Filter{
			{Type: spec.FilterIsOverdue},
			{Type: spec.FilterPriorityMin, Value: 2},
		},
		Limit: 25,
	}, userID)
	require.NoError(t, err)

	sql, args := q.SQL()
	assert.True(t, strings.HasPrefix(sql, "SELECT "))
	assert.Contains(t, sql, "FROM tasks WHERE user_id = ?")
	assert.Contains(t, sql, "ORDER BY created_at DESC")
	assert.True(t, strings.HasSuffix(sql, "LIMIT ?"))
	assert.Equal(t, userID.String(), args[0])
	assert.Equal(t, 25, args[len(args)-1])
}

func TestSafeQueryBuilder_UserScopeAlwaysFirst(t *testing.T) {
	b := NewSafeQueryBuilder(FixedClock{T: testNow}, nil)
	userID := uuid.New()

	for _, filters := range [][]spec.Filter{
		nil,
		{{Type: spec.FilterIsCompleted}},
		{{Type: spec.FilterStatus, Value: "pending"}, {Type: spec.FilterCategory, Value: "work"}},
	} {
		q, err := b.Build(spec.Step{Operation: spec.OpRead, Filters: filters}, userID)
		require.NoError(t, err)
		sql, args := q.SQL()
		assert.Contains(t, sql, "WHERE user_id = ?")
		assert.Equal(t, userID.String(), args[0])
		assert.Equal(t, len(filters)+1, q.CondCount())
	}
}

func TestSafeQueryBuilder_NoLimitClauseWhenZero(t *testing.T) {
	b := NewSafeQueryBuilder(FixedClock{T: testNow}, nil)
	q, err := b.Build(spec.Step{Operation: spec.OpRead}, uuid.New())
	require.NoError(t, err)
	sql, _ := q.SQL()
	assert.NotContains(t, sql, "LIMIT")
}

func TestSafeQueryBuilder_OneBadFilterFailsTheBuild(t *testing.T) {
	b := NewSafeQueryBuilder(FixedClock{T: testNow}, nil)
	q, err := b.Build(spec.Step{
		Operation: spec.OpRead,
		Filters: []spec.Filter{
			{Type: spec.FilterIsOverdue},
			{Type: spec.FilterPriorityMin, Value: 99},
		},
	}, uuid.New())
	require.Error(t, err)
	assert.Nil(t, q)
}

func TestValidateOrderColumn(t *testing.T) {
	for _, col := range AllowedOrderColumns {
		assert.NoError(t, ValidateOrderColumn(col))
	}
	for _, col := range []string{"user_id; DROP TABLE tasks", "rowid", ""} {
		err := ValidateOrderColumn(col)
		require.Error(t, err)
		assert.Contains(t, err.Error(), fmt.Sprintf("order column %q is not allowed", col))
	}
}
