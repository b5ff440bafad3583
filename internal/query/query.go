// Package query translates declared filters into safe, parameterized,
// user-scoped SQL. Every accepted filter contributes exactly one
// predicate and predicates only ever combine with AND, so a plan can
// narrow a user's result set but never widen it.
package query

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const selectColumns = "id, user_id, title, description, category, priority, status, scheduled_time, created_at, updated_at, completed_at"

// Query is an AND-only predicate list plus ordering and limit over the
// tasks table. It is only ever constructed through NewUserScoped, so
// the tenant predicate is structurally guaranteed to be present.
type Query struct {
	conds   []string
	args    []any
	orderBy string
	limit   int
}

// NewUserScoped starts a query bound to one user. This is the sole
// tenant-isolation boundary for plan-driven reads.
func NewUserScoped(userID uuid.UUID) *Query {
	return &Query{
		conds: []string{"user_id = ?"},
		args:  []any{userID.String()},
	}
}

// Where appends one predicate. cond must use ? placeholders.
func (q *Query) Where(cond string, args ...any) {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, args...)
}

func (q *Query) OrderBy(clause string) { q.orderBy = clause }

func (q *Query) Limit(n int) { q.limit = n }

// CondCount reports how many predicates are attached, including the
// user scope.
func (q *Query) CondCount() int { return len(q.conds) }

// SQL renders the full select statement and its arguments.
func (q *Query) SQL() (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM tasks WHERE %s", selectColumns, strings.Join(q.conds, " AND "))
	if q.orderBy != "" {
		fmt.Fprintf(&b, " ORDER BY %s", q.orderBy)
	}
	args := append([]any{}, q.args...)
	if q.limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.limit)
	}
	return b.String(), args
}
