package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
)

type filterFunc func(q *Query, value any) error

// FilterBuilder maps each whitelisted filter type to a predicate
// contributor. Unknown types and out-of-domain values are rejected
// with a message naming the filter and its accepted domain, and the
// query is left untouched.
type FilterBuilder struct {
	clock   Clock
	filters map[spec.FilterType]filterFunc
}

func NewFilterBuilder(clock Clock) *FilterBuilder {
	if clock == nil {
		clock = RealClock{}
	}
	b := &FilterBuilder{clock: clock}
	b.filters = map[spec.FilterType]filterFunc{
		spec.FilterIsOverdue:       b.isOverdue,
		spec.FilterIsToday:         b.isToday,
		spec.FilterIsCompleted:     b.isCompleted,
		spec.FilterPriorityMin:     b.priorityMin,
		spec.FilterPriorityMax:     b.priorityMax,
		spec.FilterPriorityEquals:  b.priorityEquals,
		spec.FilterCategory:        b.category,
		spec.FilterStatus:          b.status,
		spec.FilterKeyword:         b.keyword,
		spec.FilterScheduledAfter:  b.scheduledAfter,
		spec.FilterScheduledBefore: b.scheduledBefore,
		spec.FilterCreatedAfter:    b.createdAfter,
		spec.FilterCreatedBefore:   b.createdBefore,
	}
	return b
}

// Apply adds the filter's predicate to q. On any error q is unchanged.
func (b *FilterBuilder) Apply(q *Query, f spec.Filter) error {
	fn, ok := b.filters[f.Type]
	if !ok {
		return fmt.Errorf("filter type %q is not allowed, allowed types: %s", f.Type, allowedTypeList())
	}
	return fn(q, f.Value)
}

func allowedTypeList() string {
	types := make([]string, 0, len(spec.AllowedFilterTypes))
	for t := range spec.AllowedFilterTypes {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return strings.Join(types, ", ")
}

func (b *FilterBuilder) isOverdue(q *Query, _ any) error {
	q.Where("scheduled_time < ? AND status != ?", b.clock.Now().Unix(), "completed")
	return nil
}

func (b *FilterBuilder) isToday(q *Query, _ any) error {
	now := b.clock.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Second)
	q.Where("scheduled_time >= ? AND scheduled_time <= ?", start.Unix(), end.Unix())
	return nil
}

func (b *FilterBuilder) isCompleted(q *Query, _ any) error {
	q.Where("status = ?", "completed")
	return nil
}

func (b *FilterBuilder) priorityMin(q *Query, value any) error {
	n, err := priorityValue("priority_min", value)
	if err != nil {
		return err
	}
	q.Where("priority >= ?", n)
	return nil
}

func (b *FilterBuilder) priorityMax(q *Query, value any) error {
	n, err := priorityValue("priority_max", value)
	if err != nil {
		return err
	}
	q.Where("priority <= ?", n)
	return nil
}

func (b *FilterBuilder) priorityEquals(q *Query, value any) error {
	n, err := priorityValue("priority_equals", value)
	if err != nil {
		return err
	}
	q.Where("priority = ?", n)
	return nil
}

func (b *FilterBuilder) category(q *Query, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("category value must be a string")
	}
	q.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(s)+"%")
	return nil
}

func (b *FilterBuilder) status(q *Query, value any) error {
	s, ok := value.(string)
	if !ok || !allowedStatuses[s] {
		return fmt.Errorf("status value must be one of pending, in_progress, completed")
	}
	q.Where("status = ?", s)
	return nil
}

var allowedStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"completed":   true,
}

func (b *FilterBuilder) keyword(q *Query, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("keyword value must be a string")
	}
	match := ftsMatchExpr(s)
	if match == "" {
		return fmt.Errorf("keyword value must contain at least one search term")
	}
	q.Where("rowid IN (SELECT rowid FROM tasks_fts WHERE tasks_fts MATCH ?)", match)
	return nil
}

// ftsMatchExpr quotes every term so producer input can never be
// interpreted as FTS5 query syntax.
func ftsMatchExpr(s string) string {
	terms := strings.Fields(s)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func (b *FilterBuilder) scheduledAfter(q *Query, value any) error {
	t, err := isoValue("scheduled_after", value)
	if err != nil {
		return err
	}
	q.Where("scheduled_time >= ?", t.Unix())
	return nil
}

func (b *FilterBuilder) scheduledBefore(q *Query, value any) error {
	t, err := isoValue("scheduled_before", value)
	if err != nil {
		return err
	}
	q.Where("scheduled_time <= ?", t.Unix())
	return nil
}

func (b *FilterBuilder) createdAfter(q *Query, value any) error {
	t, err := isoValue("created_after", value)
	if err != nil {
		return err
	}
	q.Where("created_at >= ?", t.Unix())
	return nil
}

func (b *FilterBuilder) createdBefore(q *Query, value any) error {
	t, err := isoValue("created_before", value)
	if err != nil {
		return err
	}
	q.Where("created_at <= ?", t.Unix())
	return nil
}

// priorityValue accepts integers 0..3 in the shapes JSON decoding
// produces. Anything else is rejected.
func priorityValue(name string, value any) (int, error) {
	n, ok := intValue(value)
	if !ok || n < 0 || n > 3 {
		return 0, fmt.Errorf("%s value must be an integer between 0 and 3", name)
	}
	return n, nil
}

func intValue(value any) (int, bool) {
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
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// isoValue parses ISO-8601 datetimes, accepting the common zoned,
// zoneless and date-only shapes producers emit.
func isoValue(name string, value any) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%s value must be an ISO 8601 datetime string", name)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s value must be an ISO 8601 datetime string", name)
}
