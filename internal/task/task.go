// Package task owns the user-scoped task entity and its store. Every
// store call carries the owning user's id; there is no unscoped access
// path.
package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("task not found")

// StorageError marks an underlying store failure, as opposed to a
// business outcome like ErrNotFound. Callers treat it as
// non-recoverable; no retries happen at this layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Category      string     `json:"category,omitempty"`
	Priority      int        `json:"priority"`
	Status        Status     `json:"status"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Patch is a partial update. nil pointer => "no change".
type Patch struct {
	Title         *string     `json:"title,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Category      *string     `json:"category,omitempty"`
	Priority      *int        `json:"priority,omitempty"`
	Status        *Status     `json:"status,omitempty"`
	ScheduledTime **time.Time `json:"scheduled_time,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Priority == nil && p.Status == nil && p.ScheduledTime == nil
}

func (p Patch) validate() error {
	if p.Title != nil && *p.Title == "" {
		return errors.New("title must not be empty")
	}
	if p.Priority != nil && (*p.Priority < 0 || *p.Priority > 3) {
		return errors.New("priority must be between 0 and 3")
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("status must be one of %s, %s, %s", StatusPending, StatusInProgress, StatusCompleted)
	}
	return nil
}

// ParsePatch converts plan-supplied fields (title, description,
// category, priority, status, scheduled_time) into a Patch. Unknown
// keys are rejected so a plan cannot reach columns it has no business
// touching.
func ParsePatch(fields map[string]any) (Patch, error) {
	var p Patch
	for key, value := range fields {
		switch key {
		case "title":
			s, ok := value.(string)
			if !ok {
				return Patch{}, errors.New("title must be a string")
			}
			p.Title = &s
		case "description":
			s, ok := value.(string)
			if !ok {
				return Patch{}, errors.New("description must be a string")
			}
			p.Description = &s
		case "category":
			s, ok := value.(string)
			if !ok {
				return Patch{}, errors.New("category must be a string")
			}
			p.Category = &s
		case "priority":
			n, ok := intField(value)
			if !ok {
				return Patch{}, errors.New("priority must be an integer")
			}
			p.Priority = &n
		case "status":
			s, ok := value.(string)
			if !ok {
				return Patch{}, errors.New("status must be a string")
			}
			st := Status(s)
			p.Status = &st
		case "scheduled_time":
			if value == nil {
				var cleared *time.Time
				p.ScheduledTime = &cleared
				break
			}
			s, ok := value.(string)
			if !ok {
				return Patch{}, errors.New("scheduled_time must be an ISO 8601 string or null")
			}
			t, err := parseTime(s)
			if err != nil {
				return Patch{}, err
			}
			p.ScheduledTime = &t
		default:
			return Patch{}, fmt.Errorf("unknown field %q", key)
		}
	}
	if err := p.validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

func intField(value any) (int, bool) {
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

func parseTime(s string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("scheduled_time %q is not an ISO 8601 datetime", s)
}
