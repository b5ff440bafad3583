package task

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/krishnaAiGen/voice-first-to-do/internal/query"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 0 CHECK (priority BETWEEN 0 AND 3),
	status TEXT NOT NULL DEFAULT 'pending',
	scheduled_time INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	completed_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);

CREATE VIRTUAL TABLE IF NOT EXISTS tasks_fts USING fts5(
	title, description, category,
	content='tasks', content_rowid='rowid'
);
CREATE TRIGGER IF NOT EXISTS tasks_fts_insert AFTER INSERT ON tasks BEGIN
	INSERT INTO tasks_fts(rowid, title, description, category)
	VALUES (new.rowid, new.title, new.description, new.category);
END;
CREATE TRIGGER IF NOT EXISTS tasks_fts_delete AFTER DELETE ON tasks BEGIN
	INSERT INTO tasks_fts(tasks_fts, rowid, title, description, category)
	VALUES ('delete', old.rowid, old.title, old.description, old.category);
END;
CREATE TRIGGER IF NOT EXISTS tasks_fts_update AFTER UPDATE ON tasks BEGIN
	INSERT INTO tasks_fts(tasks_fts, rowid, title, description, category)
	VALUES ('delete', old.rowid, old.title, old.description, old.category);
	INSERT INTO tasks_fts(rowid, title, description, category)
	VALUES (new.rowid, new.title, new.description, new.category);
END;
`

// SQLStore persists tasks in SQLite. The tasks_fts virtual table is
// the precomputed search index behind the keyword filter; the
// triggers keep it in sync with every mutation.
type SQLStore struct {
	db     *sql.DB
	logger *zap.Logger

	// Clock feeds created_at/updated_at stamps; swap it for a fake in
	// tests.
	Clock query.Clock
}

func NewSQLStore(path string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLStore{db: db, logger: logger, Clock: query.RealClock{}}, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Create(ctx context.Context, in CreateInput, userID uuid.UUID) (Task, error) {
	now := s.Clock.Now().UTC()
	t := Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ScheduledTime != "" {
		st, err := parseTime(in.ScheduledTime)
		if err != nil {
			return Task{}, err
		}
		t.ScheduledTime = st
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, category, priority, status, scheduled_time, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.UserID.String(), t.Title, t.Description, t.Category,
		t.Priority, string(t.Status), unixOrNil(t.ScheduledTime),
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(), unixOrNil(t.CompletedAt))
	if err != nil {
		return Task{}, &StorageError{Op: "create", Err: err}
	}

	s.logger.Debug("created task", zap.String("task_id", t.ID.String()))
	return t, nil
}

func (s *SQLStore) GetByID(ctx context.Context, id, userID uuid.UUID) (Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`,
		id.String(), userID.String())
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, &StorageError{Op: "get", Err: err}
	}
	return t, nil
}

func (s *SQLStore) GetAll(ctx context.Context, userID uuid.UUID, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID.String(), limit)
	if err != nil {
		return nil, &StorageError{Op: "get_all", Err: err}
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *SQLStore) Update(ctx context.Context, id uuid.UUID, p Patch, userID uuid.UUID) (Task, error) {
	if err := p.validate(); err != nil {
		return Task{}, err
	}

	// Ownership check first so a foreign id is a clean not-found, not
	// a zero-row update.
	if _, err := s.GetByID(ctx, id, userID); err != nil {
		return Task{}, err
	}

	set, args := patchSetClause(p, s.Clock.Now().UTC())
	args = append(args, id.String(), userID.String())
	if _, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+set+` WHERE id = ? AND user_id = ?`, args...); err != nil {
		return Task{}, &StorageError{Op: "update", Err: err}
	}
	return s.GetByID(ctx, id, userID)
}

func (s *SQLStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBatch applies the patch to every listed task the user owns in
// one statement. Partial application cannot happen; the returned count
// is the store's own row count.
func (s *SQLStore) UpdateBatch(ctx context.Context, ids []uuid.UUID, p Patch, userID uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := p.validate(); err != nil {
		return 0, err
	}

	set, args := patchSetClause(p, s.Clock.Now().UTC())
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id.String())
	}
	args = append(args, userID.String())

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+set+` WHERE id IN (`+strings.Join(placeholders, ", ")+`) AND user_id = ?`,
		args...)
	if err != nil {
		return 0, &StorageError{Op: "update_batch", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "update_batch", Err: err}
	}
	return int(n), nil
}

func (s *SQLStore) ExecuteQuery(ctx context.Context, q *query.Query) ([]Task, error) {
	stmt, args := q.SQL()
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	defer rows.Close()
	return collectTasks(rows)
}

const taskColumns = "id, user_id, title, description, category, priority, status, scheduled_time, created_at, updated_at, completed_at"

// patchSetClause renders the SET clause for a patch. A status change
// to completed stamps completed_at; any other status clears it.
func patchSetClause(p Patch, now time.Time) (string, []any) {
	var sets []string
	var args []any
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *p.Category)
	}
	if p.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *p.Priority)
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
		if *p.Status == StatusCompleted {
			sets = append(sets, "completed_at = ?")
			args = append(args, now.Unix())
		} else {
			sets = append(sets, "completed_at = NULL")
		}
	}
	if p.ScheduledTime != nil {
		sets = append(sets, "scheduled_time = ?")
		args = append(args, unixOrNil(*p.ScheduledTime))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now.Unix())
	return strings.Join(sets, ", "), args
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		t                  Task
		id, userID, status string
		scheduled          sql.NullInt64
		created, updated   int64
		completed          sql.NullInt64
	)
	err := row.Scan(&id, &userID, &t.Title, &t.Description, &t.Category,
		&t.Priority, &status, &scheduled, &created, &updated, &completed)
	if err != nil {
		return Task{}, err
	}
	if t.ID, err = uuid.Parse(id); err != nil {
		return Task{}, err
	}
	if t.UserID, err = uuid.Parse(userID); err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	t.CreatedAt = time.Unix(created, 0).UTC()
	t.UpdatedAt = time.Unix(updated, 0).UTC()
	if scheduled.Valid {
		st := time.Unix(scheduled.Int64, 0).UTC()
		t.ScheduledTime = &st
	}
	if completed.Valid {
		ct := time.Unix(completed.Int64, 0).UTC()
		t.CompletedAt = &ct
	}
	return t, nil
}

func collectTasks(rows *sql.Rows) ([]Task, error) {
	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, &StorageError{Op: "scan", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "scan", Err: err}
	}
	return out, nil
}
