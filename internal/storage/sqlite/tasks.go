package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
)

// taskColumns is the canonical column list used by every SELECT; scanTask
// must stay in sync with it.
const taskColumns = `id, project_id, text, stage, completed, notes, priority, due_date, origin, source, source_id, created_at, updated_at`

// allowedUpdateFields maps API field names to database columns. Provenance
// columns (origin, source, source_id) are deliberately absent: they are
// write-once and no update path may touch them.
var allowedUpdateFields = map[string]string{
	"text":      "text",
	"completed": "completed",
	"notes":     "notes",
	"priority":  "priority",
	"dueDate":   "due_date",
}

// nullableUpdateFields are the API fields an explicit null is allowed to clear.
var nullableUpdateFields = map[string]bool{
	"priority": true,
	"dueDate":  true,
}

// CreateTask inserts a validated task row.
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	if err := prepareForInsert(task); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.ProjectID, task.Text, string(task.Stage), task.Completed,
		task.Notes, priorityValue(task.Priority), dueDateValue(task.DueDate),
		string(task.Origin), string(task.Source), sourceIDValue(task.SourceID),
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return wrapDBError("create task", err)
	}
	task.SyncStatus()
	return nil
}

// CreateTaskIfAbsent inserts a task row unless its (projectId, sourceId) pair
// already exists. Returns true when a row was inserted. The ON CONFLICT DO
// NOTHING clause rides on the partial unique index, which makes this safe
// under two concurrent seeding attempts for the same project.
func (s *Store) CreateTaskIfAbsent(ctx context.Context, task *types.Task) (bool, error) {
	if err := prepareForInsert(task); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO project_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		task.ID, task.ProjectID, task.Text, string(task.Stage), task.Completed,
		task.Notes, priorityValue(task.Priority), dueDateValue(task.DueDate),
		string(task.Origin), string(task.Source), sourceIDValue(task.SourceID),
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return false, wrapDBError("create task if absent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapDBError("create task if absent", err)
	}
	task.SyncStatus()
	return n > 0, nil
}

// GetTask fetches a row by exact id within a project scope.
func (s *Store) GetTask(ctx context.Context, projectID, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM project_tasks
		WHERE project_id = ? AND id = ?`,
		projectID, id,
	)
	task, err := scanTask(row)
	if err != nil {
		return nil, wrapDBError("get task", err)
	}
	return task, nil
}

// GetTasksBySourceID fetches all rows in a project carrying the given sourceId.
func (s *Store) GetTasksBySourceID(ctx context.Context, projectID, sourceID string) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM project_tasks
		WHERE project_id = ? AND source_id = ?
		ORDER BY created_at, id`,
		projectID, sourceID,
	)
	if err != nil {
		return nil, wrapDBError("get tasks by source id", err)
	}
	defer func() { _ = rows.Close() }()
	return collectTasks(rows)
}

// ListTasks returns every task in a project, ordered by stage then creation
// time. Stage order is the lifecycle order, not alphabetical, so the ordering
// is done with a CASE expression rather than in Go.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM project_tasks
		WHERE project_id = ?
		ORDER BY CASE stage
			WHEN 'Identification' THEN 0
			WHEN 'Definition' THEN 1
			WHEN 'Delivery' THEN 2
			WHEN 'Closure' THEN 3
			ELSE 4 END,
			created_at, id`,
		projectID,
	)
	if err != nil {
		return nil, wrapDBError("list tasks", err)
	}
	defer func() { _ = rows.Close() }()
	return collectTasks(rows)
}

// UpdateTask applies a whitelisted partial update to a row and returns the
// updated row. A nil map value means "set column to NULL" and is only honored
// for the nullable fields.
func (s *Store) UpdateTask(ctx context.Context, projectID, id string, updates map[string]interface{}) (*types.Task, error) {
	if len(updates) == 0 {
		// Nothing to apply; still bump updated_at for parity with the
		// non-empty path so callers observe a consistent contract.
		return s.touchTask(ctx, projectID, id)
	}

	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	for key, value := range updates {
		column, ok := allowedUpdateFields[key]
		if !ok {
			return nil, fmt.Errorf("invalid field for update: %s", key)
		}
		if value == nil && !nullableUpdateFields[key] {
			return nil, fmt.Errorf("field %s cannot be cleared to null", key)
		}
		setClauses = append(setClauses, column+" = ?")
		args = append(args, value)
	}

	query := "UPDATE project_tasks SET " + strings.Join(setClauses, ", ") + " WHERE project_id = ? AND id = ?"
	args = append(args, projectID, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("update task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, wrapDBError("update task", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update task: %w", storage.ErrNotFound)
	}

	return s.GetTask(ctx, projectID, id)
}

// DeleteTask removes a row by exact id.
func (s *Store) DeleteTask(ctx context.Context, projectID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM project_tasks WHERE project_id = ? AND id = ?`,
		projectID, id,
	)
	if err != nil {
		return wrapDBError("delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("delete task", err)
	}
	if n == 0 {
		return fmt.Errorf("delete task: %w", storage.ErrNotFound)
	}
	return nil
}

func (s *Store) touchTask(ctx context.Context, projectID, id string) (*types.Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE project_tasks SET updated_at = ? WHERE project_id = ? AND id = ?`,
		time.Now().UTC(), projectID, id,
	)
	if err != nil {
		return nil, wrapDBError("touch task", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, wrapDBError("touch task", err)
	} else if n == 0 {
		return nil, fmt.Errorf("touch task: %w", storage.ErrNotFound)
	}
	return s.GetTask(ctx, projectID, id)
}

func prepareForInsert(task *types.Task) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scannable) (*types.Task, error) {
	var (
		task     types.Task
		stage    string
		origin   string
		source   string
		priority sql.NullString
		dueDate  sql.NullTime
		sourceID sql.NullString
	)
	err := row.Scan(
		&task.ID, &task.ProjectID, &task.Text, &stage, &task.Completed,
		&task.Notes, &priority, &dueDate, &origin, &source, &sourceID,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Stage = types.Stage(stage)
	task.Origin = types.Origin(origin)
	task.Source = types.Origin(source)
	if priority.Valid {
		p := types.Priority(priority.String)
		task.Priority = &p
	}
	if dueDate.Valid {
		d := dueDate.Time
		task.DueDate = &d
	}
	if sourceID.Valid {
		sid := sourceID.String
		task.SourceID = &sid
	}
	task.SyncStatus()
	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*types.Task, error) {
	var tasks []*types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, wrapDBError("scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate tasks", err)
	}
	return tasks, nil
}

func priorityValue(p *types.Priority) interface{} {
	if p == nil {
		return nil
	}
	return string(*p)
}

func dueDateValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func sourceIDValue(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
