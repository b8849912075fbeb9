package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"materialhub/internal/models"
)

// ErrNotFound is returned when no task has the requested id.
var ErrNotFound = errors.New("task not found")

const taskColumns = "id, title, description, is_completed, priority, due_at, created_at, updated_at"

// TaskStore reads and writes the todos table.
type TaskStore struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{DB: db, Now: time.Now}
}

// Insert stores task and returns its id. A task carrying an existing id replaces that row.
func (s *TaskStore) Insert(ctx context.Context, task models.Task) (int64, error) {
	now := s.Now()
	createdAt := task.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var (
		res sql.Result
		err error
	)
	if task.ID != 0 {
		res, err = s.DB.ExecContext(ctx,
			"INSERT OR REPLACE INTO todos ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			task.ID, task.Title, nullString(task.Description), task.Completed, int64(task.Priority),
			nullMillis(task.DueAt), createdAt.UnixMilli(), now.UnixMilli())
	} else {
		res, err = s.DB.ExecContext(ctx,
			"INSERT INTO todos (title, description, is_completed, priority, due_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			task.Title, nullString(task.Description), task.Completed, int64(task.Priority),
			nullMillis(task.DueAt), createdAt.UnixMilli(), now.UnixMilli())
	}
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	if task.ID != 0 {
		return task.ID, nil
	}
	return res.LastInsertId()
}

// Update replaces the row with task.ID and refreshes its update timestamp.
func (s *TaskStore) Update(ctx context.Context, task models.Task) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE todos SET title = ?, description = ?, is_completed = ?, priority = ?, due_at = ?, updated_at = ? WHERE id = ?",
		task.Title, nullString(task.Description), task.Completed, int64(task.Priority),
		nullMillis(task.DueAt), s.Now().UnixMilli(), task.ID)
	if err != nil {
		return fmt.Errorf("update task %d: %w", task.ID, err)
	}
	return expectRow(res, task.ID)
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return expectRow(res, id)
}

// DeleteCompleted removes every completed task and reports how many were removed.
func (s *TaskStore) DeleteCompleted(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM todos WHERE is_completed = 1")
	if err != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", err)
	}
	return res.RowsAffected()
}

func (s *TaskStore) Get(ctx context.Context, id int64) (models.Task, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM todos WHERE id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	return task, err
}

// List returns the tasks matching filter in the requested order.
func (s *TaskStore) List(ctx context.Context, filter models.TaskFilter, order models.TaskSort) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM todos"
	switch filter {
	case models.FilterActive:
		query += " WHERE is_completed = 0"
	case models.FilterCompleted:
		query += " WHERE is_completed = 1"
	}

	switch order {
	case models.SortDueDate:
		query += " ORDER BY due_at IS NULL, due_at ASC, created_at DESC, id DESC"
	case models.SortPriority:
		query += " ORDER BY priority DESC, created_at DESC, id DESC"
	default:
		query += " ORDER BY created_at DESC, id DESC"
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		task        models.Task
		description sql.NullString
		priority    int64
		dueAt       sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&task.ID, &task.Title, &description, &task.Completed, &priority, &dueAt, &createdAt, &updatedAt); err != nil {
		return models.Task{}, err
	}
	return mapTask(task, description, priority, dueAt, createdAt, updatedAt), nil
}

func mapTask(task models.Task, description sql.NullString, priority int64, dueAt sql.NullInt64, createdAt, updatedAt int64) models.Task {
	task.Priority = models.Priority(priority)
	task.CreatedAt = time.UnixMilli(createdAt)
	task.UpdatedAt = time.UnixMilli(updatedAt)
	if description.Valid {
		value := description.String
		task.Description = &value
	}
	if dueAt.Valid {
		due := time.UnixMilli(dueAt.Int64)
		task.DueAt = &due
	}
	return task
}

func expectRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: value.UnixMilli(), Valid: true}
}
