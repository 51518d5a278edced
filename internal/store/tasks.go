package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Task is a to-do item owned by exactly one project
type Task struct {
	ID          int64
	ProjectID   string
	Description string
	Priority    int
	Completed   bool
	CompletedAt sql.NullTime
	CreatedAt   time.Time
}

// CreateTask adds a task to a project
func (s *Store) CreateTask(projectID, description string, priority int) (*Task, error) {
	res, err := s.db.Exec(`
		INSERT INTO tasks (project_id, description, priority) VALUES (?, ?, ?)
	`, projectID, description, priority)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Task{
		ID:          id,
		ProjectID:   projectID,
		Description: description,
		Priority:    priority,
		CreatedAt:   time.Now(),
	}, nil
}

// CompleteTask marks a task done and records when
func (s *Store) CompleteTask(id int64) error {
	res, err := s.db.Exec(`
		UPDATE tasks SET completed = 1, completed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND completed = 0
	`, id)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no open task with id %d", id)
	}
	return nil
}

// DeleteTask removes a task
func (s *Store) DeleteTask(id int64) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no task with id %d", id)
	}
	return nil
}

// ListProjectTasks returns a project's tasks, open ones first, then by
// priority descending
func (s *Store) ListProjectTasks(projectID string) ([]*Task, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, description, priority, completed, completed_at, created_at
		FROM tasks
		WHERE project_id = ?
		ORDER BY completed, priority DESC, created_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t := &Task{}
		var completed int
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Description, &t.Priority,
			&completed, &t.CompletedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Completed = completed == 1
		out = append(out, t)
	}
	return out, rows.Err()
}
