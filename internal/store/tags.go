package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Tag is a user-defined label; names are unique case-insensitively
type Tag struct {
	ID        int64
	Name      string
	Color     string
	CreatedAt time.Time
}

// CreateTag creates a new tag
func (s *Store) CreateTag(name, color string) (*Tag, error) {
	res, err := s.db.Exec("INSERT INTO tags (name, color) VALUES (?, ?)", name, color)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Tag{ID: id, Name: name, Color: color, CreatedAt: time.Now()}, nil
}

// GetTagByName looks a tag up case-insensitively; returns nil when absent
func (s *Store) GetTagByName(name string) (*Tag, error) {
	t := &Tag{}
	err := s.db.QueryRow(`
		SELECT id, name, color, created_at FROM tags WHERE name = ? COLLATE NOCASE
	`, name).Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return t, nil
}

// ListTags returns all tags ordered by name
func (s *Store) ListTags() ([]*Tag, error) {
	rows, err := s.db.Query("SELECT id, name, color, created_at FROM tags ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var out []*Tag
	for rows.Next() {
		t := &Tag{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTag removes a tag; junction rows cascade, projects are untouched
func (s *Store) DeleteTag(id int64) error {
	res, err := s.db.Exec("DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no tag with id %d", id)
	}
	return nil
}

// AssignTag links a tag to a project; already-assigned is not an error
func (s *Store) AssignTag(projectID string, tagID int64) error {
	_, err := s.db.Exec(`
		INSERT INTO project_tags (project_id, tag_id) VALUES (?, ?)
		ON CONFLICT(project_id, tag_id) DO NOTHING
	`, projectID, tagID)
	if err != nil {
		return fmt.Errorf("failed to assign tag: %w", err)
	}
	return nil
}

// UnassignTag removes a tag from a project
func (s *Store) UnassignTag(projectID string, tagID int64) error {
	_, err := s.db.Exec(`
		DELETE FROM project_tags WHERE project_id = ? AND tag_id = ?
	`, projectID, tagID)
	if err != nil {
		return fmt.Errorf("failed to unassign tag: %w", err)
	}
	return nil
}

// ListProjectTags returns the tags assigned to one project
func (s *Store) ListProjectTags(projectID string) ([]*Tag, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.color, t.created_at
		FROM tags t
		JOIN project_tags pt ON pt.tag_id = t.id
		WHERE pt.project_id = ?
		ORDER BY t.name COLLATE NOCASE
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project tags: %w", err)
	}
	defer rows.Close()

	var out []*Tag
	for rows.Next() {
		t := &Tag{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
