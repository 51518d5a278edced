package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Collection groups projects for release/tracklist management
type Collection struct {
	ID          int64
	Name        string
	Description string
	CoverPath   string
	CreatedAt   time.Time
}

// CollectionEntry is one project inside a collection at a given position
type CollectionEntry struct {
	Project  *Project
	Position int
}

// CreateCollection creates a new collection
func (s *Store) CreateCollection(name, description string) (*Collection, error) {
	res, err := s.db.Exec(`
		INSERT INTO collections (name, description) VALUES (?, ?)
	`, name, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Collection{ID: id, Name: name, Description: description, CreatedAt: time.Now()}, nil
}

// GetCollectionByName returns a collection by name; nil when absent
func (s *Store) GetCollectionByName(name string) (*Collection, error) {
	c := &Collection{}
	err := s.db.QueryRow(`
		SELECT id, name, description, cover_path, created_at FROM collections WHERE name = ?
	`, name).Scan(&c.ID, &c.Name, &c.Description, &c.CoverPath, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return c, nil
}

// ListCollections returns all collections ordered by creation time
func (s *Store) ListCollections() ([]*Collection, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, cover_path, created_at FROM collections ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var out []*Collection
	for rows.Next() {
		c := &Collection{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CoverPath, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCollection removes a collection; membership rows cascade, the
// projects themselves are untouched
func (s *Store) DeleteCollection(id int64) error {
	res, err := s.db.Exec("DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no collection with id %d", id)
	}
	return nil
}

// AddToCollection appends a project at the end of a collection's order
func (s *Store) AddToCollection(collectionID int64, projectID string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		var next int
		err := tx.QueryRow(`
			SELECT COALESCE(MAX(position), 0) + 1 FROM collection_projects WHERE collection_id = ?
		`, collectionID).Scan(&next)
		if err != nil {
			return fmt.Errorf("failed to get next position: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO collection_projects (collection_id, project_id, position) VALUES (?, ?, ?)
			ON CONFLICT(collection_id, project_id) DO NOTHING
		`, collectionID, projectID, next)
		if err != nil {
			return fmt.Errorf("failed to add to collection: %w", err)
		}
		return nil
	})
}

// RemoveFromCollection removes a project from a collection
func (s *Store) RemoveFromCollection(collectionID int64, projectID string) error {
	_, err := s.db.Exec(`
		DELETE FROM collection_projects WHERE collection_id = ? AND project_id = ?
	`, collectionID, projectID)
	if err != nil {
		return fmt.Errorf("failed to remove from collection: %w", err)
	}
	return nil
}

// ListCollectionProjects returns a collection's projects in order
func (s *Store) ListCollectionProjects(collectionID int64) ([]*CollectionEntry, error) {
	rows, err := s.db.Query(`
		SELECT `+projectColumns+`, cp.position
		FROM projects
		JOIN collection_projects cp ON cp.project_id = projects.id
		WHERE cp.collection_id = ?
		ORDER BY cp.position
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection projects: %w", err)
	}
	defer rows.Close()

	var out []*CollectionEntry
	for rows.Next() {
		e := &CollectionEntry{Project: &Project{}}
		p := e.Project
		var active int
		if err := rows.Scan(
			&p.ID, &p.Path, &p.Name, &p.Tempo, &p.SigNumerator, &p.SigDenominator,
			&p.LengthBars, &p.DurationSecs, &p.Key, &p.Scale, &p.Creator, &p.Notes,
			&active, &p.SizeBytes, &p.MtimeUnix, &p.FirstSeenAt, &p.LastScannedAt,
			&e.Position,
		); err != nil {
			return nil, err
		}
		p.Active = active == 1
		out = append(out, e)
	}
	return out, rows.Err()
}
