package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Sample is a distinct audio file referenced by one or more projects
type Sample struct {
	ID        int64
	Path      string
	Name      string
	Present   sql.NullBool // invalid = never checked / unknown
	CheckedAt sql.NullTime
	UseCount  int // populated by per-project listings only
}

// getOrCreateSampleTx lazily creates the shared sample row for a path
func getOrCreateSampleTx(tx *sql.Tx, path, name string) (int64, error) {
	if _, err := tx.Exec(`
		INSERT INTO samples (path, name) VALUES (?, ?)
		ON CONFLICT(path) DO NOTHING
	`, path, name); err != nil {
		return 0, fmt.Errorf("failed to insert sample: %w", err)
	}

	var id int64
	if err := tx.QueryRow("SELECT id FROM samples WHERE path = ?", path).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get sample id: %w", err)
	}
	return id, nil
}

func scanSampleRows(rows *sql.Rows, withUseCount bool) ([]*Sample, error) {
	defer rows.Close()
	var out []*Sample
	for rows.Next() {
		smp := &Sample{}
		var err error
		if withUseCount {
			err = rows.Scan(&smp.ID, &smp.Path, &smp.Name, &smp.Present, &smp.CheckedAt, &smp.UseCount)
		} else {
			err = rows.Scan(&smp.ID, &smp.Path, &smp.Name, &smp.Present, &smp.CheckedAt)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

// ListSamples returns every known sample
func (s *Store) ListSamples() ([]*Sample, error) {
	rows, err := s.db.Query(`
		SELECT id, path, name, present, checked_at FROM samples ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	return scanSampleRows(rows, false)
}

// ListProjectSamples returns the samples referenced by one project with
// their per-project use counts
func (s *Store) ListProjectSamples(projectID string) ([]*Sample, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.path, s.name, s.present, s.checked_at, ps.use_count
		FROM samples s
		JOIN project_samples ps ON ps.sample_id = s.id
		WHERE ps.project_id = ?
		ORDER BY s.path
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project samples: %w", err)
	}
	return scanSampleRows(rows, true)
}

// UpdateSamplePresence records a presence-check result for one sample.
// present is nil when the check could not determine an answer.
func (s *Store) UpdateSamplePresence(id int64, present *bool, checkedAt time.Time) error {
	var val sql.NullBool
	if present != nil {
		val = sql.NullBool{Bool: *present, Valid: true}
	}
	_, err := s.db.Exec(`
		UPDATE samples SET present = ?, checked_at = ? WHERE id = ?
	`, val, checkedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update sample presence: %w", err)
	}
	return nil
}

// CountMissingSamples returns how many of a project's samples are known
// missing and how many are unknown. Unknown is reported separately, never
// folded into either bucket.
func (s *Store) CountMissingSamples(projectID string) (missing, unknown int, err error) {
	err = s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN s.present = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN s.present IS NULL THEN 1 ELSE 0 END), 0)
		FROM samples s
		JOIN project_samples ps ON ps.sample_id = s.id
		WHERE ps.project_id = ?
	`, projectID).Scan(&missing, &unknown)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count missing samples: %w", err)
	}
	return missing, unknown, nil
}
