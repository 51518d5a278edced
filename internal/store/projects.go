package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hflor/livedex/internal/als"
)

// Project is one indexed Live set
type Project struct {
	ID             string
	Path           string
	Name           string
	Tempo          float64
	SigNumerator   int
	SigDenominator int
	LengthBars     float64
	DurationSecs   sql.NullFloat64
	Key            string
	Scale          string
	Creator        string
	Notes          string
	Active         bool
	SizeBytes      int64
	MtimeUnix      int64
	FirstSeenAt    time.Time
	LastScannedAt  time.Time
}

// TimeSignature renders the signature as "4/4"
func (p *Project) TimeSignature() string {
	return fmt.Sprintf("%d/%d", p.SigNumerator, p.SigDenominator)
}

// Fingerprint is the persisted (size, mtime) pair the change detector
// compares against current filesystem metadata
type Fingerprint struct {
	SizeBytes int64
	MtimeUnix int64
}

// ScanCommit is the full row set produced by one successful decode,
// committed as a single transaction
type ScanCommit struct {
	Path      string
	Name      string
	Set       *als.Set
	SizeBytes int64
	MtimeUnix int64
}

const projectColumns = `id, path, name, tempo, sig_numerator, sig_denominator,
	length_bars, duration_secs, key_name, scale_name, creator, notes, active,
	size_bytes, mtime_unix, first_seen_at, last_scanned_at`

func scanProjectRow(row interface{ Scan(...any) error }) (*Project, error) {
	p := &Project{}
	var active int
	err := row.Scan(
		&p.ID, &p.Path, &p.Name, &p.Tempo, &p.SigNumerator, &p.SigDenominator,
		&p.LengthBars, &p.DurationSecs, &p.Key, &p.Scale, &p.Creator, &p.Notes,
		&active, &p.SizeBytes, &p.MtimeUnix, &p.FirstSeenAt, &p.LastScannedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Active = active == 1
	return p, nil
}

// CommitScan writes one decoded project and all of its sample/plugin rows,
// junction rows and full-text row in a single transaction. Either the whole
// row set lands or none of it does.
//
// Returns true when the project was newly created, false when an existing
// row was refreshed.
func (s *Store) CommitScan(c *ScanCommit) (created bool, err error) {
	err = s.Transaction(func(tx *sql.Tx) error {
		var projectID, notes string
		row := tx.QueryRow("SELECT id, notes FROM projects WHERE path = ? AND active = 1", c.Path)
		switch scanErr := row.Scan(&projectID, &notes); scanErr {
		case sql.ErrNoRows:
			created = true
			projectID = uuid.NewString()
			var duration sql.NullFloat64
			if c.Set.DurationKnown {
				duration = sql.NullFloat64{Float64: c.Set.DurationSecs, Valid: true}
			}
			_, insErr := tx.Exec(`
				INSERT INTO projects (id, path, name, tempo, sig_numerator, sig_denominator,
					length_bars, duration_secs, key_name, scale_name, creator,
					size_bytes, mtime_unix)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, projectID, c.Path, c.Name, c.Set.Tempo, c.Set.SigNumerator, c.Set.SigDenominator,
				c.Set.LengthBars, duration, c.Set.Key, c.Set.Scale, c.Set.Creator,
				c.SizeBytes, c.MtimeUnix)
			if insErr != nil {
				return fmt.Errorf("failed to insert project: %w", insErr)
			}
		case nil:
			var duration sql.NullFloat64
			if c.Set.DurationKnown {
				duration = sql.NullFloat64{Float64: c.Set.DurationSecs, Valid: true}
			}
			_, updErr := tx.Exec(`
				UPDATE projects SET name = ?, tempo = ?, sig_numerator = ?, sig_denominator = ?,
					length_bars = ?, duration_secs = ?, key_name = ?, scale_name = ?, creator = ?,
					size_bytes = ?, mtime_unix = ?, last_scanned_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`, c.Name, c.Set.Tempo, c.Set.SigNumerator, c.Set.SigDenominator,
				c.Set.LengthBars, duration, c.Set.Key, c.Set.Scale, c.Set.Creator,
				c.SizeBytes, c.MtimeUnix, projectID)
			if updErr != nil {
				return fmt.Errorf("failed to update project: %w", updErr)
			}
		default:
			return fmt.Errorf("failed to look up project: %w", scanErr)
		}

		// Re-parse replaces the reference sets wholesale; the shared sample
		// and plugin rows themselves are never deleted
		if _, err := tx.Exec("DELETE FROM project_samples WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("failed to clear sample links: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM project_plugins WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("failed to clear plugin links: %w", err)
		}

		for _, ref := range c.Set.Samples {
			sampleID, err := getOrCreateSampleTx(tx, ref.Path, ref.Name)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`
				INSERT INTO project_samples (project_id, sample_id, use_count) VALUES (?, ?, ?)
			`, projectID, sampleID, ref.UseCount); err != nil {
				return fmt.Errorf("failed to link sample: %w", err)
			}
		}

		for _, ref := range c.Set.Plugins {
			pluginID, err := getOrCreatePluginTx(tx, ref.Name, ref.Format)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`
				INSERT INTO project_plugins (project_id, plugin_id) VALUES (?, ?)
			`, projectID, pluginID); err != nil {
				return fmt.Errorf("failed to link plugin: %w", err)
			}
		}

		return refreshProjectFTSTx(tx, projectID)
	})
	return created, err
}

// refreshProjectFTSTx rebuilds the full-text row for one project from the
// relational rows, inside the caller's transaction
func refreshProjectFTSTx(tx *sql.Tx, projectID string) error {
	if _, err := tx.Exec("DELETE FROM project_fts WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("failed to clear search row: %w", err)
	}
	_, err := tx.Exec(`
		INSERT INTO project_fts (project_id, name, notes, samples, plugins)
		SELECT p.id, p.name, p.notes,
			COALESCE((SELECT GROUP_CONCAT(s.name, ' ') FROM project_samples ps
				JOIN samples s ON s.id = ps.sample_id WHERE ps.project_id = p.id), ''),
			COALESCE((SELECT GROUP_CONCAT(pl.name, ' ') FROM project_plugins pp
				JOIN plugins pl ON pl.id = pp.plugin_id WHERE pp.project_id = p.id), '')
		FROM projects p WHERE p.id = ?
	`, projectID)
	if err != nil {
		return fmt.Errorf("failed to write search row: %w", err)
	}
	return nil
}

// GetFingerprints preloads the persisted fingerprint of every active project
// keyed by path, so warm scans can gate on metadata without per-file queries
func (s *Store) GetFingerprints() (map[string]Fingerprint, error) {
	rows, err := s.db.Query("SELECT path, size_bytes, mtime_unix FROM projects WHERE active = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Fingerprint)
	for rows.Next() {
		var path string
		var fp Fingerprint
		if err := rows.Scan(&path, &fp.SizeBytes, &fp.MtimeUnix); err != nil {
			return nil, err
		}
		out[path] = fp
	}
	return out, rows.Err()
}

// GetProject retrieves a project by its identifier; returns nil when absent
func (s *Store) GetProject(id string) (*Project, error) {
	p, err := scanProjectRow(s.db.QueryRow(
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// GetProjectByPath retrieves the active project at the given path
func (s *Store) GetProjectByPath(path string) (*Project, error) {
	p, err := scanProjectRow(s.db.QueryRow(
		"SELECT "+projectColumns+" FROM projects WHERE path = ? AND active = 1", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project by path: %w", err)
	}
	return p, nil
}

// ListProjects returns projects ordered by most recently scanned first
func (s *Store) ListProjects(includeDeleted bool) ([]*Project, error) {
	q := "SELECT " + projectColumns + " FROM projects"
	if !includeDeleted {
		q += " WHERE active = 1"
	}
	q += " ORDER BY last_scanned_at DESC"

	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SoftDeleteProject flags a project inactive. The row and all of its tag,
// task and collection associations survive for history and restore.
func (s *Store) SoftDeleteProject(id string) error {
	res, err := s.db.Exec("UPDATE projects SET active = 0 WHERE id = ? AND active = 1", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no active project with id %s", id)
	}
	return nil
}

// RestoreProject flips a soft-deleted project back to active
func (s *Store) RestoreProject(id string) error {
	res, err := s.db.Exec("UPDATE projects SET active = 1 WHERE id = ? AND active = 0", id)
	if err != nil {
		return fmt.Errorf("failed to restore project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no deleted project with id %s", id)
	}
	return nil
}

// SetProjectNotes replaces a project's free-text notes and refreshes its
// search row in the same transaction
func (s *Store) SetProjectNotes(id, notes string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec("UPDATE projects SET notes = ? WHERE id = ?", notes, id)
		if err != nil {
			return fmt.Errorf("failed to set notes: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("no project with id %s", id)
		}
		return refreshProjectFTSTx(tx, id)
	})
}

// CountProjects returns the number of active projects
func (s *Store) CountProjects() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM projects WHERE active = 1").Scan(&n)
	return n, err
}
