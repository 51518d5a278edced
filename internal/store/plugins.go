package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Plugin is a distinct instrument/effect referenced by one or more projects
type Plugin struct {
	ID        int64
	Name      string
	Format    string
	Vendor    string
	Installed sql.NullBool // invalid = unknown (registry unavailable)
	CheckedAt sql.NullTime
}

// getOrCreatePluginTx lazily creates the shared plugin row for a canonical name
func getOrCreatePluginTx(tx *sql.Tx, name, format string) (int64, error) {
	if _, err := tx.Exec(`
		INSERT INTO plugins (name, format) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET format = excluded.format WHERE plugins.format = ''
	`, name, format); err != nil {
		return 0, fmt.Errorf("failed to insert plugin: %w", err)
	}

	var id int64
	if err := tx.QueryRow("SELECT id FROM plugins WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get plugin id: %w", err)
	}
	return id, nil
}

func scanPluginRows(rows *sql.Rows) ([]*Plugin, error) {
	defer rows.Close()
	var out []*Plugin
	for rows.Next() {
		p := &Plugin{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Format, &p.Vendor, &p.Installed, &p.CheckedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPlugins returns every known plugin
func (s *Store) ListPlugins() ([]*Plugin, error) {
	rows, err := s.db.Query(`
		SELECT id, name, format, vendor, installed, checked_at FROM plugins ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	return scanPluginRows(rows)
}

// ListProjectPlugins returns the plugins referenced by one project
func (s *Store) ListProjectPlugins(projectID string) ([]*Plugin, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.name, p.format, p.vendor, p.installed, p.checked_at
		FROM plugins p
		JOIN project_plugins pp ON pp.plugin_id = p.id
		WHERE pp.project_id = ?
		ORDER BY p.name
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project plugins: %w", err)
	}
	return scanPluginRows(rows)
}

// UpdatePluginInstalled records a registry-check result for one plugin.
// installed is nil when the registry was unavailable.
func (s *Store) UpdatePluginInstalled(id int64, installed *bool, vendor string, checkedAt time.Time) error {
	var val sql.NullBool
	if installed != nil {
		val = sql.NullBool{Bool: *installed, Valid: true}
	}
	_, err := s.db.Exec(`
		UPDATE plugins SET installed = ?, vendor = CASE WHEN ? != '' THEN ? ELSE vendor END,
			checked_at = ? WHERE id = ?
	`, val, vendor, vendor, checkedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update plugin state: %w", err)
	}
	return nil
}
