package validate

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrRegistryUnavailable means the Live plugin database could not be found
// or read. Callers degrade plugin state to unknown, never to missing.
var ErrRegistryUnavailable = errors.New("plugin registry unavailable")

// InstalledPlugin is one enabled entry from Live's own plugin database
type InstalledPlugin struct {
	Name   string
	Vendor string
	Format string
}

// Registry reads the plugin database Live maintains in its Database
// directory. Live keeps several SQLite files there (files, plugins, ...);
// only the plugins one carries the table we need.
type Registry struct {
	dir string
}

// NewRegistry points at Live's Database directory. An empty dir is a valid
// configuration meaning "no registry available".
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// InstalledPlugins returns every enabled, scanned plugin keyed by
// lower-cased name. Returns ErrRegistryUnavailable when the database
// cannot be located or read.
func (r *Registry) InstalledPlugins() (map[string]InstalledPlugin, error) {
	if r == nil || r.dir == "" {
		return nil, ErrRegistryUnavailable
	}

	dbPath, err := newestPluginsDB(r.dir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	defer db.Close()

	hasVendor, err := tableHasColumn(db, "plugins", "vendor")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	cols := "name, dev_identifier"
	if hasVendor {
		cols += ", vendor"
	}
	rows, err := db.Query("SELECT " + cols + " FROM plugins WHERE scanstate = 1 AND enabled = 1")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]InstalledPlugin)
	for rows.Next() {
		var name, devIdentifier string
		var vendor sql.NullString
		if hasVendor {
			if err := rows.Scan(&name, &devIdentifier, &vendor); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
			}
		} else {
			if err := rows.Scan(&name, &devIdentifier); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
			}
		}
		out[strings.ToLower(name)] = InstalledPlugin{
			Name:   name,
			Vendor: vendor.String,
			Format: parsePluginFormat(devIdentifier),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	return out, nil
}

// newestPluginsDB finds the most recent Live plugins database in dir.
// Picking just any .db would risk grabbing the files database instead,
// which has no plugins table.
func newestPluginsDB(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if filepath.Ext(name) != ".db" || !strings.Contains(name, "plugins") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, e.Name())
			newestMod = info.ModTime()
		}
	}

	if newest == "" {
		return "", fmt.Errorf("%w: no plugins database in %s", ErrRegistryUnavailable, dir)
	}
	return newest, nil
}

func tableHasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// parsePluginFormat classifies Live's dev_identifier prefixes
func parsePluginFormat(devIdentifier string) string {
	switch {
	case strings.HasPrefix(devIdentifier, "device:vst3:"):
		return "VST3"
	case strings.HasPrefix(devIdentifier, "device:vst:"):
		return "VST"
	case strings.HasPrefix(devIdentifier, "device:au:"):
		return "AU"
	default:
		return ""
	}
}
