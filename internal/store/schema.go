package store

// Schema v1 - normalized core schema.
// Samples and plugins are shared rows referenced through junction tables so
// the same sample path never appears twice in storage no matter how many
// projects use it.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per discovered Live set
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  path TEXT NOT NULL,
  name TEXT NOT NULL,
  tempo REAL NOT NULL DEFAULT 0,
  sig_numerator INTEGER NOT NULL DEFAULT 4,
  sig_denominator INTEGER NOT NULL DEFAULT 4,
  length_bars REAL NOT NULL DEFAULT 0,
  duration_secs REAL,
  key_name TEXT NOT NULL DEFAULT '',
  scale_name TEXT NOT NULL DEFAULT '',
  creator TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  mtime_unix INTEGER NOT NULL DEFAULT 0,
  first_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  last_scanned_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Path must be unique among active projects only, so a re-created file can
-- coexist with a soft-deleted row for the old one
CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_active_path ON projects(path) WHERE active = 1;
CREATE INDEX IF NOT EXISTS idx_projects_tempo ON projects(tempo);
CREATE INDEX IF NOT EXISTS idx_projects_last_scanned ON projects(last_scanned_at);

-- Distinct sample file references; created lazily, never deleted
CREATE TABLE IF NOT EXISTS samples (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT UNIQUE NOT NULL,
  name TEXT NOT NULL,
  present INTEGER,              -- 1 present, 0 missing, NULL never checked / unknown
  checked_at DATETIME
);

-- Distinct plugin references; created lazily, never deleted
CREATE TABLE IF NOT EXISTS plugins (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL,
  format TEXT NOT NULL DEFAULT '',
  vendor TEXT NOT NULL DEFAULT '',
  installed INTEGER,            -- 1 installed, 0 missing, NULL unknown
  checked_at DATETIME
);

CREATE TABLE IF NOT EXISTS project_samples (
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  sample_id INTEGER NOT NULL REFERENCES samples(id),
  use_count INTEGER NOT NULL DEFAULT 1,
  PRIMARY KEY (project_id, sample_id)
);

CREATE INDEX IF NOT EXISTS idx_project_samples_sample ON project_samples(sample_id);

CREATE TABLE IF NOT EXISTS project_plugins (
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  plugin_id INTEGER NOT NULL REFERENCES plugins(id),
  PRIMARY KEY (project_id, plugin_id)
);

CREATE INDEX IF NOT EXISTS idx_project_plugins_plugin ON project_plugins(plugin_id);

-- User-defined labels
CREATE TABLE IF NOT EXISTS tags (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE COLLATE NOCASE NOT NULL,
  color TEXT NOT NULL DEFAULT '',
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS project_tags (
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
  PRIMARY KEY (project_id, tag_id)
);

-- Release/tracklist groupings with ordered membership
CREATE TABLE IF NOT EXISTS collections (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  cover_path TEXT NOT NULL DEFAULT '',
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS collection_projects (
  collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (collection_id, project_id)
);

-- To-do items owned by exactly one project
CREATE TABLE IF NOT EXISTS tasks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  description TEXT NOT NULL,
  priority INTEGER NOT NULL DEFAULT 0,
  completed INTEGER NOT NULL DEFAULT 0,
  completed_at DATETIME,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);

-- Full-text index over free-text fields plus associated sample/plugin names.
-- Maintained inside the same transaction as every project write so queries
-- never observe the store and the index diverging.
CREATE VIRTUAL TABLE IF NOT EXISTS project_fts USING fts5(
  project_id UNINDEXED,
  name,
  notes,
  samples,
  plugins
);
`

// Schema v2 - lookup indexes for the query engine's filter subqueries
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_samples_present ON samples(present);
CREATE INDEX IF NOT EXISTS idx_plugins_installed ON plugins(installed);
CREATE INDEX IF NOT EXISTS idx_projects_key ON projects(key_name, scale_name);
CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(project_id, completed);
`
