// Package persistence is the SQLite-backed store for sessions, findings,
// and cross-session learning (spec.md §4.6), grounded on
// original_source/server/db.py's table layout and migration style.
package persistence

const schemaVersion = 5

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS session (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scene_path TEXT NOT NULL,
	scene_paths TEXT DEFAULT '[]',
	scene_hash TEXT NOT NULL,
	model TEXT NOT NULL,
	discussion_model TEXT,
	lens_preferences TEXT DEFAULT '{}',
	current_index INTEGER DEFAULT 0,
	status TEXT DEFAULT 'active',
	glossary_issues TEXT DEFAULT '[]',
	discussion_history TEXT DEFAULT '[]',
	learning_session TEXT DEFAULT '{}',
	created_at TEXT NOT NULL,
	completed_at TEXT,
	total_findings INTEGER DEFAULT 0,
	accepted_count INTEGER DEFAULT 0,
	rejected_count INTEGER DEFAULT 0,
	withdrawn_count INTEGER DEFAULT 0,
	index_context_hash TEXT DEFAULT '',
	index_context_stale INTEGER DEFAULT 0,
	index_rerun_prompted INTEGER DEFAULT 0,
	index_changed_files TEXT DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS finding (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES session(id) ON DELETE CASCADE,
	number INTEGER NOT NULL,
	severity TEXT NOT NULL,
	lens TEXT NOT NULL,
	location TEXT DEFAULT '',
	line_start INTEGER,
	line_end INTEGER,
	scene_path TEXT DEFAULT '',
	evidence TEXT DEFAULT '',
	impact TEXT DEFAULT '',
	options TEXT DEFAULT '[]',
	flagged_by TEXT DEFAULT '[]',
	ambiguity_type TEXT,
	stale INTEGER DEFAULT 0,
	status TEXT DEFAULT 'pending',
	author_response TEXT DEFAULT '',
	discussion_turns TEXT DEFAULT '[]',
	revision_history TEXT DEFAULT '[]',
	outcome_reason TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_finding_session ON finding(session_id);

CREATE TABLE IF NOT EXISTS learning (
	id INTEGER PRIMARY KEY,
	project_name TEXT DEFAULT 'Unknown',
	review_count INTEGER DEFAULT 0,
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS learning_entry (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	learning_id INTEGER NOT NULL REFERENCES learning(id) ON DELETE CASCADE,
	category TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_learning_entry_category ON learning_entry(category);
`
