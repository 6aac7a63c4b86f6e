// Package migrations holds the idempotent, column-presence-gated upgrade
// steps that carry a pre-existing database forward to the current schema
// version, grounded on original_source/server/db.py's
// _migrate_drop_skip_minor "create copy, drop, rename" idiom.
package migrations

import (
	"database/sql"
	"fmt"
)

// CurrentVersion is the schema version this package's migrations converge on.
const CurrentVersion = 5

// HasColumn reports whether table contains column, via PRAGMA table_info.
func HasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("inspecting table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &primaryKey); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Run applies every migration step whose precondition still holds,
// regardless of the recorded schema_version — so a partially-applied
// upgrade (e.g. one that added a column but crashed before the version
// bump) converges correctly on retry.
func Run(db *sql.DB) error {
	steps := []func(*sql.DB) error{
		dropSkipMinor,
		addLensPreferences,
		addFindingScenePath,
		addIndexContextFields,
	}
	for _, step := range steps {
		if err := step(db); err != nil {
			return err
		}
	}
	return nil
}

// dropSkipMinor removes the legacy session.skip_minor column (v1 -> v2),
// preserving all other columns via the teacher's rebuild idiom since SQLite
// cannot drop a column directly in the driver version this module targets.
func dropSkipMinor(db *sql.DB) error {
	has, err := HasColumn(db, "session", "skip_minor")
	if err != nil || !has {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE session_new (
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
	)`); err != nil {
		return fmt.Errorf("creating session_new: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO session_new (
		id, scene_path, scene_hash, model, discussion_model,
		current_index, status, glossary_issues, discussion_history,
		learning_session, created_at, completed_at, total_findings,
		accepted_count, rejected_count, withdrawn_count
	) SELECT
		id, scene_path, scene_hash, model, discussion_model,
		current_index, status, glossary_issues, discussion_history,
		learning_session, created_at, completed_at, total_findings,
		accepted_count, rejected_count, withdrawn_count
	FROM session`); err != nil {
		return fmt.Errorf("copying session rows: %w", err)
	}

	if _, err := tx.Exec("DROP TABLE session"); err != nil {
		return err
	}
	if _, err := tx.Exec("ALTER TABLE session_new RENAME TO session"); err != nil {
		return err
	}
	return tx.Commit()
}

// addLensPreferences adds session.lens_preferences (v2 -> v3).
func addLensPreferences(db *sql.DB) error {
	has, err := HasColumn(db, "session", "lens_preferences")
	if err != nil || has {
		return err
	}
	_, err = db.Exec(`ALTER TABLE session ADD COLUMN lens_preferences TEXT DEFAULT '{}'`)
	return err
}

// addFindingScenePath adds finding.scene_path for multi-scene sessions (v3 -> v4).
func addFindingScenePath(db *sql.DB) error {
	has, err := HasColumn(db, "finding", "scene_path")
	if err != nil || has {
		return err
	}
	_, err = db.Exec(`ALTER TABLE finding ADD COLUMN scene_path TEXT DEFAULT ''`)
	return err
}

// addIndexContextFields adds the four index-context staleness columns (v4 -> v5).
func addIndexContextFields(db *sql.DB) error {
	additions := []struct{ column, ddl string }{
		{"index_context_hash", `ALTER TABLE session ADD COLUMN index_context_hash TEXT DEFAULT ''`},
		{"index_context_stale", `ALTER TABLE session ADD COLUMN index_context_stale INTEGER DEFAULT 0`},
		{"index_rerun_prompted", `ALTER TABLE session ADD COLUMN index_rerun_prompted INTEGER DEFAULT 0`},
		{"index_changed_files", `ALTER TABLE session ADD COLUMN index_changed_files TEXT DEFAULT '[]'`},
	}
	for _, a := range additions {
		has, err := HasColumn(db, "session", a.column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := db.Exec(a.ddl); err != nil {
			return fmt.Errorf("adding session.%s: %w", a.column, err)
		}
	}
	return nil
}
