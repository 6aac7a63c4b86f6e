package persistence

import (
	"database/sql"
	"fmt"

	"github.com/alanmeadows/lit-critic/internal/persistence/migrations"
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persistence layer for one project database.
type Store struct {
	db *sql.DB

	Sessions *SessionStore
	Findings *FindingStore
	Learning *LearningStore
}

// Open opens (creating if necessary) the project database at path, applies
// the WAL/foreign-keys pragmas, and brings the schema up to the current
// version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting journal_mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign_keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		return nil, err
	}

	return &Store{
		db:       db,
		Sessions: &SessionStore{db: db},
		Findings: &FindingStore{db: db},
		Learning: &LearningStore{db: db},
	}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("applying base schema: %w", err)
	}

	// Re-runnable regardless of the recorded version: migrations are gated
	// on column presence, not solely on schema_version, so a partially
	// applied upgrade converges correctly on retry.
	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	var current sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema_version: %w", err)
	}
	if !current.Valid || current.Int64 < schemaVersion {
		if _, err := db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("recording schema_version: %w", err)
		}
	}
	return nil
}
