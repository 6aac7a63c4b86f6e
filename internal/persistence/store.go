package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alanmeadows/lit-critic/internal/domain"
)

// SessionStore is CRUD for review sessions.
type SessionStore struct{ db *sql.DB }

// Create inserts a new active session and returns its assigned id.
func (st *SessionStore) Create(s *domain.Session) (int64, error) {
	scenePaths, _ := json.Marshal(s.ScenePaths)
	glossary, _ := json.Marshal(s.GlossaryIssues)
	lensPrefs, _ := json.Marshal(s.LensPreferences)
	now := time.Now().UTC().Format(time.RFC3339)

	var id int64
	err := withLockRetry(func() error {
		res, err := st.db.Exec(
			`INSERT INTO session (scene_path, scene_paths, scene_hash, model, discussion_model, lens_preferences, glossary_issues, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			firstOrEmpty(s.ScenePaths), string(scenePaths), s.SceneHash, s.Model, s.DiscussionModel,
			string(lensPrefs), string(glossary), now,
		)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// LoadActive returns the most recent active session, or nil if none exists.
func (st *SessionStore) LoadActive() (*domain.Session, error) {
	row := st.db.QueryRow("SELECT * FROM session WHERE status = 'active' ORDER BY id DESC LIMIT 1")
	return scanSession(row)
}

// Get loads a single session by id.
func (st *SessionStore) Get(id int64) (*domain.Session, error) {
	row := st.db.QueryRow("SELECT * FROM session WHERE id = ?", id)
	return scanSession(row)
}

// ListAll lists every session, newest first.
func (st *SessionStore) ListAll() ([]*domain.Session, error) {
	rows, err := st.db.Query("SELECT * FROM session ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a session and its findings (ON DELETE CASCADE).
func (st *SessionStore) Delete(id int64) error {
	_, err := st.db.Exec("DELETE FROM session WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session %d: %w", id, err)
	}
	return nil
}

// Save persists the full mutable state of s (navigation index, status,
// counters, glossary issues, discussion history, learning working lists,
// index-context fields) and recomputes nothing itself — callers run
// s.RecomputeCounters() beforehand so the counters written are current.
func (st *SessionStore) Save(id int64, s *domain.Session) error {
	glossary, _ := json.Marshal(s.GlossaryIssues)
	history, _ := json.Marshal(s.DiscussionHistory)
	learning, _ := json.Marshal(s.LearningSession)
	lensPrefs, _ := json.Marshal(s.LensPreferences)
	changedFiles, _ := json.Marshal(s.IndexChangedFiles)

	var completedAt any
	if s.CompletedAt != nil {
		completedAt = s.CompletedAt.UTC().Format(time.RFC3339)
	}

	return withLockRetry(func() error {
		_, err := st.db.Exec(
			`UPDATE session SET
				scene_hash = ?, current_index = ?, status = ?, glossary_issues = ?,
				discussion_history = ?, learning_session = ?, lens_preferences = ?,
				completed_at = ?, total_findings = ?, accepted_count = ?,
				rejected_count = ?, withdrawn_count = ?,
				index_context_hash = ?, index_context_stale = ?,
				index_rerun_prompted = ?, index_changed_files = ?
			WHERE id = ?`,
			s.SceneHash, s.CurrentIndex, string(s.Status), string(glossary),
			string(history), string(learning), string(lensPrefs),
			completedAt, s.Counters.Total, s.Counters.Accepted,
			s.Counters.Rejected, s.Counters.Withdrawn,
			s.IndexContextHash, boolToInt(s.IndexContextStale),
			boolToInt(s.IndexRerunPrompted), string(changedFiles),
			id,
		)
		if err != nil {
			return fmt.Errorf("saving session %d: %w", id, err)
		}
		return nil
	})
}

func firstOrEmpty(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var (
		id                                                     int64
		scenePath, scenePaths, sceneHash, model                string
		discussionModel                                        sql.NullString
		lensPrefs, status, glossary, history, learningSession  string
		createdAt                                              string
		completedAt                                            sql.NullString
		currentIndex, total, accepted, rejected, withdrawn     int
		indexContextHash                                       string
		indexContextStale, indexRerunPrompted                  int
		indexChangedFiles                                      string
	)
	err := row.Scan(
		&id, &scenePath, &scenePaths, &sceneHash, &model, &discussionModel,
		&lensPrefs, &currentIndex, &status, &glossary, &history, &learningSession,
		&createdAt, &completedAt, &total, &accepted, &rejected, &withdrawn,
		&indexContextHash, &indexContextStale, &indexRerunPrompted, &indexChangedFiles,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return buildSession(id, scenePath, scenePaths, sceneHash, model, discussionModel,
		lensPrefs, currentIndex, status, glossary, history, learningSession,
		createdAt, completedAt, total, accepted, rejected, withdrawn,
		indexContextHash, indexContextStale, indexRerunPrompted, indexChangedFiles)
}

func scanSessionRows(rows *sql.Rows) (*domain.Session, error) {
	var (
		id                                                     int64
		scenePath, scenePaths, sceneHash, model                string
		discussionModel                                        sql.NullString
		lensPrefs, status, glossary, history, learningSession  string
		createdAt                                              string
		completedAt                                            sql.NullString
		currentIndex, total, accepted, rejected, withdrawn     int
		indexContextHash                                       string
		indexContextStale, indexRerunPrompted                  int
		indexChangedFiles                                      string
	)
	err := rows.Scan(
		&id, &scenePath, &scenePaths, &sceneHash, &model, &discussionModel,
		&lensPrefs, &currentIndex, &status, &glossary, &history, &learningSession,
		&createdAt, &completedAt, &total, &accepted, &rejected, &withdrawn,
		&indexContextHash, &indexContextStale, &indexRerunPrompted, &indexChangedFiles,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return buildSession(id, scenePath, scenePaths, sceneHash, model, discussionModel,
		lensPrefs, currentIndex, status, glossary, history, learningSession,
		createdAt, completedAt, total, accepted, rejected, withdrawn,
		indexContextHash, indexContextStale, indexRerunPrompted, indexChangedFiles)
}

func buildSession(id int64, scenePath, scenePathsJSON, sceneHash, model string, discussionModel sql.NullString,
	lensPrefsJSON string, currentIndex int, status, glossaryJSON, historyJSON, learningJSON string,
	createdAt string, completedAt sql.NullString, total, accepted, rejected, withdrawn int,
	indexContextHash string, indexContextStale, indexRerunPrompted int, indexChangedFilesJSON string) (*domain.Session, error) {

	s := &domain.Session{
		ID:                 fmt.Sprintf("%d", id),
		SceneHash:          sceneHash,
		Model:              model,
		DiscussionModel:    discussionModel.String,
		CurrentIndex:       currentIndex,
		Status:             domain.SessionStatus(status),
		IndexContextHash:   indexContextHash,
		IndexContextStale:  indexContextStale != 0,
		IndexRerunPrompted: indexRerunPrompted != 0,
		Counters: domain.SessionCounters{
			Total: total, Accepted: accepted, Rejected: rejected, Withdrawn: withdrawn,
		},
	}
	_ = json.Unmarshal([]byte(scenePathsJSON), &s.ScenePaths)
	if len(s.ScenePaths) == 0 && scenePath != "" {
		s.ScenePaths = []string{scenePath}
	}
	_ = json.Unmarshal([]byte(lensPrefsJSON), &s.LensPreferences)
	_ = json.Unmarshal([]byte(glossaryJSON), &s.GlossaryIssues)
	_ = json.Unmarshal([]byte(historyJSON), &s.DiscussionHistory)
	_ = json.Unmarshal([]byte(learningJSON), &s.LearningSession)
	_ = json.Unmarshal([]byte(indexChangedFilesJSON), &s.IndexChangedFiles)

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		s.CreatedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			s.CompletedAt = &t
		}
	}
	return s, nil
}

// FindingStore is CRUD for findings belonging to a session.
type FindingStore struct{ db *sql.DB }

// Create inserts a new finding row for sessionID.
func (ft *FindingStore) Create(sessionID int64, f *domain.Finding) error {
	options, _ := json.Marshal(f.Options)
	flaggedBy, _ := json.Marshal(f.FlaggedBy)
	turns, _ := json.Marshal(f.DiscussionTurns)
	revisions, _ := json.Marshal(f.RevisionHistory)

	return withLockRetry(func() error {
		_, err := ft.db.Exec(
			`INSERT INTO finding (session_id, number, severity, lens, location, line_start, line_end,
				scene_path, evidence, impact, options, flagged_by, ambiguity_type, stale, status,
				author_response, discussion_turns, revision_history, outcome_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, f.Number, string(f.Severity), string(f.Lens), f.Location,
			nullableInt(f.LineStart), nullableInt(f.LineEnd), f.ScenePath,
			f.Evidence, f.Impact, string(options), string(flaggedBy),
			nullableString(string(f.AmbiguityType)), boolToInt(f.Stale), string(f.Status),
			f.AuthorResponse, string(turns), string(revisions), f.OutcomeReason,
		)
		if err != nil {
			return fmt.Errorf("creating finding %d: %w", f.Number, err)
		}
		return nil
	})
}

// Save updates every mutable column of an existing finding, identified by
// (sessionID, number).
func (ft *FindingStore) Save(sessionID int64, f *domain.Finding) error {
	options, _ := json.Marshal(f.Options)
	flaggedBy, _ := json.Marshal(f.FlaggedBy)
	turns, _ := json.Marshal(f.DiscussionTurns)
	revisions, _ := json.Marshal(f.RevisionHistory)

	return withLockRetry(func() error {
		_, err := ft.db.Exec(
			`UPDATE finding SET
				severity = ?, location = ?, line_start = ?, line_end = ?, scene_path = ?,
				evidence = ?, impact = ?, options = ?, flagged_by = ?, ambiguity_type = ?,
				stale = ?, status = ?, author_response = ?, discussion_turns = ?,
				revision_history = ?, outcome_reason = ?
			WHERE session_id = ? AND number = ?`,
			string(f.Severity), f.Location, nullableInt(f.LineStart), nullableInt(f.LineEnd), f.ScenePath,
			f.Evidence, f.Impact, string(options), string(flaggedBy), nullableString(string(f.AmbiguityType)),
			boolToInt(f.Stale), string(f.Status), f.AuthorResponse, string(turns),
			string(revisions), f.OutcomeReason,
			sessionID, f.Number,
		)
		if err != nil {
			return fmt.Errorf("saving finding %d: %w", f.Number, err)
		}
		return nil
	})
}

// ListBySession returns every finding for sessionID, ordered by number.
func (ft *FindingStore) ListBySession(sessionID int64) ([]*domain.Finding, error) {
	rows, err := ft.db.Query("SELECT number, severity, lens, location, line_start, line_end, scene_path, evidence, impact, options, flagged_by, ambiguity_type, stale, status, author_response, discussion_turns, revision_history, outcome_reason FROM finding WHERE session_id = ? ORDER BY number", sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing findings for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var out []*domain.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFinding(rows *sql.Rows) (*domain.Finding, error) {
	var (
		number                                    int
		severity, lens, location                  string
		lineStart, lineEnd                        sql.NullInt64
		scenePath, evidence, impact               string
		optionsJSON, flaggedByJSON                string
		ambiguityType                             sql.NullString
		stale                                      int
		status, authorResponse                    string
		turnsJSON, revisionsJSON, outcomeReason   string
	)
	if err := rows.Scan(&number, &severity, &lens, &location, &lineStart, &lineEnd, &scenePath,
		&evidence, &impact, &optionsJSON, &flaggedByJSON, &ambiguityType, &stale, &status,
		&authorResponse, &turnsJSON, &revisionsJSON, &outcomeReason); err != nil {
		return nil, fmt.Errorf("scanning finding: %w", err)
	}

	f := &domain.Finding{
		Number:         number,
		Severity:       domain.Severity(severity),
		Lens:           domain.Lens(lens),
		Location:       location,
		ScenePath:      scenePath,
		Evidence:       evidence,
		Impact:         impact,
		AmbiguityType:  domain.AmbiguityType(ambiguityType.String),
		Stale:          stale != 0,
		Status:         domain.FindingStatus(status),
		AuthorResponse: authorResponse,
		OutcomeReason:  outcomeReason,
	}
	if lineStart.Valid {
		v := int(lineStart.Int64)
		f.LineStart = &v
	}
	if lineEnd.Valid {
		v := int(lineEnd.Int64)
		f.LineEnd = &v
	}
	_ = json.Unmarshal([]byte(optionsJSON), &f.Options)
	_ = json.Unmarshal([]byte(flaggedByJSON), &f.FlaggedBy)
	_ = json.Unmarshal([]byte(turnsJSON), &f.DiscussionTurns)
	_ = json.Unmarshal([]byte(revisionsJSON), &f.RevisionHistory)
	return f, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// LearningStore is CRUD for the singleton cross-session learning record.
type LearningStore struct{ db *sql.DB }

// GetOrCreate loads the singleton learning row (id=1), creating it with
// projectName if absent.
func (lt *LearningStore) GetOrCreate(projectName string) (*domain.Learning, error) {
	l, err := lt.get()
	if err != nil {
		return nil, err
	}
	if l != nil {
		return l, nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	err = withLockRetry(func() error {
		_, err := lt.db.Exec(
			"INSERT INTO learning (id, project_name, review_count, updated_at) VALUES (1, ?, 0, ?)",
			projectName, now,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating learning record: %w", err)
	}
	return lt.get()
}

func (lt *LearningStore) get() (*domain.Learning, error) {
	row := lt.db.QueryRow("SELECT project_name, review_count FROM learning WHERE id = 1")
	var projectName string
	var reviewCount int
	err := row.Scan(&projectName, &reviewCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading learning record: %w", err)
	}

	l := &domain.Learning{ProjectName: projectName, ReviewCount: reviewCount}
	for _, cat := range []struct {
		name string
		dst  *[]domain.LearningEntry
	}{
		{"preference", &l.Preferences},
		{"blind_spot", &l.BlindSpots},
		{"resolution", &l.Resolutions},
		{"ambiguity_intentional", &l.AmbiguityIntentional},
		{"ambiguity_accidental", &l.AmbiguityAccidental},
	} {
		entries, err := lt.entries(cat.name)
		if err != nil {
			return nil, err
		}
		*cat.dst = entries
	}
	return l, nil
}

func (lt *LearningStore) entries(category string) ([]domain.LearningEntry, error) {
	rows, err := lt.db.Query("SELECT id, description FROM learning_entry WHERE learning_id = 1 AND category = ? ORDER BY id", category)
	if err != nil {
		return nil, fmt.Errorf("listing learning entries for %s: %w", category, err)
	}
	defer rows.Close()

	var out []domain.LearningEntry
	for rows.Next() {
		var id int64
		var desc string
		if err := rows.Scan(&id, &desc); err != nil {
			return nil, err
		}
		out = append(out, domain.LearningEntry{ID: fmt.Sprintf("%d", id), Description: desc})
	}
	return out, rows.Err()
}

// Reset clears every learning entry and review count, keeping the project
// name, so a fresh review pass starts with an empty working memory.
func (lt *LearningStore) Reset() error {
	return withLockRetry(func() error {
		if _, err := lt.db.Exec("DELETE FROM learning_entry WHERE learning_id = 1"); err != nil {
			return fmt.Errorf("clearing learning entries: %w", err)
		}
		now := time.Now().UTC().Format(time.RFC3339)
		_, err := lt.db.Exec("UPDATE learning SET review_count = 0, updated_at = ? WHERE id = 1", now)
		return err
	})
}

// SaveReviewCount updates the singleton row's review_count and updated_at.
func (lt *LearningStore) SaveReviewCount(reviewCount int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return withLockRetry(func() error {
		_, err := lt.db.Exec("UPDATE learning SET review_count = ?, updated_at = ? WHERE id = 1", reviewCount, now)
		return err
	})
}

// AddEntryIfAbsent inserts a new learning_entry under category unless an
// existing entry in that category already contains description as a
// substring — the idempotency rule from spec.md §4.8's commit chokepoint.
func (lt *LearningStore) AddEntryIfAbsent(category, description string) (bool, error) {
	existing, err := lt.entries(category)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if strings.Contains(e.Description, description) {
			return false, nil
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	err = withLockRetry(func() error {
		_, err := lt.db.Exec(
			"INSERT INTO learning_entry (learning_id, category, description, created_at) VALUES (1, ?, ?, ?)",
			category, description, now,
		)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("adding learning entry: %w", err)
	}
	return true, nil
}

