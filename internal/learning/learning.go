// Package learning implements the cross-session learning extraction and
// persistence described in spec.md §4.8: turning one session's working
// signals into durable preference/blind-spot/resolution/ambiguity entries,
// with an idempotent commit chokepoint and a deterministic Markdown export.
package learning

import (
	"fmt"
	"time"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/store"
)

// saveLockTimeout bounds how long Save waits for LEARNING.md's lock before
// giving up — the CLI and the HTTP transport can both export concurrently
// against the same project directory.
const saveLockTimeout = store.DefaultLockTimeout

// EntryAdder is the idempotent insert the commit chokepoint drives — backed
// by internal/persistence.LearningStore.AddEntryIfAbsent in production, a
// plain in-memory fake in tests.
type EntryAdder interface {
	AddEntryIfAbsent(category, description string) (bool, error)
}

const (
	categoryPreference           = "preference"
	categoryBlindSpot            = "blind_spot"
	categoryResolution           = "resolution"
	categoryAmbiguityIntentional = "ambiguity_intentional"
	categoryAmbiguityAccidental  = "ambiguity_accidental"
)

// PersistSessionLearning copies the entries of the working lists in wl into
// store's durable categories with idempotent descriptions; wl itself is left
// unchanged. Review count is NOT incremented
// here — that happens exactly once, at session completion
// (internal/session.CompleteSession).
func PersistSessionLearning(store EntryAdder, wl *domain.LearningWorkingLists) error {
	for _, rejection := range wl.SessionRejections {
		desc := describeRejection(rejection)
		if _, err := store.AddEntryIfAbsent(categoryPreference, desc); err != nil {
			return fmt.Errorf("persisting rejection learning signal: %w", err)
		}
	}

	// Acceptances are recorded per-session but not promoted to a durable
	// blind-spot entry from a single occurrence — see DESIGN.md's Open
	// Question resolution #2. They are surfaced to the caller via the raw
	// session_acceptances list (persisted on the session row itself), not
	// through this chokepoint.

	for _, answer := range wl.SessionAmbiguityAnswers {
		desc := describeAmbiguity(answer)
		category := categoryAmbiguityAccidental
		if answer.AmbiguityType == domain.AmbiguityAnswerIntentional {
			category = categoryAmbiguityIntentional
		}
		if _, err := store.AddEntryIfAbsent(category, desc); err != nil {
			return fmt.Errorf("persisting ambiguity learning signal: %w", err)
		}
	}

	return nil
}

// describeRejection renders a rejection-derived preference description: the
// explicit PREFERENCE rule when the critic supplied one, otherwise the
// evidence excerpt plus the author's reason.
func describeRejection(r domain.RejectionSignal) string {
	if r.PreferenceRule != "" {
		return fmt.Sprintf("[%s] %s", r.Lens, r.PreferenceRule)
	}
	reason := r.Reason
	if reason == "" {
		reason = "no reason given"
	}
	return fmt.Sprintf("[%s] %s — Author says: %q", r.Lens, r.EvidenceExcerpt, reason)
}

// describeAmbiguity renders an ambiguity answer's description.
func describeAmbiguity(a domain.AmbiguityAnswer) string {
	return fmt.Sprintf("%s: %s", a.Location, a.Description)
}

// Load reads LEARNING.md from path, returning a zero-value Learning (named
// after projectName, no entries) if the file does not yet exist. The read is
// guarded by a shared file lock so it can't observe a partial write from a
// concurrent Save.
func Load(path, projectName string) (*domain.Learning, error) {
	if !store.Exists(path) {
		return &domain.Learning{ProjectName: projectName}, nil
	}
	var body string
	err := store.WithReadLock(path, saveLockTimeout, func() error {
		var readErr error
		body, readErr = store.ReadBody(path)
		return readErr
	})
	if err != nil {
		return nil, fmt.Errorf("reading learning file %s: %w", path, err)
	}
	l := ParseMarkdown(body)
	if l.ProjectName == "" {
		l.ProjectName = projectName
	}
	return l, nil
}

// Save renders learning as Markdown and writes it to path, overwriting any
// existing LEARNING.md. The write is guarded by an exclusive file lock so a
// concurrent export from another process can't interleave with it.
func Save(path string, l *domain.Learning, updatedAt time.Time) error {
	body, err := ExportMarkdown(l, updatedAt)
	if err != nil {
		return err
	}
	return store.WithLock(path, saveLockTimeout, func() error {
		return store.WriteBody(path, body)
	})
}

