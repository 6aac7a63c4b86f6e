package session

import (
	"time"

	"github.com/alanmeadows/lit-critic/internal/domain"
)

// CompleteSession marks s completed, stamps CompletedAt, and increments the
// project's review count exactly once — the only site that does so, per
// DESIGN.md's Open Question resolution #3.
func CompleteSession(s *domain.Session, learning *domain.Learning) error {
	if !AllFindingsConsidered(s.Findings) {
		return errNotAllConsidered
	}
	now := time.Now().UTC()
	s.Status = domain.SessionCompleted
	s.CompletedAt = &now
	s.RecomputeCounters()
	learning.ReviewCount++
	return nil
}

// AbandonSession marks s abandoned; no further auto-reopen applies once
// abandoned (RecomputeSessionStatus is a no-op for abandoned sessions).
func AbandonSession(s *domain.Session) {
	s.Status = domain.SessionAbandoned
}

var errNotAllConsidered = sessionError("cannot complete session: not all findings are in a terminal status")

type sessionError string

func (e sessionError) Error() string { return string(e) }
