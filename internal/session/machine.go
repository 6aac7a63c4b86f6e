// Package session implements the pure finding/session lifecycle state
// machine (spec.md §4.5). It has no I/O and no LLM dependency — every
// function takes value types and returns mutations or derived values,
// translated directly from
// original_source/lit_platform/session_state_machine.py.
package session

import (
	"fmt"
	"strings"

	"github.com/alanmeadows/lit-critic/internal/domain"
)

// IsTerminal reports whether status is one of the terminal finding statuses.
func IsTerminal(status domain.FindingStatus) bool {
	if status == "" {
		status = domain.StatusPending
	}
	return domain.IsTerminal(status)
}

// FirstUnresolvedIndex returns the index of the first non-terminal finding,
// or -1 when every finding is terminal.
func FirstUnresolvedIndex(findings []*domain.Finding) int {
	for i, f := range findings {
		if !IsTerminal(f.Status) {
			return i
		}
	}
	return -1
}

// AllFindingsConsidered reports whether every finding has a terminal status.
func AllFindingsConsidered(findings []*domain.Finding) bool {
	for _, f := range findings {
		if !IsTerminal(f.Status) {
			return false
		}
	}
	return true
}

// LensTarget is the grouping used by NextIndexForLens's skip semantics.
type LensTarget string

const (
	TargetStructure LensTarget = "structure"
	TargetCoherence LensTarget = "coherence"
)

// NextIndexForLens returns the next index after current, skipping findings
// whose lens the target group has already covered: structure skips prose;
// coherence skips prose and structure.
func NextIndexForLens(findings []*domain.Finding, current int, target LensTarget) int {
	idx := current + 1
	for idx < len(findings) {
		lens := strings.ToLower(string(findings[idx].Lens))
		if target == TargetStructure && lens == string(domain.LensProse) {
			idx++
			continue
		}
		if target == TargetCoherence && (lens == string(domain.LensProse) || lens == string(domain.LensStructure)) {
			idx++
			continue
		}
		break
	}
	return idx
}

// NextAvailableIndex returns the first index at or after start whose finding
// is not withdrawn, or len(findings) if none qualify.
func NextAvailableIndex(findings []*domain.Finding, start int) int {
	idx := start
	for idx < len(findings) && findings[idx].Status == domain.StatusWithdrawn {
		idx++
	}
	return idx
}

// RecomputeSessionStatus applies the invariant that session completion
// tracks finding terminality: complete iff every finding is terminal, else
// active. A completed session automatically reopens if any finding reverts
// to non-terminal.
func RecomputeSessionStatus(s *domain.Session) {
	if s.Status == domain.SessionAbandoned {
		return
	}
	if AllFindingsConsidered(s.Findings) {
		s.Status = domain.SessionCompleted
	} else {
		s.Status = domain.SessionActive
	}
	s.RecomputeCounters()
}

// ApplyAcceptance marks a finding accepted and records an acceptance
// learning signal.
func ApplyAcceptance(f *domain.Finding, learning *domain.LearningWorkingLists) {
	f.Status = domain.StatusAccepted
	learning.SessionAcceptances = append(learning.SessionAcceptances, domain.AcceptancePattern{
		Lens:    f.Lens,
		Pattern: truncate(f.Evidence, 100),
	})
}

// ApplyRejection marks a finding rejected, records the author's reason, and
// records a rejection learning signal.
func ApplyRejection(f *domain.Finding, learning *domain.LearningWorkingLists, reason string) {
	f.Status = domain.StatusRejected
	f.AuthorResponse = reason
	learning.SessionRejections = append(learning.SessionRejections, domain.RejectionSignal{
		Lens:            f.Lens,
		EvidenceExcerpt: truncate(f.Evidence, 100),
		Reason:          reason,
	})
}

// RecordDiscussionRejection records a discussion-derived rejection or
// concession learning signal, optionally carrying an extracted preference
// rule.
func RecordDiscussionRejection(f *domain.Finding, learning *domain.LearningWorkingLists, reason, preferenceRule string) {
	learning.SessionRejections = append(learning.SessionRejections, domain.RejectionSignal{
		Lens:            f.Lens,
		EvidenceExcerpt: truncate(f.Evidence, 100),
		Reason:          reason,
		PreferenceRule:  preferenceRule,
	})
}

// RecordDiscussionAcceptance records a discussion-derived acceptance signal.
func RecordDiscussionAcceptance(f *domain.Finding, learning *domain.LearningWorkingLists) {
	learning.SessionAcceptances = append(learning.SessionAcceptances, domain.AcceptancePattern{
		Lens:    f.Lens,
		Pattern: truncate(f.Evidence, 100),
	})
}

// RecordAmbiguityAnswer records the author's ambiguity classification.
func RecordAmbiguityAnswer(f *domain.Finding, learning *domain.LearningWorkingLists, ambiguityType domain.AmbiguityType) {
	learning.SessionAmbiguityAnswers = append(learning.SessionAmbiguityAnswers, domain.AmbiguityAnswer{
		Location:      f.Location,
		Description:   truncate(f.Evidence, 100),
		AmbiguityType: ambiguityType,
	})
}

// ApplyDiscussionStatus maps a parsed discussion status tag onto the
// finding's persisted FindingStatus.
func ApplyDiscussionStatus(f *domain.Finding, status string) {
	switch status {
	case "accepted":
		f.Status = domain.StatusAccepted
	case "conceded":
		f.Status = domain.StatusWithdrawn
	case "rejected":
		f.Status = domain.StatusRejected
	case "revised":
		f.Status = domain.StatusRevised
	case "withdrawn":
		f.Status = domain.StatusWithdrawn
	case "escalated":
		f.Status = domain.StatusEscalated
	}
}

// ApplyDiscussionOutcomeReason sets the canonical outcome_reason wording for
// a discussion-driven transition.
func ApplyDiscussionOutcomeReason(f *domain.Finding, status, responseText, userMessage, changeDesc string) {
	switch {
	case (status == "revised" || status == "escalated") && changeDesc != "":
		action := "Revised"
		if status == "escalated" {
			action = "Escalated"
		}
		f.OutcomeReason = fmt.Sprintf("%s: %s", action, changeDesc)
	case status == "withdrawn":
		f.OutcomeReason = "Withdrawn by critic: " + truncate(responseText, 150)
	case status == "conceded":
		f.OutcomeReason = "Conceded by critic: " + truncate(responseText, 150)
	case status == "rejected":
		f.OutcomeReason = "Rejected by author: " + truncate(userMessage, 150)
	case status == "accepted":
		f.OutcomeReason = "Accepted by author"
	}
}

// RevisionFields carries the subset of mutable finding fields a discussion
// REVISION block supplies; a nil field means "leave unchanged".
type RevisionFields struct {
	Severity *domain.Severity
	Evidence *string
	Impact   *string
	Options  []string
	hasOptions bool
}

// SetOptions marks Options as explicitly present (vs. an absent key).
func (r *RevisionFields) SetOptions(opts []string) {
	r.Options = opts
	r.hasOptions = true
}

// ApplyFindingRevision pushes the finding's current mutable fields onto its
// RevisionHistory, then overwrites only the fields present in r. Returns the
// pre-revision snapshot.
func ApplyFindingRevision(f *domain.Finding, r RevisionFields) domain.RevisionSnapshot {
	old := f.Snapshot()
	f.RevisionHistory = append(f.RevisionHistory, old)

	if r.Severity != nil {
		f.Severity = *r.Severity
	}
	if r.Evidence != nil {
		f.Evidence = *r.Evidence
	}
	if r.Impact != nil {
		f.Impact = *r.Impact
	}
	if r.hasOptions {
		f.Options = r.Options
	}
	return old
}

// DescribeRevisionChanges renders a concise human-readable delta summary
// between a pre-revision snapshot and the applied revision fields.
func DescribeRevisionChanges(old domain.RevisionSnapshot, r RevisionFields) string {
	var changes []string
	if r.Severity != nil && *r.Severity != old.Severity {
		changes = append(changes, fmt.Sprintf("severity %s → %s", old.Severity, *r.Severity))
	}
	if r.Evidence != nil {
		changes = append(changes, "evidence refined")
	}
	if r.Impact != nil {
		changes = append(changes, "impact updated")
	}
	if r.hasOptions {
		changes = append(changes, "options updated")
	}
	if len(changes) == 0 {
		return "minor refinements"
	}
	return strings.Join(changes, ", ")
}

// ReEvaluationResult is the outcome of a Core re-evaluation call for one
// stale finding.
type ReEvaluationResult struct {
	Status    string
	LineStart *int
	LineEnd   *int
	Location  string
	Evidence  string
	Severity  domain.Severity
	Reason    string
}

// ReEvaluationOutcome summarizes what ApplyReEvaluationResult did, for the
// scene-change report.
type ReEvaluationOutcome struct {
	Status        string
	FindingNumber int
	Reason        string
	Error         string
}

// ApplyReEvaluationResult applies a re-evaluation result to a stale finding.
func ApplyReEvaluationResult(f *domain.Finding, result ReEvaluationResult) ReEvaluationOutcome {
	switch result.Status {
	case "updated":
		if result.LineStart != nil {
			f.LineStart = result.LineStart
		}
		if result.LineEnd != nil {
			f.LineEnd = result.LineEnd
		}
		if result.Location != "" {
			f.Location = result.Location
		}
		if result.Evidence != "" {
			f.Evidence = result.Evidence
		}
		switch result.Severity {
		case domain.SeverityCritical, domain.SeverityMajor, domain.SeverityMinor:
			f.Severity = result.Severity
		}
		f.Stale = false
		return ReEvaluationOutcome{Status: "updated", FindingNumber: f.Number}

	case "withdrawn":
		f.Status = domain.StatusWithdrawn
		f.Stale = false
		reason := result.Reason
		if reason == "" {
			reason = "edit resolved the issue"
		}
		f.OutcomeReason = "Withdrawn after re-evaluation: " + reason
		return ReEvaluationOutcome{Status: "withdrawn", FindingNumber: f.Number, Reason: reason}

	default:
		f.Stale = false
		return ReEvaluationOutcome{
			Status:        "error",
			FindingNumber: f.Number,
			Error:         fmt.Sprintf("unexpected status: %s", result.Status),
		}
	}
}

// PriorOutcomesSummary builds a compact bullet-per-finding summary of every
// non-pending finding other than currentNumber, for discussion continuity.
func PriorOutcomesSummary(findings []*domain.Finding, currentNumber int) string {
	var lines []string
	for _, f := range findings {
		if f.Number == currentNumber || f.Status == domain.StatusPending {
			continue
		}
		reason := ""
		switch {
		case f.OutcomeReason != "":
			reason = " — " + f.OutcomeReason
		case f.AuthorResponse != "":
			reason = fmt.Sprintf(" — author: %q", truncate(f.AuthorResponse, 100))
		}
		lines = append(lines, fmt.Sprintf("- Finding #%d (%s, %s): %s%s",
			f.Number, f.Lens, f.Severity, strings.ToUpper(string(f.Status)), reason))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
