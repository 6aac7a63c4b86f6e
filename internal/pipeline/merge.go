package pipeline

import (
	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/pipeline/validate"
)

var severityRank = map[domain.Severity]int{
	domain.SeverityCritical: 3,
	domain.SeverityMajor:    2,
	domain.SeverityMinor:    1,
}

// mergeChunks concatenates every chunk's findings then deduplicates by
// line-range overlap (>50% of the shorter range), keeping the higher
// severity finding's body and unioning flagged_by, per spec.md §4.2 step 6.
func mergeChunks(outputs []*validate.CoordinatedOutput) *validate.CoordinatedOutput {
	merged := &validate.CoordinatedOutput{}
	for _, out := range outputs {
		merged.GlossaryIssues = append(merged.GlossaryIssues, out.GlossaryIssues...)
		merged.Conflicts = append(merged.Conflicts, out.Conflicts...)
		merged.Ambiguities = append(merged.Ambiguities, out.Ambiguities...)
		if merged.Summary == "" {
			merged.Summary = out.Summary
		} else if out.Summary != "" {
			merged.Summary += "\n\n" + out.Summary
		}
		for _, f := range out.Findings {
			merged.Findings = dedupeInsert(merged.Findings, f)
		}
	}
	return merged
}

// dedupeInsert inserts f into findings, merging it into an existing overlap
// match in place instead of appending when one is found.
func dedupeInsert(findings []*domain.Finding, f *domain.Finding) []*domain.Finding {
	for _, existing := range findings {
		if overlaps(existing, f) {
			mergeInto(existing, f)
			return findings
		}
	}
	return append(findings, f)
}

// overlaps reports whether a and b's line ranges overlap by more than 50%
// of the shorter range. Findings with no line range never overlap.
func overlaps(a, b *domain.Finding) bool {
	if !a.HasLineRange() || !b.HasLineRange() {
		return false
	}
	start := max(*a.LineStart, *b.LineStart)
	end := min(*a.LineEnd, *b.LineEnd)
	if end < start {
		return false
	}
	overlapLen := end - start + 1
	aLen := *a.LineEnd - *a.LineStart + 1
	bLen := *b.LineEnd - *b.LineStart + 1
	shorter := min(aLen, bLen)
	return float64(overlapLen) > 0.5*float64(shorter)
}

// mergeInto folds incoming into keep: the higher-severity finding's body
// wins. On a severity tie, the finding whose lens sorts first alphabetically
// wins, so the outcome doesn't depend on chunk processing order. flagged_by
// is always unioned regardless of which body wins.
func mergeInto(keep, incoming *domain.Finding) {
	if severityRank[incoming.Severity] > severityRank[keep.Severity] ||
		(severityRank[incoming.Severity] == severityRank[keep.Severity] && incoming.Lens < keep.Lens) {
		number, flaggedBy := keep.Number, unionLenses(keep.FlaggedBy, incoming.FlaggedBy)
		*keep = *incoming
		keep.Number = number
		keep.FlaggedBy = flaggedBy
		return
	}
	keep.FlaggedBy = unionLenses(keep.FlaggedBy, incoming.FlaggedBy)
}

func unionLenses(a, b []domain.Lens) []domain.Lens {
	seen := make(map[domain.Lens]bool, len(a)+len(b))
	out := make([]domain.Lens, 0, len(a)+len(b))
	for _, lens := range append(append([]domain.Lens{}, a...), b...) {
		if !seen[lens] {
			seen[lens] = true
			out = append(out, lens)
		}
	}
	return out
}

// renumber assigns sequential numbers 1..N in current slice order.
func renumber(findings []*domain.Finding) {
	for i, f := range findings {
		f.Number = i + 1
	}
}
