package scenediff

import (
	"context"
	"fmt"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/persistence"
	"github.com/alanmeadows/lit-critic/internal/session"
)

// SceneBoundaryPrefix marks the start of each scene's text when multiple
// scene files are concatenated into one review session.
const SceneBoundaryPrefix = "===== SCENE BOUNDARY: "

// ReEvaluator re-evaluates one stale finding against updated scene text, the
// dependency DetectAndApply calls out to for step 5 of spec.md §4.7. A
// thin adapter over internal/core's re-evaluation operation — kept as an
// interface here so scenediff has no dependency on the Core Service.
type ReEvaluator interface {
	ReEvaluateFinding(ctx context.Context, f *domain.Finding, updatedScene string) (session.ReEvaluationResult, error)
}

// ChangeReport summarizes what DetectAndApply did to a session's findings.
type ChangeReport struct {
	Changed     bool
	Adjusted    []int
	Stale       []int
	NoLines     []int
	ReEvaluated []session.ReEvaluationOutcome
}

// ConcatenateScenes joins multiple scene texts with boundary markers, for
// multi-scene sessions.
func ConcatenateScenes(names, texts []string) string {
	var out string
	for i, name := range names {
		out += fmt.Sprintf("%s%s =====\n", SceneBoundaryPrefix, name)
		out += texts[i]
		if i < len(names)-1 {
			out += "\n"
		}
	}
	return out
}

// DetectAndApply re-diffs oldSceneText against newSceneText, remaps or
// stale-marks every finding from currentIndex onward, sets sess.SceneHash to
// the new text's hash (it does not write to storage), and re-evaluates newly-stale, still-open findings via
// reEval. Returns nil if the scene text is unchanged.
func DetectAndApply(ctx context.Context, sess *domain.Session, currentIndex int, oldSceneText, newSceneText string, reEval ReEvaluator) (*ChangeReport, error) {
	if oldSceneText == newSceneText {
		return nil, nil
	}

	diff := Compute(oldSceneText, newSceneText)
	report := &ChangeReport{Changed: true}

	wasStale := make(map[int]bool, len(sess.Findings))
	remapFindings(sess.Findings, currentIndex, diff, report, wasStale)

	sess.SceneHash = persistence.HashScene(newSceneText)

	for _, f := range sess.Findings {
		if !wasStale[f.Number] {
			continue
		}
		if f.Status == domain.StatusWithdrawn || f.Status == domain.StatusRejected {
			continue
		}
		outcome, err := reEvaluateOne(ctx, f, newSceneText, reEval)
		if err != nil {
			return nil, err
		}
		report.ReEvaluated = append(report.ReEvaluated, outcome)
	}

	return report, nil
}

// ReviewCurrentFindingAgainstSceneEdits performs the same diff and remap for
// every remaining finding, but only re-evaluates the one at currentIndex —
// the lighter variant used while actively discussing a single finding.
func ReviewCurrentFindingAgainstSceneEdits(ctx context.Context, sess *domain.Session, currentIndex int, oldSceneText, newSceneText string, reEval ReEvaluator) (*ChangeReport, error) {
	if oldSceneText == newSceneText {
		return nil, nil
	}

	diff := Compute(oldSceneText, newSceneText)
	report := &ChangeReport{Changed: true}

	wasStale := make(map[int]bool, len(sess.Findings))
	remapFindings(sess.Findings, currentIndex, diff, report, wasStale)

	sess.SceneHash = persistence.HashScene(newSceneText)

	if currentIndex >= 0 && currentIndex < len(sess.Findings) {
		f := sess.Findings[currentIndex]
		if wasStale[f.Number] && f.Status != domain.StatusWithdrawn && f.Status != domain.StatusRejected {
			outcome, err := reEvaluateOne(ctx, f, newSceneText, reEval)
			if err != nil {
				return nil, err
			}
			report.ReEvaluated = append(report.ReEvaluated, outcome)
		}
	}

	return report, nil
}

func remapFindings(findings []*domain.Finding, currentIndex int, diff LineDiff, report *ChangeReport, wasStale map[int]bool) {
	for i := currentIndex; i >= 0 && i < len(findings); i++ {
		f := findings[i]
		if !f.HasLineRange() {
			report.NoLines = append(report.NoLines, f.Number)
			continue
		}

		anyDeleted := false
		for line := *f.LineStart; line <= *f.LineEnd; line++ {
			if diff.Deleted[line] {
				anyDeleted = true
				break
			}
		}

		switch {
		case anyDeleted:
			f.Stale = true
			wasStale[f.Number] = true
			report.Stale = append(report.Stale, f.Number)
		default:
			newStart, startOK := diff.Mapping[*f.LineStart]
			newEnd, endOK := diff.Mapping[*f.LineEnd]
			if !startOK || !endOK {
				f.Stale = true
				wasStale[f.Number] = true
				report.Stale = append(report.Stale, f.Number)
				continue
			}
			f.LineStart = &newStart
			f.LineEnd = &newEnd
			report.Adjusted = append(report.Adjusted, f.Number)
		}
	}
}

func reEvaluateOne(ctx context.Context, f *domain.Finding, updatedScene string, reEval ReEvaluator) (session.ReEvaluationOutcome, error) {
	result, err := reEval.ReEvaluateFinding(ctx, f, updatedScene)
	if err != nil {
		return session.ReEvaluationOutcome{}, err
	}
	return session.ApplyReEvaluationResult(f, result), nil
}
