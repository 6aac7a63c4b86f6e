package scenediff

import (
	"context"
	"testing"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReEvaluator struct {
	result session.ReEvaluationResult
	err    error
	calls  int
}

func (f *fakeReEvaluator) ReEvaluateFinding(_ context.Context, _ *domain.Finding, _ string) (session.ReEvaluationResult, error) {
	f.calls++
	return f.result, f.err
}

func lineRange(start, end int) (*int, *int) {
	s, e := start, end
	return &s, &e
}

func TestDetectAndApply_UnchangedSceneReturnsNil(t *testing.T) {
	sess := &domain.Session{Findings: []*domain.Finding{{Number: 1}}}
	report, err := DetectAndApply(context.Background(), sess, 0, "same", "same", &fakeReEvaluator{})
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestDetectAndApply_RemapsSurvivingLines(t *testing.T) {
	before := "one\ntwo\nthree\nfour\n"
	after := "zero\none\ntwo\nthree\nfour\n"
	f := &domain.Finding{Number: 1, Status: domain.StatusPending}
	f.LineStart, f.LineEnd = lineRange(2, 3)
	sess := &domain.Session{Findings: []*domain.Finding{f}}

	report, err := DetectAndApply(context.Background(), sess, 0, before, after, &fakeReEvaluator{})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Contains(t, report.Adjusted, 1)
	assert.Equal(t, 3, *f.LineStart)
	assert.Equal(t, 4, *f.LineEnd)
}

func TestDetectAndApply_DeletedLineMarksStaleAndReEvaluates(t *testing.T) {
	before := "one\ntwo\nthree\n"
	after := "one\nthree\n"
	f := &domain.Finding{Number: 1, Status: domain.StatusPending}
	f.LineStart, f.LineEnd = lineRange(2, 2)
	sess := &domain.Session{Findings: []*domain.Finding{f}}

	fake := &fakeReEvaluator{result: session.ReEvaluationResult{Status: "withdrawn", Reason: "line removed"}}
	report, err := DetectAndApply(context.Background(), sess, 0, before, after, fake)
	require.NoError(t, err)
	assert.Contains(t, report.Stale, 1)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, domain.StatusWithdrawn, f.Status)
}

func TestDetectAndApply_SkipsReEvaluationForAlreadyWithdrawn(t *testing.T) {
	before := "one\ntwo\nthree\n"
	after := "one\nthree\n"
	f := &domain.Finding{Number: 1, Status: domain.StatusWithdrawn}
	f.LineStart, f.LineEnd = lineRange(2, 2)
	sess := &domain.Session{Findings: []*domain.Finding{f}}

	fake := &fakeReEvaluator{}
	_, err := DetectAndApply(context.Background(), sess, 0, before, after, fake)
	require.NoError(t, err)
	assert.Equal(t, 0, fake.calls)
}

func TestDetectAndApply_NoLineRangeMarked(t *testing.T) {
	f := &domain.Finding{Number: 1, Status: domain.StatusPending}
	sess := &domain.Session{Findings: []*domain.Finding{f}}
	report, err := DetectAndApply(context.Background(), sess, 0, "a\nb\n", "a\nc\n", &fakeReEvaluator{})
	require.NoError(t, err)
	assert.Contains(t, report.NoLines, 1)
}

func TestReviewCurrentFindingAgainstSceneEdits_OnlyReEvaluatesCurrent(t *testing.T) {
	before := "one\ntwo\nthree\nfour\n"
	after := "one\nthree\nfour\n"

	f1 := &domain.Finding{Number: 1, Status: domain.StatusPending}
	f1.LineStart, f1.LineEnd = lineRange(2, 2)
	f2 := &domain.Finding{Number: 2, Status: domain.StatusPending}
	f2.LineStart, f2.LineEnd = lineRange(4, 4)

	sess := &domain.Session{Findings: []*domain.Finding{f1, f2}}
	fake := &fakeReEvaluator{result: session.ReEvaluationResult{Status: "withdrawn"}}

	report, err := ReviewCurrentFindingAgainstSceneEdits(context.Background(), sess, 0, before, after, fake)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls, "only the finding at currentIndex is re-evaluated")
	require.Len(t, report.ReEvaluated, 1)
	assert.Equal(t, 1, report.ReEvaluated[0].FindingNumber)
}
