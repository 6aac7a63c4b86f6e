package discussion

import (
	"context"
	"testing"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/llm"
	"github.com/alanmeadows/lit-critic/internal/llm/llmtest"
	"github.com/alanmeadows/lit-critic/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFinding() *domain.Finding {
	return &domain.Finding{
		Number:   1,
		Severity: domain.SeverityMajor,
		Lens:     domain.LensProse,
		Location: "opening paragraph",
		Evidence: "the word 'suddenly' appears four times in one page",
		Impact:   "dulls the intended shock",
		Options:  []string{"cut three of the four"},
		Status:   domain.StatusPending,
	}
}

func testSession(findings ...*domain.Finding) *domain.Session {
	return &domain.Session{ID: "s1", Model: "claude-opus", Findings: findings}
}

func TestEngine_Discuss_Accepted(t *testing.T) {
	client := llmtest.New()
	client.EnqueueText(&llm.TextResult{Text: "Good catch. [ACCEPTED]"}, nil)
	e := New(client, prompts.NewTemplateBuilder())

	f := testFinding()
	sess := testSession(f)

	response, status, err := e.Discuss(context.Background(), sess, f, "yes you're right", "scene text here", false)
	require.NoError(t, err)
	assert.Equal(t, "accepted", status)
	assert.Equal(t, "Good catch.", response)
	assert.Equal(t, domain.StatusAccepted, f.Status)
	assert.Equal(t, "Accepted by author", f.OutcomeReason)
	require.Len(t, f.DiscussionTurns, 2)
	require.Len(t, sess.DiscussionHistory, 1)
	assert.Equal(t, 1, sess.DiscussionHistory[0].FindingNumber)
}

func TestEngine_Discuss_RevisedAppliesRevisionAndHistory(t *testing.T) {
	client := llmtest.New()
	client.EnqueueText(&llm.TextResult{
		Text: `Fair, toning it down. [REVISION] {"severity": "minor"} [/REVISION] [REVISED]`,
	}, nil)
	e := New(client, prompts.NewTemplateBuilder())

	f := testFinding()
	sess := testSession(f)

	_, status, err := e.Discuss(context.Background(), sess, f, "that's too harsh", "scene text", false)
	require.NoError(t, err)
	assert.Equal(t, "revised", status)
	assert.Equal(t, domain.SeverityMinor, f.Severity)
	assert.Equal(t, domain.StatusRevised, f.Status)
	require.Len(t, f.RevisionHistory, 1)
	assert.Equal(t, domain.SeverityMajor, f.RevisionHistory[0].Severity)
	assert.Contains(t, f.OutcomeReason, "Revised: severity major → minor")
}

func TestEngine_Discuss_RejectedRecordsLearningSignal(t *testing.T) {
	client := llmtest.New()
	client.EnqueueText(&llm.TextResult{Text: "Understood, withdrawing concern. [REJECTED]"}, nil)
	e := New(client, prompts.NewTemplateBuilder())

	f := testFinding()
	sess := testSession(f)

	_, status, err := e.Discuss(context.Background(), sess, f, "I did that on purpose", "scene text", false)
	require.NoError(t, err)
	assert.Equal(t, "rejected", status)
	assert.Equal(t, domain.StatusRejected, f.Status)
	require.Len(t, sess.LearningSession.SessionRejections, 1)
	assert.Equal(t, domain.LensProse, sess.LearningSession.SessionRejections[0].Lens)
}

func TestEngine_Discuss_ConcededWithdrawsFinding(t *testing.T) {
	client := llmtest.New()
	client.EnqueueText(&llm.TextResult{Text: "You're right, I concede. [CONCEDED]"}, nil)
	e := New(client, prompts.NewTemplateBuilder())

	f := testFinding()
	sess := testSession(f)

	_, status, err := e.Discuss(context.Background(), sess, f, "no, that's intentional", "scene text", false)
	require.NoError(t, err)
	assert.Equal(t, "conceded", status)
	assert.Equal(t, domain.StatusWithdrawn, f.Status)
	assert.Contains(t, f.OutcomeReason, "Conceded by critic:")
}

func TestEngine_Discuss_AmbiguityRecorded(t *testing.T) {
	client := llmtest.New()
	client.EnqueueText(&llm.TextResult{Text: "Noted as deliberate. [AMBIGUITY:INTENTIONAL] [CONCEDED]"}, nil)
	e := New(client, prompts.NewTemplateBuilder())

	f := testFinding()
	sess := testSession(f)

	_, _, err := e.Discuss(context.Background(), sess, f, "that ambiguity is on purpose", "scene text", false)
	require.NoError(t, err)
	require.Len(t, sess.LearningSession.SessionAmbiguityAnswers, 1)
	assert.Equal(t, domain.AmbiguityAnswerIntentional, sess.LearningSession.SessionAmbiguityAnswers[0].AmbiguityType)
}

func TestEngine_Discuss_LLMErrorReturnsGracefully(t *testing.T) {
	client := llmtest.New()
	client.EnqueueText(nil, assertError("rate limited"))
	e := New(client, prompts.NewTemplateBuilder())

	f := testFinding()
	sess := testSession(f)

	response, status, err := e.Discuss(context.Background(), sess, f, "hello", "scene text", false)
	require.NoError(t, err)
	assert.Equal(t, "continue", status)
	assert.Contains(t, response, "Discussion error")
	assert.Empty(t, f.DiscussionTurns, "no side effects applied when the LLM call itself fails")
}

func TestEngine_Discuss_SceneChangedNotePrependedToAPIMessageOnly(t *testing.T) {
	client := llmtest.New()
	client.EnqueueText(&llm.TextResult{Text: "Acknowledged the edit. [CONTINUE]"}, nil)
	e := New(client, prompts.NewTemplateBuilder())

	f := testFinding()
	sess := testSession(f)

	_, _, err := e.Discuss(context.Background(), sess, f, "I changed the scene", "scene text", true)
	require.NoError(t, err)
	require.Len(t, f.DiscussionTurns, 2)
	assert.Equal(t, "I changed the scene", f.DiscussionTurns[0].Content, "persisted turn keeps the original message, not the note-prefixed one")
}

func TestEngine_StreamDiscuss_EmitsTokensThenDone(t *testing.T) {
	client := llmtest.New()
	client.EnqueueText(&llm.TextResult{Text: "Good catch. [ACCEPTED]"}, nil)
	e := New(client, prompts.NewTemplateBuilder())

	f := testFinding()
	sess := testSession(f)

	events, err := e.StreamDiscuss(context.Background(), sess, f, "ok, you're right", "scene text", false)
	require.NoError(t, err)

	var sawToken, sawDone bool
	var final *DiscussResult
	for ev := range events {
		switch ev.Kind {
		case DiscussToken:
			sawToken = true
		case DiscussDone:
			sawDone = true
			final = ev.Result
		}
	}
	assert.True(t, sawToken)
	assert.True(t, sawDone)
	require.NotNil(t, final)
	assert.Equal(t, "accepted", final.Status)
	assert.Equal(t, domain.StatusAccepted, f.Status)
}

type assertError string

func (e assertError) Error() string { return string(e) }
