package discussion

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/llm"
	"github.com/alanmeadows/lit-critic/internal/prompts"
	"github.com/alanmeadows/lit-critic/internal/session"
)

const maxTurnTokens = 1024

const sceneEditedNote = "[NOTE: The author has edited the scene text since the last message. " +
	"The updated scene is shown in the system prompt. Acknowledge the changes if they are " +
	"relevant to this finding.]\n\n"

// Engine drives one discussion turn at a time: build the prompt, call the
// model, parse the tagged reply, and apply its side effects to the finding,
// session, and learning working lists.
type Engine struct {
	Client  llm.Client
	Prompts prompts.Builder
}

// New returns a discussion Engine backed by client and builder.
func New(client llm.Client, builder prompts.Builder) *Engine {
	return &Engine{Client: client, Prompts: builder}
}

// DiscussEventKind distinguishes the two event shapes StreamDiscuss emits.
type DiscussEventKind string

const (
	DiscussToken DiscussEventKind = "token"
	DiscussDone  DiscussEventKind = "done"
)

// DiscussEvent is one item from a StreamDiscuss channel.
type DiscussEvent struct {
	Kind   DiscussEventKind
	Text   string
	Result *DiscussResult
}

// DiscussResult is the cleaned reply and resulting status after one turn.
type DiscussResult struct {
	Response string
	Status   string
}

// Discuss processes one author message about finding within sess, issuing a
// single LLM call and applying the resulting side effects. sceneChanged
// signals the scene file was edited since the previous turn; a note is
// attached to the API-side copy of the message only, never persisted.
func (e *Engine) Discuss(ctx context.Context, sess *domain.Session, finding *domain.Finding, userMessage, sceneContent string, sceneChanged bool) (string, string, error) {
	systemPrompt, messages, err := e.buildTurn(sess, finding, userMessage, sceneContent, sceneChanged)
	if err != nil {
		return "", "", err
	}

	result, err := e.Client.CreateMessage(ctx, sess.Model, maxTurnTokens, messages, systemPrompt)
	if err != nil {
		return fmt.Sprintf("[Discussion error: %s]", err), "continue", nil
	}

	parsed := ParseResponse(result.Text)
	responseText, status := ApplySideEffects(sess, finding, userMessage, parsed)
	return responseText, status, nil
}

// StreamDiscuss is the streaming variant of Discuss: it yields token events
// as the reply streams in, then exactly one done event carrying the same
// (response, status) pair Discuss would have returned. Side effects are
// applied once the stream completes.
func (e *Engine) StreamDiscuss(ctx context.Context, sess *domain.Session, finding *domain.Finding, userMessage, sceneContent string, sceneChanged bool) (<-chan DiscussEvent, error) {
	systemPrompt, messages, err := e.buildTurn(sess, finding, userMessage, sceneContent, sceneChanged)
	if err != nil {
		return nil, err
	}

	upstream, err := e.Client.StreamMessage(ctx, sess.Model, maxTurnTokens, messages, systemPrompt)
	if err != nil {
		return nil, err
	}

	out := make(chan DiscussEvent)
	go func() {
		defer close(out)
		var raw string
		for ev := range upstream {
			switch ev.Kind {
			case llm.StreamToken:
				out <- DiscussEvent{Kind: DiscussToken, Text: ev.Text}
			case llm.StreamDone:
				if ev.Err != nil {
					out <- DiscussEvent{Kind: DiscussDone, Result: &DiscussResult{
						Response: fmt.Sprintf("[Discussion error: %s]", ev.Err),
						Status:   "continue",
					}}
					return
				}
				if ev.Result != nil {
					raw = ev.Result.Text
				}
			}
		}
		parsed := ParseResponse(raw)
		responseText, status := ApplySideEffects(sess, finding, userMessage, parsed)
		out <- DiscussEvent{Kind: DiscussDone, Result: &DiscussResult{Response: responseText, Status: status}}
	}()
	return out, nil
}

func (e *Engine) buildTurn(sess *domain.Session, finding *domain.Finding, userMessage, sceneContent string, sceneChanged bool) (string, []llm.Message, error) {
	priorOutcomes := session.PriorOutcomesSummary(sess.Findings, finding.Number)

	lineRange := ""
	if finding.HasLineRange() {
		lineRange = fmt.Sprintf("%d-%d", *finding.LineStart, *finding.LineEnd)
	}

	systemPrompt, err := e.Prompts.DiscussionPrompt(prompts.DiscussionPromptData{
		Number:        finding.Number,
		Severity:      string(finding.Severity),
		Lens:          string(finding.Lens),
		Location:      finding.Location,
		LineRange:     lineRange,
		Evidence:      finding.Evidence,
		Impact:        finding.Impact,
		Options:       strings.Join(finding.Options, "; "),
		PriorOutcomes: priorOutcomes,
		Scene:         sceneContent,
	})
	if err != nil {
		return "", nil, err
	}

	apiMessage := userMessage
	if sceneChanged {
		apiMessage = sceneEditedNote + userMessage
	}

	messages := make([]llm.Message, 0, len(finding.DiscussionTurns)+1)
	for _, turn := range finding.DiscussionTurns {
		messages = append(messages, llm.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: string(domain.RoleUser), Content: apiMessage})

	return systemPrompt, messages, nil
}

// ApplySideEffects applies every consequence of one parsed discussion reply:
// turn persistence, finding/session status transitions, revision history,
// outcome-reason wording, and learning-signal recording. It mirrors
// original_source/server/discussion.py's _apply_discussion_side_effects.
func ApplySideEffects(sess *domain.Session, finding *domain.Finding, userMessage string, parsed ParsedResponse) (string, string) {
	responseText := parsed.DisplayText
	status := parsed.Status

	finding.DiscussionTurns = append(finding.DiscussionTurns,
		domain.DiscussionTurn{Role: domain.RoleUser, Content: userMessage},
		domain.DiscussionTurn{Role: domain.RoleAssistant, Content: responseText},
	)
	sess.DiscussionHistory = append(sess.DiscussionHistory, domain.SessionDiscussionEntry{
		FindingNumber: finding.Number,
		User:          userMessage,
		Assistant:     responseText,
	})

	var changeDesc string
	if (status == "revised" || status == "escalated") && parsed.Revision != nil {
		old := session.ApplyFindingRevision(finding, revisionFieldsFromMap(parsed.Revision))
		changeDesc = session.DescribeRevisionChanges(old, revisionFieldsFromMap(parsed.Revision))
	}

	// ApplyDiscussionStatus already maps "conceded" onto the terminal
	// withdrawn finding status per spec §4.4 side effects.
	session.ApplyDiscussionStatus(finding, status)
	session.ApplyDiscussionOutcomeReason(finding, status, responseText, userMessage, changeDesc)

	if parsed.Ambiguity != "" {
		ambiguityType := domain.AmbiguityAnswerAccidental
		if parsed.Ambiguity == "intentional" {
			ambiguityType = domain.AmbiguityAnswerIntentional
		}
		session.RecordAmbiguityAnswer(finding, &sess.LearningSession, ambiguityType)
	}

	switch {
	case status == "rejected" || status == "conceded":
		session.RecordDiscussionRejection(finding, &sess.LearningSession, truncate(userMessage, 200), parsed.Preference)
	case status == "accepted":
		session.RecordDiscussionAcceptance(finding, &sess.LearningSession)
	case parsed.Preference != "":
		session.RecordDiscussionRejection(finding, &sess.LearningSession, truncate(userMessage, 200), parsed.Preference)
	}

	session.RecomputeSessionStatus(sess)

	return responseText, status
}

func revisionFieldsFromMap(revision map[string]any) session.RevisionFields {
	var r session.RevisionFields
	if v, ok := revision["severity"]; ok {
		if s, ok := v.(string); ok {
			sev := domain.Severity(strings.ToLower(strings.TrimSpace(s)))
			r.Severity = &sev
		}
	}
	if v, ok := revision["evidence"]; ok {
		if s, ok := v.(string); ok {
			r.Evidence = &s
		}
	}
	if v, ok := revision["impact"]; ok {
		if s, ok := v.(string); ok {
			r.Impact = &s
		}
	}
	if v, ok := revision["options"]; ok {
		if arr, ok := v.([]any); ok {
			opts := make([]string, 0, len(arr))
			for _, item := range arr {
				switch val := item.(type) {
				case string:
					opts = append(opts, val)
				default:
					opts = append(opts, fmt.Sprintf("%v", val))
				}
			}
			r.SetOptions(opts)
		}
	}
	return r
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
