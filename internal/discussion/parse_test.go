package discussion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResponse_DefaultsToContinue(t *testing.T) {
	p := ParseResponse("That's a fair point, let's keep talking.")
	assert.Equal(t, "continue", p.Status)
	assert.Equal(t, "That's a fair point, let's keep talking.", p.DisplayText)
}

func TestParseResponse_AcceptedTag(t *testing.T) {
	p := ParseResponse("Good catch. [ACCEPTED]")
	assert.Equal(t, "accepted", p.Status)
	assert.Equal(t, "Good catch.", p.DisplayText)
}

func TestParseResponse_StatusPriority_EscalatedBeatsRevised(t *testing.T) {
	p := ParseResponse("This is worse than I thought. [REVISED] [ESCALATED]")
	assert.Equal(t, "escalated", p.Status)
}

func TestParseResponse_RevisionBlock(t *testing.T) {
	p := ParseResponse(`Fair enough, toning it down. [REVISION] {"severity": "minor"} [/REVISION] [REVISED]`)
	assert.Equal(t, "revised", p.Status)
	assert.Equal(t, "minor", p.Revision["severity"])
	assert.NotContains(t, p.DisplayText, "REVISION")
}

func TestParseResponse_MalformedRevisionJSONDroppedSilently(t *testing.T) {
	p := ParseResponse(`[REVISION] not json [/REVISION] [REVISED]`)
	assert.Equal(t, "revised", p.Status)
	assert.Nil(t, p.Revision)
}

func TestParseResponse_PreferenceTag(t *testing.T) {
	p := ParseResponse("I prefer sparse dialogue tags. [PREFERENCE: avoid adverbial dialogue tags] [REJECTED]")
	assert.Equal(t, "avoid adverbial dialogue tags", p.Preference)
	assert.Equal(t, "rejected", p.Status)
	assert.NotContains(t, p.DisplayText, "PREFERENCE")
}

func TestParseResponse_AmbiguityIntentional(t *testing.T) {
	p := ParseResponse("That's deliberate. [AMBIGUITY:INTENTIONAL] [CONCEDED]")
	assert.Equal(t, "intentional", p.Ambiguity)
	assert.Equal(t, "conceded", p.Status)
}

func TestParseResponse_AmbiguityAccidental(t *testing.T) {
	p := ParseResponse("Oh, that was a mistake. [AMBIGUITY:ACCIDENTAL]")
	assert.Equal(t, "accidental", p.Ambiguity)
}

func TestParseResponse_WithdrawnTag(t *testing.T) {
	p := ParseResponse("On reflection this doesn't hold up. [WITHDRAWN]")
	assert.Equal(t, "withdrawn", p.Status)
}
