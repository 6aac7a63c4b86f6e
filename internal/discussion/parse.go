// Package discussion implements the interactive finding-discussion engine
// (spec.md §4.4): one LLM turn per author message, tag-based response
// parsing, and the side effects that feed the session state machine and
// long-term learning store.
package discussion

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	revisionRe   = regexp.MustCompile(`(?s)\[REVISION\]\s*(.*?)\s*\[/REVISION\]`)
	preferenceRe = regexp.MustCompile(`\[PREFERENCE:\s*(.*?)\]`)
)

// statusTags is checked in order — more specific statuses win when a
// (malformed) reply carries more than one tag.
var statusTags = []struct {
	tag    string
	status string
}{
	{"[ESCALATED]", "escalated"},
	{"[REVISED]", "revised"},
	{"[WITHDRAWN]", "withdrawn"},
	{"[REJECTED]", "rejected"},
	{"[ACCEPTED]", "accepted"},
	{"[CONCEDED]", "conceded"},
	{"[CONTINUE]", "continue"},
}

// ParsedResponse is the critic's reply after tag extraction.
type ParsedResponse struct {
	DisplayText string
	Status      string
	Revision    map[string]any
	Preference  string
	Ambiguity   string // "intentional", "accidental", or ""
}

// ParseResponse strips structured tags from the critic's raw reply in
// deterministic order — REVISION, then PREFERENCE, then AMBIGUITY, then a
// single status tag — and returns the cleaned display text alongside the
// extracted data. A malformed REVISION JSON payload is dropped silently. A
// reply carrying no status tag defaults to "continue".
func ParseResponse(responseText string) ParsedResponse {
	result := ParsedResponse{Status: "continue"}
	text := responseText

	if loc := revisionRe.FindStringSubmatchIndex(text); loc != nil {
		body := text[loc[2]:loc[3]]
		var revision map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &revision); err == nil {
			result.Revision = revision
		}
		text = text[:loc[0]] + text[loc[1]:]
	}

	if loc := preferenceRe.FindStringSubmatchIndex(text); loc != nil {
		result.Preference = strings.TrimSpace(text[loc[2]:loc[3]])
		text = text[:loc[0]] + text[loc[1]:]
	}

	switch {
	case strings.Contains(text, "[AMBIGUITY:INTENTIONAL]"):
		result.Ambiguity = "intentional"
		text = strings.ReplaceAll(text, "[AMBIGUITY:INTENTIONAL]", "")
	case strings.Contains(text, "[AMBIGUITY:ACCIDENTAL]"):
		result.Ambiguity = "accidental"
		text = strings.ReplaceAll(text, "[AMBIGUITY:ACCIDENTAL]", "")
	}

	for _, st := range statusTags {
		if strings.Contains(text, st.tag) {
			result.Status = st.status
			text = strings.ReplaceAll(text, st.tag, "")
			break
		}
	}

	result.DisplayText = strings.TrimSpace(text)
	return result
}
