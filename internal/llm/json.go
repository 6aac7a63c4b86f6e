package llm

import (
	"regexp"
	"strings"
)

// ExtractJSON strips markdown code fences and any leading/trailing prose
// around a JSON object or array, returning the best-effort JSON substring.
// Used to salvage raw tool-call text that a provider wrapped in commentary.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	re := regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")
	if matches := re.FindStringSubmatch(s); len(matches) > 1 {
		s = strings.TrimSpace(matches[1])
	}

	startObj := strings.IndexByte(s, '{')
	startArr := strings.IndexByte(s, '[')

	start := -1
	isArray := false

	switch {
	case startObj >= 0 && startArr >= 0:
		if startArr < startObj {
			start = startArr
			isArray = true
		} else {
			start = startObj
		}
	case startObj >= 0:
		start = startObj
	case startArr >= 0:
		start = startArr
		isArray = true
	}

	if start < 0 {
		return s
	}

	var end int
	if isArray {
		end = strings.LastIndexByte(s, ']')
	} else {
		end = strings.LastIndexByte(s, '}')
	}

	if end <= start {
		return s
	}

	return s[start : end+1]
}

// Truncate shortens s to its first maxLen bytes, appending "..." when
// truncation occurs; a multi-byte rune at the cut point is split. Used to build the raw-output excerpt carried by
// CoordinationError.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
