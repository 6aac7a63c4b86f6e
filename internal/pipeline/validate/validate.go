// Package validate implements the coordinator output validator (spec.md
// §4.3): structural validation, severity normalization, and line-range
// sanity over the raw tool-call input map.
package validate

import (
	"fmt"
	"strings"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/errs"
	"github.com/alanmeadows/lit-critic/internal/llm"
)

// CoordinatedOutput is the validated, typed shape of one coordinator call.
type CoordinatedOutput struct {
	GlossaryIssues []string
	Summary        string
	Findings       []*domain.Finding
	Conflicts      []string
	Ambiguities    []string
}

var requiredFindingKeys = []string{"number", "severity", "lens", "location", "evidence", "impact", "options"}
var requiredTopLevelKeys = []string{"glossary_issues", "summary", "findings"}

// Validate checks raw (the decoded tool-call input) against the coordinator
// output contract, normalizing in place where the spec calls for coercion
// rather than rejection. rawText is the tool call's raw text, used to build
// a diagnostic excerpt if validation fails unrecoverably.
func Validate(raw map[string]any, rawText string, attempts int) (*CoordinatedOutput, error) {
	for _, key := range requiredTopLevelKeys {
		if _, ok := raw[key]; !ok {
			return nil, errs.NewCoordinationError(
				fmt.Sprintf("missing required key %q", key),
				llm.Truncate(rawText, 500),
				attempts,
			)
		}
	}

	findingsRaw, ok := raw["findings"].([]any)
	if !ok {
		return nil, errs.NewCoordinationError("findings must be a list", llm.Truncate(rawText, 500), attempts)
	}

	out := &CoordinatedOutput{
		GlossaryIssues: toStringSlice(raw["glossary_issues"]),
		Summary:        toString(raw["summary"]),
		Conflicts:      toStringSlice(raw["conflicts"]),
		Ambiguities:    toStringSlice(raw["ambiguities"]),
	}

	for i, entry := range findingsRaw {
		fm, ok := entry.(map[string]any)
		if !ok {
			return nil, errs.NewCoordinationError(fmt.Sprintf("finding %d is not an object", i), llm.Truncate(rawText, 500), attempts)
		}
		finding, err := validateFinding(fm)
		if err != nil {
			return nil, errs.NewCoordinationError(err.Error(), llm.Truncate(rawText, 500), attempts)
		}
		out.Findings = append(out.Findings, finding)
	}

	return out, nil
}

func validateFinding(fm map[string]any) (*domain.Finding, error) {
	for _, key := range requiredFindingKeys {
		if _, ok := fm[key]; !ok {
			return nil, fmt.Errorf("finding missing required key %q", key)
		}
	}

	lens := domain.Lens(toString(fm["lens"]))

	f := &domain.Finding{
		Number:   toInt(fm["number"]),
		Severity: normalizeSeverity(fm["severity"]),
		Lens:     lens,
		Location: toString(fm["location"]),
		Evidence: toString(fm["evidence"]),
		Impact:   toString(fm["impact"]),
		Options:  toStringSlice(fm["options"]),
		Status:   domain.StatusPending,
	}

	f.LineStart = toNullableInt(fm["line_start"])
	f.LineEnd = toNullableInt(fm["line_end"])
	if f.LineStart != nil && f.LineEnd != nil && *f.LineStart > *f.LineEnd {
		f.LineStart, f.LineEnd = f.LineEnd, f.LineStart
	}

	if flaggedBy, ok := fm["flagged_by"]; ok {
		for _, s := range toStringSlice(flaggedBy) {
			f.FlaggedBy = append(f.FlaggedBy, domain.Lens(s))
		}
	}
	if len(f.FlaggedBy) == 0 {
		f.FlaggedBy = []domain.Lens{lens}
	}

	if at, ok := fm["ambiguity_type"]; ok && at != nil {
		f.AmbiguityType = domain.AmbiguityType(toString(at))
	}

	if sp, ok := fm["scene_path"]; ok && sp != nil {
		f.ScenePath = toString(sp)
	}

	return f, nil
}

func normalizeSeverity(v any) domain.Severity {
	s := strings.ToLower(strings.TrimSpace(toString(v)))
	switch domain.Severity(s) {
	case domain.SeverityCritical, domain.SeverityMajor, domain.SeverityMinor:
		return domain.Severity(s)
	default:
		return domain.SeverityMajor
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// toNullableInt returns nil when v isn't a well-formed integer, per the
// spec's "non-integer line_start/line_end coerce to null" rule.
func toNullableInt(v any) *int {
	switch n := v.(type) {
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		if n != float64(int(n)) {
			return nil
		}
		i := int(n)
		return &i
	default:
		return nil
	}
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
