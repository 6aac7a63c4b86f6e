// Package core implements the stateless Core Service described in spec.md
// §4.9: three in-process operations (Analyze, Discuss, ReEvaluateFinding)
// callable directly by internal/platform or, through internal/server, over
// HTTP. The core holds no ambient credentials — every request supplies its
// own provider API keys, resolved per call via llm.Factories.
package core

import "github.com/alanmeadows/lit-critic/internal/domain"

// ModelConfig carries a short model name plus the per-provider API keys the
// core needs to resolve it to a concrete client, per spec.md §4.9's "no
// global ambient credentials inside the core" rule.
type ModelConfig struct {
	Model           string            `json:"model"`
	APIKeys         map[string]string `json:"api_keys"`
	MaxTokens       int               `json:"max_tokens"`
	ProviderOptions map[string]any    `json:"provider_options,omitempty"`
	Timeouts        Timeouts          `json:"timeouts,omitempty"`
}

// Timeouts bounds how long the pipeline waits on a single LLM call, per
// spec.md §5 ("LLM calls have a configurable per-call timeout: default 60s
// for lenses, 120s for coordinator chunks"). A zero field falls back to
// that default; see pipeline.DefaultLensTimeout/DefaultCoordinatorTimeout.
type Timeouts struct {
	LensSeconds        int `json:"lens_seconds,omitempty"`
	CoordinatorSeconds int `json:"coordinator_seconds,omitempty"`
}

// Meta is the response envelope every endpoint includes.
type Meta struct {
	ModelUsed  string         `json:"model_used"`
	Timings    map[string]int `json:"timings,omitempty"`
	TokenUsage map[string]int `json:"token_usage,omitempty"`
}

// AnalyzeIndexes mirrors the wire-level indexes object; each field is
// optional on the wire but the platform always supplies all six.
type AnalyzeIndexes struct {
	CANON    string `json:"CANON,omitempty"`
	CAST     string `json:"CAST,omitempty"`
	GLOSSARY string `json:"GLOSSARY,omitempty"`
	STYLE    string `json:"STYLE,omitempty"`
	THREADS  string `json:"THREADS,omitempty"`
	TIMELINE string `json:"TIMELINE,omitempty"`
}

// AnalyzeRequest is the /v1/analyze wire request.
type AnalyzeRequest struct {
	SceneText       string           `json:"scene_text"`
	Indexes         AnalyzeIndexes   `json:"indexes"`
	LearningContext map[string]any   `json:"learning_context,omitempty"`
	LensPreferences *LensPreferences `json:"lens_preferences,omitempty"`
	ModelConfig     ModelConfig      `json:"model_config"`
}

// LensPreferences is the wire shape of a lens-preference override.
type LensPreferences struct {
	Preset  string             `json:"preset,omitempty"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

// AnalyzeResponse is the /v1/analyze wire response.
type AnalyzeResponse struct {
	Findings       []*domain.Finding `json:"findings"`
	GlossaryIssues []string          `json:"glossary_issues"`
	Meta           Meta              `json:"meta"`
}

// DiscussRequest is the /v1/discuss wire request.
type DiscussRequest struct {
	SceneText        string                  `json:"scene_text"`
	Finding          *domain.Finding         `json:"finding"`
	DiscussionHistory []domain.DiscussionTurn `json:"discussion_history"`
	AuthorMessage    string                  `json:"author_message"`
	SceneChanged     bool                    `json:"scene_changed"`
	Model            string                  `json:"model"`
	ModelConfig      ModelConfig             `json:"model_config"`
}

// DiscussAction is the structured action a discuss response carries,
// alongside the raw legacy status string for backward compatibility
// (spec.md §6: "concrete legacy status is carried in action.payload").
type DiscussAction struct {
	Type    string            `json:"type"`
	Payload map[string]string `json:"payload,omitempty"`
}

// DiscussResponse is the /v1/discuss wire response.
type DiscussResponse struct {
	AssistantResponse string          `json:"assistant_response"`
	Action            DiscussAction   `json:"action"`
	UpdatedFinding    *domain.Finding `json:"updated_finding"`
	Meta              Meta            `json:"meta"`
}

// ReEvaluateRequest is the /v1/re-evaluate-finding wire request.
type ReEvaluateRequest struct {
	Finding     *domain.Finding `json:"finding"`
	UpdatedScene string         `json:"updated_scene"`
	ModelConfig ModelConfig     `json:"model_config"`
}

// ReEvaluateResponse is the /v1/re-evaluate-finding wire response.
type ReEvaluateResponse struct {
	Status         string          `json:"status"`
	UpdatedFinding *domain.Finding `json:"updated_finding,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Meta           Meta            `json:"meta"`
}

// actionTypeForStatus maps a legacy discussion status string onto the
// structured action.type vocabulary from spec.md §6. hasPreference wins
// over the status-derived type, since a durable preference can be extracted
// alongside any status.
func actionTypeForStatus(status string, hasPreference bool) string {
	if hasPreference {
		return "extract_preference"
	}
	switch status {
	case "withdrawn", "conceded":
		return "withdraw"
	case "revised":
		return "revise"
	case "escalated":
		return "escalate"
	default:
		return "defend"
	}
}
