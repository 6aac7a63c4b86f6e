package core

import (
	"context"
	"fmt"
	"time"

	"github.com/alanmeadows/lit-critic/internal/discussion"
	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/errs"
	"github.com/alanmeadows/lit-critic/internal/llm"
	"github.com/alanmeadows/lit-critic/internal/llm/registry"
	"github.com/alanmeadows/lit-critic/internal/pipeline"
	"github.com/alanmeadows/lit-critic/internal/pipeline/lenspref"
	"github.com/alanmeadows/lit-critic/internal/prompts"
	"github.com/alanmeadows/lit-critic/internal/session"
)

const defaultMaxTokens = 8192

// Service is the stateless Core Service: it holds no session state and no
// ambient credentials, only the process-wide model registry and the
// provider-client factories supplied at startup.
type Service struct {
	Registry  *registry.Registry
	Factories llm.Factories
	Prompts   prompts.Builder
}

// New builds a Service.
func New(reg *registry.Registry, factories llm.Factories, builder prompts.Builder) *Service {
	return &Service{Registry: reg, Factories: factories, Prompts: builder}
}

func (s *Service) resolveClient(cfg ModelConfig) (llm.Client, string, int, error) {
	if cfg.Model == "" {
		return nil, "", 0, errs.ValidationError("model_config.model is required")
	}
	info, ok := s.Registry.Resolve(cfg.Model)
	if !ok {
		return nil, "", 0, errs.ValidationError(fmt.Sprintf("unknown model %q", cfg.Model))
	}
	apiKey := cfg.APIKeys[info.Provider]
	if apiKey == "" {
		return nil, "", 0, errs.ValidationError(fmt.Sprintf("missing api key for provider %q", info.Provider))
	}
	client, err := s.Factories.Build(info.Provider, apiKey)
	if err != nil {
		return nil, "", 0, errs.ValidationError(err.Error())
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = info.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return client, info.ID, maxTokens, nil
}

// Analyze implements the /v1/analyze operation.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	client, modelID, maxTokens, err := s.resolveClient(req.ModelConfig)
	if err != nil {
		return nil, err
	}

	prefs := lenspref.Default()
	if req.LensPreferences != nil {
		prefs, err = lenspref.Normalize(&lenspref.Raw{
			Preset:  req.LensPreferences.Preset,
			Weights: req.LensPreferences.Weights,
		}, 1)
		if err != nil {
			return nil, errs.ValidationError(err.Error())
		}
	}

	indexes := pipeline.Indexes{
		Canon: req.Indexes.CANON, Cast: req.Indexes.CAST, Glossary: req.Indexes.GLOSSARY,
		Style: req.Indexes.STYLE, Threads: req.Indexes.THREADS, Timeline: req.Indexes.TIMELINE,
	}

	lensTimeout, coordinatorTimeout := resolveTimeouts(req.ModelConfig.Timeouts)
	result, err := pipeline.Analyze(ctx, client, s.Prompts, req.SceneText, indexes, modelID, maxTokens, prefs, lensTimeout, coordinatorTimeout)
	if err != nil {
		return nil, err
	}

	return &AnalyzeResponse{
		Findings:       result.Findings,
		GlossaryIssues: result.GlossaryIssues,
		Meta:           Meta{ModelUsed: modelID},
	}, nil
}

// Discuss implements the /v1/discuss operation. It constructs an ephemeral
// session wrapping the caller-supplied finding so internal/discussion.Engine
// (a session-shaped API) can run unmodified against a single-finding
// request/response contract.
func (s *Service) Discuss(ctx context.Context, req DiscussRequest) (*DiscussResponse, error) {
	client, modelID, _, err := s.resolveClient(req.ModelConfig)
	if err != nil {
		return nil, err
	}
	if req.Finding == nil {
		return nil, errs.ValidationError("finding is required")
	}

	finding := *req.Finding
	finding.DiscussionTurns = append([]domain.DiscussionTurn{}, req.DiscussionHistory...)

	sess := &domain.Session{
		Model:    modelID,
		Findings: []*domain.Finding{&finding},
	}

	engine := discussion.New(client, s.Prompts)
	responseText, status, err := engine.Discuss(ctx, sess, &finding, req.AuthorMessage, req.SceneText, req.SceneChanged)
	if err != nil {
		return nil, err
	}

	return &DiscussResponse{
		AssistantResponse: responseText,
		Action: DiscussAction{
			Type:    actionTypeForStatus(status, len(sess.LearningSession.SessionRejections) > 0 && sess.LearningSession.SessionRejections[len(sess.LearningSession.SessionRejections)-1].PreferenceRule != ""),
			Payload: map[string]string{"legacy_status": status},
		},
		UpdatedFinding: &finding,
		Meta:           Meta{ModelUsed: modelID},
	}, nil
}

// ReEvaluateFinding implements the /v1/re-evaluate-finding operation and
// also satisfies internal/scenediff.ReEvaluator, letting the platform wire
// this service directly into DetectAndApply/ReviewCurrentFindingAgainstSceneEdits.
func (s *Service) ReEvaluateFinding(ctx context.Context, f *domain.Finding, updatedScene string) (session.ReEvaluationResult, error) {
	resp, err := s.reEvaluate(ctx, f, updatedScene, ModelConfig{})
	if err != nil {
		return session.ReEvaluationResult{}, err
	}
	return session.ReEvaluationResult{
		Status:    resp.Status,
		LineStart: resp.UpdatedFinding.LineStart,
		LineEnd:   resp.UpdatedFinding.LineEnd,
		Location:  resp.UpdatedFinding.Location,
		Evidence:  resp.UpdatedFinding.Evidence,
		Severity:  resp.UpdatedFinding.Severity,
		Reason:    resp.Reason,
	}, nil
}

// ReEvaluate implements the wire-level /v1/re-evaluate-finding request, used
// by internal/server. Kept distinct from ReEvaluateFinding because the wire
// request carries its own ModelConfig rather than an ambient one.
func (s *Service) ReEvaluate(ctx context.Context, req ReEvaluateRequest) (*ReEvaluateResponse, error) {
	if req.Finding == nil {
		return nil, errs.ValidationError("finding is required")
	}
	return s.reEvaluate(ctx, req.Finding, req.UpdatedScene, req.ModelConfig)
}

func (s *Service) reEvaluate(ctx context.Context, f *domain.Finding, updatedScene string, cfg ModelConfig) (*ReEvaluateResponse, error) {
	client, modelID, maxTokens, err := s.resolveClient(cfg)
	if err != nil {
		return nil, err
	}

	prompt, err := s.Prompts.ReEvaluatePrompt(prompts.ReEvaluatePromptData{
		Number:   f.Number,
		Severity: string(f.Severity),
		Lens:     string(f.Lens),
		Location: f.Location,
		Evidence: f.Evidence,
		Impact:   f.Impact,
		Scene:    updatedScene,
	})
	if err != nil {
		return nil, err
	}

	tool := llm.ToolSchema{
		Name:        "report_reevaluation",
		Description: "Report whether the finding still applies after a scene edit.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status":     map[string]any{"type": "string", "enum": []string{"updated", "withdrawn"}},
				"reason":     map[string]any{"type": "string"},
				"location":   map[string]any{"type": "string"},
				"evidence":   map[string]any{"type": "string"},
				"severity":   map[string]any{"type": "string", "enum": []string{"critical", "major", "minor"}},
				"line_start": map[string]any{"type": []string{"integer", "null"}},
				"line_end":   map[string]any{"type": []string{"integer", "null"}},
			},
			"required": []string{"status"},
		},
	}

	res, err := client.CreateMessageWithTool(ctx, modelID, maxTokens, []llm.Message{{Role: "user", Content: prompt}}, tool, "")
	if err != nil {
		return nil, err
	}

	status, _ := res.ToolInput["status"].(string)
	reason, _ := res.ToolInput["reason"].(string)

	updated := *f
	if location, ok := res.ToolInput["location"].(string); ok && location != "" {
		updated.Location = location
	}
	if evidence, ok := res.ToolInput["evidence"].(string); ok && evidence != "" {
		updated.Evidence = evidence
	}
	if sev, ok := res.ToolInput["severity"].(string); ok && sev != "" {
		updated.Severity = domain.Severity(sev)
	}
	if ls, ok := toIntPtr(res.ToolInput["line_start"]); ok {
		updated.LineStart = ls
	}
	if le, ok := toIntPtr(res.ToolInput["line_end"]); ok {
		updated.LineEnd = le
	}

	return &ReEvaluateResponse{
		Status:         status,
		UpdatedFinding: &updated,
		Reason:         reason,
		Meta:           Meta{ModelUsed: modelID},
	}, nil
}

// resolveTimeouts applies spec.md §5's defaults (60s lens / 120s
// coordinator) to whichever fields t leaves unset.
func resolveTimeouts(t Timeouts) (lensTimeout, coordinatorTimeout time.Duration) {
	lensTimeout = pipeline.DefaultLensTimeout
	if t.LensSeconds > 0 {
		lensTimeout = time.Duration(t.LensSeconds) * time.Second
	}
	coordinatorTimeout = pipeline.DefaultCoordinatorTimeout
	if t.CoordinatorSeconds > 0 {
		coordinatorTimeout = time.Duration(t.CoordinatorSeconds) * time.Second
	}
	return lensTimeout, coordinatorTimeout
}

func toIntPtr(v any) (*int, bool) {
	switch n := v.(type) {
	case int:
		return &n, true
	case int64:
		i := int(n)
		return &i, true
	case float64:
		i := int(n)
		return &i, true
	default:
		return nil, false
	}
}
