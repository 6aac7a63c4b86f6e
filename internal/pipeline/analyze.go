// Package pipeline implements the analysis pipeline described in spec.md
// §4.2: six lenses fanned out in parallel, three coordinator chunks, merge
// and re-rank. Per-lens failures are captured rather than propagated; only a
// structural coordinator failure after the single-call fallback surfaces a
// CoordinationError.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/errs"
	"github.com/alanmeadows/lit-critic/internal/llm"
	"github.com/alanmeadows/lit-critic/internal/pipeline/lenspref"
	"github.com/alanmeadows/lit-critic/internal/pipeline/validate"
	"github.com/alanmeadows/lit-critic/internal/prompts"
)

// reportFindingsTool mirrors the coordinator tool schema every chunk call
// and the single-call fallback force through CreateMessageWithTool.
var reportFindingsTool = llm.ToolSchema{
	Name:        "report_findings",
	Description: "Report the coordinated, deduplicated findings for this group of lenses.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"glossary_issues": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"summary":         map[string]any{"type": "string"},
			"conflicts":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"ambiguities":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"findings": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"number":         map[string]any{"type": "integer"},
						"severity":       map[string]any{"type": "string", "enum": []string{"critical", "major", "minor"}},
						"lens":           map[string]any{"type": "string"},
						"flagged_by":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"location":       map[string]any{"type": "string"},
						"line_start":     map[string]any{"type": []string{"integer", "null"}},
						"line_end":       map[string]any{"type": []string{"integer", "null"}},
						"evidence":       map[string]any{"type": "string"},
						"impact":         map[string]any{"type": "string"},
						"options":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"ambiguity_type": map[string]any{"type": []string{"string", "null"}},
					},
					"required": []string{"number", "severity", "lens", "location", "evidence", "impact", "options"},
				},
			},
		},
		"required": []string{"glossary_issues", "summary", "findings"},
	},
}

// Default per-call timeouts, per spec.md §5. A caller that doesn't override
// these (via core.ModelConfig.Timeouts) gets this budget per lens call and
// per coordinator chunk call.
const (
	DefaultLensTimeout        = 60 * time.Second
	DefaultCoordinatorTimeout = 120 * time.Second
)

// chunk groups lenses into one coordinator call per spec.md §4.2 step 3.
type chunk struct {
	name   string
	lenses []domain.Lens
}

var chunks = []chunk{
	{name: "prose", lenses: []domain.Lens{domain.LensProse, domain.LensDialogue}},
	{name: "structure", lenses: []domain.Lens{domain.LensStructure}},
	{name: "coherence", lenses: []domain.Lens{domain.LensLogic, domain.LensClarity, domain.LensContinuity}},
}

// Indexes carries the six required project index documents.
type Indexes struct {
	Canon    string
	Cast     string
	Glossary string
	Style    string
	Threads  string
	Timeline string
}

func (ix Indexes) projectContext() string {
	return fmt.Sprintf(
		"CANON:\n%s\n\nCAST:\n%s\n\nGLOSSARY:\n%s\n\nSTYLE:\n%s\n\nTHREADS:\n%s\n\nTIMELINE:\n%s\n",
		ix.Canon, ix.Cast, ix.Glossary, ix.Style, ix.Threads, ix.Timeline,
	)
}

// Result is Analyze's output, per spec.md §4.2's operation signature.
type Result struct {
	Findings       []*domain.Finding
	GlossaryIssues []string
	Summary        string
	Conflicts      []string
	Ambiguities    []string
	LensWarnings   map[domain.Lens]string
	ChunkWarnings  map[string]string
}

type lensOutcome struct {
	lens domain.Lens
	text string
	err  error
}

// Analyze runs the full six-lens, three-chunk pipeline against sceneText.
// lensTimeout and coordinatorTimeout bound each individual lens/coordinator
// call; a zero value falls back to DefaultLensTimeout/DefaultCoordinatorTimeout.
func Analyze(ctx context.Context, client llm.Client, builder prompts.Builder, sceneText string, indexes Indexes, model string, maxTokens int, prefs domain.LensPreferences, lensTimeout, coordinatorTimeout time.Duration) (*Result, error) {
	if lensTimeout <= 0 {
		lensTimeout = DefaultLensTimeout
	}
	if coordinatorTimeout <= 0 {
		coordinatorTimeout = DefaultCoordinatorTimeout
	}

	numbered := NumberLines(sceneText)
	projectContext := indexes.projectContext()

	lensResults, err := runLenses(ctx, client, builder, numbered, projectContext, model, maxTokens, lensTimeout)
	if err != nil {
		return nil, err
	}

	result := &Result{LensWarnings: map[domain.Lens]string{}, ChunkWarnings: map[string]string{}}
	byLens := map[domain.Lens]string{}
	for _, o := range lensResults {
		if o.err != nil {
			result.LensWarnings[o.lens] = o.err.Error()
			continue
		}
		byLens[o.lens] = o.text
	}

	var chunkOutputs []*validate.CoordinatedOutput
	anyChunkSucceeded := false
	for _, c := range chunks {
		findingsText := collectLensText(c.lenses, byLens)
		if findingsText == "" {
			continue
		}
		out, err := runCoordinatorChunk(ctx, client, builder, c.name, findingsText, numbered, model, maxTokens, coordinatorTimeout)
		if err != nil {
			result.ChunkWarnings[c.name] = err.Error()
			continue
		}
		anyChunkSucceeded = true
		chunkOutputs = append(chunkOutputs, out)
	}

	if !anyChunkSucceeded {
		allFindingsText := collectLensText(domain.AllLenses, byLens)
		if allFindingsText == "" {
			return nil, errs.NewCoordinationError("no lens produced output to coordinate", "", 0)
		}
		out, err := runCoordinatorWithRetry(ctx, client, builder, "all", allFindingsText, numbered, model, maxTokens, coordinatorTimeout)
		if err != nil {
			return nil, err
		}
		chunkOutputs = append(chunkOutputs, out)
	}

	merged := mergeChunks(chunkOutputs)
	result.Findings = merged.Findings
	result.GlossaryIssues = merged.GlossaryIssues
	result.Summary = merged.Summary
	result.Conflicts = merged.Conflicts
	result.Ambiguities = merged.Ambiguities

	renumber(result.Findings)
	result.Findings = lenspref.Rerank(result.Findings, prefs)

	return result, nil
}

func runLenses(ctx context.Context, client llm.Client, builder prompts.Builder, numbered, projectContext, model string, maxTokens int, lensTimeout time.Duration) ([]lensOutcome, error) {
	outcomes := make([]lensOutcome, len(domain.AllLenses))

	group, gctx := errgroup.WithContext(ctx)
	for i, lens := range domain.AllLenses {
		i, lens := i, lens
		group.Go(func() error {
			prompt, err := builder.LensPrompt(lens, projectContext, numbered)
			if err != nil {
				outcomes[i] = lensOutcome{lens: lens, err: err}
				return nil
			}
			callCtx, cancel := context.WithTimeout(gctx, lensTimeout)
			defer cancel()
			res, err := client.CreateMessage(callCtx, model, maxTokens, []llm.Message{{Role: "user", Content: prompt}}, "")
			if err != nil {
				outcomes[i] = lensOutcome{lens: lens, err: err}
				return nil
			}
			outcomes[i] = lensOutcome{lens: lens, text: res.Text}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func collectLensText(lenses []domain.Lens, byLens map[domain.Lens]string) string {
	var out string
	for _, lens := range lenses {
		text, ok := byLens[lens]
		if !ok {
			continue
		}
		out += fmt.Sprintf("=== %s ===\n%s\n\n", lens, text)
	}
	return out
}

func runCoordinatorChunk(ctx context.Context, client llm.Client, builder prompts.Builder, chunkName, findingsText, numbered, model string, maxTokens int, coordinatorTimeout time.Duration) (*validate.CoordinatedOutput, error) {
	prompt, err := builder.CoordinatorPrompt(chunkName, findingsText, numbered)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, coordinatorTimeout)
	defer cancel()
	res, err := client.CreateMessageWithTool(callCtx, model, maxTokens, []llm.Message{{Role: "user", Content: prompt}}, reportFindingsTool, "")
	if err != nil {
		return nil, err
	}
	if res.Truncated {
		return nil, errs.NewCoordinationError(fmt.Sprintf("coordinator chunk %q was truncated", chunkName), llm.Truncate(res.RawText, 500), 1)
	}
	return validate.Validate(res.ToolInput, res.RawText, 1)
}

// runCoordinatorWithRetry is the single-call fallback's retry path: up to 3
// attempts with base-2s exponential backoff on transient errors only.
// Structural CoordinationErrors are not retried, per spec.md §4.2.
func runCoordinatorWithRetry(ctx context.Context, client llm.Client, builder prompts.Builder, chunkName, findingsText, numbered, model string, maxTokens int, coordinatorTimeout time.Duration) (*validate.CoordinatedOutput, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.Multiplier = 2.0
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)

	var out *validate.CoordinatedOutput
	err := backoff.Retry(func() error {
		o, err := runCoordinatorChunk(ctx, client, builder, chunkName, findingsText, numbered, model, maxTokens, coordinatorTimeout)
		if err != nil {
			if _, ok := err.(*errs.CoordinationError); ok {
				return backoff.Permanent(err)
			}
			return err
		}
		out = o
		return nil
	}, policy)

	if err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			return nil, perm.Err
		}
		return nil, errs.NewCoordinationError("single-call coordinator exhausted retries", err.Error(), 3)
	}
	return out, nil
}
