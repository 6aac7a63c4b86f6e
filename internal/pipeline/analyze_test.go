package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/llm"
	"github.com/alanmeadows/lit-critic/internal/llm/llmtest"
	"github.com/alanmeadows/lit-critic/internal/pipeline/lenspref"
	"github.com/alanmeadows/lit-critic/internal/prompts"
)

func testIndexes() Indexes {
	return Indexes{Canon: "c", Cast: "cast", Glossary: "g", Style: "s", Threads: "t", Timeline: "tl"}
}

func findingToolInput(number int, severity, lens, location string) map[string]any {
	return map[string]any{
		"number":   number,
		"severity": severity,
		"lens":     lens,
		"location": location,
		"evidence": "evidence text",
		"impact":   "impact text",
		"options":  []any{"option one"},
	}
}

func TestAnalyze_MergesChunksAndRenumbers(t *testing.T) {
	client := llmtest.New()
	client.DefaultText = &llm.TextResult{Text: "lens output"}

	client.EnqueueTool(&llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{},
		"summary":         "prose summary",
		"findings": []any{
			findingToolInput(1, "major", "prose", "L001"),
		},
	}}, nil)
	client.EnqueueTool(&llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{},
		"summary":         "structure summary",
		"findings": []any{
			findingToolInput(1, "critical", "structure", "L010"),
		},
	}}, nil)
	client.EnqueueTool(&llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{"anachronism"},
		"summary":         "coherence summary",
		"findings": []any{
			findingToolInput(1, "minor", "logic", "L020"),
		},
	}}, nil)

	result, err := Analyze(context.Background(), client, prompts.NewTemplateBuilder(), "one\ntwo\nthree\n", testIndexes(), "sonnet", 4096, lenspref.Default(), 0, 0)
	require.NoError(t, err)
	require.Len(t, result.Findings, 3)
	assert.Equal(t, 1, result.Findings[0].Number)
	assert.Equal(t, 2, result.Findings[1].Number)
	assert.Equal(t, 3, result.Findings[2].Number)
	assert.Contains(t, result.GlossaryIssues, "anachronism")
}

func TestAnalyze_DedupesOverlappingFindingsAcrossChunks(t *testing.T) {
	client := llmtest.New()
	client.DefaultText = &llm.TextResult{Text: "lens output"}

	proseInput := findingToolInput(1, "minor", "prose", "L005")
	proseInput["line_start"] = 5
	proseInput["line_end"] = 7
	structureInput := findingToolInput(1, "critical", "structure", "L005-7")
	structureInput["line_start"] = 5
	structureInput["line_end"] = 7

	client.EnqueueTool(&llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{}, "summary": "", "findings": []any{proseInput},
	}}, nil)
	client.EnqueueTool(&llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{}, "summary": "", "findings": []any{structureInput},
	}}, nil)
	client.EnqueueTool(&llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{}, "summary": "", "findings": []any{},
	}}, nil)

	result, err := Analyze(context.Background(), client, prompts.NewTemplateBuilder(), "scene text\n", testIndexes(), "sonnet", 4096, lenspref.Default(), 0, 0)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, domain.SeverityCritical, result.Findings[0].Severity)
	assert.ElementsMatch(t, []domain.Lens{domain.LensProse, domain.LensStructure}, result.Findings[0].FlaggedBy)
}

func TestAnalyze_PerLensFailureDoesNotFailPipeline(t *testing.T) {
	client := llmtest.New()
	for i := 0; i < 6; i++ {
		if i == 0 {
			client.EnqueueText(nil, assertError{})
			continue
		}
		client.EnqueueText(&llm.TextResult{Text: "lens output"}, nil)
	}
	client.EnqueueTool(&llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{}, "summary": "", "findings": []any{findingToolInput(1, "major", "prose", "L001")},
	}}, nil)
	client.EnqueueTool(&llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{}, "summary": "", "findings": []any{},
	}}, nil)
	client.EnqueueTool(&llm.ToolResult{ToolInput: map[string]any{
		"glossary_issues": []any{}, "summary": "", "findings": []any{},
	}}, nil)

	result, err := Analyze(context.Background(), client, prompts.NewTemplateBuilder(), "scene\n", testIndexes(), "sonnet", 4096, lenspref.Default(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, result.LensWarnings, 1)
	require.Len(t, result.Findings, 1)
}

type assertError struct{}

func (assertError) Error() string { return "simulated lens failure" }
