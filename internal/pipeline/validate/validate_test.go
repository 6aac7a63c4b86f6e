package validate

import (
	"testing"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseRaw() map[string]any {
	return map[string]any{
		"glossary_issues": []any{},
		"summary":         "looks fine",
		"findings": []any{
			map[string]any{
				"number":   float64(1),
				"severity": "  MAJOR ",
				"lens":     "prose",
				"location": "opening line",
				"evidence": "repeated word",
				"impact":   "reads clumsy",
				"options":  []any{"rephrase"},
			},
		},
	}
}

func TestValidate_SeverityNormalization(t *testing.T) {
	out, err := Validate(baseRaw(), "", 1)
	require.NoError(t, err)
	require.Len(t, out.Findings, 1)
	assert.Equal(t, domain.SeverityMajor, out.Findings[0].Severity)
}

func TestValidate_UnknownSeverityCoercesToMajor(t *testing.T) {
	raw := baseRaw()
	raw["findings"].([]any)[0].(map[string]any)["severity"] = "catastrophic"
	out, err := Validate(raw, "", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityMajor, out.Findings[0].Severity)
}

func TestValidate_MissingTopLevelKey(t *testing.T) {
	raw := baseRaw()
	delete(raw, "summary")
	_, err := Validate(raw, "raw text", 1)
	require.Error(t, err)
	var coordErr *errs.CoordinationError
	require.ErrorAs(t, err, &coordErr)
}

func TestValidate_MissingFindingKey(t *testing.T) {
	raw := baseRaw()
	delete(raw["findings"].([]any)[0].(map[string]any), "evidence")
	_, err := Validate(raw, "", 1)
	require.Error(t, err)
}

func TestValidate_LineRangeSwap(t *testing.T) {
	raw := baseRaw()
	raw["findings"].([]any)[0].(map[string]any)["line_start"] = float64(10)
	raw["findings"].([]any)[0].(map[string]any)["line_end"] = float64(4)
	out, err := Validate(raw, "", 1)
	require.NoError(t, err)
	require.NotNil(t, out.Findings[0].LineStart)
	require.NotNil(t, out.Findings[0].LineEnd)
	assert.Equal(t, 4, *out.Findings[0].LineStart)
	assert.Equal(t, 10, *out.Findings[0].LineEnd)
}

func TestValidate_NonIntegerLineCoercesToNull(t *testing.T) {
	raw := baseRaw()
	raw["findings"].([]any)[0].(map[string]any)["line_start"] = 3.5
	out, err := Validate(raw, "", 1)
	require.NoError(t, err)
	assert.Nil(t, out.Findings[0].LineStart)
}

func TestValidate_FlaggedByDefaultsToLens(t *testing.T) {
	out, err := Validate(baseRaw(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.Lens{domain.LensProse}, out.Findings[0].FlaggedBy)
}

func TestValidate_FindingsNotAList(t *testing.T) {
	raw := baseRaw()
	raw["findings"] = "not a list"
	_, err := Validate(raw, "", 1)
	require.Error(t, err)
}
