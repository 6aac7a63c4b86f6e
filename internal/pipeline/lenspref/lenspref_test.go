package lenspref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanmeadows/lit-critic/internal/domain"
)

func TestDefault_IsAutoPresetWithBalancedWeights(t *testing.T) {
	prefs := Default()
	assert.Equal(t, DefaultPreset, prefs.Preset)
	assert.Equal(t, 1.0, prefs.Weights[domain.LensProse])
	assert.Equal(t, 1.0, prefs.Weights[domain.LensStructure])
}

func TestResolveAutoPreset(t *testing.T) {
	assert.Equal(t, "single-scene", ResolveAutoPreset(1))
	assert.Equal(t, "single-scene", ResolveAutoPreset(0))
	assert.Equal(t, "multi-scene", ResolveAutoPreset(2))
	assert.Equal(t, "multi-scene", ResolveAutoPreset(5))
}

func TestNormalize_NilRawReturnsDefault(t *testing.T) {
	prefs, err := Normalize(nil, 1)
	require.NoError(t, err)
	assert.Equal(t, Default(), prefs)
}

func TestNormalize_EmptyRawReturnsDefault(t *testing.T) {
	prefs, err := Normalize(&Raw{}, 3)
	require.NoError(t, err)
	assert.Equal(t, Default(), prefs)
}

func TestNormalize_AutoPresetResolvesBySceneCount(t *testing.T) {
	single, err := Normalize(&Raw{Preset: "auto"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "single-scene", single.Preset)

	multi, err := Normalize(&Raw{Preset: "auto"}, 4)
	require.NoError(t, err)
	assert.Equal(t, "multi-scene", multi.Preset)
}

func TestNormalize_NamedPresetUsesItsWeightTable(t *testing.T) {
	prefs, err := Normalize(&Raw{Preset: "clarity-pass"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "clarity-pass", prefs.Preset)
	assert.Equal(t, Presets["clarity-pass"][domain.LensClarity], prefs.Weights[domain.LensClarity])
}

func TestNormalize_UnknownPresetReturnsError(t *testing.T) {
	_, err := Normalize(&Raw{Preset: "nonexistent"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid lens preset")
}

func TestNormalize_WeightOverrideAppliedOnTopOfPreset(t *testing.T) {
	prefs, err := Normalize(&Raw{Preset: "balanced", Weights: map[string]float64{"prose": 2.5}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.5, prefs.Weights[domain.LensProse])
	assert.Equal(t, 1.0, prefs.Weights[domain.LensStructure])
}

func TestNormalize_UnknownLensInWeightsReturnsError(t *testing.T) {
	_, err := Normalize(&Raw{Weights: map[string]float64{"pacing": 1.0}}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown lens")
}

func TestNormalize_WeightOutOfRangeReturnsError(t *testing.T) {
	_, err := Normalize(&Raw{Weights: map[string]float64{"prose": 5.0}}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be between")

	_, err = Normalize(&Raw{Weights: map[string]float64{"prose": -1.0}}, 1)
	require.Error(t, err)
}

func testFinding(number int, severity domain.Severity, lens domain.Lens) *domain.Finding {
	return &domain.Finding{
		Number:   number,
		Severity: severity,
		Lens:     lens,
		Location: "L001",
		Evidence: "evidence",
		Impact:   "impact",
		Options:  []string{"option"},
	}
}

// TestRerank_SingleSceneWeightsRankProseFirst exercises spec.md's named
// "Lens re-ranking single-scene" scenario: under the single-scene preset
// (prose weight 1.5, structure weight 0.8), a prose finding outranks a
// structure finding of the same severity.
func TestRerank_SingleSceneWeightsRankProseFirst(t *testing.T) {
	prefs, err := Normalize(&Raw{Preset: "single-scene"}, 1)
	require.NoError(t, err)

	structureFinding := testFinding(1, domain.SeverityMajor, domain.LensStructure)
	proseFinding := testFinding(2, domain.SeverityMajor, domain.LensProse)

	reranked := Rerank([]*domain.Finding{structureFinding, proseFinding}, prefs)

	require.Len(t, reranked, 2)
	assert.Same(t, proseFinding, reranked[0])
	assert.Same(t, structureFinding, reranked[1])
}

func TestRerank_SeverityDominatesOverLensWeight(t *testing.T) {
	prefs := Default()
	minor := testFinding(1, domain.SeverityMinor, domain.LensProse)
	critical := testFinding(2, domain.SeverityCritical, domain.LensProse)

	reranked := Rerank([]*domain.Finding{minor, critical}, prefs)

	assert.Equal(t, domain.SeverityCritical, reranked[0].Severity)
	assert.Equal(t, domain.SeverityMinor, reranked[1].Severity)
}

func TestRerank_TiesKeepInsertionOrder(t *testing.T) {
	prefs := Default()
	first := testFinding(1, domain.SeverityMajor, domain.LensProse)
	second := testFinding(2, domain.SeverityMajor, domain.LensProse)

	reranked := Rerank([]*domain.Finding{first, second}, prefs)

	assert.Same(t, first, reranked[0])
	assert.Same(t, second, reranked[1])
}

func TestRerank_FlaggedByUsesHighestWeightAmongLenses(t *testing.T) {
	prefs, err := Normalize(&Raw{Preset: "single-scene"}, 1)
	require.NoError(t, err)

	multiFlagged := testFinding(1, domain.SeverityMajor, domain.LensStructure)
	multiFlagged.FlaggedBy = []domain.Lens{domain.LensStructure, domain.LensProse}
	structureOnly := testFinding(2, domain.SeverityMajor, domain.LensStructure)
	structureOnly.FlaggedBy = []domain.Lens{domain.LensStructure}

	reranked := Rerank([]*domain.Finding{structureOnly, multiFlagged}, prefs)

	assert.Same(t, multiFlagged, reranked[0])
	assert.Same(t, structureOnly, reranked[1])
}

func TestRerank_EmptyFindingsReturnsEmpty(t *testing.T) {
	reranked := Rerank(nil, Default())
	assert.Empty(t, reranked)
}
