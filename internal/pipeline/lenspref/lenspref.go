// Package lenspref implements the lens-preference presets, validation, and
// score-based re-ranking described in spec.md §4.2.1. Preset weight tables
// are copied from original_source/lit_platform/runtime/lens_preferences.py
// (LENS_PRESETS) since spec.md names the presets without giving the exact
// numbers.
package lenspref

import (
	"fmt"
	"sort"

	"github.com/alanmeadows/lit-critic/internal/domain"
)

const (
	DefaultPreset = "auto"
	MinWeight     = 0.0
	MaxWeight     = 3.0
)

// Presets maps preset name to its per-lens weight table.
var Presets = map[string]map[domain.Lens]float64{
	"balanced": {
		domain.LensProse: 1.0, domain.LensStructure: 1.0, domain.LensLogic: 1.0,
		domain.LensClarity: 1.0, domain.LensContinuity: 1.0, domain.LensDialogue: 1.0,
	},
	"prose-first": {
		domain.LensProse: 1.6, domain.LensStructure: 1.1, domain.LensLogic: 0.9,
		domain.LensClarity: 0.9, domain.LensContinuity: 0.8, domain.LensDialogue: 1.1,
	},
	"story-logic": {
		domain.LensProse: 0.8, domain.LensStructure: 1.4, domain.LensLogic: 1.5,
		domain.LensClarity: 1.0, domain.LensContinuity: 1.2, domain.LensDialogue: 1.1,
	},
	"clarity-pass": {
		domain.LensProse: 0.8, domain.LensStructure: 1.0, domain.LensLogic: 1.2,
		domain.LensClarity: 1.6, domain.LensContinuity: 1.1, domain.LensDialogue: 1.3,
	},
	"single-scene": {
		domain.LensProse: 1.5, domain.LensStructure: 0.8, domain.LensLogic: 1.3,
		domain.LensClarity: 1.3, domain.LensContinuity: 0.7, domain.LensDialogue: 1.4,
	},
	"multi-scene": {
		domain.LensProse: 0.8, domain.LensStructure: 1.5, domain.LensLogic: 1.3,
		domain.LensClarity: 1.2, domain.LensContinuity: 1.5, domain.LensDialogue: 0.7,
	},
}

func cloneWeights(src map[domain.Lens]float64) map[domain.Lens]float64 {
	dst := make(map[domain.Lens]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ResolveAutoPreset resolves the "auto" preset to a concrete preset name
// based on how many scenes are in the session.
func ResolveAutoPreset(sceneCount int) string {
	if sceneCount <= 1 {
		return "single-scene"
	}
	return "multi-scene"
}

// Default returns the default lens preferences: preset "auto" with the
// balanced weight table. Default does not resolve "auto" by scene count;
// only Normalize does, so ranking with Default() uses the balanced weights.
func Default() domain.LensPreferences {
	return domain.LensPreferences{
		Preset:  DefaultPreset,
		Weights: cloneWeights(Presets["balanced"]),
	}
}

// Raw is the user-supplied override shape accepted by Normalize.
type Raw struct {
	Preset  string
	Weights map[string]float64
}

// Normalize validates and merges user-provided lens preferences onto the
// named preset's defaults. An empty Raw yields Default().
func Normalize(raw *Raw, sceneCount int) (domain.LensPreferences, error) {
	if raw == nil || (raw.Preset == "" && len(raw.Weights) == 0) {
		return Default(), nil
	}

	preset := raw.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	resolved := preset
	if resolved == "auto" {
		resolved = ResolveAutoPreset(sceneCount)
	}

	base, ok := Presets[resolved]
	if !ok {
		return domain.LensPreferences{}, fmt.Errorf("invalid lens preset %q: valid presets are %s", resolved, validPresetNames())
	}

	weights := cloneWeights(base)
	for name, weight := range raw.Weights {
		lens := domain.Lens(name)
		if !isKnownLens(lens) {
			return domain.LensPreferences{}, fmt.Errorf("unknown lens %q in lens preferences: valid lenses are %v", name, domain.AllLenses)
		}
		if weight < MinWeight || weight > MaxWeight {
			return domain.LensPreferences{}, fmt.Errorf("weight for lens %q must be between %v and %v", name, MinWeight, MaxWeight)
		}
		weights[lens] = weight
	}

	return domain.LensPreferences{Preset: resolved, Weights: weights}, nil
}

func isKnownLens(lens domain.Lens) bool {
	for _, l := range domain.AllLenses {
		if l == lens {
			return true
		}
	}
	return false
}

func validPresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var severityBase = map[domain.Severity]float64{
	domain.SeverityCritical: 100,
	domain.SeverityMajor:    30,
	domain.SeverityMinor:    10,
}

func weightFor(f *domain.Finding, weights map[domain.Lens]float64) float64 {
	if len(f.FlaggedBy) == 0 {
		if w, ok := weights[f.Lens]; ok {
			return w
		}
		return 1.0
	}
	max := 0.0
	found := false
	for _, lens := range f.FlaggedBy {
		w, ok := weights[lens]
		if !ok {
			w = 1.0
		}
		if !found || w > max {
			max = w
			found = true
		}
	}
	return max
}

func score(f *domain.Finding, weights map[domain.Lens]float64) float64 {
	base, ok := severityBase[f.Severity]
	if !ok {
		base = severityBase[domain.SeverityMajor]
	}
	return base * weightFor(f, weights)
}

// Rerank sorts findings by descending score (stable — ties keep insertion
// order) and renumbers them 1..N in place. Returns the reordered slice.
func Rerank(findings []*domain.Finding, prefs domain.LensPreferences) []*domain.Finding {
	if len(findings) == 0 {
		return findings
	}

	type scored struct {
		finding *domain.Finding
		score   float64
		index   int
	}
	decorated := make([]scored, len(findings))
	for i, f := range findings {
		decorated[i] = scored{finding: f, score: score(f, prefs.Weights), index: i}
	}

	sort.SliceStable(decorated, func(i, j int) bool {
		return decorated[i].score > decorated[j].score
	})

	reordered := make([]*domain.Finding, len(decorated))
	for i, d := range decorated {
		d.finding.Number = i + 1
		reordered[i] = d.finding
	}
	return reordered
}
