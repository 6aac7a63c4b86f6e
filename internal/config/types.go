package config

// Config is the top-level lit-critic configuration.
type Config struct {
	Models    ModelsConfig    `json:"models"`
	Lenses    LensesConfig    `json:"lenses"`
	Discovery DiscoveryConfig `json:"discovery"`
	Timeouts  TimeoutsConfig  `json:"timeouts"`
	Database  DatabaseConfig  `json:"database"`
	APIKeys   map[string]string `json:"api_keys"`
}

// ModelsConfig selects the short model names (resolved via internal/llm/registry)
// used for the two LLM-backed operations the platform drives.
type ModelsConfig struct {
	AnalysisModel   string `json:"analysis_model"`
	DiscussionModel string `json:"discussion_model"`
	MaxTokens       int    `json:"max_tokens"`
}

// LensesConfig holds a lens-preference preset and per-lens weight overrides.
// Neither the CLI nor the platform facade reads it; a session started without
// lens flags uses lenspref.Default().
type LensesConfig struct {
	Preset  string             `json:"preset"`
	Weights map[string]float64 `json:"weights"`
}

// DiscoveryConfig controls the model registry's TTL-based discovery loop and
// on-disk cache, sourced from the MODEL_DISCOVERY_* environment variables.
type DiscoveryConfig struct {
	Enabled        bool   `json:"enabled"`
	TTLSeconds     int    `json:"ttl_seconds"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	CachePath      string `json:"cache_path"`
}

// TimeoutsConfig holds the per-call LLM timeouts from spec.md §5.
type TimeoutsConfig struct {
	LensSeconds        int `json:"lens_seconds"`
	CoordinatorSeconds int `json:"coordinator_seconds"`
}

// DatabaseConfig names the per-project SQLite file. The platform facade does
// not read it: it always opens .lit-critic.db in the project directory.
type DatabaseConfig struct {
	Filename string `json:"filename"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Models: ModelsConfig{
			AnalysisModel:   "sonnet",
			DiscussionModel: "sonnet",
			MaxTokens:       8192,
		},
		Lenses: LensesConfig{
			Preset:  "auto",
			Weights: map[string]float64{},
		},
		Discovery: DiscoveryConfig{
			Enabled:        false,
			TTLSeconds:     3600,
			TimeoutSeconds: 8,
			CachePath:      "~/.cache/lit-critic/models.json",
		},
		Timeouts: TimeoutsConfig{
			LensSeconds:        60,
			CoordinatorSeconds: 120,
		},
		Database: DatabaseConfig{
			Filename: ".lit-critic.db",
		},
		APIKeys: map[string]string{},
	}
}
