package cli

import (
	"time"

	"github.com/alanmeadows/lit-critic/internal/config"
	"github.com/alanmeadows/lit-critic/internal/core"
	"github.com/alanmeadows/lit-critic/internal/llm"
	"github.com/alanmeadows/lit-critic/internal/llm/anthropic"
	"github.com/alanmeadows/lit-critic/internal/llm/openai"
	"github.com/alanmeadows/lit-critic/internal/llm/registry"
	"github.com/alanmeadows/lit-critic/internal/platform"
	"github.com/alanmeadows/lit-critic/internal/prompts"
)

// factories wires the two concrete SDK adapters this build ships, keyed by
// the provider name the model registry assigns each ModelInfo.
func factories() llm.Factories {
	return llm.Factories{
		"anthropic": func(apiKey string) llm.Client { return anthropic.New(apiKey) },
		"openai":    func(apiKey string) llm.Client { return openai.New(apiKey) },
	}
}

// newFacade builds the stateless Core Service for cfg and opens the platform
// facade over dir, running the repo-path preflight check in the process.
func newFacade(dir string, cfg *config.Config) (*platform.Facade, error) {
	reg := registry.New(registry.Options{
		DiscoveryEnabled: cfg.Discovery.Enabled,
		TTL:              time.Duration(cfg.Discovery.TTLSeconds) * time.Second,
		Timeout:          time.Duration(cfg.Discovery.TimeoutSeconds) * time.Second,
		CachePath:        config.ExpandCachePath(cfg.Discovery.CachePath),
	})
	svc := core.New(reg, factories(), prompts.NewTemplateBuilder())
	return platform.Open(dir, svc)
}

// modelConfig builds the ModelConfig the facade needs for the
// analyze/discuss/re-evaluate operations, pulling API keys from cfg.
func modelConfig(cfg *config.Config, shortName string) core.ModelConfig {
	return core.ModelConfig{
		Model:     shortName,
		APIKeys:   cfg.APIKeys,
		MaxTokens: cfg.Models.MaxTokens,
		Timeouts: core.Timeouts{
			LensSeconds:        cfg.Timeouts.LensSeconds,
			CoordinatorSeconds: cfg.Timeouts.CoordinatorSeconds,
		},
	}
}
