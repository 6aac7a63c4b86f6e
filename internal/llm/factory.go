package llm

import "fmt"

// ClientFactory builds a provider-specific Client for the given API key.
// internal/core wires one of these per provider name so no global ambient
// credentials ever live inside the stateless core (spec §4.9).
type ClientFactory func(apiKey string) Client

// Factories maps provider name ("anthropic", "openai") to its ClientFactory.
// Populated by internal/cli's factories() helper, which imports the concrete adapters so
// this package itself stays free of SDK dependencies.
type Factories map[string]ClientFactory

// Build resolves a client for provider using the supplied api key.
func (f Factories) Build(provider, apiKey string) (Client, error) {
	factory, ok := f[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing api key for provider %q", provider)
	}
	return factory(apiKey), nil
}
