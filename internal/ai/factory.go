package ai

import (
	"fmt"

	"github.com/stridelabs/stride/internal/config"
	"github.com/stridelabs/stride/internal/logging"
)

// NewFromConfig builds the first usable provider from the configured
// list, in priority order. Ollama needs no key; the API providers are
// skipped when no key resolves.
func NewFromConfig(cfg *config.Config) (Provider, error) {
	for _, pc := range cfg.Providers {
		switch pc.Name {
		case "openai":
			if key := cfg.ResolveAPIKey("openai"); key != "" {
				return NewOpenAIProvider(key, pc.Model), nil
			}
			logging.Warnf("ai: openai configured but no API key resolved, skipping")
		case "anthropic":
			if key := cfg.ResolveAPIKey("anthropic"); key != "" {
				return NewAnthropicProvider(key, pc.Model), nil
			}
			logging.Warnf("ai: anthropic configured but no API key resolved, skipping")
		case "ollama":
			return NewOllamaProvider(pc.BaseURL, pc.Model), nil
		default:
			logging.Warnf("ai: unknown provider %q, skipping", pc.Name)
		}
	}
	return nil, fmt.Errorf("no usable AI provider configured")
}
