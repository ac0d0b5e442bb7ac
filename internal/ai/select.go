package ai

import (
	"github.com/local/docextract/internal/config"
)

// New selects and constructs the single active provider from configuration.
// Selection happens once at process start; an unknown provider name or a
// missing credential fails here, before any network call.
func New(cfg config.ProviderConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, &NotConfiguredError{Provider: cfg.Name, Reason: "missing API key"}
	}
	switch cfg.Name {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, &NotConfiguredError{Provider: cfg.Name, Reason: "unknown provider name"}
	}
}
