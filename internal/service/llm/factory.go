package llm

import (
	"fmt"

	"chat-relay/internal/config"
	"chat-relay/internal/logger"
)

// NewLLMProvider creates the adapter for the given provider tag
func NewLLMProvider(kind config.ProviderKind, llmConfig *config.LLMConfig) (Provider, error) {
	switch kind {
	case config.ProviderAnthropic:
		logger.Log.Debug("Creating Anthropic provider")
		return NewAnthropicProvider(llmConfig), nil
	case config.ProviderOpenRouter:
		logger.Log.Debug("Creating OpenRouter provider")
		return NewOpenRouterProvider(llmConfig), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", kind)
	}
}

// Registry holds one adapter per provider tag
type Registry struct {
	providers map[config.ProviderKind]Provider
}

// NewRegistry builds adapters for every known provider
func NewRegistry(llmConfig *config.LLMConfig) *Registry {
	r := &Registry{providers: make(map[config.ProviderKind]Provider)}
	for _, kind := range []config.ProviderKind{config.ProviderAnthropic, config.ProviderOpenRouter} {
		p, err := NewLLMProvider(kind, llmConfig)
		if err != nil {
			logger.Log.WithError(err).Error("Skipping provider")
			continue
		}
		r.providers[kind] = p
	}
	return r
}

// NewRegistryWith builds a registry from explicit adapters
func NewRegistryWith(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[config.ProviderKind]Provider)}
	for _, p := range providers {
		r.providers[p.Kind()] = p
	}
	return r
}

// Get returns the adapter for kind
func (r *Registry) Get(kind config.ProviderKind) (Provider, error) {
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("no provider registered for %q", kind)
	}
	return p, nil
}
