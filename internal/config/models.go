package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ProviderKind tags which upstream API serves a model
type ProviderKind string

const (
	ProviderAnthropic  ProviderKind = "anthropic"
	ProviderOpenRouter ProviderKind = "openrouter"
)

// DefaultFallbackMaxTokens applies to models missing from the catalog
const DefaultFallbackMaxTokens = 16384

// Model represents an available LLM model
type Model struct {
	ID               string       `json:"id" toml:"id"`
	Name             string       `json:"name" toml:"name"`
	Description      string       `json:"description,omitempty" toml:"description"`
	Provider         ProviderKind `json:"provider" toml:"provider"`
	DefaultMaxTokens int          `json:"defaultMaxTokens" toml:"default_max_tokens"`
	Listed           bool         `json:"-" toml:"-"`
}

// ModelsConfig holds the available models configuration
type ModelsConfig struct {
	models            []Model
	index             map[string]int
	defaultModel      string
	fallbackMaxTokens int
}

type tomlModels struct {
	Models []Model `toml:"models"`
}

// DefaultModels is the built-in catalog used when no models file is configured
func DefaultModels() []Model {
	return []Model{
		{ID: "claude-sonnet-4-5-20250929", Name: "Sonnet 4.5", Description: "Claude Sonnet 4.5, fast and capable", Provider: ProviderAnthropic, DefaultMaxTokens: 64000},
		{ID: "claude-opus-4-6", Name: "Opus 4.6", Description: "Claude Opus 4.6, the most capable", Provider: ProviderAnthropic, DefaultMaxTokens: 128000},
		{ID: "x-ai/grok-4.1-fast", Name: "Grok 4.1 Fast", Description: "xAI Grok 4.1 Fast", Provider: ProviderOpenRouter, DefaultMaxTokens: 32768},
		{ID: "x-ai/grok-4-fast", Name: "Grok 4 Fast", Description: "xAI Grok 4 Fast", Provider: ProviderOpenRouter, DefaultMaxTokens: 32768},
		{ID: "google/gemini-3.1-pro-preview", Name: "Gemini 3.1 Pro", Description: "Google Gemini 3.1 Pro Preview", Provider: ProviderOpenRouter, DefaultMaxTokens: 16384},
		{ID: "google/gemini-3-flash-preview", Name: "Gemini 3 Flash", Description: "Google Gemini 3 Flash Preview", Provider: ProviderOpenRouter, DefaultMaxTokens: 16384},
		{ID: "google/gemini-3-pro-preview", Name: "Gemini 3 Pro", Description: "Google Gemini 3 Pro Preview", Provider: ProviderOpenRouter, DefaultMaxTokens: 16384},
		{ID: "qwen/qwen3.5-plus-02-15", Name: "Qwen 3.5 Plus", Description: "Qwen 3.5 Plus by Alibaba", Provider: ProviderOpenRouter, DefaultMaxTokens: 32768},
		{ID: "minimax/minimax-m2.5", Name: "MiniMax M2.5", Description: "MiniMax M2.5", Provider: ProviderOpenRouter, DefaultMaxTokens: 16384},
		{ID: "z-ai/glm-5", Name: "GLM-5", Description: "Z-AI GLM-5", Provider: ProviderOpenRouter, DefaultMaxTokens: 16384},
		{ID: "openai/gpt-5.2", Name: "GPT-5.2", Description: "OpenAI GPT-5.2", Provider: ProviderOpenRouter, DefaultMaxTokens: 32768},
	}
}

// NewModelsConfig creates a new models configuration from a file.
// Files ending in .toml are read as TOML, everything else as JSON.
func NewModelsConfig(configPath string) (*ModelsConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var models []Model
	if strings.EqualFold(filepath.Ext(configPath), ".toml") {
		var doc tomlModels
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		models = doc.Models
	} else {
		if err := json.Unmarshal(data, &models); err != nil {
			return nil, err
		}
	}

	return NewModelsConfigFromList(models)
}

// NewModelsConfigFromList validates models and resolves each one's provider.
// A model without an explicit provider is routed by the id convention:
// vendor-prefixed ids ("org/model") go to OpenRouter.
func NewModelsConfigFromList(models []Model) (*ModelsConfig, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("models config is empty")
	}

	mc := &ModelsConfig{
		models:            make([]Model, 0, len(models)),
		index:             make(map[string]int, len(models)),
		fallbackMaxTokens: DefaultFallbackMaxTokens,
	}
	for _, m := range models {
		if m.ID == "" {
			return nil, fmt.Errorf("model without id")
		}
		if _, dup := mc.index[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		switch m.Provider {
		case "":
			m.Provider = ProviderForModelID(m.ID)
		case ProviderAnthropic, ProviderOpenRouter:
		default:
			return nil, fmt.Errorf("model %q: unknown provider %q", m.ID, m.Provider)
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		m.Listed = true
		mc.index[m.ID] = len(mc.models)
		mc.models = append(mc.models, m)
	}
	mc.defaultModel = mc.models[0].ID
	return mc, nil
}

// ProviderForModelID applies the naming convention used for unlisted models
func ProviderForModelID(id string) ProviderKind {
	if strings.Contains(id, "/") {
		return ProviderOpenRouter
	}
	return ProviderAnthropic
}

// GetAvailableModels returns the list of available models
func (mc *ModelsConfig) GetAvailableModels() []Model {
	out := make([]Model, len(mc.models))
	copy(out, mc.models)
	return out
}

// IsValidModel checks if a model ID is in the list of available models
func (mc *ModelsConfig) IsValidModel(modelID string) bool {
	_, ok := mc.index[modelID]
	return ok
}

// GetDefaultModel returns the configured default, or the first listed model
func (mc *ModelsConfig) GetDefaultModel() string {
	return mc.defaultModel
}

// SetDefaultModel overrides the default model id
func (mc *ModelsConfig) SetDefaultModel(id string) {
	if id != "" {
		mc.defaultModel = id
	}
}

// SetFallbackMaxTokens sets the ceiling used for unlisted models
func (mc *ModelsConfig) SetFallbackMaxTokens(n int) {
	if n > 0 {
		mc.fallbackMaxTokens = n
	}
}

// Resolve returns the descriptor for id. An empty id means the default
// model; unlisted ids get a synthesized descriptor.
func (mc *ModelsConfig) Resolve(id string) Model {
	if id == "" {
		id = mc.defaultModel
	}
	if i, ok := mc.index[id]; ok {
		m := mc.models[i]
		if m.DefaultMaxTokens <= 0 {
			m.DefaultMaxTokens = mc.fallbackMaxTokens
		}
		return m
	}
	return Model{
		ID:               id,
		Name:             id,
		Provider:         ProviderForModelID(id),
		DefaultMaxTokens: mc.fallbackMaxTokens,
	}
}
