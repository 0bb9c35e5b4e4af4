package provider

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// Registry manages all available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	config    *types.Config
}

// NewRegistry creates a new provider registry.
func NewRegistry(config *types.Config) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		config:    config,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ID()] = provider
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return provider, nil
}

// List returns all available providers sorted by ID.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].ID() < providers[j].ID() })
	return providers
}

// AllModels returns all models from all providers, highest priority first.
func (r *Registry) AllModels() []types.Model {
	var models []types.Model
	for _, p := range r.List() {
		models = append(models, p.Models()...)
	}

	sort.SliceStable(models, func(i, j int) bool {
		return modelPriority(models[i].ID) > modelPriority(models[j].ID)
	})

	return models
}

// Default returns the backend selected by the configured model, falling back to the first
// registered provider.
func (r *Registry) Default() (Backend, error) {
	if r.config != nil && r.config.Model != "" {
		providerID, _ := ParseModelString(r.config.Model)
		if providerID != "" {
			return r.Get(providerID)
		}
	}

	providers := r.List()
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	return providers[0], nil
}

// ParseModelString parses "provider/model" format.
func ParseModelString(s string) (providerID, modelID string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", s
}

func modelPriority(modelID string) int {
	switch {
	case strings.Contains(modelID, "gpt-5"):
		return 100
	case strings.Contains(modelID, "claude-sonnet-4"):
		return 90
	case strings.Contains(modelID, "claude-opus"):
		return 85
	case strings.Contains(modelID, "gpt-4o"):
		return 80
	default:
		return 50
	}
}

// InitializeBackends creates and registers every provider with credentials in config or
// the environment. Providers that fail to initialize are logged and skipped.
func InitializeBackends(ctx context.Context, config *types.Config) (*Registry, error) {
	registry := NewRegistry(config)
	log := logging.Component("provider")

	configured, modelID := ParseModelString(config.Model)
	modelFor := func(id string, cfg types.ProviderConfig) string {
		if configured == id && modelID != "" {
			return modelID
		}
		return cfg.Model
	}
	apiKey := func(id, env string) (types.ProviderConfig, bool) {
		cfg := config.Provider[id]
		if cfg.Disable {
			return cfg, false
		}
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv(env)
		}
		return cfg, cfg.APIKey != ""
	}

	if cfg, ok := apiKey("anthropic", "ANTHROPIC_API_KEY"); ok {
		b, err := NewAnthropicBackend(ctx, &AnthropicConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     modelFor("anthropic", cfg),
			MaxTokens: config.MaxTokens,
		})
		if err != nil {
			log.Warn().Err(err).Msg("skipping anthropic provider")
		} else {
			registry.Register(b)
		}
	}

	if cfg, ok := apiKey("openai", "OPENAI_API_KEY"); ok {
		b, err := NewOpenAIBackend(ctx, &OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     modelFor("openai", cfg),
			MaxTokens: config.MaxTokens,
		})
		if err != nil {
			log.Warn().Err(err).Msg("skipping openai provider")
		} else {
			registry.Register(b)
		}
	}

	if cfg, ok := apiKey("ark", "ARK_API_KEY"); ok {
		b, err := NewArkBackend(ctx, &ArkConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     modelFor("ark", cfg),
			MaxTokens: config.MaxTokens,
		})
		if err != nil {
			log.Warn().Err(err).Msg("skipping ark provider")
		} else {
			registry.Register(b)
		}
	}

	return registry, nil
}
