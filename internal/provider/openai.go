package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/strands-agents/sdk-go/pkg/types"
)

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	// ID is the provider identifier (e.g. "openai", "qwen", "ollama").
	// If empty, defaults to "openai".
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int

	// Azure configuration
	UseAzure   bool
	APIVersion string
}

// NewOpenAIBackend creates an OpenAI-compatible backend through eino-ext.
func NewOpenAIBackend(ctx context.Context, config *OpenAIConfig) (*EinoBackend, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		if config.UseAzure {
			apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
		} else {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	modelID := config.Model
	if modelID == "" {
		modelID = os.Getenv("OPENAI_MODEL_ID")
	}
	if modelID == "" {
		modelID = "gpt-4o"
	}

	cfg := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}

	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	if config.UseAzure {
		cfg.ByAzure = true
		cfg.APIVersion = config.APIVersion
		if cfg.APIVersion == "" {
			cfg.APIVersion = "2024-02-15-preview"
		}
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	id := config.ID
	if id == "" {
		id = "openai"
	}
	b := NewEinoBackend(id, "OpenAI", chatModel, openAIModels(id, modelID))
	b.options = openAIOptions
	return b, nil
}

// openAIOptions uses max_completion_tokens, which newer models require instead of max_tokens.
func openAIOptions(cfg RequestConfig) []model.Option {
	var opts []model.Option
	if cfg.MaxTokens > 0 {
		opts = append(opts, openai.WithMaxCompletionTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*cfg.Temperature)))
	}
	return opts
}

func openAIModels(providerID, configured string) []types.Model {
	models := []types.Model{
		{
			ID:              "gpt-5",
			Name:            "GPT-5",
			ProviderID:      providerID,
			ContextLength:   272000,
			MaxOutputTokens: 128000,
			SupportsTools:   true,
		},
		{
			ID:              "gpt-4o",
			Name:            "GPT-4o",
			ProviderID:      providerID,
			ContextLength:   128000,
			MaxOutputTokens: 16384,
			SupportsTools:   true,
		},
		{
			ID:              "gpt-4o-mini",
			Name:            "GPT-4o Mini",
			ProviderID:      providerID,
			ContextLength:   128000,
			MaxOutputTokens: 16384,
			SupportsTools:   true,
		},
	}
	for _, m := range models {
		if m.ID == configured {
			return models
		}
	}
	// Custom endpoints serve models outside the built-in list.
	return append(models, types.Model{
		ID:            configured,
		Name:          configured,
		ProviderID:    providerID,
		SupportsTools: true,
	})
}
