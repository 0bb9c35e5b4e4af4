package agent

import (
	"fmt"

	"github.com/strands-agents/sdk-go/internal/conversation"
	"github.com/strands-agents/sdk-go/internal/eventloop"
	"github.com/strands-agents/sdk-go/internal/permission"
	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// ConfigOptions translates the loaded configuration into agent options. The backend also
// serves as the summarizer when the summarizing manager is selected. Permission rules
// become a guard without an approver, so ask rules deny.
func ConfigOptions(cfg *types.Config, backend provider.Backend) ([]Option, error) {
	if cfg == nil {
		return nil, nil
	}

	model := provider.RequestConfig{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
	summarizer := &conversation.ModelSummarizer{Backend: backend, Config: model}

	manager, err := conversation.New(cfg.Conversation, summarizer)
	if err != nil {
		return nil, fmt.Errorf("conversation manager: %w", err)
	}

	opts := []Option{
		WithSystemPrompt(cfg.SystemPrompt),
		WithModelConfig(model),
		WithConversationManager(manager),
		WithRetryPolicy(eventloop.RetryPolicyFromConfig(cfg.Retry)),
	}
	if len(cfg.Tools) > 0 {
		opts = append(opts, WithToolFilter(cfg.Tools...))
	}
	if cfg.Permission != nil {
		guard, err := permission.NewGuard(*cfg.Permission)
		if err != nil {
			return nil, fmt.Errorf("permission: %w", err)
		}
		opts = append(opts, WithHooks(guard))
	}
	return opts, nil
}
