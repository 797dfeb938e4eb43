package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/config"
)

// NewFromConfig creates the completion client for the configured
// provider. An Anthropic API key wins over an OpenAI-compatible
// endpoint when both are present.
func NewFromConfig(cfg config.LLMConfig, logger *zap.Logger) (CompletionClient, error) {
	if cfg.AnthropicAPIKey != "" {
		client, err := NewAnthropicClient(&AnthropicConfig{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.AnthropicModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.LLMTimeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	}

	if cfg.Endpoint != "" {
		client, err := NewOpenAIClient(&OpenAIConfig{
			Endpoint:    cfg.Endpoint,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			Temperature: cfg.Temperature,
			Timeout:     cfg.LLMTimeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil
	}

	return nil, fmt.Errorf("no LLM provider configured")
}
