package llm

import (
	"context"
	"fmt"

	"deepresearch/config"
)

// NewProvider builds the chat provider for a model block
func NewProvider(ctx context.Context, m *config.Model) (Provider, error) {
	switch m.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(m.APIKey, m.BaseURL), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(m.APIKey, m.BaseURL), nil
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, m.APIKey)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", m.Provider)
	}
}
