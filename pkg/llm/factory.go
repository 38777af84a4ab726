package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider selects which client implementation the factory builds.
type Provider string

const (
	ProviderOpenAI    Provider = "openai" // any OpenAI-compatible endpoint
	ProviderAnthropic Provider = "anthropic"
)

// FactoryConfig holds the provider selection and both endpoint configs.
type FactoryConfig struct {
	Provider  Provider
	Chat      ClientConfig
	Embedding ClientConfig // always OpenAI-compatible
	Breaker   CircuitBreakerConfig
}

// NewChatClient builds the generation/repair client for the configured
// provider, wrapped in a circuit breaker.
func NewChatClient(cfg FactoryConfig, logger *zap.Logger) (Client, error) {
	var inner Client
	var err error

	switch cfg.Provider {
	case ProviderAnthropic:
		inner, err = NewAnthropicClient(cfg.Chat, logger)
	case ProviderOpenAI, "":
		inner, err = NewOpenAIClient(cfg.Chat, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	return NewBreakerClient(inner, cfg.Breaker), nil
}

// NewEmbeddingClient builds the embedding client. Embeddings always go to an
// OpenAI-compatible endpoint; falls back to the chat endpoint when no
// dedicated one is configured.
func NewEmbeddingClient(cfg FactoryConfig, logger *zap.Logger) (Client, error) {
	emb := cfg.Embedding
	if emb.Endpoint == "" {
		emb = cfg.Chat
	}
	client, err := NewOpenAIClient(emb, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	return client, nil
}
