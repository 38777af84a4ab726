package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient is the alternate provider behind the factory. Anthropic
// has no embedding endpoint, so CreateEmbedding always errors; the factory
// routes embedding traffic to an OpenAI-compatible endpoint instead.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicClient creates an Anthropic messages client.
func NewAnthropicClient(cfg ClientConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     cfg.Model,
		maxTokens: 4096,
		logger:    logger.Named("llm"),
	}, nil
}

// GenerateResponse implements Client.
func (c *AnthropicClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	temp := float32(temperature)

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemMessage,
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		c.logger.Error("generation request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}

	var text string
	for _, content := range resp.Content {
		if content.Text != nil {
			text += *content.Text
		}
	}
	if text == "" {
		return "", NewError(ErrorTypeResponse, "no text content in response", false, nil)
	}

	c.logger.Debug("generation request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

// CreateEmbedding implements Client. Anthropic exposes no embedding API.
func (c *AnthropicClient) CreateEmbedding(ctx context.Context, input, model string) ([]float32, error) {
	return nil, NewError(ErrorTypeEndpoint, "anthropic provider has no embedding endpoint", false, nil)
}

// GetModel implements Client.
func (c *AnthropicClient) GetModel() string { return c.model }

// GetEndpoint implements Client.
func (c *AnthropicClient) GetEndpoint() string { return "https://api.anthropic.com" }
