// Package llm is the boundary to the external generation/repair service.
// Everything behind the Client interface is an unreliable collaborator: the
// engine treats its output as untrusted text to validate, never as SQL to
// trust.
package llm

import "context"

// Client is the chat-completion and embedding boundary. Implementations:
// the OpenAI-compatible Client, the Anthropic AnthropicClient, the
// BreakerClient decorator, and MockClient for tests.
type Client interface {
	// GenerateResponse sends one system+user exchange and returns the raw
	// completion text.
	GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// CreateEmbedding returns a fixed-length vector for the input text.
	// Used by the retrieval collaborator, not by the core pipeline.
	CreateEmbedding(ctx context.Context, input, model string) ([]float32, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*AnthropicClient)(nil)
	_ Client = (*BreakerClient)(nil)
	_ Client = (*MockClient)(nil)
)
