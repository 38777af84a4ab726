package llm

import "context"

// MockClient is a configurable Client for tests. Set the Func fields to
// control behavior; call counters record usage for verification.
type MockClient struct {
	GenerateResponseFunc func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)
	CreateEmbeddingFunc  func(ctx context.Context, input, model string) ([]float32, error)

	Model    string
	Endpoint string

	GenerateResponseCalls int
	CreateEmbeddingCalls  int

	// Prompts records every prompt passed to GenerateResponse, so tests can
	// assert on repair-context contents.
	Prompts []string
}

// NewMockClient creates a mock with defaults.
func NewMockClient() *MockClient {
	return &MockClient{Model: "mock-model", Endpoint: "http://mock-endpoint"}
}

// GenerateResponse implements Client.
func (m *MockClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	m.GenerateResponseCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return "", nil
}

// CreateEmbedding implements Client.
func (m *MockClient) CreateEmbedding(ctx context.Context, input, model string) ([]float32, error) {
	m.CreateEmbeddingCalls++
	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, input, model)
	}
	return nil, nil
}

// GetModel implements Client.
func (m *MockClient) GetModel() string { return m.Model }

// GetEndpoint implements Client.
func (m *MockClient) GetEndpoint() string { return m.Endpoint }
