package llm

import "context"

// BreakerClient wraps a Client with a circuit breaker so a dead provider
// fails fast instead of stalling every attempt of the repair loop.
type BreakerClient struct {
	inner   Client
	breaker *CircuitBreaker
}

// NewBreakerClient wraps inner with the given breaker configuration.
func NewBreakerClient(inner Client, cfg CircuitBreakerConfig) *BreakerClient {
	return &BreakerClient{inner: inner, breaker: NewCircuitBreaker(cfg)}
}

// GenerateResponse implements Client.
func (b *BreakerClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	if ok, err := b.breaker.Allow(); !ok {
		return "", NewError(ErrorTypeEndpoint, "provider circuit open", true, err)
	}
	out, err := b.inner.GenerateResponse(ctx, prompt, systemMessage, temperature)
	b.record(err)
	return out, err
}

// CreateEmbedding implements Client.
func (b *BreakerClient) CreateEmbedding(ctx context.Context, input, model string) ([]float32, error) {
	if ok, err := b.breaker.Allow(); !ok {
		return nil, NewError(ErrorTypeEndpoint, "provider circuit open", true, err)
	}
	out, err := b.inner.CreateEmbedding(ctx, input, model)
	b.record(err)
	return out, err
}

// record feeds the breaker. Response-shape errors are the model being
// unhelpful, not the endpoint being down, so they don't trip the circuit.
func (b *BreakerClient) record(err error) {
	if err == nil {
		b.breaker.RecordSuccess()
		return
	}
	if classified := ClassifyError(err); classified.Type == ErrorTypeResponse {
		b.breaker.RecordSuccess()
		return
	}
	b.breaker.RecordFailure()
}

// GetModel implements Client.
func (b *BreakerClient) GetModel() string { return b.inner.GetModel() }

// GetEndpoint implements Client.
func (b *BreakerClient) GetEndpoint() string { return b.inner.GetEndpoint() }

// State exposes the breaker state for health reporting.
func (b *BreakerClient) State() CircuitState { return b.breaker.State() }
