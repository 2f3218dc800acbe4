package capability

import (
	"context"
	"sync"
)

// MockProvider is a mock LLM provider for testing.
type MockProvider struct {
	mu          sync.Mutex
	response    string
	err         error
	callCount   int
	lastRequest *CompletionRequest

	// CompleteFunc can be overridden for custom behavior.
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetResponse sets the response content.
func (p *MockProvider) SetResponse(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.response = content
}

// SetError sets an error to return.
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// LastRequest returns the last request.
func (p *MockProvider) LastRequest() *CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRequest
}

// CallCount returns the number of Complete calls made.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callCount
}

// Complete implements the Provider interface.
func (p *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.mu.Lock()
	p.callCount++
	p.lastRequest = &req
	fn := p.CompleteFunc
	response, err := p.response, p.err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	if err != nil {
		return nil, err
	}

	return &CompletionResponse{
		Content: response,
		Model:   "mock",
	}, nil
}
