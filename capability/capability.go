package capability

import (
	"context"
	"fmt"
	"time"
)

// Capability executes a single task instruction and returns its output.
// Implementations must honor context cancellation.
type Capability interface {
	Execute(ctx context.Context, instruction string) (string, error)
}

// Func adapts a function to the Capability interface.
type Func func(ctx context.Context, instruction string) (string, error)

// Execute implements Capability.
func (f Func) Execute(ctx context.Context, instruction string) (string, error) {
	return f(ctx, instruction)
}

// CompletionRequest is a single-turn request to an LLM provider.
type CompletionRequest struct {
	// System is the system prompt framing the agent's role.
	System string

	// Prompt is the instruction plus any injected context.
	Prompt string

	// MaxTokens caps the response length. Zero uses the provider default.
	MaxTokens int
}

// CompletionResponse is the provider's answer.
type CompletionResponse struct {
	// Content is the generated text.
	Content string

	// InputTokens and OutputTokens report usage when available.
	InputTokens  int
	OutputTokens int

	// Model is the model that served the request.
	Model string
}

// Provider is the interface for LLM backends.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// RetryConfig holds retry settings for provider calls.
type RetryConfig struct {
	MaxRetries  int           // Max retry attempts (default 5)
	InitBackoff time.Duration // Initial backoff (default 1s)
	MaxBackoff  time.Duration // Max backoff duration (default 60s)
}

// ProviderConfig holds configuration for a provider adapter.
type ProviderConfig struct {
	Provider  string      // anthropic, openai, google
	Model     string      // model identifier
	APIKey    string      // provider credential
	MaxTokens int         // response token cap
	BaseURL   string      // custom API endpoint, optional
	Retry     RetryConfig // retry configuration
}

// Validate validates the configuration.
func (c *ProviderConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.MaxTokens == 0 {
		return fmt.Errorf("max_tokens is required")
	}
	return nil
}

// LLMCapability wraps a Provider as a Capability with a fixed system
// prompt describing the agent's role.
type LLMCapability struct {
	provider Provider
	system   string
}

// NewLLMCapability creates a capability backed by an LLM provider.
func NewLLMCapability(p Provider, systemPrompt string) *LLMCapability {
	return &LLMCapability{
		provider: p,
		system:   systemPrompt,
	}
}

// Execute implements Capability.
func (c *LLMCapability) Execute(ctx context.Context, instruction string) (string, error) {
	resp, err := c.provider.Complete(ctx, CompletionRequest{
		System: c.system,
		Prompt: instruction,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
