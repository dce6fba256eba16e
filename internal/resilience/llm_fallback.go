package resilience

import (
	"context"
	"fmt"

	"github.com/schedvox/schedvox/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across
// multiple completion backends. Each backend has its own circuit breaker;
// when the primary fails or its breaker is open, the next healthy fallback
// is tried.
type LLMFallback struct {
	chain *Chain[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend.
func NewLLMFallback(name string, primary llm.Provider, breakers CircuitBreakerConfig) *LLMFallback {
	return &LLMFallback{chain: NewChain(name, primary, breakers)}
}

// AddFallback registers an additional provider, tried after the primary.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.chain.Add(name, provider)
}

// Backends returns the backend names in try order with breaker state.
func (f *LLMFallback) Backends() []string {
	return f.chain.Names()
}

// Check is a readiness probe over the failover chain. It fails only when
// every backend's circuit breaker is open.
func (f *LLMFallback) Check(_ context.Context) error {
	if f.chain.Available() {
		return nil
	}
	return fmt.Errorf("resilience: all llm backends unavailable: %v", f.Backends())
}

// Complete sends the request to the first healthy provider and returns its
// response.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return DoResult(f.chain, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
