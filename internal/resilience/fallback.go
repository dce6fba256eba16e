package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [Chain] fails or has an open
// circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// chainEntry pairs a provider value with its dedicated circuit breaker.
type chainEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// Chain tries a primary and zero or more fallback instances of the same
// provider type in registration order. Each entry gets its own circuit
// breaker so a persistently failing backend is skipped without probing it on
// every call.
//
// Chain is safe for concurrent use once built; Add must not race with Do.
type Chain[T any] struct {
	entries  []chainEntry[T]
	breakers CircuitBreakerConfig
}

// NewChain creates a [Chain] with primary as the first entry. breakers is the
// per-entry circuit breaker template; its Name field is overwritten per entry.
func NewChain[T any](name string, primary T, breakers CircuitBreakerConfig) *Chain[T] {
	c := &Chain[T]{breakers: breakers}
	c.Add(name, primary)
	return c
}

// Add appends a fallback provider. Fallbacks are tried in the order added,
// after the primary.
func (c *Chain[T]) Add(name string, value T) {
	cfg := c.breakers
	cfg.Name = name
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cfg),
	})
}

// Names returns the entry names in try order, annotated with breaker state.
// Used by health reporting.
func (c *Chain[T]) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name + " (" + e.breaker.State().String() + ")"
	}
	return names
}

// Available reports whether at least one entry's breaker admits calls.
func (c *Chain[T]) Available() bool {
	for i := range c.entries {
		if c.entries[i].breaker.State() != StateOpen {
			return true
		}
	}
	return false
}

// Do runs fn against each entry in order until one succeeds. Entries with an
// open breaker are skipped. If every entry fails the last error is wrapped
// with [ErrAllFailed].
func (c *Chain[T]) Do(fn func(T) error) error {
	var lastErr error
	for i := range c.entries {
		entry := &c.entries[i]
		err := entry.breaker.Execute(func() error {
			return fn(entry.value)
		})
		if err == nil {
			if i > 0 {
				slog.Info("fallback provider served request", "provider", entry.name)
			}
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, circuit open", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "error", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// DoResult is [Chain.Do] for calls that produce a value. It is a package-level
// function because Go methods cannot introduce type parameters.
func DoResult[T, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var result R
	err := c.Do(func(v T) error {
		var innerErr error
		result, innerErr = fn(v)
		return innerErr
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}
