package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schedvox/schedvox/internal/observe"
	"github.com/schedvox/schedvox/pkg/provider/llm"
)

// Responder produces the assistant's next utterance. Implementations must be
// safe for concurrent use.
type Responder interface {
	// Reply generates a reply to utterance under the given policy prompt.
	Reply(ctx context.Context, policy, utterance string) (string, error)
}

// Compile-time interface assertion.
var _ Responder = (*LLMResponder)(nil)

// Replies are spoken aloud, so generation is tuned for short conversational
// output.
const (
	replyTemperature = 0.7
	replyMaxTokens   = 120
)

// LLMResponder generates replies through an [llm.Provider].
type LLMResponder struct {
	provider llm.Provider
	metrics  *observe.Metrics
}

// NewLLMResponder wraps provider. metrics may be nil to disable recording.
func NewLLMResponder(provider llm.Provider, metrics *observe.Metrics) *LLMResponder {
	return &LLMResponder{provider: provider, metrics: metrics}
}

// UnconfiguredResponder fails every reply. Used when no LLM provider is
// configured, so every turn falls back to the apology message while
// extraction keeps working.
type UnconfiguredResponder struct{}

var _ Responder = UnconfiguredResponder{}

// Reply implements [Responder].
func (UnconfiguredResponder) Reply(context.Context, string, string) (string, error) {
	return "", errors.New("dialogue: no llm provider configured")
}

// Reply implements [Responder].
func (r *LLMResponder) Reply(ctx context.Context, policy, utterance string) (string, error) {
	start := time.Now()
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: policy,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: utterance},
		},
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
	})
	if r.metrics != nil {
		r.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("dialogue: generate reply: %w", err)
	}
	return resp.Content, nil
}
