// Package inference wraps the generative model endpoint. Calls are blocking;
// callers bound them with context deadlines and recover from timeouts with
// deterministic fallbacks.
package inference

import (
	"context"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Message is one conversation turn passed to the model.
type Message struct {
	Role domain.Role
	Text string
}

// Output-length ceilings for the two call sites: the main answer may carry
// several directives, the confirmation is a single sentence.
const (
	MaxAnswerTokens       int32 = 512
	MaxConfirmationTokens int32 = 150
)

// Client generates text from a system prompt and a message history.
type Client interface {
	Generate(ctx context.Context, systemPrompt string, history []Message, maxTokens int32) (string, error)
}
