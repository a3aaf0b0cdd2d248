// Package driven defines the driven ports the review pipeline depends on.
package driven

import (
	"context"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

// ChatState threads conversation identity between successive Chat calls so a
// follow-up prompt can continue an earlier exchange.
type ChatState struct {
	ParentMessageID string
	ConversationID  string
}

// ChatClient is the driven port for one model tier (light/summarize or
// heavy/review). Implementations must tolerate an empty prompt by returning
// empty output without touching the network.
type ChatClient interface {
	// Chat sends prompt as a continuation of state's conversation and returns
	// the response text plus the state to use for the next turn.
	Chat(ctx context.Context, prompt string, state ChatState) (string, ChatState, error)

	// CountTokens returns the prompt token count of text for this tier's model.
	CountTokens(text string) int

	// Limits reports this tier's context budget.
	Limits() model.TokenLimits
}
