package model

import "fmt"

// TokenLimits describes one model tier's context budget.
type TokenLimits struct {
	// MaxTokens is the model's total context window.
	MaxTokens int
	// ResponseTokens is the slice of the window reserved for the response.
	ResponseTokens int
	// RequestTokens is what remains for the prompt: MaxTokens - ResponseTokens
	// minus a small safety margin.
	RequestTokens int
	// KnowledgeCutoff is the model's training cutoff, quoted in prompts.
	KnowledgeCutoff string
}

// NewTokenLimits derives a validated TokenLimits from a window size and a
// response reservation.
func NewTokenLimits(maxTokens, responseTokens int, knowledgeCutoff string) (TokenLimits, error) {
	request := maxTokens - responseTokens - 100
	if request <= 0 || request >= maxTokens {
		return TokenLimits{}, fmt.Errorf("invalid token limits: max=%d response=%d", maxTokens, responseTokens)
	}
	return TokenLimits{
		MaxTokens:       maxTokens,
		ResponseTokens:  responseTokens,
		RequestTokens:   request,
		KnowledgeCutoff: knowledgeCutoff,
	}, nil
}
