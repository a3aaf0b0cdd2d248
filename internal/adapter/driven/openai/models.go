package openai

import (
	"strings"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

// modelSpec captures the per-model context window, response reservation, and
// knowledge cutoff quoted in prompts.
type modelSpec struct {
	maxTokens       int
	responseTokens  int
	knowledgeCutoff string
}

// Prefix-matched so dated variants ("gpt-4o-2024-08-06") resolve without new
// table entries. Longest prefix wins.
var modelSpecs = map[string]modelSpec{
	"gpt-4o-mini":   {128_000, 16_000, "2023-10-01"},
	"gpt-4o":        {128_000, 4_000, "2023-10-01"},
	"gpt-4-turbo":   {128_000, 4_000, "2023-12-01"},
	"gpt-4":         {8_000, 2_000, "2021-09-01"},
	"gpt-3.5-turbo": {16_385, 3_000, "2021-09-01"},
}

// LimitsForModel reports the token limits NewClient would assign to the named
// model, so callers can build model-specific prompt framing up front.
func LimitsForModel(name string) (model.TokenLimits, error) {
	return limitsForModel(name)
}

// limitsForModel resolves TokenLimits for a model name. Unknown models get the
// smallest table entry's budget so prompts stay safe rather than overflowing.
func limitsForModel(name string) (model.TokenLimits, error) {
	best := ""
	for prefix := range modelSpecs {
		if strings.HasPrefix(name, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return model.NewTokenLimits(8_000, 2_000, "2021-09-01")
	}
	spec := modelSpecs[best]
	return model.NewTokenLimits(spec.maxTokens, spec.responseTokens, spec.knowledgeCutoff)
}
