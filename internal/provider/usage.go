package provider

import (
	"unicode/utf8"

	"modelgate/internal/models"
)

// EstimateTokens approximates token counts as ceil(characters/4) per text,
// summed. It is only used when a vendor does not report usage.
func EstimateTokens(texts ...string) int {
	total := 0
	for _, text := range texts {
		total += (utf8.RuneCountInString(text) + 3) / 4
	}
	return total
}

// EstimatePrompt estimates the prompt size of a conversation.
func EstimatePrompt(messages []models.Message) int {
	return EstimateTokens(models.Contents(messages)...)
}

// UsageTracker accumulates running usage across stream chunks.
type UsageTracker struct {
	prompt     int
	completion int
}

// NewUsageTracker starts accounting with an estimated prompt size.
func NewUsageTracker(messages []models.Message) *UsageTracker {
	return &UsageTracker{prompt: EstimatePrompt(messages)}
}

// Add records a content fragment and returns the running usage.
func (t *UsageTracker) Add(fragment string) *models.Usage {
	t.completion += EstimateTokens(fragment)
	return models.NewUsage(t.prompt, t.completion)
}
