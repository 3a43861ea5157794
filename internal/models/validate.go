package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest indicates a request that fails shape validation.
var ErrInvalidRequest = errors.New("invalid request")

// Validate checks the request shape before it reaches any provider.
func (r CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: at least one message is required", ErrInvalidRequest)
	}
	for i, msg := range r.Messages {
		if !msg.Role.Valid() {
			return fmt.Errorf("%w: message %d has invalid role %q", ErrInvalidRequest, i, msg.Role)
		}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 1) {
		return fmt.Errorf("%w: temperature must be between 0 and 1, got %v", ErrInvalidRequest, *r.Temperature)
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return fmt.Errorf("%w: maxTokens must be positive, got %d", ErrInvalidRequest, *r.MaxTokens)
	}
	return nil
}

// Validate checks the transcription request shape. A missing file is left to
// the provider, which reports it with its own error kind.
func (r TranscriptionRequest) Validate() error {
	switch r.ResponseFormat {
	case "", FormatText, FormatJSON, FormatSRT, FormatVerboseJSON:
	default:
		return fmt.Errorf("%w: response_format must be one of text, json, srt, verbose_json, got %q", ErrInvalidRequest, r.ResponseFormat)
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 1) {
		return fmt.Errorf("%w: temperature must be between 0 and 1, got %v", ErrInvalidRequest, *r.Temperature)
	}
	return nil
}

// Contents returns the text of every message, in order.
func Contents(messages []Message) []string {
	out := make([]string, 0, len(messages))
	for _, msg := range messages {
		out = append(out, msg.Content)
	}
	return out
}

// HasRole reports whether any message carries the role.
func HasRole(messages []Message, role Role) bool {
	for _, msg := range messages {
		if strings.EqualFold(string(msg.Role), string(role)) {
			return true
		}
	}
	return false
}
