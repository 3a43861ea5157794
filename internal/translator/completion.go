// Package translator converts between the gateway's HTTP wire format and the
// unified request and response types.
package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"modelgate/internal/models"
)

var (
	errMissingProvider = errors.New("provider must be provided")
	errInvalidContent  = errors.New("invalid message content")
)

// CompletionRequest is the body of POST /api/completion, or the "request"
// field of its multipart form.
type CompletionRequest struct {
	Provider    string
	Messages    []Message
	Model       string
	Temperature *float64
	MaxTokens   *int
	Stream      bool
	ShowStats   bool
	WebSearch   bool
	Reasoning   bool
}

// UnmarshalJSON decodes the wire field names and requires a provider.
func (r *CompletionRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Provider    string    `json:"provider"`
		Messages    []Message `json:"messages"`
		Model       string    `json:"model"`
		Temperature *float64  `json:"temperature"`
		MaxTokens   *int      `json:"maxTokens"`
		Stream      bool      `json:"stream"`
		ShowStats   bool      `json:"show_stats"`
		WebSearch   bool      `json:"web_search"`
		Reasoning   bool      `json:"reasoning"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode completion request: %w", err)
	}

	*r = CompletionRequest{
		Provider:    strings.TrimSpace(raw.Provider),
		Messages:    raw.Messages,
		Model:       strings.TrimSpace(raw.Model),
		Temperature: raw.Temperature,
		MaxTokens:   raw.MaxTokens,
		Stream:      raw.Stream,
		ShowStats:   raw.ShowStats,
		WebSearch:   raw.WebSearch,
		Reasoning:   raw.Reasoning,
	}
	if r.Provider == "" {
		return errMissingProvider
	}
	return nil
}

// ToUnified converts the wire request. file may be nil.
func (r CompletionRequest) ToUnified(file models.File) models.CompletionRequest {
	msgs := make([]models.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		msgs = append(msgs, models.Message{Role: models.Role(m.Role), Content: m.Content})
	}

	return models.CompletionRequest{
		Messages:     msgs,
		Model:        r.Model,
		Temperature:  r.Temperature,
		MaxTokens:    r.MaxTokens,
		Stream:       r.Stream,
		ShowStats:    r.ShowStats,
		AttachedFile: file,
		WebSearch:    r.WebSearch,
		Reasoning:    r.Reasoning,
	}
}

// Message captures a single conversational message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts content as a string or an array of text segments.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	content, err := extractMessageContent(raw.Content)
	if err != nil {
		return err
	}

	m.Role = strings.ToLower(strings.TrimSpace(raw.Role))
	m.Content = content
	return nil
}

func extractMessageContent(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("%w: missing content", errInvalidContent)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var segments []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err == nil {
		var builder strings.Builder
		for _, segment := range segments {
			if segment.Type != "text" {
				return "", fmt.Errorf("%w: segment type %q not supported", errInvalidContent, segment.Type)
			}
			builder.WriteString(segment.Text)
		}
		return builder.String(), nil
	}

	return "", fmt.Errorf("%w: unsupported content structure", errInvalidContent)
}

// Usage is the wire token accounting block.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// SearchResult is a wire citation.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CompletionResponse is both the non-streaming body and one stream frame.
type CompletionResponse struct {
	Content       string         `json:"content"`
	Model         string         `json:"model,omitempty"`
	Provider      string         `json:"provider,omitempty"`
	Usage         *Usage         `json:"usage,omitempty"`
	SearchResults []SearchResult `json:"search_results,omitempty"`
	Reasoning     string         `json:"reasoning,omitempty"`
}

// FromUnified builds the response body. Model, provider and usage are only
// included when the caller asked for stats.
func FromUnified(resp *models.CompletionResponse, showStats bool) CompletionResponse {
	out := CompletionResponse{
		Content:       resp.Content,
		SearchResults: fromSearchResults(resp.SearchResults),
		Reasoning:     resp.Reasoning,
	}
	if showStats {
		out.Model = resp.Model
		out.Provider = resp.Provider
		out.Usage = fromUsage(resp.Usage)
	}
	return out
}

// FromChunk builds one stream frame with the same rules as FromUnified.
func FromChunk(chunk models.StreamChunk, showStats bool) CompletionResponse {
	return FromUnified(&models.CompletionResponse{
		Content:       chunk.Content,
		Model:         chunk.Model,
		Provider:      chunk.Provider,
		Usage:         chunk.Usage,
		SearchResults: chunk.SearchResults,
		Reasoning:     chunk.Reasoning,
	}, showStats)
}

func fromUsage(u *models.Usage) *Usage {
	if u == nil {
		return nil
	}
	return &Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func fromSearchResults(results []models.SearchResult) []SearchResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{Title: r.Title, URL: r.URL}
	}
	return out
}
