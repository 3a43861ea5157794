package openai

import (
	"errors"
	"strings"

	"modelgate/internal/media"
	"modelgate/internal/models"
	"modelgate/internal/provider"
)

type chatPayload struct {
	Model               string            `json:"model"`
	Messages            []chatMessage     `json:"messages"`
	Stream              bool              `json:"stream,omitempty"`
	StreamOptions       *streamOptions    `json:"stream_options,omitempty"`
	MaxTokens           *int              `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int              `json:"max_completion_tokens,omitempty"`
	Temperature         *float64          `json:"temperature,omitempty"`
	ReasoningEffort     string            `json:"reasoning_effort,omitempty"`
	ReasoningFormat     string            `json:"reasoning_format,omitempty"`
	WebSearchOptions    *webSearchOptions `json:"web_search_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type webSearchOptions struct{}

// chatMessage content is either a string or a list of contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

func (p *Provider) buildChatPayload(req models.CompletionRequest, model string, stream bool) (chatPayload, error) {
	messages, err := toChatMessages(req.Messages, req.AttachedFile)
	if err != nil {
		return chatPayload{}, err
	}

	temperature := provider.Temperature(req)
	maxTokens := provider.MaxTokens(req)

	payload := chatPayload{
		Model:       model,
		Messages:    messages,
		Stream:      stream,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}
	if stream && req.ShowStats && p.dialect.streamUsage {
		payload.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	if p.dialect.prepare != nil {
		p.dialect.prepare(&payload, req)
	}
	return payload, nil
}

// toChatMessages keeps conversation order and appends the attachment as a
// trailing user message. The input slice is not modified.
func toChatMessages(messages []models.Message, file models.File) ([]chatMessage, error) {
	out := make([]chatMessage, 0, len(messages)+1)
	for _, msg := range messages {
		out = append(out, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	if file != nil {
		uri, err := media.DataURI(file)
		if err != nil {
			return nil, err
		}
		out = append(out, chatMessage{
			Role: string(models.RoleUser),
			Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: uri}},
			},
		})
	}
	return out, nil
}

type chatResponse struct {
	ID            string         `json:"id"`
	Model         string         `json:"model"`
	Choices       []chatChoice   `json:"choices"`
	Usage         *usageBlock    `json:"usage,omitempty"`
	Citations     []string       `json:"citations,omitempty"`
	SearchResults []searchResult `json:"search_results,omitempty"`
}

type chatChoice struct {
	Index        int             `json:"index"`
	Message      responseMessage `json:"message"`
	Delta        responseMessage `json:"delta"`
	FinishReason string          `json:"finish_reason"`
}

type responseMessage struct {
	Role             string       `json:"role"`
	Content          string       `json:"content"`
	Reasoning        string       `json:"reasoning,omitempty"`
	ReasoningContent string       `json:"reasoning_content,omitempty"`
	Annotations      []annotation `json:"annotations,omitempty"`
}

func (m responseMessage) reasoning() string {
	if m.ReasoningContent != "" {
		return m.ReasoningContent
	}
	return m.Reasoning
}

type usageBlock struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u *usageBlock) toUnified() *models.Usage {
	if u == nil {
		return nil
	}
	return &models.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func (p *Provider) toUnified(r chatResponse, req models.CompletionRequest, model string) (*models.CompletionResponse, error) {
	if len(r.Choices) == 0 {
		return nil, p.vendorError(errors.New("response did not include choices"))
	}

	msg := r.Choices[0].Message
	content := msg.Content
	reasoning := msg.reasoning()

	if p.dialect.thinkTags && reasoningModel(p.dialect, model) {
		var s thinkSplitter
		c, th := s.feed(content)
		fc, fth := s.flush()
		content = strings.TrimSpace(c + fc)
		if extra := strings.TrimSpace(th + fth); extra != "" {
			reasoning = extra
		}
	}

	var results []models.SearchResult
	if len(msg.Annotations) > 0 {
		content, results = applyAnnotations(content, msg.Annotations)
	}
	if p.dialect.citations {
		if found := citationResults(r.SearchResults, r.Citations); len(found) > 0 {
			results = found
			content = stripCitationMarkers(content)
		}
	}

	resp := &models.CompletionResponse{
		Content:       content,
		Model:         model,
		Provider:      p.Name(),
		SearchResults: results,
		Reasoning:     reasoning,
	}

	if req.ShowStats {
		if usage := r.Usage.toUnified(); usage != nil {
			resp.Usage = usage
		} else {
			resp.Usage = models.NewUsage(provider.EstimatePrompt(req.Messages), provider.EstimateTokens(content))
		}
	}

	return resp, nil
}
