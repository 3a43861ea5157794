package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"modelgate/internal/config"
	"modelgate/internal/media"
	"modelgate/internal/models"
	"modelgate/internal/provider"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "modelgate/0.1"
	apiVersion      = "2023-06-01"
	defaultBaseURL  = "https://api.anthropic.com"

	// thinkingBudget is reserved on top of max_tokens when reasoning is on.
	thinkingBudget = 1024
)

var profile = provider.Profile{
	Name:    "claude",
	Display: "Claude",
	Catalog: models.ModelCatalog{
		Text: []string{
			"claude-3-7-sonnet-latest",
			"claude-3-5-haiku-latest",
			"claude-3-5-sonnet-latest",
			"claude-3-5-sonnet-20240620",
			"claude-3-opus-latest",
			"claude-3-sonnet-20240229",
			"claude-3-haiku-20240307",
			"claude-3-5-sonnet-20241022",
		},
	},
	Defaults:        map[models.Capability]string{models.CapabilityText: "claude-3-5-sonnet-20241022"},
	Images:          media.ClaudeImages,
	ReasoningModels: []string{"claude-3-7-sonnet-latest"},
}

// Provider implements Anthropic Claude API interactions.
type Provider struct {
	apiKey   string
	headers  map[string]string
	client   *http.Client
	messages string
}

// New constructs a Claude provider instance.
func New(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("claude provider requires an api key")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:   cfg.APIKey,
		headers:  cfg.Headers,
		client:   client,
		messages: baseURL + "/v1/messages",
	}, nil
}

func (p *Provider) Name() string {
	return profile.Name
}

func (p *Provider) ListModels() models.ModelCatalog {
	return profile.ListModels()
}

// SupportsReasoning reports whether model accepts extended thinking.
func (p *Provider) SupportsReasoning(model string) bool {
	return profile.AllowsReasoning(model)
}

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	if err := provider.RejectStream(req); err != nil {
		return nil, err
	}

	model, err := profile.PrepareCompletion(req)
	if err != nil {
		return nil, err
	}

	payload, err := buildMessagePayload(req, model, false)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.post(ctx, payload, contentTypeJSON)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var providerResp messageResponse
	if err := decodeJSON(httpResp.Body, &providerResp); err != nil {
		return nil, vendorError(err)
	}

	return providerResp.toUnified(req, model)
}

func (p *Provider) post(ctx context.Context, payload messagePayload, accept string) (*http.Response, error) {
	httpReq, err := p.newRequest(ctx, http.MethodPost, p.messages, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", accept)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, vendorError(err)
	}
	if httpResp.StatusCode >= 400 {
		defer httpResp.Body.Close()
		return nil, vendorError(parseAPIError(httpResp))
	}
	return httpResp, nil
}

func (p *Provider) newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type messagePayload struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	Thinking    *thinking `json:"thinking,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type thinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	Thinking string       `json:"thinking,omitempty"`
	Source   *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// buildMessagePayload lifts system messages into the top-level system field
// and appends any image as a trailing user message.
func buildMessagePayload(req models.CompletionRequest, model string, stream bool) (messagePayload, error) {
	messages := make([]message, 0, len(req.Messages)+1)
	var systemParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case models.RoleSystem:
			if strings.TrimSpace(msg.Content) != "" {
				systemParts = append(systemParts, msg.Content)
			}
		default:
			messages = append(messages, message{
				Role:    string(msg.Role),
				Content: []contentBlock{{Type: "text", Text: msg.Content}},
			})
		}
	}

	if req.AttachedFile != nil {
		data, err := media.EncodeBase64(req.AttachedFile)
		if err != nil {
			return messagePayload{}, err
		}
		messages = append(messages, message{
			Role: string(models.RoleUser),
			Content: []contentBlock{{
				Type: "image",
				Source: &imageSource{
					Type:      "base64",
					MediaType: media.MIMEType(req.AttachedFile),
					Data:      data,
				},
			}},
		})
	}

	if len(messages) == 0 {
		return messagePayload{}, provider.Errorf(provider.ErrInvalidRequest, "Claude requests require at least one user or assistant message")
	}

	temperature := provider.Temperature(req)
	payload := messagePayload{
		Model:       model,
		Messages:    messages,
		MaxTokens:   provider.MaxTokens(req),
		Temperature: &temperature,
		Stream:      stream,
	}

	if len(systemParts) > 0 {
		payload.System = strings.Join(systemParts, "\n\n")
	}

	if req.Reasoning {
		// Extended thinking requires the default temperature and a
		// max_tokens larger than the thinking budget.
		payload.Thinking = &thinking{Type: "enabled", BudgetTokens: thinkingBudget}
		payload.MaxTokens += thinkingBudget
		payload.Temperature = nil
	}

	return payload, nil
}

type messageResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Usage      usageBlock     `json:"usage"`
	StopReason string         `json:"stop_reason"`
}

type usageBlock struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (r messageResponse) toUnified(req models.CompletionRequest, model string) (*models.CompletionResponse, error) {
	if len(r.Content) == 0 {
		return nil, vendorError(errors.New("response missing content blocks"))
	}

	var text, thoughts strings.Builder
	for _, block := range r.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			thoughts.WriteString(block.Thinking)
		}
	}

	resp := &models.CompletionResponse{
		Content:   text.String(),
		Model:     model,
		Provider:  profile.Name,
		Reasoning: thoughts.String(),
	}
	if req.ShowStats {
		resp.Usage = models.NewUsage(r.Usage.InputTokens, r.Usage.OutputTokens)
	}
	return resp, nil
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("upstream error status %d and failed to read body: %w", resp.StatusCode, err)
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("%s: %s", apiErr.Error.Type, apiErr.Error.Message)
	}

	return fmt.Errorf("upstream error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func decodeJSON(reader io.Reader, target any) error {
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

func vendorError(err error) error {
	return provider.VendorError(profile.Display, err)
}
