// Package gemini adapts Google's Gemini API through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"modelgate/internal/config"
	"modelgate/internal/media"
	"modelgate/internal/models"
	"modelgate/internal/provider"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

var audioModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
	"gemini-1.5-pro",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.5-pro-exp-03-25",
}

var profile = provider.Profile{
	Name:    "gemini",
	Display: "Gemini",
	Catalog: models.ModelCatalog{
		Text: []string{
			"gemini-1.5-flash",
			"gemini-1.5-flash-8b",
			"gemini-1.5-pro",
			"gemini-2.0-flash",
			"gemini-2.0-flash-lite",
			"gemini-2.0-flash-thinking-exp",
			"gemini-2.5-pro-exp-03-25",
		},
		Audio: audioModels,
	},
	Defaults: map[models.Capability]string{
		models.CapabilityText:  "gemini-2.0-flash",
		models.CapabilityAudio: "gemini-2.0-flash",
	},
	Images:          media.StrictImages,
	ReasoningModels: []string{"gemini-2.0-flash-thinking-exp", "gemini-2.5-pro-exp-03-25"},
	WebSearchModels: []string{"gemini-2.0-flash", "gemini-2.5-pro-exp-03-25"},
}

// Provider serves Gemini completions, streaming and transcription.
type Provider struct {
	client *genai.Client
}

// New builds a Gemini API client. A non-empty base URL redirects requests,
// which tests use to point the SDK at a local server.
func New(ctx context.Context, cfg config.ProviderConfig, httpClient *http.Client) (*Provider, error) {
	if httpClient == nil {
		return nil, errors.New("http client must not be nil")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini provider requires an api key")
	}

	opts := genai.HTTPOptions{BaseURL: cfg.BaseURL}
	if len(cfg.Headers) > 0 {
		opts.Headers = make(http.Header, len(cfg.Headers))
		for k, v := range cfg.Headers {
			opts.Headers.Set(k, v)
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string {
	return profile.Name
}

func (p *Provider) ListModels() models.ModelCatalog {
	return profile.ListModels()
}

// SupportsReasoning reports whether model can return its thoughts.
func (p *Provider) SupportsReasoning(model string) bool {
	return profile.AllowsReasoning(model)
}

// SupportsWebSearch reports whether model can use Google Search grounding.
func (p *Provider) SupportsWebSearch(model string) bool {
	return profile.AllowsWebSearch(model)
}

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	if err := provider.RejectStream(req); err != nil {
		return nil, err
	}

	model, err := profile.PrepareCompletion(req)
	if err != nil {
		return nil, err
	}

	contents, cfg, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	result, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, vendorError(err)
	}

	text, thoughts, results := splitResponse(result)
	resp := &models.CompletionResponse{
		Content:       text,
		Model:         model,
		Provider:      profile.Name,
		SearchResults: results,
		Reasoning:     thoughts,
	}
	if req.ShowStats {
		resp.Usage = usage(result, req.Messages, text)
	}
	return resp, nil
}

// buildRequest maps assistant to the "model" role, lifts system messages
// into SystemInstruction and appends any image as inline data.
func buildRequest(req models.CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	contents := make([]*genai.Content, 0, len(req.Messages)+1)
	var system []*genai.Part

	for _, msg := range req.Messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, &genai.Part{Text: msg.Content})
		case models.RoleAssistant:
			contents = append(contents, &genai.Content{Role: roleModel, Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: roleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}

	if req.AttachedFile != nil {
		data, err := req.AttachedFile.ReadAll()
		if err != nil {
			return nil, nil, fmt.Errorf("read attachment %q: %w", req.AttachedFile.Name(), err)
		}
		contents = append(contents, &genai.Content{
			Role: roleUser,
			Parts: []*genai.Part{{
				InlineData: &genai.Blob{Data: data, MIMEType: media.MIMEType(req.AttachedFile)},
			}},
		})
	}

	temperature := float32(provider.Temperature(req))
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(provider.MaxTokens(req)),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}
	if req.Reasoning {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	if req.WebSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return contents, cfg, nil
}

// splitResponse separates answer text from thought parts and collects
// grounding sources from the first candidate.
func splitResponse(resp *genai.GenerateContentResponse) (text, thoughts string, results []models.SearchResult) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", "", nil
	}
	candidate := resp.Candidates[0]

	var t, th strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.Thought {
				th.WriteString(part.Text)
			} else {
				t.WriteString(part.Text)
			}
		}
	}
	return t.String(), th.String(), groundingResults(candidate)
}

func groundingResults(candidate *genai.Candidate) []models.SearchResult {
	if candidate == nil || candidate.GroundingMetadata == nil {
		return nil
	}
	var out []models.SearchResult
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		out = append(out, models.SearchResult{Title: chunk.Web.Title, URL: chunk.Web.URI})
	}
	return out
}

func usage(resp *genai.GenerateContentResponse, messages []models.Message, text string) *models.Usage {
	if resp != nil && resp.UsageMetadata != nil {
		meta := resp.UsageMetadata
		return &models.Usage{
			PromptTokens:     int(meta.PromptTokenCount),
			CompletionTokens: int(meta.CandidatesTokenCount),
			TotalTokens:      int(meta.TotalTokenCount),
		}
	}
	return models.NewUsage(provider.EstimatePrompt(messages), provider.EstimateTokens(text))
}

func vendorError(err error) error {
	return provider.VendorError(profile.Display, err)
}
