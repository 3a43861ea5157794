// Package elevenlabs implements Scribe speech-to-text.
package elevenlabs

import (
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
	defaultBaseURL = "https://api.elevenlabs.io"
	userAgent      = "modelgate/0.1"
)

var profile = provider.Profile{
	Name:     "elevenlabs",
	Display:  "ElevenLabs",
	Catalog:  models.ModelCatalog{Audio: []string{"scribe_v1"}},
	Defaults: map[models.Capability]string{models.CapabilityAudio: "scribe_v1"},
}

type Provider struct {
	apiKey  string
	headers map[string]string
	client  *http.Client
	convert string
}

// New constructs an ElevenLabs provider.
func New(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("elevenlabs provider requires an api key")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  cfg.APIKey,
		headers: cfg.Headers,
		client:  client,
		convert: baseURL + "/v1/speech-to-text",
	}, nil
}

func (p *Provider) Name() string {
	return profile.Name
}

func (p *Provider) ListModels() models.ModelCatalog {
	return profile.ListModels()
}

// Transcribe posts the audio as multipart form data. Structured formats
// return the whole decoded response.
func (p *Provider) Transcribe(ctx context.Context, req models.TranscriptionRequest) (*models.TranscriptionResponse, error) {
	model, format, err := profile.PrepareTranscription(req)
	if err != nil {
		return nil, err
	}

	body, contentType, err := media.MultipartBody("file", req.AttachedFile,
		media.FormField{Name: "model_id", Value: model},
	)
	if err != nil {
		return nil, provider.TranscriptionError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.convert, body)
	if err != nil {
		return nil, provider.TranscriptionError(fmt.Errorf("construct request: %w", err))
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("xi-api-key", p.apiKey)
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, provider.TranscriptionError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, provider.TranscriptionError(parseAPIError(httpResp))
	}

	var decoded map[string]any
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return nil, provider.TranscriptionError(fmt.Errorf("decode provider response: %w", err))
	}

	resp := &models.TranscriptionResponse{Model: model, Provider: profile.Name}
	if format.Structured() {
		resp.Transcription = decoded
		return resp, nil
	}
	text, _ := decoded["text"].(string)
	resp.Transcription = text
	return resp, nil
}

// parseAPIError reads detail.message, or detail when it is a plain string.
func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("upstream error status %d and failed to read body: %w", resp.StatusCode, err)
	}

	var apiErr struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && len(apiErr.Detail) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(apiErr.Detail, &detail) == nil && detail.Message != "" {
			return errors.New(detail.Message)
		}
		var plain string
		if json.Unmarshal(apiErr.Detail, &plain) == nil && plain != "" {
			return errors.New(plain)
		}
	}
	return fmt.Errorf("upstream error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
