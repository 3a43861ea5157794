// Package assemblyai implements transcription against AssemblyAI's
// upload, transcript and polling endpoints.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"modelgate/internal/config"
	"modelgate/internal/models"
	"modelgate/internal/provider"
)

const (
	defaultBaseURL      = "https://api.assemblyai.com"
	defaultPollInterval = 3 * time.Second
	userAgent           = "modelgate/0.1"
)

var profile = provider.Profile{
	Name:     "assemblyai",
	Display:  "AssemblyAI",
	Catalog:  models.ModelCatalog{Audio: []string{"nano", "best"}},
	Defaults: map[models.Capability]string{models.CapabilityAudio: "nano"},
}

// Provider transcribes audio with AssemblyAI.
type Provider struct {
	apiKey       string
	baseURL      string
	headers      map[string]string
	client       *http.Client
	pollInterval time.Duration
}

// New constructs an AssemblyAI provider.
func New(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("assemblyai provider requires an api key")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Provider{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		headers:      cfg.Headers,
		client:       client,
		pollInterval: interval,
	}, nil
}

func (p *Provider) Name() string {
	return profile.Name
}

func (p *Provider) ListModels() models.ModelCatalog {
	return profile.ListModels()
}

type transcriptRequest struct {
	AudioURL                    string  `json:"audio_url"`
	SpeechModel                 string  `json:"speech_model"`
	LanguageConfidenceThreshold float64 `json:"language_confidence_threshold"`
}

type transcript struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Text          string   `json:"text"`
	Error         string   `json:"error"`
	Confidence    *float64 `json:"confidence"`
	LanguageCode  string   `json:"language_code"`
	AudioDuration *float64 `json:"audio_duration"`
}

// Transcribe uploads the audio, creates a transcript and polls until it
// completes or fails. The request temperature is used as the language
// confidence threshold.
func (p *Provider) Transcribe(ctx context.Context, req models.TranscriptionRequest) (*models.TranscriptionResponse, error) {
	model, format, err := profile.PrepareTranscription(req)
	if err != nil {
		return nil, err
	}

	uploadURL, err := p.upload(ctx, req.AttachedFile)
	if err != nil {
		return nil, provider.TranscriptionError(err)
	}

	threshold := provider.DefaultTemperature
	if req.Temperature != nil {
		threshold = *req.Temperature
	}

	var created transcript
	err = p.doJSON(ctx, http.MethodPost, "/v2/transcript", transcriptRequest{
		AudioURL:                    uploadURL,
		SpeechModel:                 model,
		LanguageConfidenceThreshold: threshold,
	}, &created)
	if err != nil {
		return nil, provider.TranscriptionError(err)
	}

	done, err := p.wait(ctx, created)
	if err != nil {
		return nil, provider.TranscriptionError(err)
	}

	resp := &models.TranscriptionResponse{Model: model, Provider: profile.Name}
	if format.Structured() {
		resp.Transcription = map[string]any{
			"text":           done.Text,
			"id":             done.ID,
			"confidence":     done.Confidence,
			"language_code":  done.LanguageCode,
			"audio_duration": done.AudioDuration,
		}
		return resp, nil
	}
	resp.Transcription = done.Text
	return resp, nil
}

func (p *Provider) upload(ctx context.Context, file models.File) (string, error) {
	data, err := file.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read audio %q: %w", file.Name(), err)
	}

	httpReq, err := p.newRequest(ctx, http.MethodPost, "/v2/upload", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := p.do(httpReq, &out); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	if out.UploadURL == "" {
		return "", errors.New("upload audio: response missing upload_url")
	}
	return out.UploadURL, nil
}

// wait polls the transcript until it leaves the queued and processing states.
func (p *Provider) wait(ctx context.Context, t transcript) (transcript, error) {
	if t.ID == "" {
		return t, errors.New("transcript response missing id")
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		switch t.Status {
		case "completed":
			return t, nil
		case "error":
			if t.Error == "" {
				t.Error = "transcript failed"
			}
			return t, errors.New(t.Error)
		}

		slog.Debug("assemblyai transcript pending", "id", t.ID, "status", t.Status)

		select {
		case <-ctx.Done():
			return t, ctx.Err()
		case <-ticker.C:
		}

		id := t.ID
		if err := p.doJSON(ctx, http.MethodGet, "/v2/transcript/"+id, nil, &t); err != nil {
			return t, err
		}
		if t.ID == "" {
			t.ID = id
		}
	}
}

func (p *Provider) doJSON(ctx context.Context, method, path string, payload, target any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := p.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return p.do(httpReq, target)
}

func (p *Provider) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", p.apiKey)
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (p *Provider) do(req *http.Request, target any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("upstream error status %d and failed to read body: %w", resp.StatusCode, err)
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return errors.New(apiErr.Error)
	}
	return fmt.Errorf("upstream error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
