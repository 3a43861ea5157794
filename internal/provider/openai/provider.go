// Package openai speaks the OpenAI chat completions protocol and the dialects
// of vendors that mirror it (Groq, xAI Grok, DeepSeek, Perplexity).
package openai

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
	"modelgate/internal/models"
	"modelgate/internal/provider"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "modelgate/0.1"
)

// Provider implements completions and streaming for one OpenAI-compatible vendor.
type Provider struct {
	dialect dialect
	apiKey  string
	baseURL string
	headers map[string]string
	client  *http.Client
	chatURL string
}

func newProvider(d dialect, cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s provider requires an api key", d.profile.Name)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = d.baseURL
	}

	return &Provider{
		dialect: d,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		headers: cfg.Headers,
		client:  client,
		chatURL: baseURL + d.chatPath,
	}, nil
}

func (p *Provider) Name() string {
	return p.dialect.profile.Name
}

func (p *Provider) ListModels() models.ModelCatalog {
	return p.dialect.profile.ListModels()
}

// Complete runs a one-shot chat completion.
func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	if err := provider.RejectStream(req); err != nil {
		return nil, err
	}

	model, err := p.dialect.profile.PrepareCompletion(req)
	if err != nil {
		return nil, err
	}

	payload, err := p.buildChatPayload(req, model, false)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.post(ctx, payload, contentTypeJSON)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var providerResp chatResponse
	if err := decodeJSON(httpResp.Body, &providerResp); err != nil {
		return nil, p.vendorError(err)
	}

	return p.toUnified(providerResp, req, model)
}

func (p *Provider) post(ctx context.Context, payload any, accept string) (*http.Response, error) {
	httpReq, err := p.newRequest(ctx, http.MethodPost, p.chatURL, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", accept)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.vendorError(err)
	}

	if httpResp.StatusCode >= 400 {
		defer httpResp.Body.Close()
		return nil, p.vendorError(parseAPIError(httpResp))
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
	p.authorize(req)
	return req, nil
}

func (p *Provider) authorize(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
}

func (p *Provider) vendorError(err error) error {
	return provider.VendorError(p.dialect.profile.Display, err)
}

type apiErrorResponse struct {
	Error apiErrorObject `json:"error"`
}

type apiErrorObject struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("upstream error status %d and failed to read body: %w", resp.StatusCode, err)
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return errors.New(apiErr.Error.Message)
	}

	// Perplexity and some proxies return {"detail": "..."} or a bare string.
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return errors.New(detail.Detail)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("upstream error status %d: %s", resp.StatusCode, text)
}

func decodeJSON(reader io.Reader, target any) error {
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
