package factory

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"modelgate/internal/config"
	"modelgate/internal/provider"
	"modelgate/internal/provider/assemblyai"
	"modelgate/internal/provider/claude"
	"modelgate/internal/provider/elevenlabs"
	"modelgate/internal/provider/gemini"
	"modelgate/internal/provider/openai"
)

const (
	defaultResponseHeaderTimeout = 60 * time.Second
	defaultDialTimeout           = 10 * time.Second
	defaultKeepAlive             = 30 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
)

type constructor func(ctx context.Context, cfg config.ProviderConfig, client *http.Client) (provider.Provider, error)

type entry struct {
	name string
	new  constructor
}

func simple[P provider.Provider](fn func(config.ProviderConfig, *http.Client) (P, error)) constructor {
	return func(_ context.Context, cfg config.ProviderConfig, client *http.Client) (provider.Provider, error) {
		p, err := fn(cfg, client)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// table lists every adapter the gateway knows how to build.
var table = []entry{
	{"openai", simple(openai.NewOpenAI)},
	{"claude", simple(claude.New)},
	{"gemini", func(ctx context.Context, cfg config.ProviderConfig, client *http.Client) (provider.Provider, error) {
		p, err := gemini.New(ctx, cfg, client)
		if err != nil {
			return nil, err
		}
		return p, nil
	}},
	{"groq", simple(openai.NewGroq)},
	{"grok", simple(openai.NewGrok)},
	{"deepseek", simple(openai.NewDeepSeek)},
	{"perplexity", simple(openai.NewPerplexity)},
	{"assemblyai", simple(assemblyai.New)},
	{"elevenlabs", simple(elevenlabs.New)},
}

// BuildRegistry constructs every provider with a credential, from the config
// file or its environment variable, and freezes them into a registry.
// Providers without a credential are skipped.
func BuildRegistry(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	client := newHTTPClient(defaultResponseHeaderTimeout)

	var providers []provider.Provider
	for _, e := range table {
		pcfg := cfg.Provider(e.name)
		pcfg.APIKey = cfg.APIKey(e.name)
		if pcfg.APIKey == "" {
			slog.Debug("provider skipped, no credential", "provider", e.name, "env", config.CredentialEnv(e.name))
			continue
		}

		p, err := e.new(ctx, pcfg, client)
		if err != nil {
			return nil, fmt.Errorf("initialise %s provider: %w", e.name, err)
		}
		providers = append(providers, p)
	}

	registry, err := provider.NewRegistry(providers...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	slog.Info("providers registered", "count", registry.Len(), "providers", registry.Names())
	return registry, nil
}

// names returns the provider names in table order.
func names() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = e.name
	}
	return out
}

// newHTTPClient bounds the wait for response headers only, so long streams
// are never cut off by a whole-request timeout.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
	}

	return &http.Client{Transport: transport}
}
