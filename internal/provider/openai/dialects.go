package openai

import (
	"net/http"
	"slices"
	"strings"

	"modelgate/internal/config"
	"modelgate/internal/media"
	"modelgate/internal/models"
	"modelgate/internal/provider"
)

// dialect captures what differs between OpenAI-compatible vendors.
type dialect struct {
	profile  provider.Profile
	baseURL  string
	chatPath string
	// streamUsage asks the vendor for a final usage chunk via stream_options.
	streamUsage bool
	// thinkTags marks vendors that inline reasoning as <think>...</think>.
	thinkTags bool
	// citations strips [n] markers and maps vendor citation lists.
	citations bool
	// prepare applies vendor specific request fields.
	prepare func(p *chatPayload, req models.CompletionRequest)
}

var openAIDialect = dialect{
	profile: provider.Profile{
		Name:    "openai",
		Display: "OpenAI",
		Catalog: models.ModelCatalog{
			Text: []string{
				"o1",
				"o1-mini",
				"o3-mini",
				"chatgpt-4o-latest",
				"gpt-3.5-turbo-instruct",
				"gpt-3.5-turbo",
				"gpt-3.5-turbo-16k",
				"gpt-4-turbo",
				"gpt-4",
				"gpt-4o",
				"gpt-4o-mini",
				"gpt-4o-search-preview",
				"gpt-4o-mini-search-preview",
			},
			Audio: []string{"whisper-1"},
		},
		Defaults: map[models.Capability]string{
			models.CapabilityText:  "gpt-3.5-turbo",
			models.CapabilityAudio: "whisper-1",
		},
		Images:           media.StrictImages,
		ReasoningModels:  []string{"o1", "o3-mini"},
		WebSearchModels:  []string{"gpt-4o-search-preview", "gpt-4o-mini-search-preview"},
		SystemlessModels: []string{"o1-mini"},
	},
	baseURL:     "https://api.openai.com/v1",
	chatPath:    "/chat/completions",
	streamUsage: true,
	prepare:     prepareOpenAI,
}

func prepareOpenAI(p *chatPayload, req models.CompletionRequest) {
	switch {
	case isOSeries(p.Model):
		// o-series models reject max_tokens and any non-default temperature.
		p.MaxCompletionTokens = p.MaxTokens
		p.MaxTokens = nil
		p.Temperature = nil
		if req.Reasoning {
			p.ReasoningEffort = "medium"
		}
	case strings.HasSuffix(p.Model, "-search-preview"):
		p.Temperature = nil
		if req.WebSearch {
			p.WebSearchOptions = &webSearchOptions{}
		}
	}
}

func isOSeries(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3")
}

var groqDialect = dialect{
	profile: provider.Profile{
		Name:    "groq",
		Display: "Groq",
		Catalog: models.ModelCatalog{
			Text: []string{
				"llama-3.3-70b-versatile",
				"gemma2-9b-it",
				"llama-3.2-1b-preview",
				"mistral-saba-24b",
				"qwen-2.5-32b",
				"deepseek-r1-distill-qwen-32b",
				"llama-guard-3-8b",
				"llama-3.2-90b-vision-preview",
				"mixtral-8x7b-32768",
				"llama-3.1-8b-instant",
				"deepseek-r1-distill-llama-70b",
				"llama3-70b-8192",
				"llama-3.2-3b-preview",
				"llama3-8b-8192",
				"qwen-2.5-coder-32b",
				"llama-3.2-11b-vision-preview",
				"llama-3.3-70b-specdec",
				"qwen-qwq-32b",
			},
		},
		Defaults:        map[models.Capability]string{models.CapabilityText: "llama3-8b-8192"},
		Images:          media.StrictImages,
		ReasoningModels: []string{"deepseek-r1-distill-qwen-32b", "deepseek-r1-distill-llama-70b", "qwen-qwq-32b"},
	},
	baseURL:  "https://api.groq.com/openai/v1",
	chatPath: "/chat/completions",
	prepare: func(p *chatPayload, req models.CompletionRequest) {
		if req.Reasoning {
			p.ReasoningFormat = "parsed"
		}
	},
}

var grokDialect = dialect{
	profile: provider.Profile{
		Name:    "grok",
		Display: "Grok",
		Catalog: models.ModelCatalog{
			Text: []string{"grok-2", "grok-2-latest", "grok-2-vision", "grok-2-vision-latest"},
		},
		Defaults: map[models.Capability]string{models.CapabilityText: "grok-2"},
		Images:   media.StrictImages,
	},
	baseURL:     "https://api.x.ai/v1",
	chatPath:    "/chat/completions",
	streamUsage: true,
}

var deepSeekDialect = dialect{
	profile: provider.Profile{
		Name:    "deepseek",
		Display: "DeepSeek",
		Catalog: models.ModelCatalog{
			Text: []string{"deepseek-chat", "deepseek-reasoner"},
		},
		Defaults:        map[models.Capability]string{models.CapabilityText: "deepseek-chat"},
		Images:          media.StrictImages,
		NoImages:        true,
		ReasoningModels: []string{"deepseek-reasoner"},
	},
	baseURL:     "https://api.deepseek.com/v1",
	chatPath:    "/chat/completions",
	streamUsage: true,
	prepare: func(p *chatPayload, _ models.CompletionRequest) {
		if p.Model == "deepseek-reasoner" {
			p.Temperature = nil
		}
	},
}

var perplexityModels = []string{"sonar-deep-research", "sonar-reasoning-pro", "sonar-reasoning", "sonar-pro", "sonar"}

var perplexityDialect = dialect{
	profile: provider.Profile{
		Name:            "perplexity",
		Display:         "Perplexity",
		Catalog:         models.ModelCatalog{Text: perplexityModels},
		Defaults:        map[models.Capability]string{models.CapabilityText: "sonar"},
		Images:          media.StrictImages,
		NoImages:        true,
		ReasoningModels: []string{"sonar-deep-research", "sonar-reasoning-pro", "sonar-reasoning"},
		// Every Perplexity model answers from live search.
		WebSearchModels: perplexityModels,
	},
	baseURL:   "https://api.perplexity.ai",
	chatPath:  "/chat/completions",
	thinkTags: true,
	citations: true,
}

// ReasoningProvider is a compatible vendor with a reasoning mode.
type ReasoningProvider struct {
	*Provider
}

// SupportsReasoning reports whether model accepts the reasoning flag.
func (p *ReasoningProvider) SupportsReasoning(model string) bool {
	return p.dialect.profile.AllowsReasoning(model)
}

// ResearchProvider is a compatible vendor with reasoning and web search.
type ResearchProvider struct {
	*Provider
}

// SupportsReasoning reports whether model accepts the reasoning flag.
func (p *ResearchProvider) SupportsReasoning(model string) bool {
	return p.dialect.profile.AllowsReasoning(model)
}

// SupportsWebSearch reports whether model can ground answers in search.
func (p *ResearchProvider) SupportsWebSearch(model string) bool {
	return p.dialect.profile.AllowsWebSearch(model)
}

// NewOpenAI constructs the OpenAI adapter, including Whisper transcription.
func NewOpenAI(cfg config.ProviderConfig, client *http.Client) (*AudioProvider, error) {
	base, err := newProvider(openAIDialect, cfg, client)
	if err != nil {
		return nil, err
	}
	return &AudioProvider{ResearchProvider: &ResearchProvider{Provider: base}}, nil
}

// NewGroq constructs the Groq adapter.
func NewGroq(cfg config.ProviderConfig, client *http.Client) (*ReasoningProvider, error) {
	base, err := newProvider(groqDialect, cfg, client)
	if err != nil {
		return nil, err
	}
	return &ReasoningProvider{Provider: base}, nil
}

// NewGrok constructs the xAI Grok adapter. Grok has no reasoning mode here.
func NewGrok(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	return newProvider(grokDialect, cfg, client)
}

// NewDeepSeek constructs the DeepSeek adapter.
func NewDeepSeek(cfg config.ProviderConfig, client *http.Client) (*ReasoningProvider, error) {
	base, err := newProvider(deepSeekDialect, cfg, client)
	if err != nil {
		return nil, err
	}
	return &ReasoningProvider{Provider: base}, nil
}

// NewPerplexity constructs the Perplexity adapter.
func NewPerplexity(cfg config.ProviderConfig, client *http.Client) (*ResearchProvider, error) {
	base, err := newProvider(perplexityDialect, cfg, client)
	if err != nil {
		return nil, err
	}
	return &ResearchProvider{Provider: base}, nil
}

func reasoningModel(d dialect, model string) bool {
	return slices.Contains(d.profile.ReasoningModels, model)
}
