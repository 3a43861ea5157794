package provider

import (
	"context"

	"modelgate/internal/models"
	"modelgate/internal/stream"
)

// Provider is the base contract every adapter satisfies.
type Provider interface {
	Name() string
	ListModels() models.ModelCatalog
}

// Completer serves one-shot text completions.
type Completer interface {
	Provider
	Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error)
}

// Streamer serves incremental text completions. The returned stream owns the
// vendor connection until it is drained, abandoned or closed.
type Streamer interface {
	Provider
	CompleteStream(ctx context.Context, req models.CompletionRequest) (*stream.Stream, error)
}

// Transcriber converts audio attachments to text.
type Transcriber interface {
	Provider
	Transcribe(ctx context.Context, req models.TranscriptionRequest) (*models.TranscriptionResponse, error)
}

// WebSearcher marks providers that can ground answers in web search. The
// router only checks for the interface; SupportsWebSearch reports the per-model
// answer and the adapter enforces it while preparing the request.
type WebSearcher interface {
	Provider
	SupportsWebSearch(model string) bool
}

// Reasoner marks providers exposing a reasoning mode. As with WebSearcher,
// the per-model gate lives in the adapter.
type Reasoner interface {
	Provider
	SupportsReasoning(model string) bool
}

// Capabilities lists what a provider can do, for display purposes.
func Capabilities(p Provider) []string {
	var out []string
	if _, ok := p.(Completer); ok {
		out = append(out, "completion")
	}
	if _, ok := p.(Streamer); ok {
		out = append(out, "streaming")
	}
	if _, ok := p.(Transcriber); ok {
		out = append(out, "transcription")
	}
	if _, ok := p.(WebSearcher); ok {
		out = append(out, "web_search")
	}
	if _, ok := p.(Reasoner); ok {
		out = append(out, "reasoning")
	}
	return out
}
