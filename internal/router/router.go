package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"modelgate/internal/models"
	"modelgate/internal/provider"
	"modelgate/internal/stream"
)

type requestIDKey struct{}

// WithRequestID attaches a request id that the router includes in its logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached to ctx, or "" when there is none.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Completion holds exactly one of a full response or a live stream.
type Completion struct {
	Response *models.CompletionResponse
	Stream   *stream.Stream
}

// Router dispatches unified requests to the provider named by the caller.
type Router struct {
	registry *provider.Registry
	logger   *slog.Logger
}

// New constructs a router backed by the provided registry. A nil logger
// uses slog.Default.
func New(registry *provider.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry: registry,
		logger:   logger,
	}
}

// Providers lists the registered provider names in sorted order.
func (r *Router) Providers() []string {
	return r.registry.Names()
}

// Lookup returns the named provider for capability inspection.
func (r *Router) Lookup(name string) (provider.Provider, error) {
	return r.registry.Lookup(name)
}

// ListModels returns the named provider's catalog.
func (r *Router) ListModels(name string) (models.ModelCatalog, error) {
	p, err := r.registry.Lookup(name)
	if err != nil {
		return models.ModelCatalog{}, err
	}
	return p.ListModels(), nil
}

// Complete validates the request and routes it to the named provider. When
// req.Stream is set the result carries a stream, otherwise a full response.
func (r *Router) Complete(ctx context.Context, name string, req models.CompletionRequest) (Completion, error) {
	log := r.requestLogger(ctx, "complete", name, req.Model)
	start := time.Now()

	completion, err := r.complete(ctx, name, req)
	if err != nil {
		log.Warn("completion failed", "error", err, "latency", time.Since(start))
		return Completion{}, err
	}
	log.Info("completion dispatched", "stream", req.Stream, "latency", time.Since(start))
	return completion, nil
}

func (r *Router) complete(ctx context.Context, name string, req models.CompletionRequest) (Completion, error) {
	p, err := r.registry.Lookup(name)
	if err != nil {
		return Completion{}, err
	}
	if err := req.Validate(); err != nil {
		return Completion{}, err
	}

	if req.Reasoning {
		if _, ok := p.(provider.Reasoner); !ok {
			return Completion{}, provider.Errorf(provider.ErrCapabilityNotSupported, "Reasoning is not supported for this provider")
		}
	}
	if req.WebSearch {
		if _, ok := p.(provider.WebSearcher); !ok {
			return Completion{}, provider.Errorf(provider.ErrCapabilityNotSupported, "Web search is not supported for this provider")
		}
	}

	if req.Stream {
		s, ok := p.(provider.Streamer)
		if !ok {
			return Completion{}, provider.Errorf(provider.ErrCapabilityNotSupported, "Provider %s does not support streaming", name)
		}
		st, err := s.CompleteStream(ctx, req)
		if err != nil {
			return Completion{}, err
		}
		return Completion{Stream: st}, nil
	}

	c, ok := p.(provider.Completer)
	if !ok {
		return Completion{}, provider.Errorf(provider.ErrCapabilityNotSupported, "Provider %s does not support text completion", name)
	}
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return Completion{}, err
	}
	return Completion{Response: resp}, nil
}

// Transcribe routes an audio transcription to the named provider.
func (r *Router) Transcribe(ctx context.Context, name string, req models.TranscriptionRequest) (*models.TranscriptionResponse, error) {
	log := r.requestLogger(ctx, "transcribe", name, req.Model)
	start := time.Now()

	resp, err := r.transcribe(ctx, name, req)
	if err != nil {
		log.Warn("transcription failed", "error", err, "latency", time.Since(start))
		return nil, err
	}
	log.Info("transcription completed", "model", resp.Model, "chars", len(resp.Text()), "latency", time.Since(start))
	return resp, nil
}

func (r *Router) transcribe(ctx context.Context, name string, req models.TranscriptionRequest) (*models.TranscriptionResponse, error) {
	p, err := r.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, ok := p.(provider.Transcriber)
	if !ok {
		return nil, provider.Errorf(provider.ErrCapabilityNotSupported, "Provider %s does not support audio transcription", name)
	}
	return t.Transcribe(ctx, req)
}

func (r *Router) requestLogger(ctx context.Context, op, name, model string) *slog.Logger {
	id := RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	return r.logger.With("request_id", id, "op", op, "provider", name, "requested_model", model)
}
