package router

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"modelgate/internal/models"
	"modelgate/internal/provider"
	"modelgate/internal/stream"
	"modelgate/internal/stream/streamtest"
)

type textOnly struct {
	calls int
}

func (p *textOnly) Name() string { return "texty" }
func (p *textOnly) ListModels() models.ModelCatalog {
	return models.ModelCatalog{Text: []string{"t-1"}}
}
func (p *textOnly) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	p.calls++
	if req.Stream {
		return nil, provider.Errorf(provider.ErrUseStreamingMethod, "stream")
	}
	return &models.CompletionResponse{Content: "ok", Model: "t-1", Provider: p.Name()}, nil
}

type fullService struct {
	textOnly
}

func (p *fullService) Name() string { return "full" }
func (p *fullService) ListModels() models.ModelCatalog {
	return models.ModelCatalog{Text: []string{"f-1"}, Audio: []string{"a-1"}}
}
func (p *fullService) CompleteStream(ctx context.Context, req models.CompletionRequest) (*stream.Stream, error) {
	return streamtest.Chunks(models.StreamChunk{Content: "he"}, models.StreamChunk{Content: "llo"}), nil
}
func (p *fullService) Transcribe(ctx context.Context, req models.TranscriptionRequest) (*models.TranscriptionResponse, error) {
	return &models.TranscriptionResponse{Transcription: "words", Model: "a-1", Provider: p.Name()}, nil
}
func (p *fullService) SupportsReasoning(model string) bool { return true }
func (p *fullService) SupportsWebSearch(model string) bool { return true }

func newRouter(t *testing.T) (*Router, *textOnly, *bytes.Buffer) {
	t.Helper()
	text := &textOnly{}
	registry, err := provider.NewRegistry(text, &fullService{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(registry, logger), text, &logs
}

func hello() []models.Message {
	return []models.Message{{Role: models.RoleUser, Content: "Hello"}}
}

func TestComplete(t *testing.T) {
	r, _, logs := newRouter(t)
	ctx := WithRequestID(context.Background(), "req-42")

	got, err := r.Complete(ctx, "texty", models.CompletionRequest{Messages: hello()})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Stream != nil || got.Response == nil || got.Response.Content != "ok" {
		t.Fatalf("unexpected completion %+v", got)
	}
	if !strings.Contains(logs.String(), "request_id=req-42") || !strings.Contains(logs.String(), "provider=texty") {
		t.Fatalf("request not logged: %s", logs.String())
	}
}

func TestCompleteStream(t *testing.T) {
	r, _, _ := newRouter(t)

	got, err := r.Complete(context.Background(), "full", models.CompletionRequest{Messages: hello(), Stream: true})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Response != nil || got.Stream == nil {
		t.Fatalf("expected a stream, got %+v", got)
	}
	resp, err := got.Stream.Collect()
	if err != nil || resp.Content != "hello" {
		t.Fatalf("unexpected stream result %+v %v", resp, err)
	}
}

func TestCompleteRejections(t *testing.T) {
	r, text, _ := newRouter(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		provider string
		req      models.CompletionRequest
		want     error
	}{
		{"unknown provider", "nope", models.CompletionRequest{Messages: hello()}, provider.ErrProviderNotFound},
		{"no messages", "texty", models.CompletionRequest{}, provider.ErrInvalidRequest},
		{"bad role", "texty", models.CompletionRequest{Messages: []models.Message{{Role: "tool", Content: "x"}}}, provider.ErrInvalidRequest},
		{"temperature", "texty", models.CompletionRequest{Messages: hello(), Temperature: ptr(1.5)}, provider.ErrInvalidRequest},
		{"streaming", "texty", models.CompletionRequest{Messages: hello(), Stream: true}, provider.ErrCapabilityNotSupported},
		{"reasoning", "texty", models.CompletionRequest{Messages: hello(), Reasoning: true}, provider.ErrCapabilityNotSupported},
		{"web search", "texty", models.CompletionRequest{Messages: hello(), WebSearch: true}, provider.ErrCapabilityNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Complete(ctx, tt.provider, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if got.Response != nil || got.Stream != nil {
				t.Fatalf("expected empty completion on error")
			}
		})
	}
	if text.calls != 0 {
		t.Fatalf("provider called %d times for rejected requests", text.calls)
	}
}

func TestTranscribe(t *testing.T) {
	r, _, logs := newRouter(t)
	ctx := context.Background()
	audio := models.NewBlob("a.mp3", "audio/mpeg", []byte("ID3"))

	resp, err := r.Transcribe(ctx, "full", models.TranscriptionRequest{AttachedFile: audio})
	if err != nil || resp.Text() != "words" {
		t.Fatalf("unexpected transcription %+v %v", resp, err)
	}
	if !strings.Contains(logs.String(), "chars=5") {
		t.Fatalf("transcript length not logged: %s", logs.String())
	}

	if _, err := r.Transcribe(ctx, "texty", models.TranscriptionRequest{AttachedFile: audio}); !errors.Is(err, provider.ErrCapabilityNotSupported) {
		t.Fatalf("expected capability error, got %v", err)
	}
	if _, err := r.Transcribe(ctx, "full", models.TranscriptionRequest{AttachedFile: audio, ResponseFormat: "vtt"}); !errors.Is(err, provider.ErrInvalidRequest) {
		t.Fatalf("expected invalid format, got %v", err)
	}
}

func TestListModels(t *testing.T) {
	r, _, _ := newRouter(t)

	if got := r.Providers(); len(got) != 2 || got[0] != "full" || got[1] != "texty" {
		t.Fatalf("unexpected providers %v", got)
	}
	catalog, err := r.ListModels("full")
	if err != nil || len(catalog.Audio) != 1 {
		t.Fatalf("unexpected catalog %+v %v", catalog, err)
	}
	if _, err := r.ListModels("nope"); err == nil || err.Error() != "Provider not found" {
		t.Fatalf("expected not found, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
