package translator

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"modelgate/internal/models"
	"modelgate/internal/stream"
	"modelgate/internal/stream/streamtest"
)

func TestCompletionRequestDecode(t *testing.T) {
	body := `{"provider":" openai ","model":"gpt-4o","maxTokens":50,"temperature":0.2,"show_stats":true,"stream":true,
		"web_search":true,"reasoning":false,
		"messages":[{"role":"System","content":"be brief"},{"role":"user","content":[{"type":"text","text":"Hel"},{"type":"text","text":"lo"}]}]}`

	var req CompletionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Provider != "openai" || *req.MaxTokens != 50 || !req.ShowStats || !req.Stream || !req.WebSearch {
		t.Fatalf("unexpected request %+v", req)
	}

	file := models.NewBlob("cat.png", "image/png", nil)
	unified := req.ToUnified(file)
	if unified.Messages[0].Role != models.RoleSystem || unified.Messages[1].Content != "Hello" {
		t.Fatalf("unexpected messages %+v", unified.Messages)
	}
	if unified.AttachedFile != file || unified.Model != "gpt-4o" || *unified.Temperature != 0.2 {
		t.Fatalf("unexpected unified request %+v", unified)
	}
}

func TestCompletionRequestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"missing provider", `{"messages":[]}`, errMissingProvider},
		{"image segment", `{"provider":"x","messages":[{"role":"user","content":[{"type":"image_url"}]}]}`, errInvalidContent},
		{"missing content", `{"provider":"x","messages":[{"role":"user"}]}`, errInvalidContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CompletionRequest
			if err := json.Unmarshal([]byte(tt.body), &req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFromUnified(t *testing.T) {
	resp := &models.CompletionResponse{
		Content:       "Hi",
		Model:         "gpt-4o",
		Provider:      "openai",
		Usage:         models.NewUsage(3, 1),
		SearchResults: []models.SearchResult{{Title: "Go", URL: "https://go.dev"}},
	}

	data, _ := json.Marshal(FromUnified(resp, false))
	if string(data) != `{"content":"Hi","search_results":[{"title":"Go","url":"https://go.dev"}]}` {
		t.Fatalf("unexpected body without stats: %s", data)
	}

	data, _ = json.Marshal(FromUnified(resp, true))
	want := `{"content":"Hi","model":"gpt-4o","provider":"openai","usage":{"promptTokens":3,"completionTokens":1,"totalTokens":4},"search_results":[{"title":"Go","url":"https://go.dev"}]}`
	if string(data) != want {
		t.Fatalf("unexpected body with stats: %s", data)
	}
}

func TestWriteStream(t *testing.T) {
	s := streamtest.Chunks(
		models.StreamChunk{Content: "Hel", Model: "m"},
		models.StreamChunk{Content: "lo", Model: "m"},
	)
	var buf bytes.Buffer
	flushes := 0

	if err := WriteStream(&buf, func() { flushes++ }, s, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "data: {\"content\":\"Hel\"}\n\ndata: {\"content\":\"lo\"}\n\n" || flushes != 2 {
		t.Fatalf("unexpected frames %q (%d flushes)", buf.String(), flushes)
	}
}

func TestWriteStreamError(t *testing.T) {
	s := stream.New(func(yield func(models.StreamChunk, error) bool) {
		if !yield(models.StreamChunk{Content: "par"}, nil) {
			return
		}
		yield(models.StreamChunk{}, errors.New("Groq API error: connection reset"))
	}, nil)

	var buf bytes.Buffer
	if err := WriteStream(&buf, func() {}, s, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	frames := strings.Split(strings.TrimSpace(buf.String()), "\n\n")
	if len(frames) != 2 || frames[1] != `data: {"error":"Groq API error: connection reset","status":500}` {
		t.Fatalf("unexpected frames %q", frames)
	}
}

func TestTranscriptionRequest(t *testing.T) {
	var req TranscriptionRequest
	if err := json.Unmarshal([]byte(`{"provider":"openai","response_format":"JSON","prompt":"names"}`), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	unified := req.ToUnified(nil)
	if unified.ResponseFormat != models.FormatJSON || unified.Prompt != "names" {
		t.Fatalf("unexpected request %+v", unified)
	}
	if err := json.Unmarshal([]byte(`{"model":"whisper-1"}`), &req); !errors.Is(err, errMissingProvider) {
		t.Fatalf("expected missing provider, got %v", err)
	}
}
