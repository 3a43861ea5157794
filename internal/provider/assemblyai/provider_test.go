package assemblyai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"modelgate/internal/config"
	"modelgate/internal/models"
	"modelgate/internal/provider"
)

func audio() models.File {
	return models.NewBlob("meeting.m4a", "audio/mp4", []byte("ftypM4A"))
}

// fakeVendor serves upload, create and poll. The transcript completes after
// pending polls.
type fakeVendor struct {
	t       *testing.T
	pending int32
	polls   atomic.Int32
	created transcriptRequest
	final   string
}

func (f *fakeVendor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "aai-key" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"Authentication error, API token missing/invalid"}`)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v2/upload":
		data, _ := io.ReadAll(r.Body)
		if string(data) != "ftypM4A" {
			f.t.Errorf("unexpected upload body %q", data)
		}
		fmt.Fprint(w, `{"upload_url":"https://cdn.assemblyai.test/abc"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
		if err := json.NewDecoder(r.Body).Decode(&f.created); err != nil {
			f.t.Errorf("decode: %v", err)
		}
		fmt.Fprint(w, `{"id":"tr_1","status":"queued"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/tr_1":
		if f.polls.Add(1) <= f.pending {
			fmt.Fprint(w, `{"id":"tr_1","status":"processing"}`)
			return
		}
		fmt.Fprint(w, f.final)
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestProvider(t *testing.T, vendor *fakeVendor) *Provider {
	t.Helper()
	vendor.t = t
	srv := httptest.NewServer(vendor)
	t.Cleanup(srv.Close)

	p, err := New(config.ProviderConfig{APIKey: "aai-key", BaseURL: srv.URL, PollInterval: time.Millisecond}, srv.Client())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return p
}

const completed = `{"id":"tr_1","status":"completed","text":"Hello team","confidence":0.93,"language_code":"en_us","audio_duration":12.5}`

func TestTranscribeText(t *testing.T) {
	vendor := &fakeVendor{pending: 2, final: completed}
	p := newTestProvider(t, vendor)

	resp, err := p.Transcribe(context.Background(), models.TranscriptionRequest{AttachedFile: audio()})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if resp.Transcription != "Hello team" || resp.Model != "nano" || resp.Provider != "assemblyai" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if vendor.created.SpeechModel != "nano" || vendor.created.LanguageConfidenceThreshold != 0.7 {
		t.Fatalf("unexpected transcript request %+v", vendor.created)
	}
	if vendor.created.AudioURL != "https://cdn.assemblyai.test/abc" {
		t.Fatalf("upload url not forwarded: %+v", vendor.created)
	}
	if got := vendor.polls.Load(); got != 3 {
		t.Fatalf("expected 3 polls, got %d", got)
	}
}

func TestTranscribeJSON(t *testing.T) {
	vendor := &fakeVendor{final: completed}
	p := newTestProvider(t, vendor)
	threshold := 0.4

	resp, err := p.Transcribe(context.Background(), models.TranscriptionRequest{
		AttachedFile:   audio(),
		Model:          "best",
		ResponseFormat: models.FormatVerboseJSON,
		Temperature:    &threshold,
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	out, ok := resp.Transcription.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", resp.Transcription)
	}
	if out["text"] != "Hello team" || out["id"] != "tr_1" || out["language_code"] != "en_us" {
		t.Fatalf("unexpected object %+v", out)
	}
	if c, _ := out["confidence"].(*float64); c == nil || *c != 0.93 {
		t.Fatalf("unexpected confidence %v", out["confidence"])
	}
	if vendor.created.SpeechModel != "best" || vendor.created.LanguageConfidenceThreshold != 0.4 {
		t.Fatalf("unexpected transcript request %+v", vendor.created)
	}
}

func TestTranscribeFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("transcript error", func(t *testing.T) {
		p := newTestProvider(t, &fakeVendor{final: `{"id":"tr_1","status":"error","error":"File does not appear to contain audio"}`})
		_, err := p.Transcribe(ctx, models.TranscriptionRequest{AttachedFile: audio()})
		if !errors.Is(err, provider.ErrTranscriptionFailed) || err.Error() != "Audio transcription failed: File does not appear to contain audio" {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("bad key", func(t *testing.T) {
		p := newTestProvider(t, &fakeVendor{final: completed})
		p.apiKey = "wrong"
		_, err := p.Transcribe(ctx, models.TranscriptionRequest{AttachedFile: audio()})
		if !errors.Is(err, provider.ErrTranscriptionFailed) || !strings.Contains(err.Error(), "API token missing/invalid") {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("cancelled while polling", func(t *testing.T) {
		p := newTestProvider(t, &fakeVendor{pending: 1 << 30, final: completed})
		p.pollInterval = time.Hour
		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := p.Transcribe(cctx, models.TranscriptionRequest{AttachedFile: audio()})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline, got %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		p := newTestProvider(t, &fakeVendor{})
		if _, err := p.Transcribe(ctx, models.TranscriptionRequest{}); !errors.Is(err, provider.ErrMissingAudioFile) {
			t.Fatalf("expected missing audio, got %v", err)
		}
		if _, err := p.Transcribe(ctx, models.TranscriptionRequest{AttachedFile: audio(), Model: "whisper-1"}); !errors.Is(err, provider.ErrInvalidModel) {
			t.Fatalf("expected invalid model, got %v", err)
		}
		if _, err := p.Transcribe(ctx, models.TranscriptionRequest{AttachedFile: models.NewBlob("a.flac", "audio/flac", nil)}); !errors.Is(err, provider.ErrUnsupportedFileType) {
			t.Fatalf("expected unsupported file, got %v", err)
		}
	})
}

func TestCatalog(t *testing.T) {
	p := newTestProvider(t, &fakeVendor{})
	catalog := p.ListModels()
	if len(catalog.Text) != 0 || len(catalog.Audio) != 2 {
		t.Fatalf("unexpected catalog %+v", catalog)
	}
	catalog.Audio[0] = "mutated"
	if p.ListModels().Audio[0] != "nano" {
		t.Fatalf("catalog shared with caller")
	}
}
