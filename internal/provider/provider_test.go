package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"modelgate/internal/media"
	"modelgate/internal/models"
)

func testProfile() Profile {
	return Profile{
		Name:    "acme",
		Display: "Acme",
		Catalog: models.ModelCatalog{
			Text:  []string{"small", "think", "search", "nosys"},
			Audio: []string{"ears"},
		},
		Defaults: map[models.Capability]string{
			models.CapabilityText:  "small",
			models.CapabilityAudio: "ears",
		},
		Images:           media.StrictImages,
		ReasoningModels:  []string{"think"},
		WebSearchModels:  []string{"search"},
		SystemlessModels: []string{"nosys"},
	}
}

func hello() []models.Message {
	return []models.Message{{Role: models.RoleUser, Content: "Hello"}}
}

func TestResolveModel(t *testing.T) {
	p := testProfile()

	model, err := p.ResolveModel(models.CapabilityText, "")
	if err != nil || model != "small" {
		t.Fatalf("expected default small, got %q %v", model, err)
	}
	if _, err := p.ResolveModel(models.CapabilityText, "ears"); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("audio model accepted as text: %v", err)
	}
	if _, err := p.ResolveModel(models.CapabilityAudio, "small"); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("text model accepted as audio: %v", err)
	}
}

func TestPrepareCompletionGates(t *testing.T) {
	gif := models.NewBlob("cat.gif", "image/gif", []byte("GIF89a"))
	png := models.NewBlob("cat.png", "image/png", []byte("png"))

	tests := []struct {
		name    string
		profile func(Profile) Profile
		req     models.CompletionRequest
		want    error
		model   string
	}{
		{name: "default model", req: models.CompletionRequest{Messages: hello()}, model: "small"},
		{name: "unknown model", req: models.CompletionRequest{Messages: hello(), Model: "huge"}, want: ErrInvalidModel},
		{name: "reasoning model", req: models.CompletionRequest{Messages: hello(), Model: "think", Reasoning: true}, model: "think"},
		{name: "reasoning wrong model", req: models.CompletionRequest{Messages: hello(), Reasoning: true}, want: ErrUnsupportedReasoningModel},
		{
			name:    "reasoning unsupported",
			profile: func(p Profile) Profile { p.ReasoningModels = nil; return p },
			req:     models.CompletionRequest{Messages: hello(), Model: "think", Reasoning: true},
			want:    ErrCapabilityNotSupported,
		},
		{name: "web search model", req: models.CompletionRequest{Messages: hello(), Model: "search", WebSearch: true}, model: "search"},
		{name: "web search wrong model", req: models.CompletionRequest{Messages: hello(), WebSearch: true}, want: ErrCapabilityNotSupported},
		{
			name: "system role rejected",
			req: models.CompletionRequest{Model: "nosys", Messages: []models.Message{
				{Role: models.RoleSystem, Content: "be brief"},
				{Role: models.RoleUser, Content: "Hello"},
			}},
			want: ErrUnsupportedRole,
		},
		{name: "gif rejected", req: models.CompletionRequest{Messages: hello(), AttachedFile: gif}, want: ErrUnsupportedFileType},
		{name: "png accepted", req: models.CompletionRequest{Messages: hello(), AttachedFile: png}, model: "small"},
		{
			name:    "images disabled",
			profile: func(p Profile) Profile { p.NoImages = true; return p },
			req:     models.CompletionRequest{Messages: hello(), AttachedFile: png},
			want:    ErrCapabilityNotSupported,
		},
		{
			name:    "images disabled still validates type",
			profile: func(p Profile) Profile { p.NoImages = true; return p },
			req:     models.CompletionRequest{Messages: hello(), AttachedFile: gif},
			want:    ErrUnsupportedFileType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile()
			if tt.profile != nil {
				p = tt.profile(p)
			}
			model, err := p.PrepareCompletion(tt.req)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if model != tt.model {
				t.Fatalf("expected model %q, got %q", tt.model, model)
			}
		})
	}
}

func TestPrepareTranscription(t *testing.T) {
	p := testProfile()

	_, _, err := p.PrepareTranscription(models.TranscriptionRequest{})
	if !errors.Is(err, ErrMissingAudioFile) || !strings.Contains(err.Error(), "Audio file is required") {
		t.Fatalf("expected missing audio error, got %v", err)
	}

	txt := models.NewBlob("test.txt", "text/plain", []byte("hi"))
	_, _, err = p.PrepareTranscription(models.TranscriptionRequest{AttachedFile: txt})
	if !errors.Is(err, ErrUnsupportedFileType) || !strings.Contains(err.Error(), "Invalid audio format") {
		t.Fatalf("expected invalid audio format, got %v", err)
	}

	wav := models.NewBlob("a.wav", "audio/wav", []byte("RIFF"))
	model, format, err := p.PrepareTranscription(models.TranscriptionRequest{AttachedFile: wav})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "ears" || format != models.FormatText {
		t.Fatalf("unexpected defaults %q %q", model, format)
	}
}

func TestDefaultsHonorZero(t *testing.T) {
	zero := 0.0
	req := models.CompletionRequest{Temperature: &zero}
	if Temperature(req) != 0 {
		t.Fatalf("explicit zero temperature replaced")
	}
	if Temperature(models.CompletionRequest{}) != DefaultTemperature {
		t.Fatalf("default temperature not applied")
	}
	if MaxTokens(models.CompletionRequest{}) != DefaultMaxTokens {
		t.Fatalf("default max tokens not applied")
	}
	if !errors.Is(RejectStream(models.CompletionRequest{Stream: true}), ErrUseStreamingMethod) {
		t.Fatalf("stream flag not rejected")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		texts []string
		want  int
	}{
		{nil, 0},
		{[]string{""}, 0},
		{[]string{"Hello"}, 2},
		{[]string{"abcd"}, 1},
		{[]string{"abcd", "e"}, 2},
		{[]string{"héllo"}, 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.texts...); got != tt.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", tt.texts, got, tt.want)
		}
	}

	tracker := NewUsageTracker(hello())
	tracker.Add("abcd")
	usage := tracker.Add("efgh")
	if usage.PromptTokens != 2 || usage.CompletionTokens != 2 || usage.TotalTokens != 4 {
		t.Fatalf("unexpected running usage %+v", usage)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("429 rate limited")
	err := VendorError("Acme", cause)
	if err.Error() != "Acme API error: 429 rate limited" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrVendorCallFailed) || !errors.Is(err, cause) {
		t.Fatalf("vendor error does not unwrap")
	}

	terr := TranscriptionError(err)
	if !errors.Is(terr, ErrTranscriptionFailed) || !errors.Is(terr, ErrVendorCallFailed) {
		t.Fatalf("transcription error does not unwrap")
	}
	if !strings.HasPrefix(terr.Error(), "Audio transcription failed: ") {
		t.Fatalf("unexpected message %q", terr.Error())
	}

	if !errors.Is(ErrInvalidRequest, models.ErrInvalidRequest) {
		t.Fatalf("invalid request kind not shared")
	}
}

type fakeProvider struct {
	name    string
	catalog models.ModelCatalog
}

func (f fakeProvider) Name() string                    { return f.name }
func (f fakeProvider) ListModels() models.ModelCatalog { return f.catalog }

type fakeCompleter struct{ fakeProvider }

func (fakeCompleter) Complete(context.Context, models.CompletionRequest) (*models.CompletionResponse, error) {
	return &models.CompletionResponse{}, nil
}

func (fakeCompleter) SupportsReasoning(string) bool { return true }

func TestRegistry(t *testing.T) {
	text := models.ModelCatalog{Text: []string{"m"}}
	reg, err := NewRegistry(
		fakeProvider{name: "zeta", catalog: text},
		fakeCompleter{fakeProvider{name: "alpha", catalog: text}},
	)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if got := reg.Names(); len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Fatalf("unexpected names %v", got)
	}
	if reg.Len() != 2 {
		t.Fatalf("unexpected len %d", reg.Len())
	}

	p, err := reg.Lookup("alpha")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if caps := Capabilities(p); strings.Join(caps, ",") != "completion,reasoning" {
		t.Fatalf("unexpected capabilities %v", caps)
	}

	_, err = reg.Lookup("missing")
	if !errors.Is(err, ErrProviderNotFound) || err.Error() != "Provider not found" {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegistryRejects(t *testing.T) {
	text := models.ModelCatalog{Text: []string{"m"}}
	if _, err := NewRegistry(fakeProvider{name: "a", catalog: text}, fakeProvider{name: "a", catalog: text}); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if _, err := NewRegistry(fakeProvider{name: "empty"}); err == nil {
		t.Fatal("expected empty catalog error")
	}
	if _, err := NewRegistry(fakeProvider{catalog: text}); err == nil {
		t.Fatal("expected empty name error")
	}
}
