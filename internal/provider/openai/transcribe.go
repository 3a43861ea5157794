package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"modelgate/internal/media"
	"modelgate/internal/models"
	"modelgate/internal/provider"
)

// AudioProvider adds Whisper transcription to the OpenAI adapter.
type AudioProvider struct {
	*ResearchProvider
}

// Transcribe posts the audio to /audio/transcriptions. JSON formats decode
// into a map, text and srt stay strings.
func (p *AudioProvider) Transcribe(ctx context.Context, req models.TranscriptionRequest) (*models.TranscriptionResponse, error) {
	model, format, err := p.dialect.profile.PrepareTranscription(req)
	if err != nil {
		return nil, err
	}

	body, contentType, err := transcriptionForm(req, model, format)
	if err != nil {
		return nil, provider.TranscriptionError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, provider.TranscriptionError(fmt.Errorf("construct request: %w", err))
	}
	httpReq.Header.Set("Content-Type", contentType)
	p.authorize(httpReq)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, provider.TranscriptionError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, provider.TranscriptionError(parseAPIError(httpResp))
	}

	resp := &models.TranscriptionResponse{Model: model, Provider: p.Name()}
	if format.Structured() {
		var decoded map[string]any
		if err := decodeJSON(httpResp.Body, &decoded); err != nil {
			return nil, provider.TranscriptionError(err)
		}
		resp.Transcription = decoded
		return resp, nil
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, provider.TranscriptionError(fmt.Errorf("read transcription: %w", err))
	}
	text := string(raw)
	if format == models.FormatText {
		text = strings.TrimSpace(text)
	}
	resp.Transcription = text
	return resp, nil
}

func transcriptionForm(req models.TranscriptionRequest, model string, format models.ResponseFormat) (io.Reader, string, error) {
	var temperature string
	if req.Temperature != nil {
		temperature = strconv.FormatFloat(*req.Temperature, 'f', -1, 64)
	}
	return media.MultipartBody("file", req.AttachedFile,
		media.FormField{Name: "model", Value: model},
		media.FormField{Name: "response_format", Value: string(format)},
		media.FormField{Name: "temperature", Value: temperature},
		media.FormField{Name: "prompt", Value: req.Prompt},
	)
}
