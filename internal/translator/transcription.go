package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"modelgate/internal/models"
)

// TranscriptionRequest is the "request" field of POST /api/transcription.
type TranscriptionRequest struct {
	Provider       string
	Model          string
	ResponseFormat string
	Temperature    *float64
	Prompt         string
}

// UnmarshalJSON decodes the wire field names and requires a provider.
func (r *TranscriptionRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Provider       string   `json:"provider"`
		Model          string   `json:"model"`
		ResponseFormat string   `json:"response_format"`
		Temperature    *float64 `json:"temperature"`
		Prompt         string   `json:"prompt"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode transcription request: %w", err)
	}

	*r = TranscriptionRequest{
		Provider:       strings.TrimSpace(raw.Provider),
		Model:          strings.TrimSpace(raw.Model),
		ResponseFormat: strings.ToLower(strings.TrimSpace(raw.ResponseFormat)),
		Temperature:    raw.Temperature,
		Prompt:         raw.Prompt,
	}
	if r.Provider == "" {
		return errMissingProvider
	}
	return nil
}

// ToUnified converts the wire request around the uploaded audio.
func (r TranscriptionRequest) ToUnified(file models.File) models.TranscriptionRequest {
	return models.TranscriptionRequest{
		AttachedFile:   file,
		Model:          r.Model,
		ResponseFormat: models.ResponseFormat(r.ResponseFormat),
		Temperature:    r.Temperature,
		Prompt:         r.Prompt,
	}
}

// TranscriptionResponse is the body of a successful transcription.
type TranscriptionResponse struct {
	Transcription any    `json:"transcription"`
	Model         string `json:"model"`
	Provider      string `json:"provider"`
}

// FromUnifiedTranscription builds the response body.
func FromUnifiedTranscription(resp *models.TranscriptionResponse) TranscriptionResponse {
	return TranscriptionResponse{
		Transcription: resp.Transcription,
		Model:         resp.Model,
		Provider:      resp.Provider,
	}
}
