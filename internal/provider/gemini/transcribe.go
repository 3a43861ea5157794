package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"google.golang.org/genai"

	"modelgate/internal/media"
	"modelgate/internal/models"
	"modelgate/internal/provider"
)

const (
	transcribePrompt = "Transcribe the following audio:"
	jsonInstruction  = `Respond with a JSON object of the form {"text": "<transcription>"}.`
)

// Transcribe sends the audio inline with a transcription prompt. Structured
// formats ask the model for JSON, which is repaired before decoding.
func (p *Provider) Transcribe(ctx context.Context, req models.TranscriptionRequest) (*models.TranscriptionResponse, error) {
	model, format, err := profile.PrepareTranscription(req)
	if err != nil {
		return nil, err
	}

	data, err := req.AttachedFile.ReadAll()
	if err != nil {
		return nil, provider.TranscriptionError(fmt.Errorf("read audio %q: %w", req.AttachedFile.Name(), err))
	}

	prompt := transcribePrompt
	if req.Prompt != "" {
		prompt += "\n" + req.Prompt
	}
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if format.Structured() {
		prompt += "\n" + jsonInstruction
		cfg.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{{
		Role: roleUser,
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{Data: data, MIMEType: media.MIMEType(req.AttachedFile)}},
		},
	}}

	result, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, provider.TranscriptionError(err)
	}
	text, _, _ := splitResponse(result)

	resp := &models.TranscriptionResponse{Model: model, Provider: profile.Name}
	if !format.Structured() {
		resp.Transcription = strings.TrimSpace(text)
		return resp, nil
	}

	decoded, err := parseTranscript(text)
	if err != nil {
		return nil, provider.TranscriptionError(err)
	}
	resp.Transcription = decoded
	return resp, nil
}

// parseTranscript decodes model-produced JSON, repairing it when needed. A
// bare string answer is wrapped so the result always has a "text" key.
func parseTranscript(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)

	var decoded any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return nil, fmt.Errorf("decode transcription json: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &decoded); err != nil {
			return nil, fmt.Errorf("decode repaired transcription json: %w", err)
		}
	}

	switch v := decoded.(type) {
	case map[string]any:
		if _, ok := v["text"]; !ok {
			v["text"] = content
		}
		return v, nil
	case string:
		return map[string]any{"text": v}, nil
	default:
		return map[string]any{"text": content}, nil
	}
}
