package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"modelgate/internal/models"
	"modelgate/internal/provider"
	"modelgate/internal/stream"
)

// streamEvent covers the fields used from message_start, content_block_delta,
// message_delta and error events.
type streamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Usage usageBlock `json:"usage"`
	} `json:"message,omitempty"`
	Delta *struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"delta,omitempty"`
	Usage *usageBlock `json:"usage,omitempty"`
	Error *apiError   `json:"error,omitempty"`
}

// CompleteStream opens a streaming Messages API call.
func (p *Provider) CompleteStream(ctx context.Context, req models.CompletionRequest) (*stream.Stream, error) {
	model, err := profile.PrepareCompletion(req)
	if err != nil {
		return nil, err
	}

	payload, err := buildMessagePayload(req, model, true)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.post(ctx, payload, "text/event-stream")
	if err != nil {
		return nil, err
	}

	return stream.New(decodeStream(httpResp, req, model), httpResp.Body), nil
}

func decodeStream(httpResp *http.Response, req models.CompletionRequest, model string) func(func(models.StreamChunk, error) bool) {
	return func(yield func(models.StreamChunk, error) bool) {
		scanner := stream.NewScanner(httpResp.Body)
		tracker := provider.NewUsageTracker(req.Messages)
		var input, output int
		var reported bool

	events:
		for {
			ev, err := scanner.Next()
			if errors.Is(err, io.EOF) {
				break events
			}
			if err != nil {
				yield(models.StreamChunk{}, vendorError(err))
				return
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(ev.Data), &event); err != nil {
				yield(models.StreamChunk{}, vendorError(fmt.Errorf("decode stream event: %w", err)))
				return
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					input = event.Message.Usage.InputTokens
					reported = true
				}
			case "content_block_delta":
				if event.Delta == nil {
					continue
				}
				chunk := models.StreamChunk{
					Content:   event.Delta.Text,
					Reasoning: event.Delta.Thinking,
					Model:     model,
					Provider:  profile.Name,
				}
				if chunk.Content == "" && chunk.Reasoning == "" {
					continue
				}
				if req.ShowStats {
					chunk.Usage = tracker.Add(chunk.Content)
				}
				if !yield(chunk, nil) {
					return
				}
			case "message_delta":
				if event.Usage != nil {
					output = event.Usage.OutputTokens
				}
			case "error":
				msg := "stream error"
				if event.Error != nil {
					msg = event.Error.Message
				}
				yield(models.StreamChunk{}, vendorError(errors.New(msg)))
				return
			case "message_stop":
				break events
			}
		}

		if req.ShowStats && reported {
			yield(models.StreamChunk{
				Model:    model,
				Provider: profile.Name,
				Usage:    models.NewUsage(input, output),
			}, nil)
		}
	}
}
