package openai

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

type streamEvent struct {
	Model         string          `json:"model"`
	Choices       []chatChoice    `json:"choices"`
	Usage         *usageBlock     `json:"usage,omitempty"`
	Citations     []string        `json:"citations,omitempty"`
	SearchResults []searchResult  `json:"search_results,omitempty"`
	Error         *apiErrorObject `json:"error,omitempty"`
	// Groq reports stream usage under x_groq on the last event.
	XGroq *struct {
		Usage *usageBlock `json:"usage,omitempty"`
	} `json:"x_groq,omitempty"`
}

func (e streamEvent) usage() *usageBlock {
	if e.Usage != nil {
		return e.Usage
	}
	if e.XGroq != nil {
		return e.XGroq.Usage
	}
	return nil
}

// CompleteStream opens a streaming completion. Validation failures and a
// rejected vendor request are returned before any chunk is produced.
func (p *Provider) CompleteStream(ctx context.Context, req models.CompletionRequest) (*stream.Stream, error) {
	model, err := p.dialect.profile.PrepareCompletion(req)
	if err != nil {
		return nil, err
	}

	payload, err := p.buildChatPayload(req, model, true)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.post(ctx, payload, "text/event-stream")
	if err != nil {
		return nil, err
	}

	return stream.New(p.decodeStream(httpResp, req, model), httpResp.Body), nil
}

func (p *Provider) decodeStream(httpResp *http.Response, req models.CompletionRequest, model string) func(func(models.StreamChunk, error) bool) {
	return func(yield func(models.StreamChunk, error) bool) {
		var (
			scanner     = stream.NewScanner(httpResp.Body)
			tracker     = provider.NewUsageTracker(req.Messages)
			splitter    thinkSplitter
			splitThink  = p.dialect.thinkTags && reasoningModel(p.dialect, model)
			vendorUsage *usageBlock
			sentResults bool
		)

		emit := func(content, reasoning string, results []models.SearchResult) bool {
			if content == "" && reasoning == "" && len(results) == 0 {
				return true
			}
			chunk := models.StreamChunk{
				Content:       content,
				Reasoning:     reasoning,
				Model:         model,
				Provider:      p.Name(),
				SearchResults: results,
			}
			if req.ShowStats {
				chunk.Usage = tracker.Add(content)
			}
			return yield(chunk, nil)
		}

		for {
			ev, err := scanner.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield(models.StreamChunk{}, p.vendorError(err))
				return
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(ev.Data), &event); err != nil {
				yield(models.StreamChunk{}, p.vendorError(fmt.Errorf("decode stream event: %w", err)))
				return
			}
			if event.Error != nil {
				yield(models.StreamChunk{}, p.vendorError(errors.New(event.Error.Message)))
				return
			}
			if u := event.usage(); u != nil {
				vendorUsage = u
			}

			var results []models.SearchResult
			if p.dialect.citations && !sentResults {
				if results = citationResults(event.SearchResults, event.Citations); len(results) > 0 {
					sentResults = true
				}
			}

			if len(event.Choices) == 0 {
				if !emit("", "", results) {
					return
				}
				continue
			}

			delta := event.Choices[0].Delta
			content, reasoning := delta.Content, delta.reasoning()
			if splitThink {
				c, r := splitter.feed(content)
				content, reasoning = c, reasoning+r
			}
			if sentResults {
				content = stripCitationMarkers(content)
			}
			if !emit(content, reasoning, results) {
				return
			}
		}

		if splitThink {
			c, r := splitter.flush()
			if !emit(c, r, nil) {
				return
			}
		}

		if req.ShowStats && vendorUsage != nil {
			yield(models.StreamChunk{
				Model:    model,
				Provider: p.Name(),
				Usage:    vendorUsage.toUnified(),
			}, nil)
		}
	}
}
