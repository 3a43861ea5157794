package gemini

import (
	"context"
	"iter"

	"google.golang.org/genai"

	"modelgate/internal/models"
	"modelgate/internal/provider"
	"modelgate/internal/stream"
)

// stopper adapts the stop func of a pulled iterator to io.Closer.
type stopper func()

func (s stopper) Close() error {
	s()
	return nil
}

// CompleteStream opens a streamGenerateContent call. The first response is
// pulled before returning so request-level failures surface here rather than
// mid-stream.
func (p *Provider) CompleteStream(ctx context.Context, req models.CompletionRequest) (*stream.Stream, error) {
	model, err := profile.PrepareCompletion(req)
	if err != nil {
		return nil, err
	}
	if req.Reasoning {
		return nil, provider.Errorf(provider.ErrCapabilityNotSupported, "Reasoning is not supported for streaming responses")
	}

	contents, cfg, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	next, stop := iter.Pull2(p.client.Models.GenerateContentStream(ctx, model, contents, cfg))
	first, err, ok := next()
	if ok && err != nil {
		stop()
		return nil, vendorError(err)
	}

	seq := func(yield func(models.StreamChunk, error) bool) {
		tracker := provider.NewUsageTracker(req.Messages)
		var (
			final       *genai.GenerateContentResponseUsageMetadata
			sentSources bool
		)

		for resp := first; ok; resp, err, ok = next() {
			if err != nil {
				yield(models.StreamChunk{}, vendorError(err))
				return
			}
			if resp == nil {
				continue
			}
			if resp.UsageMetadata != nil {
				final = resp.UsageMetadata
			}

			text, _, sources := splitResponse(resp)
			chunk := models.StreamChunk{Content: text, Model: model, Provider: profile.Name}
			if len(sources) > 0 && !sentSources {
				chunk.SearchResults = sources
				sentSources = true
			}
			if chunk.Content == "" && chunk.SearchResults == nil {
				continue
			}
			if req.ShowStats {
				chunk.Usage = tracker.Add(chunk.Content)
			}
			if !yield(chunk, nil) {
				return
			}
		}

		if req.ShowStats && final != nil {
			yield(models.StreamChunk{
				Model:    model,
				Provider: profile.Name,
				Usage: &models.Usage{
					PromptTokens:     int(final.PromptTokenCount),
					CompletionTokens: int(final.CandidatesTokenCount),
					TotalTokens:      int(final.TotalTokenCount),
				},
			}, nil)
		}
	}

	return stream.New(seq, stopper(stop)), nil
}
