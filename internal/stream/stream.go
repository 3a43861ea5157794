// Package stream holds the pull-based chunk sequence returned by streaming
// adapters and the SSE line reader they decode vendor bodies with.
package stream

import (
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"modelgate/internal/models"
)

// Stream is a lazily consumed sequence of completion chunks. The consumer
// pulls chunks with Iter; the underlying transport is released when the
// sequence is exhausted, when the consumer stops early, or on Close.
//
// A vendor failure after the stream started is delivered as a final
// (zero chunk, non-nil error) pair, after which iteration ends.
type Stream struct {
	seq    iter.Seq2[models.StreamChunk, error]
	closer io.Closer
	once   sync.Once
	used   bool
}

// New wraps seq. closer may be nil when there is nothing to release.
func New(seq iter.Seq2[models.StreamChunk, error], closer io.Closer) *Stream {
	return &Stream{seq: seq, closer: closer}
}

// Iter returns the chunk sequence. It may be ranged over once.
func (s *Stream) Iter() iter.Seq2[models.StreamChunk, error] {
	return func(yield func(models.StreamChunk, error) bool) {
		defer s.Close()
		if s.used {
			return
		}
		s.used = true
		for chunk, err := range s.seq {
			if !yield(chunk, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// Close releases the transport. It is safe to call more than once and after
// the sequence has been consumed.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		if s.closer == nil {
			return
		}
		err = s.closer.Close()
		if err != nil {
			slog.Debug("close stream body", "error", err)
		}
	})
	return err
}

// Collect drains the stream into a single response. Content and reasoning
// fragments are concatenated, the last usage and search results seen win.
func (s *Stream) Collect() (*models.CompletionResponse, error) {
	var (
		content   strings.Builder
		reasoning strings.Builder
		resp      models.CompletionResponse
	)

	for chunk, err := range s.Iter() {
		if err != nil {
			return nil, err
		}
		content.WriteString(chunk.Content)
		reasoning.WriteString(chunk.Reasoning)
		if chunk.Model != "" {
			resp.Model = chunk.Model
		}
		if chunk.Provider != "" {
			resp.Provider = chunk.Provider
		}
		if chunk.Usage != nil {
			resp.Usage = chunk.Usage
		}
		if len(chunk.SearchResults) > 0 {
			resp.SearchResults = chunk.SearchResults
		}
	}

	resp.Content = content.String()
	resp.Reasoning = reasoning.String()
	return &resp, nil
}
