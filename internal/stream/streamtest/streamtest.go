// Package streamtest builds completion streams for tests.
package streamtest

import (
	"modelgate/internal/models"
	"modelgate/internal/stream"
)

// Chunks returns a stream that yields chunks in order and then ends.
func Chunks(chunks ...models.StreamChunk) *stream.Stream {
	return stream.New(func(yield func(models.StreamChunk, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}, nil)
}
