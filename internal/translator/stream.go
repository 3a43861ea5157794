package translator

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"modelgate/internal/stream"
)

// StreamError is the final frame written when a stream fails after the
// response has started.
type StreamError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// WriteSSEData writes payload as a single "data:" frame.
func WriteSSEData(w io.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write SSE data: %w", err)
	}
	return nil
}

// WriteStream drains s into w, flushing after every frame. A vendor failure
// is written as a StreamError frame and ends the stream; only write failures
// are returned. The stream is closed in every case.
func WriteStream(w io.Writer, flush func(), s *stream.Stream, showStats bool) error {
	defer s.Close()

	for chunk, err := range s.Iter() {
		if err != nil {
			if werr := WriteSSEData(w, StreamError{Error: err.Error(), Status: http.StatusInternalServerError}); werr != nil {
				return werr
			}
			flush()
			return nil
		}
		if err := WriteSSEData(w, FromChunk(chunk, showStats)); err != nil {
			return err
		}
		flush()
	}
	return nil
}
