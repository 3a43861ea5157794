package stream

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineSize bounds one SSE line. bufio's 64 KiB default is too small for
// long completions delivered in a single event.
const maxLineSize = 1 << 20

// Event is one decoded server-sent event.
type Event struct {
	Name string
	Data string
}

// Scanner reads server-sent events from a vendor body.
type Scanner struct {
	scanner *bufio.Scanner
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{scanner: sc}
}

// Next returns the next event carrying data. Comment lines and events without
// data are skipped; consecutive data lines are joined with a newline. It
// returns io.EOF at the end of input or on the [DONE] sentinel.
func (s *Scanner) Next() (Event, error) {
	var (
		name string
		data []string
	)

	for s.scanner.Scan() {
		line := s.scanner.Text()

		switch {
		case line == "":
			if len(data) > 0 {
				return Event{Name: name, Data: strings.Join(data, "\n")}, nil
			}
			name = ""
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return Event{}, io.EOF
			}
			data = append(data, payload)
		}
	}

	if err := s.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("read event stream: %w", err)
	}
	if len(data) > 0 {
		return Event{Name: name, Data: strings.Join(data, "\n")}, nil
	}
	return Event{}, io.EOF
}
