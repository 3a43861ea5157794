package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"modelgate/internal/models"
	"modelgate/internal/stream"
)

var (
	dim    = color.New(color.FgHiBlack)
	accent = color.New(color.FgCyan, color.Bold)
)

// RenderStream writes content fragments to w as they arrive, prepending
// prefix to the first one. Reasoning fragments go to meta, dimmed. It
// returns the concatenated content and the last usage seen.
func RenderStream(w, meta io.Writer, s *stream.Stream, prefix string) (string, *models.Usage, error) {
	var (
		full    strings.Builder
		usage   *models.Usage
		sources []models.SearchResult
	)
	first := true

	for chunk, err := range s.Iter() {
		if err != nil {
			if full.Len() > 0 {
				fmt.Fprintln(w)
			}
			return full.String(), usage, err
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if len(chunk.SearchResults) > 0 {
			sources = chunk.SearchResults
		}
		if chunk.Reasoning != "" {
			dim.Fprint(meta, chunk.Reasoning)
		}
		if chunk.Content == "" {
			continue
		}

		if first {
			fmt.Fprint(w, prefix)
			first = false
		}
		fmt.Fprint(w, chunk.Content)
		full.WriteString(chunk.Content)
	}

	if full.Len() > 0 && !strings.HasSuffix(full.String(), "\n") {
		fmt.Fprintln(w)
	}
	RenderSources(meta, sources)

	return strings.TrimSpace(full.String()), usage, nil
}

// RenderResponse prints a complete response in the same layout as a stream.
func RenderResponse(w, meta io.Writer, resp *models.CompletionResponse, prefix string) {
	if resp.Reasoning != "" {
		dim.Fprintln(meta, strings.TrimSpace(resp.Reasoning))
	}
	fmt.Fprintln(w, prefix+strings.TrimSpace(resp.Content))
	RenderSources(meta, resp.SearchResults)
}

// RenderSources lists search citations, numbered from 1.
func RenderSources(w io.Writer, results []models.SearchResult) {
	if len(results) == 0 {
		return
	}
	accent.Fprintln(w, "\n  Sources")
	for i, r := range results {
		title := r.Title
		if title == "" || title == r.URL {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, r.URL)
			continue
		}
		fmt.Fprintf(w, "  [%d] %s ", i+1, title)
		dim.Fprintln(w, r.URL)
	}
}

// RenderUsage prints a one-line token summary.
func RenderUsage(w io.Writer, provider, model string, usage *models.Usage) {
	if usage == nil {
		return
	}
	dim.Fprintf(w, "  %s/%s  prompt %d · completion %d · total %d tokens\n",
		provider, model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

// Heading prints a bold cyan title line.
func Heading(w io.Writer, title string) {
	accent.Fprintln(w, title)
}
