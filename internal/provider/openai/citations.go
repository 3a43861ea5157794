package openai

import (
	"regexp"
	"sort"
	"strings"

	"modelgate/internal/models"
)

type annotation struct {
	Type        string       `json:"type"`
	URLCitation *urlCitation `json:"url_citation,omitempty"`
}

type urlCitation struct {
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

type searchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// applyAnnotations maps url_citation annotations to search results and cuts
// the cited spans out of content. Indexes count code points.
func applyAnnotations(content string, annotations []annotation) (string, []models.SearchResult) {
	var (
		results []models.SearchResult
		spans   []urlCitation
	)
	for _, a := range annotations {
		if a.Type != "url_citation" || a.URLCitation == nil {
			continue
		}
		results = append(results, models.SearchResult{Title: a.URLCitation.Title, URL: a.URLCitation.URL})
		spans = append(spans, *a.URLCitation)
	}
	if len(spans) == 0 {
		return content, nil
	}

	runes := []rune(content)
	sort.Slice(spans, func(i, j int) bool { return spans[i].StartIndex > spans[j].StartIndex })

	limit := len(runes)
	for _, span := range spans {
		start, end := span.StartIndex, span.EndIndex
		if start < 0 || end > limit || start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
		limit = start
	}

	return strings.TrimSpace(collapseSpaces(string(runes))), results
}

var spaceRun = regexp.MustCompile(`[ \t]{2,}`)

func collapseSpaces(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.ReplaceAll(s, " .", ".")
}

var citationMarker = regexp.MustCompile(`\[\d+\]`)

func stripCitationMarkers(content string) string {
	return citationMarker.ReplaceAllString(content, "")
}

// citationResults prefers structured search results and falls back to the
// bare citation URL list.
func citationResults(structured []searchResult, citations []string) []models.SearchResult {
	if len(structured) > 0 {
		out := make([]models.SearchResult, 0, len(structured))
		for _, r := range structured {
			out = append(out, models.SearchResult{Title: r.Title, URL: r.URL})
		}
		return out
	}
	if len(citations) == 0 {
		return nil
	}
	out := make([]models.SearchResult, 0, len(citations))
	for _, url := range citations {
		out = append(out, models.SearchResult{Title: url, URL: url})
	}
	return out
}

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkSplitter separates <think> sections from answer text across
// arbitrarily split fragments.
type thinkSplitter struct {
	inThink bool
	pending string
}

func (s *thinkSplitter) feed(fragment string) (content, reasoning string) {
	var c, r strings.Builder
	emit := func(text string) {
		if s.inThink {
			r.WriteString(text)
		} else {
			c.WriteString(text)
		}
	}

	buf := s.pending + fragment
	s.pending = ""
	for buf != "" {
		tag := thinkOpen
		if s.inThink {
			tag = thinkClose
		}
		if i := strings.Index(buf, tag); i >= 0 {
			emit(buf[:i])
			buf = buf[i+len(tag):]
			s.inThink = !s.inThink
			continue
		}
		keep := partialTagSuffix(buf, tag)
		emit(buf[:len(buf)-keep])
		s.pending = buf[len(buf)-keep:]
		break
	}
	return c.String(), r.String()
}

// flush releases text held back while waiting for a possible tag.
func (s *thinkSplitter) flush() (content, reasoning string) {
	rest := s.pending
	s.pending = ""
	if s.inThink {
		return "", rest
	}
	return rest, ""
}

// partialTagSuffix returns the length of the longest suffix of s that is a
// proper prefix of tag.
func partialTagSuffix(s, tag string) int {
	longest := min(len(tag)-1, len(s))
	for n := longest; n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}
