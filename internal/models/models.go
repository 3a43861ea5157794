package models

// Role identifies the author of a conversational message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Capability names a catalog partition.
type Capability string

const (
	CapabilityText  Capability = "text"
	CapabilityAudio Capability = "audio"
)

// Message represents a single conversational message in the unified schema.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is the canonical representation of a text completion.
// Nil Temperature and MaxTokens select the adapter defaults.
type CompletionRequest struct {
	Messages     []Message
	Model        string
	Temperature  *float64
	MaxTokens    *int
	Stream       bool
	ShowStats    bool
	AttachedFile File
	WebSearch    bool
	Reasoning    bool
}

// CompletionResponse captures a non-streaming provider response.
type CompletionResponse struct {
	Content       string
	Model         string
	Provider      string
	Usage         *Usage
	SearchResults []SearchResult
	Reasoning     string
}

// StreamChunk is one incremental unit of a streamed completion.
// Error is only set when a terminal failure is framed for a wire client.
type StreamChunk struct {
	Content       string
	Model         string
	Provider      string
	Usage         *Usage
	SearchResults []SearchResult
	Reasoning     string
	Error         string
}

// Usage records token accounting information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewUsage builds a Usage whose total is the sum of its parts.
func NewUsage(prompt, completion int) *Usage {
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// SearchResult is a normalized web search citation.
type SearchResult struct {
	Title string
	URL   string
}

// ResponseFormat selects the transcription output shape.
type ResponseFormat string

const (
	FormatText        ResponseFormat = "text"
	FormatJSON        ResponseFormat = "json"
	FormatSRT         ResponseFormat = "srt"
	FormatVerboseJSON ResponseFormat = "verbose_json"
)

// Structured reports whether the format yields an object rather than a string.
func (f ResponseFormat) Structured() bool {
	return f == FormatJSON || f == FormatVerboseJSON
}

// TranscriptionRequest asks a provider to turn audio into text.
type TranscriptionRequest struct {
	AttachedFile   File
	Model          string
	ResponseFormat ResponseFormat
	Temperature    *float64
	Prompt         string
}

// TranscriptionResponse carries either a string or a map[string]any holding
// at least a "text" key in Transcription.
type TranscriptionResponse struct {
	Transcription any
	Model         string
	Provider      string
}

// Text returns the transcribed text regardless of the response shape.
func (r TranscriptionResponse) Text() string {
	switch v := r.Transcription.(type) {
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
	}
	return ""
}

// ModelCatalog lists the model identifiers a provider accepts per capability.
type ModelCatalog struct {
	Text  []string
	Audio []string
}

// Models returns the catalog entries for the capability.
func (c ModelCatalog) Models(capability Capability) []string {
	switch capability {
	case CapabilityText:
		return c.Text
	case CapabilityAudio:
		return c.Audio
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate a provider's catalog.
func (c ModelCatalog) Clone() ModelCatalog {
	return ModelCatalog{
		Text:  cloneStrings(c.Text),
		Audio: cloneStrings(c.Audio),
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
