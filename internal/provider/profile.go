package provider

import (
	"slices"

	"modelgate/internal/media"
	"modelgate/internal/models"
)

const (
	// DefaultTemperature applies when a request leaves temperature unset.
	DefaultTemperature = 0.7
	// DefaultMaxTokens applies when a request leaves max tokens unset.
	DefaultMaxTokens = 1000
)

// Profile is the declared configuration of one adapter: which models it
// accepts, its defaults and which features each model supports.
type Profile struct {
	Name     string
	Display  string
	Catalog  models.ModelCatalog
	Defaults map[models.Capability]string
	Images   media.ImagePolicy
	// NoImages marks providers that reject attachments on completions even
	// after the file passes validation.
	NoImages bool
	// ReasoningModels is empty for providers without a reasoning mode.
	ReasoningModels []string
	// WebSearchModels is empty for providers without web search.
	WebSearchModels []string
	// SystemlessModels reject messages with the system role.
	SystemlessModels []string
}

// ListModels returns a copy of the catalog.
func (p Profile) ListModels() models.ModelCatalog {
	return p.Catalog.Clone()
}

// DefaultModel returns the model used when a request omits one.
func (p Profile) DefaultModel(capability models.Capability) string {
	return p.Defaults[capability]
}

// ValidateModel fails unless the model is listed under the capability.
func (p Profile) ValidateModel(capability models.Capability, model string) error {
	if slices.Contains(p.Catalog.Models(capability), model) {
		return nil
	}
	return Errorf(ErrInvalidModel, "Invalid model %q used. Use /api/providers/%s/models to know which models are supported", model, p.Name)
}

// ResolveModel applies the default and validates the result.
func (p Profile) ResolveModel(capability models.Capability, requested string) (string, error) {
	model := requested
	if model == "" {
		model = p.DefaultModel(capability)
	}
	if err := p.ValidateModel(capability, model); err != nil {
		return "", err
	}
	return model, nil
}

// AllowsReasoning reports whether the model supports reasoning mode.
func (p Profile) AllowsReasoning(model string) bool {
	return slices.Contains(p.ReasoningModels, model)
}

// AllowsWebSearch reports whether the model can run web searches.
func (p Profile) AllowsWebSearch(model string) bool {
	return slices.Contains(p.WebSearchModels, model)
}

// PrepareCompletion runs the validation shared by every completion entry
// point: model resolution, feature gates and role checks. It never touches
// the network.
func (p Profile) PrepareCompletion(req models.CompletionRequest) (string, error) {
	model, err := p.ResolveModel(models.CapabilityText, req.Model)
	if err != nil {
		return "", err
	}

	if req.Reasoning {
		if len(p.ReasoningModels) == 0 {
			return "", Errorf(ErrCapabilityNotSupported, "Reasoning is not supported for this provider")
		}
		if !p.AllowsReasoning(model) {
			return "", Errorf(ErrUnsupportedReasoningModel, "Reasoning is not supported for this model")
		}
	}

	if req.WebSearch {
		if len(p.WebSearchModels) == 0 {
			return "", Errorf(ErrCapabilityNotSupported, "Web search is not supported for this provider")
		}
		if !p.AllowsWebSearch(model) {
			return "", Errorf(ErrCapabilityNotSupported, "Web search is not supported for model %s", model)
		}
	}

	if slices.Contains(p.SystemlessModels, model) && models.HasRole(req.Messages, models.RoleSystem) {
		return "", Errorf(ErrUnsupportedRole, "Model %s does not support the system role", model)
	}

	if req.AttachedFile != nil {
		if err := media.ValidateImage(req.AttachedFile, p.Images); err != nil {
			return "", err
		}
		if p.NoImages {
			return "", Errorf(ErrCapabilityNotSupported, "%s does not support image inputs for now", p.Display)
		}
	}

	return model, nil
}

// PrepareTranscription resolves the audio model and validates the attachment.
func (p Profile) PrepareTranscription(req models.TranscriptionRequest) (string, models.ResponseFormat, error) {
	if req.AttachedFile == nil {
		return "", "", Errorf(ErrMissingAudioFile, "Audio file is required")
	}
	model, err := p.ResolveModel(models.CapabilityAudio, req.Model)
	if err != nil {
		return "", "", err
	}
	if err := media.ValidateAudio(req.AttachedFile); err != nil {
		return "", "", err
	}
	format := req.ResponseFormat
	if format == "" {
		format = models.FormatText
	}
	return model, format, nil
}

// RejectStream is the guard at the top of every non-streaming entry point.
func RejectStream(req models.CompletionRequest) error {
	if req.Stream {
		return Errorf(ErrUseStreamingMethod, "For streaming responses, please use the CompleteStream method")
	}
	return nil
}

// Temperature returns the request temperature or the default.
func Temperature(req models.CompletionRequest) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return DefaultTemperature
}

// MaxTokens returns the request token cap or the default.
func MaxTokens(req models.CompletionRequest) int {
	if req.MaxTokens != nil {
		return *req.MaxTokens
	}
	return DefaultMaxTokens
}
