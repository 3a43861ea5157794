package translator

import "modelgate/internal/models"

// ModelCatalog is the wire form of a provider's model list. Empty
// capabilities are omitted.
type ModelCatalog struct {
	Text  []string `json:"text,omitempty"`
	Audio []string `json:"audio,omitempty"`
}

// ProviderInfo describes one registered provider.
type ProviderInfo struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

func FromCatalog(c models.ModelCatalog) ModelCatalog {
	return ModelCatalog{Text: c.Text, Audio: c.Audio}
}
