package provider

import (
	"fmt"

	"ghosttext/provider/gemini"
	"ghosttext/provider/ghostapi"
	"ghosttext/provider/openai"
	"ghosttext/types"
)

// NewProvider creates a new provider instance based on the type
func NewProvider(providerType types.ProviderType, config *types.ProviderConfig) (types.Provider, error) {
	switch providerType {
	case types.ProviderTypeOpenAI:
		return openai.NewProvider(config)
	case types.ProviderTypeGemini:
		return gemini.NewProvider(config)
	case types.ProviderTypeGhostAPI:
		return ghostapi.NewProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
