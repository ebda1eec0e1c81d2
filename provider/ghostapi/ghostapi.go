// Package ghostapi adapts the ghost API client to the types.Provider
// interface.
package ghostapi

import (
	"context"
	"fmt"

	"ghosttext/client/ghostapi"
	"ghosttext/types"
	"ghosttext/utils"
)

// Provider implements the types.Provider interface for the hosted ghost API
type Provider struct {
	config *types.ProviderConfig
	client *ghostapi.Client
}

// NewProvider creates a new ghost API provider instance
func NewProvider(config *types.ProviderConfig) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Provider{
		config: config,
		client: ghostapi.NewClient(config.ProviderURL, config.APIKey, config.CompletionTimeout),
	}, nil
}

// StreamCompletion implements types.Provider. The ghost API takes whole-file
// content with a byte cursor offset, so the trimmed prefix and suffix are
// joined back together around the cursor.
func (p *Provider) StreamCompletion(ctx context.Context, req *types.CompletionRequest) types.ChunkStream {
	prefix, suffix := req.Prefix, req.Suffix
	if p.config.MaxPromptTokens > 0 {
		prefix, suffix = utils.TrimAroundCursor(prefix, suffix, p.config.MaxPromptTokens)
	}

	return p.client.StreamCompletion(ctx, &ghostapi.CompletionRequest{
		FilePath:           req.FilePath,
		FileContents:       prefix + suffix,
		CursorPosition:     len(prefix),
		Multiline:          req.Multiline,
		MaxTokens:          p.config.ProviderMaxTokens,
		Temperature:        p.config.ProviderTemperature,
		PrivacyModeEnabled: p.config.PrivacyMode,
	})
}
