package types

import (
	"context"
	"time"
)

// CompletionRequest carries the cursor context for one completion attempt
type CompletionRequest struct {
	// Prefix is the file content before the cursor
	Prefix string
	// Suffix is the file content after the cursor
	Suffix string
	// FilePath identifies the file the request came from
	FilePath string
	// Multiline allows the completion to span more than one line
	Multiline bool
}

// Outcome tracks one displayed completion from display to its terminal fate
type Outcome struct {
	ID               string
	Completion       string // full text as displayed
	Prefix           string
	Suffix           string
	FilePath         string
	ModelName        string
	CacheHit         bool  // served from a reused generation
	GenerationTimeMs int64 // time from request to first display
	LineCount        int
	DisplayedAt      time.Time
	Accepted         bool
}

// Provider is the interface completion backends implement
type Provider interface {
	// StreamCompletion starts a completion production for the request.
	// Production errors surface through the returned stream's Err.
	StreamCompletion(ctx context.Context, req *CompletionRequest) ChunkStream
}

// ProviderType represents the type of provider
type ProviderType string

const (
	ProviderTypeOpenAI   ProviderType = "openai"
	ProviderTypeGemini   ProviderType = "gemini"
	ProviderTypeGhostAPI ProviderType = "ghostapi"
)

// ProviderConfig holds configuration for providers
type ProviderConfig struct {
	ProviderURL         string  // URL of the provider server (e.g., "http://localhost:8000")
	APIKey              string  // Resolved API key for authenticated requests
	ProviderModel       string  // Model name
	ProviderTemperature float64 // Sampling temperature
	ProviderMaxTokens   int     // Max tokens to generate
	MaxPromptTokens     int     // Input trimming budget (0 = no limit)
	CompletionPath      string  // API endpoint path (e.g., "/v1/completions")
	CompletionTimeout   int     // Timeout for completion requests in milliseconds
	PrivacyMode         bool    // Don't send telemetry to provider
}
