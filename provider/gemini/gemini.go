// Package gemini streams completions from the Gemini API through the genai
// SDK.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"ghosttext/logger"
	"ghosttext/types"
	"ghosttext/utils"

	"google.golang.org/genai"
)

const systemPrompt = `You are a code completion engine. Given the code before and after the cursor, reply with only the text to insert at the cursor. No explanations, no markdown fences.`

// Provider implements the types.Provider interface for Gemini models
type Provider struct {
	config *types.ProviderConfig
}

// NewProvider creates a new Gemini provider instance
func NewProvider(config *types.ProviderConfig) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini provider requires an api key")
	}
	return &Provider{config: config}, nil
}

// StreamCompletion implements types.Provider
func (p *Provider) StreamCompletion(ctx context.Context, req *types.CompletionRequest) types.ChunkStream {
	pipe := types.NewChunkPipe()
	go func() {
		pipe.Close(p.stream(ctx, req, pipe))
	}()
	return pipe
}

func (p *Provider) stream(ctx context.Context, req *types.CompletionRequest, pipe *types.ChunkPipe) error {
	defer logger.Trace("gemini.StreamCompletion")()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}

	prefix, suffix := req.Prefix, req.Suffix
	if p.config.MaxPromptTokens > 0 {
		prefix, suffix = utils.TrimAroundCursor(prefix, suffix, p.config.MaxPromptTokens)
	}

	config := buildConfig(p.config, req.Multiline)
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: buildPrompt(req.FilePath, prefix, suffix)}},
	}}

	seq := client.Models.GenerateContentStream(ctx, p.config.ProviderModel, contents, config)
	next, stop := iter.Pull2(seq)
	defer stop()

	for {
		resp, err, ok := next()
		if !ok {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to stream completion: %w", err)
		}
		if chunk := responseText(resp); chunk != "" && !pipe.Emit(ctx, chunk) {
			return ctx.Err()
		}
	}
}

func buildConfig(cfg *types.ProviderConfig, multiline bool) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}
	if cfg.ProviderMaxTokens > 0 {
		config.MaxOutputTokens = int32(cfg.ProviderMaxTokens)
	}
	temp := float32(cfg.ProviderTemperature)
	config.Temperature = &temp
	if !multiline {
		config.StopSequences = []string{"\n"}
	}
	return config
}

// buildPrompt wraps the cursor context in delimiters the model can anchor on
func buildPrompt(filePath, prefix, suffix string) string {
	var sb strings.Builder
	sb.WriteString("File: ")
	sb.WriteString(filePath)
	sb.WriteString("\n<before_cursor>\n")
	sb.WriteString(prefix)
	sb.WriteString("\n</before_cursor>\n<after_cursor>\n")
	sb.WriteString(suffix)
	sb.WriteString("\n</after_cursor>\n")
	return sb.String()
}

// responseText flattens the first candidate's parts of one streamed response
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
