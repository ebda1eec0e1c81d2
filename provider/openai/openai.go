// Package openai streams completions from any OpenAI-compatible completions
// endpoint (llama.cpp, vllm, ollama, or the hosted API).
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ghosttext/logger"
	"ghosttext/types"
	"ghosttext/utils"
)

// Provider implements the types.Provider interface over the OpenAI
// Completion API with stream mode enabled
type Provider struct {
	config     *types.ProviderConfig
	httpClient *http.Client
	url        string
}

// completionRequest matches the OpenAI Completion API format
type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Suffix      string   `json:"suffix,omitempty"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Stream      bool     `json:"stream"`
	Stop        []string `json:"stop,omitempty"`
	N           int      `json:"n"`
}

// streamChunk matches one SSE data payload of a streaming response
type streamChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Choices []struct {
		Index        int    `json:"index"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewProvider creates a new OpenAI-compatible provider instance
func NewProvider(config *types.ProviderConfig) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.ProviderURL == "" {
		return nil, fmt.Errorf("openai provider requires a url")
	}

	path := config.CompletionPath
	if path == "" {
		path = "/v1/completions"
	}

	timeout := time.Duration(0)
	if config.CompletionTimeout > 0 {
		timeout = time.Duration(config.CompletionTimeout) * time.Millisecond
	}

	return &Provider{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		url:        strings.TrimSuffix(config.ProviderURL, "/") + path,
	}, nil
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
	defer logger.Trace("openai.StreamCompletion")()

	prefix, suffix := req.Prefix, req.Suffix
	if p.config.MaxPromptTokens > 0 {
		prefix, suffix = utils.TrimAroundCursor(prefix, suffix, p.config.MaxPromptTokens)
	}
	logger.Debug("openai: prompt is ~%d tokens", utils.EstimateTokens(prefix)+utils.EstimateTokens(suffix))

	var stop []string
	if !req.Multiline {
		stop = []string{"\n"}
	}

	completionReq := completionRequest{
		Model:       p.config.ProviderModel,
		Prompt:      prefix,
		Suffix:      suffix,
		Temperature: p.config.ProviderTemperature,
		MaxTokens:   p.config.ProviderMaxTokens,
		Stream:      true,
		Stop:        stop,
		N:           1,
	}

	// Marshal the request without HTML escaping
	var reqBody bytes.Buffer
	encoder := json.NewEncoder(&reqBody)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(completionReq); err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.url, &reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 1MB max line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return fmt.Errorf("failed to parse stream chunk: %w", err)
		}
		for _, choice := range chunk.Choices {
			if choice.Text != "" && !pipe.Emit(ctx, choice.Text) {
				return ctx.Err()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return nil
}
