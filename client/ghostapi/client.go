package ghostapi

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

	"github.com/andybalholm/brotli"
)

// CompletionRequest is the request format for the ghost API streaming
// completion endpoint
type CompletionRequest struct {
	FilePath           string  `json:"file_path"`
	FileContents       string  `json:"file_contents"`
	CursorPosition     int     `json:"cursor_position"`
	Multiline          bool    `json:"multiline"`
	MaxTokens          int     `json:"max_tokens"`
	Temperature        float64 `json:"temperature"`
	PrivacyModeEnabled bool    `json:"privacy_mode_enabled"`
}

// CompletionChunk is one line of the ndjson streaming response
type CompletionChunk struct {
	CompletionID string `json:"completion_id"`
	Text         string `json:"text"`
	Done         bool   `json:"done"`
}

// CompletionURL is the production streaming completion endpoint
const CompletionURL = "https://api.ghosttext.dev/v1/stream_completion"

// MetricsURL is the production endpoint for completion outcome events
const MetricsURL = "https://api.ghosttext.dev/v1/track_metrics"

// EventType names a metrics event on the wire
type EventType string

const (
	EventAccepted EventType = "completion_accepted"
	EventRejected EventType = "completion_rejected"
)

// MetricsRequest is the request format for the metrics endpoint
type MetricsRequest struct {
	EventType          EventType `json:"event_type"`
	CompletionID       string    `json:"completion_id"`
	ModelName          string    `json:"model_name"`
	Additions          int       `json:"additions"`
	Deletions          int       `json:"deletions"`
	LineCount          int       `json:"line_count"`
	Lifespan           *int64    `json:"lifespan"`
	GenerationTimeMs   int64     `json:"generation_time_ms"`
	CacheHit           bool      `json:"cache_hit"`
	DeviceID           string    `json:"device_id"`
	PrivacyModeEnabled bool      `json:"privacy_mode_enabled"`
}

// Client is the HTTP client for the ghost API
type Client struct {
	HTTPClient *http.Client
	URL        string
	metricsURL string
	AuthToken  string
	UserAgent  string
}

// NewClient creates a client for the ghost API. A configURL on 127.0.0.1
// overrides both endpoints, which keeps local backends and tests off the
// production hosts.
func NewClient(configURL, apiKey string, timeoutMs int) *Client {
	timeout := time.Duration(0)
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}

	url := CompletionURL
	metricsURL := MetricsURL
	if strings.HasPrefix(configURL, "http://127.0.0.1") {
		url = configURL
		metricsURL = strings.TrimSuffix(configURL, "/v1/stream_completion") + "/v1/track_metrics"
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		URL:        url,
		metricsURL: metricsURL,
		AuthToken:  apiKey,
	}
}

// StreamCompletion posts req and emits each response chunk's text as it
// arrives. The request body is brotli-compressed at quality 1 for latency.
func (c *Client) StreamCompletion(ctx context.Context, req *CompletionRequest) types.ChunkStream {
	pipe := types.NewChunkPipe()
	go func() {
		pipe.Close(c.streamInto(ctx, req, pipe))
	}()
	return pipe
}

func (c *Client) streamInto(ctx context.Context, req *CompletionRequest, pipe *types.ChunkPipe) error {
	defer logger.Trace("ghostapi.StreamCompletion")()

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var compressedBuf bytes.Buffer
	brotliWriter := brotli.NewWriterLevel(&compressedBuf, 1)
	if _, err := brotliWriter.Write(jsonData); err != nil {
		return fmt.Errorf("failed to compress request: %w", err)
	}
	if err := brotliWriter.Close(); err != nil {
		return fmt.Errorf("failed to close brotli writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.URL, &compressedBuf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Content-Encoding", "br")
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}
	if c.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(httpReq)
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
		if line == "" {
			continue
		}
		var chunk CompletionChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return fmt.Errorf("failed to parse response line: %w", err)
		}
		if chunk.Text != "" && !pipe.Emit(ctx, chunk.Text) {
			return ctx.Err()
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return nil
}

// TrackMetrics sends one completion outcome event to the metrics endpoint
func (c *Client) TrackMetrics(ctx context.Context, req *MetricsRequest) error {
	defer logger.Trace("ghostapi.TrackMetrics")()

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.metricsURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create metrics request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}
	if c.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send metrics request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("metrics request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
