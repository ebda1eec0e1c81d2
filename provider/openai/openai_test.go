package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"ghosttext/assert"
	"ghosttext/types"
)

func testConfig(url string) *types.ProviderConfig {
	return &types.ProviderConfig{
		ProviderURL:         url,
		ProviderModel:       "test-model",
		ProviderTemperature: 0.2,
		ProviderMaxTokens:   64,
	}
}

func drain(t *testing.T, stream types.ChunkStream) string {
	t.Helper()
	var sb strings.Builder
	timeout := time.After(5 * time.Second)
	for {
		select {
		case chunk, ok := <-stream.Chunks():
			if !ok {
				return sb.String()
			}
			sb.WriteString(chunk)
		case <-timeout:
			t.Fatal("timed out waiting for stream to end")
			return ""
		}
	}
}

func sseHandler(t *testing.T, onReq func(completionRequest), texts ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err, "decoding request")
		if onReq != nil {
			onReq(req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, text := range texts {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"text\":%s}]}\n\n", strconv.Quote(text))
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestStreamCompletionAssemblesChunks(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(sseHandler(t, func(req completionRequest) { got = req }, "fmt.", "Println(", "\"hi\")"))
	defer server.Close()

	p, err := NewProvider(testConfig(server.URL))
	assert.NoError(t, err, "NewProvider")

	stream := p.StreamCompletion(context.Background(), &types.CompletionRequest{
		Prefix:    "package main\n\nfunc main() {\n\t",
		Suffix:    "\n}",
		FilePath:  "main.go",
		Multiline: true,
	})

	assert.Equal(t, "fmt.Println(\"hi\")", drain(t, stream), "streamed text")
	assert.NoError(t, stream.Err(), "stream error")
	assert.Equal(t, "test-model", got.Model, "model")
	assert.True(t, got.Stream, "stream flag")
	assert.Equal(t, "package main\n\nfunc main() {\n\t", got.Prompt, "prompt")
	assert.Equal(t, "\n}", got.Suffix, "suffix")
	assert.Equal(t, 0, len(got.Stop), "no stop sequences for multiline")
}

func TestSingleLineSetsNewlineStop(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(sseHandler(t, func(req completionRequest) { got = req }, "done()"))
	defer server.Close()

	p, _ := NewProvider(testConfig(server.URL))
	stream := p.StreamCompletion(context.Background(), &types.CompletionRequest{
		Prefix:    "x.",
		Multiline: false,
	})

	drain(t, stream)
	assert.Equal(t, 1, len(got.Stop), "stop sequence count")
	assert.Equal(t, "\n", got.Stop[0], "stop sequence")
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p, _ := NewProvider(testConfig(server.URL))
	stream := p.StreamCompletion(context.Background(), &types.CompletionRequest{Prefix: "x"})

	assert.Equal(t, "", drain(t, stream), "streamed text")
	assert.Error(t, stream.Err(), "stream error")
	assert.Contains(t, stream.Err().Error(), "404", "status in error")
}

func TestNewProviderRequiresURL(t *testing.T) {
	_, err := NewProvider(&types.ProviderConfig{})
	assert.Error(t, err, "missing url")

	_, err = NewProvider(nil)
	assert.Error(t, err, "nil config")
}

func TestCompletionPathOverride(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.CompletionPath = "/completion"
	p, _ := NewProvider(cfg)
	drain(t, p.StreamCompletion(context.Background(), &types.CompletionRequest{Prefix: "x"}))

	assert.Equal(t, "/completion", gotPath, "request path")
}
