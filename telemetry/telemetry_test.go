package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ghosttext/assert"
	"ghosttext/client/ghostapi"
	"ghosttext/types"
)

func metricsServer(t *testing.T) (*httptest.Server, chan *ghostapi.MetricsRequest) {
	t.Helper()
	events := make(chan *ghostapi.MetricsRequest, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ghostapi.MetricsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode metrics request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		events <- &req
		w.WriteHeader(http.StatusOK)
	}))
	return server, events
}

func receiveEvent(t *testing.T, events chan *ghostapi.MetricsRequest) *ghostapi.MetricsRequest {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for metrics event")
		return nil
	}
}

func TestRecordUploadsAcceptedEvent(t *testing.T) {
	server, events := metricsServer(t)
	defer server.Close()

	client := ghostapi.NewClient(server.URL+"/v1/stream_completion", "", 0)
	reporter := NewReporter(client, "device-1", false)

	reporter.Record(&types.Outcome{
		ID:               "completion-1",
		Completion:       `fmt.Println("hi")`,
		Prefix:           "func main() {\n\t",
		Suffix:           "\n}",
		ModelName:        "test-model",
		CacheHit:         true,
		GenerationTimeMs: 120,
		LineCount:        1,
		DisplayedAt:      time.Now().Add(-50 * time.Millisecond),
		Accepted:         true,
	})
	reporter.Close()

	event := receiveEvent(t, events)
	assert.Equal(t, ghostapi.EventAccepted, event.EventType, "event type")
	assert.Equal(t, "completion-1", event.CompletionID, "completion id")
	assert.Equal(t, "test-model", event.ModelName, "model name")
	assert.Equal(t, 1, event.Additions, "additions")
	assert.Equal(t, 1, event.Deletions, "deletions")
	assert.True(t, event.CacheHit, "cache hit")
	assert.Equal(t, int64(120), event.GenerationTimeMs, "generation time")
	assert.Equal(t, "device-1", event.DeviceID, "device id")
	assert.NotNil(t, event.Lifespan, "lifespan")
	assert.True(t, *event.Lifespan >= 50, "lifespan at least display age")
}

func TestRecordUploadsRejectedEvent(t *testing.T) {
	server, events := metricsServer(t)
	defer server.Close()

	client := ghostapi.NewClient(server.URL+"/v1/stream_completion", "", 0)
	reporter := NewReporter(client, "device-1", false)

	// Zero DisplayedAt means the completion was never rendered
	reporter.Record(&types.Outcome{
		ID:         "completion-2",
		Completion: "line one\nline two",
		LineCount:  2,
	})
	reporter.Close()

	event := receiveEvent(t, events)
	assert.Equal(t, ghostapi.EventRejected, event.EventType, "event type")
	assert.Equal(t, 2, event.Additions, "additions")
	assert.Equal(t, 0, event.Deletions, "deletions")
	assert.Nil(t, event.Lifespan, "lifespan")
}

func TestPrivacyModeFlagCarried(t *testing.T) {
	server, events := metricsServer(t)
	defer server.Close()

	client := ghostapi.NewClient(server.URL+"/v1/stream_completion", "", 0)
	reporter := NewReporter(client, "device-1", true)

	reporter.Record(&types.Outcome{ID: "completion-3", Accepted: true})
	reporter.Close()

	event := receiveEvent(t, events)
	assert.True(t, event.PrivacyModeEnabled, "privacy flag")
}
