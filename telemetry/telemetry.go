// Package telemetry forwards terminal completion outcomes to the metrics
// backend.
package telemetry

import (
	"context"
	"sync"
	"time"

	"ghosttext/client/ghostapi"
	"ghosttext/logger"
	"ghosttext/text"
	"ghosttext/types"
)

// uploadTimeout bounds a single metrics upload
const uploadTimeout = 10 * time.Second

// Reporter converts terminal outcomes into metrics events and uploads them
// in the background. Uploads are best-effort: a full queue or a failed
// request drops the event without disturbing the completion pipeline.
type Reporter struct {
	client   *ghostapi.Client
	deviceID string
	privacy  bool

	events    chan *ghostapi.MetricsRequest
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewReporter creates a Reporter uploading through client
func NewReporter(client *ghostapi.Client, deviceID string, privacy bool) *Reporter {
	r := &Reporter{
		client:   client,
		deviceID: deviceID,
		privacy:  privacy,
		events:   make(chan *ghostapi.MetricsRequest, 64),
		done:     make(chan struct{}),
	}
	r.wg.Add(1)
	go r.uploadLoop()
	return r
}

// Record queues one terminal outcome for upload. Intended to be registered
// as an outcome.Log.OnOutcomeLogged callback.
func (r *Reporter) Record(out *types.Outcome) {
	event := r.buildEvent(out)
	select {
	case r.events <- event:
	default:
		logger.Debug("telemetry: queue full, dropping %s event", event.EventType)
	}
}

// Close drains queued events and stops the reporter
func (r *Reporter) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

// buildEvent converts an outcome into the wire format
func (r *Reporter) buildEvent(out *types.Outcome) *ghostapi.MetricsRequest {
	eventType := ghostapi.EventRejected
	if out.Accepted {
		eventType = ghostapi.EventAccepted
	}

	// Line impact of applying the completion at its cursor position
	oldText := text.LastLine(out.Prefix) + text.FirstLine(out.Suffix)
	newText := text.LastLine(out.Prefix) + out.Completion + text.FirstLine(out.Suffix)
	additions, deletions := text.CountLineChanges(oldText, newText)

	req := &ghostapi.MetricsRequest{
		EventType:          eventType,
		CompletionID:       out.ID,
		ModelName:          out.ModelName,
		Additions:          additions,
		Deletions:          deletions,
		LineCount:          out.LineCount,
		GenerationTimeMs:   out.GenerationTimeMs,
		CacheHit:           out.CacheHit,
		DeviceID:           r.deviceID,
		PrivacyModeEnabled: r.privacy,
	}
	if !out.DisplayedAt.IsZero() {
		lifespan := time.Since(out.DisplayedAt).Milliseconds()
		req.Lifespan = &lifespan
	}
	return req
}

func (r *Reporter) uploadLoop() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.events:
			r.upload(event)
		case <-r.done:
			// Drain whatever was queued before Close
			for {
				select {
				case event := <-r.events:
					r.upload(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Reporter) upload(event *ghostapi.MetricsRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	if err := r.client.TrackMetrics(ctx, event); err != nil {
		logger.Warn("telemetry: failed to track %s: %v", event.EventType, err)
	}
}
