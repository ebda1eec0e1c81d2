package engine

import (
	"context"
	"errors"
	"strings"

	"ghosttext/config"
	"ghosttext/logger"
	"ghosttext/text"
	"ghosttext/types"

	"github.com/google/uuid"
)

// requestCompletion starts a completion for the current cursor position.
// The stream first passes the generation manager (which may replay an
// in-flight production) and then the bracket filter; chunks come back to
// the event loop through the consumer goroutine.
func (e *Engine) requestCompletion() {
	if e.stopped {
		return
	}

	if e.n != nil {
		if err := e.buffer.SyncIn(e.n); err != nil {
			logger.Warn("failed to sync buffer: %v", err)
			return
		}
	}

	if e.cfg.ShouldDisable != nil && e.buffer.Path != "" && e.cfg.ShouldDisable(e.buffer.Path) {
		logger.Debug("completions disabled for %s", e.buffer.Path)
		return
	}

	if e.requestID != "" {
		e.outcomes.DeleteAbortContext(e.requestID)
	}

	prefix, suffix := e.buffer.PrefixSuffix()
	multiline := e.multilineFor(prefix)
	id := uuid.New().String()

	e.requestID = id
	e.requestPrefix = prefix
	e.requestSuffix = suffix
	e.requestFile = e.buffer.Path
	e.requestStart = e.clock.Now()
	e.completionText = ""
	e.generationMs = 0
	e.state = statePendingCompletion

	ctx := e.outcomes.CreateAbortContext(id)

	req := &types.CompletionRequest{
		Prefix:    prefix,
		Suffix:    suffix,
		FilePath:  e.requestFile,
		Multiline: multiline,
	}
	factory := func(genCtx context.Context) types.ChunkStream {
		return e.provider.StreamCompletion(genCtx, req)
	}

	before := e.generations.GetStats()
	stream := e.generations.GetGenerator(ctx, prefix, factory, multiline)
	after := e.generations.GetStats()
	e.cacheHit = before.HasGenerator && before.PendingPrefix == after.PendingPrefix

	filtered := e.brackets.StopOnUnmatchedClosingBracket(ctx, stream, prefix, suffix, e.requestFile, multiline)
	go e.consumeStream(id, filtered)
}

// multilineFor decides whether this request may span lines. In auto mode a
// cursor on a line that is blank so far asks for a block, mid-line asks for
// a single line.
func (e *Engine) multilineFor(prefix string) bool {
	switch e.cfg.Multiline {
	case config.MultilineAlways:
		return true
	case config.MultilineNever:
		return false
	default:
		return strings.TrimSpace(text.LastLine(prefix)) == ""
	}
}

func (e *Engine) consumeStream(id string, stream types.ChunkStream) {
	for chunk := range stream.Chunks() {
		if !e.postEvent(Event{Type: EventChunk, Data: &chunkUpdate{id: id, text: chunk}}) {
			return
		}
	}
	e.postEvent(Event{Type: EventStreamEnd, Data: &streamResult{id: id, err: stream.Err()}})
}

func (e *Engine) postEvent(event Event) bool {
	e.mu.RLock()
	stopped := e.stopped
	mainCtx := e.mainCtx
	e.mu.RUnlock()
	if stopped || mainCtx == nil {
		return false
	}

	select {
	case e.eventChan <- event:
		return true
	case <-mainCtx.Done():
		return false
	}
}

func (e *Engine) handleChunk(update *chunkUpdate) {
	if update.id != e.requestID {
		return
	}

	if e.completionText == "" {
		e.generationMs = e.clock.Now().Sub(e.requestStart).Milliseconds()
	}
	e.completionText += update.text

	if e.n != nil {
		if err := e.buffer.ShowGhost(e.n, e.completionText); err != nil {
			logger.Warn("failed to render ghost text: %v", err)
		}
	}
}

func (e *Engine) handleStreamEnd(result *streamResult) {
	if result.id != e.requestID {
		return
	}

	e.outcomes.DeleteAbortContext(result.id)

	if result.err != nil {
		if errors.Is(result.err, context.Canceled) {
			logger.Debug("completion canceled")
		} else {
			logger.Error("completion stream failed: %v", result.err)
		}
		e.dismiss(true)
		return
	}

	if e.completionText == "" {
		e.requestID = ""
		e.state = stateIdle
		return
	}

	out := &types.Outcome{
		Completion:       e.completionText,
		Prefix:           e.requestPrefix,
		Suffix:           e.requestSuffix,
		FilePath:         e.requestFile,
		ModelName:        e.cfg.ModelName,
		CacheHit:         e.cacheHit,
		GenerationTimeMs: e.generationMs,
	}
	e.outcomes.MarkDisplayed(result.id, out)
	e.state = stateShowingCompletion
}

// handleTab accepts the completion on display: apply it to the buffer,
// resolve its outcome, and feed its bracket context forward
func (e *Engine) handleTab() {
	if e.state != stateShowingCompletion || e.requestID == "" {
		return
	}

	id := e.requestID
	completion := e.completionText

	if e.n != nil {
		batch := e.buffer.PrepareAccept(e.n, completion)
		if err := batch.Execute(); err != nil {
			logger.Error("failed to apply completion: %v", err)
		}
	}

	if out := e.outcomes.Accept(id); out == nil {
		logger.Debug("accept for already resolved completion %s", id)
	}
	e.brackets.HandleAcceptedCompletion(completion, e.requestFile)

	e.requestID = ""
	e.completionText = ""
	e.state = stateIdle
}

// dismiss clears the current display and request. With invalidate the
// pending record is discarded silently; without it an already displayed
// record stays armed so its rejection timer can classify it.
func (e *Engine) dismiss(invalidate bool) {
	if e.requestID == "" {
		return
	}

	id := e.requestID
	e.requestID = ""
	e.completionText = ""
	e.state = stateIdle

	e.outcomes.DeleteAbortContext(id)
	if invalidate {
		e.outcomes.CancelRejectionTimeout(id)
	}

	if e.n != nil {
		if err := e.buffer.ClearGhost(e.n); err != nil {
			logger.Warn("failed to clear ghost text: %v", err)
		}
	}
}
