// Package generation decides whether a completion request can reuse the
// in-flight model call from the previous request instead of starting a new
// one. While the user types characters the model already predicted, the
// pending call keeps streaming into a shared buffer and every new request
// replays it, minus what was typed in the meantime.
package generation

import (
	"context"
	"strings"
	"sync"

	"ghosttext/logger"
	"ghosttext/types"
)

// Stats describes the manager's current generation, for diagnostics
type Stats struct {
	HasGenerator            bool
	PendingPrefix           string
	PendingCompletionLength int
	GeneratorEnded          bool
}

// pendingGeneration is the single in-flight production the manager owns
type pendingGeneration struct {
	prefix string // cursor prefix when the production started
	buf    *teeBuffer
	cancel context.CancelFunc
}

// Manager owns at most one in-flight production at a time
type Manager struct {
	mu      sync.Mutex
	baseCtx context.Context // parent of every production context
	pending *pendingGeneration
}

// NewManager creates a Manager whose productions are bounded by ctx
func NewManager(ctx context.Context) *Manager {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Manager{baseCtx: ctx}
}

// GetGenerator returns the chunk sequence for prefix. When the user's typing
// stayed consistent with the pending production's output, that production is
// reused and its buffered text replayed; otherwise it is cancelled and
// factory starts a fresh one. ctx bounds delivery to this caller only, not
// the production itself.
func (m *Manager) GetGenerator(ctx context.Context, prefix string, factory types.StreamFactory, multiline bool) types.ChunkStream {
	defer logger.Trace("generation.GetGenerator")()

	m.mu.Lock()
	gen := m.pending
	if gen == nil || !canReuse(gen, prefix) {
		if gen != nil {
			gen.cancel()
		}
		gen = m.startGeneration(prefix, factory)
		m.pending = gen
		logger.Debug("generation: starting production for %d-char prefix", len(prefix))
	} else {
		logger.Debug("generation: reusing production, %d chars typed since start", len(prefix)-len(gen.prefix))
	}
	m.mu.Unlock()

	typed := prefix[len(gen.prefix):]
	return newAdjustedStream(ctx, gen.buf, typed, multiline)
}

// Cancel aborts the in-flight production and clears manager state. Safe to
// call repeatedly or with nothing active.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		m.pending.cancel()
		m.pending = nil
	}
}

// GetStats reports the current generation for diagnostics
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Stats{}
	}
	return Stats{
		HasGenerator:            true,
		PendingPrefix:           m.pending.prefix,
		PendingCompletionLength: m.pending.buf.size(),
		GeneratorEnded:          m.pending.buf.done(),
	}
}

// canReuse reports whether gen's output is still consistent with prefix.
// Reuse requires forward typing only: prefix must extend the prefix the
// production started from, and the extension must match the text the
// production has already emitted.
func canReuse(gen *pendingGeneration, prefix string) bool {
	if len(gen.prefix) > len(prefix) || !strings.HasPrefix(prefix, gen.prefix) {
		return false
	}
	typed := prefix[len(gen.prefix):]
	return strings.HasPrefix(gen.buf.text(), typed)
}

// startGeneration launches a production and pumps its chunks into a tee
// buffer. The production runs on a context derived from the manager, not the
// request, so it outlives the request that started it.
func (m *Manager) startGeneration(prefix string, factory types.StreamFactory) *pendingGeneration {
	ctx, cancel := context.WithCancel(m.baseCtx)
	gen := &pendingGeneration{prefix: prefix, buf: newTeeBuffer(), cancel: cancel}

	go func() {
		stream := factory(ctx)
		for chunk := range stream.Chunks() {
			gen.buf.append(chunk)
		}
		gen.buf.finish(stream.Err())
	}()

	return gen
}
