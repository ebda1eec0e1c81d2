// Package engine orchestrates the completion pipeline: editor events come in
// over the nvim channel, text changes debounce into completion requests, and
// streamed chunks render as ghost text until the user accepts or moves on.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ghosttext/bracket"
	"ghosttext/config"
	"ghosttext/generation"
	"ghosttext/logger"
	"ghosttext/outcome"
	"ghosttext/text"
	"ghosttext/types"

	"github.com/neovim/go-client/nvim"
)

type state int

const (
	stateIdle state = iota
	statePendingCompletion
	stateShowingCompletion
)

const defaultDebounce = 150 * time.Millisecond

// EngineConfig holds the tunable engine settings
type EngineConfig struct {
	Debounce      time.Duration
	Multiline     string // config.MultilineAuto, Always or Never
	ModelName     string
	NsID          int
	ShouldDisable func(path string) bool
}

type Engine struct {
	provider types.Provider
	n        *nvim.Nvim
	buffer   *text.Buffer

	generations *generation.Manager
	brackets    *bracket.Filter
	outcomes    *outcome.Log
	clock       outcome.Clock

	state     state
	eventChan chan Event

	// In-flight request bookkeeping; requestID identifies the completion
	// whose stream events are still welcome
	requestID      string
	requestPrefix  string
	requestSuffix  string
	requestFile    string
	requestStart   time.Time
	completionText string
	generationMs   int64
	cacheHit       bool

	debounceTimer outcome.Timer

	cfg EngineConfig

	mainCtx    context.Context
	mainCancel context.CancelFunc
	stopped    bool
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewEngine(provider types.Provider, cfg EngineConfig) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider must not be nil")
	}
	return newEngine(provider, cfg, outcome.SystemClock()), nil
}

func newEngine(provider types.Provider, cfg EngineConfig, clock outcome.Clock) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Multiline == "" {
		cfg.Multiline = config.MultilineAuto
	}

	return &Engine{
		provider:    provider,
		buffer:      text.NewBuffer(text.BufferConfig{NsID: cfg.NsID}),
		generations: generation.NewManager(nil),
		brackets:    bracket.NewFilter(),
		outcomes:    outcome.NewLog(clock),
		clock:       clock,
		state:       stateIdle,
		eventChan:   make(chan Event, 100),
		cfg:         cfg,
	}
}

func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.mainCtx, e.mainCancel = context.WithCancel(ctx)
	e.mu.Unlock()

	go e.eventLoop(e.mainCtx)
	logger.Info("engine started")
}

// Stop shuts the engine down, releasing every timer, production and pending
// record. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		logger.Info("stopping engine...")

		e.stopped = true
		if e.mainCancel != nil {
			e.mainCancel()
		}
		e.stopDebounceTimer()
		e.generations.Cancel()
		e.outcomes.Cancel()
		e.requestID = ""
		e.completionText = ""
		e.state = stateIdle

		logger.Info("engine stopped")
	})
}

// Outcomes exposes the outcome log so callers can subscribe to terminal
// outcomes and read statistics
func (e *Engine) Outcomes() *outcome.Log {
	return e.outcomes
}

// ApplySettings applies the engine-scoped parts of a reloaded config.
// Provider changes take effect on restart.
func (e *Engine) ApplySettings(c *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}

	e.cfg.Debounce = time.Duration(c.Engine.DebounceMs) * time.Millisecond
	if e.cfg.Debounce <= 0 {
		e.cfg.Debounce = defaultDebounce
	}
	e.cfg.Multiline = c.Engine.Multiline
	e.cfg.ShouldDisable = c.ShouldDisable
	logger.Info("engine settings applied: debounce=%s multiline=%s", e.cfg.Debounce, e.cfg.Multiline)
}

// SetNvim attaches the engine to an nvim connection and registers the
// editor event handler
func (e *Engine) SetNvim(n *nvim.Nvim) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}

	e.n = n

	if err := n.RegisterHandler("ghosttext_event", func(n *nvim.Nvim, event string) {
		e.mu.RLock()
		stopped := e.stopped
		mainCtx := e.mainCtx
		e.mu.RUnlock()
		if stopped || mainCtx == nil {
			return
		}

		eventType := EventTypeFromString(event)
		if eventType == "" {
			logger.Debug("ignoring unknown editor event %q", event)
			return
		}
		select {
		case e.eventChan <- Event{Type: eventType}:
		case <-mainCtx.Done():
		}
	}); err != nil {
		logger.Error("failed to register event handler: %v", err)
	}
}

func (e *Engine) eventLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event loop panic recovered: %v", r)
			e.eventLoop(ctx)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-e.eventChan:
			e.mu.RLock()
			stopped := e.stopped
			e.mu.RUnlock()
			if stopped {
				return
			}

			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("event handler panic recovered for event %v: %v", event.Type, r)
					}
				}()
				e.handleEvent(event)
			}()
		}
	}
}

func (e *Engine) handleEvent(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}

	logger.Debug("handle event: %s", event.Type)

	switch event.Type {
	case EventTextChanged:
		e.handleTextChanged()
	case EventDebounceTimeout:
		e.requestCompletion()
	case EventCursorMoved:
		e.handleCursorMoved()
	case EventInsertLeave:
		e.handleInsertLeave()
	case EventEsc:
		e.handleEsc()
	case EventTab:
		e.handleTab()
	case EventChunk:
		e.handleChunk(event.Data.(*chunkUpdate))
	case EventStreamEnd:
		e.handleStreamEnd(event.Data.(*streamResult))
	}
}
