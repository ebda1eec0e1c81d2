// Package outcome infers the fate of every displayed completion. The editor
// only ever reports acceptance; everything else is inference: a completion
// neither accepted nor invalidated within the rejection timeout counts as
// rejected, while displays superseded by their own continuation or by rapid
// re-triggering vanish without touching the statistics.
package outcome

import (
	"context"
	"strings"
	"sync"
	"time"

	"ghosttext/logger"
	"ghosttext/text"
	"ghosttext/types"
)

const (
	// rejectionTimeout is how long a displayed completion may stay pending
	// before it counts as rejected
	rejectionTimeout = 10 * time.Second
	// rapidWindow suppresses the previous display when a new one lands
	// this quickly after it
	rapidWindow = 500 * time.Millisecond
)

// record is one displayed completion awaiting its terminal fate
type record struct {
	outcome *types.Outcome
	timer   Timer
}

// Statistics aggregates completion usage counters
type Statistics struct {
	TotalCompletions    int64
	AcceptedCompletions int64
	RejectedCompletions int64
	AcceptanceRate      float64
	AverageGenerationMs float64
	CacheHitRate        float64
}

type counters struct {
	shown      int64
	accepted   int64
	rejected   int64
	cacheHits  int64
	totalGenMs int64
}

// Log tracks displayed completions to their terminal fate and doubles as the
// registry of per-request cancellation handles.
type Log struct {
	mu        sync.Mutex
	clock     Clock
	records   map[string]*record
	lastID    string
	lastAt    time.Time
	aborts    map[string]context.CancelFunc
	listeners []func(*types.Outcome)
	stats     counters
}

// NewLog creates a Log driven by clock. A nil clock means wall time.
func NewLog(clock Clock) *Log {
	if clock == nil {
		clock = SystemClock()
	}
	return &Log{
		clock:   clock,
		records: make(map[string]*record),
		aborts:  make(map[string]context.CancelFunc),
	}
}

// MarkDisplayed registers a displayed completion and arms its rejection
// timer. When the new display continues the previous one, or lands within
// the rapid window after it, the previous record is dropped silently.
// Displaying an id twice is a no-op.
func (l *Log) MarkDisplayed(id string, out *types.Outcome) {
	defer logger.Trace("outcome.MarkDisplayed")()

	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.records[id]; exists {
		return
	}

	out.ID = id
	out.DisplayedAt = now
	out.LineCount = text.LineCount(out.Completion)

	rec := &record{outcome: out}
	rec.timer = l.clock.AfterFunc(rejectionTimeout, func() { l.expire(id) })
	l.records[id] = rec

	if prev, ok := l.records[l.lastID]; ok && l.lastID != id {
		continued := isContinuation(prev.outcome.Completion, out.Completion)
		rapid := now.Sub(l.lastAt) < rapidWindow
		if continued || rapid {
			l.discard(l.lastID)
		}
	}

	l.lastID = id
	l.lastAt = now

	l.stats.shown++
	if out.CacheHit {
		l.stats.cacheHits++
	}
	l.stats.totalGenMs += out.GenerationTimeMs
}

// Accept resolves id as accepted and returns its outcome, or nil when id is
// unknown (never displayed, or already resolved)
func (l *Log) Accept(id string) *types.Outcome {
	l.mu.Lock()
	rec, ok := l.records[id]
	if !ok {
		l.mu.Unlock()
		return nil
	}
	if rec.timer != nil {
		rec.timer.Stop()
	}
	delete(l.records, id)
	rec.outcome.Accepted = true
	l.stats.accepted++
	listeners := l.snapshotListeners()
	l.mu.Unlock()

	logger.Debug("outcome: completion %s accepted", id)
	notify(listeners, rec.outcome)
	return rec.outcome
}

// CancelRejectionTimeout discards id without touching statistics, for
// completions invalidated for reasons unrelated to user judgement. Unknown
// ids are a no-op.
func (l *Log) CancelRejectionTimeout(id string) {
	l.mu.Lock()
	l.discard(id)
	l.mu.Unlock()
}

// CreateAbortContext registers and returns the cancellation context for an
// in-flight request. Registering an id again aborts the earlier context.
func (l *Log) CreateAbortContext(id string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	l.mu.Lock()
	prev := l.aborts[id]
	l.aborts[id] = cancel
	l.mu.Unlock()
	if prev != nil {
		prev()
	}
	return ctx
}

// DeleteAbortContext releases id's cancellation handle, aborting whatever
// may still be running under it
func (l *Log) DeleteAbortContext(id string) {
	l.mu.Lock()
	cancel := l.aborts[id]
	delete(l.aborts, id)
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Cancel aborts every in-flight request and drops all pending records and
// timers. Nothing is counted. Safe to call repeatedly.
func (l *Log) Cancel() {
	l.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(l.aborts))
	for id, cancel := range l.aborts {
		cancels = append(cancels, cancel)
		delete(l.aborts, id)
	}
	for id := range l.records {
		l.discard(id)
	}
	l.lastID = ""
	l.lastAt = time.Time{}
	l.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// GetStatistics returns a snapshot of the running counters. Rates are over
// completions shown, zero when nothing was shown yet.
func (l *Log) GetStatistics() Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Statistics{
		TotalCompletions:    l.stats.shown,
		AcceptedCompletions: l.stats.accepted,
		RejectedCompletions: l.stats.rejected,
	}
	if l.stats.shown > 0 {
		s.AcceptanceRate = float64(l.stats.accepted) / float64(l.stats.shown)
		s.AverageGenerationMs = float64(l.stats.totalGenMs) / float64(l.stats.shown)
		s.CacheHitRate = float64(l.stats.cacheHits) / float64(l.stats.shown)
	}
	return s
}

// ResetStatistics zeroes all counters
func (l *Log) ResetStatistics() {
	l.mu.Lock()
	l.stats = counters{}
	l.mu.Unlock()
}

// OnOutcomeLogged registers fn for every terminal accepted or rejected
// outcome. Callbacks run outside the Log's lock.
func (l *Log) OnOutcomeLogged(fn func(*types.Outcome)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// expire fires when a completion stayed pending for the full rejection
// timeout
func (l *Log) expire(id string) {
	l.mu.Lock()
	rec, ok := l.records[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.records, id)
	rec.outcome.Accepted = false
	l.stats.rejected++
	listeners := l.snapshotListeners()
	l.mu.Unlock()

	logger.Debug("outcome: completion %s rejected by timeout", id)
	notify(listeners, rec.outcome)
}

// discard removes a record silently. Caller holds the lock.
func (l *Log) discard(id string) {
	rec, ok := l.records[id]
	if !ok {
		return
	}
	if rec.timer != nil {
		rec.timer.Stop()
	}
	delete(l.records, id)
}

func (l *Log) snapshotListeners() []func(*types.Outcome) {
	return append([]func(*types.Outcome){}, l.listeners...)
}

func notify(listeners []func(*types.Outcome), out *types.Outcome) {
	for _, fn := range listeners {
		fn(out)
	}
}

// isContinuation reports whether the first lines of two displayed
// completions overlap as prefix or suffix of one another, which happens when
// the user types through a suggestion and the follow-up display extends or
// shortens it.
func isContinuation(prevCompletion, newCompletion string) bool {
	c1 := text.FirstLine(prevCompletion)
	c2 := text.FirstLine(newCompletion)
	return strings.HasPrefix(c1, c2) || strings.HasPrefix(c2, c1) ||
		strings.HasSuffix(c1, c2) || strings.HasSuffix(c2, c1)
}
