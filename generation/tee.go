package generation

import (
	"strings"
	"sync"
)

// teeBuffer is an append-only broadcast buffer. One producer appends chunks
// and finishes once; any number of readers replay the history from the start
// and then follow the live tail.
type teeBuffer struct {
	mu     sync.Mutex
	chunks []string
	ended  bool
	err    error
	wake   chan struct{} // closed and replaced on every append or finish
}

func newTeeBuffer() *teeBuffer {
	return &teeBuffer{wake: make(chan struct{})}
}

// append adds one chunk and wakes waiting readers. Ignored after finish.
func (t *teeBuffer) append(chunk string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return
	}
	t.chunks = append(t.chunks, chunk)
	t.broadcast()
}

// finish marks the end of production, recording the terminal error if any
func (t *teeBuffer) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return
	}
	t.ended = true
	t.err = err
	t.broadcast()
}

// broadcast wakes every reader blocked on the current wake channel. Caller
// holds the lock.
func (t *teeBuffer) broadcast() {
	close(t.wake)
	t.wake = make(chan struct{})
}

// snapshot returns the chunks at or past cursor, whether production has
// ended, the terminal error, and the channel to wait on for more. The
// returned slice is never mutated afterwards.
func (t *teeBuffer) snapshot(cursor int) ([]string, bool, error, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var pending []string
	if cursor < len(t.chunks) {
		pending = t.chunks[cursor:]
	}
	return pending, t.ended, t.err, t.wake
}

// text returns the concatenation of everything buffered so far
func (t *teeBuffer) text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var sb strings.Builder
	for _, c := range t.chunks {
		sb.WriteString(c)
	}
	return sb.String()
}

// size returns the total buffered length in bytes
func (t *teeBuffer) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.chunks {
		n += len(c)
	}
	return n
}

// done reports whether production has finished
func (t *teeBuffer) done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}
