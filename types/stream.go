package types

import "context"

// ChunkStream is a lazy, finite-or-aborted sequence of text fragments.
// Chunks returns the receive channel; once it closes, Err reports whether the
// stream ended normally (nil) or terminated with a production error.
type ChunkStream interface {
	Chunks() <-chan string
	Err() error
}

// StreamFactory starts a new underlying production. Implementations must honor
// ctx cancellation in both production and delivery.
type StreamFactory func(ctx context.Context) ChunkStream

// ChunkPipe is the producer-side ChunkStream implementation. The producing
// goroutine calls Emit per fragment and Close exactly once when done.
type ChunkPipe struct {
	chunks chan string
	err    error
}

// NewChunkPipe creates a ChunkPipe with a buffered chunk channel
func NewChunkPipe() *ChunkPipe {
	return &ChunkPipe{chunks: make(chan string, 100)}
}

// Emit sends one fragment, returning false if ctx was cancelled first
func (p *ChunkPipe) Emit(ctx context.Context, chunk string) bool {
	select {
	case p.chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close records the terminal error (nil for a normal end) and closes the chunk
// channel. The err write is ordered before the close, so readers that observe
// the closed channel see the final value.
func (p *ChunkPipe) Close(err error) {
	p.err = err
	close(p.chunks)
}

// Chunks returns the channel fragments are delivered on
func (p *ChunkPipe) Chunks() <-chan string { return p.chunks }

// Err reports the terminal production error; meaningful only after Chunks closes
func (p *ChunkPipe) Err() error { return p.err }
