package generation

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ghosttext/assert"
	"ghosttext/types"
)

// collect drains a stream until it closes, failing the test on a hang
func collect(t *testing.T, stream types.ChunkStream) []string {
	t.Helper()
	var chunks []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case chunk, ok := <-stream.Chunks():
			if !ok {
				return chunks
			}
			chunks = append(chunks, chunk)
		case <-timeout:
			t.Fatal("timed out waiting for stream to end")
			return nil
		}
	}
}

// waitFor polls cond until it holds, failing the test on timeout
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal(msg)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestFreshGenerationStreamsAllChunks(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	pipe := types.NewChunkPipe()
	factory := func(context.Context) types.ChunkStream { return pipe }

	stream := m.GetGenerator(ctx, "func main() {", factory, true)

	pipe.Emit(ctx, "\n\tfmt.")
	pipe.Emit(ctx, "Println(")
	pipe.Close(nil)

	chunks := collect(t, stream)
	assert.Equal(t, "\n\tfmt.Println(", strings.Join(chunks, ""), "streamed text")
	assert.NoError(t, stream.Err(), "stream error")
}

func TestReuseWhileTypingForward(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	var calls atomic.Int32
	pipe := types.NewChunkPipe()
	factory := func(context.Context) types.ChunkStream {
		calls.Add(1)
		return pipe
	}

	first := m.GetGenerator(ctx, "prefix", factory, true)
	pipe.Emit(ctx, "abc")
	pipe.Emit(ctx, "def")
	pipe.Close(nil)
	assert.Equal(t, "abcdef", strings.Join(collect(t, first), ""), "first request text")

	// The user typed "ab", exactly what the production already emitted
	second := m.GetGenerator(ctx, "prefixab", factory, true)
	assert.Equal(t, "cdef", strings.Join(collect(t, second), ""), "second request text")
	assert.Equal(t, int32(1), calls.Load(), "production count")
}

func TestRepeatRequestReplaysHistory(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	var calls atomic.Int32
	pipe := types.NewChunkPipe()
	factory := func(context.Context) types.ChunkStream {
		calls.Add(1)
		return pipe
	}

	first := m.GetGenerator(ctx, "prefix", factory, true)
	pipe.Emit(ctx, "abc")
	pipe.Close(nil)
	assert.Equal(t, "abc", strings.Join(collect(t, first), ""), "first request text")

	// Same prefix again: the full buffered text replays from the start
	second := m.GetGenerator(ctx, "prefix", factory, true)
	assert.Equal(t, "abc", strings.Join(collect(t, second), ""), "replayed text")
	assert.Equal(t, int32(1), calls.Load(), "production count")
}

func TestStripSpansChunks(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	pipe := types.NewChunkPipe()
	factory := func(context.Context) types.ChunkStream { return pipe }

	first := m.GetGenerator(ctx, "p", factory, true)
	pipe.Emit(ctx, "ab")
	pipe.Emit(ctx, "cd")
	pipe.Emit(ctx, "ef")
	pipe.Close(nil)
	collect(t, first)

	// Typed text crosses the boundary between the first two chunks
	second := m.GetGenerator(ctx, "pabc", factory, true)
	assert.Equal(t, "def", strings.Join(collect(t, second), ""), "stripped text")
}

func TestDivergentPrefixStartsNewProduction(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	var calls atomic.Int32
	factory := func(context.Context) types.ChunkStream {
		calls.Add(1)
		pipe := types.NewChunkPipe()
		pipe.Emit(ctx, "abc")
		pipe.Close(nil)
		return pipe
	}

	collect(t, m.GetGenerator(ctx, "prefix", factory, true))

	// "Z" is not covered by the buffered "abc", so the production restarts
	chunks := collect(t, m.GetGenerator(ctx, "prefixZ", factory, true))
	assert.Equal(t, "abc", strings.Join(chunks, ""), "fresh production text")
	assert.Equal(t, int32(2), calls.Load(), "production count")
}

func TestShorterPrefixStartsNewProduction(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	var calls atomic.Int32
	factory := func(context.Context) types.ChunkStream {
		calls.Add(1)
		pipe := types.NewChunkPipe()
		pipe.Close(nil)
		return pipe
	}

	collect(t, m.GetGenerator(ctx, "prefix", factory, true))
	collect(t, m.GetGenerator(ctx, "pref", factory, true))
	assert.Equal(t, int32(2), calls.Load(), "production count")
}

func TestSingleLineCutsAtNewline(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	pipe := types.NewChunkPipe()
	factory := func(context.Context) types.ChunkStream { return pipe }

	stream := m.GetGenerator(ctx, "p", factory, false)
	pipe.Emit(ctx, "foo")
	pipe.Emit(ctx, "bar\nbaz")
	pipe.Close(nil)

	chunks := collect(t, stream)
	assert.Equal(t, "foobar", strings.Join(chunks, ""), "single-line text")
	assert.NoError(t, stream.Err(), "stream error")
}

func TestSingleLineEndsOnLeadingNewline(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	pipe := types.NewChunkPipe()
	factory := func(context.Context) types.ChunkStream { return pipe }

	stream := m.GetGenerator(ctx, "p", factory, false)
	pipe.Emit(ctx, "foo")
	pipe.Emit(ctx, "\nbar")
	pipe.Close(nil)

	chunks := collect(t, stream)
	assert.Equal(t, "foo", strings.Join(chunks, ""), "single-line text")
}

func TestProductionErrorReachesReader(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	errBoom := errors.New("upstream failed")
	pipe := types.NewChunkPipe()
	factory := func(context.Context) types.ChunkStream { return pipe }

	stream := m.GetGenerator(ctx, "p", factory, true)
	pipe.Emit(ctx, "abc")
	pipe.Close(errBoom)

	chunks := collect(t, stream)
	assert.Equal(t, "abc", strings.Join(chunks, ""), "chunks before error")
	assert.Equal(t, errBoom, stream.Err(), "terminal error")
}

func TestCancelClearsState(t *testing.T) {
	m := NewManager(context.Background())

	var cancelled atomic.Bool
	pipe := types.NewChunkPipe()
	factory := func(ctx context.Context) types.ChunkStream {
		go func() {
			<-ctx.Done()
			cancelled.Store(true)
			pipe.Close(ctx.Err())
		}()
		return pipe
	}

	m.GetGenerator(context.Background(), "p", factory, true)
	assert.True(t, m.GetStats().HasGenerator, "generator active before cancel")

	m.Cancel()
	m.Cancel()

	assert.False(t, m.GetStats().HasGenerator, "generator active after cancel")
	waitFor(t, cancelled.Load, "production context was never cancelled")
}

func TestGetStatsTracksProduction(t *testing.T) {
	m := NewManager(context.Background())
	ctx := context.Background()

	pipe := types.NewChunkPipe()
	factory := func(context.Context) types.ChunkStream { return pipe }

	m.GetGenerator(ctx, "prefix", factory, true)
	pipe.Emit(ctx, "abc")

	waitFor(t, func() bool {
		return m.GetStats().PendingCompletionLength == 3
	}, "buffered length never reached 3")

	stats := m.GetStats()
	assert.Equal(t, "prefix", stats.PendingPrefix, "pending prefix")
	assert.False(t, stats.GeneratorEnded, "ended before close")

	pipe.Close(nil)
	waitFor(t, func() bool {
		return m.GetStats().GeneratorEnded
	}, "generator never marked ended")
}
