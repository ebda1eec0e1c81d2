package generation

import (
	"context"
	"strings"

	"ghosttext/types"
)

// newAdjustedStream replays buf from the start for one reader, fast-forwards
// past the characters typed since the production began, and cuts the stream
// at the first newline when multiline is false.
func newAdjustedStream(ctx context.Context, buf *teeBuffer, typed string, multiline bool) types.ChunkStream {
	pipe := types.NewChunkPipe()

	go func() {
		cursor := 0
		skipping := len(typed) > 0
		for {
			pending, ended, err, wake := buf.snapshot(cursor)
			for _, chunk := range pending {
				cursor++
				if skipping {
					var mismatch bool
					chunk, typed, mismatch = stripTyped(chunk, typed)
					if mismatch || len(typed) == 0 {
						skipping = false
					}
					if chunk == "" {
						continue
					}
				}
				if !multiline {
					if i := strings.IndexByte(chunk, '\n'); i >= 0 {
						if i > 0 && !pipe.Emit(ctx, chunk[:i]) {
							pipe.Close(ctx.Err())
							return
						}
						pipe.Close(nil)
						return
					}
				}
				if !pipe.Emit(ctx, chunk) {
					pipe.Close(ctx.Err())
					return
				}
			}
			if ended {
				pipe.Close(err)
				return
			}
			select {
			case <-wake:
			case <-ctx.Done():
				pipe.Close(ctx.Err())
				return
			}
		}
	}()

	return pipe
}

// stripTyped removes the run of leading characters chunk and typed share,
// one at a time. It returns the remainders and whether the run stopped on a
// differing character, after which no further stripping should happen.
func stripTyped(chunk, typed string) (string, string, bool) {
	i := 0
	for i < len(chunk) && i < len(typed) && chunk[i] == typed[i] {
		i++
	}
	mismatch := i < len(chunk) && i < len(typed)
	return chunk[i:], typed[i:], mismatch
}
