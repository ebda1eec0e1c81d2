// Package bracket cuts completion streams the moment they would emit a
// closing bracket with nothing left to close. Models love trailing "}" runs;
// ending the stream there is a designed termination, not an error, so the
// text shown up to that point stays usable.
package bracket

import (
	"context"
	"sync"
	"unicode"

	"ghosttext/logger"
	"ghosttext/text"
	"ghosttext/types"
)

// Filter owns the bracket context carried between completions. The leftover
// open brackets of the last accepted completion seed the next multiline
// request in the same file, so a block opened by one completion can be
// closed by the next.
type Filter struct {
	mu        sync.Mutex
	lastStack []rune
	lastFile  string
}

// NewFilter creates a Filter with no carried context
func NewFilter() *Filter {
	return &Filter{}
}

// StopOnUnmatchedClosingBracket wraps stream so it ends just before the
// first closing bracket that has no matching open in the completion or its
// surrounding context. ctx bounds delivery; truncation itself is silent.
func (f *Filter) StopOnUnmatchedClosingBracket(ctx context.Context, stream types.ChunkStream, prefix, suffix, filePath string, multiline bool) types.ChunkStream {
	stack := f.seedStack(prefix, suffix, filePath, multiline)
	stack = seedFromSuffix(stack, suffix)

	pipe := types.NewChunkPipe()
	go func() {
		scan := &streamScan{stack: stack}
		for chunk := range stream.Chunks() {
			out, truncated := scan.next(chunk)
			if out != "" && !pipe.Emit(ctx, out) {
				pipe.Close(ctx.Err())
				return
			}
			if truncated {
				logger.Debug("bracket: truncated completion at unmatched close")
				pipe.Close(nil)
				return
			}
		}
		pipe.Close(stream.Err())
	}()
	return pipe
}

// HandleAcceptedCompletion records the accepted text's leftover opening
// brackets for filePath. Scanning stops at the first unmatched close;
// everything after it is ignored.
func (f *Filter) HandleAcceptedCompletion(completion, filePath string) {
	stack, _ := scanText(completion)

	f.mu.Lock()
	f.lastStack = stack
	f.lastFile = filePath
	f.mu.Unlock()

	if len(stack) > 0 {
		logger.Debug("bracket: carrying %d open bracket(s) for %s", len(stack), filePath)
	}
}

// Clear drops the carried bracket context
func (f *Filter) Clear() {
	f.mu.Lock()
	f.lastStack = nil
	f.lastFile = ""
	f.mu.Unlock()
}

// seedStack builds the initial stack. Multiline requests inherit the stack
// recorded for the same file; a recorded stack from another file is stale
// and dropped. Single-line requests scan the cursor line instead, and an
// unmatched close there discards the whole seed.
func (f *Filter) seedStack(prefix, suffix, filePath string, multiline bool) []rune {
	if multiline {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.lastFile == filePath {
			stack := make([]rune, len(f.lastStack))
			copy(stack, f.lastStack)
			return stack
		}
		f.lastStack = nil
		f.lastFile = ""
		return nil
	}

	line := text.LastLine(prefix) + text.FirstLine(suffix)
	stack, unmatched := scanText(line)
	if unmatched {
		return nil
	}
	return stack
}

// seedFromSuffix prepends an opener for each closing bracket right after the
// cursor, so completions may re-emit closers the editor already shows.
// Spaces are skipped; any other character ends the scan.
func seedFromSuffix(stack []rune, suffix string) []rune {
	for _, r := range suffix {
		if r == ' ' {
			continue
		}
		open, ok := closingToOpening[r]
		if !ok {
			break
		}
		stack = append([]rune{open}, stack...)
	}
	return stack
}

// streamScan holds the per-stream matching state. Whitespace and closing
// brackets pass through freely until the first substantive character; they
// close pre-existing context the editor still displays.
type streamScan struct {
	stack       []rune
	substantive bool
}

// next scans one chunk, returning the emittable portion and whether the
// stream must end at an unmatched close
func (s *streamScan) next(chunk string) (string, bool) {
	for i, r := range chunk {
		if !s.substantive {
			if unicode.IsSpace(r) || isClosing(r) {
				continue
			}
			s.substantive = true
		}
		if isOpening(r) {
			s.stack = append(s.stack, r)
		} else if isClosing(r) {
			if len(s.stack) == 0 || s.stack[len(s.stack)-1] != closingToOpening[r] {
				return chunk[:i], true
			}
			s.stack = s.stack[:len(s.stack)-1]
		}
	}
	return chunk, false
}
