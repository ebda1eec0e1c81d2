package text

import (
	"testing"

	"ghosttext/assert"
)

func newTestBuffer(lines []string, row, col int) *Buffer {
	b := NewBuffer(BufferConfig{NsID: 1})
	b.Path = "/tmp/test.go"
	b.Lines = lines
	b.Row = row
	b.Col = col
	return b
}

func TestPrefixSuffixMidLine(t *testing.T) {
	b := newTestBuffer([]string{"package main", "func main() {", "}"}, 2, 5)

	prefix, suffix := b.PrefixSuffix()
	assert.Equal(t, "package main\nfunc ", prefix, "prefix")
	assert.Equal(t, "main() {\n}", suffix, "suffix")
}

func TestPrefixSuffixStartOfFile(t *testing.T) {
	b := newTestBuffer([]string{"hello", "world"}, 1, 0)

	prefix, suffix := b.PrefixSuffix()
	assert.Equal(t, "", prefix, "prefix")
	assert.Equal(t, "hello\nworld", suffix, "suffix")
}

func TestPrefixSuffixEndOfFile(t *testing.T) {
	b := newTestBuffer([]string{"hello", "world"}, 2, 5)

	prefix, suffix := b.PrefixSuffix()
	assert.Equal(t, "hello\nworld", prefix, "prefix")
	assert.Equal(t, "", suffix, "suffix")
}

func TestPrefixSuffixColPastLineEnd(t *testing.T) {
	// Insert-mode cursor can sit one past the last character
	b := newTestBuffer([]string{"ab"}, 1, 7)

	prefix, suffix := b.PrefixSuffix()
	assert.Equal(t, "ab", prefix, "prefix clamps to line end")
	assert.Equal(t, "", suffix, "suffix")
}

func TestPrefixSuffixRowOutOfRange(t *testing.T) {
	b := newTestBuffer([]string{"ab"}, 5, 0)

	prefix, suffix := b.PrefixSuffix()
	assert.Equal(t, "", prefix, "prefix")
	assert.Equal(t, "", suffix, "suffix")
}
