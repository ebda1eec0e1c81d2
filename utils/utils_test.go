package utils

import (
	"strings"
	"testing"

	"ghosttext/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""), "empty string")
	assert.Equal(t, 1, EstimateTokens("abc"), "partial token rounds up")
	assert.Equal(t, 2, EstimateTokens("abcdefgh"), "two full tokens")
}

func TestTrimAroundCursorKeepsSmallContext(t *testing.T) {
	prefix, suffix := TrimAroundCursor("short prefix", "short suffix", 100)
	assert.Equal(t, "short prefix", prefix, "prefix untouched")
	assert.Equal(t, "short suffix", suffix, "suffix untouched")
}

func TestTrimAroundCursorCutsOnLineBoundaries(t *testing.T) {
	prefix := "line one\nline two\nline three\n"
	suffix := "line four\nline five\nline six\n"

	// Budget for roughly one line per side
	gotPrefix, gotSuffix := TrimAroundCursor(prefix, suffix, 6)

	assert.True(t, strings.HasSuffix(prefix, gotPrefix), "prefix keeps its tail")
	assert.True(t, strings.HasPrefix(suffix, gotSuffix), "suffix keeps its head")
	assert.True(t, len(gotPrefix) < len(prefix), "prefix shrank")
	assert.True(t, len(gotSuffix) < len(suffix), "suffix shrank")
	// Cuts fall at line starts and ends
	assert.False(t, strings.HasPrefix(gotPrefix, "ine"), "prefix cut mid-line")
	assert.True(t, gotSuffix == "" || strings.HasSuffix(gotSuffix, "\n"), "suffix ends on a line")
}

func TestTrimAroundCursorBudgetFlowsToLongerSide(t *testing.T) {
	prefix := "p\n"
	suffix := strings.Repeat("suffix line\n", 20)

	gotPrefix, gotSuffix := TrimAroundCursor(prefix, suffix, 10)

	assert.Equal(t, prefix, gotPrefix, "short prefix kept whole")
	// The suffix gets the prefix's unused budget on top of its own half
	assert.True(t, len(gotSuffix) > EstimateCharsFromTokens(5), "suffix got extra budget")
	assert.True(t, len(gotSuffix) <= EstimateCharsFromTokens(10), "total budget held")
}

func TestTrimAroundCursorZeroBudgetIsNoOp(t *testing.T) {
	prefix, suffix := TrimAroundCursor("a", "b", 0)
	assert.Equal(t, "a", prefix, "prefix")
	assert.Equal(t, "b", suffix, "suffix")
}
