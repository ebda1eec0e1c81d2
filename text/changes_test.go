package text

import (
	"testing"

	"ghosttext/assert"
)

func TestCountLineChangesIdentical(t *testing.T) {
	additions, deletions := CountLineChanges("foo\nbar\n", "foo\nbar\n")
	assert.Equal(t, 0, additions, "additions")
	assert.Equal(t, 0, deletions, "deletions")
}

func TestCountLineChangesPureAddition(t *testing.T) {
	oldText := "func main() {\n}\n"
	newText := "func main() {\n\tfmt.Println(\"hi\")\n}\n"

	additions, deletions := CountLineChanges(oldText, newText)
	assert.Equal(t, 1, additions, "additions")
	assert.Equal(t, 0, deletions, "deletions")
}

func TestCountLineChangesModifiedLine(t *testing.T) {
	// A modified line shows up as one deletion plus one addition
	additions, deletions := CountLineChanges("foo(\n", "foo(bar)\n")
	assert.Equal(t, 1, additions, "additions")
	assert.Equal(t, 1, deletions, "deletions")
}

func TestCountLineChangesMultilineInsert(t *testing.T) {
	oldText := "a\nd\n"
	newText := "a\nb\nc\nd\n"

	additions, deletions := CountLineChanges(oldText, newText)
	assert.Equal(t, 2, additions, "additions")
	assert.Equal(t, 0, deletions, "deletions")
}
