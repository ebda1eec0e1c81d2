package text

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// CountLineChanges computes how many lines a completion added and removed,
// using a line-level diff between the text before and after it was applied.
func CountLineChanges(oldText, newText string) (additions, deletions int) {
	if oldText == newText {
		return 0, 0
	}

	// Line-level diff: collapse lines to runes, diff, then expand back
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(chars1, chars2, false)
	lineDiffs := dmp.DiffCharsToLines(diffs, lineArray)

	for _, diff := range lineDiffs {
		n := diffLineSpan(diff.Text)
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			additions += n
		case diffmatchpatch.DiffDelete:
			deletions += n
		}
	}
	return additions, deletions
}

// diffLineSpan counts the lines covered by one diff fragment. A fragment
// without a trailing newline still occupies its final partial line.
func diffLineSpan(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
