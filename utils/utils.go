package utils

import "strings"

// Token estimation constants
const (
	AvgCharsPerToken = 4 // Rough estimation: 1 token ≈ 4 characters
)

// EstimateTokens estimates the number of tokens in a string
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + AvgCharsPerToken - 1) / AvgCharsPerToken // Ceiling division
}

// EstimateCharsFromTokens estimates the number of characters for a given token count
func EstimateCharsFromTokens(tokens int) int {
	return tokens * AvgCharsPerToken
}

// TrimAroundCursor trims prefix and suffix to fit within maxTokens combined,
// keeping the text nearest the cursor. Budget unused by one side flows to the
// other, and cuts fall on line boundaries where possible.
func TrimAroundCursor(prefix, suffix string, maxTokens int) (string, string) {
	if maxTokens <= 0 {
		return prefix, suffix
	}

	maxChars := EstimateCharsFromTokens(maxTokens)
	if len(prefix)+len(suffix) <= maxChars {
		return prefix, suffix
	}

	prefixBudget := maxChars / 2
	suffixBudget := maxChars - prefixBudget
	if len(prefix) < prefixBudget {
		suffixBudget += prefixBudget - len(prefix)
		prefixBudget = len(prefix)
	} else if len(suffix) < suffixBudget {
		prefixBudget += suffixBudget - len(suffix)
		suffixBudget = len(suffix)
	}

	return tailLines(prefix, prefixBudget), headLines(suffix, suffixBudget)
}

// tailLines keeps at most budget chars from the end of s, advancing the cut to
// the next line start. Falls back to a mid-line cut when the window has no
// newline.
func tailLines(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	cut := len(s) - budget
	if i := strings.IndexByte(s[cut:], '\n'); i >= 0 {
		return s[cut+i+1:]
	}
	return s[cut:]
}

// headLines keeps at most budget chars from the start of s, retreating the cut
// to the previous line end
func headLines(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	if i := strings.LastIndexByte(s[:budget], '\n'); i >= 0 {
		return s[:i+1]
	}
	return s[:budget]
}

