package bracket

import "strings"

var closingToOpening = map[rune]rune{
	')': '(',
	']': '[',
	'}': '{',
}

var openingToClosing = map[rune]rune{
	'(': ')',
	'[': ']',
	'{': '}',
}

func isOpening(r rune) bool {
	_, ok := openingToClosing[r]
	return ok
}

func isClosing(r rune) bool {
	_, ok := closingToOpening[r]
	return ok
}

// scanText applies the push/pop rule over s, stopping at the first unmatched
// close. Returns the leftover opening brackets, outermost first, and whether
// a close went unmatched.
func scanText(s string) ([]rune, bool) {
	var stack []rune
	for _, r := range s {
		if isOpening(r) {
			stack = append(stack, r)
		} else if isClosing(r) {
			if len(stack) == 0 || stack[len(stack)-1] != closingToOpening[r] {
				return stack, true
			}
			stack = stack[:len(stack)-1]
		}
	}
	return stack, false
}

// AreBracketsBalanced reports whether every bracket in s pairs up
func AreBracketsBalanced(s string) bool {
	stack, unmatched := scanText(s)
	return !unmatched && len(stack) == 0
}

// UnclosedBrackets returns the opening brackets s leaves unmatched,
// outermost first
func UnclosedBrackets(s string) []rune {
	stack, _ := scanText(s)
	return stack
}

// ClosingBracketsNeeded returns the closing brackets that would balance s, in
// nesting order (innermost close first)
func ClosingBracketsNeeded(s string) string {
	stack, _ := scanText(s)
	var sb strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteRune(openingToClosing[stack[i]])
	}
	return sb.String()
}
