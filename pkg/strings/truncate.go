// Package strings provides small string helpers shared by the CLI output
// layers.
package strings

import (
	"strings"
)

// DefaultPathMaxLen caps path and key columns in tabular output.
const DefaultPathMaxLen = 72

// minTruncateLen leaves room for one character plus the ellipsis.
const minTruncateLen = 4

// Truncate collapses the string to a single line and shortens it to maxLen
// runes, appending "..." when anything was cut. Runs of whitespace become
// single spaces so multi-line content fits a table cell.
func Truncate(s string, maxLen int) string {
	if maxLen < minTruncateLen {
		maxLen = minTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// TruncatePath shortens a path for display, keeping the tail: the last path
// segments carry the information, so cuts happen at the front.
func TruncatePath(p string, maxLen int) string {
	if maxLen < minTruncateLen {
		maxLen = minTruncateLen
	}
	runes := []rune(p)
	if len(runes) <= maxLen {
		return p
	}
	return "..." + string(runes[len(runes)-(maxLen-3):])
}
