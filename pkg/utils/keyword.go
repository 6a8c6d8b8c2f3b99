package utils

import "strings"

// NormalizeKeyword trims and collapses internal whitespace.
// For example, "  rangoon   ruby " → "rangoon ruby".
func NormalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(keyword), " ")
}

// ContainsFold reports whether substr is within s, ignoring case.
// An empty substr never matches.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
