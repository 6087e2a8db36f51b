// Package text holds display helpers for track fields.
package text

// Ellipsis marks truncated text
const Ellipsis = '…'

// Truncate shortens s to at most limit runes. When s is longer, the
// result is exactly limit runes: the first limit-1 runes of s followed
// by an ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + string(Ellipsis)
}
