// Package text provides rune-aware helpers and the cleaning pass that turns
// raw post markup into plain text for keyword matching and staging.
package text

import "unicode/utf8"

// CountRunes counts Unicode code points, not bytes.
//
// Examples:
//
//	CountRunes("launch")  // 6
//	CountRunes("запуск")  // 6
//	CountRunes("")        // 0
func CountRunes(text string) int {
	return utf8.RuneCountInString(text)
}

// Truncate shortens text to at most limit runes, appending an ellipsis when cut.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if CountRunes(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
