package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Truncate shortens text to at most limit runes, marking the cut with an
// ellipsis. Used for table cells in terminal output.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}

var thousands = message.NewPrinter(language.English)

// Thousands formats n with comma separators.
func Thousands(n int64) string {
	return thousands.Sprintf("%d", n)
}
