package opentripmap

import (
	"strings"
	"unicode"
)

// MaxDescriptionChars is the longest description kept, in characters.
const MaxDescriptionChars = 500

// truncateDescription shortens s to at most limit characters by dropping
// trailing sentences. Text without a usable sentence break is cut at the
// last word boundary instead.
func truncateDescription(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	cut := -1
	for i := 0; i < limit && i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			cut = i + 1
		}
	}
	if cut > 0 {
		return strings.TrimSpace(string(runes[:cut]))
	}

	window := runes[:limit]
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return strings.TrimSpace(string(window[:i]))
		}
	}
	return string(window)
}
