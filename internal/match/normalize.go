package match

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Lower lower-cases text for vocabulary lookups. French accented letters are
// folded by unicode rules, so "DURÉE" becomes "durée".
func Lower(text string) string {
	return strings.ToLower(text)
}

// CharLen returns the length of text in characters rather than bytes.
func CharLen(text string) int {
	return utf8.RuneCountInString(text)
}

// Truncate keeps at most limit characters of text without splitting a
// multi-byte character.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	count := 0
	for idx := range text {
		if count == limit {
			return text[:idx]
		}
		count++
	}
	return text
}

// RuneOffset converts a byte offset into text to a character offset.
func RuneOffset(text string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(text) {
		byteOffset = len(text)
	}
	return utf8.RuneCountInString(text[:byteOffset])
}

// Snippet collapses whitespace runs and shortens text for log lines.
func Snippet(text string, limit int) string {
	collapsed := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if CharLen(collapsed) <= limit {
		return collapsed
	}
	return Truncate(collapsed, limit) + "..."
}
