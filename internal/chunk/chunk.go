// Package chunk splits long text into line-aligned pieces that fit a message size limit.
package chunk

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultLimit is Telegram's maximum message length.
const DefaultLimit = 4096

// ErrInvalidLimit is returned by ValidateLimit for a non-positive limit.
var ErrInvalidLimit = errors.New("chunk limit must be positive")

// ValidateLimit reports whether limit can be passed to Split.
func ValidateLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return nil
}

// Split breaks text into chunks of at most limit characters without ever
// cutting a line in half. Lines are packed greedily in their original order.
//
// Text that already fits is returned as a single chunk, so "" yields [""].
// A line longer than limit becomes a chunk of its own and exceeds limit.
// Length is counted in runes.
func Split(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen, currentLines := 0, 0

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf8.RuneCountInString(line)

		if currentLines > 0 && currentLen+lineLen+1 > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen, currentLines = 0, 0
		}

		if currentLines > 0 {
			current.WriteByte('\n')
			currentLen++
		}
		current.WriteString(line)
		currentLen += lineLen
		currentLines++
	}

	if currentLines > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// Len returns the length of s in the unit Split measures.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
