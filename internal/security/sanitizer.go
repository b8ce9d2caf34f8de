package security

import (
	"fmt"
	"log/slog"
	"regexp"
)

const redacted = "***REDACTED***"

// Sanitizer redacts secrets from text before it reaches a chat or a log line.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

func NewSanitizer(patterns []string) (*Sanitizer, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid security pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}

	return &Sanitizer{
		patterns: compiled,
	}, nil
}

func (s *Sanitizer) Sanitize(text string) string {
	result := text
	changed := false

	for _, pattern := range s.patterns {
		if pattern.MatchString(result) {
			result = pattern.ReplaceAllString(result, redacted)
			changed = true
		}
	}

	if changed {
		slog.Debug("Security: redacted sensitive information")
	}

	return result
}

var DefaultPatterns = []string{
	`api[_-]?key[s]?\s*[:=]\s*["']?([^"'\s&]+)`,
	`token[s]?\s*[:=]\s*["']?([^"'\s&]+)`,
	`password[s]?\s*[:=]\s*["']?([^"'\s&]+)`,
	`secret[s]?\s*[:=]\s*["']?([^"'\s&]+)`,
	// Telegram bot token, also as it appears in api.telegram.org/bot<token>/ URLs
	`\d{6,12}:[A-Za-z0-9_-]{30,}`,
	`eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
}

// MaskSecret keeps the first and last four characters of s.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
