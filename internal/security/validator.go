package security

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxMessageLength bounds a single chat message in runes
const DefaultMaxMessageLength = 4000

// MessageSanitizer normalizes chat text before it is stored or sent to a model
type MessageSanitizer struct {
	maxLength    int
	controlChars *regexp.Regexp
	blankLines   *regexp.Regexp
}

// NewMessageSanitizer creates a sanitizer; maxLength <= 0 uses the default.
func NewMessageSanitizer(maxLength int) *MessageSanitizer {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	return &MessageSanitizer{
		maxLength: maxLength,
		// C0 controls except tab and newline, DEL, and C1 controls
		controlChars: regexp.MustCompile("[\x00-\x08\x0B-\x1F\x7F\u0080-\u009F]"),
		blankLines:   regexp.MustCompile(`\n{3,}`),
	}
}

// ValidationError represents a rejected message
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Sanitize returns the cleaned text or a ValidationError
func (s *MessageSanitizer) Sanitize(text string) (string, error) {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = s.controlChars.ReplaceAllString(text, "")
	text = s.blankLines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if text == "" {
		return "", &ValidationError{Message: "message is empty"}
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return "", &ValidationError{Message: "message is too long"}
	}

	return text, nil
}
