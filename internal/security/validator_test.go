package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Rrens/support-widget/internal/security"
)

func TestMessageSanitizer_Sanitize(t *testing.T) {
	sanitizer := security.NewMessageSanitizer(20)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "hello", "hello", false},
		{"trimmed", "  hello  \n", "hello", false},
		{"crlf", "a\r\nb", "a\nb", false},
		{"control chars", "he\x00ll\x07o", "hello", false},
		{"tab kept", "a\tb", "a\tb", false},
		{"blank lines collapsed", "a\n\n\n\n\nb", "a\n\nb", false},
		{"unicode", "héllo 👋", "héllo 👋", false},
		{"invalid utf8", "ok\xff", "ok", false},

		{"empty", "", "", true},
		{"whitespace", " \n\t ", "", true},
		{"only controls", "\x01\x02", "", true},
		{"too long", strings.Repeat("x", 21), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizer.Sanitize(tt.input)
			if tt.wantErr {
				var verr *security.ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessageSanitizer_DefaultLength(t *testing.T) {
	sanitizer := security.NewMessageSanitizer(0)

	_, err := sanitizer.Sanitize(strings.Repeat("x", security.DefaultMaxMessageLength))
	assert.NoError(t, err)

	_, err = sanitizer.Sanitize(strings.Repeat("x", security.DefaultMaxMessageLength+1))
	assert.Error(t, err)
}
