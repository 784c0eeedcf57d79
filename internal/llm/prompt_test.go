package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSearchPrompt(t *testing.T) {
	prompt := BuildSearchPrompt("how do refunds work?", []string{"Refund policy", "FAQ"}, "Refunds take 5 days.")

	assert.Contains(t, prompt, `User question: "how do refunds work?"`)
	assert.Contains(t, prompt, "Found results in Refund policy, FAQ.")
	assert.Contains(t, prompt, "Refunds take 5 days.")
}

func TestBuildSearchPrompt_NoTitles(t *testing.T) {
	prompt := BuildSearchPrompt("q", nil, "")
	assert.NotContains(t, prompt, "Found results in")
}

func TestCleanReply(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Thanks for reaching out.", "Thanks for reaching out."},
		{"whitespace", "  \n Hello \n", "Hello"},
		{"double quotes", `"Hello there"`, "Hello there"},
		{"single quotes", `'Hello there'`, "Hello there"},
		{"inner quotes kept", `He said "hi"`, `He said "hi"`},
		{"single char", `"`, `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanReply(tt.input))
		})
	}
}
