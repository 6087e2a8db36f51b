package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		limit    int
		expected string
	}{
		{"short text unchanged", "Short", 10, "Short"},
		{"exact length unchanged", "ExactlyTen", 10, "ExactlyTen"},
		{"one over", "ElevenChars", 10, "ElevenCha…"},
		{"long title", "Bohemian Rhapsody - Remastered 2011", 25, "Bohemian Rhapsody - Rema…"},
		{"unicode counted by rune", "Hello 世界 🎵 Music", 10, "Hello 世界 …"},
		{"empty text", "", 10, ""},
		{"limit one", "abc", 1, "…"},
		{"zero limit", "Some text", 0, ""},
		{"negative limit", "Some text", -3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.text, tt.limit))
		})
	}
}

// TestTruncateProperties checks length and prefix for a range of limits
func TestTruncateProperties(t *testing.T) {
	inputs := []string{
		"No Media Player active...",
		"Waiting for a Media Player...",
		"日本語のタイトルがとても長い場合",
		"a",
	}

	for _, in := range inputs {
		n := utf8.RuneCountInString(in)
		for limit := 1; limit <= n+2; limit++ {
			got := Truncate(in, limit)
			if n <= limit {
				assert.Equal(t, in, got, "limit %d", limit)
				continue
			}

			runes := []rune(got)
			assert.Len(t, runes, limit, "limit %d", limit)
			assert.Equal(t, Ellipsis, runes[limit-1], "limit %d", limit)
			assert.True(t, strings.HasPrefix(in, string(runes[:limit-1])), "limit %d", limit)
		}
	}
}
