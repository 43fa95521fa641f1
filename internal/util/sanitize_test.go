package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForLog(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"clean string", "Hello World", "Hello World"},
		{"newline", "Hello\nWorld", "Hello World"},
		{"crlf", "Hello\r\nWorld", "Hello World"},
		{"multiple newlines", "Hello\nWorld\nTest", "Hello World Test"},
		{"control characters", "Hello\x00\x01\x1FWorld", "Hello World"},
		{"del character", "Hello\x7FWorld", "Hello World"},
		{"mixed control chars", "Line1\r\nLine2\nLine3\x00\x01\x7F", "Line1 Line2 Line3 "},
		{"tab", "Hello\tWorld", "Hello World"},
		{"only control chars", "\x00\x01\x02\x1F\x7F", " "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeForLog(tc.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("", 5))
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abcde", Truncate("abcde", 5))
	assert.Equal(t, "abcde", Truncate("abcdef", 5))
}
