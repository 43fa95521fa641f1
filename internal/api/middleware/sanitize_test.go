package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer token")
	h.Set("Cookie", "session=abc")
	h.Set("User-Agent", "Mozilla/5.0\r\nX-Injected: yes")
	h.Set("Accept", strings.Repeat("a", 300))

	out := SanitizeHeaders(h)

	assert.Equal(t, []string{"<redacted>"}, out["Authorization"])
	assert.Equal(t, []string{"<redacted>"}, out["Cookie"])
	assert.NotContains(t, out["User-Agent"][0], "\n")
	assert.Len(t, out["Accept"][0], maxLoggedValueLen)
}

func TestSanitizeHeadersNil(t *testing.T) {
	assert.Nil(t, SanitizeHeaders(nil))
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/search", SanitizePath("/search?q=union+select"))
	assert.Equal(t, "/a b", SanitizePath("/a\nb"))
	assert.Len(t, SanitizePath("/"+strings.Repeat("x", 300)), maxLoggedValueLen)
}
