package middleware

import (
	"net"
	"net/http"
	"strings"
)

// Proxy headers consulted in order of trust before falling back to the
// transport-level peer address.
var addressHeaders = []string{"X-Real-IP", "CF-Connecting-IP"}

// ClientAddress resolves the original client IP: trusted proxy headers
// first, then the leftmost X-Forwarded-For hop, then RemoteAddr. Returns an
// empty string only when nothing parses as an IP.
func ClientAddress(r *http.Request) string {
	for _, header := range addressHeaders {
		if ip := normalizeAddress(r.Header.Get(header)); ip != "" {
			return ip
		}
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// The first entry is the originating client; later hops are proxies.
		first := strings.SplitN(forwarded, ",", 2)[0]
		if ip := normalizeAddress(first); ip != "" {
			return ip
		}
	}

	return normalizeAddress(r.RemoteAddr)
}

func normalizeAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}

	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	return ip.String()
}
