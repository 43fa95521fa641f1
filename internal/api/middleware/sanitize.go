package middleware

import (
	"net/http"
	"strings"

	"github.com/hollowaylabs/gatehouse/internal/util"
)

const maxLoggedValueLen = 200

// Headers whose values never belong in a log line.
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"proxy-authorization": {},
	"x-api-key":           {},
	"x-auth-token":        {},
}

// SanitizeHeaders returns a copy of h safe for logging: sensitive headers
// are redacted, everything else is stripped of control characters and
// truncated.
func SanitizeHeaders(h http.Header) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for key, vals := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(key)]; ok {
			out[key] = []string{"<redacted>"}
			continue
		}
		clean := make([]string, 0, len(vals))
		for _, v := range vals {
			clean = append(clean, util.Truncate(util.SanitizeForLog(v), maxLoggedValueLen))
		}
		out[key] = clean
	}
	return out
}

// SanitizePath prepares a request path for logging. The query string is
// dropped entirely since it may carry attack payloads or secrets.
func SanitizePath(p string) string {
	if i := strings.Index(p, "?"); i != -1 {
		p = p[:i]
	}
	return util.Truncate(util.SanitizeForLog(p), maxLoggedValueLen)
}
