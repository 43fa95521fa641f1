// Package admission scores inbound requests and decides whether to admit
// them before any application handler runs.
package admission

import (
	"net/http"
	"time"
)

// RequestContext is the immutable snapshot of one inbound request that the
// pipeline evaluates. Built once per request by the HTTP layer.
type RequestContext struct {
	Address     string
	UserAgent   string
	Method      string
	Path        string
	Query       string
	Headers     http.Header
	Country     string
	BodyPreview string
	Timestamp   time.Time
}
