// Package ratelimit implements fixed-window request counting per key.
//
// Windows reset rather than slide, so the classic burst at a window boundary
// (up to 2x the limit across two adjacent windows) is accepted behavior.
package ratelimit

import (
	"context"
	"time"
)

// Result reports the outcome of a Consume call.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Counter admits or rejects a request for a key. Implementations must make
// the increment-and-compare for a given key atomic across concurrent callers
// without serializing distinct keys.
type Counter interface {
	Consume(ctx context.Context, key string) (Result, error)
}
