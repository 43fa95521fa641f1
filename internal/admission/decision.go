package admission

import (
	"time"
)

// Block reasons surfaced to the HTTP layer. The layer maps rate limiting to
// 429 and everything else to 403; no score breakdown ever leaves the process.
const (
	ReasonGeoBlocked  = "Geographic restriction"
	ReasonRateLimited = "Rate limit exceeded"
	ReasonRelayBlock  = "Anonymizing relay"
	ReasonHighRisk    = "High risk score"
)

// Signal is one named contribution to the risk score.
type Signal struct {
	Name         string `json:"name"`
	Contribution int    `json:"contribution"`
}

// Decision is the immutable outcome of evaluating one request.
type Decision struct {
	Allowed    bool
	RiskScore  int
	Reason     string
	RetryAfter time.Duration
	Signals    []Signal
}

// BehaviorStats summarizes recent request history for one address.
type BehaviorStats struct {
	RequestCount     int
	UniqueUserAgents int
	UniquePaths      int
}
