package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	decisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_decisions_total",
		Help: "Total number of requests evaluated by the admission pipeline",
	})
	blockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_blocked_total",
		Help: "Total number of requests blocked by the admission pipeline",
	})
	suspiciousTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_suspicious_total",
		Help: "Total number of allowed requests flagged as suspicious",
	})
	rateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
	relayRefreshSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_relay_refresh_success_total",
		Help: "Total number of successful relay list refreshes",
	})
	relayRefreshFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_relay_refresh_failure_total",
		Help: "Total number of failed relay list refreshes",
	})
	eventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_events_dropped_total",
		Help: "Total number of security events dropped because the write queue was full",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		decisionsTotal,
		blockedTotal,
		suspiciousTotal,
		rateLimitedTotal,
		relayRefreshSuccessTotal,
		relayRefreshFailureTotal,
		eventsDroppedTotal,
	)
}

// IncDecision increments the evaluated requests counter.
func IncDecision() { decisionsTotal.Inc() }

// IncBlocked increments the blocked requests counter.
func IncBlocked() { blockedTotal.Inc() }

// IncSuspicious increments the suspicious requests counter.
func IncSuspicious() { suspiciousTotal.Inc() }

// IncRateLimited increments the rate-limited requests counter.
func IncRateLimited() { rateLimitedTotal.Inc() }

// IncRelayRefreshSuccess increments the successful relay refresh counter.
func IncRelayRefreshSuccess() { relayRefreshSuccessTotal.Inc() }

// IncRelayRefreshFailure increments the failed relay refresh counter.
func IncRelayRefreshFailure() { relayRefreshFailureTotal.Inc() }

// IncEventDropped increments the dropped security event counter.
func IncEventDropped() { eventsDroppedTotal.Inc() }
