package admission

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hollowaylabs/gatehouse/internal/logger"
	"github.com/hollowaylabs/gatehouse/internal/metrics"
	"github.com/hollowaylabs/gatehouse/internal/models"
	"github.com/hollowaylabs/gatehouse/internal/ratelimit"
)

// Weights for stateful signal contributions.
const (
	relayWeight      = 30
	vpnWeight        = 20
	automationWeight = 30
	scanWeight       = 25
	rotatingUAWeight = 20

	// An address must stick to this few user agents for high volume to
	// count as automation rather than a shared NAT.
	automationUAMax = 2
)

// RelayChecker answers membership tests against the known-relay set.
type RelayChecker interface {
	IsKnownRelay(address string) bool
}

// ThreatIntel reads the accumulated risk score for an address.
type ThreatIntel interface {
	GetScore(address string) int
}

// BehaviorAnalyzer summarizes recent request history for an address.
type BehaviorAnalyzer interface {
	Analyze(address string, lookback time.Duration) (BehaviorStats, error)
}

// EventSink accepts security events for asynchronous persistence. Record
// must not block the caller.
type EventSink interface {
	Record(event models.SecurityEvent)
}

// Options tunes thresholds and policy. Zero thresholds fall back to the
// documented defaults so a bare Options{} behaves sensibly.
type Options struct {
	BlockedCountries []string
	// RelayHardBlock rejects relay traffic outright instead of adding a
	// weighted contribution.
	RelayHardBlock   bool
	NotableThreshold int // default 30
	BlockThreshold   int // default 80

	BehaviorLookback      time.Duration // default 10m
	BehaviorMaxRequests   int           // default 200
	BehaviorMaxPaths      int           // default 50
	BehaviorMaxUserAgents int           // default 10
}

func (o Options) withDefaults() Options {
	if o.NotableThreshold == 0 {
		o.NotableThreshold = 30
	}
	if o.BlockThreshold == 0 {
		o.BlockThreshold = 80
	}
	if o.BehaviorLookback == 0 {
		o.BehaviorLookback = 10 * time.Minute
	}
	if o.BehaviorMaxRequests == 0 {
		o.BehaviorMaxRequests = 200
	}
	if o.BehaviorMaxPaths == 0 {
		o.BehaviorMaxPaths = 50
	}
	if o.BehaviorMaxUserAgents == 0 {
		o.BehaviorMaxUserAgents = 10
	}
	return o
}

// Engine combines every signal source into one decision per request.
// Evaluation order: geo short-circuit, rate limit, then additive scoring.
// Any dependency failure degrades to a zero contribution; the engine never
// turns an internal error into a rejected request.
type Engine struct {
	relay     RelayChecker
	limiter   ratelimit.Counter
	vpn       VpnLookup
	intel     ThreatIntel
	behavior  BehaviorAnalyzer
	events    EventSink
	opts      Options
	countries map[string]struct{}
}

// NewEngine wires the signal sources into an Engine. Any dependency may be
// nil; its signal then contributes nothing.
func NewEngine(relay RelayChecker, limiter ratelimit.Counter, vpn VpnLookup, intel ThreatIntel, behavior BehaviorAnalyzer, events EventSink, opts Options) *Engine {
	opts = opts.withDefaults()
	countries := make(map[string]struct{}, len(opts.BlockedCountries))
	for _, c := range opts.BlockedCountries {
		countries[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &Engine{
		relay:     relay,
		limiter:   limiter,
		vpn:       vpn,
		intel:     intel,
		behavior:  behavior,
		events:    events,
		opts:      opts,
		countries: countries,
	}
}

// Decide evaluates one request and returns the admission decision. Side
// effects (event log, threat intel) are handed to the event sink and never
// block the return.
func (e *Engine) Decide(ctx context.Context, req RequestContext) Decision {
	metrics.IncDecision()

	if _, denied := e.countries[strings.ToUpper(req.Country)]; denied && req.Country != "" {
		d := Decision{Allowed: false, RiskScore: 100, Reason: ReasonGeoBlocked}
		e.record(req, models.EventBlocked, d, false, false)
		metrics.IncBlocked()
		return d
	}

	if e.limiter != nil {
		res, err := e.limiter.Consume(ctx, req.Address)
		if err != nil {
			logger.WithFields(map[string]interface{}{"address": req.Address}).
				WithError(err).Warn("rate limiter unavailable, failing open")
		} else if !res.Allowed {
			d := Decision{Allowed: false, RiskScore: 50, Reason: ReasonRateLimited, RetryAfter: res.RetryAfter}
			e.record(req, models.EventRateLimited, d, false, false)
			metrics.IncRateLimited()
			return d
		}
	}

	var signals []Signal

	isRelay := e.relay != nil && e.relay.IsKnownRelay(req.Address)
	if isRelay {
		if e.opts.RelayHardBlock {
			d := Decision{Allowed: false, RiskScore: 100, Reason: ReasonRelayBlock}
			e.record(req, models.EventBlocked, d, true, false)
			metrics.IncBlocked()
			return d
		}
		signals = append(signals, Signal{Name: "relay", Contribution: relayWeight})
	}

	isVpn := false
	if e.vpn != nil {
		if result, err := e.vpn.Lookup(ctx, req.Address); err != nil {
			logger.WithFields(map[string]interface{}{"address": req.Address}).
				WithError(err).Debug("vpn lookup failed, signal contributes zero")
		} else if result.IsVpn || result.IsProxy {
			isVpn = true
			signals = append(signals, Signal{Name: "vpn", Contribution: vpnWeight})
		}
	}

	signals = append(signals, DetectBot(req)...)
	injectionSignals := DetectInjection(req)
	signals = append(signals, injectionSignals...)

	if e.intel != nil {
		if score := e.intel.GetScore(req.Address); score > 0 {
			signals = append(signals, Signal{Name: "threat_intel", Contribution: score})
		}
	}

	if e.behavior != nil {
		stats, err := e.behavior.Analyze(req.Address, e.opts.BehaviorLookback)
		if err != nil {
			logger.WithFields(map[string]interface{}{"address": req.Address}).
				WithError(err).Warn("behavior analysis failed, signal contributes zero")
		} else {
			if stats.RequestCount > e.opts.BehaviorMaxRequests && stats.UniqueUserAgents <= automationUAMax {
				signals = append(signals, Signal{Name: "automation", Contribution: automationWeight})
			}
			if stats.UniquePaths > e.opts.BehaviorMaxPaths {
				signals = append(signals, Signal{Name: "scanning", Contribution: scanWeight})
			}
			if stats.UniqueUserAgents > e.opts.BehaviorMaxUserAgents {
				signals = append(signals, Signal{Name: "rotating_ua", Contribution: rotatingUAWeight})
			}
		}
	}

	score := 0
	for _, s := range signals {
		score += s.Contribution
	}
	score = clamp(score)

	if score >= e.opts.BlockThreshold {
		eventType := models.EventBlocked
		if len(injectionSignals) > 0 {
			eventType = models.EventAttack
		}
		d := Decision{Allowed: false, RiskScore: score, Reason: ReasonHighRisk, Signals: signals}
		e.record(req, eventType, d, isRelay, isVpn)
		metrics.IncBlocked()
		return d
	}

	d := Decision{Allowed: true, RiskScore: score, Signals: signals}
	if score >= e.opts.NotableThreshold {
		e.record(req, models.EventSuspicious, d, isRelay, isVpn)
		metrics.IncSuspicious()
	}
	return d
}

func (e *Engine) record(req RequestContext, eventType string, d Decision, isRelay, isVpn bool) {
	if e.events == nil {
		return
	}

	details, err := json.Marshal(struct {
		Reason  string   `json:"reason,omitempty"`
		Signals []Signal `json:"signals,omitempty"`
	}{Reason: d.Reason, Signals: d.Signals})
	if err != nil {
		details = []byte("{}")
	}

	e.events.Record(models.SecurityEvent{
		Address:   req.Address,
		UserAgent: req.UserAgent,
		EventType: eventType,
		Path:      req.Path,
		Country:   req.Country,
		IsRelay:   isRelay,
		IsVpn:     isVpn,
		RiskScore: d.RiskScore,
		Details:   string(details),
	})
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
