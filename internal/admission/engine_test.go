package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hollowaylabs/gatehouse/internal/models"
	"github.com/hollowaylabs/gatehouse/internal/ratelimit"
)

type stubRelay struct{ addrs map[string]bool }

func (s stubRelay) IsKnownRelay(address string) bool { return s.addrs[address] }

type stubIntel struct{ scores map[string]int }

func (s stubIntel) GetScore(address string) int { return s.scores[address] }

type stubBehavior struct {
	stats BehaviorStats
	err   error
}

func (s stubBehavior) Analyze(string, time.Duration) (BehaviorStats, error) {
	return s.stats, s.err
}

type stubVpn struct {
	result VpnResult
	err    error
}

func (s stubVpn) Lookup(context.Context, string) (VpnResult, error) { return s.result, s.err }

type recordingSink struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (r *recordingSink) Record(event models.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) all() []models.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SecurityEvent(nil), r.events...)
}

type failingLimiter struct{}

func (failingLimiter) Consume(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("backend unavailable")
}

func newTestEngine(sink *recordingSink, opts Options) *Engine {
	return NewEngine(
		stubRelay{},
		ratelimit.NewMemoryCounter(1000, time.Minute),
		NoopVpnLookup{},
		stubIntel{},
		stubBehavior{},
		sink,
		opts,
	)
}

func TestEngine_CleanRequestScoresZero(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(sink, Options{})

	d := engine.Decide(context.Background(), browserRequest("/articles/endgames"))
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.RiskScore)
	assert.Empty(t, d.Reason)
	assert.Empty(t, sink.all())
}

func TestEngine_GeoBlockShortCircuits(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(
		stubRelay{addrs: map[string]bool{"203.0.113.10": true}},
		failingLimiter{}, // would log if reached; geo wins first
		stubVpn{err: errors.New("never called this far")},
		stubIntel{scores: map[string]int{"203.0.113.10": 99}},
		stubBehavior{},
		sink,
		Options{BlockedCountries: []string{"KP", "IR"}},
	)

	// Everything else about the request is hostile too; country alone decides.
	req := browserRequest("/")
	req.Country = "KP"
	req.UserAgent = "curl/7.64.1"
	req.Query = "id=1 union select 1,2,3"

	d := engine.Decide(context.Background(), req)
	assert.False(t, d.Allowed)
	assert.Equal(t, 100, d.RiskScore)
	assert.Equal(t, ReasonGeoBlocked, d.Reason)

	events := sink.all()
	assert.Len(t, events, 1)
	assert.Equal(t, models.EventBlocked, events[0].EventType)
	assert.Equal(t, "KP", events[0].Country)
}

func TestEngine_GeoBlockIsCaseInsensitive(t *testing.T) {
	engine := newTestEngine(&recordingSink{}, Options{BlockedCountries: []string{"kp"}})

	req := browserRequest("/")
	req.Country = "KP"
	d := engine.Decide(context.Background(), req)
	assert.False(t, d.Allowed)
}

func TestEngine_RateLimitExceeded(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(
		stubRelay{},
		ratelimit.NewMemoryCounter(2, time.Minute),
		NoopVpnLookup{},
		stubIntel{},
		stubBehavior{},
		sink,
		Options{},
	)

	req := browserRequest("/")
	for i := 0; i < 2; i++ {
		d := engine.Decide(context.Background(), req)
		assert.True(t, d.Allowed)
	}

	d := engine.Decide(context.Background(), req)
	assert.False(t, d.Allowed)
	assert.Equal(t, 50, d.RiskScore)
	assert.Equal(t, ReasonRateLimited, d.Reason)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	events := sink.all()
	assert.Len(t, events, 1)
	assert.Equal(t, models.EventRateLimited, events[0].EventType)
}

func TestEngine_LimiterErrorFailsOpen(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(stubRelay{}, failingLimiter{}, NoopVpnLookup{}, stubIntel{}, stubBehavior{}, sink, Options{})

	d := engine.Decide(context.Background(), browserRequest("/"))
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.RiskScore)
}

func TestEngine_ScriptedAttackerBlocked(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(sink, Options{})

	// curl UA (+15), two missing browser headers (+20), SQL pattern (+50).
	req := browserRequest("/search")
	req.UserAgent = "curl/7.64.1"
	req.Headers.Del("Accept-Language")
	req.Headers.Del("Accept-Encoding")
	req.Query = "q=union select 1,2,3"

	d := engine.Decide(context.Background(), req)
	assert.False(t, d.Allowed)
	assert.Equal(t, 85, d.RiskScore)
	assert.Equal(t, ReasonHighRisk, d.Reason)

	events := sink.all()
	assert.Len(t, events, 1)
	assert.Equal(t, models.EventAttack, events[0].EventType)
	assert.Equal(t, 85, events[0].RiskScore)
}

func TestEngine_BorderlineSuspiciousAllowedWithEvent(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(
		stubRelay{},
		ratelimit.NewMemoryCounter(1000, time.Minute),
		NoopVpnLookup{},
		stubIntel{scores: map[string]int{"203.0.113.10": 35}},
		stubBehavior{},
		sink,
		Options{},
	)

	d := engine.Decide(context.Background(), browserRequest("/"))
	assert.True(t, d.Allowed)
	assert.Equal(t, 35, d.RiskScore)

	events := sink.all()
	assert.Len(t, events, 1)
	assert.Equal(t, models.EventSuspicious, events[0].EventType)
}

func TestEngine_RelayAsSignalContributesThirty(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(
		stubRelay{addrs: map[string]bool{"203.0.113.10": true}},
		ratelimit.NewMemoryCounter(1000, time.Minute),
		NoopVpnLookup{},
		stubIntel{},
		stubBehavior{},
		sink,
		Options{},
	)

	d := engine.Decide(context.Background(), browserRequest("/"))
	assert.True(t, d.Allowed)
	assert.Equal(t, 30, d.RiskScore)

	events := sink.all()
	assert.Len(t, events, 1)
	assert.Equal(t, models.EventSuspicious, events[0].EventType)
	assert.True(t, events[0].IsRelay)
}

func TestEngine_RelayHardBlockPolicy(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(
		stubRelay{addrs: map[string]bool{"203.0.113.10": true}},
		ratelimit.NewMemoryCounter(1000, time.Minute),
		NoopVpnLookup{},
		stubIntel{},
		stubBehavior{},
		sink,
		Options{RelayHardBlock: true},
	)

	d := engine.Decide(context.Background(), browserRequest("/"))
	assert.False(t, d.Allowed)
	assert.Equal(t, 100, d.RiskScore)
	assert.Equal(t, ReasonRelayBlock, d.Reason)

	events := sink.all()
	assert.Len(t, events, 1)
	assert.Equal(t, models.EventBlocked, events[0].EventType)
	assert.True(t, events[0].IsRelay)
}

func TestEngine_VpnSignal(t *testing.T) {
	engine := NewEngine(
		stubRelay{},
		ratelimit.NewMemoryCounter(1000, time.Minute),
		stubVpn{result: VpnResult{IsVpn: true}},
		stubIntel{},
		stubBehavior{},
		&recordingSink{},
		Options{},
	)

	d := engine.Decide(context.Background(), browserRequest("/"))
	assert.True(t, d.Allowed)
	assert.Equal(t, 20, d.RiskScore)
}

func TestEngine_VpnLookupErrorContributesZero(t *testing.T) {
	engine := NewEngine(
		stubRelay{},
		ratelimit.NewMemoryCounter(1000, time.Minute),
		stubVpn{err: errors.New("timeout")},
		stubIntel{},
		stubBehavior{},
		&recordingSink{},
		Options{},
	)

	d := engine.Decide(context.Background(), browserRequest("/"))
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.RiskScore)
}

func TestEngine_BehaviorIndicators(t *testing.T) {
	cases := []struct {
		name  string
		stats BehaviorStats
		want  int
	}{
		{"quiet", BehaviorStats{RequestCount: 10, UniqueUserAgents: 1, UniquePaths: 5}, 0},
		{"automation", BehaviorStats{RequestCount: 250, UniqueUserAgents: 1, UniquePaths: 5}, automationWeight},
		{"scanning", BehaviorStats{RequestCount: 60, UniqueUserAgents: 3, UniquePaths: 60}, scanWeight},
		{"rotating ua", BehaviorStats{RequestCount: 60, UniqueUserAgents: 12, UniquePaths: 5}, rotatingUAWeight},
		{"scan with rotating ua", BehaviorStats{RequestCount: 60, UniqueUserAgents: 12, UniquePaths: 60}, scanWeight + rotatingUAWeight},
		{"high volume many uas is not automation", BehaviorStats{RequestCount: 250, UniqueUserAgents: 5, UniquePaths: 5}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(
				stubRelay{},
				ratelimit.NewMemoryCounter(1000, time.Minute),
				NoopVpnLookup{},
				stubIntel{},
				stubBehavior{stats: tc.stats},
				&recordingSink{},
				Options{},
			)

			d := engine.Decide(context.Background(), browserRequest("/"))
			assert.Equal(t, tc.want, d.RiskScore)
		})
	}
}

func TestEngine_BehaviorErrorContributesZero(t *testing.T) {
	engine := NewEngine(
		stubRelay{},
		ratelimit.NewMemoryCounter(1000, time.Minute),
		NoopVpnLookup{},
		stubIntel{},
		stubBehavior{err: errors.New("query failed")},
		&recordingSink{},
		Options{},
	)

	d := engine.Decide(context.Background(), browserRequest("/"))
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.RiskScore)
}

func TestEngine_ScoreClampedAtHundred(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(
		stubRelay{addrs: map[string]bool{"203.0.113.10": true}},
		ratelimit.NewMemoryCounter(1000, time.Minute),
		stubVpn{result: VpnResult{IsProxy: true}},
		stubIntel{scores: map[string]int{"203.0.113.10": 90}},
		stubBehavior{},
		sink,
		Options{},
	)

	d := engine.Decide(context.Background(), browserRequest("/"))
	assert.False(t, d.Allowed)
	assert.Equal(t, 100, d.RiskScore)
}

func TestEngine_NilSinkDoesNotPanic(t *testing.T) {
	engine := NewEngine(stubRelay{}, nil, NoopVpnLookup{}, stubIntel{scores: map[string]int{"203.0.113.10": 95}}, stubBehavior{}, nil, Options{})

	d := engine.Decide(context.Background(), browserRequest("/"))
	assert.False(t, d.Allowed)
}
