package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/hollowaylabs/gatehouse/internal/admission"
	"github.com/hollowaylabs/gatehouse/internal/ratelimit"
)

func newAdmissionRouter(t *testing.T, opts admission.Options, limit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := admission.NewEngine(
		nil,
		ratelimit.NewMemoryCounter(limit, time.Minute),
		admission.NoopVpnLookup{},
		nil,
		nil,
		nil,
		opts,
	)

	router := gin.New()
	router.Use(Admission(engine, "/api/health"))
	router.GET("/", func(c *gin.Context) {
		score, _ := c.Get("risk_score")
		c.JSON(http.StatusOK, gin.H{"risk_score": score})
	})
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func browserGet(path string) *http.Request {
	r := httptest.NewRequest("GET", path, nil)
	r.RemoteAddr = "203.0.113.10:1234"
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	r.Header.Set("Accept", "text/html")
	r.Header.Set("Accept-Language", "en-US")
	r.Header.Set("Accept-Encoding", "gzip")
	return r
}

func TestAdmission_CleanRequestPasses(t *testing.T) {
	router := newAdmissionRouter(t, admission.Options{}, 100)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, browserGet("/"))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmission_GeoBlockedGets403(t *testing.T) {
	router := newAdmissionRouter(t, admission.Options{BlockedCountries: []string{"KP"}}, 100)

	r := browserGet("/")
	r.Header.Set("CF-IPCountry", "KP")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Request blocked")
	// No score or signal breakdown leaks to the caller.
	assert.NotContains(t, w.Body.String(), "risk")
}

func TestAdmission_RateLimitedGets429WithRetryAfter(t *testing.T) {
	router := newAdmissionRouter(t, admission.Options{}, 1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, browserGet("/"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, browserGet("/"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestAdmission_AttackRequestBlocked(t *testing.T) {
	router := newAdmissionRouter(t, admission.Options{}, 100)

	r := httptest.NewRequest("GET", "/?q=union+select+1,2,3", nil)
	r.RemoteAddr = "203.0.113.10:1234"
	r.Header.Set("User-Agent", "curl/7.64.1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdmission_ExemptPathSkipsPipeline(t *testing.T) {
	router := newAdmissionRouter(t, admission.Options{BlockedCountries: []string{"KP"}}, 100)

	r := browserGet("/api/health")
	r.Header.Set("CF-IPCountry", "KP")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmission_BodyStillReadableByHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := admission.NewEngine(nil, nil, admission.NoopVpnLookup{}, nil, nil, nil, admission.Options{})

	router := gin.New()
	router.Use(Admission(engine))
	router.POST("/echo", func(c *gin.Context) {
		data, err := c.GetRawData()
		assert.NoError(t, err)
		c.String(http.StatusOK, string(data))
	})

	body := strings.Repeat("x", 3000) // larger than the preview limit
	r := httptest.NewRequest("POST", "/echo", strings.NewReader(body))
	r.RemoteAddr = "203.0.113.10:1234"
	r.Header.Set("User-Agent", "Mozilla/5.0")
	r.Header.Set("Accept", "text/html")
	r.Header.Set("Accept-Language", "en-US")
	r.Header.Set("Accept-Encoding", "gzip")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String())
}

func TestAdmission_RiskScoreExposedToHandlers(t *testing.T) {
	router := newAdmissionRouter(t, admission.Options{}, 100)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, browserGet("/"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"risk_score":0`)
}
