package middleware

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hollowaylabs/gatehouse/internal/admission"
)

// bodyPreviewLimit bounds how much of the request body the injection
// detector sees. The rest streams through to the handler untouched.
const bodyPreviewLimit = 1024

// Country headers set by the upstream edge (Cloudflare or equivalent).
var countryHeaders = []string{"CF-IPCountry", "X-Country-Code"}

// Admission returns middleware that runs every request through the decision
// engine before any handler. Blocked requests get a short, non-revealing
// error body; the computed score is exposed to downstream handlers via the
// "risk_score" context key but never to the client.
func Admission(engine *admission.Engine, exemptPaths ...string) gin.HandlerFunc {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := exempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		req := buildRequestContext(c)
		decision := engine.Decide(c.Request.Context(), req)

		if !decision.Allowed {
			if decision.Reason == admission.ReasonRateLimited {
				seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				c.Header("Retry-After", strconv.Itoa(seconds))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Request blocked"})
			return
		}

		c.Set("risk_score", decision.RiskScore)
		c.Next()
	}
}

func buildRequestContext(c *gin.Context) admission.RequestContext {
	var preview string
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		data, _ := io.ReadAll(io.LimitReader(c.Request.Body, bodyPreviewLimit))
		preview = string(data)
		c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), c.Request.Body))
	}

	return admission.RequestContext{
		Address:     ClientAddress(c.Request),
		UserAgent:   c.Request.UserAgent(),
		Method:      c.Request.Method,
		Path:        c.Request.URL.Path,
		Query:       c.Request.URL.RawQuery,
		Headers:     c.Request.Header,
		Country:     requestCountry(c.Request),
		BodyPreview: preview,
		Timestamp:   time.Now(),
	}
}

func requestCountry(r *http.Request) string {
	for _, header := range countryHeaders {
		if v := r.Header.Get(header); v != "" {
			return v
		}
	}
	return ""
}
