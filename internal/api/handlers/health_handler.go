package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hollowaylabs/gatehouse/internal/relay"
	"github.com/hollowaylabs/gatehouse/internal/version"
)

// HealthHandler reports service metadata plus relay registry freshness for
// uptime checks.
type HealthHandler struct {
	registry *relay.Registry
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(registry *relay.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// Get responds with basic service status.
func (h *HealthHandler) Get(c *gin.Context) {
	relayInfo := gin.H{"size": 0, "last_update": nil}
	if h.registry != nil {
		info := gin.H{"size": h.registry.Size()}
		if last := h.registry.LastUpdate(); !last.IsZero() {
			info["last_update"] = last.Format(time.RFC3339)
		} else {
			info["last_update"] = nil
		}
		relayInfo = info
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"service":    version.Name,
		"version":    version.Version,
		"git_commit": version.GitCommit,
		"build_time": version.BuildTime,
		"relay":      relayInfo,
	})
}
