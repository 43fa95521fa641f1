package handlers

import (
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hollowaylabs/gatehouse/internal/services"
)

const maxEventListLimit = 500

// SecurityHandler exposes the security event log and threat-intel store to
// the analytics surface. Read-only; decisions are never re-made here.
type SecurityHandler struct {
	events *services.EventService
	intel  *services.ThreatIntelService
}

// NewSecurityHandler creates a new SecurityHandler.
func NewSecurityHandler(events *services.EventService, intel *services.ThreatIntelService) *SecurityHandler {
	return &SecurityHandler{events: events, intel: intel}
}

// ListEvents returns recent security events, newest first.
func (h *SecurityHandler) ListEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	if limit > maxEventListLimit {
		limit = maxEventListLimit
	}

	events, err := h.events.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetIntel returns the current threat score for an address.
func (h *SecurityHandler) GetIntel(c *gin.Context) {
	address := c.Param("address")
	if net.ParseIP(address) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    address,
		"risk_score": h.intel.GetScore(address),
	})
}
