package services

import (
	"fmt"

	"github.com/containrrr/shoutrrr"

	"github.com/hollowaylabs/gatehouse/internal/logger"
	"github.com/hollowaylabs/gatehouse/internal/models"
)

// NotifierService pushes attack alerts to external channels via shoutrrr
// URLs (discord://, telegram://, smtp://, ...). Delivery failures are logged
// and never affect the event pipeline.
type NotifierService struct {
	urls []string
}

// NewNotifierService returns a notifier for the given shoutrrr URLs, or nil
// when none are configured so callers can skip the nil check pattern.
func NewNotifierService(urls []string) *NotifierService {
	if len(urls) == 0 {
		return nil
	}
	return &NotifierService{urls: urls}
}

// NotifyAttack sends a short alert describing a recorded attack event.
func (s *NotifierService) NotifyAttack(event models.SecurityEvent) {
	message := fmt.Sprintf("Attack blocked: %s scored %d on %s (country=%s relay=%t vpn=%t)",
		event.Address, event.RiskScore, event.Path, event.Country, event.IsRelay, event.IsVpn)

	for _, url := range s.urls {
		if err := shoutrrr.Send(url, message); err != nil {
			logger.WithFields(map[string]interface{}{"address": event.Address}).
				WithError(err).Error("failed to send attack notification")
		}
	}
}
