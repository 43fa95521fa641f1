package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/hollowaylabs/gatehouse/internal/admission"
	"github.com/hollowaylabs/gatehouse/internal/models"
)

// BehaviorService computes scan and automation indicators from the security
// event log. Only logged traffic is visible here, so counts are a floor on
// an address's real request volume.
type BehaviorService struct {
	db *gorm.DB
}

// NewBehaviorService returns a BehaviorService using the provided DB.
func NewBehaviorService(db *gorm.DB) *BehaviorService {
	return &BehaviorService{db: db}
}

// Analyze aggregates event history for address within the lookback window.
func (s *BehaviorService) Analyze(address string, lookback time.Duration) (admission.BehaviorStats, error) {
	since := time.Now().Add(-lookback)

	var stats admission.BehaviorStats
	row := s.db.Model(&models.SecurityEvent{}).
		Select("COUNT(*), COUNT(DISTINCT user_agent), COUNT(DISTINCT path)").
		Where("address = ? AND created_at >= ?", address, since).
		Row()
	if err := row.Scan(&stats.RequestCount, &stats.UniqueUserAgents, &stats.UniquePaths); err != nil {
		return admission.BehaviorStats{}, err
	}

	return stats, nil
}
