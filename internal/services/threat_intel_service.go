package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hollowaylabs/gatehouse/internal/logger"
	"github.com/hollowaylabs/gatehouse/internal/models"
)

// threatIntelTTL is the logical lifetime of an entry. Older entries read as
// score 0 regardless of whether the sweep has removed them yet.
const threatIntelTTL = 24 * time.Hour

// ThreatIntelService is the durable, decaying per-address risk store.
type ThreatIntelService struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewThreatIntelService returns a ThreatIntelService using the provided DB.
func NewThreatIntelService(db *gorm.DB) *ThreatIntelService {
	return &ThreatIntelService{db: db, ttl: threatIntelTTL}
}

// GetScore returns the stored score for address, or 0 when no entry exists
// or the entry is stale. Read failures also report 0; the signal is treated
// as absent rather than failing the request.
func (s *ThreatIntelService) GetScore(address string) int {
	var entry models.ThreatIntelEntry
	if err := s.db.Where("address = ?", address).First(&entry).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{"address": address}).
				WithError(err).Warn("threat intel read failed")
		}
		return 0
	}
	if time.Since(entry.UpdatedAt) > s.ttl {
		return 0
	}
	return entry.RiskScore
}

// RecordScore merges a newly computed score into the store, keeping the
// maximum of the existing and new score and refreshing the entry timestamp.
func (s *ThreatIntelService) RecordScore(address string, score int) error {
	var entry models.ThreatIntelEntry
	err := s.db.Where("address = ?", address).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.ThreatIntelEntry{Address: address, RiskScore: score, UpdatedAt: time.Now()}
		return s.db.Create(&entry).Error
	}
	if err != nil {
		return err
	}

	if score > entry.RiskScore {
		entry.RiskScore = score
	}
	entry.UpdatedAt = time.Now()
	return s.db.Save(&entry).Error
}

// Sweep deletes stale entries. Staleness is already enforced on read, so the
// sweep is storage hygiene only and safe to skip a cycle.
func (s *ThreatIntelService) Sweep() (int64, error) {
	cutoff := time.Now().Add(-s.ttl)
	res := s.db.Where("updated_at < ?", cutoff).Delete(&models.ThreatIntelEntry{})
	return res.RowsAffected, res.Error
}
