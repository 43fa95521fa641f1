package models

import (
	"time"
)

// ThreatIntelEntry holds the accumulated risk score for a network address.
// Entries older than the store's TTL are treated as score 0 on read; physical
// deletion happens in a periodic sweep.
type ThreatIntelEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Address   string    `json:"address" gorm:"uniqueIndex"`
	RiskScore int       `json:"risk_score"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}
