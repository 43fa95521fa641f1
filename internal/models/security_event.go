package models

import (
	"time"
)

// Event types recorded by the admission pipeline.
const (
	EventBlocked     = "blocked"
	EventSuspicious  = "suspicious"
	EventRateLimited = "rate_limited"
	EventAttack      = "attack"
)

// SecurityEvent is the append-only record of a non-trivial admission decision.
// Rows are read back by the behavioral analyzer and external analytics only.
type SecurityEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	Address   string    `json:"address" gorm:"index"`
	UserAgent string    `json:"user_agent"`
	EventType string    `json:"event_type"` // blocked, suspicious, rate_limited, attack
	Path      string    `json:"path"`
	Country   string    `json:"country"`
	IsRelay   bool      `json:"is_relay"`
	IsVpn     bool      `json:"is_vpn"`
	RiskScore int       `json:"risk_score"`
	Details   string    `json:"details" gorm:"type:text"` // JSON map of signal contributions
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
