package domain

import (
	"time"

	"gorm.io/datatypes"
)

// EventRecord is the audit row of one inbound webhook, written once per id.
// Only processed, processed_at, result and signature_verified move afterwards.
type EventRecord struct {
	ID                string         `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Provider          string         `gorm:"type:varchar(32);not null" json:"provider"`
	Entity            string         `gorm:"type:varchar(32);not null;default:''" json:"entity"`
	Event             string         `gorm:"type:varchar(64);not null;default:'';index" json:"event"`
	AccountID         *string        `gorm:"type:varchar(64)" json:"account_id,omitempty"`
	Payload           datatypes.JSON `gorm:"not null" json:"payload"`
	SignatureVerified bool           `gorm:"not null;default:false" json:"signature_verified"`
	Processed         bool           `gorm:"not null;default:false" json:"processed"`
	Result            datatypes.JSON `json:"result,omitempty"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	ProcessedAt       *time.Time     `json:"processed_at,omitempty"`
}

func (EventRecord) TableName() string { return "webhook_events" }
