package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Status is the closed set of payment states kept locally.
type Status string

const (
	StatusCreated    Status = "created"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusRefunded   Status = "refunded"
	StatusFailed     Status = "failed"
)

// StatusFromGateway maps a gateway status string. Unknown values become failed.
func StatusFromGateway(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusCreated:
		return StatusCreated
	case StatusAuthorized:
		return StatusAuthorized
	case StatusCaptured:
		return StatusCaptured
	case StatusRefunded:
		return StatusRefunded
	default:
		return StatusFailed
	}
}

type Payment struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OrderID     string         `gorm:"type:varchar(64);not null;default:'';index" json:"order_id"`
	Amount      int64          `gorm:"not null" json:"amount"`
	Currency    string         `gorm:"type:varchar(3);not null" json:"currency"`
	Status      Status         `gorm:"type:varchar(16);not null" json:"status"`
	Method      *string        `gorm:"type:varchar(32)" json:"method,omitempty"`
	Description *string        `gorm:"type:text" json:"description,omitempty"`
	GatewayData datatypes.JSON `json:"gateway_data,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
