package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the gateway order status. The vocabulary is open; unknown values are stored as received.
type Status string

const (
	StatusCreated   Status = "created"
	StatusAttempted Status = "attempted"
	StatusPaid      Status = "paid"
)

type Order struct {
	ID         string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Amount     int64          `gorm:"not null" json:"amount"`
	AmountPaid int64          `gorm:"not null;default:0" json:"amount_paid"`
	AmountDue  int64          `gorm:"not null;default:0" json:"amount_due"`
	Currency   string         `gorm:"type:varchar(3);not null" json:"currency"`
	Receipt    *string        `gorm:"type:varchar(64)" json:"receipt,omitempty"`
	Status     Status         `gorm:"type:varchar(32);not null" json:"status"`
	Attempts   int            `gorm:"not null;default:0" json:"attempts"`
	Notes      datatypes.JSON `json:"notes,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }
