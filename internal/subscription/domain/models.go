package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Status is the closed set of subscription states kept locally.
type Status string

const (
	StatusCreated       Status = "created"
	StatusAuthenticated Status = "authenticated"
	StatusActive        Status = "active"
	StatusPending       Status = "pending"
	StatusHalted        Status = "halted"
	StatusCancelled     Status = "cancelled"
	StatusCompleted     Status = "completed"
	StatusExpired       Status = "expired"
	StatusPaused        Status = "paused"
)

var knownStatuses = map[Status]struct{}{
	StatusCreated:       {},
	StatusAuthenticated: {},
	StatusActive:        {},
	StatusPending:       {},
	StatusHalted:        {},
	StatusCancelled:     {},
	StatusCompleted:     {},
	StatusExpired:       {},
	StatusPaused:        {},
}

// StatusFromGateway maps a gateway status string. Unknown values become created.
func StatusFromGateway(raw string) Status {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownStatuses[status]; ok {
		return status
	}
	return StatusCreated
}

type Subscription struct {
	ID           string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	PlanID       *string        `gorm:"type:varchar(64);index" json:"plan_id,omitempty"`
	CustomerID   *string        `gorm:"type:varchar(64);index" json:"customer_id,omitempty"`
	Status       Status         `gorm:"type:varchar(16);not null" json:"status"`
	CurrentStart *time.Time     `json:"current_start,omitempty"`
	CurrentEnd   *time.Time     `json:"current_end,omitempty"`
	EndedAt      *time.Time     `json:"ended_at,omitempty"`
	ChargeAt     *time.Time     `json:"charge_at,omitempty"`
	StartAt      *time.Time     `json:"start_at,omitempty"`
	EndAt        *time.Time     `json:"end_at,omitempty"`
	Quantity     int            `gorm:"not null;default:1" json:"quantity"`
	AuthAttempts int            `gorm:"not null;default:0" json:"auth_attempts"`
	TotalCount   *int           `json:"total_count,omitempty"`
	PaidCount    int            `gorm:"not null;default:0" json:"paid_count"`
	Notes        datatypes.JSON `json:"notes,omitempty"`
	GatewayData  datatypes.JSON `json:"gateway_data,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// SubscriptionPayment is one subscription invoice, keyed by the invoice id.
type SubscriptionPayment struct {
	ID                 string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SubscriptionID     string         `gorm:"type:varchar(64);not null;default:'';index" json:"subscription_id"`
	InvoiceID          *string        `gorm:"type:varchar(64)" json:"invoice_id,omitempty"`
	PaymentID          *string        `gorm:"type:varchar(64);index" json:"payment_id,omitempty"`
	Amount             int64          `gorm:"not null;default:0" json:"amount"`
	Currency           string         `gorm:"type:varchar(3);not null" json:"currency"`
	Status             string         `gorm:"type:varchar(32);not null" json:"status"`
	Description        *string        `gorm:"type:text" json:"description,omitempty"`
	BillingPeriodStart *time.Time     `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time     `json:"billing_period_end,omitempty"`
	GatewayData        datatypes.JSON `json:"gateway_data,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

func (SubscriptionPayment) TableName() string { return "subscription_payments" }

// InvoiceStatusIssued is stored when a new invoice arrives without a status.
const InvoiceStatusIssued = "issued"
