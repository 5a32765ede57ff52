package domain

import (
	"errors"

	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
)

// CreatePlanRequest amounts are minor units.
type CreatePlanRequest struct {
	Period      string
	Interval    int
	Name        string
	Amount      int64
	Currency    string
	Description *string
	Notes       gatewaydomain.Notes
}

type CreateSubscriptionRequest struct {
	PlanID         string
	TotalCount     *int
	Quantity       int
	CustomerNotify bool
	StartAt        *int64
	Notes          gatewaydomain.Notes
}

type ListRemoteRequest struct {
	Count      int
	Skip       int
	PlanID     string
	CustomerID string
}

var (
	ErrInvalidSubscriptionID = errors.New("invalid_subscription_id")
	ErrInvalidPlanID         = errors.New("invalid_plan_id")
	ErrInvalidInvoiceID      = errors.New("invalid_invoice_id")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidTiming         = errors.New("invalid_timing")
	ErrNotFound              = errors.New("subscription_not_found")
)
