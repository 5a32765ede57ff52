package domain

import (
	"errors"

	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
)

// CreateOrderRequest amounts are minor units.
type CreateOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    gatewaydomain.Notes
}

var (
	ErrInvalidOrderID = errors.New("invalid_order_id")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrNotFound       = errors.New("order_not_found")
)
