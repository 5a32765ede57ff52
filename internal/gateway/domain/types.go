package domain

import (
	"bytes"
	"encoding/json"
)

// Notes is the free-form key/value bag attached to most gateway entities.
// The gateway encodes an empty bag as [] rather than {}.
type Notes map[string]any

func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] == '[' {
		*n = nil
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}
	*n = m
	return nil
}

// Order is a gateway order. Pointer fields are absent when nil.
type Order struct {
	ID         string  `json:"id"`
	Entity     string  `json:"entity,omitempty"`
	Amount     *int64  `json:"amount,omitempty"`
	AmountPaid *int64  `json:"amount_paid,omitempty"`
	AmountDue  *int64  `json:"amount_due,omitempty"`
	Currency   *string `json:"currency,omitempty"`
	Receipt    *string `json:"receipt,omitempty"`
	Status     *string `json:"status,omitempty"`
	Attempts   *int    `json:"attempts,omitempty"`
	Notes      Notes   `json:"notes,omitempty"`
	CreatedAt  int64   `json:"created_at,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type Payment struct {
	ID          string  `json:"id"`
	Entity      string  `json:"entity,omitempty"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Status      string  `json:"status,omitempty"`
	OrderID     *string `json:"order_id,omitempty"`
	InvoiceID   *string `json:"invoice_id,omitempty"`
	Method      *string `json:"method,omitempty"`
	Description *string `json:"description,omitempty"`
	Captured    bool    `json:"captured,omitempty"`
	Notes       Notes   `json:"notes,omitempty"`
	CreatedAt   int64   `json:"created_at,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type Subscription struct {
	ID           string  `json:"id"`
	Entity       string  `json:"entity,omitempty"`
	PlanID       *string `json:"plan_id,omitempty"`
	CustomerID   *string `json:"customer_id,omitempty"`
	Status       string  `json:"status,omitempty"`
	CurrentStart *int64  `json:"current_start,omitempty"`
	CurrentEnd   *int64  `json:"current_end,omitempty"`
	EndedAt      *int64  `json:"ended_at,omitempty"`
	ChargeAt     *int64  `json:"charge_at,omitempty"`
	StartAt      *int64  `json:"start_at,omitempty"`
	EndAt        *int64  `json:"end_at,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
	AuthAttempts *int    `json:"auth_attempts,omitempty"`
	TotalCount   *int    `json:"total_count,omitempty"`
	PaidCount    *int    `json:"paid_count,omitempty"`
	ShortURL     *string `json:"short_url,omitempty"`
	Notes        Notes   `json:"notes,omitempty"`
	CreatedAt    int64   `json:"created_at,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type Invoice struct {
	ID                 string  `json:"id"`
	Entity             string  `json:"entity,omitempty"`
	SubscriptionID     *string `json:"subscription_id,omitempty"`
	PaymentID          *string `json:"payment_id,omitempty"`
	OrderID            *string `json:"order_id,omitempty"`
	Amount             *int64  `json:"amount,omitempty"`
	Currency           *string `json:"currency,omitempty"`
	Status             *string `json:"status,omitempty"`
	Description        *string `json:"description,omitempty"`
	BillingStart       *int64  `json:"billing_start,omitempty"`
	BillingEnd         *int64  `json:"billing_end,omitempty"`
	BillingPeriodStart *int64  `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *int64  `json:"billing_period_end,omitempty"`
	CreatedAt          int64   `json:"created_at,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// PeriodStart prefers billing_start and falls back to billing_period_start.
func (i *Invoice) PeriodStart() *int64 {
	if i.BillingStart != nil {
		return i.BillingStart
	}
	return i.BillingPeriodStart
}

func (i *Invoice) PeriodEnd() *int64 {
	if i.BillingEnd != nil {
		return i.BillingEnd
	}
	return i.BillingPeriodEnd
}

type PlanItem struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Description *string `json:"description,omitempty"`
}

type Plan struct {
	ID        string   `json:"id"`
	Entity    string   `json:"entity,omitempty"`
	Period    string   `json:"period"`
	Interval  int      `json:"interval"`
	Item      PlanItem `json:"item"`
	Notes     Notes    `json:"notes,omitempty"`
	CreatedAt int64    `json:"created_at,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Collection is the gateway list envelope.
type Collection[T any] struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
	Items  []T    `json:"items"`

	Raw json.RawMessage `json:"-"`
}

// Body returns the exact bytes received from the gateway, or a re-encoding when absent.
func Body(raw json.RawMessage, v any) json.RawMessage {
	if len(raw) > 0 {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}
