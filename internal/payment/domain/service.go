package domain

import "errors"

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// CaptureRequest captures the authorized amount when Amount is nil.
type CaptureRequest struct {
	PaymentID string
	Amount    *int64
	Currency  string
}

type VerifyResult struct {
	Verified  bool    `json:"verified"`
	PaymentID string  `json:"payment_id"`
	OrderID   string  `json:"order_id"`
	Status    Status  `json:"status"`
	Amount    int64   `json:"amount"`
	Currency  string  `json:"currency"`
	Method    *string `json:"method,omitempty"`
	Captured  bool    `json:"captured"`
}

type CaptureResult struct {
	PaymentID       string `json:"payment_id"`
	Status          Status `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	AlreadyCaptured bool   `json:"already_captured"`
}

var (
	ErrInvalidPaymentID = errors.New("invalid_payment_id")
	ErrInvalidSignature = errors.New("invalid_payment_signature")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrNotAuthorized    = errors.New("payment_not_authorized")
	ErrNotFound         = errors.New("payment_not_found")
)
