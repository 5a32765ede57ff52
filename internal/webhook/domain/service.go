package domain

import (
	"encoding/json"
	"errors"
)

// IngestResult is the answer returned to the webhook sender.
type IngestResult struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	EventID   string          `json:"event_id,omitempty"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`

	// Outcome labels the delivery for metrics: processed, acknowledged, duplicate, rejected or failed.
	Outcome string `json:"-"`
}

var (
	ErrInvalidProvider  = errors.New("invalid_provider")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrEventNotFound    = errors.New("webhook_event_not_found")
)
