package domain

import (
	"encoding/json"
	"strings"
)

// Envelope is a parsed webhook delivery.
type Envelope struct {
	Provider  string
	ID        string
	Entity    string
	Event     string
	AccountID string
	Contains  []string
	Payload   map[string]json.RawMessage
	CreatedAt int64
	Raw       []byte
}

// Prefix is the event type up to the first dot, e.g. "payment" for "payment.captured".
func (e *Envelope) Prefix() string {
	prefix, _, _ := strings.Cut(strings.TrimSpace(e.Event), ".")
	return strings.ToLower(prefix)
}

// Section returns payload[key] or nil when absent or null.
func (e *Envelope) Section(key string) json.RawMessage {
	if e == nil || e.Payload == nil {
		return nil
	}
	raw, ok := e.Payload[key]
	if !ok || isNull(raw) {
		return nil
	}
	return raw
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
