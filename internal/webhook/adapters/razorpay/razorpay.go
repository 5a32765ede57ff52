package razorpay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	gatewayrazorpay "github.com/smallbiznis/payrail/internal/gateway/razorpay"
	"github.com/smallbiznis/payrail/internal/webhook/domain"
)

const (
	Provider        = "razorpay"
	SignatureHeader = "X-Razorpay-Signature"
	EventIDHeader   = "X-Razorpay-Event-Id"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return Provider
}

// NewAdapter accepts an empty secret; such an adapter rejects every signature.
func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	return &Adapter{webhookSecret: strings.TrimSpace(cfg.WebhookSecret)}, nil
}

type Adapter struct {
	webhookSecret string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if !gatewayrazorpay.VerifyWebhookSignature(payload, headers.Get(SignatureHeader), a.webhookSecret) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*domain.Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil || top == nil {
		return nil, domain.ErrInvalidPayload
	}

	env := &domain.Envelope{
		Provider:  Provider,
		Entity:    stringField(top["entity"]),
		Event:     stringField(top["event"]),
		AccountID: stringField(top["account_id"]),
		Raw:       payload,
	}
	if raw, ok := top["payload"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &env.Payload); err != nil {
			return nil, domain.ErrInvalidPayload
		}
	}
	// contains and created_at are informational; malformed values are left unset.
	if raw, ok := top["contains"]; ok {
		if err := json.Unmarshal(raw, &env.Contains); err != nil {
			env.Contains = nil
		}
	}
	if raw, ok := top["created_at"]; ok {
		if err := json.Unmarshal(raw, &env.CreatedAt); err != nil {
			env.CreatedAt = 0
		}
	}

	id, err := ResolveEventID(top, env.Payload, headers.Get(EventIDHeader), payload)
	if err != nil {
		return nil, err
	}
	env.ID = id
	return env, nil
}

// ResolveEventID picks the delivery identity: the event id header, then top-level id,
// then event_id, then the payment or order entity id, and finally a digest of the body.
func ResolveEventID(top map[string]json.RawMessage, payload map[string]json.RawMessage, header string, raw []byte) (string, error) {
	if id := strings.TrimSpace(header); id != "" {
		return id, nil
	}
	for _, key := range []string{"id", "event_id"} {
		if id := stringField(top[key]); id != "" {
			return id, nil
		}
	}
	for _, key := range []string{"payment", "order"} {
		if id := entityID(payload[key]); id != "" {
			return id, nil
		}
	}

	canonical, err := Canonical(raw)
	if err != nil {
		return "", domain.ErrInvalidPayload
	}
	sum := sha256.Sum256(canonical)
	return "evt_" + hex.EncodeToString(sum[:]), nil
}

// Canonical re-encodes JSON compactly with object keys sorted. Number literals are kept.
func Canonical(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func entityID(section json.RawMessage) string {
	if len(section) == 0 {
		return ""
	}
	var wrapper struct {
		Entity map[string]json.RawMessage `json:"entity"`
	}
	if err := json.Unmarshal(section, &wrapper); err != nil {
		return ""
	}
	return stringField(wrapper.Entity["id"])
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
