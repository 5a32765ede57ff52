package domain

import (
	"context"
	"net/http"
)

type AdapterConfig struct {
	Provider      string
	WebhookSecret string
}

// Adapter verifies and decodes deliveries from one provider.
type Adapter interface {
	// Verify checks the signature over the exact received bytes.
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte, headers http.Header) (*Envelope, error)
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Adapter, error)
}
