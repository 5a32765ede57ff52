package razorpay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	gatewayrazorpay "github.com/smallbiznis/payrail/internal/gateway/razorpay"
	"github.com/smallbiznis/payrail/internal/webhook/adapters"
	"github.com/smallbiznis/payrail/internal/webhook/domain"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"entity":"event","event":"payment.captured","payload":{}}`)

	headers := http.Header{}
	headers.Set(SignatureHeader, gatewayrazorpay.Sign(payload, secret))

	adapter := &Adapter{webhookSecret: secret}
	if err := adapter.Verify(context.Background(), payload, headers); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	headers.Set(SignatureHeader, gatewayrazorpay.Sign(payload, "wrong"))
	if err := adapter.Verify(context.Background(), payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	headers.Del(SignatureHeader)
	if err := adapter.Verify(context.Background(), payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected missing signature to fail, got %v", err)
	}
}

func TestRegistryWithoutSecretRejectsSignatures(t *testing.T) {
	registry := adapters.NewRegistry(NewFactory())
	if !registry.ProviderExists("RazorPay") {
		t.Fatalf("expected razorpay to be registered")
	}
	adapter, err := registry.NewAdapter("razorpay", domain.AdapterConfig{})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	payload := []byte(`{}`)
	headers := http.Header{}
	headers.Set(SignatureHeader, gatewayrazorpay.Sign(payload, ""))
	if err := adapter.Verify(context.Background(), payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected empty secret to reject, got %v", err)
	}
	if _, err := registry.NewAdapter("stripe", domain.AdapterConfig{WebhookSecret: "x"}); !errors.Is(err, domain.ErrProviderNotFound) {
		t.Fatalf("expected provider not found, got %v", err)
	}
}

func TestParseResolvesIdentity(t *testing.T) {
	adapter := &Adapter{webhookSecret: "s"}
	ctx := context.Background()

	tests := []struct {
		name   string
		body   string
		header string
		want   string
	}{
		{
			name:   "header wins",
			body:   `{"id":"evt_top","event":"payment.captured","payload":{}}`,
			header: "evt_header",
			want:   "evt_header",
		},
		{
			name: "top level id",
			body: `{"id":"evt_top","event_id":"evt_other","event":"payment.captured","payload":{}}`,
			want: "evt_top",
		},
		{
			name: "event_id",
			body: `{"event_id":"evt_other","event":"payment.captured","payload":{}}`,
			want: "evt_other",
		},
		{
			name: "payment entity",
			body: `{"event":"payment.captured","payload":{"order":{"entity":{"id":"order_1"}},"payment":{"entity":{"id":"pay_1"}}}}`,
			want: "pay_1",
		},
		{
			name: "order entity",
			body: `{"event":"order.paid","payload":{"order":{"entity":{"id":"order_1"}}}}`,
			want: "order_1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.header != "" {
				headers.Set(EventIDHeader, tt.header)
			}
			env, err := adapter.Parse(ctx, []byte(tt.body), headers)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if env.ID != tt.want {
				t.Fatalf("expected id %q, got %q", tt.want, env.ID)
			}
		})
	}
}

func TestFallbackIDIsDeterministic(t *testing.T) {
	adapter := &Adapter{webhookSecret: "s"}
	ctx := context.Background()

	a := `{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_1","paid_count":1}}},"created_at":1700000000}`
	b := "{\n  \"created_at\": 1700000000,\n  \"payload\": {\"subscription\": {\"entity\": {\"paid_count\": 1, \"id\": \"sub_1\"}}},\n  \"event\": \"subscription.charged\"\n}"

	envA, err := adapter.Parse(ctx, []byte(a), http.Header{})
	if err != nil {
		t.Fatalf("parse a: %v", err)
	}
	envB, err := adapter.Parse(ctx, []byte(b), http.Header{})
	if err != nil {
		t.Fatalf("parse b: %v", err)
	}
	if !strings.HasPrefix(envA.ID, "evt_") || len(envA.ID) != len("evt_")+64 {
		t.Fatalf("unexpected fallback id %q", envA.ID)
	}
	if envA.ID != envB.ID {
		t.Fatalf("expected equal ids for equivalent bodies, got %q and %q", envA.ID, envB.ID)
	}

	c := strings.Replace(a, `"paid_count":1`, `"paid_count":2`, 1)
	envC, err := adapter.Parse(ctx, []byte(c), http.Header{})
	if err != nil {
		t.Fatalf("parse c: %v", err)
	}
	if envC.ID == envA.ID {
		t.Fatalf("expected different ids for different bodies")
	}
}

func TestParseEnvelopeFields(t *testing.T) {
	adapter := &Adapter{webhookSecret: "s"}
	body := `{"entity":"event","account_id":"acc_1","event":"Payment.Captured","contains":["payment"],"payload":{"payment":{"entity":{"id":"pay_1"}}},"created_at":1700000000}`

	env, err := adapter.Parse(context.Background(), []byte(body), http.Header{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.Prefix() != "payment" {
		t.Fatalf("expected payment prefix, got %q", env.Prefix())
	}
	if env.AccountID != "acc_1" || env.Entity != "event" || env.CreatedAt != 1700000000 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if len(env.Contains) != 1 || env.Contains[0] != "payment" {
		t.Fatalf("unexpected contains %v", env.Contains)
	}
	if env.Section("payment") == nil || env.Section("order") != nil {
		t.Fatalf("unexpected sections")
	}
}

func TestParseRejectsNonObject(t *testing.T) {
	adapter := &Adapter{webhookSecret: "s"}
	for _, body := range []string{`not json`, `[]`, `"x"`, `null`} {
		if _, err := adapter.Parse(context.Background(), []byte(body), http.Header{}); !errors.Is(err, domain.ErrInvalidPayload) {
			t.Fatalf("expected invalid payload for %q, got %v", body, err)
		}
	}
}

func TestParseRejectsNonObjectPayloadSection(t *testing.T) {
	adapter := &Adapter{webhookSecret: "s"}
	for _, body := range []string{
		`{"id":"evt_1","event":"payment.captured","payload":[]}`,
		`{"id":"evt_1","event":"payment.captured","payload":"payment"}`,
		`{"id":"evt_1","event":"payment.captured","payload":42}`,
	} {
		if _, err := adapter.Parse(context.Background(), []byte(body), http.Header{}); !errors.Is(err, domain.ErrInvalidPayload) {
			t.Fatalf("expected invalid payload for %s, got %v", body, err)
		}
	}

	env, err := adapter.Parse(context.Background(), []byte(`{"id":"evt_2","event":"payment.captured","payload":null,"created_at":"soon"}`), http.Header{})
	if err != nil {
		t.Fatalf("expected null payload to parse, got %v", err)
	}
	if env.ID != "evt_2" || env.CreatedAt != 0 || env.Section("payment") != nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
}
