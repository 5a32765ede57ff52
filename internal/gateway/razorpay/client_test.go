package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/payrail/internal/config"
	"github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "rzp_test_secret",
		WebhookSecret: "whsec",
		BaseURL:       srv.URL,
		Timeout:       2 * time.Second,
	}, zap.NewNop())
}

func TestCreateOrderSendsBasicAuthAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 50000, body["amount"])
		assert.Equal(t, "INR", body["currency"])

		_, _ = io.WriteString(w, `{"id":"order_1","entity":"order","amount":50000,"amount_paid":0,"amount_due":50000,"currency":"INR","receipt":"rcpt_1","status":"created","attempts":0,"notes":[],"created_at":1700000000}`)
	})

	order, err := client.CreateOrder(context.Background(), domain.CreateOrderRequest{Amount: 50000, Currency: "inr", Receipt: "rcpt_1"})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	require.NotNil(t, order.AmountDue)
	assert.Equal(t, int64(50000), *order.AmountDue)
	assert.Nil(t, order.Notes)
	assert.NotEmpty(t, order.Raw)
}

func TestCreateOrderValidatesBeforeCalling(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := client.CreateOrder(context.Background(), domain.CreateOrderRequest{Amount: 0, Currency: "INR"})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.False(t, called)
}

func TestGatewayErrorIsTyped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist","field":"id"}}`)
	})

	_, err := client.FetchPayment(context.Background(), "pay_missing")
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
	assert.Equal(t, "id", apiErr.Field)
}

func TestCapturePaymentPostsAmountAndCurrency(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_1/capture", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 1000, body["amount"])
		assert.Equal(t, "INR", body["currency"])
		_, _ = io.WriteString(w, `{"id":"pay_1","entity":"payment","amount":1000,"currency":"INR","status":"captured","order_id":"order_1","captured":true}`)
	})

	payment, err := client.CapturePayment(context.Background(), "pay_1", domain.CapturePaymentRequest{Amount: 1000, Currency: "INR"})
	require.NoError(t, err)
	assert.Equal(t, "captured", payment.Status)
	assert.True(t, payment.Captured)
}

func TestListSubscriptionsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		assert.Equal(t, "10", r.URL.Query().Get("skip"))
		assert.Equal(t, "plan_1", r.URL.Query().Get("plan_id"))
		_, _ = io.WriteString(w, `{"entity":"collection","count":1,"items":[{"id":"sub_1","status":"active","paid_count":2,"total_count":null,"notes":{"tier":"gold"}}]}`)
	})

	list, err := client.ListSubscriptions(context.Background(), domain.ListSubscriptionsRequest{Count: 5, Skip: 10, PlanID: "plan_1"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	sub := list.Items[0]
	assert.Equal(t, "sub_1", sub.ID)
	assert.Nil(t, sub.TotalCount)
	require.NotNil(t, sub.PaidCount)
	assert.Equal(t, 2, *sub.PaidCount)
	assert.Equal(t, "gold", sub.Notes["tier"])
	assert.NotEmpty(t, sub.Raw)
}

func TestPauseSubscriptionMapsImmediate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions/sub_1/pause", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "now", body["pause_at"])
		_, _ = io.WriteString(w, `{"id":"sub_1","status":"paused"}`)
	})

	sub, err := client.PauseSubscription(context.Background(), "sub_1", domain.AtImmediate)
	require.NoError(t, err)
	assert.Equal(t, "paused", sub.Status)
}

func TestRequestsFailWithoutCredentials(t *testing.T) {
	client := New(config.RazorpayConfig{}, zap.NewNop())
	_, err := client.FetchOrder(context.Background(), "order_1")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestEmptyIDIsRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
	})
	_, err := client.FetchInvoice(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestTimeoutIsEnforced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(config.RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, zap.NewNop())
	_, err := client.FetchPlan(context.Background(), "plan_1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
