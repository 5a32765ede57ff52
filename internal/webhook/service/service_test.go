package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/payrail/internal/clock"
	"github.com/smallbiznis/payrail/internal/config"
	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/smallbiznis/payrail/internal/gateway/gatewaytest"
	gatewayrazorpay "github.com/smallbiznis/payrail/internal/gateway/razorpay"
	obsmetrics "github.com/smallbiznis/payrail/internal/observability/metrics"
	orderrepo "github.com/smallbiznis/payrail/internal/order/repository"
	orderservice "github.com/smallbiznis/payrail/internal/order/service"
	paymentdomain "github.com/smallbiznis/payrail/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/payrail/internal/payment/repository"
	paymentservice "github.com/smallbiznis/payrail/internal/payment/service"
	reconcileservice "github.com/smallbiznis/payrail/internal/reconcile/service"
	subscriptionrepo "github.com/smallbiznis/payrail/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/payrail/internal/subscription/service"
	"github.com/smallbiznis/payrail/internal/testutil/dbtest"
	"github.com/smallbiznis/payrail/internal/webhook/adapters"
	"github.com/smallbiznis/payrail/internal/webhook/adapters/razorpay"
	"github.com/smallbiznis/payrail/internal/webhook/domain"
	webhookrepo "github.com/smallbiznis/payrail/internal/webhook/repository"
	"github.com/smallbiznis/payrail/internal/webhook/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type harness struct {
	db      *gorm.DB
	gateway *gatewaytest.Client
	svc     *service.Service
}

func newHarness(t *testing.T, policy config.ReconcilePolicy) *harness {
	t.Helper()

	conn := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	gw := &gatewaytest.Client{}
	holder := config.NewStaticPolicyHolder(policy)
	log := zap.NewNop()

	orderSvc := orderservice.NewService(orderservice.Params{
		DB: conn, Log: log, Clock: clk, Gateway: gw, Repo: orderrepo.Provide(), Policy: holder,
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB: conn, Log: log, Clock: clk, Gateway: gw, Repo: paymentrepo.Provide(), Policy: holder,
	})
	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.Params{
		DB: conn, Log: log, Clock: clk, Gateway: gw, Repo: subscriptionrepo.Provide(), Policy: holder,
	})
	reconciler := reconcileservice.NewService(reconcileservice.Params{
		Log:             log,
		PaymentSvc:      paymentSvc,
		OrderSvc:        orderSvc,
		SubscriptionSvc: subscriptionSvc,
	})

	cfg := config.Config{Razorpay: config.RazorpayConfig{WebhookSecret: webhookSecret}}
	svc := service.NewService(service.Params{
		DB:         conn,
		Log:        log,
		Clock:      clk,
		Cfg:        cfg,
		Repo:       webhookrepo.Provide(),
		Adapters:   adapters.NewRegistry(razorpay.NewFactory()),
		Reconciler: reconciler,
	})
	return &harness{db: conn, gateway: gw, svc: svc}
}

func signed(body string) http.Header {
	headers := http.Header{}
	headers.Set(razorpay.SignatureHeader, gatewayrazorpay.Sign([]byte(body), webhookSecret))
	return headers
}

func (h *harness) deliver(t *testing.T, body string) *domain.IngestResult {
	t.Helper()
	res, err := h.svc.Ingest(context.Background(), "razorpay", []byte(body), signed(body))
	require.NoError(t, err)
	return res
}

func (h *harness) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Raw("SELECT COUNT(*) FROM "+table).Scan(&n).Error)
	return n
}

// block installs a trigger that aborts matching writes, so a step can be forced to fail.
func (h *harness) block(t *testing.T, name, when string) {
	t.Helper()
	require.NoError(t, h.db.Exec(fmt.Sprintf(
		"CREATE TRIGGER block_%s %s BEGIN SELECT RAISE(ABORT, '%s blocked'); END", name, when, name,
	)).Error)
}

type deliveryResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	EntityID string `json:"entity_id"`
	Steps    []struct {
		Name    string `json:"name"`
		Success bool   `json:"success"`
	} `json:"steps"`
	Cascades []struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		EntityID string `json:"entity_id"`
	} `json:"cascades"`
}

func decodeResult(t *testing.T, res *domain.IngestResult) deliveryResult {
	t.Helper()
	var out deliveryResult
	require.NoError(t, json.Unmarshal(res.Result, &out))
	return out
}

func stepSucceeded(t *testing.T, r deliveryResult, name string) bool {
	t.Helper()
	for _, step := range r.Steps {
		if step.Name == name {
			return step.Success
		}
	}
	t.Fatalf("step %s not recorded in %+v", name, r.Steps)
	return false
}

func (h *harness) paidCount(t *testing.T, id string) int {
	t.Helper()
	var n int
	require.NoError(t, h.db.Raw("SELECT paid_count FROM subscriptions WHERE id = ?", id).Scan(&n).Error)
	return n
}

func orderCreatedBody(id string, amount int64) string {
	return fmt.Sprintf(`{"entity":"event","event":"order.paid","id":"evt_order_%[1]s","payload":{"order":{"entity":{"id":"%[1]s","amount":%[2]d,"amount_paid":0,"amount_due":%[2]d,"currency":"INR","status":"created","attempts":0}}},"created_at":1700000000}`, id, amount)
}

func paymentBody(eventID, event, paymentID, orderID, status string, amount int64) string {
	return fmt.Sprintf(`{"entity":"event","event":%q,"id":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":%d,"currency":"INR","status":%q,"method":"card"}}},"created_at":1700000000}`,
		event, eventID, paymentID, orderID, amount, status)
}

func TestDuplicateDeliveryIsIdempotent(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	body := `{"entity":"event","event":"subscription.charged","id":"evt_charge_1","payload":{"subscription":{"entity":{"id":"sub_1","status":"active","plan_id":"plan_1"}}},"created_at":1700000000}`

	first := h.deliver(t, body)
	assert.True(t, first.Success)
	assert.False(t, first.Duplicate)
	assert.Equal(t, obsmetrics.OutcomeProcessed, first.Outcome)

	second := h.deliver(t, body)
	assert.True(t, second.Success)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.EventID, second.EventID)
	assert.JSONEq(t, string(first.Result), string(second.Result))

	assert.Equal(t, 1, h.paidCount(t, "sub_1"))
	assert.Equal(t, int64(1), h.count(t, "webhook_events"))

	event, err := h.svc.Get(context.Background(), "evt_charge_1")
	require.NoError(t, err)
	assert.True(t, event.Processed)
	assert.True(t, event.SignatureVerified)
	require.NotNil(t, event.ProcessedAt)
}

func TestFallbackIDDeduplicatesReformattedBodies(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	compact := `{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_2","status":"active"}}}}`
	spaced := "{ \"payload\": { \"subscription\": { \"entity\": { \"status\": \"active\", \"id\": \"sub_2\" } } }, \"event\": \"subscription.charged\" }"

	first := h.deliver(t, compact)
	second := h.deliver(t, spaced)

	assert.Equal(t, first.EventID, second.EventID)
	assert.Regexp(t, `^evt_[0-9a-f]{64}$`, first.EventID)
	assert.True(t, second.Duplicate)
	assert.Equal(t, 1, h.paidCount(t, "sub_2"))
}

func TestPaidCountConvergesOutOfOrder(t *testing.T) {
	charged := func(eventID string, payloadPaid int) string {
		return fmt.Sprintf(`{"event":"subscription.charged","id":%q,"payload":{"subscription":{"entity":{"id":"sub_3","status":"active","paid_count":%d}}}}`, eventID, payloadPaid)
	}
	activated := `{"event":"subscription.activated","id":"evt_act","payload":{"subscription":{"entity":{"id":"sub_3","status":"active","paid_count":0}}}}`

	inOrder := newHarness(t, config.DefaultReconcilePolicy())
	inOrder.deliver(t, activated)
	inOrder.deliver(t, charged("evt_c1", 1))
	inOrder.deliver(t, charged("evt_c2", 2))

	reversed := newHarness(t, config.DefaultReconcilePolicy())
	reversed.deliver(t, charged("evt_c2", 2))
	reversed.deliver(t, charged("evt_c1", 1))
	reversed.deliver(t, activated)

	assert.Equal(t, 2, inOrder.paidCount(t, "sub_3"))
	assert.Equal(t, 2, reversed.paidCount(t, "sub_3"))
}

func TestCapturedPaymentSettlesOrder(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	h.deliver(t, orderCreatedBody("order_1", 5000))
	res := h.deliver(t, paymentBody("evt_cap", "payment.captured", "pay_1", "order_1", "captured", 5000))
	require.True(t, res.Success)

	var row struct {
		Status     string
		Amount     int64
		AmountPaid int64
		AmountDue  int64
	}
	require.NoError(t, h.db.Raw("SELECT status, amount, amount_paid, amount_due FROM orders WHERE id = ?", "order_1").Scan(&row).Error)
	assert.Equal(t, "paid", row.Status)
	assert.Equal(t, int64(5000), row.AmountPaid)
	assert.Equal(t, int64(0), row.AmountDue)
	assert.Equal(t, row.Amount-row.AmountPaid, row.AmountDue)
}

func TestFailedPaymentIncrementsOrderAttempts(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	h.deliver(t, orderCreatedBody("order_2", 1000))
	h.deliver(t, paymentBody("evt_f1", "payment.failed", "pay_f1", "order_2", "failed", 1000))
	h.deliver(t, paymentBody("evt_f2", "payment.failed", "pay_f2", "order_2", "failed", 1000))
	res := h.deliver(t, paymentBody("evt_f3", "payment.failed", "pay_f3", "order_missing", "failed", 1000))
	assert.True(t, res.Success)

	var attempts int
	require.NoError(t, h.db.Raw("SELECT attempts FROM orders WHERE id = ?", "order_2").Scan(&attempts).Error)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(3), h.count(t, "payments"))
}

func TestUnknownEventIsAcknowledged(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	res := h.deliver(t, `{"event":"refund.created","id":"evt_refund","payload":{"refund":{"entity":{"id":"rfnd_1"}}}}`)
	assert.True(t, res.Success)
	assert.Equal(t, "Event refund.created acknowledged but not processed", res.Message)
	assert.Equal(t, obsmetrics.OutcomeAcknowledged, res.Outcome)

	for _, table := range []string{"orders", "payments", "subscriptions", "subscription_payments"} {
		assert.Zero(t, h.count(t, table), table)
	}
	event, err := h.svc.Get(context.Background(), "evt_refund")
	require.NoError(t, err)
	assert.True(t, event.Processed)
}

func TestAutoCaptureDegradesGracefully(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())
	h.gateway.On("CapturePayment", mock.Anything, "pay_auth", gatewaydomain.CapturePaymentRequest{Amount: 5000, Currency: "INR"}).
		Return(nil, &gatewaydomain.APIError{StatusCode: 503, Description: "upstream down"}).Once()

	res := h.deliver(t, paymentBody("evt_auth", "payment.authorized", "pay_auth", "order_x", "authorized", 5000))
	assert.True(t, res.Success)

	var status string
	require.NoError(t, h.db.Raw("SELECT status FROM payments WHERE id = ?", "pay_auth").Scan(&status).Error)
	assert.Equal(t, string(paymentdomain.StatusAuthorized), status)
	h.gateway.AssertExpectations(t)
}

func TestAutoCaptureReplacesWorkingData(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())
	orderID := "order_x"
	h.gateway.On("CapturePayment", mock.Anything, "pay_auth", mock.Anything).Return(&gatewaydomain.Payment{
		ID:       "pay_auth",
		Amount:   5000,
		Currency: "INR",
		Status:   "captured",
		OrderID:  &orderID,
		Captured: true,
	}, nil).Once()

	res := h.deliver(t, paymentBody("evt_auth", "payment.authorized", "pay_auth", "order_x", "authorized", 5000))
	assert.True(t, res.Success)

	var row struct {
		Status      string
		GatewayData string
	}
	require.NoError(t, h.db.Raw("SELECT status, gateway_data FROM payments WHERE id = ?", "pay_auth").Scan(&row).Error)
	assert.Equal(t, "captured", row.Status)
	assert.Contains(t, row.GatewayData, `"captured":true`)
}

func TestAutoCaptureDisabledByPolicy(t *testing.T) {
	policy := config.DefaultReconcilePolicy()
	policy.AutoCapture = false
	h := newHarness(t, policy)

	res := h.deliver(t, paymentBody("evt_auth", "payment.authorized", "pay_auth", "", "authorized", 5000))
	assert.True(t, res.Success)
	h.gateway.AssertNotCalled(t, "CapturePayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestBadSignatureStoresEventOnly(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())
	body := paymentBody("evt_forged", "payment.captured", "pay_1", "order_1", "captured", 5000)

	headers := http.Header{}
	headers.Set(razorpay.SignatureHeader, gatewayrazorpay.Sign([]byte(body), "not-the-secret"))
	res, err := h.svc.Ingest(context.Background(), "razorpay", []byte(body), headers)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, obsmetrics.OutcomeRejected, res.Outcome)

	event, err := h.svc.Get(context.Background(), "evt_forged")
	require.NoError(t, err)
	assert.False(t, event.SignatureVerified)
	assert.False(t, event.Processed)
	assert.Zero(t, h.count(t, "payments"))
	assert.Zero(t, h.count(t, "orders"))

	// a genuine redelivery of the same event is processed normally
	ok := h.deliver(t, body)
	assert.True(t, ok.Success)
	assert.False(t, ok.Duplicate)
	event, err = h.svc.Get(context.Background(), "evt_forged")
	require.NoError(t, err)
	assert.True(t, event.SignatureVerified)
	assert.Equal(t, int64(1), h.count(t, "payments"))
}

func TestMissingEntityIDIsStructuredFailure(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	res := h.deliver(t, `{"event":"order.paid","id":"evt_noid","payload":{"order":{"entity":{"amount":100}}}}`)
	assert.False(t, res.Success)
	assert.Equal(t, "Order ID not found in payload", res.Message)
	assert.Equal(t, obsmetrics.OutcomeFailed, res.Outcome)
	assert.Zero(t, h.count(t, "orders"))

	again := h.deliver(t, `{"event":"order.paid","id":"evt_noid","payload":{"order":{"entity":{"amount":100}}}}`)
	assert.False(t, again.Success)
	assert.True(t, again.Duplicate)
}

func TestSubscriptionChargedCascadesInvoice(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	body := `{"event":"subscription.charged","id":"evt_sc","payload":{
		"subscription":{"entity":{"id":"sub_9","status":"active"}},
		"payment":{"entity":{"id":"pay_9","amount":49900,"currency":"INR","status":"captured"}},
		"invoice":{"entity":{"id":"inv_9","subscription_id":"sub_9","payment_id":"pay_9","amount":49900,"status":"paid","billing_start":1767225600,"billing_end":1769904000}}}}`
	res := h.deliver(t, body)
	require.True(t, res.Success)

	var decoded struct {
		Cascades []struct {
			Success  bool   `json:"success"`
			EntityID string `json:"entity_id"`
			Event    string `json:"event"`
		} `json:"cascades"`
	}
	require.NoError(t, json.Unmarshal(res.Result, &decoded))
	require.Len(t, decoded.Cascades, 1)
	assert.True(t, decoded.Cascades[0].Success)
	assert.Equal(t, "inv_9", decoded.Cascades[0].EntityID)
	assert.Equal(t, "invoice.paid", decoded.Cascades[0].Event)

	// subscription.charged and the embedded invoice.paid each count the charge
	assert.Equal(t, 2, h.paidCount(t, "sub_9"))
	var status string
	require.NoError(t, h.db.Raw("SELECT status FROM subscription_payments WHERE id = ?", "inv_9").Scan(&status).Error)
	assert.Equal(t, "paid", status)
}

func TestInvoicePaidIncrementsSubscription(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	h.deliver(t, `{"event":"subscription.activated","id":"evt_a","payload":{"subscription":{"entity":{"id":"sub_7","status":"active"}}}}`)
	res := h.deliver(t, `{"event":"invoice.paid","id":"evt_inv","payload":{"invoice":{"entity":{"id":"inv_7","subscription_id":"sub_7","status":"paid","amount":100}}}}`)
	require.True(t, res.Success)
	assert.Equal(t, 1, h.paidCount(t, "sub_7"))

	orphan := h.deliver(t, `{"event":"invoice.paid","id":"evt_orphan","payload":{"invoice":{"id":"inv_8","subscription_id":"sub_unknown","status":"paid"}}}`)
	assert.True(t, orphan.Success)
	assert.Equal(t, int64(2), h.count(t, "subscription_payments"))
}

func TestRejectsUnknownProviderAndMalformedJSON(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	_, err := h.svc.Ingest(context.Background(), "stripe", []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)

	body := `{"event":`
	_, err = h.svc.Ingest(context.Background(), "razorpay", []byte(body), signed(body))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.Zero(t, h.count(t, "webhook_events"))
}

func TestChargedPaidCountFailureKeepsSubscription(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())
	h.deliver(t, `{"event":"subscription.activated","id":"evt_pa","payload":{"subscription":{"entity":{"id":"sub_p","status":"active"}}}}`)
	h.block(t, "paid_count", "BEFORE UPDATE OF paid_count ON subscriptions")

	res := h.deliver(t, `{"event":"subscription.charged","id":"evt_pc","payload":{"subscription":{"entity":{"id":"sub_p","status":"active","plan_id":"plan_2"}}}}`)
	require.True(t, res.Success)
	assert.Equal(t, obsmetrics.OutcomeProcessed, res.Outcome)

	decoded := decodeResult(t, res)
	assert.Equal(t, "sub_p", decoded.EntityID)
	assert.False(t, stepSucceeded(t, decoded, "subscription.paid_count"))
	assert.Equal(t, 0, h.paidCount(t, "sub_p"))

	var planID string
	require.NoError(t, h.db.Raw("SELECT plan_id FROM subscriptions WHERE id = ?", "sub_p").Scan(&planID).Error)
	assert.Equal(t, "plan_2", planID)

	event, err := h.svc.Get(context.Background(), "evt_pc")
	require.NoError(t, err)
	assert.True(t, event.Processed)
}

func TestFailedOrderStepsKeepPayment(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())
	h.deliver(t, orderCreatedBody("order_b", 3000))
	h.block(t, "orders_update", "BEFORE UPDATE ON orders")

	failed := h.deliver(t, paymentBody("evt_bf", "payment.failed", "pay_bf", "order_b", "failed", 3000))
	require.True(t, failed.Success)
	assert.False(t, stepSucceeded(t, decodeResult(t, failed), "order.attempts"))

	captured := h.deliver(t, paymentBody("evt_bc", "payment.captured", "pay_bc", "order_b", "captured", 3000))
	require.True(t, captured.Success)
	assert.False(t, stepSucceeded(t, decodeResult(t, captured), "order.settlement"))

	assert.Equal(t, int64(2), h.count(t, "payments"))
	var status string
	require.NoError(t, h.db.Raw("SELECT status FROM payments WHERE id = ?", "pay_bc").Scan(&status).Error)
	assert.Equal(t, "captured", status)

	var order struct {
		Status     string
		Attempts   int
		AmountPaid int64
	}
	require.NoError(t, h.db.Raw("SELECT status, attempts, amount_paid FROM orders WHERE id = ?", "order_b").Scan(&order).Error)
	assert.Equal(t, "created", order.Status)
	assert.Zero(t, order.Attempts)
	assert.Zero(t, order.AmountPaid)
}

func TestFailedInvoiceCascadeKeepsSubscription(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())
	h.block(t, "invoice_insert", "BEFORE INSERT ON subscription_payments")

	body := `{"event":"subscription.charged","id":"evt_cf","payload":{
		"subscription":{"entity":{"id":"sub_cf","status":"active"}},
		"invoice":{"entity":{"id":"inv_cf","subscription_id":"sub_cf","amount":49900,"status":"paid"}}}}`
	res := h.deliver(t, body)
	require.True(t, res.Success)

	decoded := decodeResult(t, res)
	assert.True(t, stepSucceeded(t, decoded, "subscription.paid_count"))
	require.Len(t, decoded.Cascades, 1)
	assert.False(t, decoded.Cascades[0].Success)
	assert.Equal(t, "Invoice could not be stored", decoded.Cascades[0].Message)

	assert.Equal(t, 1, h.paidCount(t, "sub_cf"))
	assert.Zero(t, h.count(t, "subscription_payments"))
}

func TestRejectsNonObjectPayloadSection(t *testing.T) {
	h := newHarness(t, config.DefaultReconcilePolicy())

	body := `{"event":"payment.captured","id":"evt_arr","payload":["payment"]}`
	_, err := h.svc.Ingest(context.Background(), "razorpay", []byte(body), signed(body))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.Zero(t, h.count(t, "webhook_events"))
}
