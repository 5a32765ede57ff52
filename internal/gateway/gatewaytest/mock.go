// Package gatewaytest provides a testify mock of the gateway client.
package gatewaytest

import (
	"context"

	"github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/stretchr/testify/mock"
)

type Client struct {
	mock.Mock
}

var _ domain.Client = (*Client)(nil)

func (m *Client) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	args := m.Called(ctx, req)
	return ret[domain.Order](args)
}

func (m *Client) FetchOrder(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	return ret[domain.Order](args)
}

func (m *Client) FetchPayment(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	return ret[domain.Payment](args)
}

func (m *Client) CapturePayment(ctx context.Context, id string, req domain.CapturePaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, id, req)
	return ret[domain.Payment](args)
}

func (m *Client) CreateSubscription(ctx context.Context, req domain.CreateSubscriptionRequest) (*domain.Subscription, error) {
	args := m.Called(ctx, req)
	return ret[domain.Subscription](args)
}

func (m *Client) FetchSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	args := m.Called(ctx, id)
	return ret[domain.Subscription](args)
}

func (m *Client) ListSubscriptions(ctx context.Context, req domain.ListSubscriptionsRequest) (*domain.Collection[domain.Subscription], error) {
	args := m.Called(ctx, req)
	return ret[domain.Collection[domain.Subscription]](args)
}

func (m *Client) CancelSubscription(ctx context.Context, id string, atCycleEnd bool) (*domain.Subscription, error) {
	args := m.Called(ctx, id, atCycleEnd)
	return ret[domain.Subscription](args)
}

func (m *Client) PauseSubscription(ctx context.Context, id string, pauseAt string) (*domain.Subscription, error) {
	args := m.Called(ctx, id, pauseAt)
	return ret[domain.Subscription](args)
}

func (m *Client) ResumeSubscription(ctx context.Context, id string, resumeAt string) (*domain.Subscription, error) {
	args := m.Called(ctx, id, resumeAt)
	return ret[domain.Subscription](args)
}

func (m *Client) FetchInvoicesForSubscription(ctx context.Context, subscriptionID string) (*domain.Collection[domain.Invoice], error) {
	args := m.Called(ctx, subscriptionID)
	return ret[domain.Collection[domain.Invoice]](args)
}

func (m *Client) FetchInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	args := m.Called(ctx, id)
	return ret[domain.Invoice](args)
}

func (m *Client) CreatePlan(ctx context.Context, req domain.CreatePlanRequest) (*domain.Plan, error) {
	args := m.Called(ctx, req)
	return ret[domain.Plan](args)
}

func (m *Client) FetchPlan(ctx context.Context, id string) (*domain.Plan, error) {
	args := m.Called(ctx, id)
	return ret[domain.Plan](args)
}

func (m *Client) ListPlans(ctx context.Context, count, skip int) (*domain.Collection[domain.Plan], error) {
	args := m.Called(ctx, count, skip)
	return ret[domain.Collection[domain.Plan]](args)
}

func (m *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return m.Called(orderID, paymentID, signature).Bool(0)
}

func (m *Client) VerifyWebhookSignature(raw []byte, signature string) bool {
	return m.Called(raw, signature).Bool(0)
}

func ret[T any](args mock.Arguments) (*T, error) {
	var out *T
	if v := args.Get(0); v != nil {
		out = v.(*T)
	}
	return out, args.Error(1)
}
