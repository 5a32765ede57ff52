package domain

import "context"

// Client is the outbound surface of the payment gateway.
// Implementations bound every call with a timeout.
type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, id string) (*Order, error)

	FetchPayment(ctx context.Context, id string) (*Payment, error)
	CapturePayment(ctx context.Context, id string, req CapturePaymentRequest) (*Payment, error)

	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*Subscription, error)
	FetchSubscription(ctx context.Context, id string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, req ListSubscriptionsRequest) (*Collection[Subscription], error)
	CancelSubscription(ctx context.Context, id string, atCycleEnd bool) (*Subscription, error)
	PauseSubscription(ctx context.Context, id string, pauseAt string) (*Subscription, error)
	ResumeSubscription(ctx context.Context, id string, resumeAt string) (*Subscription, error)

	FetchInvoicesForSubscription(ctx context.Context, subscriptionID string) (*Collection[Invoice], error)
	FetchInvoice(ctx context.Context, id string) (*Invoice, error)

	CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	FetchPlan(ctx context.Context, id string) (*Plan, error)
	ListPlans(ctx context.Context, count, skip int) (*Collection[Plan], error)

	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(raw []byte, signature string) bool
}
