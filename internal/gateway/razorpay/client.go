package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/payrail/internal/config"
	"github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/smallbiznis/payrail/internal/observability/tracing"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.razorpay.com"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Field       string `json:"field"`
	} `json:"error"`
}

// Client talks to the Razorpay REST API with basic auth.
type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	http          *http.Client
	validate      *validator.Validate
	log           *zap.Logger
}

func New(cfg config.RazorpayConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:       baseURL,
		keyID:         strings.TrimSpace(cfg.KeyID),
		keySecret:     strings.TrimSpace(cfg.KeySecret),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		http:          tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		validate:      validator.New(),
		log:           log.Named("gateway.razorpay"),
	}
}

func (c *Client) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, "/v1/orders", nil, req)
	if err != nil {
		return nil, err
	}
	var out domain.Order
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	out.Raw = body
	return &out, nil
}

func (c *Client) FetchOrder(ctx context.Context, id string) (*domain.Order, error) {
	body, err := c.get(ctx, "/v1/orders/", id)
	if err != nil {
		return nil, err
	}
	var out domain.Order
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	out.Raw = body
	return &out, nil
}

func (c *Client) FetchPayment(ctx context.Context, id string) (*domain.Payment, error) {
	body, err := c.get(ctx, "/v1/payments/", id)
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

func (c *Client) CapturePayment(ctx context.Context, id string, req domain.CapturePaymentRequest) (*domain.Payment, error) {
	path, err := entityPath("/v1/payments/", id)
	if err != nil {
		return nil, err
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, path+"/capture", nil, req)
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

func (c *Client) CreateSubscription(ctx context.Context, req domain.CreateSubscriptionRequest) (*domain.Subscription, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, "/v1/subscriptions", nil, req)
	if err != nil {
		return nil, err
	}
	return decodeSubscription(body)
}

func (c *Client) FetchSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	body, err := c.get(ctx, "/v1/subscriptions/", id)
	if err != nil {
		return nil, err
	}
	return decodeSubscription(body)
}

func (c *Client) ListSubscriptions(ctx context.Context, req domain.ListSubscriptionsRequest) (*domain.Collection[domain.Subscription], error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("count", strconv.Itoa(req.Count))
	query.Set("skip", strconv.Itoa(req.Skip))
	if v := strings.TrimSpace(req.PlanID); v != "" {
		query.Set("plan_id", v)
	}
	if v := strings.TrimSpace(req.CustomerID); v != "" {
		query.Set("customer_id", v)
	}
	body, err := c.do(ctx, http.MethodGet, "/v1/subscriptions", query, nil)
	if err != nil {
		return nil, err
	}
	return decodeCollection(body, func(s *domain.Subscription, raw json.RawMessage) { s.Raw = raw })
}

func (c *Client) CancelSubscription(ctx context.Context, id string, atCycleEnd bool) (*domain.Subscription, error) {
	flag := 0
	if atCycleEnd {
		flag = 1
	}
	return c.subscriptionAction(ctx, id, "cancel", map[string]any{"cancel_at_cycle_end": flag})
}

func (c *Client) PauseSubscription(ctx context.Context, id string, pauseAt string) (*domain.Subscription, error) {
	return c.subscriptionAction(ctx, id, "pause", map[string]any{"pause_at": wireTiming(pauseAt)})
}

func (c *Client) ResumeSubscription(ctx context.Context, id string, resumeAt string) (*domain.Subscription, error) {
	return c.subscriptionAction(ctx, id, "resume", map[string]any{"resume_at": wireTiming(resumeAt)})
}

func (c *Client) subscriptionAction(ctx context.Context, id, action string, payload map[string]any) (*domain.Subscription, error) {
	path, err := entityPath("/v1/subscriptions/", id)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, path+"/"+action, nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeSubscription(body)
}

func (c *Client) FetchInvoicesForSubscription(ctx context.Context, subscriptionID string) (*domain.Collection[domain.Invoice], error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, domain.ErrInvalidID
	}
	query := url.Values{}
	query.Set("subscription_id", subscriptionID)
	body, err := c.do(ctx, http.MethodGet, "/v1/invoices", query, nil)
	if err != nil {
		return nil, err
	}
	return decodeCollection(body, func(i *domain.Invoice, raw json.RawMessage) { i.Raw = raw })
}

func (c *Client) FetchInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	body, err := c.get(ctx, "/v1/invoices/", id)
	if err != nil {
		return nil, err
	}
	var out domain.Invoice
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	out.Raw = body
	return &out, nil
}

func (c *Client) CreatePlan(ctx context.Context, req domain.CreatePlanRequest) (*domain.Plan, error) {
	req.Item.Currency = strings.ToUpper(strings.TrimSpace(req.Item.Currency))
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Item.Name) == "" || req.Item.Amount <= 0 || len(req.Item.Currency) != 3 {
		return nil, fmt.Errorf("%w: plan item requires name, amount and currency", domain.ErrInvalidRequest)
	}
	body, err := c.do(ctx, http.MethodPost, "/v1/plans", nil, req)
	if err != nil {
		return nil, err
	}
	return decodePlan(body)
}

func (c *Client) FetchPlan(ctx context.Context, id string) (*domain.Plan, error) {
	body, err := c.get(ctx, "/v1/plans/", id)
	if err != nil {
		return nil, err
	}
	return decodePlan(body)
}

func (c *Client) ListPlans(ctx context.Context, count, skip int) (*domain.Collection[domain.Plan], error) {
	query := url.Values{}
	query.Set("count", strconv.Itoa(count))
	query.Set("skip", strconv.Itoa(skip))
	body, err := c.do(ctx, http.MethodGet, "/v1/plans", query, nil)
	if err != nil {
		return nil, err
	}
	return decodeCollection(body, func(p *domain.Plan, raw json.RawMessage) { p.Raw = raw })
}

func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(orderID, paymentID, signature, c.keySecret)
}

func (c *Client) VerifyWebhookSignature(raw []byte, signature string) bool {
	return VerifyWebhookSignature(raw, signature, c.webhookSecret)
}

func (c *Client) get(ctx context.Context, prefix, id string) ([]byte, error) {
	path, err := entityPath(prefix, id)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if c.keyID == "" || c.keySecret == "" {
		return nil, domain.ErrNotConfigured
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("razorpay request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrUnavailable, err)
	}

	c.log.Debug("razorpay request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &domain.APIError{StatusCode: resp.StatusCode}
		var parsed errorResponse
		if err := json.Unmarshal(respBody, &parsed); err == nil {
			apiErr.Code = strings.TrimSpace(parsed.Error.Code)
			apiErr.Description = strings.TrimSpace(parsed.Error.Description)
			apiErr.Field = strings.TrimSpace(parsed.Error.Field)
		}
		return nil, apiErr
	}
	return respBody, nil
}

func (c *Client) validateRequest(req any) error {
	if err := c.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %s", domain.ErrInvalidRequest, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

func entityPath(prefix, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", domain.ErrInvalidID
	}
	return prefix + url.PathEscape(id), nil
}

// wireTiming maps the API vocabulary onto what Razorpay accepts.
func wireTiming(at string) string {
	switch strings.ToLower(strings.TrimSpace(at)) {
	case "", domain.AtImmediate, "now":
		return "now"
	case domain.AtCycleEnd:
		return domain.AtCycleEnd
	default:
		return at
	}
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode razorpay response: %w", err)
	}
	return nil
}

func decodePayment(body []byte) (*domain.Payment, error) {
	var out domain.Payment
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	out.Raw = body
	return &out, nil
}

func decodeSubscription(body []byte) (*domain.Subscription, error) {
	var out domain.Subscription
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	out.Raw = body
	return &out, nil
}

func decodePlan(body []byte) (*domain.Plan, error) {
	var out domain.Plan
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	out.Raw = body
	return &out, nil
}

func decodeCollection[T any](body []byte, setRaw func(*T, json.RawMessage)) (*domain.Collection[T], error) {
	var envelope struct {
		Entity string            `json:"entity"`
		Count  int               `json:"count"`
		Items  []json.RawMessage `json:"items"`
	}
	if err := decode(body, &envelope); err != nil {
		return nil, err
	}
	out := &domain.Collection[T]{
		Entity: envelope.Entity,
		Count:  envelope.Count,
		Items:  make([]T, 0, len(envelope.Items)),
		Raw:    body,
	}
	for _, raw := range envelope.Items {
		var item T
		if err := decode(raw, &item); err != nil {
			return nil, err
		}
		setRaw(&item, raw)
		out.Items = append(out.Items, item)
	}
	return out, nil
}

var _ domain.Client = (*Client)(nil)
