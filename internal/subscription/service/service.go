package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/payrail/internal/clock"
	"github.com/smallbiznis/payrail/internal/config"
	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/smallbiznis/payrail/internal/subscription/domain"
	"github.com/smallbiznis/payrail/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Gateway gatewaydomain.Client
	Repo    domain.Repository
	Policy  *config.ReconcilePolicyHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	gateway gatewaydomain.Client
	repo    domain.Repository
	policy  *config.ReconcilePolicyHolder
}

func NewService(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("subscription.service"),
		clock:   p.Clock,
		gateway: p.Gateway,
		repo:    p.Repo,
		policy:  p.Policy,
	}
}

// Store upserts the gateway subscription. Only fields present in the payload overwrite stored
// values, and paid_count is never taken from the payload.
func (s *Service) Store(ctx context.Context, db *gorm.DB, remote *gatewaydomain.Subscription) (*domain.Subscription, error) {
	if remote == nil || strings.TrimSpace(remote.ID) == "" {
		return nil, domain.ErrInvalidSubscriptionID
	}
	now := s.clock.Now()

	existing, err := s.repo.FindByID(ctx, db, remote.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		applySubscription(existing, remote)
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, db, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	sub := &domain.Subscription{
		ID:        remote.ID,
		Status:    domain.StatusFromGateway(remote.Status),
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applySubscription(sub, remote)
	if err := s.repo.Insert(ctx, db, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func applySubscription(sub *domain.Subscription, remote *gatewaydomain.Subscription) {
	if remote.PlanID != nil {
		sub.PlanID = remote.PlanID
	}
	if remote.CustomerID != nil {
		sub.CustomerID = remote.CustomerID
	}
	if strings.TrimSpace(remote.Status) != "" {
		sub.Status = domain.StatusFromGateway(remote.Status)
	}
	setTime(&sub.CurrentStart, remote.CurrentStart)
	setTime(&sub.CurrentEnd, remote.CurrentEnd)
	setTime(&sub.EndedAt, remote.EndedAt)
	setTime(&sub.ChargeAt, remote.ChargeAt)
	setTime(&sub.StartAt, remote.StartAt)
	setTime(&sub.EndAt, remote.EndAt)
	if remote.Quantity != nil {
		sub.Quantity = *remote.Quantity
	}
	if remote.AuthAttempts != nil {
		sub.AuthAttempts = *remote.AuthAttempts
	}
	if remote.TotalCount != nil {
		total := *remote.TotalCount
		sub.TotalCount = &total
	}
	if remote.Notes != nil {
		if b, err := json.Marshal(remote.Notes); err == nil {
			sub.Notes = datatypes.JSON(b)
		}
	}
	sub.GatewayData = datatypes.JSON(gatewaydomain.Body(remote.Raw, remote))
}

// setTime overwrites dst only for a non-zero epoch.
func setTime(dst **time.Time, epoch *int64) {
	if t := fromEpoch(epoch); t != nil {
		*dst = t
	}
}

func fromEpoch(epoch *int64) *time.Time {
	if epoch == nil || *epoch <= 0 {
		return nil
	}
	t := time.Unix(*epoch, 0).UTC()
	return &t
}

// StoreInvoice upserts the subscription payment keyed by the invoice id.
func (s *Service) StoreInvoice(ctx context.Context, db *gorm.DB, invoice *gatewaydomain.Invoice) (*domain.SubscriptionPayment, error) {
	if invoice == nil || strings.TrimSpace(invoice.ID) == "" {
		return nil, domain.ErrInvalidInvoiceID
	}
	now := s.clock.Now()

	existing, err := s.repo.FindPayment(ctx, db, invoice.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		applyInvoice(existing, invoice)
		existing.UpdatedAt = now
		if err := s.repo.UpdatePayment(ctx, db, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	invoiceID := invoice.ID
	payment := &domain.SubscriptionPayment{
		ID:        invoice.ID,
		InvoiceID: &invoiceID,
		Currency:  s.policy.Get().DefaultCurrency,
		Status:    domain.InvoiceStatusIssued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInvoice(payment, invoice)
	if err := s.repo.InsertPayment(ctx, db, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func applyInvoice(payment *domain.SubscriptionPayment, invoice *gatewaydomain.Invoice) {
	if invoice.SubscriptionID != nil && strings.TrimSpace(*invoice.SubscriptionID) != "" {
		payment.SubscriptionID = strings.TrimSpace(*invoice.SubscriptionID)
	}
	if invoice.PaymentID != nil {
		paymentID := *invoice.PaymentID
		payment.PaymentID = &paymentID
	}
	if invoice.Amount != nil {
		payment.Amount = *invoice.Amount
	}
	if invoice.Currency != nil && strings.TrimSpace(*invoice.Currency) != "" {
		payment.Currency = strings.ToUpper(strings.TrimSpace(*invoice.Currency))
	}
	if invoice.Status != nil && strings.TrimSpace(*invoice.Status) != "" {
		payment.Status = strings.TrimSpace(*invoice.Status)
	}
	if invoice.Description != nil {
		description := *invoice.Description
		payment.Description = &description
	}
	setTime(&payment.BillingPeriodStart, invoice.PeriodStart())
	setTime(&payment.BillingPeriodEnd, invoice.PeriodEnd())
	payment.GatewayData = datatypes.JSON(gatewaydomain.Body(invoice.Raw, invoice))
}

// IncrementPaidCount adds one successful charge. Missing subscriptions are not an error.
func (s *Service) IncrementPaidCount(ctx context.Context, db *gorm.DB, subscriptionID string) (bool, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return false, nil
	}
	return s.repo.IncrementPaidCount(ctx, db, subscriptionID, s.clock.Now())
}

func (s *Service) CreatePlan(ctx context.Context, req domain.CreatePlanRequest) (*gatewaydomain.Plan, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.policy.Get().DefaultCurrency
	}
	interval := req.Interval
	if interval <= 0 {
		interval = 1
	}
	return s.gateway.CreatePlan(ctx, gatewaydomain.CreatePlanRequest{
		Period:   strings.ToLower(strings.TrimSpace(req.Period)),
		Interval: interval,
		Item: gatewaydomain.PlanItem{
			Name:        strings.TrimSpace(req.Name),
			Amount:      req.Amount,
			Currency:    currency,
			Description: req.Description,
		},
		Notes: req.Notes,
	})
}

func (s *Service) GetPlan(ctx context.Context, id string) (*gatewaydomain.Plan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidPlanID
	}
	return s.gateway.FetchPlan(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context, page pagination.Count) (*gatewaydomain.Collection[gatewaydomain.Plan], error) {
	page = page.Normalize()
	return s.gateway.ListPlans(ctx, page.Count, page.Skip)
}

// Create opens the subscription at the gateway and mirrors it locally.
// A failed local write is logged; the gateway subscription is still returned.
func (s *Service) Create(ctx context.Context, req domain.CreateSubscriptionRequest) (*gatewaydomain.Subscription, error) {
	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		return nil, domain.ErrInvalidPlanID
	}
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	notify := 0
	if req.CustomerNotify {
		notify = 1
	}

	remote, err := s.gateway.CreateSubscription(ctx, gatewaydomain.CreateSubscriptionRequest{
		PlanID:         planID,
		CustomerNotify: notify,
		Quantity:       quantity,
		StartAt:        req.StartAt,
		TotalCount:     req.TotalCount,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.Store(ctx, s.db, remote); err != nil {
		s.log.Error("failed to store subscription locally",
			zap.String("subscription_id", remote.ID),
			zap.Error(err),
		)
	}
	return remote, nil
}

func (s *Service) Get(ctx context.Context, id string) (*gatewaydomain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidSubscriptionID
	}
	return s.gateway.FetchSubscription(ctx, id)
}

func (s *Service) GetLocal(ctx context.Context, id string) (*domain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidSubscriptionID
	}
	sub, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	if sub == nil {
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRemoteRequest) (*gatewaydomain.Collection[gatewaydomain.Subscription], error) {
	page := pagination.Count{Count: req.Count, Skip: req.Skip}.Normalize()
	return s.gateway.ListSubscriptions(ctx, gatewaydomain.ListSubscriptionsRequest{
		Count:      page.Count,
		Skip:       page.Skip,
		PlanID:     strings.TrimSpace(req.PlanID),
		CustomerID: strings.TrimSpace(req.CustomerID),
	})
}

func (s *Service) ListLocal(ctx context.Context, page pagination.Offset) ([]*domain.Subscription, error) {
	return s.repo.List(ctx, s.db, page)
}

func (s *Service) Cancel(ctx context.Context, id string, atCycleEnd bool) (*gatewaydomain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidSubscriptionID
	}
	remote, err := s.gateway.CancelSubscription(ctx, id, atCycleEnd)
	if err != nil {
		return nil, err
	}
	s.markLocal(ctx, id, domain.StatusCancelled)
	return remote, nil
}

func (s *Service) Pause(ctx context.Context, id string, pauseAt string) (*gatewaydomain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidSubscriptionID
	}
	at, err := timing(pauseAt)
	if err != nil {
		return nil, err
	}
	remote, err := s.gateway.PauseSubscription(ctx, id, at)
	if err != nil {
		return nil, err
	}
	s.markLocal(ctx, id, domain.StatusPaused)
	return remote, nil
}

func (s *Service) Resume(ctx context.Context, id string, resumeAt string) (*gatewaydomain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidSubscriptionID
	}
	at, err := timing(resumeAt)
	if err != nil {
		return nil, err
	}
	remote, err := s.gateway.ResumeSubscription(ctx, id, at)
	if err != nil {
		return nil, err
	}
	s.markLocal(ctx, id, domain.StatusActive)
	return remote, nil
}

func timing(at string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(at)) {
	case "", gatewaydomain.AtImmediate, "now":
		return gatewaydomain.AtImmediate, nil
	case gatewaydomain.AtCycleEnd:
		return gatewaydomain.AtCycleEnd, nil
	default:
		return "", domain.ErrInvalidTiming
	}
}

func (s *Service) markLocal(ctx context.Context, id string, status domain.Status) {
	found, err := s.repo.UpdateStatus(ctx, s.db, id, status, s.clock.Now())
	if err != nil {
		s.log.Warn("failed to update local subscription status",
			zap.String("subscription_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	if !found {
		s.log.Debug("subscription not stored locally", zap.String("subscription_id", id))
	}
}

func (s *Service) Invoices(ctx context.Context, subscriptionID string) (*gatewaydomain.Collection[gatewaydomain.Invoice], error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, domain.ErrInvalidSubscriptionID
	}
	return s.gateway.FetchInvoicesForSubscription(ctx, subscriptionID)
}

func (s *Service) Invoice(ctx context.Context, id string) (*gatewaydomain.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidInvoiceID
	}
	return s.gateway.FetchInvoice(ctx, id)
}
