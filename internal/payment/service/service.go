package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/payrail/internal/clock"
	"github.com/smallbiznis/payrail/internal/config"
	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
	obsmetrics "github.com/smallbiznis/payrail/internal/observability/metrics"
	"github.com/smallbiznis/payrail/internal/payment/domain"
	"github.com/smallbiznis/payrail/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Gateway    gatewaydomain.Client
	Repo       domain.Repository
	Policy     *config.ReconcilePolicyHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	gateway    gatewaydomain.Client
	repo       domain.Repository
	policy     *config.ReconcilePolicyHolder
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		clock:      p.Clock,
		gateway:    p.Gateway,
		repo:       p.Repo,
		policy:     p.Policy,
		obsMetrics: p.ObsMetrics,
	}
}

// Verify checks the checkout signature, mirrors the payment when it is not stored yet
// and captures it when the gateway reports it authorized.
func (s *Service) Verify(ctx context.Context, req domain.VerifyRequest) (*domain.VerifyResult, error) {
	orderID := strings.TrimSpace(req.OrderID)
	paymentID := strings.TrimSpace(req.PaymentID)
	if orderID == "" || paymentID == "" {
		return nil, domain.ErrInvalidPaymentID
	}
	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, strings.TrimSpace(req.Signature)) {
		return nil, domain.ErrInvalidSignature
	}

	remote, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, remote.ID)
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if existing == nil {
		if _, err := s.Store(ctx, s.db, remote, domain.StatusFromGateway(remote.Status)); err != nil {
			s.log.Error("failed to store verified payment",
				zap.String("payment_id", remote.ID),
				zap.Error(err),
			)
		}
	}

	status := domain.StatusFromGateway(remote.Status)
	if status == domain.StatusAuthorized {
		if captured, ok := s.AutoCapture(ctx, remote); ok {
			remote = captured
			status = domain.StatusCaptured
			if _, err := s.Store(ctx, s.db, remote, status); err != nil {
				s.log.Error("failed to store captured payment",
					zap.String("payment_id", remote.ID),
					zap.Error(err),
				)
			}
		}
	}

	result := &domain.VerifyResult{
		Verified:  true,
		PaymentID: remote.ID,
		OrderID:   orderID,
		Status:    status,
		Amount:    remote.Amount,
		Currency:  remote.Currency,
		Method:    remote.Method,
		Captured:  status == domain.StatusCaptured,
	}
	return result, nil
}

// Capture captures an authorized payment. Amount defaults to the authorized amount.
func (s *Service) Capture(ctx context.Context, req domain.CaptureRequest) (*domain.CaptureResult, error) {
	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" {
		return nil, domain.ErrInvalidPaymentID
	}

	remote, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	switch domain.StatusFromGateway(remote.Status) {
	case domain.StatusCaptured:
		return &domain.CaptureResult{
			PaymentID:       remote.ID,
			Status:          domain.StatusCaptured,
			Amount:          remote.Amount,
			Currency:        remote.Currency,
			AlreadyCaptured: true,
		}, nil
	case domain.StatusAuthorized:
	default:
		return nil, domain.ErrNotAuthorized
	}

	amount := remote.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currencyOf(remote)
	}

	captured, err := s.gateway.CapturePayment(ctx, remote.ID, gatewaydomain.CapturePaymentRequest{
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		return nil, err
	}

	status := domain.StatusFromGateway(captured.Status)
	if _, err := s.Store(ctx, s.db, captured, status); err != nil {
		s.log.Error("failed to store captured payment",
			zap.String("payment_id", captured.ID),
			zap.Error(err),
		)
	}

	return &domain.CaptureResult{
		PaymentID: captured.ID,
		Status:    status,
		Amount:    captured.Amount,
		Currency:  s.currencyOf(captured),
	}, nil
}

// AutoCapture captures the full authorized amount. The returned payment is the capture
// response when ok is true; otherwise the input is returned unchanged and nothing is raised.
func (s *Service) AutoCapture(ctx context.Context, remote *gatewaydomain.Payment) (*gatewaydomain.Payment, bool) {
	if remote == nil {
		return nil, false
	}
	if !s.policy.Get().AutoCapture {
		s.obsMetrics.RecordAutoCapture(ctx, obsmetrics.AutoCaptureOutcomeSkipped)
		return remote, false
	}

	captured, err := s.gateway.CapturePayment(ctx, remote.ID, gatewaydomain.CapturePaymentRequest{
		Amount:   remote.Amount,
		Currency: s.currencyOf(remote),
	})
	if err != nil || captured == nil {
		s.obsMetrics.RecordAutoCapture(ctx, obsmetrics.AutoCaptureOutcomeFailure)
		s.log.Warn("auto capture failed",
			zap.String("payment_id", remote.ID),
			zap.Int64("amount", remote.Amount),
			zap.Error(err),
		)
		return remote, false
	}

	s.obsMetrics.RecordAutoCapture(ctx, obsmetrics.AutoCaptureOutcomeSuccess)
	s.log.Info("payment auto captured",
		zap.String("payment_id", captured.ID),
		zap.Int64("amount", captured.Amount),
	)
	return captured, true
}

// Store upserts the payment. Existing rows keep id, order_id and created_at.
func (s *Service) Store(ctx context.Context, db *gorm.DB, remote *gatewaydomain.Payment, status domain.Status) (*domain.Payment, error) {
	if remote == nil || strings.TrimSpace(remote.ID) == "" {
		return nil, domain.ErrInvalidPaymentID
	}
	now := s.clock.Now()
	gatewayData := datatypes.JSON(gatewaydomain.Body(remote.Raw, remote))

	existing, err := s.repo.FindByID(ctx, db, remote.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Status = status
		existing.Amount = remote.Amount
		existing.Currency = s.currencyOf(remote)
		existing.Method = remote.Method
		existing.Description = remote.Description
		existing.GatewayData = gatewayData
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, db, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	payment := &domain.Payment{
		ID:          remote.ID,
		Amount:      remote.Amount,
		Currency:    s.currencyOf(remote),
		Status:      status,
		Method:      remote.Method,
		Description: remote.Description,
		GatewayData: gatewayData,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if remote.OrderID != nil {
		payment.OrderID = strings.TrimSpace(*remote.OrderID)
	}
	if err := s.repo.Insert(ctx, db, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) currencyOf(remote *gatewaydomain.Payment) string {
	if c := strings.ToUpper(strings.TrimSpace(remote.Currency)); c != "" {
		return c
	}
	return s.policy.Get().DefaultCurrency
}

func (s *Service) Get(ctx context.Context, id string) (*gatewaydomain.Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidPaymentID
	}
	return s.gateway.FetchPayment(ctx, id)
}

func (s *Service) GetLocal(ctx context.Context, id string) (*domain.Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidPaymentID
	}
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

func (s *Service) List(ctx context.Context, page pagination.Offset) ([]*domain.Payment, error) {
	return s.repo.List(ctx, s.db, page)
}
