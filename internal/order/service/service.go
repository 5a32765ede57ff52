package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/payrail/internal/clock"
	"github.com/smallbiznis/payrail/internal/config"
	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/smallbiznis/payrail/internal/order/domain"
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
	GenID   *snowflake.Node
	Gateway gatewaydomain.Client
	Repo    domain.Repository
	Policy  *config.ReconcilePolicyHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	gateway gatewaydomain.Client
	repo    domain.Repository
	policy  *config.ReconcilePolicyHolder
}

func NewService(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("order.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		gateway: p.Gateway,
		repo:    p.Repo,
		policy:  p.Policy,
	}
}

// Create opens the order at the gateway and mirrors it locally.
// A failed local write is logged; the gateway order is still returned.
func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (*gatewaydomain.Order, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.policy.Get().DefaultCurrency
	}
	receipt := strings.TrimSpace(req.Receipt)
	if receipt == "" && s.genID != nil {
		receipt = "rcpt_" + s.genID.Generate().String()
	}

	remote, err := s.gateway.CreateOrder(ctx, gatewaydomain.CreateOrderRequest{
		Amount:   req.Amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.Store(ctx, s.db, remote); err != nil {
		s.log.Error("failed to store order locally",
			zap.String("order_id", remote.ID),
			zap.Error(err),
		)
	}
	return remote, nil
}

// Store upserts the gateway order. Fields absent from the gateway payload keep their stored values;
// new rows fall back to zero amounts, the default currency and the created status.
func (s *Service) Store(ctx context.Context, db *gorm.DB, remote *gatewaydomain.Order) (*domain.Order, error) {
	if remote == nil || strings.TrimSpace(remote.ID) == "" {
		return nil, domain.ErrInvalidOrderID
	}
	now := s.clock.Now()

	existing, err := s.repo.FindByID(ctx, db, remote.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		apply(existing, remote)
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, db, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	order := &domain.Order{
		ID:        remote.ID,
		Currency:  s.policy.Get().DefaultCurrency,
		Status:    domain.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(order, remote)
	if err := s.repo.Insert(ctx, db, order); err != nil {
		return nil, err
	}
	return order, nil
}

func apply(order *domain.Order, remote *gatewaydomain.Order) {
	if remote.Amount != nil {
		order.Amount = *remote.Amount
	}
	if remote.AmountPaid != nil {
		order.AmountPaid = *remote.AmountPaid
	}
	if remote.AmountDue != nil {
		order.AmountDue = *remote.AmountDue
	}
	if remote.Currency != nil && strings.TrimSpace(*remote.Currency) != "" {
		order.Currency = strings.ToUpper(strings.TrimSpace(*remote.Currency))
	}
	if remote.Receipt != nil {
		receipt := *remote.Receipt
		order.Receipt = &receipt
	}
	if remote.Status != nil && strings.TrimSpace(*remote.Status) != "" {
		order.Status = domain.Status(strings.TrimSpace(*remote.Status))
	}
	if remote.Attempts != nil {
		order.Attempts = *remote.Attempts
	}
	if remote.Notes != nil {
		if b, err := json.Marshal(remote.Notes); err == nil {
			order.Notes = datatypes.JSON(b)
		}
	}
}

// RecordFailedAttempt bumps the attempt counter. Missing orders are not an error.
func (s *Service) RecordFailedAttempt(ctx context.Context, db *gorm.DB, orderID string) (bool, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return false, nil
	}
	return s.repo.IncrementAttempts(ctx, db, orderID, s.clock.Now())
}

// RecordCapture marks the order paid with the captured amount.
func (s *Service) RecordCapture(ctx context.Context, db *gorm.DB, orderID string, amountPaid int64) (bool, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return false, nil
	}
	status := domain.Status(s.policy.Get().PaidOrderStatus)
	return s.repo.ApplyCapture(ctx, db, orderID, status, amountPaid, s.clock.Now())
}

func (s *Service) Get(ctx context.Context, id string) (*gatewaydomain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidOrderID
	}
	return s.gateway.FetchOrder(ctx, id)
}

func (s *Service) GetLocal(ctx context.Context, id string) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidOrderID
	}
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, page pagination.Offset) ([]*domain.Order, error) {
	return s.repo.List(ctx, s.db, page)
}
