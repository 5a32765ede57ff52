package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	orderservice "github.com/smallbiznis/payrail/internal/order/service"
	paymentservice "github.com/smallbiznis/payrail/internal/payment/service"
	"github.com/smallbiznis/payrail/internal/reconcile/domain"
	subscriptionservice "github.com/smallbiznis/payrail/internal/subscription/service"
	webhookdomain "github.com/smallbiznis/payrail/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log             *zap.Logger
	PaymentSvc      *paymentservice.Service
	OrderSvc        *orderservice.Service
	SubscriptionSvc *subscriptionservice.Service
}

type Service struct {
	log             *zap.Logger
	paymentSvc      *paymentservice.Service
	orderSvc        *orderservice.Service
	subscriptionSvc *subscriptionservice.Service
}

func NewService(p Params) *Service {
	return &Service{
		log:             p.Log.Named("reconcile.service"),
		paymentSvc:      p.PaymentSvc,
		orderSvc:        p.OrderSvc,
		subscriptionSvc: p.SubscriptionSvc,
	}
}

// Dispatch routes the delivery to its entity handler by event prefix.
// tx must be an open transaction; best-effort steps run in savepoints inside it.
// A returned error is a store fault and the caller must roll back.
func (s *Service) Dispatch(ctx context.Context, tx *gorm.DB, env *webhookdomain.Envelope) (*domain.Result, error) {
	if env == nil {
		return nil, fmt.Errorf("dispatch: nil envelope")
	}
	event := strings.TrimSpace(env.Event)

	switch env.Prefix() {
	case domain.EntityPayment:
		return s.handlePayment(ctx, tx, event, env.Section("payment"))
	case domain.EntityOrder:
		return s.handleOrder(ctx, tx, event, env.Section("order"))
	case domain.EntitySubscription:
		return s.handleSubscription(ctx, tx, event, env)
	case domain.EntityInvoice:
		return s.handleInvoice(ctx, tx, event, env.Section("invoice"))
	default:
		s.log.Info("webhook event acknowledged without handler", zap.String("event", event))
		return &domain.Result{
			Success:      true,
			Message:      fmt.Sprintf("Event %s acknowledged but not processed", event),
			Event:        event,
			Acknowledged: true,
		}, nil
	}
}

// entityOf returns section.entity when it is an object, else the section itself when it is an object.
func entityOf(section json.RawMessage) json.RawMessage {
	if !isObject(section) {
		return nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(section, &wrapper); err != nil {
		return nil
	}
	if inner, ok := wrapper["entity"]; ok && isObject(inner) {
		return inner
	}
	return section
}

// wrappedEntityOf only accepts section.entity.
func wrappedEntityOf(section json.RawMessage) json.RawMessage {
	if !isObject(section) {
		return nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(section, &wrapper); err != nil {
		return nil
	}
	if inner, ok := wrapper["entity"]; ok && isObject(inner) {
		return inner
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// savepoint runs fn in a nested transaction so its failure leaves the outer work intact.
func (s *Service) savepoint(ctx context.Context, tx *gorm.DB, name string, fn func(sp *gorm.DB) (bool, error)) domain.StepResult {
	var found bool
	err := tx.Transaction(func(sp *gorm.DB) error {
		var err error
		found, err = fn(sp)
		return err
	})
	if err != nil {
		s.log.Warn("reconcile step failed", zap.String("step", name), zap.Error(err))
		return domain.StepResult{Name: name, Success: false, Message: "step failed"}
	}
	if !found {
		return domain.StepResult{Name: name, Success: true, Skipped: true, Message: "not stored locally"}
	}
	return domain.StepResult{Name: name, Success: true}
}
