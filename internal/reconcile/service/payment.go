package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
	paymentdomain "github.com/smallbiznis/payrail/internal/payment/domain"
	"github.com/smallbiznis/payrail/internal/reconcile/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	stepAutoCapture     = "payment.auto_capture"
	stepOrderAttempt    = "order.attempts"
	stepOrderSettlement = "order.settlement"
)

func (s *Service) handlePayment(ctx context.Context, tx *gorm.DB, event string, section json.RawMessage) (*domain.Result, error) {
	entity := entityOf(section)
	if entity == nil {
		return domain.Failure(event, domain.EntityPayment, "Payment ID not found in payload"), nil
	}
	var remote gatewaydomain.Payment
	if err := json.Unmarshal(entity, &remote); err != nil {
		return domain.Failure(event, domain.EntityPayment, "Malformed payment entity"), nil
	}
	remote.ID = strings.TrimSpace(remote.ID)
	if remote.ID == "" {
		return domain.Failure(event, domain.EntityPayment, "Payment ID not found in payload"), nil
	}
	remote.Raw = entity
	working := &remote

	result := &domain.Result{
		Success:  true,
		Event:    event,
		Entity:   domain.EntityPayment,
		EntityID: remote.ID,
	}

	status := paymentdomain.StatusFromGateway(remote.Status)
	if status == paymentdomain.StatusAuthorized {
		captured, ok := s.paymentSvc.AutoCapture(ctx, working)
		if ok {
			working = captured
			status = paymentdomain.StatusCaptured
			result.AddStep(domain.StepResult{Name: stepAutoCapture, Success: true})
		} else {
			result.AddStep(domain.StepResult{Name: stepAutoCapture, Success: false, Message: "payment left authorized"})
		}
	}

	if _, err := s.paymentSvc.Store(ctx, tx, working, status); err != nil {
		return nil, fmt.Errorf("store payment %s: %w", remote.ID, err)
	}
	result.Status = string(status)

	orderID := ""
	if working.OrderID != nil {
		orderID = strings.TrimSpace(*working.OrderID)
	}
	if orderID != "" {
		switch event {
		case domain.EventPaymentFailed:
			result.AddStep(s.savepoint(ctx, tx, stepOrderAttempt, func(sp *gorm.DB) (bool, error) {
				return s.orderSvc.RecordFailedAttempt(ctx, sp, orderID)
			}))
		case domain.EventPaymentCaptured:
			amount := working.Amount
			result.AddStep(s.savepoint(ctx, tx, stepOrderSettlement, func(sp *gorm.DB) (bool, error) {
				return s.orderSvc.RecordCapture(ctx, sp, orderID, amount)
			}))
		}
	}

	result.Message = fmt.Sprintf("Payment event %s processed successfully", event)
	s.log.Info("payment reconciled",
		zap.String("event", event),
		zap.String("payment_id", remote.ID),
		zap.String("status", string(status)),
	)
	return result, nil
}
