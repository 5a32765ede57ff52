package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/smallbiznis/payrail/internal/reconcile/domain"
	webhookdomain "github.com/smallbiznis/payrail/internal/webhook/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) handleSubscription(ctx context.Context, tx *gorm.DB, event string, env *webhookdomain.Envelope) (*domain.Result, error) {
	entity := entityOf(env.Section("subscription"))
	if entity == nil {
		return domain.Failure(event, domain.EntitySubscription, "Subscription ID not found in payload"), nil
	}
	var remote gatewaydomain.Subscription
	if err := json.Unmarshal(entity, &remote); err != nil {
		return domain.Failure(event, domain.EntitySubscription, "Malformed subscription entity"), nil
	}
	remote.ID = strings.TrimSpace(remote.ID)
	if remote.ID == "" {
		return domain.Failure(event, domain.EntitySubscription, "Subscription ID not found in payload"), nil
	}
	remote.Raw = entity

	stored, err := s.subscriptionSvc.Store(ctx, tx, &remote)
	if err != nil {
		return nil, fmt.Errorf("store subscription %s: %w", remote.ID, err)
	}

	result := &domain.Result{
		Success:  true,
		Message:  fmt.Sprintf("Subscription event %s processed successfully", event),
		Event:    event,
		Entity:   domain.EntitySubscription,
		EntityID: stored.ID,
		Status:   string(stored.Status),
	}

	if event == domain.EventSubscriptionCharged {
		subscriptionID := stored.ID
		result.AddStep(s.savepoint(ctx, tx, stepSubscriptionPaidCount, func(sp *gorm.DB) (bool, error) {
			return s.subscriptionSvc.IncrementPaidCount(ctx, sp, subscriptionID)
		}))

		// The embedded invoice is handled as its own invoice.paid, paid_count included.
		if invoice := env.Section("invoice"); invoice != nil {
			var cascade *domain.Result
			err := tx.Transaction(func(sp *gorm.DB) error {
				var err error
				cascade, err = s.handleInvoice(ctx, sp, domain.EventInvoicePaid, invoice)
				return err
			})
			if err != nil {
				s.log.Warn("invoice cascade failed",
					zap.String("subscription_id", stored.ID),
					zap.Error(err),
				)
				cascade = domain.Failure(domain.EventInvoicePaid, domain.EntityInvoice, "Invoice could not be stored")
			}
			result.Cascades = append(result.Cascades, cascade)
		}
	}

	return result, nil
}
