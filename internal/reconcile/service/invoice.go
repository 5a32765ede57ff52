package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/smallbiznis/payrail/internal/reconcile/domain"
	"gorm.io/gorm"
)

const stepSubscriptionPaidCount = "subscription.paid_count"

// handleInvoice upserts the subscription payment; invoice.paid also bumps the subscription's paid_count.
func (s *Service) handleInvoice(ctx context.Context, tx *gorm.DB, event string, section json.RawMessage) (*domain.Result, error) {
	entity := entityOf(section)
	if entity == nil {
		return domain.Failure(event, domain.EntityInvoice, "Invoice ID not found in payload"), nil
	}
	var remote gatewaydomain.Invoice
	if err := json.Unmarshal(entity, &remote); err != nil {
		return domain.Failure(event, domain.EntityInvoice, "Malformed invoice entity"), nil
	}
	remote.ID = strings.TrimSpace(remote.ID)
	if remote.ID == "" {
		return domain.Failure(event, domain.EntityInvoice, "Invoice ID not found in payload"), nil
	}
	remote.Raw = entity

	stored, err := s.subscriptionSvc.StoreInvoice(ctx, tx, &remote)
	if err != nil {
		return nil, fmt.Errorf("store invoice %s: %w", remote.ID, err)
	}

	result := &domain.Result{
		Success:  true,
		Message:  fmt.Sprintf("Invoice event %s processed successfully", event),
		Event:    event,
		Entity:   domain.EntityInvoice,
		EntityID: stored.ID,
		Status:   stored.Status,
	}

	if event == domain.EventInvoicePaid && stored.SubscriptionID != "" {
		subscriptionID := stored.SubscriptionID
		result.AddStep(s.savepoint(ctx, tx, stepSubscriptionPaidCount, func(sp *gorm.DB) (bool, error) {
			return s.subscriptionSvc.IncrementPaidCount(ctx, sp, subscriptionID)
		}))
	}

	return result, nil
}
