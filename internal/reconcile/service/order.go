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

func (s *Service) handleOrder(ctx context.Context, tx *gorm.DB, event string, section json.RawMessage) (*domain.Result, error) {
	entity := wrappedEntityOf(section)
	if entity == nil {
		return domain.Failure(event, domain.EntityOrder, "Order ID not found in payload"), nil
	}
	var remote gatewaydomain.Order
	if err := json.Unmarshal(entity, &remote); err != nil {
		return domain.Failure(event, domain.EntityOrder, "Malformed order entity"), nil
	}
	remote.ID = strings.TrimSpace(remote.ID)
	if remote.ID == "" {
		return domain.Failure(event, domain.EntityOrder, "Order ID not found in payload"), nil
	}
	remote.Raw = entity

	stored, err := s.orderSvc.Store(ctx, tx, &remote)
	if err != nil {
		return nil, fmt.Errorf("store order %s: %w", remote.ID, err)
	}

	return &domain.Result{
		Success:  true,
		Message:  fmt.Sprintf("Order event %s processed successfully", event),
		Event:    event,
		Entity:   domain.EntityOrder,
		EntityID: stored.ID,
		Status:   string(stored.Status),
	}, nil
}
