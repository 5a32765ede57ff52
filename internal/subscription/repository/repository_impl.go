package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/payrail/internal/subscription/domain"
	"github.com/smallbiznis/payrail/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, plan_id, customer_id, status, current_start, current_end, ended_at,
			charge_at, start_at, end_at, quantity, auth_attempts, total_count, paid_count,
			notes, gateway_data, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.PlanID,
		sub.CustomerID,
		sub.Status,
		sub.CurrentStart,
		sub.CurrentEnd,
		sub.EndedAt,
		sub.ChargeAt,
		sub.StartAt,
		sub.EndAt,
		sub.Quantity,
		sub.AuthAttempts,
		sub.TotalCount,
		sub.PaidCount,
		sub.Notes,
		sub.GatewayData,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Error
}

// Update leaves paid_count alone; it only moves through IncrementPaidCount.
func (r *repo) Update(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET plan_id = ?, customer_id = ?, status = ?, current_start = ?, current_end = ?, ended_at = ?,
			charge_at = ?, start_at = ?, end_at = ?, quantity = ?, auth_attempts = ?, total_count = ?,
			notes = ?, gateway_data = ?, updated_at = ?
		 WHERE id = ?`,
		sub.PlanID,
		sub.CustomerID,
		sub.Status,
		sub.CurrentStart,
		sub.CurrentEnd,
		sub.EndedAt,
		sub.ChargeAt,
		sub.StartAt,
		sub.EndAt,
		sub.Quantity,
		sub.AuthAttempts,
		sub.TotalCount,
		sub.Notes,
		sub.GatewayData,
		sub.UpdatedAt,
		sub.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, plan_id, customer_id, status, current_start, current_end, ended_at,
			charge_at, start_at, end_at, quantity, auth_attempts, total_count, paid_count,
			notes, gateway_data, created_at, updated_at
		 FROM subscriptions WHERE id = ?`,
		id,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == "" {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Offset) ([]*domain.Subscription, error) {
	page = page.Normalize()
	var subs []*domain.Subscription
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Order("created_at desc, id desc").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repo) IncrementPaidCount(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET paid_count = paid_count + 1, updated_at = ? WHERE id = ?`,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id string, status domain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.SubscriptionPayment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscription_payments (
			id, subscription_id, invoice_id, payment_id, amount, currency, status, description,
			billing_period_start, billing_period_end, gateway_data, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.SubscriptionID,
		payment.InvoiceID,
		payment.PaymentID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.Description,
		payment.BillingPeriodStart,
		payment.BillingPeriodEnd,
		payment.GatewayData,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) UpdatePayment(ctx context.Context, db *gorm.DB, payment *domain.SubscriptionPayment) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscription_payments
		 SET subscription_id = ?, payment_id = ?, amount = ?, currency = ?, status = ?, description = ?,
			billing_period_start = ?, billing_period_end = ?, gateway_data = ?, updated_at = ?
		 WHERE id = ?`,
		payment.SubscriptionID,
		payment.PaymentID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.Description,
		payment.BillingPeriodStart,
		payment.BillingPeriodEnd,
		payment.GatewayData,
		payment.UpdatedAt,
		payment.ID,
	).Error
}

func (r *repo) FindPayment(ctx context.Context, db *gorm.DB, id string) (*domain.SubscriptionPayment, error) {
	var payment domain.SubscriptionPayment
	err := db.WithContext(ctx).Raw(
		`SELECT id, subscription_id, invoice_id, payment_id, amount, currency, status, description,
			billing_period_start, billing_period_end, gateway_data, created_at, updated_at
		 FROM subscription_payments WHERE id = ?`,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == "" {
		return nil, nil
	}
	return &payment, nil
}
