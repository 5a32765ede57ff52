package repository

import (
	"context"

	"github.com/smallbiznis/payrail/internal/payment/domain"
	"github.com/smallbiznis/payrail/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, order_id, amount, currency, status, method, description, gateway_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.OrderID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.Method,
		payment.Description,
		payment.GatewayData,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

// Update never touches id, order_id or created_at.
func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, amount = ?, currency = ?, method = ?, description = ?, gateway_data = ?, updated_at = ?
		 WHERE id = ?`,
		payment.Status,
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Description,
		payment.GatewayData,
		payment.UpdatedAt,
		payment.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, amount, currency, status, method, description, gateway_data, created_at, updated_at
		 FROM payments WHERE id = ?`,
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

func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Offset) ([]*domain.Payment, error) {
	page = page.Normalize()
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Order("created_at desc, id desc").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
