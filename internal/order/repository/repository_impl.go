package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/payrail/internal/order/domain"
	"github.com/smallbiznis/payrail/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, amount, amount_paid, amount_due, currency, receipt, status, attempts, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Amount,
		order.AmountPaid,
		order.AmountDue,
		order.Currency,
		order.Receipt,
		order.Status,
		order.Attempts,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET amount = ?, amount_paid = ?, amount_due = ?, currency = ?, receipt = ?,
			status = ?, attempts = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		order.Amount,
		order.AmountPaid,
		order.AmountDue,
		order.Currency,
		order.Receipt,
		order.Status,
		order.Attempts,
		order.Notes,
		order.UpdatedAt,
		order.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, amount, amount_paid, amount_due, currency, receipt, status, attempts, notes, created_at, updated_at
		 FROM orders WHERE id = ?`,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Offset) ([]*domain.Order, error) {
	page = page.Normalize()
	var orders []*domain.Order
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Order("created_at desc, id desc").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) IncrementAttempts(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders SET attempts = attempts + 1, updated_at = ? WHERE id = ?`,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ApplyCapture(ctx context.Context, db *gorm.DB, id string, status domain.Status, amountPaid int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, amount_paid = ?, amount_due = amount - ?, updated_at = ?
		 WHERE id = ?`,
		status,
		amountPaid,
		amountPaid,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
