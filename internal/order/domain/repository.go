package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/payrail/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	Update(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Order, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Offset) ([]*Order, error)

	// IncrementAttempts reports false when the order is not stored locally.
	IncrementAttempts(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error)
	// ApplyCapture sets the paid status and amount_paid, and derives amount_due from the stored amount.
	ApplyCapture(ctx context.Context, db *gorm.DB, id string, status Status, amountPaid int64, now time.Time) (bool, error)
}
