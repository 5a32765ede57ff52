package domain

import (
	"context"

	"github.com/smallbiznis/payrail/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Offset) ([]*Payment, error)
}
