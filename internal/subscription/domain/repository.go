package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/payrail/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	Update(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Subscription, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Offset) ([]*Subscription, error)

	// IncrementPaidCount reports false when the subscription is not stored locally.
	IncrementPaidCount(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id string, status Status, now time.Time) (bool, error)

	InsertPayment(ctx context.Context, db *gorm.DB, payment *SubscriptionPayment) error
	UpdatePayment(ctx context.Context, db *gorm.DB, payment *SubscriptionPayment) error
	FindPayment(ctx context.Context, db *gorm.DB, id string) (*SubscriptionPayment, error)
}
