package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent reports false when a row with the same id already exists.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, id string) (*EventRecord, error)
	// LockEvent reads the row, holding a row lock for the rest of the transaction where supported.
	LockEvent(ctx context.Context, db *gorm.DB, id string) (*EventRecord, error)
	MarkVerified(ctx context.Context, db *gorm.DB, id string) error
	MarkProcessed(ctx context.Context, db *gorm.DB, id string, result datatypes.JSON, processedAt time.Time) error
}
