package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/payrail/internal/webhook/domain"
	"github.com/smallbiznis/payrail/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const eventColumns = `id, provider, entity, event, account_id, payload, signature_verified, processed, result, created_at, processed_at`

func (r *repo) InsertEvent(ctx context.Context, conn *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(event)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, conn *gorm.DB, id string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := conn.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM webhook_events WHERE id = ? LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) LockEvent(ctx context.Context, conn *gorm.DB, id string) (*domain.EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM webhook_events WHERE id = ? LIMIT 1`
	if name := conn.Dialector.Name(); name == "postgres" || name == "mysql" {
		query += ` FOR UPDATE`
	}
	var item domain.EventRecord
	if err := conn.WithContext(ctx).Raw(query, id).Scan(&item).Error; err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkVerified(ctx context.Context, conn *gorm.DB, id string) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE webhook_events SET signature_verified = ? WHERE id = ?`,
		true,
		id,
	).Error
}

func (r *repo) MarkProcessed(ctx context.Context, conn *gorm.DB, id string, result datatypes.JSON, processedAt time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET processed = ?, result = ?, processed_at = ?
		 WHERE id = ?`,
		true,
		result,
		processedAt,
		id,
	).Error
}
