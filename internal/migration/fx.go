package migration

import (
	"fmt"

	orderdomain "github.com/smallbiznis/payrail/internal/order/domain"
	paymentdomain "github.com/smallbiznis/payrail/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/payrail/internal/subscription/domain"
	webhookdomain "github.com/smallbiznis/payrail/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Migrate),
)

// Migrate brings the schema up to date for the connected dialect.
func Migrate(conn *gorm.DB, log *zap.Logger) error {
	dialect := conn.Dialector.Name()
	switch dialect {
	case "postgres":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
	case "sqlite":
		if err := ApplySchema(conn); err != nil {
			return err
		}
	default:
		if err := conn.AutoMigrate(
			&orderdomain.Order{},
			&paymentdomain.Payment{},
			&subscriptiondomain.Subscription{},
			&subscriptiondomain.SubscriptionPayment{},
			&webhookdomain.EventRecord{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}
	log.Info("schema migrated", zap.String("dialect", dialect))
	return nil
}
