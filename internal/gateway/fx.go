package gateway

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/payrail/internal/config"
	"github.com/smallbiznis/payrail/internal/gateway/cache"
	"github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/smallbiznis/payrail/internal/gateway/razorpay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway",
	fx.Provide(NewRedis),
	fx.Provide(NewClient),
)

// NewRedis returns nil when no address is configured; callers treat that as "no cache".
func NewRedis(lc fx.Lifecycle, cfg config.Config) redis.UniversalClient {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func NewClient(cfg config.Config, rdb redis.UniversalClient, log *zap.Logger) domain.Client {
	client := razorpay.New(cfg.Razorpay, log)
	if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
		log.Warn("razorpay credentials missing; gateway calls will fail")
	}
	return cache.Wrap(client, rdb, cfg.Redis.PlanCacheTTL, log)
}
