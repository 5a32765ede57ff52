package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/payrail/internal/gateway/domain"
	"go.uber.org/zap"
)

const keyPlan = "payrail:plan:%s"

// PlanCachingClient serves plan lookups from Redis before asking the gateway.
// Plans are immutable upstream, so entries only expire by TTL.
type PlanCachingClient struct {
	domain.Client

	rdb redis.UniversalClient
	ttl time.Duration
	log *zap.Logger
}

// Wrap returns client unchanged when rdb is nil.
func Wrap(client domain.Client, rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) domain.Client {
	if rdb == nil {
		return client
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanCachingClient{
		Client: client,
		rdb:    rdb,
		ttl:    ttl,
		log:    log.Named("gateway.plan_cache"),
	}
}

func (c *PlanCachingClient) FetchPlan(ctx context.Context, id string) (*domain.Plan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}

	cached, err := c.rdb.Get(ctx, planKey(id)).Bytes()
	switch {
	case err == nil:
		var plan domain.Plan
		if jsonErr := json.Unmarshal(cached, &plan); jsonErr == nil {
			plan.Raw = cached
			return &plan, nil
		}
		c.log.Warn("discarding undecodable cached plan", zap.String("plan_id", id))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("plan cache read failed", zap.String("plan_id", id), zap.Error(err))
	}

	plan, err := c.Client.FetchPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, plan)
	return plan, nil
}

func (c *PlanCachingClient) CreatePlan(ctx context.Context, req domain.CreatePlanRequest) (*domain.Plan, error) {
	plan, err := c.Client.CreatePlan(ctx, req)
	if err != nil {
		return nil, err
	}
	c.store(ctx, plan)
	return plan, nil
}

func (c *PlanCachingClient) store(ctx context.Context, plan *domain.Plan) {
	if plan == nil || plan.ID == "" {
		return
	}
	body := domain.Body(plan.Raw, plan)
	if err := c.rdb.Set(ctx, planKey(plan.ID), []byte(body), c.ttl).Err(); err != nil {
		c.log.Warn("plan cache write failed", zap.String("plan_id", plan.ID), zap.Error(err))
	}
}

func planKey(id string) string {
	return fmt.Sprintf(keyPlan, id)
}
