package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/payrail/internal/clock"
	"github.com/smallbiznis/payrail/internal/config"
	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
	"github.com/smallbiznis/payrail/internal/gateway/gatewaytest"
	"github.com/smallbiznis/payrail/internal/order/domain"
	"github.com/smallbiznis/payrail/internal/order/repository"
	"github.com/smallbiznis/payrail/internal/order/service"
	"github.com/smallbiznis/payrail/internal/testutil/dbtest"
	"github.com/smallbiznis/payrail/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	gateway *gatewaytest.Client
	svc     *service.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		db:      dbtest.Open(t),
		clock:   clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		gateway: &gatewaytest.Client{},
	}
	f.svc = service.NewService(service.Params{
		DB:      f.db,
		Log:     zap.NewNop(),
		Clock:   f.clock,
		GenID:   node,
		Gateway: f.gateway,
		Repo:    repository.Provide(),
		Policy:  config.NewStaticPolicyHolder(config.DefaultReconcilePolicy()),
	})
	return f
}

func int64p(v int64) *int64 { return &v }
func strp(v string) *string { return &v }

func TestStoreAppliesDefaultsToNewOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stored, err := f.svc.Store(ctx, f.db, &gatewaydomain.Order{ID: "order_new"})
	require.NoError(t, err)
	assert.Equal(t, "INR", stored.Currency)
	assert.Equal(t, domain.StatusCreated, stored.Status)
	assert.Zero(t, stored.AmountPaid)
	assert.Zero(t, stored.AmountDue)
	assert.Zero(t, stored.Attempts)

	local, err := f.svc.GetLocal(ctx, "order_new")
	require.NoError(t, err)
	assert.Equal(t, "INR", local.Currency)
	assert.Equal(t, f.clock.Now(), local.CreatedAt.UTC())
}

func TestStoreKeepsFieldsAbsentFromPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Store(ctx, f.db, &gatewaydomain.Order{
		ID:       "order_1",
		Amount:   int64p(5000),
		Currency: strp("usd"),
		Receipt:  strp("rcpt_1"),
		Notes:    gatewaydomain.Notes{"plan": "gold"},
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.svc.Store(ctx, f.db, &gatewaydomain.Order{
		ID:     "order_1",
		Status: strp("attempted"),
	})
	require.NoError(t, err)

	local, err := f.svc.GetLocal(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), local.Amount)
	assert.Equal(t, "USD", local.Currency)
	require.NotNil(t, local.Receipt)
	assert.Equal(t, "rcpt_1", *local.Receipt)
	assert.Equal(t, domain.StatusAttempted, local.Status)
	assert.JSONEq(t, `{"plan":"gold"}`, string(local.Notes))
	assert.True(t, local.UpdatedAt.After(local.CreatedAt))
}

func TestRecordCaptureDerivesAmountDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Store(ctx, f.db, &gatewaydomain.Order{
		ID:        "order_pay",
		Amount:    int64p(5000),
		AmountDue: int64p(5000),
	})
	require.NoError(t, err)

	found, err := f.svc.RecordCapture(ctx, f.db, "order_pay", 5000)
	require.NoError(t, err)
	assert.True(t, found)

	local, err := f.svc.GetLocal(ctx, "order_pay")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, local.Status)
	assert.Equal(t, int64(5000), local.AmountPaid)
	assert.Equal(t, int64(0), local.AmountDue)
	assert.Equal(t, local.Amount-local.AmountPaid, local.AmountDue)
}

func TestRecordFailedAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	found, err := f.svc.RecordFailedAttempt(ctx, f.db, "order_missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = f.svc.Store(ctx, f.db, &gatewaydomain.Order{ID: "order_2", Amount: int64p(100)})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		found, err = f.svc.RecordFailedAttempt(ctx, f.db, "order_2")
		require.NoError(t, err)
		assert.True(t, found)
	}

	local, err := f.svc.GetLocal(ctx, "order_2")
	require.NoError(t, err)
	assert.Equal(t, 2, local.Attempts)
}

func TestCreateGeneratesReceiptAndStoresLocally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req gatewaydomain.CreateOrderRequest) bool {
		return req.Amount == 49900 && req.Currency == "INR" && len(req.Receipt) > len("rcpt_")
	})).Return(&gatewaydomain.Order{
		ID:       "order_remote",
		Amount:   int64p(49900),
		Currency: strp("INR"),
		Status:   strp("created"),
	}, nil).Once()

	remote, err := f.svc.Create(ctx, domain.CreateOrderRequest{Amount: 49900})
	require.NoError(t, err)
	assert.Equal(t, "order_remote", remote.ID)

	local, err := f.svc.GetLocal(ctx, "order_remote")
	require.NoError(t, err)
	assert.Equal(t, int64(49900), local.Amount)
	f.gateway.AssertExpectations(t)
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	f.gateway.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCreateSurfacesGatewayErrors(t *testing.T) {
	f := newFixture(t)
	gatewayErr := &gatewaydomain.APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "amount too low"}
	f.gateway.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, gatewayErr).Once()

	_, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{Amount: 1})
	var apiErr *gatewaydomain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
}

func TestListOrdersNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"order_a", "order_b", "order_c"} {
		_, err := f.svc.Store(ctx, f.db, &gatewaydomain.Order{ID: id, Amount: int64p(10)})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	orders, err := f.svc.List(ctx, pagination.Offset{Skip: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order_c", orders[0].ID)
	assert.Equal(t, "order_b", orders[1].ID)
}

func TestGetLocalNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetLocal(context.Background(), "order_nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
