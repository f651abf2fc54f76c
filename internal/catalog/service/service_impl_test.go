package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	"github.com/smallbiznis/garagedesk/internal/catalog/domain"
	"github.com/smallbiznis/garagedesk/internal/catalog/repository"
	"github.com/smallbiznis/garagedesk/internal/clock"
	"github.com/smallbiznis/garagedesk/internal/identity"
	"github.com/smallbiznis/garagedesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	admin    = identity.Principal{ID: "1", Role: identity.RoleAdmin, Username: "boss"}
	customer = identity.Principal{ID: "2", Role: identity.RoleCustomer, Username: "kim"}
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	return New(Params{
		DB:    testutil.OpenDB(t),
		Log:   zaptest.NewLogger(t),
		GenID: testutil.Node(t),
		Clock: clock.NewFakeClock(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, domain.CreateRequest{Name: " Oil Change ", Price: decimal.RequireFromString("49.999")})
	require.NoError(t, err)
	assert.Equal(t, "oil-change", created.Code)
	assert.Equal(t, "Oil Change", created.Name)
	assert.Equal(t, "50.00", created.Price.StringFixed(2))

	got, err := svc.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, created.Price.Equal(got.Price))
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, customer, domain.CreateRequest{Name: "Wash", Price: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = svc.Create(ctx, admin, domain.CreateRequest{Name: "  ", Price: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, admin, domain.CreateRequest{Name: "Wash", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = svc.Create(ctx, admin, domain.CreateRequest{Name: "Wash", Price: decimal.NewFromInt(5)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, domain.CreateRequest{Name: "wash", Price: decimal.NewFromInt(6)})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, domain.CreateRequest{Name: "Brake Pads", Price: decimal.NewFromInt(80)})
	require.NoError(t, err)

	price := decimal.RequireFromString("95.5")
	updated, err := svc.Update(ctx, admin, created.ID.String(), domain.UpdateRequest{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Brake Pads", updated.Name)
	assert.Equal(t, "95.50", updated.Price.StringFixed(2))

	blank := ""
	_, err = svc.Update(ctx, admin, created.ID.String(), domain.UpdateRequest{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	require.NoError(t, svc.Delete(ctx, admin, created.ID.String()))
	assert.ErrorIs(t, svc.Delete(ctx, admin, created.ID.String()), domain.ErrNotFound)

	_, err = svc.Get(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestLookupOmitsUnknownIDs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, domain.CreateRequest{Name: "Tire Rotation", Price: decimal.RequireFromString("29.99")})
	require.NoError(t, err)

	entries, err := svc.Lookup(ctx, []snowflake.ID{created.ID, 42})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Tire Rotation", entries[created.ID].Name)
}

func TestSeedIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))
	require.NoError(t, svc.Seed(ctx))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(domain.DefaultCatalog))
}
