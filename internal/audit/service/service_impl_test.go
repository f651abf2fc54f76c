package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	"github.com/smallbiznis/garagedesk/internal/audit/repository"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	"github.com/smallbiznis/garagedesk/internal/clock"
	"github.com/smallbiznis/garagedesk/internal/identity"
	obscontext "github.com/smallbiznis/garagedesk/internal/observability/context"
	"github.com/smallbiznis/garagedesk/internal/testutil"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	admin    = identity.Principal{ID: "1", Role: identity.RoleAdmin}
	customer = identity.Principal{ID: "10", Role: identity.RoleCustomer}
)

func newTestService(t *testing.T) auditdomain.Service {
	t.Helper()
	return New(Params{
		DB:    testutil.OpenDB(t),
		Log:   zaptest.NewLogger(t),
		GenID: testutil.Node(t),
		Clock: clock.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestRecordMasksSessionAndKeepsRequestContext(t *testing.T) {
	svc := newTestService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithClient(ctx, "10.0.0.7", "curl/8")

	require.NoError(t, svc.Record(ctx, auditdomain.Entry{
		Actor:      customer,
		Action:     auditdomain.ActionPaymentSessionCreated,
		TargetType: auditdomain.TargetInvoice,
		TargetID:   "42",
		Metadata:   map[string]any{"session_id": "cs_test_a1b2c3d4e5", "provider": "stripe"},
	}))

	res, err := svc.List(context.Background(), admin, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 1)

	entry := res.AuditLogs[0]
	assert.Equal(t, string(auditdomain.ActorTypeCustomer), entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "10", *entry.ActorID)
	assert.Equal(t, "cs_test_****d4e5", entry.Metadata["session_id"])
	assert.Equal(t, "stripe", entry.Metadata["provider"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.7", *entry.IPAddress)
}

func TestRecordResolvesActor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: "invoice.paid", ActorType: auditdomain.ActorTypeProvider}))
	require.NoError(t, svc.Record(obscontext.WithActor(ctx, "system", "scheduler"), auditdomain.Entry{Action: "invoice.paid"}))
	require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: "invoice.paid"}))
	assert.ErrorIs(t, svc.Record(ctx, auditdomain.Entry{Action: " "}), auditdomain.ErrInvalidAction)

	res, err := svc.List(ctx, admin, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 3)

	types := map[string]int{}
	for _, entry := range res.AuditLogs {
		types[entry.ActorType]++
		assert.Equal(t, "unknown", entry.TargetType)
	}
	assert.Equal(t, 1, types[string(auditdomain.ActorTypeProvider)])
	assert.Equal(t, 2, types[string(auditdomain.ActorTypeSystem)])
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, target := range []string{"1", "2", "3"} {
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{
			Actor:      admin,
			Action:     auditdomain.ActionInvoiceCreated,
			TargetType: auditdomain.TargetInvoice,
			TargetID:   target,
		}))
	}
	require.NoError(t, svc.Record(ctx, auditdomain.Entry{
		Actor:      admin,
		Action:     auditdomain.ActionAppointmentDeleted,
		TargetType: auditdomain.TargetAppointment,
		TargetID:   "9",
	}))

	res, err := svc.List(ctx, admin, auditdomain.ListAuditLogRequest{Action: auditdomain.ActionAppointmentDeleted})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 1)
	assert.Equal(t, auditdomain.TargetAppointment, res.AuditLogs[0].TargetType)

	page, err := svc.List(ctx, admin, auditdomain.ListAuditLogRequest{
		Action:     auditdomain.ActionInvoiceCreated,
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.AuditLogs, 2)
	require.True(t, page.HasMore)

	rest, err := svc.List(ctx, admin, auditdomain.ListAuditLogRequest{
		Action:     auditdomain.ActionInvoiceCreated,
		Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken},
	})
	require.NoError(t, err)
	assert.Len(t, rest.AuditLogs, 1)
	assert.False(t, rest.HasMore)
}

func TestListIsAdminOnly(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.List(context.Background(), customer, auditdomain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = svc.List(context.Background(), identity.Anonymous, auditdomain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	_, err = svc.List(context.Background(), admin, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
