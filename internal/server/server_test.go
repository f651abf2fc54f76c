package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	appointmentdomain "github.com/smallbiznis/garagedesk/internal/appointment/domain"
	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	catalogdomain "github.com/smallbiznis/garagedesk/internal/catalog/domain"
	"github.com/smallbiznis/garagedesk/internal/identity"
	invoicedomain "github.com/smallbiznis/garagedesk/internal/invoice/domain"
	"github.com/smallbiznis/garagedesk/internal/observability"
	obsmetrics "github.com/smallbiznis/garagedesk/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/garagedesk/internal/payment/domain"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(token string) (identity.Claims, error) {
	switch token {
	case "admin":
		return identity.Claims{Subject: "1", Username: "boss", Role: "admin"}, nil
	case "customer":
		return identity.Claims{Subject: "42", Username: "sam", Role: "customer"}, nil
	default:
		return identity.Claims{}, identity.ErrUnauthenticated
	}
}

type fakeCatalogService struct {
	catalogdomain.Service
	created catalogdomain.CreateRequest
}

func (f *fakeCatalogService) List(ctx context.Context) ([]catalogdomain.GarageService, error) {
	return []catalogdomain.GarageService{
		{ID: 10, Code: "oil-change", Name: "Oil Change", Price: decimal.RequireFromString("49.9")},
	}, nil
}

func (f *fakeCatalogService) Create(ctx context.Context, principal identity.Principal, req catalogdomain.CreateRequest) (*catalogdomain.GarageService, error) {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return nil, err
	}
	f.created = req
	return &catalogdomain.GarageService{ID: 11, Code: "wash", Name: req.Name, Price: req.Price}, nil
}

type fakeAppointmentService struct {
	appointmentdomain.Service
	seen identity.Principal
}

func (f *fakeAppointmentService) List(ctx context.Context, principal identity.Principal, req appointmentdomain.ListRequest) (appointmentdomain.ListResponse, error) {
	f.seen = principal
	return appointmentdomain.ListResponse{Appointments: []appointmentdomain.Appointment{}}, nil
}

func (f *fakeAppointmentService) Delete(ctx context.Context, principal identity.Principal, id string) error {
	return authorization.AuthorizeAdmin(principal)
}

type fakeInvoiceService struct {
	invoicedomain.Service
	invoice invoicedomain.Invoice
}

func (f *fakeInvoiceService) Get(ctx context.Context, principal identity.Principal, id string) (*invoicedomain.Invoice, error) {
	if id != f.invoice.ID.String() {
		return nil, invoicedomain.ErrNotFound
	}
	if err := authorization.AuthorizeView(principal, f.invoice.OwnerID); err != nil {
		return nil, err
	}
	inv := f.invoice
	return &inv, nil
}

func (f *fakeInvoiceService) MarkPaidManually(ctx context.Context, principal identity.Principal, id string) (*invoicedomain.Invoice, error) {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return nil, err
	}
	inv := f.invoice
	paidAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv.Status = invoicedomain.StatusPaid
	inv.PaidAt = &paidAt
	return &inv, nil
}

type fakePaymentService struct {
	createErr   error
	webhookErr  error
	verifyCalls int
}

func (f *fakePaymentService) CreateSession(ctx context.Context, principal identity.Principal, invoiceID string) (paymentdomain.CheckoutResult, error) {
	if f.createErr != nil {
		return paymentdomain.CheckoutResult{}, f.createErr
	}
	return paymentdomain.CheckoutResult{AttemptID: 5, SessionID: "cs_test_1", RedirectURL: "https://pay.example/cs_test_1"}, nil
}

func (f *fakePaymentService) VerifySession(ctx context.Context, invoiceID, sessionID string) (paymentdomain.VerifyResult, error) {
	f.verifyCalls++
	return paymentdomain.VerifyResult{InvoiceID: 7, Status: paymentdomain.VerifyPaid, AlreadyPaid: f.verifyCalls > 1}, nil
}

func (f *fakePaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return f.webhookErr
}

func (f *fakePaymentService) ReconcilePending(ctx context.Context, before time.Time, limit int) (paymentdomain.ReconcileResult, error) {
	return paymentdomain.ReconcileResult{}, nil
}

type fakeAuditService struct {
	auditdomain.Service
}

func (fakeAuditService) List(ctx context.Context, principal identity.Principal, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}
	return auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{}, PageInfo: pagination.PageInfo{}}, nil
}

type testServer struct {
	engine       *gin.Engine
	catalog      *fakeCatalogService
	appointments *fakeAppointmentService
	invoices     *fakeInvoiceService
	payments     *fakePaymentService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	httpMetrics, err := obsmetrics.NewHTTPMetricsWithRegisterer(prometheus.NewRegistry())
	require.NoError(t, err)
	engine := NewEngine(observability.Config{LogLevel: "info"}, httpMetrics)

	ts := &testServer{
		engine:       engine,
		catalog:      &fakeCatalogService{},
		appointments: &fakeAppointmentService{},
		invoices: &fakeInvoiceService{invoice: invoicedomain.Invoice{
			ID:            7,
			AppointmentID: 3,
			OwnerID:       "42",
			CustomerName:  "Sam",
			Amount:        decimal.RequireFromString("52.5"),
			Currency:      "USD",
			Status:        invoicedomain.StatusUnpaid,
			Items: []invoicedomain.LineItem{
				{Position: 0, Description: "Oil Change", Price: decimal.RequireFromString("40"), ServiceID: idPtr(10)},
				{Position: 1, Description: "Wiper blades", Price: decimal.RequireFromString("12.5")},
			},
		}},
		payments: &fakePaymentService{},
	}

	NewServer(ServerParams{
		Gin:            engine,
		Verifier:       fakeVerifier{},
		CatalogSvc:     ts.catalog,
		AppointmentSvc: ts.appointments,
		InvoiceSvc:     ts.invoices,
		PaymentSvc:     ts.payments,
		AuditSvc:       fakeAuditService{},
	})
	return ts
}

func idPtr(id int64) *snowflake.ID {
	v := snowflake.ID(id)
	return &v
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidTokenIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/appointments", "forged", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
}

func TestMissingTokenIsAnonymous(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/appointments", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ts.appointments.seen.Authenticated())
}

func TestListServicesFormatsPrices(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/services", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []serviceView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "49.90", resp.Data[0].Price)
	assert.Equal(t, "10", resp.Data[0].ID)
}

func TestCreateServiceRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]string{"name": "Wash", "price": "15.00"}

	rec := ts.do(http.MethodPost, "/api/services", "customer", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/services", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/services", "admin", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decimal.RequireFromString("15").Equal(ts.catalog.created.Price))
}

func TestCreateServiceRejectsBadPrice(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/services", "admin", map[string]string{"name": "Wash", "price": "abc"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "price", payload.Errors[0].Field)
}

func TestGetInvoiceViews(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/invoices/7", "customer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data invoiceView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "52.50", resp.Data.Amount)
	assert.Equal(t, "unpaid", resp.Data.Status)
	require.Len(t, resp.Data.Items, 2)
	assert.Equal(t, "12.50", resp.Data.Items[1].Price)
	assert.Nil(t, resp.Data.Items[1].ServiceID)

	rec = ts.do(http.MethodGet, "/api/invoices/8", "customer", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInvoiceOfOtherCustomerIsForbidden(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.invoice.OwnerID = "99"

	rec := ts.do(http.MethodGet, "/api/invoices/7", "customer", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMarkPaidIsAdminOnly(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/invoices/7/mark-paid", "customer", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/invoices/7/mark-paid", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data invoiceView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "paid", resp.Data.Status)
	assert.NotNil(t, resp.Data.PaidAt)
}

func TestAdminRoutesRejectBeforeReadingBody(t *testing.T) {
	ts := newTestServer(t)
	malformed := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		ts.engine.ServeHTTP(rec, req)
		return rec
	}

	for _, path := range []string{"/api/invoices", "/api/services"} {
		rec := malformed(http.MethodPost, path, "customer")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, "forbidden", decodeError(t, rec).Type, path)

		rec = malformed(http.MethodPost, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		rec = malformed(http.MethodPost, path, "admin")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := malformed(http.MethodPatch, "/api/services/10", "customer")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteAppointmentStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodDelete, "/api/appointments/3", "admin", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/appointments/3", "customer", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckoutSessionErrors(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]string{"invoice_id": "7"}

	rec := ts.do(http.MethodPost, "/api/payments/checkout-session", "customer", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "cs_test_1")

	ts.payments.createErr = paymentdomain.ErrInvoiceAlreadyPaid
	rec = ts.do(http.MethodPost, "/api/payments/checkout-session", "customer", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invoice already paid", decodeError(t, rec).Message)

	ts.payments.createErr = paymentdomain.ErrProviderUnavailable
	rec = ts.do(http.MethodPost, "/api/payments/checkout-session", "customer", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVerifySessionNeedsNoToken(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]string{"invoice_id": "7", "session_id": "cs_test_1"}

	first := ts.do(http.MethodPost, "/api/payments/verify-session", "", body)
	second := ts.do(http.MethodPost, "/api/payments/verify-session", "", body)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), `"already_paid":true`)
}

func TestStripeWebhookSignatureFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.webhookErr = paymentdomain.ErrInvalidSignature

	// A stale bearer token must not matter on the webhook route.
	rec := ts.do(http.MethodPost, "/api/payments/webhooks/stripe", "forged", map[string]string{"id": "evt_1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.payments.webhookErr = nil
	rec = ts.do(http.MethodPost, "/api/payments/webhooks/stripe", "", map[string]string{"id": "evt_1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditLogsAdminOnly(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, "/api/audit-logs", "customer", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/audit-logs?action=invoice.paid", "admin", nil).Code)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{identity.ErrUnauthenticated, http.StatusUnauthorized},
		{authorization.ErrForbidden, http.StatusForbidden},
		{invoicedomain.ErrNotFound, http.StatusNotFound},
		{appointmentdomain.ErrServiceNotFound, http.StatusNotFound},
		{paymentdomain.ErrSessionNotFound, http.StatusNotFound},
		{catalogdomain.ErrDuplicate, http.StatusConflict},
		{paymentdomain.ErrInvoiceAlreadyPaid, http.StatusConflict},
		{invoicedomain.ErrNoItems, http.StatusBadRequest},
		{appointmentdomain.ErrInvalidCustomerName, http.StatusBadRequest},
		{pagination.ErrInvalidPageToken, http.StatusBadRequest},
		{ErrRateLimited, http.StatusTooManyRequests},
		{paymentdomain.ErrProviderUnavailable, http.StatusServiceUnavailable},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}

	_, payload := mapError(appointmentdomain.ErrInvalidCustomerName)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "customer_name", payload.Errors[0].Field)
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(invoicedomain.ErrInvalidCurrency)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "invalid_currency", code)

	errType, code = classifyErrorForLog(authorization.ErrForbidden)
	assert.Equal(t, "forbidden", errType)
	assert.Equal(t, "forbidden", code)
}
