package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/garagedesk/internal/identity"
	paymentdomain "github.com/smallbiznis/garagedesk/internal/payment/domain"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
)

type ExtraItem struct {
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type CreateRequest struct {
	AppointmentID      snowflake.ID
	SelectedServiceIDs []snowflake.ID
	ExtraItems         []ExtraItem
	// Currency falls back to the garage currency when empty.
	Currency string
}

type ListRequest struct {
	pagination.Pagination
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// ConfirmResult reports the outcome of a settlement attempt. Settled is false
// when the invoice had already been paid by another path.
type ConfirmResult struct {
	Invoice Invoice
	Settled bool
}

type Service interface {
	CreateFromAppointment(ctx context.Context, principal identity.Principal, req CreateRequest) (*Invoice, error)
	Get(ctx context.Context, principal identity.Principal, id string) (*Invoice, error)
	List(ctx context.Context, principal identity.Principal, req ListRequest) (ListResponse, error)
	MarkPaidManually(ctx context.Context, principal identity.Principal, id string) (*Invoice, error)
	ListAttempts(ctx context.Context, principal identity.Principal, id string) ([]paymentdomain.PaymentAttempt, error)

	// Find loads an invoice without an access check for the payment paths.
	Find(ctx context.Context, id snowflake.ID) (*Invoice, error)
	// ConfirmPayment settles the invoice through attemptID, idempotently.
	ConfirmPayment(ctx context.Context, invoiceID, attemptID snowflake.ID) (ConfirmResult, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidItem        = errors.New("invalid_item")
	ErrNoItems            = errors.New("invoice_has_no_items")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
	ErrNotFound           = errors.New("invoice_not_found")
	ErrAppointmentMissing = errors.New("appointment_not_found")
)
