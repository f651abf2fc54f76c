package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/garagedesk/internal/identity"
)

type CheckoutResult struct {
	AttemptID   snowflake.ID `json:"attempt_id"`
	SessionID   string       `json:"session_id"`
	RedirectURL string       `json:"redirect_url"`
}

type VerifyStatus string

const (
	VerifyPaid    VerifyStatus = "paid"
	VerifyPending VerifyStatus = "pending"
	VerifyFailed  VerifyStatus = "failed"
)

type VerifyResult struct {
	InvoiceID snowflake.ID `json:"invoice_id"`
	Status    VerifyStatus `json:"status"`
	// AlreadyPaid is set when the invoice was settled before this call.
	AlreadyPaid bool `json:"already_paid"`
}

type ReconcileResult struct {
	Checked int
	Settled int
	Failed  int
}

type Service interface {
	CreateSession(ctx context.Context, principal identity.Principal, invoiceID string) (CheckoutResult, error)
	VerifySession(ctx context.Context, invoiceID, sessionID string) (VerifyResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	// ReconcilePending asks the provider about hosted attempts that stayed
	// pending since before, for sessions whose return and webhook were lost.
	ReconcilePending(ctx context.Context, before time.Time, limit int) (ReconcileResult, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidSession      = errors.New("invalid_session_id")
	ErrInvoiceAlreadyPaid  = errors.New("invoice_already_paid")
	ErrSessionNotFound     = errors.New("session_not_found")
	ErrAttemptNotFound     = errors.New("attempt_not_found")
	ErrProviderUnavailable = errors.New("provider_unavailable")
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrInvalidConfig       = errors.New("invalid_provider_config")
)
