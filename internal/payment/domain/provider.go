package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// SessionStatus is the provider-neutral state of a hosted checkout.
type SessionStatus string

const (
	SessionSucceeded SessionStatus = "succeeded"
	SessionPending   SessionStatus = "pending"
	SessionFailed    SessionStatus = "failed"
)

type CheckoutRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
	// Reference ties the session back to the invoice.
	Reference string
	AttemptID string
}

type CheckoutSession struct {
	SessionID   string
	RedirectURL string
}

// Provider hosts the checkout page and reports session outcomes.
type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error)
}

type EventKind string

const (
	EventSessionCompleted EventKind = "session_completed"
	EventSessionExpired   EventKind = "session_expired"
	EventSessionFailed    EventKind = "session_failed"
	EventIgnored          EventKind = "ignored"
)

// WebhookEvent is a verified provider callback reduced to what settlement needs.
type WebhookEvent struct {
	ID        string
	Type      string
	Kind      EventKind
	SessionID string
	Paid      bool
	Payload   []byte
}

// WebhookParser authenticates and decodes provider callbacks.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
