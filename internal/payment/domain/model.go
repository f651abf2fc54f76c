package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Method string

const (
	MethodManual         Method = "manual"
	MethodProviderHosted Method = "provider_hosted"
)

type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "pending"
	AttemptStatusSucceeded AttemptStatus = "succeeded"
	AttemptStatusFailed    AttemptStatus = "failed"
)

// Failure reasons recorded on failed attempts.
const (
	FailureAlreadySettled = "already_settled"
	FailureProviderError  = "provider_error"
	FailureProviderFailed = "provider_failed"
	FailureSessionExpired = "session_expired"
)

// PaymentAttempt records one try at settling an invoice. At most one attempt
// per invoice ever reaches succeeded.
type PaymentAttempt struct {
	ID                snowflake.ID    `json:"id" gorm:"primaryKey"`
	InvoiceID         snowflake.ID    `json:"invoice_id" gorm:"not null;index:ix_payment_attempts_invoice"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency          string          `json:"currency" gorm:"type:varchar(3);not null"`
	Method            Method          `json:"method" gorm:"type:varchar(32);not null"`
	Status            AttemptStatus   `json:"status" gorm:"type:varchar(16);not null"`
	ProviderSessionID *string         `json:"provider_session_id,omitempty" gorm:"type:varchar(255);index:ix_payment_attempts_session"`
	FailureReason     *string         `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt         time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"not null"`
}

func (PaymentAttempt) TableName() string { return "payment_attempts" }

// EventRecord stores each provider webhook once so redeliveries are skipped.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }
