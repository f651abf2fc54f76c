package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertAttempt(ctx context.Context, db *gorm.DB, attempt *PaymentAttempt) error
	FindAttempt(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentAttempt, error)
	FindAttemptBySession(ctx context.Context, db *gorm.DB, sessionID string) (*PaymentAttempt, error)
	ListAttempts(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]PaymentAttempt, error)
	// ListStalePending returns hosted attempts still pending since before.
	ListStalePending(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]PaymentAttempt, error)
	SetSession(ctx context.Context, db *gorm.DB, id snowflake.ID, sessionID string, now time.Time) error
	// MarkSucceeded settles any non-succeeded attempt of the invoice.
	MarkSucceeded(ctx context.Context, db *gorm.DB, id, invoiceID snowflake.ID, now time.Time) (bool, error)
	// MarkFailed only moves pending attempts.
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (bool, error)

	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
