package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/garagedesk/internal/payment/domain"
	pkgdb "github.com/smallbiznis/garagedesk/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const attemptColumns = `SELECT id, invoice_id, amount, currency, method, status, provider_session_id,
	failure_reason, created_at, updated_at FROM payment_attempts`

func (r *repo) InsertAttempt(ctx context.Context, db *gorm.DB, attempt *domain.PaymentAttempt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_attempts (
			id, invoice_id, amount, currency, method, status, provider_session_id,
			failure_reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.InvoiceID,
		attempt.Amount,
		attempt.Currency,
		attempt.Method,
		attempt.Status,
		attempt.ProviderSessionID,
		attempt.FailureReason,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	).Error
}

func (r *repo) FindAttempt(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentAttempt, error) {
	var attempt domain.PaymentAttempt
	err := db.WithContext(ctx).Raw(attemptColumns+` WHERE id = ?`, id).Scan(&attempt).Error
	if err != nil {
		return nil, err
	}
	if attempt.ID == 0 {
		return nil, nil
	}
	return &attempt, nil
}

func (r *repo) FindAttemptBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.PaymentAttempt, error) {
	var attempt domain.PaymentAttempt
	err := db.WithContext(ctx).Raw(
		attemptColumns+` WHERE provider_session_id = ? ORDER BY id DESC LIMIT 1`,
		sessionID,
	).Scan(&attempt).Error
	if err != nil {
		return nil, err
	}
	if attempt.ID == 0 {
		return nil, nil
	}
	return &attempt, nil
}

func (r *repo) ListAttempts(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.PaymentAttempt, error) {
	var items []domain.PaymentAttempt
	err := db.WithContext(ctx).Raw(
		attemptColumns+` WHERE invoice_id = ? ORDER BY id ASC`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListStalePending(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]domain.PaymentAttempt, error) {
	var items []domain.PaymentAttempt
	err := db.WithContext(ctx).Raw(
		attemptColumns+` WHERE method = ? AND status = ? AND updated_at < ? ORDER BY id ASC LIMIT ?`,
		domain.MethodProviderHosted,
		domain.AttemptStatusPending,
		before,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetSession(ctx context.Context, db *gorm.DB, id snowflake.ID, sessionID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_attempts SET provider_session_id = ?, updated_at = ? WHERE id = ?`,
		sessionID,
		now,
		id,
	).Error
}

func (r *repo) MarkSucceeded(ctx context.Context, db *gorm.DB, id, invoiceID snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_attempts
		 SET status = ?, failure_reason = NULL, updated_at = ?
		 WHERE id = ? AND invoice_id = ? AND status <> ?`,
		domain.AttemptStatusSucceeded,
		now,
		id,
		invoiceID,
		domain.AttemptStatusSucceeded,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_attempts
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.AttemptStatusFailed,
		reason,
		now,
		id,
		domain.AttemptStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, payload, received_at, processed_at
		 FROM payment_events
		 WHERE provider = ? AND provider_event_id = ?
		 LIMIT 1`,
		provider,
		providerEventID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (
			id, provider, provider_event_id, event_type, payload, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.Payload,
		event.ReceivedAt,
		event.ProcessedAt,
	)
	if res.Error != nil {
		if pkgdb.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET processed_at = ? WHERE id = ?`,
		processedAt,
		id,
	).Error
}
