package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/garagedesk/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return repo{}
}

func (repo) Append(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// Find fetches one row past q.Limit so the caller can tell whether another
// page exists.
func (repo) Find(ctx context.Context, db *gorm.DB, q domain.Query) ([]*domain.AuditLog, error) {
	tx := db.WithContext(ctx).Model(&domain.AuditLog{})

	equals := map[string]any{}
	for column, value := range map[string]string{
		"action":      q.Action,
		"target_type": q.TargetType,
		"target_id":   q.TargetID,
		"actor_type":  q.ActorType,
	} {
		if value = strings.TrimSpace(value); value != "" {
			equals[column] = value
		}
	}
	if len(equals) > 0 {
		tx = tx.Where(equals)
	}
	if q.Before != 0 {
		tx = tx.Where("id < ?", q.Before)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit + 1)
	}

	var logs []*domain.AuditLog
	if err := tx.Order("id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
