package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Query selects audit logs newest first. Blank fields match everything and
// Before, when set, only returns entries older than that id.
type Query struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	Before     snowflake.ID
	Limit      int
}

// Repository stores audit logs. Entries are never updated or removed.
type Repository interface {
	Append(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	Find(ctx context.Context, db *gorm.DB, q Query) ([]*AuditLog, error)
}
