package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	// OwnerID restricts the result to one owner when non-empty.
	OwnerID string
	AfterID snowflake.ID
	Limit   int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, appointment *Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Appointment, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Appointment, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
