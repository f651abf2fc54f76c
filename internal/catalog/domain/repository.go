package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, service *GarageService) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*GarageService, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]GarageService, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*GarageService, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]GarageService, error)
	Update(ctx context.Context, db *gorm.DB, service *GarageService) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
