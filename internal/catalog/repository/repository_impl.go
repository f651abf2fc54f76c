package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/garagedesk/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `SELECT id, code, name, price, created_at, updated_at FROM services`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, service *domain.GarageService) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO services (id, code, name, price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		service.ID,
		service.Code,
		service.Name,
		service.Price,
		service.CreatedAt,
		service.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.GarageService, error) {
	var service domain.GarageService
	err := db.WithContext(ctx).Raw(selectColumns+` WHERE id = ?`, id).Scan(&service).Error
	if err != nil {
		return nil, err
	}
	if service.ID == 0 {
		return nil, nil
	}
	return &service, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.GarageService, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.Int64())
	}

	var items []domain.GarageService
	err := db.WithContext(ctx).Raw(selectColumns+` WHERE id IN ?`, raw).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.GarageService, error) {
	var service domain.GarageService
	err := db.WithContext(ctx).Raw(selectColumns+` WHERE code = ?`, code).Scan(&service).Error
	if err != nil {
		return nil, err
	}
	if service.ID == 0 {
		return nil, nil
	}
	return &service, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.GarageService, error) {
	var items []domain.GarageService
	err := db.WithContext(ctx).Raw(selectColumns + ` ORDER BY created_at ASC, id ASC`).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, service *domain.GarageService) error {
	return db.WithContext(ctx).Exec(
		`UPDATE services SET name = ?, price = ?, updated_at = ? WHERE id = ?`,
		service.Name,
		service.Price,
		service.UpdatedAt,
		service.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM services WHERE id = ?`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
