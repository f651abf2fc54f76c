package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/garagedesk/internal/appointment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, appointment *domain.Appointment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO appointments (id, owner_id, customer_name, service_ids, services, total_price, scheduled_at, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		appointment.ID,
		appointment.OwnerID,
		appointment.CustomerName,
		appointment.ServiceIDs,
		appointment.Services,
		appointment.TotalPrice,
		appointment.ScheduledAt,
		appointment.Notes,
		appointment.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Appointment, error) {
	var appointment domain.Appointment
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, customer_name, service_ids, services, total_price, scheduled_at, notes, created_at
		 FROM appointments WHERE id = ?`,
		id,
	).Scan(&appointment).Error
	if err != nil {
		return nil, err
	}
	if appointment.ID == 0 {
		return nil, nil
	}
	return &appointment, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Appointment, error) {
	var items []*domain.Appointment
	stmt := db.WithContext(ctx).Model(&domain.Appointment{})
	if filter.OwnerID != "" {
		stmt = stmt.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM appointments WHERE id = ?`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
