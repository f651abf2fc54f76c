package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/garagedesk/internal/pricing"
	"gorm.io/datatypes"
)

// Appointment is a customer booking. It is never updated after creation.
type Appointment struct {
	ID           snowflake.ID                          `json:"id" gorm:"primaryKey"`
	OwnerID      string                                `json:"owner_id" gorm:"type:varchar(64);not null;index:ix_appointments_owner"`
	CustomerName string                                `json:"customer_name" gorm:"type:text;not null"`
	ServiceIDs   datatypes.JSONSlice[snowflake.ID]     `json:"service_ids" gorm:"not null"`
	Services     datatypes.JSONSlice[pricing.Snapshot] `json:"services" gorm:"not null"`
	TotalPrice   decimal.Decimal                       `json:"total_price" gorm:"type:numeric(12,2);not null"`
	ScheduledAt  time.Time                             `json:"scheduled_at" gorm:"not null"`
	Notes        string                                `json:"notes" gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time                             `json:"created_at" gorm:"not null"`
}

func (Appointment) TableName() string { return "appointments" }

// HasService reports whether id was booked on the appointment.
func (a Appointment) HasService(id snowflake.ID) bool {
	for _, serviceID := range a.ServiceIDs {
		if serviceID == id {
			return true
		}
	}
	return false
}
