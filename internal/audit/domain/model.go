package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeSystem   ActorType = "system"
	ActorTypeProvider ActorType = "provider"
	ActorTypeCustomer ActorType = "customer"
	ActorTypeAdmin    ActorType = "admin"
)

const (
	ActionInvoiceCreated        = "invoice.created"
	ActionInvoicePaid           = "invoice.paid"
	ActionAppointmentDeleted    = "appointment.deleted"
	ActionPaymentSessionCreated = "payment.session_created"
)

const (
	TargetInvoice     = "invoice"
	TargetAppointment = "appointment"
)

// AuditLog is an append-only record of a lifecycle action.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  string            `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string            `json:"action" gorm:"type:varchar(64);not null;index:ix_audit_logs_action"`
	TargetType string            `json:"target_type" gorm:"type:varchar(32);not null;index:ix_audit_logs_target,priority:1"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:varchar(64);index:ix_audit_logs_target,priority:2"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"type:text"`
	UserAgent  *string           `json:"user_agent,omitempty" gorm:"type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }
