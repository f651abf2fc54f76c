package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusUnpaid Status = "unpaid"
	StatusPaid   Status = "paid"
)

// Invoice is billed from an appointment. Amount is fixed at creation and the
// only transition is unpaid to paid.
type Invoice struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	AppointmentID snowflake.ID    `json:"appointment_id" gorm:"not null;index:ix_invoices_appointment"`
	OwnerID       string          `json:"owner_id" gorm:"type:varchar(64);not null;index:ix_invoices_owner"`
	CustomerName  string          `json:"customer_name" gorm:"type:text;not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency      string          `json:"currency" gorm:"type:varchar(3);not null"`
	Status        Status          `json:"status" gorm:"type:varchar(16);not null"`
	IssuedAt      time.Time       `json:"issued_at" gorm:"not null"`
	PaidAt        *time.Time      `json:"paid_at"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
	Items         []LineItem      `json:"items" gorm:"-"`
}

func (Invoice) TableName() string { return "invoices" }

func (i Invoice) IsPaid() bool {
	return i.Status == StatusPaid
}

// LineItem is an ordered invoice line. ServiceID is a weak reference and may
// point at a service that no longer exists.
type LineItem struct {
	InvoiceID   snowflake.ID    `json:"-" gorm:"primaryKey;autoIncrement:false"`
	Position    int             `json:"position" gorm:"primaryKey;autoIncrement:false"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	ServiceID   *snowflake.ID   `json:"service_id,omitempty"`
}

func (LineItem) TableName() string { return "invoice_items" }
