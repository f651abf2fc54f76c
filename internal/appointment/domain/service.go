package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/garagedesk/internal/identity"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
)

type CreateRequest struct {
	CustomerName string         `json:"customer_name"`
	ServiceIDs   []snowflake.ID `json:"service_ids"`
	ScheduledAt  time.Time      `json:"scheduled_at"`
	Notes        string         `json:"notes"`
}

type ListRequest struct {
	pagination.Pagination
}

type ListResponse struct {
	pagination.PageInfo
	Appointments []Appointment `json:"appointments"`
}

type Service interface {
	Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*Appointment, error)
	List(ctx context.Context, principal identity.Principal, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, principal identity.Principal, id string) (*Appointment, error)
	Delete(ctx context.Context, principal identity.Principal, id string) error
	// Find loads an appointment without an access check. It backs invoice
	// creation, which authorizes on its own.
	Find(ctx context.Context, id snowflake.ID) (*Appointment, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidCustomerName = errors.New("invalid_customer_name")
	ErrInvalidServices     = errors.New("invalid_service_ids")
	ErrInvalidScheduledAt  = errors.New("invalid_scheduled_at")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrServiceNotFound     = errors.New("service_not_found")
	ErrNotFound            = errors.New("appointment_not_found")
)
