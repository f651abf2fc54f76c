package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/garagedesk/internal/identity"
	"github.com/smallbiznis/garagedesk/internal/pricing"
)

type Service interface {
	pricing.Catalog

	List(ctx context.Context) ([]GarageService, error)
	Get(ctx context.Context, id string) (*GarageService, error)
	GetService(ctx context.Context, id snowflake.ID) (*GarageService, error)
	Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*GarageService, error)
	Update(ctx context.Context, principal identity.Principal, id string, req UpdateRequest) (*GarageService, error)
	Delete(ctx context.Context, principal identity.Principal, id string) error
	Seed(ctx context.Context) error
}

type CreateRequest struct {
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// UpdateRequest carries a partial edit; nil fields are left unchanged.
type UpdateRequest struct {
	Name  *string          `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

// SeedEntry is one row of the default garage catalog.
type SeedEntry struct {
	Name  string
	Price string
}

var DefaultCatalog = []SeedEntry{
	{Name: "Book an MOT", Price: "60.00"},
	{Name: "Book a service", Price: "120.00"},
	{Name: "Book a repair work", Price: "90.00"},
	{Name: "Oil Change", Price: "49.99"},
	{Name: "Tire Rotation", Price: "29.99"},
	{Name: "Brake Inspection", Price: "39.99"},
}

var (
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidCode  = errors.New("invalid_code")
	ErrInvalidPrice = errors.New("invalid_price")
	ErrDuplicate    = errors.New("service_already_exists")
	ErrNotFound     = errors.New("service_not_found")
)
