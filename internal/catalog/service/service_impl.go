package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	"github.com/smallbiznis/garagedesk/internal/catalog/domain"
	"github.com/smallbiznis/garagedesk/internal/clock"
	"github.com/smallbiznis/garagedesk/internal/identity"
	"github.com/smallbiznis/garagedesk/internal/pricing"
	"github.com/smallbiznis/garagedesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.GarageService, error) {
	items, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.GarageService{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.GarageService, error) {
	serviceID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.GetService(ctx, serviceID)
}

func (s *Service) GetService(ctx context.Context, id snowflake.ID) (*domain.GarageService, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// Lookup resolves the current catalog entries for ids. Unknown ids are omitted.
func (s *Service) Lookup(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]pricing.CatalogEntry, error) {
	items, err := s.repo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	entries := make(map[snowflake.ID]pricing.CatalogEntry, len(items))
	for _, item := range items {
		entries[item.ID] = pricing.CatalogEntry{
			ID:    item.ID,
			Name:  item.Name,
			Price: item.Price,
		}
	}
	return entries, nil
}

func (s *Service) Create(ctx context.Context, principal identity.Principal, req domain.CreateRequest) (*domain.GarageService, error) {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	code := slug.Make(strings.TrimSpace(req.Code))
	if code == "" {
		code = slug.Make(name)
	}
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	now := s.clock.Now()
	item := &domain.GarageService{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Price:     pricing.Normalize(req.Price),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}

	s.log.Info("catalog service created",
		zap.String("service_id", item.ID.String()),
		zap.String("code", item.Code),
	)
	return item, nil
}

func (s *Service) Update(ctx context.Context, principal identity.Principal, id string, req domain.UpdateRequest) (*domain.GarageService, error) {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return nil, err
	}
	serviceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var updated *domain.GarageService
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, serviceID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			item.Name = name
		}
		if req.Price != nil {
			if req.Price.IsNegative() {
				return domain.ErrInvalidPrice
			}
			item.Price = pricing.Normalize(*req.Price)
		}
		item.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("catalog service updated",
		zap.String("service_id", updated.ID.String()),
		zap.String("price", updated.Price.StringFixed(pricing.Scale)),
	)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, principal identity.Principal, id string) error {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return err
	}
	serviceID, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, serviceID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	s.log.Info("catalog service deleted", zap.String("service_id", serviceID.String()))
	return nil
}

// Seed inserts any default catalog entry whose code is not present yet.
func (s *Service) Seed(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		for _, entry := range domain.DefaultCatalog {
			code := slug.Make(entry.Name)
			existing, err := s.repo.FindByCode(ctx, tx, code)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			item := &domain.GarageService{
				ID:        s.genID.Generate(),
				Code:      code,
				Name:      entry.Name,
				Price:     decimal.RequireFromString(entry.Price),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.Insert(ctx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
