package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/garagedesk/internal/appointment/domain"
	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	"github.com/smallbiznis/garagedesk/internal/clock"
	"github.com/smallbiznis/garagedesk/internal/identity"
	"github.com/smallbiznis/garagedesk/internal/pricing"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Snapshotter *pricing.Snapshotter
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	snapshotter *pricing.Snapshotter
	auditSvc    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("appointment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		snapshotter: p.Snapshotter,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, principal identity.Principal, req domain.CreateRequest) (*domain.Appointment, error) {
	if !principal.Authenticated() {
		return nil, identity.ErrUnauthenticated
	}

	customerName := strings.TrimSpace(req.CustomerName)
	if customerName == "" {
		return nil, domain.ErrInvalidCustomerName
	}
	serviceIDs := pricing.Dedupe(req.ServiceIDs)
	if len(serviceIDs) == 0 {
		return nil, domain.ErrInvalidServices
	}
	if req.ScheduledAt.IsZero() {
		return nil, domain.ErrInvalidScheduledAt
	}

	snapshots, missing, err := s.snapshotter.Take(ctx, serviceIDs)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, domain.ErrServiceNotFound
	}

	appointment := &domain.Appointment{
		ID:           s.genID.Generate(),
		OwnerID:      principal.ID,
		CustomerName: customerName,
		ServiceIDs:   datatypes.JSONSlice[snowflake.ID](serviceIDs),
		Services:     datatypes.JSONSlice[pricing.Snapshot](snapshots),
		TotalPrice:   pricing.Total(snapshots),
		ScheduledAt:  req.ScheduledAt.UTC(),
		Notes:        strings.TrimSpace(req.Notes),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, appointment); err != nil {
		return nil, err
	}

	s.log.Info("appointment created",
		zap.String("appointment_id", appointment.ID.String()),
		zap.Int("service_count", len(serviceIDs)),
	)
	return appointment, nil
}

func (s *Service) List(ctx context.Context, principal identity.Principal, req domain.ListRequest) (domain.ListResponse, error) {
	empty := domain.ListResponse{Appointments: []domain.Appointment{}}

	filter := domain.ListFilter{}
	switch principal.Role {
	case identity.RoleAdmin:
	case identity.RoleCustomer:
		if principal.ID == "" {
			return empty, nil
		}
		filter.OwnerID = principal.ID
	default:
		return empty, nil
	}

	page := req.Pagination.Normalize()
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return empty, domain.ErrInvalidPageToken
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil || afterID == 0 {
			return empty, domain.ErrInvalidPageToken
		}
		filter.AfterID = afterID
	}
	filter.Limit = page.PageSize

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return empty, err
	}
	items, pageInfo := pagination.Paginate(items, page.PageSize, func(item *domain.Appointment) string {
		return item.ID.String()
	})

	appointments := make([]domain.Appointment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		appointments = append(appointments, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Appointments: appointments}, nil
}

func (s *Service) Get(ctx context.Context, principal identity.Principal, id string) (*domain.Appointment, error) {
	if !principal.Authenticated() {
		return nil, identity.ErrUnauthenticated
	}
	appointmentID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	appointment, err := s.Find(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := authorization.AuthorizeView(principal, appointment.OwnerID); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *Service) Find(ctx context.Context, id snowflake.ID) (*domain.Appointment, error) {
	appointment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, domain.ErrNotFound
	}
	return appointment, nil
}

// Delete removes the appointment only. Invoices created from it keep their
// own copy of the customer and line items.
func (s *Service) Delete(ctx context.Context, principal identity.Principal, id string) error {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return err
	}
	appointmentID, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, appointmentID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	s.log.Info("appointment deleted", zap.String("appointment_id", appointmentID.String()))
	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.Entry{
			Actor:      principal,
			Action:     auditdomain.ActionAppointmentDeleted,
			TargetType: auditdomain.TargetAppointment,
			TargetID:   appointmentID.String(),
		})
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
