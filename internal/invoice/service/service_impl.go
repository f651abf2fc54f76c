package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	appointmentdomain "github.com/smallbiznis/garagedesk/internal/appointment/domain"
	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	"github.com/smallbiznis/garagedesk/internal/clock"
	"github.com/smallbiznis/garagedesk/internal/config"
	"github.com/smallbiznis/garagedesk/internal/identity"
	"github.com/smallbiznis/garagedesk/internal/invoice/domain"
	"github.com/smallbiznis/garagedesk/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/garagedesk/internal/payment/domain"
	"github.com/smallbiznis/garagedesk/internal/pricing"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	PaymentRepo  paymentdomain.Repository
	Appointments appointmentdomain.Service
	Snapshotter  *pricing.Snapshotter
	Garage       *config.GarageConfigHolder
	Metrics      *metrics.Metrics    `optional:"true"`
	AuditSvc     auditdomain.Service `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	paymentRepo  paymentdomain.Repository
	appointments appointmentdomain.Service
	snapshotter  *pricing.Snapshotter
	garage       *config.GarageConfigHolder
	metrics      *metrics.Metrics
	auditSvc     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("invoice.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		paymentRepo:  p.PaymentRepo,
		appointments: p.Appointments,
		snapshotter:  p.Snapshotter,
		garage:       p.Garage,
		metrics:      p.Metrics,
		auditSvc:     p.AuditSvc,
	}
}

func (s *Service) CreateFromAppointment(ctx context.Context, principal identity.Principal, req domain.CreateRequest) (*domain.Invoice, error) {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return nil, err
	}
	if req.AppointmentID == 0 {
		return nil, domain.ErrInvalidID
	}

	extras := make([]domain.ExtraItem, 0, len(req.ExtraItems))
	for _, extra := range req.ExtraItems {
		description := strings.TrimSpace(extra.Description)
		if description == "" || extra.Price.IsNegative() {
			return nil, domain.ErrInvalidItem
		}
		extras = append(extras, domain.ExtraItem{Description: description, Price: pricing.Normalize(extra.Price)})
	}

	currency, err := s.resolveCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	appointment, err := s.appointments.Find(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}

	// Keep the appointment's order and drop selections it never booked.
	selected := make(map[snowflake.ID]struct{}, len(req.SelectedServiceIDs))
	for _, id := range req.SelectedServiceIDs {
		selected[id] = struct{}{}
	}
	billable := make([]snowflake.ID, 0, len(selected))
	for _, id := range appointment.ServiceIDs {
		if _, ok := selected[id]; ok {
			billable = append(billable, id)
		}
	}

	snapshots, missing, err := s.snapshotter.Take(ctx, billable)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		s.log.Info("skipping services removed from catalog",
			zap.String("appointment_id", appointment.ID.String()),
			zap.Int("skipped", len(missing)),
		)
	}

	now := s.clock.Now()
	invoiceID := s.genID.Generate()
	items := make([]domain.LineItem, 0, len(snapshots)+len(extras))
	for _, snap := range snapshots {
		serviceID := snap.ServiceID
		items = append(items, domain.LineItem{
			InvoiceID:   invoiceID,
			Position:    len(items) + 1,
			Description: snap.Name,
			Price:       snap.Price,
			ServiceID:   &serviceID,
		})
	}
	for _, extra := range extras {
		items = append(items, domain.LineItem{
			InvoiceID:   invoiceID,
			Position:    len(items) + 1,
			Description: extra.Description,
			Price:       extra.Price,
		})
	}
	if len(items) == 0 {
		return nil, domain.ErrNoItems
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.Line{Price: item.Price, Included: true})
	}

	invoice := &domain.Invoice{
		ID:            invoiceID,
		AppointmentID: appointment.ID,
		OwnerID:       appointment.OwnerID,
		CustomerName:  appointment.CustomerName,
		Amount:        pricing.ComputeTotal(lines),
		Currency:      currency,
		Status:        domain.StatusUnpaid,
		IssuedAt:      now,
		UpdatedAt:     now,
		Items:         items,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, invoice); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("appointment_id", appointment.ID.String()),
		zap.String("amount", invoice.Amount.StringFixed(pricing.Scale)),
		zap.String("currency", invoice.Currency),
	)
	s.metrics.RecordInvoiceCreated(ctx, invoice.Currency)
	s.audit(ctx, auditdomain.Entry{
		Actor:      principal,
		Action:     auditdomain.ActionInvoiceCreated,
		TargetType: auditdomain.TargetInvoice,
		TargetID:   invoice.ID.String(),
		Metadata: map[string]any{
			"appointment_id": appointment.ID.String(),
			"amount":         invoice.Amount.StringFixed(pricing.Scale),
			"currency":       invoice.Currency,
			"item_count":     len(items),
		},
	})
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, principal identity.Principal, id string) (*domain.Invoice, error) {
	invoice, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, principal identity.Principal, req domain.ListRequest) (domain.ListResponse, error) {
	empty := domain.ListResponse{Invoices: []domain.Invoice{}}

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

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return empty, err
	}
	rows, pageInfo := pagination.Paginate(rows, page.PageSize, func(item *domain.Invoice) string {
		return item.ID.String()
	})

	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	items, err := s.repo.FindItemsByInvoices(ctx, s.db, ids)
	if err != nil {
		return empty, err
	}
	byInvoice := make(map[snowflake.ID][]domain.LineItem, len(ids))
	for _, item := range items {
		byInvoice[item.InvoiceID] = append(byInvoice[item.InvoiceID], item)
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		row.Items = byInvoice[row.ID]
		if row.Items == nil {
			row.Items = []domain.LineItem{}
		}
		invoices = append(invoices, *row)
	}
	return domain.ListResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

// MarkPaidManually settles an invoice offline. An invoice that is already
// paid is returned unchanged and no attempt is recorded.
func (s *Service) MarkPaidManually(ctx context.Context, principal identity.Principal, id string) (*domain.Invoice, error) {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return nil, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var (
		invoice *domain.Invoice
		settled bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if current.IsPaid() {
			invoice = current
			return nil
		}

		now := s.clock.Now()
		settled, err = s.repo.MarkPaid(ctx, tx, invoiceID, now)
		if err != nil {
			return err
		}
		if settled {
			attempt := &paymentdomain.PaymentAttempt{
				ID:        s.genID.Generate(),
				InvoiceID: invoiceID,
				Amount:    current.Amount,
				Currency:  current.Currency,
				Method:    paymentdomain.MethodManual,
				Status:    paymentdomain.AttemptStatusSucceeded,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.paymentRepo.InsertAttempt(ctx, tx, attempt); err != nil {
				return err
			}
		}

		invoice, err = s.repo.FindByID(ctx, tx, invoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if settled {
		s.onPaid(ctx, principal, invoice, paymentdomain.MethodManual)
	}
	if err := s.attachItems(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// ConfirmPayment is where both payment paths converge. The conditional
// update lets exactly one caller move the invoice to paid; every other caller
// gets Settled == false and its attempt is closed as already settled.
func (s *Service) ConfirmPayment(ctx context.Context, invoiceID, attemptID snowflake.ID) (domain.ConfirmResult, error) {
	var (
		invoice *domain.Invoice
		settled bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()

		var err error
		settled, err = s.repo.MarkPaid(ctx, tx, invoiceID, now)
		if err != nil {
			return err
		}

		if settled {
			ok, err := s.paymentRepo.MarkSucceeded(ctx, tx, attemptID, invoiceID, now)
			if err != nil {
				return err
			}
			if !ok {
				return paymentdomain.ErrAttemptNotFound
			}
		} else {
			if _, err := s.paymentRepo.MarkFailed(ctx, tx, attemptID, paymentdomain.FailureAlreadySettled, now); err != nil {
				return err
			}
		}

		invoice, err = s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return domain.ConfirmResult{}, err
	}

	if settled {
		s.onPaid(ctx, identity.Anonymous, invoice, paymentdomain.MethodProviderHosted)
	} else {
		s.log.Info("payment confirmation ignored, invoice already settled",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("attempt_id", attemptID.String()),
		)
	}
	return domain.ConfirmResult{Invoice: *invoice, Settled: settled}, nil
}

func (s *Service) ListAttempts(ctx context.Context, principal identity.Principal, id string) ([]paymentdomain.PaymentAttempt, error) {
	invoice, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	attempts, err := s.paymentRepo.ListAttempts(ctx, s.db, invoice.ID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []paymentdomain.PaymentAttempt{}
	}
	return attempts, nil
}

func (s *Service) Find(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) loadVisible(ctx context.Context, principal identity.Principal, id string) (*domain.Invoice, error) {
	if !principal.Authenticated() {
		return nil, identity.ErrUnauthenticated
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	invoice, err := s.Find(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := authorization.AuthorizeView(principal, invoice.OwnerID); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) attachItems(ctx context.Context, invoice *domain.Invoice) error {
	items, err := s.repo.FindItems(ctx, s.db, invoice.ID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	invoice.Items = items
	return nil
}

func (s *Service) onPaid(ctx context.Context, principal identity.Principal, invoice *domain.Invoice, method paymentdomain.Method) {
	s.log.Info("invoice paid",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("method", string(method)),
	)
	s.metrics.RecordInvoicePaid(ctx, string(method))

	entry := auditdomain.Entry{
		Actor:      principal,
		Action:     auditdomain.ActionInvoicePaid,
		TargetType: auditdomain.TargetInvoice,
		TargetID:   invoice.ID.String(),
		Metadata: map[string]any{
			"method":   string(method),
			"amount":   invoice.Amount.StringFixed(pricing.Scale),
			"currency": invoice.Currency,
		},
	}
	if method == paymentdomain.MethodProviderHosted {
		entry.ActorType = auditdomain.ActorTypeProvider
	}
	s.audit(ctx, entry)
}

func (s *Service) audit(ctx context.Context, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.Record(ctx, entry)
}

func (s *Service) resolveCurrency(value string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(value))
	if currency == "" {
		currency = s.garage.Get().Currency
	}
	if len(currency) != 3 {
		return "", domain.ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", domain.ErrInvalidCurrency
		}
	}
	return currency, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
