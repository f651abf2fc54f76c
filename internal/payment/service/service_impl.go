package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	"github.com/smallbiznis/garagedesk/internal/clock"
	"github.com/smallbiznis/garagedesk/internal/config"
	"github.com/smallbiznis/garagedesk/internal/identity"
	invoicedomain "github.com/smallbiznis/garagedesk/internal/invoice/domain"
	"github.com/smallbiznis/garagedesk/internal/observability/metrics"
	"github.com/smallbiznis/garagedesk/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	outcomeCreated = "created"
	outcomeFailed  = "failed"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Invoices invoicedomain.Service
	Provider domain.Provider
	Webhooks domain.WebhookParser
	Garage   *config.GarageConfigHolder
	Metrics  *metrics.Metrics    `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	invoices invoicedomain.Service
	provider domain.Provider
	webhooks domain.WebhookParser
	garage   *config.GarageConfigHolder
	metrics  *metrics.Metrics
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		invoices: p.Invoices,
		provider: p.Provider,
		webhooks: p.Webhooks,
		garage:   p.Garage,
		metrics:  p.Metrics,
		auditSvc: p.AuditSvc,
	}
}

// CreateSession opens a hosted checkout for an unpaid invoice. Earlier
// pending attempts are left alone and do not block a new session.
func (s *Service) CreateSession(ctx context.Context, principal identity.Principal, invoiceID string) (domain.CheckoutResult, error) {
	if !principal.Authenticated() {
		return domain.CheckoutResult{}, identity.ErrUnauthenticated
	}
	id, err := parseID(invoiceID)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	invoice, err := s.invoices.Find(ctx, id)
	if err != nil {
		return domain.CheckoutResult{}, err
	}
	if err := authorization.AuthorizeView(principal, invoice.OwnerID); err != nil {
		return domain.CheckoutResult{}, err
	}
	if invoice.IsPaid() {
		return domain.CheckoutResult{}, domain.ErrInvoiceAlreadyPaid
	}

	now := s.clock.Now()
	attempt := &domain.PaymentAttempt{
		ID:        s.genID.Generate(),
		InvoiceID: invoice.ID,
		Amount:    invoice.Amount,
		Currency:  invoice.Currency,
		Method:    domain.MethodProviderHosted,
		Status:    domain.AttemptStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertAttempt(ctx, s.db, attempt); err != nil {
		return domain.CheckoutResult{}, err
	}

	garage := s.garage.Get()
	session, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		Amount:      invoice.Amount,
		Currency:    invoice.Currency,
		Description: fmt.Sprintf("Invoice %s", invoice.ID.String()),
		SuccessURL:  returnURL(garage.CheckoutSuccessURL, invoice.ID, "success", true),
		CancelURL:   returnURL(garage.CheckoutCancelURL, invoice.ID, "canceled", false),
		Reference:   invoice.ID.String(),
		AttemptID:   attempt.ID.String(),
	})
	if err != nil {
		s.metrics.RecordCheckoutSession(ctx, s.provider.Name(), outcomeFailed)
		if _, markErr := s.repo.MarkFailed(ctx, s.db, attempt.ID, domain.FailureProviderError, s.clock.Now()); markErr != nil {
			s.log.Warn("failed to close attempt after provider error",
				zap.String("attempt_id", attempt.ID.String()),
				zap.Error(markErr),
			)
		}
		s.log.Warn("checkout session creation failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("attempt_id", attempt.ID.String()),
			zap.Error(err),
		)
		return domain.CheckoutResult{}, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	if err := s.repo.SetSession(ctx, s.db, attempt.ID, session.SessionID, s.clock.Now()); err != nil {
		return domain.CheckoutResult{}, err
	}

	s.metrics.RecordCheckoutSession(ctx, s.provider.Name(), outcomeCreated)
	s.log.Info("checkout session created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("attempt_id", attempt.ID.String()),
	)
	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.Entry{
			Actor:      principal,
			Action:     auditdomain.ActionPaymentSessionCreated,
			TargetType: auditdomain.TargetInvoice,
			TargetID:   invoice.ID.String(),
			Metadata: map[string]any{
				"attempt_id": attempt.ID.String(),
				"session_id": session.SessionID,
				"provider":   s.provider.Name(),
			},
		})
	}

	return domain.CheckoutResult{
		AttemptID:   attempt.ID,
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
	}, nil
}

// VerifySession is called when the customer returns from the hosted page.
// The session id is the capability, so no principal is required.
func (s *Service) VerifySession(ctx context.Context, invoiceID, sessionID string) (domain.VerifyResult, error) {
	id, err := parseID(invoiceID)
	if err != nil {
		return domain.VerifyResult{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.VerifyResult{}, domain.ErrInvalidSession
	}

	invoice, err := s.invoices.Find(ctx, id)
	if err != nil {
		return domain.VerifyResult{}, err
	}
	if invoice.IsPaid() {
		return domain.VerifyResult{InvoiceID: id, Status: domain.VerifyPaid, AlreadyPaid: true}, nil
	}

	attempt, err := s.repo.FindAttemptBySession(ctx, s.db, sessionID)
	if err != nil {
		return domain.VerifyResult{}, err
	}
	if attempt == nil || attempt.InvoiceID != id {
		return domain.VerifyResult{}, domain.ErrSessionNotFound
	}

	status, err := s.provider.GetSessionStatus(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.VerifyResult{}, err
		}
		return domain.VerifyResult{}, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	switch status {
	case domain.SessionSucceeded:
		result, err := s.invoices.ConfirmPayment(ctx, id, attempt.ID)
		if err != nil {
			return domain.VerifyResult{}, err
		}
		return domain.VerifyResult{InvoiceID: id, Status: domain.VerifyPaid, AlreadyPaid: !result.Settled}, nil
	case domain.SessionFailed:
		if _, err := s.repo.MarkFailed(ctx, s.db, attempt.ID, domain.FailureProviderFailed, s.clock.Now()); err != nil {
			return domain.VerifyResult{}, err
		}
		return domain.VerifyResult{InvoiceID: id, Status: domain.VerifyFailed}, nil
	case domain.SessionPending:
		return domain.VerifyResult{InvoiceID: id, Status: domain.VerifyPending}, nil
	default:
		return domain.VerifyResult{}, fmt.Errorf("%w: unknown session status %q", domain.ErrProviderUnavailable, status)
	}
}

// HandleWebhook applies a signed provider callback. Redelivered events that
// were already processed are acknowledged without side effects.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.webhooks.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	provider := s.provider.Name()
	s.metrics.RecordWebhookEvent(ctx, provider, event.Type)

	existing, err := s.repo.FindEvent(ctx, s.db, provider, event.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.ProcessedAt != nil {
		s.log.Debug("webhook event already processed", zap.String("event_id", event.ID))
		return nil
	}

	recordID := s.genID.Generate()
	if existing != nil {
		recordID = existing.ID
	} else {
		_, err := s.repo.InsertEvent(ctx, s.db, &domain.EventRecord{
			ID:              recordID,
			Provider:        provider,
			ProviderEventID: event.ID,
			EventType:       event.Type,
			Payload:         datatypes.JSON(payload),
			ReceivedAt:      s.clock.Now(),
		})
		if err != nil {
			return err
		}
	}

	if err := s.applyWebhook(ctx, event); err != nil {
		return err
	}
	return s.repo.MarkEventProcessed(ctx, s.db, recordID, s.clock.Now())
}

func (s *Service) applyWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	if event.Kind == domain.EventIgnored || event.SessionID == "" {
		return nil
	}

	attempt, err := s.repo.FindAttemptBySession(ctx, s.db, event.SessionID)
	if err != nil {
		return err
	}
	if attempt == nil {
		s.log.Warn("webhook for unknown checkout session",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
		)
		return nil
	}

	switch event.Kind {
	case domain.EventSessionCompleted:
		if !event.Paid {
			return nil
		}
		_, err := s.invoices.ConfirmPayment(ctx, attempt.InvoiceID, attempt.ID)
		return err
	case domain.EventSessionExpired:
		_, err := s.repo.MarkFailed(ctx, s.db, attempt.ID, domain.FailureSessionExpired, s.clock.Now())
		return err
	case domain.EventSessionFailed:
		_, err := s.repo.MarkFailed(ctx, s.db, attempt.ID, domain.FailureProviderFailed, s.clock.Now())
		return err
	default:
		return nil
	}
}

// ReconcilePending settles or fails hosted attempts whose outcome never
// reached us. Attempts without a session never got past the provider call.
func (s *Service) ReconcilePending(ctx context.Context, before time.Time, limit int) (domain.ReconcileResult, error) {
	var result domain.ReconcileResult
	if limit <= 0 {
		return result, nil
	}

	attempts, err := s.repo.ListStalePending(ctx, s.db, before, limit)
	if err != nil {
		return result, err
	}

	var errs error
	for _, attempt := range attempts {
		result.Checked++
		if attempt.ProviderSessionID == nil || strings.TrimSpace(*attempt.ProviderSessionID) == "" {
			failed, err := s.repo.MarkFailed(ctx, s.db, attempt.ID, domain.FailureProviderError, s.clock.Now())
			if err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			if failed {
				result.Failed++
			}
			continue
		}

		sessionID := *attempt.ProviderSessionID
		status, err := s.provider.GetSessionStatus(ctx, sessionID)
		if err != nil {
			s.log.Warn("reconcile session status failed",
				zap.String("attempt_id", attempt.ID.String()),
				zap.Error(err),
			)
			if errors.Is(err, domain.ErrSessionNotFound) {
				if failed, markErr := s.repo.MarkFailed(ctx, s.db, attempt.ID, domain.FailureSessionExpired, s.clock.Now()); markErr != nil {
					errs = errors.Join(errs, markErr)
				} else if failed {
					result.Failed++
				}
			}
			continue
		}

		switch status {
		case domain.SessionSucceeded:
			confirmed, err := s.invoices.ConfirmPayment(ctx, attempt.InvoiceID, attempt.ID)
			if err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			if confirmed.Settled {
				result.Settled++
			} else {
				result.Failed++
			}
		case domain.SessionFailed:
			failed, err := s.repo.MarkFailed(ctx, s.db, attempt.ID, domain.FailureSessionExpired, s.clock.Now())
			if err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			if failed {
				result.Failed++
			}
		}
	}

	s.metrics.RecordReconciled(ctx, "settled", result.Settled)
	s.metrics.RecordReconciled(ctx, "failed", result.Failed)
	if result.Checked > 0 {
		s.log.Info("reconciled pending attempts",
			zap.Int("checked", result.Checked),
			zap.Int("settled", result.Settled),
			zap.Int("failed", result.Failed),
		)
	}
	return result, errs
}

// returnURL appends the invoice reference to a configured redirect target.
// Successful returns also carry the provider's session placeholder.
func returnURL(base string, invoiceID snowflake.ID, flag string, withSession bool) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("invoice", invoiceID.String())
	q.Set(flag, "true")
	u.RawQuery = q.Encode()

	out := u.String()
	if withSession {
		out += "&session_id={CHECKOUT_SESSION_ID}"
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
