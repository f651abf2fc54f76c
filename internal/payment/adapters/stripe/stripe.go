package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/smallbiznis/garagedesk/internal/config"
	paymentdomain "github.com/smallbiznis/garagedesk/internal/payment/domain"
	stripego "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

const providerName = "stripe"

// Adapter drives Stripe Checkout and decodes its webhooks.
type Adapter struct {
	sessions      *session.Client
	secretKey     string
	webhookSecret string
}

func New(cfg config.Config, log *zap.Logger) *Adapter {
	backendCfg := &stripego.BackendConfig{
		// Callers decide whether to retry; the client must not.
		MaxNetworkRetries: stripego.Int64(0),
	}
	if log != nil {
		backendCfg.LeveledLogger = log.Named("stripe").Sugar()
	}
	if apiURL := strings.TrimSpace(cfg.Stripe.APIURL); apiURL != "" {
		backendCfg.URL = stripego.String(apiURL)
	}

	secretKey := strings.TrimSpace(cfg.Stripe.SecretKey)
	return &Adapter{
		sessions: &session.Client{
			B:   stripego.GetBackendWithConfig(stripego.APIBackend, backendCfg),
			Key: secretKey,
		},
		secretKey:     secretKey,
		webhookSecret: strings.TrimSpace(cfg.Stripe.WebhookSecret),
	}
}

func (a *Adapter) Name() string {
	return providerName
}

func (a *Adapter) CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutRequest) (paymentdomain.CheckoutSession, error) {
	if a.secretKey == "" {
		return paymentdomain.CheckoutSession{}, paymentdomain.ErrInvalidConfig
	}

	params := &stripego.CheckoutSessionParams{
		Mode: stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency: stripego.String(strings.ToLower(req.Currency)),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(req.Description),
				},
				UnitAmount: stripego.Int64(minorUnits(req)),
			},
			Quantity: stripego.Int64(1),
		}},
		SuccessURL:        stripego.String(req.SuccessURL),
		CancelURL:         stripego.String(req.CancelURL),
		ClientReferenceID: stripego.String(req.Reference),
	}
	params.Context = ctx
	params.AddMetadata("invoice_id", req.Reference)
	params.AddMetadata("attempt_id", req.AttemptID)

	sess, err := a.sessions.New(params)
	if err != nil {
		return paymentdomain.CheckoutSession{}, err
	}
	if sess.ID == "" || sess.URL == "" {
		return paymentdomain.CheckoutSession{}, paymentdomain.ErrInvalidPayload
	}
	return paymentdomain.CheckoutSession{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

func (a *Adapter) GetSessionStatus(ctx context.Context, sessionID string) (paymentdomain.SessionStatus, error) {
	if a.secretKey == "" {
		return "", paymentdomain.ErrInvalidConfig
	}

	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := a.sessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return "", paymentdomain.ErrSessionNotFound
		}
		return "", err
	}
	return sessionStatus(sess), nil
}

// ParseWebhook verifies the Stripe-Signature header and reduces the event.
func (a *Adapter) ParseWebhook(payload []byte, signature string) (*paymentdomain.WebhookEvent, error) {
	if a.webhookSecret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if strings.TrimSpace(signature) == "" {
		return nil, paymentdomain.ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, a.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, paymentdomain.ErrInvalidSignature
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	out := &paymentdomain.WebhookEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Kind:    paymentdomain.EventIgnored,
		Payload: payload,
	}

	var kind paymentdomain.EventKind
	switch event.Type {
	case stripego.EventTypeCheckoutSessionCompleted, stripego.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		kind = paymentdomain.EventSessionCompleted
	case stripego.EventTypeCheckoutSessionExpired:
		kind = paymentdomain.EventSessionExpired
	case stripego.EventTypeCheckoutSessionAsyncPaymentFailed:
		kind = paymentdomain.EventSessionFailed
	default:
		return out, nil
	}

	if event.Data == nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	var sess stripego.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil || sess.ID == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	out.Kind = kind
	out.SessionID = sess.ID
	out.Paid = sess.PaymentStatus == stripego.CheckoutSessionPaymentStatusPaid ||
		sess.PaymentStatus == stripego.CheckoutSessionPaymentStatusNoPaymentRequired
	return out, nil
}

func sessionStatus(sess *stripego.CheckoutSession) paymentdomain.SessionStatus {
	switch {
	case sess.PaymentStatus == stripego.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripego.CheckoutSessionPaymentStatusNoPaymentRequired:
		return paymentdomain.SessionSucceeded
	case sess.Status == stripego.CheckoutSessionStatusExpired:
		return paymentdomain.SessionFailed
	default:
		return paymentdomain.SessionPending
	}
}

// minorUnits converts a 2-dp amount into Stripe's integer minor units.
func minorUnits(req paymentdomain.CheckoutRequest) int64 {
	return req.Amount.Shift(2).Round(0).IntPart()
}

var (
	_ paymentdomain.Provider      = (*Adapter)(nil)
	_ paymentdomain.WebhookParser = (*Adapter)(nil)
)
