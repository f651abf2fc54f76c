package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counter names. Each one is created by New.
const (
	invoicesCreatedTotal  = "garagedesk_invoices_created_total"
	invoicesPaidTotal     = "garagedesk_invoices_paid_total"
	checkoutSessionsTotal = "garagedesk_checkout_sessions_total"
	webhookEventsTotal    = "garagedesk_payment_webhook_events_total"
	rateLimitDeniedTotal  = "garagedesk_rate_limit_denied_total"
	reconciledTotal       = "garagedesk_payment_attempts_reconciled_total"
)

var counterHelp = map[string]string{
	invoicesCreatedTotal:  "Invoices generated from appointments.",
	invoicesPaidTotal:     "Invoices settled, by the path that settled them.",
	checkoutSessionsTotal: "Hosted checkout sessions requested from a provider.",
	webhookEventsTotal:    "Provider webhook events received.",
	rateLimitDeniedTotal:  "Checkout requests turned away by the rate limiter.",
	reconciledTotal:       "Stale payment attempts resolved by the reconciler.",
}

// labelKeys is the closed set of labels an instrument may carry. Anything
// else, customer ids in particular, is dropped before recording.
var labelKeys = map[attribute.Key]bool{
	"currency":    true,
	"method":      true,
	"provider":    true,
	"outcome":     true,
	"event_type":  true,
	"endpoint":    true,
	"reason":      true,
	"status_code": true,
}

// Metrics records lifecycle counters. A nil *Metrics records nothing.
type Metrics struct {
	counters map[string]metric.Int64Counter
}

func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	scope := strings.TrimSpace(cfg.ServiceName)
	if scope == "" {
		scope = "garagedesk"
	}
	meter := provider.Meter(scope)

	m := &Metrics{counters: make(map[string]metric.Int64Counter, len(counterHelp))}
	for name, help := range counterHelp {
		counter, err := meter.Int64Counter(name, metric.WithDescription(help))
		if err != nil {
			return nil, err
		}
		m.counters[name] = counter
	}
	return m, nil
}

// FilterAttributes keeps only allow-listed labels, preserving order.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := attrs[:0:0]
	for _, kv := range attrs {
		if labelKeys[kv.Key] {
			kept = append(kept, kv)
		}
	}
	return kept
}

// add takes label pairs as alternating key, value strings.
func (m *Metrics) add(ctx context.Context, name string, n int64, pairs ...string) {
	if m == nil || n <= 0 {
		return
	}
	counter, ok := m.counters[name]
	if !ok {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		attrs = append(attrs, attribute.String(pairs[i], strings.TrimSpace(pairs[i+1])))
	}
	counter.Add(ctx, n, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func (m *Metrics) RecordInvoiceCreated(ctx context.Context, currency string) {
	m.add(ctx, invoicesCreatedTotal, 1, "currency", strings.ToUpper(currency))
}

// RecordInvoicePaid counts Unpaid to Paid transitions by the path that won.
func (m *Metrics) RecordInvoicePaid(ctx context.Context, method string) {
	m.add(ctx, invoicesPaidTotal, 1, "method", method)
}

func (m *Metrics) RecordCheckoutSession(ctx context.Context, provider, outcome string) {
	m.add(ctx, checkoutSessionsTotal, 1, "provider", provider, "outcome", outcome)
}

func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, eventType string) {
	m.add(ctx, webhookEventsTotal, 1, "provider", provider, "event_type", eventType)
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	m.add(ctx, rateLimitDeniedTotal, 1, "endpoint", endpoint, "reason", reason)
}

// RecordReconciled counts attempts the reconciler moved out of pending,
// labelled "settled" or "failed".
func (m *Metrics) RecordReconciled(ctx context.Context, outcome string, n int) {
	m.add(ctx, reconciledTotal, int64(n), "outcome", outcome)
}
