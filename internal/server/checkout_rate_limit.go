package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/garagedesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/garagedesk/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	rateLimitReasonPrincipalRate      = "principal-rate"
	rateLimitReasonInvoiceConcurrency = "invoice-concurrency"
)

// CheckoutRateLimit throttles checkout session creation per caller and lets
// only one checkout per invoice run at a time. It reads the invoice id from
// the bound request, so the handler must not consume the body first.
func (s *Server) CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.checkoutLimiter == nil || !s.checkoutLimiter.Enabled() {
			c.Next()
			return
		}

		principal := principalFrom(c)
		if !principal.Authenticated() {
			// The service rejects anonymous callers with 401.
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		decision, err := s.checkoutLimiter.Take(ctx, principal.ID)
		if err != nil {
			logger.FromContext(ctx).Warn("checkout rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			denyCheckout(c, endpoint, rateLimitReasonPrincipalRate, max(retryAfter, 1), s.obsMetrics)
			return
		}

		var req checkoutSessionRequest
		if err := c.ShouldBindBodyWithJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		invoiceID := strings.TrimSpace(req.InvoiceID)
		if invoiceID == "" {
			c.Next()
			return
		}

		release, acquired, err := s.checkoutLimiter.LockInvoice(ctx, invoiceID)
		if err != nil {
			logger.FromContext(ctx).Warn("checkout invoice lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !acquired {
			denyCheckout(c, endpoint, rateLimitReasonInvoiceConcurrency, 1, s.obsMetrics)
			return
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.FromContext(ctx).Warn("checkout invoice unlock failed", zap.Error(err))
			}
		}()

		c.Next()
	}
}

func denyCheckout(c *gin.Context, endpoint, reason string, retryAfter int, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("checkout rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
