package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/garagedesk/internal/appointment"
	appointmentdomain "github.com/smallbiznis/garagedesk/internal/appointment/domain"
	"github.com/smallbiznis/garagedesk/internal/audit"
	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	"github.com/smallbiznis/garagedesk/internal/catalog"
	catalogdomain "github.com/smallbiznis/garagedesk/internal/catalog/domain"
	"github.com/smallbiznis/garagedesk/internal/config"
	"github.com/smallbiznis/garagedesk/internal/identity"
	"github.com/smallbiznis/garagedesk/internal/invoice"
	invoicedomain "github.com/smallbiznis/garagedesk/internal/invoice/domain"
	"github.com/smallbiznis/garagedesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/garagedesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/garagedesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/garagedesk/internal/observability/tracing"
	"github.com/smallbiznis/garagedesk/internal/payment"
	paymentdomain "github.com/smallbiznis/garagedesk/internal/payment/domain"
	"github.com/smallbiznis/garagedesk/internal/pricing"
	"github.com/smallbiznis/garagedesk/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	identity.Module,
	pricing.Module,
	audit.Module,
	catalog.Module,
	appointment.Module,
	invoice.Module,
	payment.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	verifier        identity.Verifier
	catalogSvc      catalogdomain.Service
	appointmentSvc  appointmentdomain.Service
	invoiceSvc      invoicedomain.Service
	paymentSvc      paymentdomain.Service
	auditSvc        auditdomain.Service
	checkoutLimiter *ratelimit.CheckoutLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Verifier        identity.Verifier
	CatalogSvc      catalogdomain.Service
	AppointmentSvc  appointmentdomain.Service
	InvoiceSvc      invoicedomain.Service
	PaymentSvc      paymentdomain.Service
	AuditSvc        auditdomain.Service
	CheckoutLimiter *ratelimit.CheckoutLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		verifier:        p.Verifier,
		catalogSvc:      p.CatalogSvc,
		appointmentSvc:  p.AppointmentSvc,
		invoiceSvc:      p.InvoiceSvc,
		paymentSvc:      p.PaymentSvc,
		auditSvc:        p.AuditSvc,
		checkoutLimiter: p.CheckoutLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Payment Webhooks --------
	// Authenticated by the provider signature, never by a bearer token.
	api.POST("/payments/webhooks/stripe", s.HandleStripeWebhook)

	api.Use(s.Identify())

	// -------- Catalog --------
	api.GET("/services", s.ListServices)
	api.GET("/services/:id", s.GetServiceByID)
	api.POST("/services", s.RequireAdmin(), s.CreateService)
	api.PATCH("/services/:id", s.RequireAdmin(), s.UpdateService)
	api.DELETE("/services/:id", s.RequireAdmin(), s.DeleteService)

	// -------- Appointments --------
	api.POST("/appointments", s.CreateAppointment)
	api.GET("/appointments", s.ListAppointments)
	api.GET("/appointments/:id", s.GetAppointmentByID)
	api.DELETE("/appointments/:id", s.RequireAdmin(), s.DeleteAppointment)

	// -------- Invoices --------
	api.POST("/invoices", s.RequireAdmin(), s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.GET("/invoices/:id/payments", s.ListInvoicePayments)
	api.POST("/invoices/:id/mark-paid", s.RequireAdmin(), s.MarkInvoicePaid)

	// -------- Payments --------
	api.POST("/payments/checkout-session", s.CheckoutRateLimit(), s.CreateCheckoutSession)
	api.POST("/payments/verify-session", s.VerifyCheckoutSession)

	// -------- Audit --------
	api.GET("/audit-logs", s.RequireAdmin(), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
