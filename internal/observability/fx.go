package observability

import (
	"github.com/smallbiznis/garagedesk/internal/observability/logger"
	"github.com/smallbiznis/garagedesk/internal/observability/metrics"
	"github.com/smallbiznis/garagedesk/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires the zap logger, the OTLP tracer provider and the metric
// instruments. The tracer provider is forced so the global propagator is set
// before the HTTP server starts.
var Module = fx.Module("observability",
	fx.Provide(NewConfig),
	fx.Provide(Config.Logger, logger.New),
	fx.Provide(Config.Tracing, tracing.NewProvider),
	fx.Provide(Config.Metrics, metrics.NewProvider, metrics.New, metrics.NewHTTPMetrics),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
