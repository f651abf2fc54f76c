package observability

import (
	"strings"

	"github.com/smallbiznis/garagedesk/internal/config"
	"github.com/smallbiznis/garagedesk/internal/observability/logger"
	"github.com/smallbiznis/garagedesk/internal/observability/metrics"
	"github.com/smallbiznis/garagedesk/internal/observability/tracing"
)

// Config is the slice of application settings the logging, tracing and
// metrics providers care about.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	Telemetry config.TelemetryConfig
}

func NewConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "garagedesk"
	}
	return Config{
		ServiceName: name,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		LogLevel:    cfg.Log.Level,
		LogFormat:   cfg.Log.Format,
		Telemetry:   cfg.Telemetry,
	}
}

// Debug is true for debug logging and for local environments. It turns on
// stack traces and error details in request logs.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:   c.ServiceName,
		Environment:   c.Environment,
		Version:       c.Version,
		Level:         c.LogLevel,
		Format:        c.LogFormat,
		Debug:         c.Debug(),
		StackOnError:  c.Debug(),
		IncludeCaller: true,
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.Telemetry.Enabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.Telemetry.Endpoint,
		ExporterProtocol: c.Telemetry.Protocol,
		SamplingRatio:    c.Telemetry.SamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.Telemetry.Enabled,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
		ExporterEndpoint: c.Telemetry.Endpoint,
		ExporterProtocol: c.Telemetry.Protocol,
	}
}
