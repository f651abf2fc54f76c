package scheduler

import (
	"time"

	"github.com/smallbiznis/garagedesk/internal/config"
)

// Config controls how often the reconciler runs and what counts as stale.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	StaleAfter  time.Duration
	BatchSize   int
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: time.Minute,
		StaleAfter:  30 * time.Minute,
		BatchSize:   50,
		JobTimeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = defaults.StaleAfter
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

// ProvideConfig turns the process settings into scheduler settings. The
// reconciler has nothing to ask when no provider key is configured.
func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Scheduler.Enabled && cfg.Stripe.SecretKey != "",
		RunInterval: time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second,
		StaleAfter:  time.Duration(cfg.Scheduler.StaleAfterSeconds) * time.Second,
		BatchSize:   cfg.Scheduler.BatchSize,
	}.withDefaults()
}
