package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/garagedesk/internal/clock"
	obscontext "github.com/smallbiznis/garagedesk/internal/observability/context"
	obslogger "github.com/smallbiznis/garagedesk/internal/observability/logger"
	paymentdomain "github.com/smallbiznis/garagedesk/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobReconcilePending = "reconcile_pending"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	PaymentSvc paymentdomain.Service
	Config     Config `optional:"true"`
}

// Scheduler runs background maintenance against payment attempts that a
// customer abandoned or whose webhook never arrived.
type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	paymentSvc paymentdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.PaymentSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		paymentSvc: p.PaymentSvc,
	}, nil
}

type jobRun struct {
	job       string
	runID     string
	batchSize int
	startedAt time.Time
	processed int
	errors    int
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	run := &jobRun{
		job:       name,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: s.clock.Now(),
	}
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	log.Info("scheduler.job.start", zap.Int("batch_size", batchSize))

	err := fn(ctx, run)
	if err != nil && run.errors == 0 {
		run.errors++
	}
	log.Info("scheduler.job.finish",
		zap.Int("processed_count", run.processed),
		zap.Int("error_count", run.errors),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
	)
	if err == nil {
		return nil
	}

	// A deadline only means the batch did not finish; the next tick resumes it.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("scheduler job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	log.Error("scheduler job failed", zap.Error(err))
	return err
}

// RunOnce executes every job a single time.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobReconcilePending, s.cfg.BatchSize, s.cfg.JobTimeout, s.ReconcilePendingJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ReconcilePendingJob asks the provider about hosted attempts that have been
// pending longer than the stale window.
func (s *Scheduler) ReconcilePendingJob(ctx context.Context, run *jobRun) error {
	before := s.clock.Now().Add(-s.cfg.StaleAfter)
	result, err := s.paymentSvc.ReconcilePending(ctx, before, s.cfg.BatchSize)
	run.processed += result.Checked
	return err
}
