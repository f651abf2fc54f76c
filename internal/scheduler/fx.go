package scheduler

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig, New),
	fx.Invoke(runInBackground),
)

// runInBackground ties the reconciler loop to the app lifecycle. Stopping
// the app cancels the loop and waits for the job in flight to return.
func runInBackground(lc fx.Lifecycle, cfg Config, sched *Scheduler, log *zap.Logger) {
	if !cfg.Enabled {
		log.Info("payment reconciler disabled")
		return
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.StartStopHook(
		func() {
			go func() {
				defer close(done)
				sched.RunForever(loopCtx)
			}()
		},
		func(ctx context.Context) error {
			stopLoop()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	))
}
