package contract

import (
	"context"
	"time"

	"contract-lifecycle/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler enqueues the daily expiry sweep.
type Scheduler struct {
	service *Service
	hour    int
	workers int
	stop    chan struct{}
}

func NewScheduler(svc *Service, cfg *config.Config) *Scheduler {
	return &Scheduler{
		service: svc,
		hour:    cfg.Contract.ExpirySweepHour,
		workers: cfg.Contract.SweepWorkers,
		stop:    make(chan struct{}),
	}
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.run()
			return nil
		},
		OnStop: func(context.Context) error {
			close(s.stop)
			return nil
		},
	})
}

func (s *Scheduler) run() {
	zap.L().Info("[Scheduler] started contract expiry scheduler", zap.Int("hour", s.hour))

	for {
		now := time.Now().UTC()
		next := nextRunTime(now, s.hour, 0)

		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", next.Sub(now)),
		)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			s.runDaily(context.Background())
		case <-s.stop:
			timer.Stop()
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	start := time.Now()
	tenants, err := s.service.EnqueueExpirySweeps(ctx, s.workers)
	if err != nil {
		zap.L().Error("[Scheduler] failed enqueue expiry sweeps", zap.Error(err))
		return
	}

	zap.L().Info("[Scheduler] enqueued expiry sweeps",
		zap.Int("tenants", tenants),
		zap.Duration("duration", time.Since(start)),
	)
}

// nextRunTime returns the next occurrence of hour:minute strictly after now.
func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
