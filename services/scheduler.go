// services/scheduler.go
package services

import (
	"context"
	"time"

	"raid-dashboard/logger"

	"github.com/go-co-op/gocron/v2"
)

// StartRefreshScheduler refreshes the price cache every interval. The caller
// owns the returned scheduler and shuts it down on exit.
func (s *PriceService) StartRefreshScheduler(interval time.Duration, timeout time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			snap := s.Refresh(ctx)
			logger.Debugf("[PRICES] refreshed from %s: $%.6f", snap.Source, snap.PriceUSD)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
