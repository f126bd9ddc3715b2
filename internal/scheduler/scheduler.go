// Package scheduler wraps robfig/cron with an overlap guard: a job still
// running when its next trigger fires skips that trigger instead of piling
// up concurrent runs against the same state.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmehra/oddsradar/internal/logging"
)

type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func New(ctx context.Context) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		ctx:  ctx,
	}
}

// Every registers task on a fixed interval. Different jobs may overlap each
// other freely; a job never overlaps a prior unfinished run of itself.
// Intervals under a second are rounded up to a second, matching cron's own
// minimum delay granularity.
func (s *Scheduler) Every(interval time.Duration, name string, task func(context.Context)) {
	if interval < time.Second {
		interval = time.Second
	}
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.guard(name, task)))
	logging.Infof("[scheduler] registered %s every %s", name, interval)
}

// guard wraps task so a trigger arriving while a prior run of the same job
// is still in flight is skipped rather than stacked.
func (s *Scheduler) guard(name string, task func(context.Context)) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			logging.Infof("[scheduler] %s still running, skipping trigger", name)
			return
		}
		defer running.Store(false)

		start := time.Now()
		task(s.ctx)
		logging.Debugf("[scheduler] %s finished in %s", name, time.Since(start))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
