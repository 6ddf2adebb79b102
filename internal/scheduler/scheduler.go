// Package scheduler runs the periodic event-list refresh.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "eventlist/internal/log"
)

// Job is one refresh run. Errors are logged; the schedule keeps going.
type Job func(ctx context.Context) error

// Start schedules job on spec (standard five-field cron or a descriptor
// such as "@every 5m") in loc. An empty spec disables scheduling and
// returns a no-op stop. Runs never overlap; a run that would start while
// the previous one is still going is skipped.
//
// The returned stop cancels ctx for running jobs and waits for them.
func Start(ctx context.Context, spec string, loc *time.Location, job Job) (stop func(), err error) {
	if spec == "" {
		appLog.Info("scheduler disabled")
		return func() {}, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err = c.AddFunc(spec, func() {
		started := time.Now()
		if err := job(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err, "spec", spec)
			return
		}
		appLog.Debug("scheduled refresh done", "elapsed", time.Since(started).String())
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("scheduler started", "spec", spec, "timezone", loc.String())

	return func() {
		cancel()
		<-c.Stop().Done()
		appLog.Info("scheduler stopped")
	}, nil
}
