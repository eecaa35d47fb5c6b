package reconcile

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/propconf/pkg/observability"
)

// Scheduler runs a Sweeper on a cron schedule, adapted from the
// aggregation corpus's daily/weekly/monthly job scheduler, collapsed to the
// single nightly sweep this domain needs.
type Scheduler struct {
	sweeper *Sweeper
	logger  *observability.Logger
	cron    *cron.Cron
}

// NewScheduler builds a Scheduler that runs sweeper.SweepOnce on schedule
// (standard 5-field cron syntax, e.g. "5 0 * * *" for 00:05 daily).
func NewScheduler(sweeper *Sweeper, logger *observability.Logger, schedule string) (*Scheduler, error) {
	s := &Scheduler{sweeper: sweeper, logger: logger, cron: cron.New()}
	_, err := s.cron.AddFunc(schedule, func() {
		ctx := context.Background()
		report, err := sweeper.SweepOnce(ctx)
		if err != nil {
			logger.WithError(err).Error("reconcile: sweep failed")
			return
		}
		if len(report.Errs) > 0 {
			logger.WithField("schema_errors", len(report.Errs)).Warn("reconcile: sweep completed with per-schema errors")
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the scheduled sweep in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop signals the scheduler to stop and blocks the returned context's
// Done channel until any in-flight sweep finishes draining.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }
