package task

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	logEventClientStatePurgeFailed = "client_state_purge_failed"
	logEventClientStatePurged      = "client_state_purged"
	logFieldPurgedCount            = "purged"
)

// ClientStatePurger removes persisted client states whose expiration has passed.
type ClientStatePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// ClientStatePurgeJob deletes expired browser sessions.
type ClientStatePurgeJob struct {
	purger ClientStatePurger
	logger *zap.Logger
	now    func() time.Time
}

// NewClientStatePurgeJob builds a ClientStatePurgeJob.
func NewClientStatePurgeJob(purger ClientStatePurger, logger *zap.Logger) *ClientStatePurgeJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientStatePurgeJob{
		purger: purger,
		logger: logger,
		now:    time.Now,
	}
}

// Run purges once and returns the number of removed states.
func (job *ClientStatePurgeJob) Run(ctx context.Context) (int64, error) {
	if job == nil || job.purger == nil {
		return 0, nil
	}
	return job.purger.PurgeExpired(ctx, job.now().UTC())
}

// Runner adapts the job for a Scheduler, logging the outcome of each run.
func (job *ClientStatePurgeJob) Runner() RunnerFunc {
	return func(ctx context.Context) {
		purged, purgeErr := job.Run(ctx)
		if purgeErr != nil {
			job.logger.Warn(logEventClientStatePurgeFailed, zap.Error(purgeErr))
			return
		}
		if purged > 0 {
			job.logger.Info(logEventClientStatePurged, zap.Int64(logFieldPurgedCount, purged))
		}
	}
}
