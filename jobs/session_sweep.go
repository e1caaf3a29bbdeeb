package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/taskhive/taskhive/internal/jobs"
)

// SessionSweeper removes expired session records.
type SessionSweeper interface {
	SweepSessions(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweepJob purges session records whose expiry has passed. Redis
// drops the live session by TTL; this keeps the postgres audit copy tidy.
type SessionSweepJob struct {
	Sweeper SessionSweeper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSessionSweepJob wires dependencies for the sweep handler.
func NewSessionSweepJob(sweeper SessionSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionSweepJob {
	return &SessionSweepJob{
		Sweeper: sweeper,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one sweep.
func (j *SessionSweepJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil {
		return errors.New("session sweep: handler not configured")
	}

	tracker := j.Metrics.Track(TaskTypeSessionSweep)
	var resultErr error
	defer func() { _ = tracker.End(resultErr) }()

	swept, err := j.Sweeper.SweepSessions(ctx, j.clock())
	if err != nil {
		resultErr = err
		return resultErr
	}
	if swept > 0 {
		j.Logger.Info("swept expired sessions", slog.Int64("count", swept))
	}
	return nil
}
