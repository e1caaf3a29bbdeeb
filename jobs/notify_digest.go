package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/taskhive/taskhive/internal/jobs"
	"github.com/taskhive/taskhive/internal/notify"
	"github.com/taskhive/taskhive/internal/users"
)

// digestConcurrency bounds the parallel mail sends of one digest run.
const digestConcurrency = 8

// UnreadSource supplies the grouped unread backlog.
type UnreadSource interface {
	ListUnreadSummaries(ctx context.Context) ([]notify.UnreadSummary, error)
}

// NotifyDigestJob mails every user with unread notifications a short
// summary. Scheduled daily.
type NotifyDigestJob struct {
	Unread    UnreadSource
	Directory Directory
	Mailer    Mailer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewNotifyDigestJob wires dependencies for the digest handler.
func NewNotifyDigestJob(unread UnreadSource, directory Directory, mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotifyDigestJob {
	return &NotifyDigestJob{Unread: unread, Directory: directory, Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle executes one digest run.
func (j *NotifyDigestJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil {
		return errors.New("notify digest: handler not configured")
	}

	tracker := j.Metrics.Track(TaskTypeNotifyDigest)
	var resultErr error
	defer func() { _ = tracker.End(resultErr) }()

	summaries, err := j.Unread.ListUnreadSummaries(ctx)
	if err != nil {
		resultErr = err
		return resultErr
	}
	if len(summaries) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(digestConcurrency)
	var sent atomic.Int64
	for _, summary := range summaries {
		summary := summary
		g.Go(func() error {
			recipient, err := j.Directory.Get(ctx, summary.UserID)
			if err != nil {
				if errors.Is(err, users.ErrNotFound) {
					return nil
				}
				return err
			}
			if !recipient.IsActive {
				return nil
			}
			subject := fmt.Sprintf("You have %d unread notification(s)", summary.Count)
			body := fmt.Sprintf("Hi %s,\n\nThere are %d unread notifications waiting in your TaskHive inbox.\n", recipient.Name, summary.Count)
			if err := j.Mailer.Send(ctx, recipient.Email, subject, body); err != nil {
				return err
			}
			sent.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		j.Logger.Error("digest run failed", slog.Any("error", err))
		return resultErr
	}
	j.Metrics.AddNotified(string(notify.KindDigest), int(sent.Load()))
	j.Logger.Info("digest run complete", slog.Int64("mailed", sent.Load()))
	return nil
}
