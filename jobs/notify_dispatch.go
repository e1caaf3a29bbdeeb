package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/taskhive/taskhive/internal/jobs"
	"github.com/taskhive/taskhive/internal/notify"
	"github.com/taskhive/taskhive/internal/shared"
	"github.com/taskhive/taskhive/internal/users"
)

// Directory resolves recipients to their account, for the email address.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (users.User, error)
}

// Inbox is the slice of the notification repository the dispatch job needs.
type Inbox interface {
	Get(ctx context.Context, id uuid.UUID) (notify.Notification, error)
}

// NotifyDispatchJob mails one recorded notification to its recipient.
type NotifyDispatchJob struct {
	Inbox     Inbox
	Directory Directory
	Mailer    Mailer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewNotifyDispatchJob wires dependencies for the dispatch handler.
func NewNotifyDispatchJob(inbox Inbox, directory Directory, mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotifyDispatchJob {
	return &NotifyDispatchJob{Inbox: inbox, Directory: directory, Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle processes one dispatch task.
func (j *NotifyDispatchJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("notify dispatch: handler not configured")
	}
	var payload notify.DispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(notify.TaskTypeDispatch)
	var resultErr error
	defer func() { _ = tracker.End(resultErr) }()

	notification, err := j.Inbox.Get(ctx, payload.NotificationID)
	if err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			// Deleted before delivery; nothing to send.
			return nil
		}
		resultErr = err
		return resultErr
	}
	recipient, err := j.Directory.Get(ctx, notification.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, users.ErrNotFound) {
			return nil
		}
		resultErr = err
		return resultErr
	}

	if err := j.Mailer.Send(ctx, recipient.Email, notification.Title, notification.Body); err != nil {
		resultErr = err
		j.Logger.Error("dispatch notification mail",
			slog.String("notification_id", notification.ID.String()),
			slog.Any("error", err))
		return resultErr
	}
	j.Metrics.AddNotified(string(notification.Kind), 1)
	return nil
}
