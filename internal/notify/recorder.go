package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskTypeDispatch is the asynq task type delivering one notification by
// mail.
const TaskTypeDispatch = "notify:dispatch"

// DispatchPayload identifies the notification to deliver.
type DispatchPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// NewDispatchTask constructs the asynq task for one recorded notification.
func NewDispatchTask(notificationID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(DispatchPayload{NotificationID: notificationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDispatch, data), nil
}

// Enqueuer is the slice of asynq.Client the recorder needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Recorder is the trusted-system capability that creates notifications.
// It is handed to other services (tasks, jobs) directly and deliberately
// bypasses the end-user policy: the rule table keeps notification creation
// Forbidden for every role, and this is the single internal channel around
// that.
type Recorder struct {
	repo     RepositoryPort
	cache    *UnreadCache
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewRecorder builds a Recorder instance. The enqueuer may be nil in tests
// and tools; recording then skips mail dispatch.
func NewRecorder(repo RepositoryPort, cache *UnreadCache, enqueuer Enqueuer, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, cache: cache, enqueuer: enqueuer, logger: logger}
}

// Record persists one notification per recipient and schedules delivery.
func (r *Recorder) Record(ctx context.Context, companyID uuid.UUID, userIDs []uuid.UUID, kind Kind, title, body string) error {
	for _, userID := range userIDs {
		created, err := r.repo.Create(ctx, Notification{
			CompanyID: companyID,
			UserID:    userID,
			Kind:      kind,
			Title:     title,
			Body:      body,
		})
		if err != nil {
			return fmt.Errorf("notify: record for %s: %w", userID, err)
		}
		r.dispatch(ctx, created.ID)
	}
	r.cache.Invalidate(ctx, userIDs...)
	return nil
}

// TaskAssigned records an assignment notification for each new assignee.
func (r *Recorder) TaskAssigned(ctx context.Context, companyID uuid.UUID, userIDs []uuid.UUID, taskID uuid.UUID, title string) error {
	return r.Record(ctx, companyID, userIDs, KindTaskAssigned,
		"New task assigned: "+title,
		fmt.Sprintf("You were assigned to task %s.", taskID))
}

func (r *Recorder) dispatch(ctx context.Context, notificationID uuid.UUID) {
	if r.enqueuer == nil {
		return
	}
	task, err := NewDispatchTask(notificationID)
	if err != nil {
		r.warn("build dispatch task", err)
		return
	}
	if _, err := r.enqueuer.EnqueueContext(ctx, task); err != nil {
		// Delivery is best effort; the inbox row is already persisted.
		r.warn("enqueue dispatch task", err)
	}
}

func (r *Recorder) warn(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, slog.Any("error", err))
	}
}
