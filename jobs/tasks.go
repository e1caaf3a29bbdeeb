// Package jobs hosts the background workers: notification dispatch by
// mail, the daily unread digest, and the session record sweep.
package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyDigest is the cron task mailing unread summaries.
	TaskTypeNotifyDigest = "notify:digest"
	// TaskTypeSessionSweep is the cron task purging expired session records.
	TaskTypeSessionSweep = "session:sweep"
)

// NewNotifyDigestTask constructs the digest cron task. The job scans every
// tenant, so the task carries no payload.
func NewNotifyDigestTask() *asynq.Task {
	return asynq.NewTask(TaskTypeNotifyDigest, nil)
}

// NewSessionSweepTask constructs the session sweep cron task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionSweep, nil)
}
