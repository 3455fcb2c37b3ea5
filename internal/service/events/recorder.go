package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

// Recorder delivers activity-log entries and notifications asynchronously so
// a slow or failing insert never fails the file operation that triggered it.
// Events are dropped (with a log line) when the buffer is full; the audit
// trail is advisory, not transactional.
type Recorder struct {
	logger        *slog.Logger
	notifications repositories.NotificationRepository
	activities    repositories.ActivityLogRepository
	ch            chan event
}

type event struct {
	notification *models.Notification
	activity     *models.ActivityLog
}

// NewRecorder creates a recorder with a bounded queue. Call Run to start
// delivery.
func NewRecorder(logger *slog.Logger, notifications repositories.NotificationRepository, activities repositories.ActivityLogRepository) *Recorder {
	return &Recorder{
		logger:        logger,
		notifications: notifications,
		activities:    activities,
		ch:            make(chan event, 256),
	}
}

// Run consumes queued events until the context is cancelled, then drains
// whatever is left in the buffer.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case ev := <-r.ch:
			r.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-r.ch:
					r.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// Activity queues an audit-trail entry.
func (r *Recorder) Activity(userID int64, action, details string) {
	r.enqueue(event{activity: &models.ActivityLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: time.Now(),
	}})
}

// Notify queues an in-app notification. Urgency is the caller's call: a due
// reminder is always urgent, but an assignment is only urgent when it
// carries a due date.
func (r *Recorder) Notify(userID int64, notificationType, message string, fileID *int64, urgent bool) {
	r.enqueue(event{notification: &models.Notification{
		UserID:        userID,
		Title:         titleFor(notificationType),
		Message:       message,
		Type:          notificationType,
		IsUrgent:      urgent || notificationType == models.NotificationTaskDue,
		RelatedFileID: fileID,
	}})
}

func (r *Recorder) enqueue(ev event) {
	select {
	case r.ch <- ev:
	default:
		r.logger.Warn("event queue full, dropping event")
	}
}

func (r *Recorder) deliver(ev event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if ev.activity != nil {
		if err := r.activities.Create(ctx, ev.activity); err != nil {
			r.logger.Error("failed to record activity", "action", ev.activity.Action, "error", err)
		}
	}
	if ev.notification != nil {
		if err := r.notifications.Create(ctx, ev.notification); err != nil {
			r.logger.Error("failed to create notification", "user_id", ev.notification.UserID, "error", err)
		}
	}
}

func titleFor(notificationType string) string {
	switch notificationType {
	case models.NotificationTaskAssigned:
		return "New Task"
	case models.NotificationTaskDue:
		return "Task Due Soon"
	case models.NotificationFileUpdate:
		return "File Updated"
	default:
		return "Notification"
	}
}
