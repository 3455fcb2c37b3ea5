package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

// DueSoonWindow is how far ahead the due-task scan looks.
const DueSoonWindow = 24 * time.Hour

// Service manages a user's notification feed and runs the periodic due-task
// scan.
type Service struct {
	logger        *slog.Logger
	notifications repositories.NotificationRepository
	files         repositories.FileRepository
}

func NewService(logger *slog.Logger, notifications repositories.NotificationRepository, files repositories.FileRepository) *Service {
	return &Service{logger: logger, notifications: notifications, files: files}
}

// List returns a user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, skip, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	return s.notifications.ListByUser(ctx, userID, unreadOnly, skip, limit)
}

// CountUnread returns the badge count.
func (s *Service) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications read.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.notifications.MarkRead(ctx, id, userID)
}

// MarkAllRead marks the whole feed read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

// Delete removes one of the user's notifications.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	return s.notifications.Delete(ctx, id, userID)
}

// DeleteAll clears the user's feed.
func (s *Service) DeleteAll(ctx context.Context, userID int64) error {
	return s.notifications.DeleteAll(ctx, userID)
}

// ScanDueTasks notifies assignees whose tasks come due within the window and
// are not done yet. Run from a daily ticker; running it more often would
// duplicate reminders.
func (s *Service) ScanDueTasks(ctx context.Context) (int, error) {
	assigned, err := s.files.ListAssigned(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	cutoff := now.Add(DueSoonWindow)
	sent := 0
	for _, rec := range assigned {
		if rec.DueDate == nil || rec.AssignedToID == nil {
			continue
		}
		if rec.Status == models.StatusDone {
			continue
		}
		if rec.DueDate.After(cutoff) {
			continue
		}

		message := fmt.Sprintf("%q is due %s", rec.Filename, rec.DueDate.Format("Jan 2, 2006"))
		if rec.DueDate.Before(now) {
			message = fmt.Sprintf("%q is overdue (was due %s)", rec.Filename, rec.DueDate.Format("Jan 2, 2006"))
		}
		n := &models.Notification{
			UserID:        *rec.AssignedToID,
			Title:         "Task Due Soon",
			Message:       message,
			Type:          models.NotificationTaskDue,
			IsUrgent:      true,
			RelatedFileID: &rec.ID,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			s.logger.Error("failed to create due-task notification", "file_id", rec.ID, "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("due-task scan completed", "notified", sent)
	}
	return sent, nil
}

// RunDueTaskScanner runs ScanDueTasks once immediately and then on every
// tick until the context is cancelled.
func (s *Service) RunDueTaskScanner(ctx context.Context, interval time.Duration) {
	if _, err := s.ScanDueTasks(ctx); err != nil {
		s.logger.Error("due-task scan failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := s.ScanDueTasks(ctx); err != nil {
				s.logger.Error("due-task scan failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
