package stats

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/storage"
)

// Dashboard is the admin overview: index counts, task progress, disk usage,
// and the recent audit trail.
type Dashboard struct {
	TotalFiles     int                   `json:"total_files"`
	TotalUsers     int64                 `json:"total_users"`
	AssignedTasks  int                   `json:"assigned_tasks"`
	PendingTasks   int                   `json:"pending_tasks"`
	CompletedTasks int                   `json:"completed_tasks"`
	OverdueTasks   int                   `json:"overdue_tasks"`
	StorageBytes   int64                 `json:"storage_bytes"`
	FolderUsage    []storage.FolderUsage `json:"folder_usage"`
	FileTypes      map[string]int        `json:"file_types"`
	RecentActivity []*models.ActivityLog `json:"recent_activity"`
}

// Service aggregates the admin dashboard and the audit-trail feed.
type Service struct {
	logger     *slog.Logger
	files      repositories.FileRepository
	users      repositories.UserRepository
	activities repositories.ActivityLogRepository
	storage    *storage.Service
}

func NewService(
	logger *slog.Logger,
	files repositories.FileRepository,
	users repositories.UserRepository,
	activities repositories.ActivityLogRepository,
	store *storage.Service,
) *Service {
	return &Service{
		logger:     logger,
		files:      files,
		users:      users,
		activities: activities,
		storage:    store,
	}
}

// Dashboard builds the admin overview.
func (s *Service) Dashboard(ctx context.Context, actor models.Identity) (*Dashboard, error) {
	if !actor.IsAdmin {
		return nil, &domain.ForbiddenError{Message: "Only admins can view the dashboard"}
	}

	all, err := s.files.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{FileTypes: make(map[string]int)}
	now := time.Now()
	for _, rec := range all {
		if rec.IsDir {
			continue
		}
		d.TotalFiles++
		ext := strings.ToLower(filepath.Ext(rec.Filename))
		if ext == "" {
			ext = "other"
		}
		d.FileTypes[ext]++

		if rec.AssignedToID != nil {
			d.AssignedTasks++
			switch {
			case rec.Status == models.StatusDone:
				d.CompletedTasks++
			case rec.DueDate != nil && rec.DueDate.Before(now):
				d.OverdueTasks++
			default:
				d.PendingTasks++
			}
		}
	}

	d.TotalUsers, err = s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	d.FolderUsage, d.StorageBytes, err = s.storage.DiskUsage()
	if err != nil {
		return nil, err
	}

	d.RecentActivity, err = s.activities.List(ctx, 0, 10)
	if err != nil {
		return nil, err
	}
	if d.RecentActivity == nil {
		d.RecentActivity = []*models.ActivityLog{}
	}

	return d, nil
}

// ActivityFeed pages through the audit trail. Admin only.
func (s *Service) ActivityFeed(ctx context.Context, actor models.Identity, skip, limit int) ([]*models.ActivityLog, error) {
	if !actor.IsAdmin {
		return nil, &domain.ForbiddenError{Message: "Only admins can view the activity log"}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	return s.activities.List(ctx, skip, limit)
}
