package repositories

import (
	"context"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// ActivityLogRepository stores the audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	List(ctx context.Context, skip, limit int) ([]*models.ActivityLog, error)
}
