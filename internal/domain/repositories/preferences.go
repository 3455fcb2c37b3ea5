package repositories

import (
	"context"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// UserPreferencesRepository stores per-user view settings.
// GetByUserID returns (nil, nil) when no row exists yet.
type UserPreferencesRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.UserPreferences, error)
	Upsert(ctx context.Context, prefs *models.UserPreferences) error
}
