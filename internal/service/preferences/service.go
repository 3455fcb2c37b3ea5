package preferences

import (
	"context"
	"log/slog"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

// Service stores per-user view preferences. Missing rows read as the
// defaults; the row is only written once the user changes something.
type Service struct {
	logger *slog.Logger
	prefs  repositories.UserPreferencesRepository
}

func NewService(logger *slog.Logger, prefs repositories.UserPreferencesRepository) *Service {
	return &Service{logger: logger, prefs: prefs}
}

// Get returns the user's preferences, or the defaults if none are stored.
func (s *Service) Get(ctx context.Context, userID int64) (*models.UserPreferences, error) {
	stored, err := s.prefs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return models.DefaultPreferences(userID), nil
	}
	return stored, nil
}

// Update merges the changed fields over the current (or default) values and
// upserts the row.
func (s *Service) Update(ctx context.Context, userID int64, upd *models.UserPreferencesUpdate) (*models.UserPreferences, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.ViewMode != nil {
		current.ViewMode = *upd.ViewMode
	}
	if upd.VisibleColumns != nil {
		current.VisibleColumns = *upd.VisibleColumns
	}
	if upd.SortKey != nil {
		current.SortKey = *upd.SortKey
	}
	if upd.SortDirection != nil {
		current.SortDirection = *upd.SortDirection
	}
	if upd.Theme != nil {
		current.Theme = *upd.Theme
	}

	if err := s.prefs.Upsert(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}
