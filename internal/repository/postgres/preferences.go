package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

// PostgresUserPreferencesRepository implements the UserPreferencesRepository interface
type PostgresUserPreferencesRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewUserPreferencesRepository creates a new user preferences repository
func NewUserPreferencesRepository(config *RepositoryConfig) repositories.UserPreferencesRepository {
	return &PostgresUserPreferencesRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// GetByUserID retrieves preferences for a user.
// Returns (nil, nil) when no row exists yet - callers fall back to defaults.
func (r *PostgresUserPreferencesRepository) GetByUserID(ctx context.Context, userID int64) (*models.UserPreferences, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, view_mode, visible_columns, sort_key, sort_direction, theme
		FROM %s
		WHERE user_id = $1
	`, r.tables.UserPreferences)

	var prefs models.UserPreferences
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID).Scan(
		&prefs.ID,
		&prefs.UserID,
		&prefs.ViewMode,
		&prefs.VisibleColumns,
		&prefs.SortKey,
		&prefs.SortDirection,
		&prefs.Theme,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user preferences: %w", err)
	}
	return &prefs, nil
}

// Upsert creates or updates the user's preferences row
func (r *PostgresUserPreferencesRepository) Upsert(ctx context.Context, prefs *models.UserPreferences) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, view_mode, visible_columns, sort_key, sort_direction, theme)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			view_mode = EXCLUDED.view_mode,
			visible_columns = EXCLUDED.visible_columns,
			sort_key = EXCLUDED.sort_key,
			sort_direction = EXCLUDED.sort_direction,
			theme = EXCLUDED.theme
		RETURNING id
	`, r.tables.UserPreferences)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		prefs.UserID,
		prefs.ViewMode,
		prefs.VisibleColumns,
		prefs.SortKey,
		prefs.SortDirection,
		prefs.Theme,
	).Scan(&prefs.ID)
	if err != nil {
		return fmt.Errorf("upsert user preferences: %w", err)
	}
	return nil
}
