package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

// PostgresActivityLogRepository implements the ActivityLogRepository interface
type PostgresActivityLogRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(config *RepositoryConfig) repositories.ActivityLogRepository {
	return &PostgresActivityLogRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts an activity entry
func (r *PostgresActivityLogRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, action, details, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id, timestamp
	`, r.tables.ActivityLogs)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, log.UserID, log.Action, log.Details, log.Timestamp).
		Scan(&log.ID, &log.Timestamp)
	if err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// List returns activity entries, newest first, with the acting username joined
func (r *PostgresActivityLogRepository) List(ctx context.Context, skip, limit int) ([]*models.ActivityLog, error) {
	query := fmt.Sprintf(`
		SELECT a.id, a.user_id, a.action, a.details, a.timestamp, COALESCE(u.username, '')
		FROM %s a
		LEFT JOIN %s u ON u.id = a.user_id
		ORDER BY a.timestamp DESC
		OFFSET $1 LIMIT $2
	`, r.tables.ActivityLogs, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ActivityLog
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Details, &l.Timestamp, &l.Username); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
