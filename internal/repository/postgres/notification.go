package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

// PostgresNotificationRepository implements the NotificationRepository interface
type PostgresNotificationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(config *RepositoryConfig) repositories.NotificationRepository {
	return &PostgresNotificationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a notification
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, message, type, is_read, is_urgent, created_at, related_file_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		n.UserID, n.Title, n.Message, n.Type, n.IsRead, n.IsUrgent, n.CreatedAt, n.RelatedFileID,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first
func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, skip, limit int) ([]*models.Notification, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, message, type, is_read, is_urgent, created_at, related_file_id
		FROM %s
		WHERE user_id = $1
	`, r.tables.Notifications)
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC OFFSET $2 LIMIT $3"

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.IsUrgent, &n.CreatedAt, &n.RelatedFileID); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// CountUnread returns the number of unread notifications for a user
func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1 AND is_read = FALSE`, r.tables.Notifications)

	var count int64
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	query := fmt.Sprintf(`UPDATE %s SET is_read = TRUE WHERE id = $1 AND user_id = $2`, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: "Notification not found"}
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	query := fmt.Sprintf(`UPDATE %s SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Delete removes one of the user's notifications
func (r *PostgresNotificationRepository) Delete(ctx context.Context, id, userID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: "Notification not found"}
	}
	return nil
}

// DeleteAll clears every notification of the user
func (r *PostgresNotificationRepository) DeleteAll(ctx context.Context, userID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}
