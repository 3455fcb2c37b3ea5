package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

const versionColumns = "id, file_id, version_number, filename, stored_path, size, created_at, created_by_id"

// PostgresFileVersionRepository implements the FileVersionRepository interface
type PostgresFileVersionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewFileVersionRepository creates a new file version repository
func NewFileVersionRepository(config *RepositoryConfig) repositories.FileVersionRepository {
	return &PostgresFileVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanVersion(row pgx.Row) (*models.FileVersion, error) {
	var v models.FileVersion
	err := row.Scan(
		&v.ID,
		&v.FileID,
		&v.VersionNumber,
		&v.Filename,
		&v.StoredPath,
		&v.Size,
		&v.CreatedAt,
		&v.CreatedByID,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a version row. The UNIQUE (file_id, version_number)
// constraint backs up the per-file lock: if two writers somehow allocate the
// same number, one insert fails instead of corrupting the chain.
func (r *PostgresFileVersionRepository) Create(ctx context.Context, version *models.FileVersion) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (file_id, version_number, filename, stored_path, size, created_at, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, r.tables.FileVersions)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		version.FileID,
		version.VersionNumber,
		version.Filename,
		version.StoredPath,
		version.Size,
		version.CreatedAt,
		version.CreatedByID,
	).Scan(&version.ID, &version.CreatedAt)

	if err != nil {
		msg := fmt.Sprintf("version %d already exists for file %d", version.VersionNumber, version.FileID)
		if conflict, ok := duplicateToConflict(ctx, err, "file_version", msg, nil); ok {
			return conflict
		}
		return fmt.Errorf("create file version: %w", err)
	}

	return nil
}

// GetByID retrieves a version row by ID
func (r *PostgresFileVersionRepository) GetByID(ctx context.Context, id int64) (*models.FileVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, versionColumns, r.tables.FileVersions)

	executor := GetExecutor(ctx, r.pool)
	v, err := scanVersion(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "Version not found"}
		}
		return nil, fmt.Errorf("get version %d: %w", id, err)
	}
	return v, nil
}

// ListByFileID returns a file's version chain, newest first
func (r *PostgresFileVersionRepository) ListByFileID(ctx context.Context, fileID int64) ([]*models.FileVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE file_id = $1 ORDER BY version_number DESC`, versionColumns, r.tables.FileVersions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("list versions for file %d: %w", fileID, err)
	}
	defer rows.Close()

	var versions []*models.FileVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version row: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// MaxVersionNumber returns the highest version number for a file, 0 if none
func (r *PostgresFileVersionRepository) MaxVersionNumber(ctx context.Context, fileID int64) (int, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(version_number), 0) FROM %s WHERE file_id = $1`, r.tables.FileVersions)

	var max int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, fileID).Scan(&max); err != nil {
		return 0, fmt.Errorf("max version number for file %d: %w", fileID, err)
	}
	return max, nil
}

// CountByFileID returns how many versions a file has
func (r *PostgresFileVersionRepository) CountByFileID(ctx context.Context, fileID int64) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE file_id = $1`, r.tables.FileVersions)

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, fileID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count versions for file %d: %w", fileID, err)
	}
	return count, nil
}
