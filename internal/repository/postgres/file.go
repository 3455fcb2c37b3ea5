package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

const fileColumns = "id, filename, folder, owner_id, assigned_to_id, instruction, status, created_at, due_date, size, is_dir"

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewFileRepository creates a new file metadata repository
func NewFileRepository(config *RepositoryConfig) repositories.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanFile(row pgx.Row) (*models.FileMetadata, error) {
	var f models.FileMetadata
	err := row.Scan(
		&f.ID,
		&f.Filename,
		&f.Folder,
		&f.OwnerID,
		&f.AssignedToID,
		&f.Instruction,
		&f.Status,
		&f.CreatedAt,
		&f.DueDate,
		&f.Size,
		&f.IsDir,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func collectFiles(rows pgx.Rows) ([]*models.FileMetadata, error) {
	defer rows.Close()

	var files []*models.FileMetadata
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Create inserts a new file record. A (folder, filename) collision is
// reported as *domain.ConflictError carrying the existing record's id so
// callers can treat the race as "someone else already synced it".
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.FileMetadata) error {
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (filename, folder, owner_id, assigned_to_id, instruction, status, created_at, due_date, size, is_dir)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		file.Filename,
		file.Folder,
		file.OwnerID,
		file.AssignedToID,
		file.Instruction,
		file.Status,
		file.CreatedAt,
		file.DueDate,
		file.Size,
		file.IsDir,
	).Scan(&file.ID, &file.CreatedAt)

	if err != nil {
		msg := fmt.Sprintf("file '%s' already exists in this folder", file.Filename)
		if conflict, ok := duplicateToConflict(ctx, err, "file", msg, func(ctx context.Context) (int64, bool) {
			existing, lookupErr := r.GetByFolderAndName(ctx, file.Folder, file.Filename)
			if lookupErr != nil {
				return 0, false
			}
			return existing.ID, true
		}); ok {
			return conflict
		}
		return fmt.Errorf("create file metadata: %w", err)
	}

	return nil
}

// GetByID retrieves a file record by ID
func (r *PostgresFileRepository) GetByID(ctx context.Context, id int64) (*models.FileMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	f, err := scanFile(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "File not found"}
		}
		return nil, fmt.Errorf("get file %d: %w", id, err)
	}
	return f, nil
}

// GetByFolderAndName retrieves a file record by its unique (folder, filename) pair
func (r *PostgresFileRepository) GetByFolderAndName(ctx context.Context, folder, filename string) (*models.FileMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE folder = $1 AND filename = $2`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	f, err := scanFile(executor.QueryRow(ctx, query, folder, filename))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "File not found"}
		}
		return nil, fmt.Errorf("get file %s/%s: %w", folder, filename, err)
	}
	return f, nil
}

// ListByFolder returns all persisted records whose folder equals the given key
func (r *PostgresFileRepository) ListByFolder(ctx context.Context, folder string) ([]*models.FileMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE folder = $1 ORDER BY filename`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, folder)
	if err != nil {
		return nil, fmt.Errorf("list files in folder %q: %w", folder, err)
	}
	return collectFiles(rows)
}

// ListAll returns every persisted file record (used by sync to build the
// known-files set)
func (r *PostgresFileRepository) ListAll(ctx context.Context) ([]*models.FileMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all files: %w", err)
	}
	return collectFiles(rows)
}

// SearchByName performs a case-insensitive substring match on filenames
func (r *PostgresFileRepository) SearchByName(ctx context.Context, q string) ([]*models.FileMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE filename ILIKE $1 ORDER BY filename`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, "%"+escapeLike(q)+"%")
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	return collectFiles(rows)
}

// AdvancedSearch applies the filter set, newest first, with skip/limit.
func (r *PostgresFileRepository) AdvancedSearch(ctx context.Context, filter *models.FileFilter) ([]*models.FileMetadata, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.RestrictToUserID != 0 {
		p := arg(filter.RestrictToUserID)
		conds = append(conds, fmt.Sprintf("(owner_id = %s OR assigned_to_id = %s)", p, p))
	}
	if filter.Query != "" {
		conds = append(conds, "filename ILIKE "+arg("%"+escapeLike(filter.Query)+"%"))
	}
	if filter.Folder != "" {
		conds = append(conds, "folder = "+arg(filter.Folder))
	}
	if filter.Extension != "" {
		conds = append(conds, "filename ILIKE "+arg("%"+escapeLike(filter.Extension)))
	}
	if filter.DateFrom != nil {
		conds = append(conds, "created_at >= "+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		conds = append(conds, "created_at <= "+arg(*filter.DateTo))
	}
	if filter.UploaderID != 0 {
		conds = append(conds, "owner_id = "+arg(filter.UploaderID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.AssignedToID != 0 {
		conds = append(conds, "assigned_to_id = "+arg(filter.AssignedToID))
	}
	if filter.HasDueDate != nil {
		if *filter.HasDueDate {
			conds = append(conds, "due_date IS NOT NULL")
		} else {
			conds = append(conds, "due_date IS NULL")
		}
	}
	if filter.OverdueOnly {
		conds = append(conds, "due_date IS NOT NULL", "due_date < now()", "status <> "+arg(models.StatusDone))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, fileColumns, r.tables.Files)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC OFFSET " + arg(filter.Skip) + " LIMIT " + arg(filter.Limit)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("advanced search: %w", err)
	}
	return collectFiles(rows)
}

// ListAssignedTo returns files assigned to the given user
func (r *PostgresFileRepository) ListAssignedTo(ctx context.Context, userID int64) ([]*models.FileMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE assigned_to_id = $1 ORDER BY created_at DESC`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list files assigned to %d: %w", userID, err)
	}
	return collectFiles(rows)
}

// ListAssigned returns every file that has an assignee
func (r *PostgresFileRepository) ListAssigned(ctx context.Context) ([]*models.FileMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE assigned_to_id IS NOT NULL ORDER BY created_at DESC`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assigned files: %w", err)
	}
	return collectFiles(rows)
}

// Update applies a partial update field-by-field. Only fields the caller
// marked as present reach the SET list; tri-state fields can write NULL.
func (r *PostgresFileRepository) Update(ctx context.Context, id int64, upd *models.FileMetadataUpdate) (*models.FileMetadata, error) {
	var (
		sets []string
		args []interface{}
	)
	set := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Filename != nil {
		set("filename", *upd.Filename)
	}
	if upd.Folder != nil {
		set("folder", *upd.Folder)
	}
	if upd.AssignedToID.Present {
		set("assigned_to_id", upd.AssignedToID.Value)
	}
	if upd.Instruction.Present {
		set("instruction", upd.Instruction.Value)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.DueDate.Present {
		set("due_date", upd.DueDate.Value)
	}
	if upd.Size != nil {
		set("size", *upd.Size)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE %s SET %s WHERE id = $%d
		RETURNING %s
	`, r.tables.Files, strings.Join(sets, ", "), len(args), fileColumns)

	executor := GetExecutor(ctx, r.pool)
	f, err := scanFile(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "File not found"}
		}
		if IsPgDuplicateError(err) {
			return nil, &domain.ConflictError{
				Message:      "a file with that name already exists in the destination folder",
				ResourceType: "file",
			}
		}
		return nil, fmt.Errorf("update file %d: %w", id, err)
	}
	return f, nil
}

// Delete removes a file record; its version rows cascade.
func (r *PostgresFileRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete file %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: "File not found"}
	}
	return nil
}

// DeleteByFolderPrefix removes every record whose folder equals the prefix or
// sits beneath it. Used when a directory tree is deleted.
func (r *PostgresFileRepository) DeleteByFolderPrefix(ctx context.Context, prefix string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE folder = $1 OR folder LIKE $2`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, prefix, escapeLike(prefix)+"/%")
	if err != nil {
		return 0, fmt.Errorf("delete files under %q: %w", prefix, err)
	}
	return tag.RowsAffected(), nil
}

// escapeLike escapes the LIKE wildcards in user-supplied match strings.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
