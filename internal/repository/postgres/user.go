package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

const userColumns = "id, username, hashed_password, is_admin"

// PostgresUserRepository implements the UserRepository interface
type PostgresUserRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(config *RepositoryConfig) repositories.UserRepository {
	return &PostgresUserRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &u.IsAdmin); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (username, hashed_password, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id
	`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, user.Username, user.HashedPassword, user.IsAdmin).Scan(&user.ID)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "Username already registered",
				ResourceType: "user",
			}
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, userColumns, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	u, err := scanUser(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "User not found"}
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetByUsername retrieves a user by username
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE username = $1`, userColumns, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	u, err := scanUser(executor.QueryRow(ctx, query, username))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "User not found"}
		}
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}

// List returns users with optional username substring search
func (r *PostgresUserRepository) List(ctx context.Context, skip, limit int, search string) ([]*models.User, error) {
	var (
		query string
		args  []interface{}
	)
	if search != "" {
		query = fmt.Sprintf(`SELECT %s FROM %s WHERE username ILIKE $1 ORDER BY id OFFSET $2 LIMIT $3`, userColumns, r.tables.Users)
		args = []interface{}{"%" + escapeLike(search) + "%", skip, limit}
	} else {
		query = fmt.Sprintf(`SELECT %s FROM %s ORDER BY id OFFSET $1 LIMIT $2`, userColumns, r.tables.Users)
		args = []interface{}{skip, limit}
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Count returns the total number of users
func (r *PostgresUserRepository) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Users)

	var count int64
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// Update applies a partial user update
func (r *PostgresUserRepository) Update(ctx context.Context, id int64, upd *models.UserUpdate) (*models.User, error) {
	var (
		sets []string
		args []interface{}
	)
	set := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Username != nil {
		set("username", *upd.Username)
	}
	if upd.IsAdmin != nil {
		set("is_admin", *upd.IsAdmin)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d RETURNING %s`,
		r.tables.Users, strings.Join(sets, ", "), len(args), userColumns)

	executor := GetExecutor(ctx, r.pool)
	u, err := scanUser(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "User not found"}
		}
		if IsPgDuplicateError(err) {
			return nil, &domain.ConflictError{Message: "Username already registered", ResourceType: "user"}
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return u, nil
}

// Delete removes a user
func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return &domain.ConflictError{
				Message:      "User still owns files or captured versions; reassign or delete those first",
				ResourceType: "user",
			}
		}
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: "User not found"}
	}
	return nil
}
