package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
)

// Postgres error codes the repositories react to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsPgDuplicateError reports whether err is a unique constraint violation.
func IsPgDuplicateError(err error) bool { return pgErrorCode(err) == pgUniqueViolation }

// IsPgForeignKeyError reports whether err is a foreign key violation.
func IsPgForeignKeyError(err error) bool { return pgErrorCode(err) == pgForeignKeyViolation }

// IsPgNoRowsError reports whether err is pgx's empty-result error.
func IsPgNoRowsError(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// duplicateToConflict converts a unique violation into a ConflictError. The
// optional lookup fetches the winning row's id so callers can adopt it; a
// failed lookup still reports the conflict, just without the id. The bool is
// false when err is not a duplicate.
func duplicateToConflict(ctx context.Context, err error, resourceType, message string, lookup func(context.Context) (int64, bool)) (*domain.ConflictError, bool) {
	if !IsPgDuplicateError(err) {
		return nil, false
	}
	conflict := &domain.ConflictError{Message: message, ResourceType: resourceType}
	if lookup != nil {
		if id, ok := lookup(ctx); ok {
			conflict.ResourceID = id
		}
	}
	return conflict, true
}
