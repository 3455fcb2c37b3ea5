package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
)

func TestPgErrorPredicates(t *testing.T) {
	dup := &pgconn.PgError{Code: pgUniqueViolation}
	fk := &pgconn.PgError{Code: pgForeignKeyViolation}

	if !IsPgDuplicateError(dup) {
		t.Error("unique violation not detected")
	}
	if !IsPgDuplicateError(fmt.Errorf("insert row: %w", dup)) {
		t.Error("wrapped unique violation not detected")
	}
	if IsPgDuplicateError(fk) {
		t.Error("foreign key violation mistaken for duplicate")
	}
	if !IsPgForeignKeyError(fk) {
		t.Error("foreign key violation not detected")
	}
	if !IsPgNoRowsError(fmt.Errorf("get row: %w", pgx.ErrNoRows)) {
		t.Error("wrapped no-rows not detected")
	}
	if IsPgNoRowsError(dup) {
		t.Error("duplicate mistaken for no-rows")
	}
}

func TestDuplicateToConflict(t *testing.T) {
	ctx := context.Background()
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation})

	conflict, ok := duplicateToConflict(ctx, dup, "file", "already exists",
		func(context.Context) (int64, bool) { return 42, true })
	if !ok {
		t.Fatal("duplicate not converted")
	}
	if conflict.ResourceID != 42 {
		t.Errorf("ResourceID = %d, want 42 (winning row)", conflict.ResourceID)
	}
	if !errors.Is(conflict, domain.ErrConflict) {
		t.Error("conflict does not match ErrConflict")
	}

	// A failed lookup still reports the conflict, just without the id.
	conflict, ok = duplicateToConflict(ctx, dup, "file", "already exists",
		func(context.Context) (int64, bool) { return 0, false })
	if !ok || conflict.ResourceID != 0 {
		t.Errorf("conflict = %+v, ok = %v, want conflict without id", conflict, ok)
	}

	if _, ok := duplicateToConflict(ctx, errors.New("connection reset"), "file", "x", nil); ok {
		t.Error("non-duplicate error converted to conflict")
	}
}
