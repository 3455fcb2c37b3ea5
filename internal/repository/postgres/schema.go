package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the application tables if they do not exist yet.
// The unique constraint on (folder, filename) is what makes the listing
// auto-sync race safe: the losing inserter sees a duplicate-key error and
// re-reads instead of creating a second record.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				hashed_password TEXT NOT NULL,
				is_admin BOOLEAN NOT NULL DEFAULT FALSE
			)
		`, tables.Users),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				filename TEXT NOT NULL,
				folder TEXT NOT NULL,
				owner_id BIGINT NOT NULL REFERENCES %s(id),
				assigned_to_id BIGINT REFERENCES %s(id),
				instruction TEXT,
				status TEXT NOT NULL DEFAULT 'Pending',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				due_date TIMESTAMPTZ,
				size BIGINT NOT NULL DEFAULT 0,
				is_dir BOOLEAN NOT NULL DEFAULT FALSE,
				UNIQUE (folder, filename)
			)
		`, tables.Files, tables.Users, tables.Users),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				file_id BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				version_number INTEGER NOT NULL,
				filename TEXT NOT NULL,
				stored_path TEXT NOT NULL,
				size BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				created_by_id BIGINT NOT NULL REFERENCES %s(id),
				UNIQUE (file_id, version_number)
			)
		`, tables.FileVersions, tables.Files, tables.Users),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				type TEXT NOT NULL,
				is_read BOOLEAN NOT NULL DEFAULT FALSE,
				is_urgent BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				related_file_id BIGINT REFERENCES %s(id) ON DELETE SET NULL
			)
		`, tables.Notifications, tables.Users, tables.Files),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL UNIQUE REFERENCES %s(id) ON DELETE CASCADE,
				view_mode TEXT NOT NULL DEFAULT 'grid',
				visible_columns TEXT NOT NULL DEFAULT 'name,size,date,uploader,status',
				sort_key TEXT NOT NULL DEFAULT 'filename',
				sort_direction TEXT NOT NULL DEFAULT 'asc',
				theme TEXT NOT NULL DEFAULT 'system'
			)
		`, tables.UserPreferences, tables.Users),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				action TEXT NOT NULL,
				details TEXT NOT NULL DEFAULT '',
				timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, tables.ActivityLogs, tables.Users),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_folder_idx ON %s (folder)`, tables.Files, tables.Files),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_assigned_idx ON %s (assigned_to_id)`, tables.Files, tables.Files),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_file_idx ON %s (file_id)`, tables.FileVersions, tables.FileVersions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_idx ON %s (user_id, is_read)`, tables.Notifications, tables.Notifications),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_ts_idx ON %s (timestamp DESC)`, tables.ActivityLogs, tables.ActivityLogs),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
