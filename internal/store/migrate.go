package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migrations are applied in order; each entry is recorded in schema_migrations.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS charettes (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		metadata JSONB NOT NULL DEFAULT '{}',
		current_phase INTEGER NOT NULL DEFAULT 0 CHECK (current_phase BETWEEN 0 AND 5),
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		charette_id TEXT NOT NULL REFERENCES charettes(id) ON DELETE CASCADE,
		user_name TEXT NOT NULL,
		role TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (charette_id, user_name)
	)`,
	`CREATE TABLE IF NOT EXISTS breakout_rooms (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		charette_id TEXT NOT NULL REFERENCES charettes(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		questions JSONB NOT NULL DEFAULT '[]',
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS room_members (
		charette_id TEXT NOT NULL REFERENCES charettes(id) ON DELETE CASCADE,
		room_id TEXT NOT NULL REFERENCES breakout_rooms(id) ON DELETE CASCADE,
		user_name TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (charette_id, user_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_charettes_created ON charettes(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_rooms_charette ON breakout_rooms(charette_id, position)`,
}

// RunMigrations applies pending schema migrations to the database.
func RunMigrations(databaseURL string) error {
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied int
	if err := conn.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&applied); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := applied; i < len(migrations); i++ {
		version := i + 1
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, migrations[i]); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d: %w", version, err)
		}
	}
	return nil
}
