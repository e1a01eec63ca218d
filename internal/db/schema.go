package db

import (
	"context"
	"fmt"
)

// schema is idempotent; Migrate runs it on every start.
//
// Column names match the JSON field names of the records, which is what
// lets repository.Query filters go straight into SQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower ON users (lower(email))`,

	`CREATE TABLE IF NOT EXISTS leads (
		id             TEXT PRIMARY KEY,
		user_id        UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name           TEXT NOT NULL,
		email          TEXT NOT NULL DEFAULT '',
		phone          TEXT NOT NULL DEFAULT '',
		company        TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'New'
			CHECK (status IN ('New', 'Contacted', 'Qualified', 'Proposal', 'Closed')),
		source         TEXT NOT NULL DEFAULT '',
		notes          TEXT NOT NULL DEFAULT '',
		tags           TEXT[] NOT NULL DEFAULT '{}',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_contacted TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS leads_user_created ON leads (user_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS reminders (
		id              TEXT PRIMARY KEY,
		user_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		reminder_date   TIMESTAMPTZ NOT NULL,
		reminder_time   TEXT NOT NULL DEFAULT '',
		priority        TEXT NOT NULL DEFAULT 'medium'
			CHECK (priority IN ('low', 'medium', 'high')),
		lead_id         TEXT,
		completed       BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at    TIMESTAMPTZ,
		repeat_interval TEXT NOT NULL DEFAULT ''
			CHECK (repeat_interval IN ('', 'daily', 'weekly', 'monthly')),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (completed OR completed_at IS NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS reminders_user_date ON reminders (user_id, reminder_date)`,
}

// Migrate creates the tables the Postgres stores expect.
//
// lead_id has no foreign key: deleting a lead leaves its
// reminders in place, pointing at an id that no longer resolves.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	db.logger.Info("schema up to date")
	return nil
}
