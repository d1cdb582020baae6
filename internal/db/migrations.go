package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: owner and requester lookups back the activity views.
	`CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_requester ON items(requester_id) WHERE requester_id IS NOT NULL`,

	// Migration 2: loan history per participant.
	`CREATE INDEX IF NOT EXISTS idx_loans_owner ON loans(owner_id, outcome)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_requester ON loans(requester_id, outcome)`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
