package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id             INTEGER PRIMARY KEY,
    username       TEXT NOT NULL COLLATE NOCASE UNIQUE,
    email          TEXT NOT NULL UNIQUE,
    password_hash  TEXT NOT NULL,
    school         TEXT NOT NULL DEFAULT '' CHECK (school IN ('', 'TMU', 'UofT', 'Western', 'York')),
    degree         TEXT NOT NULL DEFAULT '',
    program        TEXT NOT NULL DEFAULT '',
    rating         REAL NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5),
    rating_count   INTEGER NOT NULL DEFAULT 0 CHECK (rating_count >= 0),
    possible_dates TEXT NOT NULL DEFAULT '[]',
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id           INTEGER PRIMARY KEY,
    owner_id     INTEGER NOT NULL REFERENCES users(id),
    title        TEXT NOT NULL,
    description  TEXT,
    category     TEXT NOT NULL,
    condition    TEXT NOT NULL CHECK (condition IN ('excellent', 'gently used', 'fair', 'poor')),
    images       TEXT NOT NULL DEFAULT '[]',
    return_by    DATETIME NOT NULL,
    status       TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'unavailable', 'old')),
    requester_id INTEGER REFERENCES users(id),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at   DATETIME,
    CHECK ((status = 'unavailable') = (requester_id IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS loans (
    id           INTEGER PRIMARY KEY,
    item_id      INTEGER NOT NULL REFERENCES items(id),
    owner_id     INTEGER NOT NULL REFERENCES users(id),
    requester_id INTEGER NOT NULL REFERENCES users(id),
    outcome      TEXT NOT NULL DEFAULT 'pending' CHECK (outcome IN ('pending', 'completed', 'cancelled')),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    closed_at    DATETIME,
    CHECK (owner_id <> requester_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_one_pending
    ON loans(item_id) WHERE outcome = 'pending';

CREATE TABLE IF NOT EXISTS ratings (
    id         INTEGER PRIMARY KEY,
    loan_id    INTEGER NOT NULL REFERENCES loans(id),
    item_id    INTEGER NOT NULL REFERENCES items(id),
    rater_id   INTEGER NOT NULL REFERENCES users(id),
    rated_id   INTEGER NOT NULL REFERENCES users(id),
    value      INTEGER NOT NULL CHECK (value BETWEEN 1 AND 5),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (loan_id, rater_id)
);

CREATE TABLE IF NOT EXISTS images (
    ref        TEXT PRIMARY KEY,
    item_id    INTEGER NOT NULL REFERENCES items(id),
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
