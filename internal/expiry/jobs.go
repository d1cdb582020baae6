package expiry

import (
	"context"
	"database/sql"
	"time"

	"github.com/erazemk/izposoja/internal/store"
)

// Expirer retires available items past their return-by date.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// OverdueItems is the job that retires overdue, unloaned items.
func OverdueItems(e Expirer) Job {
	return Job{Name: "expire-overdue-items", Run: e.ExpireOverdue}
}

// RevokedTokens is the job that prunes revocations of tokens that have
// expired on their own.
func RevokedTokens(db *sql.DB) Job {
	return Job{
		Name: "purge-revoked-tokens",
		Run: func(ctx context.Context, now time.Time) (int, error) {
			n, err := store.PurgeRevokedTokens(ctx, db, now)
			return int(n), err
		},
	}
}
