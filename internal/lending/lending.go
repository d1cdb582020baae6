// Package lending is the item lending lifecycle: the catalog of items, the
// request/loan state machine, the rating ledger, and per-user activity views.
//
// All state lives in SQLite. Every transition runs in a single transaction
// whose status write is a compare-and-swap, so concurrent callers acting on
// the same item are serialized by the database rather than by in-process
// locks.
package lending

import (
	"context"
	"database/sql"
	"time"

	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/metrics"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Options configures a Service.
type Options struct {
	// BcryptCost is the password hashing cost; zero selects bcrypt.DefaultCost.
	BcryptCost int
	// Images controls photo processing for uploads.
	Images imaging.Processor
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service bundles the lending components over one database.
type Service struct {
	Users    *Directory
	Items    *Catalog
	Loans    *Engine
	Ratings  *Ledger
	Activity *Activity
}

// New wires the lending components together.
func New(db *sql.DB, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	users := &Directory{db: db, cost: opts.BcryptCost}
	items := &Catalog{db: db, now: now, images: opts.Images}
	ratings := &Ledger{db: db, now: now}
	return &Service{
		Users:    users,
		Items:    items,
		Loans:    &Engine{db: db, catalog: items, ledger: ratings},
		Ratings:  ratings,
		Activity: &Activity{db: db},
	}
}

func requireUser(ctx context.Context, q store.DBTX, id int64) (*model.User, error) {
	u, err := store.GetUser(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, model.NotFoundf("user %d not found", id)
	}
	return u, nil
}

// requireItem returns a live (not deleted) item.
func requireItem(ctx context.Context, q store.DBTX, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, model.NotFoundf("item %d not found", id)
	}
	return item, nil
}

// observe records the outcome of a transition attempt.
func observe(event string, err error) {
	if err == nil {
		metrics.RecordTransition(event, "ok")
		return
	}
	metrics.RecordTransition(event, string(model.KindOf(err)))
}
