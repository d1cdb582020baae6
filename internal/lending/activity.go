package lending

import (
	"context"
	"database/sql"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Activity derives per-user views from catalog and loan state. It never
// writes. Every view is a snapshot taken when it is called; the returned
// sequences can be iterated any number of times.
type Activity struct {
	db *sql.DB
}

// ActiveRequests yields the items userID currently holds or has requested.
func (a *Activity) ActiveRequests(ctx context.Context, userID int64) (iter.Seq[model.Item], error) {
	if _, err := requireUser(ctx, a.db, userID); err != nil {
		return nil, err
	}
	items, err := store.ListItemsByRequester(ctx, a.db, userID)
	if err != nil {
		return nil, err
	}
	return slices.Values(items), nil
}

// LoanedItems yields userID's items that are out with someone else.
func (a *Activity) LoanedItems(ctx context.Context, userID int64) (iter.Seq[model.Item], error) {
	if _, err := requireUser(ctx, a.db, userID); err != nil {
		return nil, err
	}
	items, err := store.ListItemsByOwnerStatus(ctx, a.db, userID, model.ItemStatusUnavailable)
	if err != nil {
		return nil, err
	}
	return slices.Values(items), nil
}

// NeedsRating yields completed loans userID took part in but has not rated.
func (a *Activity) NeedsRating(ctx context.Context, userID int64) (iter.Seq[model.LoanItem], error) {
	loans, err := a.completed(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return slices.Values(loans), nil
}

// History yields completed loans where userID was owner or requester.
func (a *Activity) History(ctx context.Context, userID int64) (iter.Seq[model.LoanItem], error) {
	loans, err := a.completed(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return slices.Values(loans), nil
}

// UserActivity loads the three dashboard views concurrently.
func (a *Activity) UserActivity(ctx context.Context, userID int64) (*model.Activity, error) {
	if _, err := requireUser(ctx, a.db, userID); err != nil {
		return nil, err
	}

	out := &model.Activity{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Active, err = store.ListItemsByRequester(ctx, a.db, userID)
		return err
	})
	g.Go(func() error {
		var err error
		out.NeedsRating, err = store.ListCompletedLoans(ctx, a.db, userID, true)
		return err
	})
	g.Go(func() error {
		var err error
		out.History, err = store.ListCompletedLoans(ctx, a.db, userID, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Keep empty views as [] rather than null on the wire.
	if out.Active == nil {
		out.Active = []model.Item{}
	}
	if out.NeedsRating == nil {
		out.NeedsRating = []model.LoanItem{}
	}
	if out.History == nil {
		out.History = []model.LoanItem{}
	}
	return out, nil
}

func (a *Activity) completed(ctx context.Context, userID int64, unratedOnly bool) ([]model.LoanItem, error) {
	if _, err := requireUser(ctx, a.db, userID); err != nil {
		return nil, err
	}
	return store.ListCompletedLoans(ctx, a.db, userID, unratedOnly)
}
