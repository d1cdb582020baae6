package lending

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/erazemk/izposoja/internal/metrics"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Engine drives items through the lending state machine:
//
//	available --request--> unavailable --complete--> available
//	available, unavailable --retire--> old
//
// Each call is one transaction. Any failure leaves state unchanged.
type Engine struct {
	db      *sql.DB
	catalog *Catalog
	ledger  *Ledger
}

// RequestItem binds requesterID to an available item and opens a pending
// loan. Of several concurrent requests for the same item exactly one wins;
// the rest get a conflict.
func (e *Engine) RequestItem(ctx context.Context, itemID, requesterID int64) (*model.Loan, error) {
	var loan *model.Loan
	err := store.RunInTx(ctx, e.db, func(tx *sql.Tx) error {
		item, err := requireItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if _, err := requireUser(ctx, tx, requesterID); err != nil {
			return err
		}
		if item.OwnerID == requesterID {
			return model.Validationf("self-request: cannot request your own item")
		}
		if item.Status != model.ItemStatusAvailable {
			return model.Conflictf("item unavailable")
		}

		if err := e.catalog.SetStatus(ctx, tx, itemID, model.ItemStatusAvailable, model.ItemStatusUnavailable, &requesterID); err != nil {
			return err
		}

		loan, err = store.CreateLoan(ctx, tx, itemID, item.OwnerID, requesterID)
		if store.IsUniqueViolation(err, "") {
			return model.Conflictf("item unavailable")
		}
		return err
	})
	observe("request", err)
	if err != nil {
		return nil, err
	}

	slog.Info("item requested", "item", itemID, "requester", requesterID, "loan", loan.ID)
	return loan, nil
}

// CompleteAndRate closes the pending loan on an item, returns the item to
// available, and records the rater's rating of the other party.
func (e *Engine) CompleteAndRate(ctx context.Context, itemID, raterID int64, value int) (*model.Rating, error) {
	if err := model.ValidateRating(value); err != nil {
		observe("complete", err)
		return nil, err
	}

	var rating *model.Rating
	err := store.RunInTx(ctx, e.db, func(tx *sql.Tx) error {
		if _, err := requireItem(ctx, tx, itemID); err != nil {
			return err
		}
		loan, err := store.GetPendingLoan(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if loan == nil {
			return model.NotFoundf("no pending request for item %d", itemID)
		}
		ratedID, ok := loan.Counterpart(raterID)
		if !ok {
			return model.Validationf("user %d is not a party to this loan", raterID)
		}

		if err := e.catalog.SetStatus(ctx, tx, itemID, model.ItemStatusUnavailable, model.ItemStatusAvailable, nil); err != nil {
			return err
		}
		if ok, err := store.CloseLoan(ctx, tx, loan.ID, model.LoanCompleted); err != nil {
			return err
		} else if !ok {
			return model.Conflictf("loan %d is no longer pending", loan.ID)
		}

		rating, err = e.ledger.Record(ctx, tx, model.Rating{
			LoanID:  loan.ID,
			ItemID:  itemID,
			RaterID: raterID,
			RatedID: ratedID,
			Value:   value,
		})
		return err
	})
	observe("complete", err)
	if err != nil {
		return nil, err
	}

	slog.Info("item returned", "item", itemID, "loan", rating.LoanID,
		"rater", raterID, "rated", rating.RatedID, "rating", value)
	return rating, nil
}

// Retire moves an item to old. Only the owner may retire. A pending loan on
// the item is cancelled. Retiring an item that is already old does nothing.
func (e *Engine) Retire(ctx context.Context, itemID, callerID int64) error {
	changed := false
	err := store.RunInTx(ctx, e.db, func(tx *sql.Tx) error {
		item, err := requireItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.OwnerID != callerID {
			return model.Validationf("only the owner can retire an item")
		}
		if item.Status == model.ItemStatusOld {
			return nil
		}

		changed, err = e.retire(ctx, tx, item)
		return err
	})
	observe("retire", err)
	if err != nil {
		return err
	}

	if changed {
		slog.Info("item retired", "item", itemID, "owner", callerID)
	}
	return nil
}

// retire applies the retirement edge and cancels any pending loan.
func (e *Engine) retire(ctx context.Context, tx store.DBTX, item *model.Item) (bool, error) {
	if err := e.catalog.SetStatus(ctx, tx, item.ID, item.Status, model.ItemStatusOld, nil); err != nil {
		return false, err
	}
	if item.Status != model.ItemStatusUnavailable {
		return true, nil
	}

	loan, err := store.GetPendingLoan(ctx, tx, item.ID)
	if err != nil {
		return false, err
	}
	if loan != nil {
		if _, err := store.CloseLoan(ctx, tx, loan.ID, model.LoanCancelled); err != nil {
			return false, err
		}
		slog.Info("loan cancelled", "loan", loan.ID, "item", item.ID, "requester", loan.RequesterID)
	}
	return true, nil
}

// ExpireOverdue retires available items whose return-by date is before now.
// Items out on loan are left alone. Each item is retired in its own
// transaction; an item that changes state mid-sweep is skipped.
func (e *Engine) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	items, err := store.ListAvailableItems(ctx, e.db, 0)
	if err != nil {
		return 0, err
	}

	retired := 0
	for i := range items {
		item := &items[i]
		if !item.ReturnBy.Before(now) {
			continue
		}
		err := store.RunInTx(ctx, e.db, func(tx *sql.Tx) error {
			_, err := e.retire(ctx, tx, item)
			return err
		})
		observe("expire", err)
		if model.KindOf(err) == model.KindConflict {
			continue
		}
		if err != nil {
			return retired, err
		}
		retired++
		slog.Info("item expired", "item", item.ID, "owner", item.OwnerID, "return_by", item.ReturnBy)
	}

	metrics.RecordExpired(retired)
	return retired, nil
}
