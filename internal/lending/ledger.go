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

// Ledger is the append-only record of ratings. It is the only writer of a
// user's rating aggregate.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Record appends a rating inside the caller's transaction and folds it into
// the rated user's aggregate. A second rating of the same loan by the same
// rater is a conflict.
func (l *Ledger) Record(ctx context.Context, tx store.DBTX, r model.Rating) (*model.Rating, error) {
	if err := model.ValidateRating(r.Value); err != nil {
		return nil, err
	}
	if r.RaterID == r.RatedID {
		return nil, model.Validationf("users cannot rate themselves")
	}

	r.CreatedAt = l.now().UTC()
	id, err := store.InsertRating(ctx, tx, r)
	if store.IsUniqueViolation(err, "") {
		return nil, model.Conflictf("loan %d already rated by user %d", r.LoanID, r.RaterID)
	}
	if err != nil {
		return nil, err
	}

	if err := l.FoldRating(ctx, tx, r.RatedID, r.Value); err != nil {
		return nil, err
	}

	metrics.RecordRating(r.Value)
	r.ID = id
	return &r, nil
}

// FoldRating applies one rating to a user's running average:
// rating = (rating*count + value)/(count+1), count += 1.
func (l *Ledger) FoldRating(ctx context.Context, q store.DBTX, userID int64, value int) error {
	ok, err := store.FoldRating(ctx, q, userID, value)
	if err != nil {
		return err
	}
	if !ok {
		return model.NotFoundf("user %d not found", userID)
	}
	return nil
}

// HasRated reports whether userID has rated the given loan.
func (l *Ledger) HasRated(ctx context.Context, loanID, userID int64) (bool, error) {
	return store.HasRated(ctx, l.db, loanID, userID)
}

// RateLoan lets the other party of a completed loan add their rating after
// the loan was closed by the first party.
func (l *Ledger) RateLoan(ctx context.Context, loanID, raterID int64, value int) (*model.Rating, error) {
	if err := model.ValidateRating(value); err != nil {
		return nil, err
	}

	var rating *model.Rating
	err := store.RunInTx(ctx, l.db, func(tx *sql.Tx) error {
		loan, err := store.GetLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if loan == nil {
			return model.NotFoundf("loan %d not found", loanID)
		}
		if loan.Outcome != model.LoanCompleted {
			return model.Conflictf("loan %d is %s, not completed", loanID, loan.Outcome)
		}
		ratedID, ok := loan.Counterpart(raterID)
		if !ok {
			return model.Validationf("user %d is not a party to this loan", raterID)
		}

		rating, err = l.Record(ctx, tx, model.Rating{
			LoanID:  loan.ID,
			ItemID:  loan.ItemID,
			RaterID: raterID,
			RatedID: ratedID,
			Value:   value,
		})
		return err
	})
	observe("rate", err)
	if err != nil {
		return nil, err
	}

	slog.Info("loan rated", "loan", loanID, "rater", raterID, "rated", rating.RatedID, "rating", value)
	return rating, nil
}

// RatingsFor returns the ratings a user has received, newest first.
func (l *Ledger) RatingsFor(ctx context.Context, userID int64) ([]model.Rating, error) {
	if _, err := requireUser(ctx, l.db, userID); err != nil {
		return nil, err
	}
	return store.ListRatingsFor(ctx, l.db, userID)
}
