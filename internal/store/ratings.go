package store

import (
	"context"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

// InsertRating appends a rating event stamped with r.CreatedAt. The
// (loan_id, rater_id) unique constraint rejects a second rating by the same
// party for the same loan.
func InsertRating(ctx context.Context, q DBTX, r model.Rating) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO ratings (loan_id, item_id, rater_id, rated_id, value, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.LoanID, r.ItemID, r.RaterID, r.RatedID, r.Value, r.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("recording rating: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting rating id: %w", err)
	}
	return id, nil
}

// HasRated reports whether raterID has rated the given loan.
func HasRated(ctx context.Context, q DBTX, loanID, raterID int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ratings WHERE loan_id = ? AND rater_id = ?`, loanID, raterID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking rating: %w", err)
	}
	return count > 0, nil
}

// ListRatingsFor returns ratings received by a user, most recent first.
func ListRatingsFor(ctx context.Context, q DBTX, ratedID int64) ([]model.Rating, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, loan_id, item_id, rater_id, rated_id, value, created_at
		 FROM ratings WHERE rated_id = ? ORDER BY id DESC`, ratedID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing ratings: %w", err)
	}
	defer rows.Close()

	var ratings []model.Rating
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.ID, &r.LoanID, &r.ItemID, &r.RaterID, &r.RatedID, &r.Value, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning rating: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}
