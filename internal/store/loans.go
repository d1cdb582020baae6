package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

const loanColumns = `l.id, l.item_id, l.owner_id, l.requester_id, l.outcome, l.created_at, l.closed_at`

// CreateLoan records a pending loan. The partial unique index on
// loans(item_id) rejects a second pending loan for the same item.
func CreateLoan(ctx context.Context, q DBTX, itemID, ownerID, requesterID int64) (*model.Loan, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO loans (item_id, owner_id, requester_id) VALUES (?, ?, ?)`,
		itemID, ownerID, requesterID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating loan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting loan id: %w", err)
	}

	return GetLoan(ctx, q, id)
}

// GetLoan returns a loan by ID.
func GetLoan(ctx context.Context, q DBTX, id int64) (*model.Loan, error) {
	l, err := scanLoan(q.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans l WHERE l.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return l, nil
}

// GetPendingLoan returns the pending loan of an item, if any.
func GetPendingLoan(ctx context.Context, q DBTX, itemID int64) (*model.Loan, error) {
	l, err := scanLoan(q.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans l WHERE l.item_id = ? AND l.outcome = ?`,
		itemID, model.LoanPending,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting pending loan: %w", err)
	}
	return l, nil
}

// CloseLoan moves a pending loan to a terminal outcome. Returns false if the
// loan was not pending.
func CloseLoan(ctx context.Context, q DBTX, id int64, outcome string) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE loans SET outcome = ?, closed_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND outcome = ?`,
		outcome, id, model.LoanPending,
	)
	if err != nil {
		return false, fmt.Errorf("closing loan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("closing loan: %w", err)
	}
	return n == 1, nil
}

// ListCompletedLoans returns completed loans in which userID was owner or
// requester, most recent first, each joined with its item. If unratedOnly is
// set, loans the user has already rated are skipped.
func ListCompletedLoans(ctx context.Context, q DBTX, userID int64, unratedOnly bool) ([]model.LoanItem, error) {
	query := `SELECT ` + loanColumns + `, ` + itemSelectColumns + `
	          FROM loans l
	          JOIN items i ON i.id = l.item_id
	          JOIN users u ON u.id = i.owner_id
	          WHERE l.outcome = ? AND (l.owner_id = ? OR l.requester_id = ?)`
	args := []any{model.LoanCompleted, userID, userID}

	if unratedOnly {
		query += ` AND NOT EXISTS (SELECT 1 FROM ratings r WHERE r.loan_id = l.id AND r.rater_id = ?)`
		args = append(args, userID)
	}

	query += ` ORDER BY l.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing completed loans: %w", err)
	}
	defer rows.Close()

	var out []model.LoanItem
	for rows.Next() {
		var li model.LoanItem
		if err := scanLoanItem(rows, &li); err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

func scanLoan(row scanner) (*model.Loan, error) {
	l := &model.Loan{}
	err := row.Scan(&l.ID, &l.ItemID, &l.OwnerID, &l.RequesterID, &l.Outcome, &l.CreatedAt, &l.ClosedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func scanLoanItem(row scanner, li *model.LoanItem) error {
	var f itemFields
	dest := []any{&li.Loan.ID, &li.Loan.ItemID, &li.Loan.OwnerID, &li.Loan.RequesterID,
		&li.Loan.Outcome, &li.Loan.CreatedAt, &li.Loan.ClosedAt}
	dest = append(dest, f.dest(&li.Item)...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	return f.apply(&li.Item)
}
