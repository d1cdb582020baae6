package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func TestOnePendingLoanPerItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, database, "ana")
	b := createTestUser(t, database, "bor")
	c := createTestUser(t, database, "cid")
	item := createTestItem(t, database, owner.ID, "Calculus")

	loan, err := CreateLoan(ctx, database, item.ID, owner.ID, b.ID)
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if loan.Outcome != model.LoanPending {
		t.Errorf("expected pending loan, got %q", loan.Outcome)
	}

	if _, err := CreateLoan(ctx, database, item.ID, owner.ID, c.ID); !IsUniqueViolation(err, "") {
		t.Errorf("expected unique violation for second pending loan, got %v", err)
	}

	pending, err := GetPendingLoan(ctx, database, item.ID)
	if err != nil || pending == nil || pending.ID != loan.ID {
		t.Fatalf("GetPendingLoan = %v, %v", pending, err)
	}

	ok, err := CloseLoan(ctx, database, loan.ID, model.LoanCompleted)
	if err != nil || !ok {
		t.Fatalf("CloseLoan = %v, %v", ok, err)
	}
	ok, _ = CloseLoan(ctx, database, loan.ID, model.LoanCancelled)
	if ok {
		t.Error("closing a closed loan must fail")
	}

	// After completion a new loan cycle may begin.
	if _, err := CreateLoan(ctx, database, item.ID, owner.ID, c.ID); err != nil {
		t.Errorf("CreateLoan after completion: %v", err)
	}
}

func TestSelfLoanRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, database, "ana")
	item := createTestItem(t, database, owner.ID, "Calculus")

	if _, err := CreateLoan(ctx, database, item.ID, owner.ID, owner.ID); err == nil {
		t.Error("expected CHECK violation for self-loan")
	}
}

func TestListCompletedLoans(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, database, "ana")
	b := createTestUser(t, database, "bor")
	item := createTestItem(t, database, owner.ID, "Calculus")

	loan, _ := CreateLoan(ctx, database, item.ID, owner.ID, b.ID)

	history, _ := ListCompletedLoans(ctx, database, owner.ID, false)
	if len(history) != 0 {
		t.Errorf("pending loans are not history, got %d", len(history))
	}

	CloseLoan(ctx, database, loan.ID, model.LoanCompleted)
	if _, err := InsertRating(ctx, database, model.Rating{
		LoanID: loan.ID, ItemID: item.ID, RaterID: owner.ID, RatedID: b.ID, Value: 5,
	}); err != nil {
		t.Fatalf("InsertRating: %v", err)
	}

	for _, uid := range []int64{owner.ID, b.ID} {
		history, err := ListCompletedLoans(ctx, database, uid, false)
		if err != nil {
			t.Fatalf("ListCompletedLoans: %v", err)
		}
		if len(history) != 1 || history[0].Item.ID != item.ID {
			t.Errorf("user %d: expected one history entry for item, got %+v", uid, history)
		}
		if history[0].Loan.ClosedAt == nil {
			t.Error("completed loan should have closed_at")
		}
	}

	ownerUnrated, _ := ListCompletedLoans(ctx, database, owner.ID, true)
	if len(ownerUnrated) != 0 {
		t.Errorf("owner already rated, got %d unrated", len(ownerUnrated))
	}
	borrowerUnrated, _ := ListCompletedLoans(ctx, database, b.ID, true)
	if len(borrowerUnrated) != 1 {
		t.Errorf("borrower has not rated, got %d unrated", len(borrowerUnrated))
	}
}

func TestRatingsAppendOnly(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, database, "ana")
	b := createTestUser(t, database, "bor")
	item := createTestItem(t, database, owner.ID, "Calculus")
	loan, _ := CreateLoan(ctx, database, item.ID, owner.ID, b.ID)

	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := model.Rating{LoanID: loan.ID, ItemID: item.ID, RaterID: owner.ID, RatedID: b.ID, Value: 4, CreatedAt: stamp}
	if _, err := InsertRating(ctx, database, r); err != nil {
		t.Fatalf("InsertRating: %v", err)
	}
	if _, err := InsertRating(ctx, database, r); !IsUniqueViolation(err, "") {
		t.Errorf("expected unique violation for duplicate rating, got %v", err)
	}

	r.Value = 9
	r.RaterID = b.ID
	r.RatedID = owner.ID
	if _, err := InsertRating(ctx, database, r); err == nil {
		t.Error("expected CHECK violation for out-of-range value")
	}

	rated, _ := HasRated(ctx, database, loan.ID, owner.ID)
	if !rated {
		t.Error("expected owner to have rated")
	}
	rated, _ = HasRated(ctx, database, loan.ID, b.ID)
	if rated {
		t.Error("expected borrower not to have rated")
	}

	received, _ := ListRatingsFor(ctx, database, b.ID)
	if len(received) != 1 || received[0].Value != 4 {
		t.Fatalf("expected one rating of 4, got %+v", received)
	}
	if !received[0].CreatedAt.Equal(stamp) {
		t.Errorf("expected created_at %v, got %v", stamp, received[0].CreatedAt)
	}
}
