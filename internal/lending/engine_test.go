package lending

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func requireInvariant(t *testing.T, svc *Service, itemID int64) *model.Item {
	t.Helper()
	item, err := store.GetItem(context.Background(), svc.Items.db, itemID)
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, item.Status == model.ItemStatusUnavailable, item.RequesterID != nil,
		"status %s with requester %v", item.Status, item.RequesterID)
	return item
}

func TestRequestItem(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := signup(t, svc, "ana")
	borrower := signup(t, svc, "bor")
	item := listItem(t, svc, owner.ID, "Calculus", "textbooks", "")

	loan, err := svc.Loans.RequestItem(ctx, item.ID, borrower.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanPending, loan.Outcome)
	assert.Equal(t, owner.ID, loan.OwnerID)
	assert.Equal(t, borrower.ID, loan.RequesterID)

	got := requireInvariant(t, svc, item.ID)
	assert.Equal(t, model.ItemStatusUnavailable, got.Status)
	assert.Equal(t, borrower.ID, *got.RequesterID)

	third := signup(t, svc, "cid")
	_, err = svc.Loans.RequestItem(ctx, item.ID, third.ID)
	assert.ErrorIs(t, err, model.ErrConflict)
	requireInvariant(t, svc, item.ID)
}

func TestRequestItemErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := signup(t, svc, "ana")
	borrower := signup(t, svc, "bor")
	item := listItem(t, svc, owner.ID, "Calculus", "textbooks", "")

	_, err := svc.Loans.RequestItem(ctx, item.ID, owner.ID)
	assert.ErrorIs(t, err, model.ErrValidation, "self-request")

	_, err = svc.Loans.RequestItem(ctx, 999, borrower.ID)
	assert.ErrorIs(t, err, model.ErrNotFound, "unknown item")

	_, err = svc.Loans.RequestItem(ctx, item.ID, 999)
	assert.ErrorIs(t, err, model.ErrNotFound, "unknown requester")

	// Self-request stays a validation error even once the item is out.
	_, err = svc.Loans.RequestItem(ctx, item.ID, borrower.ID)
	require.NoError(t, err)
	_, err = svc.Loans.RequestItem(ctx, item.ID, owner.ID)
	assert.ErrorIs(t, err, model.ErrValidation)

	got := requireInvariant(t, svc, item.ID)
	assert.Equal(t, borrower.ID, *got.RequesterID, "failed requests leave state unchanged")
}

func TestConcurrentRequestsExactlyOneWins(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := signup(t, svc, "owner")
	item := listItem(t, svc, owner.ID, "Calculus", "textbooks", "")

	const n = 12
	requesters := make([]*model.User, n)
	for i := range requesters {
		requesters[i] = signup(t, svc, fmt.Sprintf("user%d", i))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []int64
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for _, u := range requesters {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			<-start
			_, err := svc.Loans.RequestItem(ctx, item.ID, uid)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, uid)
			case model.KindOf(err) == model.KindConflict:
				conflicts++
			default:
				others = append(others, err)
			}
		}(u.ID)
	}
	close(start)
	wg.Wait()

	require.Empty(t, others)
	require.Len(t, winners, 1)
	assert.Equal(t, n-1, conflicts)

	got := requireInvariant(t, svc, item.ID)
	assert.Equal(t, winners[0], *got.RequesterID)
}

func TestCompleteAndRateErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := signup(t, svc, "ana")
	borrower := signup(t, svc, "bor")
	stranger := signup(t, svc, "cid")
	item := listItem(t, svc, owner.ID, "Calculus", "textbooks", "")

	_, err := svc.Loans.CompleteAndRate(ctx, item.ID, owner.ID, 5)
	assert.ErrorIs(t, err, model.ErrNotFound, "no pending request")

	_, err = svc.Loans.CompleteAndRate(ctx, 999, owner.ID, 5)
	assert.ErrorIs(t, err, model.ErrNotFound, "unknown item")

	_, err = svc.Loans.RequestItem(ctx, item.ID, borrower.ID)
	require.NoError(t, err)

	for _, v := range []int{0, 6, -1} {
		_, err = svc.Loans.CompleteAndRate(ctx, item.ID, owner.ID, v)
		assert.ErrorIs(t, err, model.ErrValidation, "rating %d", v)
	}

	_, err = svc.Loans.CompleteAndRate(ctx, item.ID, stranger.ID, 5)
	assert.ErrorIs(t, err, model.ErrValidation, "non-party rater")

	got := requireInvariant(t, svc, item.ID)
	assert.Equal(t, model.ItemStatusUnavailable, got.Status, "failed completions leave state unchanged")
}

func TestLendingScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := signup(t, svc, "ana")
	b := signup(t, svc, "bor")

	item := listItem(t, svc, a.ID, "Calculus", "textbooks", "")
	assert.Equal(t, model.ItemStatusAvailable, item.Status)

	loan, err := svc.Loans.RequestItem(ctx, item.ID, b.ID)
	require.NoError(t, err)
	got := requireInvariant(t, svc, item.ID)
	assert.Equal(t, model.ItemStatusUnavailable, got.Status)
	assert.Equal(t, b.ID, *got.RequesterID)

	rating, err := svc.Loans.CompleteAndRate(ctx, item.ID, a.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, b.ID, rating.RatedID, "owner rates the requester")
	assert.Equal(t, loan.ID, rating.LoanID)

	got = requireInvariant(t, svc, item.ID)
	assert.Equal(t, model.ItemStatusAvailable, got.Status)
	assert.Nil(t, got.RequesterID)

	rated, err := svc.Users.GetUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, rated.Profile.Rating)
	assert.Equal(t, 1, rated.Profile.RatingCount)

	history, err := svc.Activity.History(ctx, a.ID)
	require.NoError(t, err)
	var historyItems []int64
	for li := range history {
		historyItems = append(historyItems, li.Item.ID)
	}
	assert.Equal(t, []int64{item.ID}, historyItems)

	// The item can be lent again.
	_, err = svc.Loans.RequestItem(ctx, item.ID, b.ID)
	assert.NoError(t, err)
}

func TestRequesterCanComplete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := signup(t, svc, "ana")
	b := signup(t, svc, "bor")
	item := listItem(t, svc, a.ID, "Calculus", "textbooks", "")

	_, err := svc.Loans.RequestItem(ctx, item.ID, b.ID)
	require.NoError(t, err)

	rating, err := svc.Loans.CompleteAndRate(ctx, item.ID, b.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, a.ID, rating.RatedID, "requester rates the owner")

	owner, _ := svc.Users.GetUser(ctx, a.ID)
	assert.Equal(t, 3.0, owner.Profile.Rating)
}

func TestRetire(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := signup(t, svc, "ana")
	borrower := signup(t, svc, "bor")
	item := listItem(t, svc, owner.ID, "Calculus", "textbooks", "")

	assert.ErrorIs(t, svc.Loans.Retire(ctx, item.ID, borrower.ID), model.ErrValidation)
	assert.ErrorIs(t, svc.Loans.Retire(ctx, 999, owner.ID), model.ErrNotFound)

	require.NoError(t, svc.Loans.Retire(ctx, item.ID, owner.ID))
	got := requireInvariant(t, svc, item.ID)
	assert.Equal(t, model.ItemStatusOld, got.Status)
	updated := got.UpdatedAt

	// Retiring again is a no-op.
	require.NoError(t, svc.Loans.Retire(ctx, item.ID, owner.ID))
	got = requireInvariant(t, svc, item.ID)
	assert.Equal(t, model.ItemStatusOld, got.Status)
	assert.Equal(t, updated, got.UpdatedAt)

	_, err := svc.Loans.RequestItem(ctx, item.ID, borrower.ID)
	assert.ErrorIs(t, err, model.ErrConflict, "old is terminal")
}

func TestRetireCancelsPendingLoan(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := signup(t, svc, "ana")
	borrower := signup(t, svc, "bor")
	item := listItem(t, svc, owner.ID, "Calculus", "textbooks", "")

	loan, err := svc.Loans.RequestItem(ctx, item.ID, borrower.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Loans.Retire(ctx, item.ID, owner.ID))
	got := requireInvariant(t, svc, item.ID)
	assert.Equal(t, model.ItemStatusOld, got.Status)
	assert.Nil(t, got.RequesterID)

	closed, err := store.GetLoan(ctx, svc.Loans.db, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanCancelled, closed.Outcome)
	assert.NotNil(t, closed.ClosedAt)

	active, err := svc.Activity.ActiveRequests(ctx, borrower.ID)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(active))

	_, err = svc.Loans.CompleteAndRate(ctx, item.ID, owner.ID, 5)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestExpireOverdue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := signup(t, svc, "ana")
	borrower := signup(t, svc, "bor")

	create := func(title string, returnIn time.Duration) *model.Item {
		item, err := svc.Items.CreateItem(ctx, owner.ID, model.NewItem{
			Title: title, Category: "misc", Condition: model.ConditionFair,
			ReturnBy: testNow.Add(returnIn),
		})
		require.NoError(t, err)
		return item
	}
	overdue := create("Overdue", 24*time.Hour)
	onLoan := create("On loan", 24*time.Hour)
	fresh := create("Fresh", 60*24*time.Hour)

	_, err := svc.Loans.RequestItem(ctx, onLoan.ID, borrower.ID)
	require.NoError(t, err)

	n, err := svc.Loans.ExpireOverdue(ctx, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, model.ItemStatusOld, requireInvariant(t, svc, overdue.ID).Status)
	assert.Equal(t, model.ItemStatusUnavailable, requireInvariant(t, svc, onLoan.ID).Status)
	assert.Equal(t, model.ItemStatusAvailable, requireInvariant(t, svc, fresh.ID).Status)

	n, err = svc.Loans.ExpireOverdue(ctx, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "a second sweep finds nothing")
}
