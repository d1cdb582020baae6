package model

import "time"

// Loan is one loan cycle of an item, from a successful request until the item
// is returned (completed) or retired mid-loan (cancelled).
type Loan struct {
	ID          int64      `json:"id"`
	ItemID      int64      `json:"item_id"`
	OwnerID     int64      `json:"owner_id"`
	RequesterID int64      `json:"requester_id"`
	Outcome     string     `json:"outcome"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// Loan outcomes.
const (
	LoanPending   = "pending"
	LoanCompleted = "completed"
	LoanCancelled = "cancelled"
)

// Counterpart returns the other party of the loan relative to userID, and
// false if userID is not a party.
func (l *Loan) Counterpart(userID int64) (int64, bool) {
	switch userID {
	case l.OwnerID:
		return l.RequesterID, true
	case l.RequesterID:
		return l.OwnerID, true
	}
	return 0, false
}

// Rating is an immutable rating event recorded against a loan.
type Rating struct {
	ID        int64     `json:"id"`
	LoanID    int64     `json:"loan_id"`
	ItemID    int64     `json:"item_id"`
	RaterID   int64     `json:"rater_id"`
	RatedID   int64     `json:"rated_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidateRating checks that v is within [MinRating, MaxRating].
func ValidateRating(v int) error {
	if v < MinRating || v > MaxRating {
		return Validationf("rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// LoanItem pairs a loan with the item it concerns.
type LoanItem struct {
	Loan Loan `json:"loan"`
	Item Item `json:"item"`
}

// Activity is the per-user dashboard view.
type Activity struct {
	Active      []Item     `json:"active"`
	NeedsRating []LoanItem `json:"needs_rating"`
	History     []LoanItem `json:"history"`
}
