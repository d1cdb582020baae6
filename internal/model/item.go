package model

import "time"

// Item is a single physical item listed by its owner for lending.
type Item struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Condition   string     `json:"condition"`
	Images      []string   `json:"images"`
	ReturnBy    time.Time  `json:"return_by"`
	Status      string     `json:"status"`
	RequesterID *int64     `json:"requester_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	Owner *OwnerSummary `json:"owner,omitempty"`
}

// Item statuses.
const (
	ItemStatusAvailable   = "available"
	ItemStatusUnavailable = "unavailable"
	ItemStatusOld         = "old"
)

// Item conditions.
const (
	ConditionExcellent  = "excellent"
	ConditionGentlyUsed = "gently used"
	ConditionFair       = "fair"
	ConditionPoor       = "poor"
)

// ValidCondition reports whether c is one of the allowed conditions.
func ValidCondition(c string) bool {
	switch c {
	case ConditionExcellent, ConditionGentlyUsed, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// NewItem holds the caller-supplied fields of an item being listed. Images
// are attached afterwards through the upload endpoint.
type NewItem struct {
	Title       string
	Description string
	Category    string
	Condition   string
	ReturnBy    time.Time
}

// Validate checks required fields. now is used to reject return-by dates in
// the past.
func (n NewItem) Validate(now time.Time) error {
	switch {
	case n.Title == "":
		return Validationf("title required")
	case n.Category == "":
		return Validationf("category required")
	case n.Condition == "":
		return Validationf("condition required")
	case !ValidCondition(n.Condition):
		return Validationf("invalid condition %q", n.Condition)
	case n.ReturnBy.IsZero():
		return Validationf("return-by date required")
	case !n.ReturnBy.After(now):
		return Validationf("return-by date must be in the future")
	}
	return nil
}

// Deletable reports whether the item may be removed by its owner.
func (i *Item) Deletable() bool {
	return i.Status == ItemStatusAvailable || i.Status == ItemStatusOld
}
