package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

const itemSelectColumns = `i.id, i.owner_id, i.title, i.description, i.category, i.condition,
	i.images, i.return_by, i.status, i.requester_id,
	i.created_at, i.updated_at, i.deleted_at,
	u.username, u.school, u.rating, u.rating_count`

const itemSelect = `SELECT ` + itemSelectColumns + `
	 FROM items i
	 JOIN users u ON u.id = i.owner_id`

// CreateItem creates a new available item owned by ownerID with no images.
func CreateItem(ctx context.Context, q DBTX, ownerID int64, n model.NewItem) (*model.Item, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO items (owner_id, title, description, category, condition, return_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ownerID, n.Title, n.Description, n.Category, n.Condition, n.ReturnBy.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, id)
}

// GetItem returns an item by ID, including soft-deleted items.
func GetItem(ctx context.Context, q DBTX, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItemsByOwner returns all non-deleted items of an owner regardless of status.
func ListItemsByOwner(ctx context.Context, q DBTX, ownerID int64) ([]model.Item, error) {
	return queryItems(ctx, q, "listing items by owner",
		itemSelect+` WHERE i.owner_id = ? AND i.deleted_at IS NULL ORDER BY i.id DESC`, ownerID)
}

// ListItemsByOwnerStatus returns an owner's non-deleted items with the given status.
func ListItemsByOwnerStatus(ctx context.Context, q DBTX, ownerID int64, status string) ([]model.Item, error) {
	return queryItems(ctx, q, "listing items by owner and status",
		itemSelect+` WHERE i.owner_id = ? AND i.status = ? AND i.deleted_at IS NULL ORDER BY i.id DESC`,
		ownerID, status)
}

// ListItemsByRequester returns non-deleted items currently bound to requesterID.
func ListItemsByRequester(ctx context.Context, q DBTX, requesterID int64) ([]model.Item, error) {
	return queryItems(ctx, q, "listing items by requester",
		itemSelect+` WHERE i.requester_id = ? AND i.status = ? AND i.deleted_at IS NULL ORDER BY i.id DESC`,
		requesterID, model.ItemStatusUnavailable)
}

// ListAvailableItems returns non-deleted available items, newest first. Items
// owned by excludeOwnerID are skipped; pass 0 to include all owners.
func ListAvailableItems(ctx context.Context, q DBTX, excludeOwnerID int64) ([]model.Item, error) {
	return queryItems(ctx, q, "listing available items",
		itemSelect+` WHERE i.status = ? AND i.deleted_at IS NULL AND i.owner_id <> ? ORDER BY i.id DESC`,
		model.ItemStatusAvailable, excludeOwnerID)
}

// CompareAndSetStatus moves an item from status `from` to `to` and sets its
// requester, but only if the item is currently in `from` and not deleted.
// Returns false if the item was not in the expected state.
func CompareAndSetStatus(ctx context.Context, q DBTX, id int64, from, to string, requesterID *int64) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET status = ?, requester_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		to, requesterID, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("setting item status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting item status: %w", err)
	}
	return n == 1, nil
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, q DBTX, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// AppendItemImage appends an image reference to an item's image list.
func AppendItemImage(ctx context.Context, q DBTX, id int64, ref string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET images = json_insert(images, '$[#]', ?), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		ref, id,
	)
	if err != nil {
		return fmt.Errorf("appending item image: %w", err)
	}
	return nil
}

func queryItems(ctx context.Context, q DBTX, op, query string, args ...any) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanItem(row scanner) (*model.Item, error) {
	item := &model.Item{}
	var f itemFields
	if err := row.Scan(f.dest(item)...); err != nil {
		return nil, err
	}
	if err := f.apply(item); err != nil {
		return nil, err
	}
	return item, nil
}

// itemFields holds the nullable and encoded columns of an item row until they
// are decoded into the model.
type itemFields struct {
	description sql.NullString
	images      string
	requester   sql.NullInt64
	returnBy    time.Time
}

func (f *itemFields) dest(item *model.Item) []any {
	item.Owner = &model.OwnerSummary{}
	return []any{&item.ID, &item.OwnerID, &item.Title, &f.description, &item.Category, &item.Condition,
		&f.images, &f.returnBy, &item.Status, &f.requester,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt,
		&item.Owner.Username, &item.Owner.School, &item.Owner.Rating, &item.Owner.RatingCount}
}

func (f *itemFields) apply(item *model.Item) error {
	item.Description = f.description.String
	item.ReturnBy = f.returnBy.UTC()
	if f.requester.Valid {
		id := f.requester.Int64
		item.RequesterID = &id
	}
	if err := json.Unmarshal([]byte(f.images), &item.Images); err != nil {
		return fmt.Errorf("decoding images: %w", err)
	}
	return nil
}
