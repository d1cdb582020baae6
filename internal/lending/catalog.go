package lending

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Catalog holds item records and their availability.
type Catalog struct {
	db     *sql.DB
	now    func() time.Time
	images imaging.Processor
}

// CreateItem lists a new available item for ownerID.
func (c *Catalog) CreateItem(ctx context.Context, ownerID int64, n model.NewItem) (*model.Item, error) {
	if err := n.Validate(c.now()); err != nil {
		return nil, err
	}

	var item *model.Item
	err := store.RunInTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := requireUser(ctx, tx, ownerID); err != nil {
			return err
		}
		var err error
		item, err = store.CreateItem(ctx, tx, ownerID, n)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("item listed", "item", item.ID, "owner", ownerID, "title", item.Title)
	return item, nil
}

// GetItem returns a live item by ID.
func (c *Catalog) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return requireItem(ctx, c.db, id)
}

// ItemsByOwner returns every live item of a user regardless of status.
func (c *Catalog) ItemsByOwner(ctx context.Context, userID int64) ([]model.Item, error) {
	if _, err := requireUser(ctx, c.db, userID); err != nil {
		return nil, err
	}
	return store.ListItemsByOwner(ctx, c.db, userID)
}

// SetStatus moves an item along one legal edge inside the caller's
// transaction. requesterID must be set exactly when the target status is
// unavailable. A lost race is reported as a conflict.
func (c *Catalog) SetStatus(ctx context.Context, tx store.DBTX, itemID int64, from, to string, requesterID *int64) error {
	if !CanTransition(from, to) {
		return model.Conflictf("item cannot move from %s to %s", from, to)
	}
	if (to == model.ItemStatusUnavailable) != (requesterID != nil) {
		return model.Validationf("requester must be bound exactly while an item is unavailable")
	}

	ok, err := store.CompareAndSetStatus(ctx, tx, itemID, from, to, requesterID)
	if err != nil {
		return err
	}
	if !ok {
		return model.Conflictf("item %d is no longer %s", itemID, from)
	}
	return nil
}

// DeleteItem soft-deletes an item. Only the owner may delete, and only while
// the item is not on loan.
func (c *Catalog) DeleteItem(ctx context.Context, callerID, id int64) error {
	err := store.RunInTx(ctx, c.db, func(tx *sql.Tx) error {
		item, err := requireItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item.OwnerID != callerID {
			return model.Validationf("only the owner can delete an item")
		}
		if !item.Deletable() {
			return model.Conflictf("item %d is on loan", id)
		}
		return store.DeleteItem(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	slog.Info("item deleted", "item", id, "owner", callerID)
	return nil
}

// AddImage processes an uploaded photo, stores it, and appends its reference
// to the item. Only the owner may add images.
func (c *Catalog) AddImage(ctx context.Context, callerID, itemID int64, r io.Reader) (string, error) {
	photo, err := c.images.Process(r)
	if err != nil {
		return "", err
	}

	ref := uuid.NewString()
	err = store.RunInTx(ctx, c.db, func(tx *sql.Tx) error {
		item, err := requireItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.OwnerID != callerID {
			return model.Validationf("only the owner can add images")
		}
		if err := store.InsertImage(ctx, tx, ref, itemID, photo.Data, photo.MIME); err != nil {
			return err
		}
		return store.AppendItemImage(ctx, tx, itemID, ref)
	})
	if err != nil {
		return "", err
	}

	slog.Info("item image added", "item", itemID, "ref", ref, "bytes", len(photo.Data))
	return ref, nil
}

// Image returns stored image data by reference.
func (c *Catalog) Image(ctx context.Context, ref string) ([]byte, string, error) {
	data, mime, err := store.GetImage(ctx, c.db, ref)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", model.NotFoundf("image %s not found", ref)
	}
	return data, mime, nil
}
