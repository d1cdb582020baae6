package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertImage stores processed image data under ref.
func InsertImage(ctx context.Context, q DBTX, ref string, itemID int64, data []byte, mime string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO images (ref, item_id, data, mime) VALUES (?, ?, ?, ?)`,
		ref, itemID, data, mime,
	)
	if err != nil {
		return fmt.Errorf("storing image: %w", err)
	}
	return nil
}

// GetImage returns image data and MIME type by reference.
func GetImage(ctx context.Context, q DBTX, ref string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := q.QueryRowContext(ctx,
		`SELECT data, mime FROM images WHERE ref = ?`, ref,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting image: %w", err)
	}
	return data, mime, nil
}
