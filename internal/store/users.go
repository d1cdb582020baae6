package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

const userColumns = `id, username, email, password_hash, school, degree, program,
	rating, rating_count, possible_dates, created_at`

// CreateUser creates a new user. Rating fields always start at zero.
func CreateUser(ctx context.Context, q DBTX, u *model.User) (*model.User, error) {
	dates := u.PossibleDates
	if dates == nil {
		dates = []model.AvailabilitySlot{}
	}
	datesJSON, err := json.Marshal(dates)
	if err != nil {
		return nil, fmt.Errorf("encoding possible dates: %w", err)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, school, degree, program, possible_dates)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.Profile.School, u.Profile.Degree, u.Profile.Program, string(datesJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q DBTX, id int64) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email address.
func GetUserByEmail(ctx context.Context, q DBTX, email string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username (case-insensitive).
func GetUserByUsername(ctx context.Context, q DBTX, username string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q DBTX, id int64, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// FoldRating folds one rating value into a user's running average in a single
// statement: rating = (rating*count + value)/(count+1), count = count+1.
// Returns false if the user does not exist.
func FoldRating(ctx context.Context, q DBTX, userID int64, value int) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE users
		 SET rating = (rating * rating_count + ?) / (rating_count + 1),
		     rating_count = rating_count + 1
		 WHERE id = ?`,
		float64(value), userID,
	)
	if err != nil {
		return false, fmt.Errorf("folding rating: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("folding rating: %w", err)
	}
	return n == 1, nil
}

func scanUser(row scanner) (*model.User, error) {
	u := &model.User{}
	var dates string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Profile.School, &u.Profile.Degree, &u.Profile.Program,
		&u.Profile.Rating, &u.Profile.RatingCount, &dates, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dates), &u.PossibleDates); err != nil {
		return nil, fmt.Errorf("decoding possible dates: %w", err)
	}
	return u, nil
}
