package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Directory holds user accounts and their public profiles.
type Directory struct {
	db   *sql.DB
	cost int
}

// SignupRequest is the account data supplied at signup.
type SignupRequest struct {
	Username      string
	Email         string
	Password      string
	School        string
	Degree        string
	Program       string
	PossibleDates []model.AvailabilitySlot
}

func (s *SignupRequest) validate() error {
	switch {
	case s.Username == "":
		return model.Validationf("username required")
	case s.Program == "":
		return model.Validationf("program required")
	case s.Degree == "":
		return model.Validationf("degree required")
	case !model.ValidSchool(s.School):
		return model.Validationf("unknown school %q", s.School)
	}
	if err := model.ValidateEmail(s.Email); err != nil {
		return err
	}
	return model.ValidatePassword(s.Password)
}

// Signup creates a user. Duplicate usernames or emails are validation errors.
func (d *Directory) Signup(ctx context.Context, req SignupRequest) (*model.User, error) {
	req.Username = model.NormalizeUsername(req.Username)
	req.Email = model.NormalizeEmail(req.Email)
	if err := req.validate(); err != nil {
		return nil, err
	}

	hash, err := d.hash(req.Password)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = store.RunInTx(ctx, d.db, func(tx *sql.Tx) error {
		if existing, err := store.GetUserByEmail(ctx, tx, req.Email); err != nil {
			return err
		} else if existing != nil {
			return model.Validationf("email already registered")
		}
		if existing, err := store.GetUserByUsername(ctx, tx, req.Username); err != nil {
			return err
		} else if existing != nil {
			return model.Validationf("username already taken")
		}

		user, err = store.CreateUser(ctx, tx, &model.User{
			Username:      req.Username,
			Email:         req.Email,
			PasswordHash:  hash,
			Profile:       model.Profile{School: req.School, Degree: req.Degree, Program: req.Program},
			PossibleDates: req.PossibleDates,
		})
		if store.IsUniqueViolation(err, "") {
			return model.Validationf("username or email already registered")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user signed up", "user", user.Username, "id", user.ID)
	return user, nil
}

// dummyHash is compared against when the email is unknown so that failed
// logins take the same time either way. Computed on first use.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return hash
})

// Login checks credentials. Unknown emails and wrong passwords both yield
// the same auth error.
func (d *Directory) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := store.GetUserByEmail(ctx, d.db, model.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	var hash []byte
	if user != nil {
		hash = []byte(user.PasswordHash)
	} else {
		hash = dummyHash()
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || user == nil {
		return nil, model.Authf("invalid email or password")
	}
	return user, nil
}

// GetUser returns a user by ID.
func (d *Directory) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return requireUser(ctx, d.db, id)
}

// ChangePassword replaces a user's password after checking the current one.
func (d *Directory) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := requireUser(ctx, d.db, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return model.Authf("current password is incorrect")
	}
	if err := model.ValidatePassword(next); err != nil {
		return err
	}

	hash, err := d.hash(next)
	if err != nil {
		return err
	}
	if err := store.UpdateUserPassword(ctx, d.db, userID, hash); err != nil {
		return err
	}

	slog.Info("user changed own password", "user", user.Username)
	return nil
}

func (d *Directory) hash(password string) (string, error) {
	cost := d.cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", model.Validationf("password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
