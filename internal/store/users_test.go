package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func createTestUser(t *testing.T, q DBTX, username string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), q, &model.User{
		Username:     username,
		Email:        username + "@torontomu.ca",
		PasswordHash: "hash",
		Profile:      model.Profile{School: model.SchoolTMU, Degree: "BSc", Program: "CS"},
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	slot := model.AvailabilitySlot{
		Location: "Library",
		Slots:    []time.Time{time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)},
	}
	u, err := CreateUser(ctx, database, &model.User{
		Username:      "ana",
		Email:         "ana@torontomu.ca",
		PasswordHash:  "hash",
		Profile:       model.Profile{School: model.SchoolTMU, Degree: "BSc", Program: "CS"},
		PossibleDates: []model.AvailabilitySlot{slot},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Profile.Rating != 0 || u.Profile.RatingCount != 0 {
		t.Errorf("new user rating = %v/%d, want 0/0", u.Profile.Rating, u.Profile.RatingCount)
	}
	if len(u.PossibleDates) != 1 || u.PossibleDates[0].Location != "Library" {
		t.Errorf("possible dates not round-tripped: %+v", u.PossibleDates)
	}

	byEmail, err := GetUserByEmail(ctx, database, "ana@torontomu.ca")
	if err != nil || byEmail == nil || byEmail.ID != u.ID {
		t.Errorf("GetUserByEmail = %v, %v", byEmail, err)
	}

	byName, err := GetUserByUsername(ctx, database, "ANA")
	if err != nil || byName == nil || byName.ID != u.ID {
		t.Errorf("GetUserByUsername should be case-insensitive, got %v, %v", byName, err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	database := db.NewTestDB(t)

	u, err := GetUser(context.Background(), database, 999)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u != nil {
		t.Error("expected nil for unknown user")
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	createTestUser(t, database, "ana")

	_, err := CreateUser(ctx, database, &model.User{
		Username: "other", Email: "ana@torontomu.ca", PasswordHash: "hash",
	})
	if !IsUniqueViolation(err, "users.email") {
		t.Errorf("expected email unique violation, got %v", err)
	}

	_, err = CreateUser(ctx, database, &model.User{
		Username: "Ana", Email: "ana2@torontomu.ca", PasswordHash: "hash",
	})
	if !IsUniqueViolation(err, "users.username") {
		t.Errorf("expected username unique violation, got %v", err)
	}
}

func TestFoldRating(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, database, "ana")

	for _, v := range []int{4, 5, 3} {
		ok, err := FoldRating(ctx, database, u.ID, v)
		if err != nil || !ok {
			t.Fatalf("FoldRating(%d) = %v, %v", v, ok, err)
		}
	}

	got, _ := GetUser(ctx, database, u.ID)
	if got.Profile.Rating != 4.0 {
		t.Errorf("expected rating 4.0, got %v", got.Profile.Rating)
	}
	if got.Profile.RatingCount != 3 {
		t.Errorf("expected rating count 3, got %d", got.Profile.RatingCount)
	}

	ok, err := FoldRating(ctx, database, 999, 5)
	if err != nil {
		t.Fatalf("FoldRating unknown user: %v", err)
	}
	if ok {
		t.Error("expected false for unknown user")
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, database, "ana")

	if err := UpdateUserPassword(ctx, database, u.ID, "new-hash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}

	got, _ := GetUser(ctx, database, u.ID)
	if got.PasswordHash != "new-hash" {
		t.Errorf("expected updated hash, got %q", got.PasswordHash)
	}
}
