package lending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(db.NewTestDB(t), Options{
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return testNow },
	})
}

func signup(t *testing.T, svc *Service, username string) *model.User {
	t.Helper()
	u, err := svc.Users.Signup(context.Background(), SignupRequest{
		Username: username,
		Email:    username + "@torontomu.ca",
		Password: "password123",
		School:   model.SchoolTMU,
		Degree:   "BSc",
		Program:  "Computer Science",
	})
	require.NoError(t, err)
	return u
}

func listItem(t *testing.T, svc *Service, ownerID int64, title, category, description string) *model.Item {
	t.Helper()
	item, err := svc.Items.CreateItem(context.Background(), ownerID, model.NewItem{
		Title:       title,
		Description: description,
		Category:    category,
		Condition:   model.ConditionGentlyUsed,
		ReturnBy:    testNow.Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return item
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{model.ItemStatusAvailable, model.ItemStatusUnavailable, true},
		{model.ItemStatusAvailable, model.ItemStatusOld, true},
		{model.ItemStatusUnavailable, model.ItemStatusAvailable, true},
		{model.ItemStatusUnavailable, model.ItemStatusOld, true},
		{model.ItemStatusOld, model.ItemStatusAvailable, false},
		{model.ItemStatusOld, model.ItemStatusUnavailable, false},
		{model.ItemStatusAvailable, model.ItemStatusAvailable, false},
		{"lost", model.ItemStatusAvailable, false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
