package api

import (
	"net/http"
	"time"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// UsersHandler serves public profiles and the caller's own record.
type UsersHandler struct {
	Users *lending.Directory
	Items *lending.Catalog
}

// userProfile is the public view of a user; email is withheld.
type userProfile struct {
	ID            int64                    `json:"id"`
	Username      string                   `json:"username"`
	Profile       model.Profile            `json:"profile"`
	PossibleDates []model.AvailabilitySlot `json:"possible_dates"`
	CreatedAt     time.Time                `json:"created_at"`
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, userProfile{
		ID:            user.ID,
		Username:      user.Username,
		Profile:       user.Profile,
		PossibleDates: user.PossibleDates,
		CreatedAt:     user.CreatedAt,
	})
}

// ListItems handles GET /api/users/{id}/items.
func (h *UsersHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.Items.ItemsByOwner(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	jsonResponse(w, http.StatusOK, items)
}

// Me handles GET /api/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Users.GetUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, user)
}
