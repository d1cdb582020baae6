package api

import (
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
)

// ActivityHandler serves the caller's dashboard views.
type ActivityHandler struct {
	Activity *lending.Activity
}

// Requests handles GET /api/me/requests.
func (h *ActivityHandler) Requests(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.Activity.ActiveRequests(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, collect(items))
}

// Loaned handles GET /api/me/loaned.
func (h *ActivityHandler) Loaned(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.Activity.LoanedItems(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, collect(items))
}

// NeedsRating handles GET /api/me/needs-rating.
func (h *ActivityHandler) NeedsRating(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	loans, err := h.Activity.NeedsRating(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, collect(loans))
}

// History handles GET /api/me/history.
func (h *ActivityHandler) History(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	loans, err := h.Activity.History(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, collect(loans))
}

// Summary handles GET /api/me/activity.
func (h *ActivityHandler) Summary(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	activity, err := h.Activity.UserActivity(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, activity)
}
