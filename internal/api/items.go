package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// ItemsHandler handles item listing, search, and the lending transitions.
type ItemsHandler struct {
	Items   *lending.Catalog
	Loans   *lending.Engine
	Ratings *lending.Ledger
	// MaxImageBytes bounds image uploads.
	MaxImageBytes int64
}

type createItemRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	ReturnBy    time.Time `json:"return_by"`
}

type ratingRequest struct {
	Rating *int `json:"rating"`
}

func (req ratingRequest) value() (int, error) {
	if req.Rating == nil {
		return 0, model.Validationf("rating required")
	}
	return *req.Rating, nil
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Items.CreateItem(r.Context(), uid, model.NewItem{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		ReturnBy:    req.ReturnBy,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Search handles GET /api/items/search?q=.
func (h *ItemsHandler) Search(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results, err := h.Items.Search(r.Context(), uid, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, collect(results))
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Items.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Items.DeleteItem(r.Context(), uid, id); err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, messageResponse{Message: "item deleted"})
}

// Request handles POST /api/items/{id}/request.
func (h *ItemsHandler) Request(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	loan, err := h.Loans.RequestItem(r.Context(), id, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, loan)
}

// Complete handles POST /api/items/{id}/complete.
func (h *ItemsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req ratingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	value, err := req.value()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rating, err := h.Loans.CompleteAndRate(r.Context(), id, uid, value)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, rating)
}

// Retire handles POST /api/items/{id}/retire.
func (h *ItemsHandler) Retire(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Loans.Retire(r.Context(), id, uid); err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, messageResponse{Message: "item retired"})
}

// RateLoan handles POST /api/loans/{id}/rating.
func (h *ItemsHandler) RateLoan(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req ratingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	value, err := req.value()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rating, err := h.Ratings.RateLoan(r.Context(), id, uid, value)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, rating)
}

// UploadImage handles PUT /api/items/{id}/images with a multipart "image" field.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := h.MaxImageBytes
	if limit <= 0 {
		limit = 8 << 20
	}
	// Leave room for multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)

	file, _, err := r.FormFile("image")
	if err != nil {
		if isMaxBytes(err) {
			writeError(w, r, model.Validationf("image too large"))
			return
		}
		writeError(w, r, model.Validationf("image file required"))
		return
	}
	defer file.Close()

	ref, err := h.Items.AddImage(r.Context(), uid, id, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]string{"ref": ref})
}

// GetImage handles GET /api/images/{ref}.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Items.Image(r.Context(), r.PathValue("ref"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// References are never reused, so the content never changes.
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write image", "ref", r.PathValue("ref"), "error", err)
	}
}
