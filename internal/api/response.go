package api

import (
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/erazemk/izposoja/internal/model"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string     `json:"error"`
	Kind  model.Kind `json:"kind,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, kind model.Kind, message string) {
	jsonResponse(w, status, errorResponse{Error: message, Kind: kind})
}

// writeError maps a lending error to its HTTP status. Unclassified errors are
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.KindOf(err)
	var status int
	switch kind {
	case model.KindValidation:
		status = http.StatusBadRequest
	case model.KindAuth:
		status = http.StatusUnauthorized
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindConflict:
		status = http.StatusConflict
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", RequestID(r.Context()), "error", err)
		jsonError(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	jsonError(w, status, kind, err.Error())
}

// decodeJSON decodes a JSON request body into the given target. Unknown
// fields and trailing data are rejected as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return model.Validationf("invalid request body: %v", err)
	}
	if dec.More() {
		return model.Validationf("invalid request body: trailing data")
	}
	return nil
}

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Validationf("invalid %s id", name)
	}
	return id, nil
}

// collect materializes a sequence as a non-nil slice, so empty lists encode
// as [] rather than null.
func collect[T any](seq iter.Seq[T]) []T {
	out := slices.Collect(seq)
	if out == nil {
		out = []T{}
	}
	return out
}

var errNotAuthenticated = model.Authf("not authenticated")

// callerID returns the authenticated user's ID.
func callerID(r *http.Request) (int64, error) {
	claims := GetClaims(r.Context())
	if claims == nil {
		return 0, errNotAuthenticated
	}
	return claims.UserID, nil
}

func isMaxBytes(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
