package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/metrics"
)

// Options configures the router.
type Options struct {
	// AuthLimiter throttles signup and login; nil disables throttling.
	AuthLimiter   *RateLimiter
	MaxImageBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *lending.Service, db *sql.DB, tokens *auth.Tokens, opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Users: svc.Users, DB: db, Tokens: tokens}
	usersHandler := &UsersHandler{Users: svc.Users, Items: svc.Items}
	itemsHandler := &ItemsHandler{
		Items:         svc.Items,
		Loans:         svc.Loans,
		Ratings:       svc.Ratings,
		MaxImageBytes: opts.MaxImageBytes,
	}
	activityHandler := &ActivityHandler{Activity: svc.Activity}

	authMW := AuthMiddleware(tokens, db)
	throttle := func(h http.Handler) http.Handler { return h }
	if opts.AuthLimiter != nil {
		throttle = opts.AuthLimiter.Handler
	}

	// Public: signup, login, ops.
	mux.Handle("POST /api/auth/signup", throttle(http.HandlerFunc(authHandler.Signup)))
	mux.Handle("POST /api/auth/login", throttle(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "", "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users.
	mux.Handle("GET /api/users/{id}", authMW(http.HandlerFunc(usersHandler.Get)))
	mux.Handle("GET /api/users/{id}/items", authMW(http.HandlerFunc(usersHandler.ListItems)))
	mux.Handle("GET /api/me", authMW(http.HandlerFunc(usersHandler.Me)))

	// Items and lending transitions.
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/search", authMW(http.HandlerFunc(itemsHandler.Search)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("POST /api/items/{id}/request", authMW(http.HandlerFunc(itemsHandler.Request)))
	mux.Handle("POST /api/items/{id}/complete", authMW(http.HandlerFunc(itemsHandler.Complete)))
	mux.Handle("POST /api/items/{id}/retire", authMW(http.HandlerFunc(itemsHandler.Retire)))
	mux.Handle("POST /api/loans/{id}/rating", authMW(http.HandlerFunc(itemsHandler.RateLoan)))

	// Images: upload by owner, public read by reference.
	mux.Handle("PUT /api/items/{id}/images", authMW(http.HandlerFunc(itemsHandler.UploadImage)))
	mux.HandleFunc("GET /api/images/{ref}", itemsHandler.GetImage)

	// Activity views.
	mux.Handle("GET /api/me/requests", authMW(http.HandlerFunc(activityHandler.Requests)))
	mux.Handle("GET /api/me/loaned", authMW(http.HandlerFunc(activityHandler.Loaned)))
	mux.Handle("GET /api/me/needs-rating", authMW(http.HandlerFunc(activityHandler.NeedsRating)))
	mux.Handle("GET /api/me/history", authMW(http.HandlerFunc(activityHandler.History)))
	mux.Handle("GET /api/me/activity", authMW(http.HandlerFunc(activityHandler.Summary)))

	return mux
}
