// Package http provides HTTP routing and middleware configuration
// for the everlog sync and admin service.
package http

import (
	"net/http"

	"github.com/kmezhova/everlog/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the everlog API.
//
// Routes:
//
//	POST  /api/crash                 → crashHandler.Ingest (public)
//	POST  /api/sync                  → syncHandler.Sync (X-Device-ID required)
//	POST  /api/admin/cleanup         → adminHandler.Cleanup (static bearer secret)
//	PATCH /api/admin/feedback/{id}   → adminHandler.UpdateFeedbackStatus (admin token)
//	GET   /api/admin/feedback        → adminHandler.ListFeedback (admin token)
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json") — rejects non-JSON requests
//  2. WithRequestLogging(logger)           — logs incoming requests
//
// Admin routes additionally require an HMAC-signed admin bearer token,
// verified by middleware.AdminAuth.
func NewRouter(
	syncHandler *SyncHandler,
	adminHandler *AdminHandler,
	crashHandler *CrashHandler,
	adminSecret string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Browser preflight for the PWA's admin dashboard
	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		w.WriteHeader(http.StatusNoContent)
	})

	// Mount API routes
	r.Route("/api", func(r chi.Router) {
		// Public endpoint: devices report crashes before they have synced
		r.Post("/crash", crashHandler.Ingest)

		// Protected group: requires a device identity
		r.Group(func(r chi.Router) {
			r.Use(middleware.DeviceAuth)
			r.Post("/sync", syncHandler.Sync)
		})

		r.Route("/admin", func(r chi.Router) {
			// Cleanup authenticates by exact-match static secret instead
			r.Post("/cleanup", adminHandler.Cleanup)

			// Protected group: requires a valid admin token
			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminAuth(adminSecret))
				r.Patch("/feedback/{id}", adminHandler.UpdateFeedbackStatus)
				r.Get("/feedback", adminHandler.ListFeedback)
			})
		})
	})

	return r
}
