// Package http provides the admin edge endpoints: feedback triage, crash
// ingestion, and the scheduled cleanup hook.
package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kmezhova/everlog/internal/models"
	"github.com/kmezhova/everlog/internal/service"
)

// AdminService defines the operations required by the admin handlers.
type AdminService interface {
	// UpdateFeedbackStatus validates and applies a feedback status transition.
	UpdateFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus) error
	// ListFeedback returns feedback records in the given status.
	ListFeedback(ctx context.Context, status models.FeedbackStatus) ([]models.Feedback, error)
	// IngestCrash stores a crash report and returns its assigned ID.
	IngestCrash(ctx context.Context, c models.CrashReport) (string, error)
	// Cleanup purges expired rows, returning removed entry and crash counts.
	Cleanup(ctx context.Context, entryRetention, crashRetention time.Duration) (int64, int64, error)
}

// Retention windows applied by the cleanup endpoint.
const (
	entryRetention = 30 * 24 * time.Hour
	crashRetention = 90 * 24 * time.Hour
)

// AdminHandler handles feedback triage and cleanup requests.
type AdminHandler struct {
	// AdminService performs the underlying triage operations.
	AdminService AdminService
	// CleanupSecret is the exact-match static bearer secret guarding Cleanup.
	CleanupSecret string
}

// UpdateFeedbackStatus handles PATCH /api/admin/feedback/{id}.
// It expects a JSON body with a "status" field naming a known triage state.
func (h *AdminHandler) UpdateFeedbackStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status models.FeedbackStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || id == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	err := h.AdminService.UpdateFeedbackStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "update_failed")
	default:
		writeSuccess(w, nil)
	}
}

// ListFeedback handles GET /api/admin/feedback?status=new.
func (h *AdminHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	status := models.FeedbackStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.FeedbackNew
	}

	records, err := h.AdminService.ListFeedback(r.Context(), status)
	if errors.Is(err, service.ErrInvalidStatus) {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeSuccess(w, records)
}

// Cleanup handles POST /api/admin/cleanup. In addition to the admin token it
// requires the exact static bearer secret the scheduler was provisioned with.
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if h.CleanupSecret == "" ||
		subtle.ConstantTimeCompare([]byte(raw), []byte(h.CleanupSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, crashes, err := h.AdminService.Cleanup(r.Context(), entryRetention, crashRetention)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cleanup_failed")
		return
	}
	writeSuccess(w, map[string]int64{"entriesPurged": entries, "crashesPurged": crashes})
}

// CrashHandler ingests crash reports from devices.
type CrashHandler struct {
	AdminService AdminService
}

// Ingest handles POST /api/crash. The body carries the device's crash report;
// ID and timestamp are assigned server-side.
func (h *CrashHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.CrashReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	id, err := h.AdminService.IngestCrash(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingest_failed")
		return
	}
	writeSuccess(w, map[string]string{"id": id})
}
