// Package http provides HTTP handlers for entry synchronization.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kmezhova/everlog/internal/middleware"
	"github.com/kmezhova/everlog/internal/models"
)

// SyncService defines the interface for synchronization operations
// required by the SyncHandler.
type SyncService interface {
	// Sync merges the device's entries and version map with the data store.
	//   ctx:      request context for cancellation and deadlines
	//   deviceID: identifier of the authenticated device
	//   entries:  slice of models.Entry submitted by the client
	//   versions: map of entry ID to version held by the client
	// Returns a map with keys "version" (int64), "entries" ([]models.Entry),
	// "updated" and "skipped" ([]string), or an error if syncing fails.
	Sync(ctx context.Context, deviceID string, entries []models.Entry, versions map[string]int64) (map[string]any, error)
}

// SyncHandler handles HTTP requests for entry synchronization.
type SyncHandler struct {
	SyncService SyncService
}

// Sync handles POST /api/sync requests.
// It decodes a JSON body with "entries" and "versions",
// invokes the SyncService, and writes the resulting map in the envelope.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := middleware.GetDeviceIDFromContext(ctx)

	var req struct {
		Entries  []models.Entry   `json:"entries"`
		Versions map[string]int64 `json:"versions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	result, err := h.SyncService.Sync(ctx, deviceID, req.Entries, req.Versions)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sync_failed")
		return
	}

	writeSuccess(w, result)
}
