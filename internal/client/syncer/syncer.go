// Package syncer pushes the device's entries to the sync server on an
// interval and folds newer server-side entries back into the local store.
// Newest version wins on both sides.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kmezhova/everlog/internal/models"
	"github.com/kmezhova/everlog/internal/store"
)

const apiSync = "/api/sync"

// Store defines the local persistence operations the syncer needs.
type Store interface {
	// AllEntries returns every stored entry, soft-deleted ones included.
	AllEntries(ctx context.Context) ([]models.Entry, error)
	// GetEntry returns the entry with the given ID, or store.ErrNotFound.
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	// PutEntry upserts a committed entry.
	PutEntry(ctx context.Context, e models.Entry) error
}

// Syncer synchronizes local entries with the server.
type Syncer struct {
	// HTTP is the underlying HTTP client.
	HTTP *http.Client
	// BaseURL is the sync server's base URL without a trailing slash.
	BaseURL string
	// DeviceID identifies this device to the server.
	DeviceID string
	// Store is the local record store.
	Store Store
	// Log receives sync outcomes.
	Log *zap.Logger
}

// Start runs periodic syncs until ctx is cancelled. Failures are logged and
// retried on the next tick; sync is opportunistic, never fatal.
func (s *Syncer) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Sync(ctx); err != nil {
					s.Log.Warn("entry sync failed", zap.Error(err))
				}
			}
		}
	}()
}

// Sync performs one full exchange: push all local entries and versions, then
// apply any server entries newer than what the store holds.
func (s *Syncer) Sync(ctx context.Context) error {
	entries, err := s.Store.AllEntries(ctx)
	if err != nil {
		return fmt.Errorf("read local entries: %w", err)
	}

	versions := make(map[string]int64, len(entries))
	for _, e := range entries {
		versions[e.ID] = e.Version
	}

	payload, _ := json.Marshal(map[string]any{
		"entries":  entries,
		"versions": versions,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+apiSync, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-ID", s.DeviceID)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    struct {
			Entries []models.Entry `json:"entries"`
			Version int64          `json:"version"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode sync response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("sync rejected: %s", result.Error)
	}

	applied := 0
	for _, e := range result.Data.Entries {
		local, err := s.Store.GetEntry(ctx, e.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("read entry %s: %w", e.ID, err)
		}
		if local != nil && local.Version >= e.Version {
			continue
		}
		if err := s.Store.PutEntry(ctx, e); err != nil {
			return fmt.Errorf("apply entry %s: %w", e.ID, err)
		}
		applied++
	}

	s.Log.Info("entry sync complete",
		zap.Int("pushed", len(entries)),
		zap.Int("applied", applied),
		zap.Int64("version", result.Data.Version),
	)
	return nil
}
