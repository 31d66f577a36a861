// Package service provides business-logic services for entry synchronization
// and admin triage, delegating persistence to repository interfaces.
package service

import (
	"context"

	"github.com/kmezhova/everlog/internal/models"
)

// SyncRepository defines the persistence operations needed by the SyncService.
type SyncRepository interface {
	// EnsureDevice registers the device row if it does not exist yet.
	EnsureDevice(ctx context.Context, deviceID string) error
	// GetMaxVersion returns the highest entry version for the device, 0 if none.
	GetMaxVersion(ctx context.Context, deviceID string) (int64, error)
	// UpsertIfNewer writes only entries newer than the stored rows, returning
	// written and skipped IDs.
	UpsertIfNewer(ctx context.Context, deviceID string, entries []models.Entry) ([]string, []string, error)
	// GetNewerEntries returns entries newer than the client's versions map.
	GetNewerEntries(ctx context.Context, deviceID string, versions map[string]int64) ([]models.Entry, error)
	// DeleteEntries soft-deletes the entries with the given IDs.
	DeleteEntries(ctx context.Context, deviceID string, ids []string) error
}

// SyncService implements synchronization business logic for diary entries.
type SyncService struct {
	// repo is the underlying persistence repository.
	repo SyncRepository
}

// NewSyncService constructs a SyncService with the provided SyncRepository.
func NewSyncService(repo SyncRepository) *SyncService {
	return &SyncService{repo: repo}
}

// Sync merges the client's entries with the data store under
// newest-version-wins semantics: stale client entries are skipped, and any
// server entries newer than the client's versions map come back for the
// client to apply. Returns a map with keys "version" (int64), "entries"
// ([]models.Entry), "updated" and "skipped" ([]string).
func (s *SyncService) Sync(ctx context.Context, deviceID string, entries []models.Entry, versions map[string]int64) (map[string]any, error) {
	if err := s.repo.EnsureDevice(ctx, deviceID); err != nil {
		return nil, err
	}

	updated, skipped, err := s.repo.UpsertIfNewer(ctx, deviceID, entries)
	if err != nil {
		return nil, err
	}

	newer, err := s.repo.GetNewerEntries(ctx, deviceID, versions)
	if err != nil {
		return nil, err
	}

	version, err := s.repo.GetMaxVersion(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"version": version,
		"entries": newer,
		"updated": updated,
		"skipped": skipped,
	}, nil
}

// Delete soft-deletes the specified entries for the device.
func (s *SyncService) Delete(ctx context.Context, deviceID string, ids []string) error {
	return s.repo.DeleteEntries(ctx, deviceID, ids)
}
