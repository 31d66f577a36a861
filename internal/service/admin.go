package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kmezhova/everlog/internal/models"
)

// ErrInvalidStatus is returned when a feedback status transition names an
// unknown status value.
var ErrInvalidStatus = errors.New("invalid feedback status")

// ErrNotFound is returned when the targeted record does not exist.
var ErrNotFound = errors.New("record not found")

// AdminRepository defines the persistence operations needed by the AdminService.
type AdminRepository interface {
	// UpdateFeedbackStatus sets the triage status; false when the ID is unknown.
	UpdateFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus) (bool, error)
	// ListFeedback returns feedback in the given status, newest first.
	ListFeedback(ctx context.Context, status models.FeedbackStatus) ([]models.Feedback, error)
	// InsertCrashReport stores one crash report.
	InsertCrashReport(ctx context.Context, c models.CrashReport) error
	// PurgeExpired removes expired soft-deleted entries and old crash reports.
	PurgeExpired(ctx context.Context, entryRetention, crashRetention time.Duration) (int64, int64, error)
}

// AdminService implements feedback triage, crash ingestion, and cleanup.
type AdminService struct {
	repo AdminRepository
}

// NewAdminService constructs an AdminService with the provided repository.
func NewAdminService(repo AdminRepository) *AdminService {
	return &AdminService{repo: repo}
}

// UpdateFeedbackStatus validates and applies a feedback status transition.
// An unknown status yields ErrInvalidStatus; an unknown ID yields ErrNotFound.
func (s *AdminService) UpdateFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus) error {
	if !models.ValidFeedbackStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	found, err := s.repo.UpdateFeedbackStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// ListFeedback returns feedback records in the given status.
func (s *AdminService) ListFeedback(ctx context.Context, status models.FeedbackStatus) ([]models.Feedback, error) {
	if !models.ValidFeedbackStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.repo.ListFeedback(ctx, status)
}

// IngestCrash assigns the report an ID and timestamp and stores it.
// Returns the assigned ID.
func (s *AdminService) IngestCrash(ctx context.Context, c models.CrashReport) (string, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UnixMilli()
	if err := s.repo.InsertCrashReport(ctx, c); err != nil {
		return "", err
	}
	return c.ID, nil
}

// Cleanup purges expired rows and returns the removed row counts.
func (s *AdminService) Cleanup(ctx context.Context, entryRetention, crashRetention time.Duration) (int64, int64, error) {
	return s.repo.PurgeExpired(ctx, entryRetention, crashRetention)
}
