// Package repository provides persistence implementations backing the
// sync and admin services.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kmezhova/everlog/internal/models"
)

// PostgresAdminRepository implements feedback and crash triage persistence.
type PostgresAdminRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAdminRepository creates a PostgresAdminRepository with the given
// database connection.
func NewPostgresAdminRepository(db *sql.DB) *PostgresAdminRepository {
	return &PostgresAdminRepository{DB: db}
}

// UpdateFeedbackStatus sets the triage status of one feedback record.
// Returns false when no record with the given ID exists.
func (r *PostgresAdminRepository) UpdateFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE feedback SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return false, fmt.Errorf("update feedback status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListFeedback returns feedback records in the given status, newest first.
func (r *PostgresAdminRepository) ListFeedback(ctx context.Context, status models.FeedbackStatus) ([]models.Feedback, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, message, status, created_at FROM feedback
		 WHERE status = $1 ORDER BY created_at DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []models.Feedback
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.Message, &f.Status, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// InsertCrashReport stores one crash report.
func (r *PostgresAdminRepository) InsertCrashReport(ctx context.Context, c models.CrashReport) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO crash_reports (id, device_id, message, stack, app_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.DeviceID, c.Message, c.Stack, c.AppVersion, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert crash report: %w", err)
	}
	return nil
}

// PurgeExpired deletes soft-deleted entries and old crash reports past the
// given retention windows, returning how many rows each sweep removed.
func (r *PostgresAdminRepository) PurgeExpired(ctx context.Context, entryRetention, crashRetention time.Duration) (int64, int64, error) {
	entryCutoff := time.Now().Add(-entryRetention).Unix()
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM entries WHERE deleted = true AND version < $1`, entryCutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("purge entries: %w", err)
	}
	entriesPurged, _ := res.RowsAffected()

	crashCutoff := time.Now().Add(-crashRetention).UnixMilli()
	res, err = r.DB.ExecContext(ctx,
		`DELETE FROM crash_reports WHERE created_at < $1`, crashCutoff)
	if err != nil {
		return entriesPurged, 0, fmt.Errorf("purge crash reports: %w", err)
	}
	crashesPurged, _ := res.RowsAffected()

	return entriesPurged, crashesPurged, nil
}
