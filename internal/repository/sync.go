// Package repository provides persistence implementations backing the
// sync and admin services, using a PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/kmezhova/everlog/internal/models"
)

// PostgresSyncRepository implements entry synchronization operations against
// a PostgreSQL database.
type PostgresSyncRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresSyncRepository creates a PostgresSyncRepository using the
// provided *sql.DB. db must be a valid connection to a PostgreSQL instance.
func NewPostgresSyncRepository(db *sql.DB) *PostgresSyncRepository {
	return &PostgresSyncRepository{DB: db}
}

// EnsureDevice registers the device row if it does not exist yet.
func (s *PostgresSyncRepository) EnsureDevice(ctx context.Context, deviceID string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO devices (id) VALUES ($1) ON CONFLICT DO NOTHING`, deviceID)
	if err != nil {
		return fmt.Errorf("ensure device: %w", err)
	}
	return nil
}

// GetMaxVersion retrieves the highest version number of all live entries
// belonging to the given device. If no entries exist, it returns 0.
func (s *PostgresSyncRepository) GetMaxVersion(ctx context.Context, deviceID string) (int64, error) {
	var version int64
	err := s.DB.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM entries WHERE device_id = $1 AND deleted = false
	`, deviceID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("GetMaxVersion failed: %w", err)
	}
	return version, nil
}

// UpsertIfNewer inserts or updates only those entries carrying a higher
// version than the stored row, all within one transaction. It returns the
// IDs that were written and the IDs that were skipped as stale.
func (s *PostgresSyncRepository) UpsertIfNewer(ctx context.Context, deviceID string, entries []models.Entry) ([]string, []string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	updated := make([]string, 0, len(entries))
	skipped := make([]string, 0, len(entries))

	for _, e := range entries {
		var existingVersion int64
		err := tx.QueryRowContext(ctx, `
			SELECT version FROM entries WHERE id = $1 AND device_id = $2
		`, e.ID, deviceID).Scan(&existingVersion)
		if err != nil && err != sql.ErrNoRows {
			return nil, nil, fmt.Errorf("check version: %w", err)
		}
		if err == nil && existingVersion >= e.Version {
			skipped = append(skipped, e.ID)
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries (id, device_id, date, body, mood, tags, private, ai_allowed, version, deleted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				date = EXCLUDED.date,
				body = EXCLUDED.body,
				mood = EXCLUDED.mood,
				tags = EXCLUDED.tags,
				private = EXCLUDED.private,
				ai_allowed = EXCLUDED.ai_allowed,
				version = EXCLUDED.version,
				deleted = EXCLUDED.deleted
		`, e.ID, deviceID, e.Date, e.Text, e.Mood, pq.Array(e.Tags), e.Private, e.AIAllowed, e.Version, e.Deleted)
		if err != nil {
			return nil, nil, fmt.Errorf("upsert: %w", err)
		}
		updated = append(updated, e.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return updated, skipped, nil
}

// GetNewerEntries returns all live entries with versions newer than those the
// client reported in its versions map, plus any the client has never seen.
func (s *PostgresSyncRepository) GetNewerEntries(ctx context.Context, deviceID string, versions map[string]int64) ([]models.Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, date, body, mood, tags, private, ai_allowed, version, deleted
		  FROM entries WHERE device_id = $1 AND deleted = false
	`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("GetNewerEntries: %w", err)
	}
	defer rows.Close()

	var newer []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.Date, &e.Text, &e.Mood, pq.Array(&e.Tags),
			&e.Private, &e.AIAllowed, &e.Version, &e.Deleted); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if clientVer, ok := versions[e.ID]; !ok || e.Version > clientVer {
			newer = append(newer, e)
		}
	}
	return newer, rows.Err()
}

// DeleteEntries soft-deletes the entries with the given IDs for the device.
func (s *PostgresSyncRepository) DeleteEntries(ctx context.Context, deviceID string, ids []string) error {
	query := `UPDATE entries SET deleted = true WHERE device_id = $1 AND id = ANY($2)`
	_, err := s.DB.ExecContext(ctx, query, deviceID, pq.Array(ids))
	return err
}
