// Package store implements the device-local record store backing drafts,
// entries, biographies, and feature markers. Records live in a single
// key-value table in a SQLite database file, one JSON document per row.
//
// Each logical record owns a unique key, so concurrent writers to different
// records never conflict. Callers that write the same key (drafts) must
// serialize their writes themselves; the draft tracker does.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kmezhova/everlog/internal/models"
)

// ErrNotFound is returned when a record does not exist for the given key.
var ErrNotFound = errors.New("record not found")

// Record kinds stored in the records table.
const (
	kindDraft     = "draft"
	kindEntry     = "entry"
	kindBiography = "biography"
	kindMarker    = "marker"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    key TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    date TEXT NOT NULL DEFAULT '',
    data BLOB NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_records_kind_date ON records(kind, date);
`

// Store is the SQLite-backed local record store.
type Store struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// Open opens (creating if needed) the record store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}

// put upserts one record row. A single-row upsert is atomic, which is the
// per-key write atomicity the draft and biography components rely on.
func (s *Store) put(ctx context.Context, key, kind, date string, doc any, updatedAt int64) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO records (key, kind, date, data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			kind = EXCLUDED.kind,
			date = EXCLUDED.date,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, key, kind, date, data, updatedAt)
	if err != nil {
		return fmt.Errorf("put %s: %w", kind, err)
	}
	return nil
}

// get reads one record row into doc. Returns ErrNotFound when absent.
func (s *Store) get(ctx context.Context, key string, doc any) error {
	var data []byte
	err := s.DB.QueryRowContext(ctx, `SELECT data FROM records WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}

// delete removes one record row. Deleting an absent key is not an error.
func (s *Store) delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM records WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func draftKey(key string) string     { return "draft:" + key }
func entryKey(id string) string      { return "entry:" + id }
func biographyKey(date string) string { return "biography:" + date }
func markerKey(name string) string   { return "marker:" + name }

// PutDraft upserts the draft under its key. Last write wins.
func (s *Store) PutDraft(ctx context.Context, d models.Draft) error {
	return s.put(ctx, draftKey(d.Key), kindDraft, "", d, d.UpdatedAt)
}

// GetDraft returns the draft stored under key, or ErrNotFound.
func (s *Store) GetDraft(ctx context.Context, key string) (*models.Draft, error) {
	var d models.Draft
	if err := s.get(ctx, draftKey(key), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDraft removes the draft stored under key.
func (s *Store) DeleteDraft(ctx context.Context, key string) error {
	return s.delete(ctx, draftKey(key))
}

// PutEntry upserts a committed entry.
func (s *Store) PutEntry(ctx context.Context, e models.Entry) error {
	return s.put(ctx, entryKey(e.ID), kindEntry, e.Date, e, e.Version*1000)
}

// GetEntry returns the entry with the given ID, or ErrNotFound.
func (s *Store) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	var e models.Entry
	if err := s.get(ctx, entryKey(id), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// EntriesByDate returns all non-deleted entries for the given date.
func (s *Store) EntriesByDate(ctx context.Context, date string) ([]models.Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT data FROM records WHERE kind = $1 AND date = $2
	`, kindEntry, date)
	if err != nil {
		return nil, fmt.Errorf("entries by date: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var e models.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		if !e.Deleted {
			entries = append(entries, e)
		}
	}
	return entries, rows.Err()
}

// AllEntries returns every stored entry, soft-deleted ones included.
// The sync loop sends them all so deletions propagate.
func (s *Store) AllEntries(ctx context.Context) ([]models.Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT data FROM records WHERE kind = $1`, kindEntry)
	if err != nil {
		return nil, fmt.Errorf("all entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var e models.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PutBiography upserts the biography for its date.
func (s *Store) PutBiography(ctx context.Context, b models.Biography) error {
	return s.put(ctx, biographyKey(b.Date), kindBiography, b.Date, b, b.UpdatedAt)
}

// GetBiography returns the biography for date, or ErrNotFound.
func (s *Store) GetBiography(ctx context.Context, date string) (*models.Biography, error) {
	var b models.Biography
	if err := s.get(ctx, biographyKey(date), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// PendingBiographies returns biographies left in a pending or failed state.
func (s *Store) PendingBiographies(ctx context.Context) ([]models.Biography, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT data FROM records WHERE kind = $1`, kindBiography)
	if err != nil {
		return nil, fmt.Errorf("pending biographies: %w", err)
	}
	defer rows.Close()

	var pending []models.Biography
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var b models.Biography
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("unmarshal biography: %w", err)
		}
		if b.Status != models.BiographyComplete {
			pending = append(pending, b)
		}
	}
	return pending, rows.Err()
}

// GetMarker returns the string value stored under the named marker,
// or ErrNotFound.
func (s *Store) GetMarker(ctx context.Context, name string) (string, error) {
	var v string
	if err := s.get(ctx, markerKey(name), &v); err != nil {
		return "", err
	}
	return v, nil
}

// SetMarker stores a string value under the named marker.
func (s *Store) SetMarker(ctx context.Context, name, value string, updatedAt int64) error {
	return s.put(ctx, markerKey(name), kindMarker, "", value, updatedAt)
}

// TotalSize returns the byte size of all persisted record payloads.
func (s *Store) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	err := s.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(LENGTH(data)), 0) FROM records
	`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total size: %w", err)
	}
	return total, nil
}
