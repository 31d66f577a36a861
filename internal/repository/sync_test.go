package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/kmezhova/everlog/internal/models"
)

func setupSyncMock(t *testing.T) (*PostgresSyncRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresSyncRepository(db)
	cleanup := func() {
		db.Close()
	}
	return repo, mock, cleanup
}

func TestGetMaxVersion_Success(t *testing.T) {
	repo, mock, cleanup := setupSyncMock(t)
	defer cleanup()

	deviceID := "device1"
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(version), 0) FROM entries WHERE device_id = $1`)).
		WithArgs(deviceID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(5)))

	version, err := repo.GetMaxVersion(context.Background(), deviceID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetMaxVersion_Error(t *testing.T) {
	repo, mock, cleanup := setupSyncMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(version), 0) FROM entries WHERE device_id = $1`)).
		WithArgs("device1").
		WillReturnError(errors.New("query fail"))

	_, err := repo.GetMaxVersion(context.Background(), "device1")
	if err == nil || !regexp.MustCompile(`GetMaxVersion failed`).MatchString(err.Error()) {
		t.Errorf("expected GetMaxVersion failed error, got %v", err)
	}
}

func TestEnsureDevice(t *testing.T) {
	repo, mock, cleanup := setupSyncMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO devices (id) VALUES ($1) ON CONFLICT DO NOTHING`)).
		WithArgs("device1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.EnsureDevice(context.Background(), "device1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpsertIfNewer_SkipsStale(t *testing.T) {
	repo, mock, cleanup := setupSyncMock(t)
	defer cleanup()

	deviceID := "device1"
	entries := []models.Entry{
		{ID: "e1", Date: "2024-05-20", Text: "fresh", Mood: 4, Tags: []string{"t"}, AIAllowed: true, Version: 10},
		{ID: "e2", Date: "2024-05-20", Text: "stale", Mood: 3, Version: 3},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version FROM entries WHERE id = $1 AND device_id = $2`)).
		WithArgs("e1", deviceID).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO entries`).
		WithArgs("e1", deviceID, "2024-05-20", "fresh", 4, pq.Array([]string{"t"}), false, true, int64(10), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version FROM entries WHERE id = $1 AND device_id = $2`)).
		WithArgs("e2", deviceID).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))
	mock.ExpectCommit()

	updated, skipped, err := repo.UpsertIfNewer(context.Background(), deviceID, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated) != 1 || updated[0] != "e1" {
		t.Errorf("updated = %v, want [e1]", updated)
	}
	if len(skipped) != 1 || skipped[0] != "e2" {
		t.Errorf("skipped = %v, want [e2]", skipped)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpsertIfNewer_UpsertError(t *testing.T) {
	repo, mock, cleanup := setupSyncMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version FROM entries WHERE id = $1 AND device_id = $2`)).
		WithArgs("e1", "device1").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectExec(`INSERT INTO entries`).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, _, err := repo.UpsertIfNewer(context.Background(), "device1", []models.Entry{
		{ID: "e1", Date: "2024-05-20", Version: 1},
	})
	if err == nil || !regexp.MustCompile(`upsert`).MatchString(err.Error()) {
		t.Errorf("expected upsert error, got %v", err)
	}
}

func TestGetNewerEntries(t *testing.T) {
	repo, mock, cleanup := setupSyncMock(t)
	defer cleanup()

	deviceID := "device1"
	rows := sqlmock.NewRows([]string{"id", "date", "body", "mood", "tags", "private", "ai_allowed", "version", "deleted"}).
		AddRow("e1", "2024-05-20", "known", 3, "{}", false, true, int64(5), false).
		AddRow("e2", "2024-05-20", "newer", 4, "{calm}", false, true, int64(9), false).
		AddRow("e3", "2024-05-21", "unseen", 2, "{}", true, false, int64(2), false)

	mock.ExpectQuery(`SELECT id, date, body, mood, tags, private, ai_allowed, version, deleted`).
		WithArgs(deviceID).
		WillReturnRows(rows)

	versions := map[string]int64{"e1": 5, "e2": 7}
	newer, err := repo.GetNewerEntries(context.Background(), deviceID, versions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(newer) != 2 {
		t.Fatalf("expected 2 newer entries, got %d", len(newer))
	}
	if newer[0].ID != "e2" || newer[1].ID != "e3" {
		t.Errorf("newer = [%s %s], want [e2 e3]", newer[0].ID, newer[1].ID)
	}
	if len(newer[0].Tags) != 1 || newer[0].Tags[0] != "calm" {
		t.Errorf("tags not scanned: %v", newer[0].Tags)
	}
}

func TestDeleteEntries(t *testing.T) {
	repo, mock, cleanup := setupSyncMock(t)
	defer cleanup()

	ids := []string{"e1", "e2"}
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE entries SET deleted = true WHERE device_id = $1 AND id = ANY($2)`)).
		WithArgs("device1", pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.DeleteEntries(context.Background(), "device1", ids); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
