package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kmezhova/everlog/internal/models"
	"github.com/kmezhova/everlog/internal/service"
)

// fakeAdminService implements AdminService for testing.
type fakeAdminService struct {
	updateErr  error
	listReturn []models.Feedback
	listErr    error
	ingestID   string
	ingestErr  error
	cleanupErr error

	gotStatus models.FeedbackStatus
	gotCrash  models.CrashReport
}

func (f *fakeAdminService) UpdateFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus) error {
	f.gotStatus = status
	return f.updateErr
}

func (f *fakeAdminService) ListFeedback(ctx context.Context, status models.FeedbackStatus) ([]models.Feedback, error) {
	return f.listReturn, f.listErr
}

func (f *fakeAdminService) IngestCrash(ctx context.Context, c models.CrashReport) (string, error) {
	f.gotCrash = c
	return f.ingestID, f.ingestErr
}

func (f *fakeAdminService) Cleanup(ctx context.Context, entryRetention, crashRetention time.Duration) (int64, int64, error) {
	return 5, 1, f.cleanupErr
}

// patchFeedback routes the request through chi so URL params resolve.
func patchFeedback(h *AdminHandler, id, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Patch("/api/admin/feedback/{id}", h.UpdateFeedbackStatus)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/api/admin/feedback/"+id, bytes.NewBufferString(body))
	r.ServeHTTP(rec, req)
	return rec
}

func TestUpdateFeedbackStatus_Handler(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		service      *fakeAdminService
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "invalid JSON",
			body:         `not a json`,
			service:      &fakeAdminService{},
			expectedCode: http.StatusBadRequest,
			expectedErr:  "invalid_body",
		},
		{
			name:         "invalid status",
			body:         `{"status":"escalated"}`,
			service:      &fakeAdminService{updateErr: service.ErrInvalidStatus},
			expectedCode: http.StatusBadRequest,
			expectedErr:  "invalid_status",
		},
		{
			name:         "unknown id",
			body:         `{"status":"reviewed"}`,
			service:      &fakeAdminService{updateErr: service.ErrNotFound},
			expectedCode: http.StatusNotFound,
			expectedErr:  "not_found",
		},
		{
			name:         "repo failure",
			body:         `{"status":"reviewed"}`,
			service:      &fakeAdminService{updateErr: errors.New("db down")},
			expectedCode: http.StatusInternalServerError,
			expectedErr:  "update_failed",
		},
		{
			name:         "success",
			body:         `{"status":"resolved"}`,
			service:      &fakeAdminService{},
			expectedCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &AdminHandler{AdminService: tt.service}
			rec := patchFeedback(h, "f1", tt.body)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}

			var env Envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("invalid envelope: %v", err)
			}
			if env.Error != tt.expectedErr {
				t.Errorf("error = %q, want %q", env.Error, tt.expectedErr)
			}
			if env.RequestID == "" {
				t.Error("missing requestId")
			}
		})
	}
}

func TestListFeedback_Handler(t *testing.T) {
	svc := &fakeAdminService{listReturn: []models.Feedback{
		{ID: "f1", Message: "sync is slow", Status: models.FeedbackNew},
	}}
	h := &AdminHandler{AdminService: svc}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/admin/feedback?status=new", nil)
	h.ListFeedback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCrashHandler_Ingest(t *testing.T) {
	svc := &fakeAdminService{ingestID: "c-123"}
	h := &CrashHandler{AdminService: svc}

	body := `{"device_id":"d1","message":"nil deref","stack":"trace","app_version":"1.4.2"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/crash", bytes.NewBufferString(body))
	h.Ingest(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotCrash.DeviceID != "d1" || svc.gotCrash.Message != "nil deref" {
		t.Errorf("report not forwarded: %+v", svc.gotCrash)
	}
}

func TestCrashHandler_MissingDevice(t *testing.T) {
	h := &CrashHandler{AdminService: &fakeAdminService{}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/crash", bytes.NewBufferString(`{"message":"anon"}`))
	h.Ingest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a report without device, got %d", rec.Code)
	}
}

func TestCleanup_Handler(t *testing.T) {
	tests := []struct {
		name         string
		secret       string
		header       string
		expectedCode int
	}{
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong secret", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"unconfigured secret", "", "Bearer ", http.StatusUnauthorized},
		{"exact match", "s3cret", "Bearer s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &AdminHandler{AdminService: &fakeAdminService{}, CleanupSecret: tt.secret}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/admin/cleanup", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.Cleanup(rec, req)

			if rec.Code != tt.expectedCode {
				t.Errorf("expected %d, got %d", tt.expectedCode, rec.Code)
			}
		})
	}
}
