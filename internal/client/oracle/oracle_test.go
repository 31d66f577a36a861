package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kmezhova/everlog/internal/models"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiGenerate || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["date"] != "2024-05-20" || req["locale"] != "en" || req["notify"] != true {
			t.Errorf("unexpected payload: %v", req)
		}
		_ = json.NewEncoder(w).Encode(models.Biography{
			Date: "2024-05-20", Status: models.BiographyComplete, Text: "a fine day", Locale: "en",
		})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	bio, err := c.Generate(context.Background(), "2024-05-20", "en", true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if bio.Status != models.BiographyComplete || bio.Text != "a fine day" {
		t.Errorf("unexpected biography: %+v", bio)
	}
}

func TestGenerate_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	if _, err := c.Generate(context.Background(), "2024-05-20", "en", false); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}

func TestRetryPending(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiRetry {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	if err := c.RetryPending(context.Background(), "en"); err != nil {
		t.Fatalf("RetryPending: %v", err)
	}
	if !called {
		t.Error("backend was never called")
	}
}
