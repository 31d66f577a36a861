// Package oracle is the HTTP client for the AI generation backend. It
// implements the biography.Generator contract: per-day narrative generation
// and the retry sweep for biographies stranded by earlier sessions.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kmezhova/everlog/internal/models"
)

const (
	apiGenerate = "/api/biography"
	apiRetry    = "/api/biography/retry"
)

// Client talks to the generation backend over HTTPS JSON.
type Client struct {
	// HTTP is the underlying HTTP client, including any TLS configuration.
	HTTP *http.Client
	// BaseURL is the backend's base URL without a trailing slash.
	BaseURL string
}

// New constructs a Client for the given base URL.
func New(httpClient *http.Client, baseURL string) *Client {
	return &Client{HTTP: httpClient, BaseURL: baseURL}
}

// Generate requests a biography for date in the given locale. notify asks the
// backend to push a notification when generation finishes asynchronously.
// The returned record carries its own status, which may be failed.
func (c *Client) Generate(ctx context.Context, date, locale string, notify bool) (models.Biography, error) {
	payload, _ := json.Marshal(map[string]any{
		"date":   date,
		"locale": locale,
		"notify": notify,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+apiGenerate, bytes.NewReader(payload))
	if err != nil {
		return models.Biography{}, fmt.Errorf("generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return models.Biography{}, fmt.Errorf("generate failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Biography{}, fmt.Errorf("generate failed: status %d", resp.StatusCode)
	}

	var bio models.Biography
	if err := json.NewDecoder(resp.Body).Decode(&bio); err != nil {
		return models.Biography{}, fmt.Errorf("decode biography: %w", err)
	}
	return bio, nil
}

// RetryPending asks the backend to re-drive every biography left in a
// pending or failed state.
func (c *Client) RetryPending(ctx context.Context, locale string) error {
	payload, _ := json.Marshal(map[string]string{"locale": locale})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+apiRetry, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("retry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("retry failed: status %d", resp.StatusCode)
	}
	return nil
}
