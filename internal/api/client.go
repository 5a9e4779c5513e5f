// Package api is the REST client for the telemetry backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dterol/cpd-telemetry/internal/telemetry"
)

type Client struct {
	log     *slog.Logger
	baseURL string
	client  *http.Client
}

func New(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// Locations lists all known sensor locations.
func (c *Client) Locations(ctx context.Context) ([]string, error) {
	var out struct {
		Locations []string `json:"locations"`
	}
	if err := c.getJSON(ctx, "/api/locations", nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// Historical fetches readings for the last days, optionally filtered by
// location. An empty location means all locations.
func (c *Client) Historical(ctx context.Context, days int, location string) ([]telemetry.Reading, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	if location != "" {
		q.Set("location", location)
	}
	var readings []telemetry.Reading
	if err := c.getJSON(ctx, "/api/historical", q, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// HistoricalCSV fetches the backend's CSV rendering of the historical
// data. The payload is passed through verbatim, not parsed.
func (c *Client) HistoricalCSV(ctx context.Context, days int, location string) ([]byte, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	q.Set("format", "csv")
	if location != "" {
		q.Set("location", location)
	}
	body, err := c.get(ctx, "/api/historical", q)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Alerts fetches the current alert set, optionally filtered by location.
// The returned order is the backend's ordering contract: element 0 is the
// most critical alert.
func (c *Client) Alerts(ctx context.Context, location string) ([]telemetry.Alert, error) {
	q := url.Values{}
	if location != "" {
		q.Set("location", location)
	}
	var out struct {
		Alerts []telemetry.Alert `json:"alertas"`
	}
	if err := c.getJSON(ctx, "/api/alerts", q, &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
