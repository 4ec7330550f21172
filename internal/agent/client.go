package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/loctrack/field-tracker/internal/models"
)

// API is the tracking backend surface the agent needs.
type API interface {
	StartSession(ctx context.Context) error
	SyncLocations(ctx context.Context, locations []models.SamplePayload) error
	StopSession(ctx context.Context, distanceKm float64) error
}

// Client talks to the tracking API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an API client. baseURL is the API root, e.g.
// http://localhost:8080/api.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s failed with status %d", path, resp.StatusCode)
	}
	return nil
}

// StartSession opens a tracking session for the token's owner.
func (c *Client) StartSession(ctx context.Context) error {
	return c.post(ctx, "/tracking/start", nil)
}

// SyncLocations uploads a location batch.
func (c *Client) SyncLocations(ctx context.Context, locations []models.SamplePayload) error {
	return c.post(ctx, "/tracking/locations", models.IngestRequest{Locations: locations})
}

// StopSession finalizes the session with the accrued distance.
func (c *Client) StopSession(ctx context.Context, distanceKm float64) error {
	return c.post(ctx, "/tracking/stop", models.StopRequest{Distance: distanceKm})
}
