package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foxholetools/artyplanner/internal/planner"
	"github.com/foxholetools/artyplanner/pkg/core"
)

// Client talks to a running planner server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Calculate asks the server for a firing solution.
func (c *Client) Calculate(ctx context.Context, req planner.CalcRequest) (core.FiringSolution, error) {
	var sol core.FiringSolution
	err := c.roundTrip(ctx, http.MethodPost, "/api/calculate", req, http.StatusOK, &sol)
	return sol, err
}

// CreatePlan uploads a plan and returns it as stored.
func (c *Client) CreatePlan(ctx context.Context, rec *core.PlanRecord) (*core.PlanRecord, error) {
	var saved core.PlanRecord
	if err := c.roundTrip(ctx, http.MethodPost, "/api/plans", rec, http.StatusCreated, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetPlan fetches a saved plan.
func (c *Client) GetPlan(ctx context.Context, id string) (*core.PlanRecord, error) {
	var rec core.PlanRecord
	if err := c.roundTrip(ctx, http.MethodGet, "/api/plans/"+url.PathEscape(id), nil, http.StatusOK, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PlanGeoJSON downloads a plan's GeoJSON export.
func (c *Client) PlanGeoJSON(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/plans/"+url.PathEscape(id)+"/geojson", nil)
	if err != nil {
		return nil, fmt.Errorf("geojson request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any, wantStatus int, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// responseError turns an error response into a Go error carrying the server's message.
func responseError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}
