// Package api is the HTTP client for the companion server that exposes
// team state.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rustwatch/teamtracker/internal/roster"
)

// Client handles communication with the companion server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the companion server is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// teamStateResponse is the wire format of the team state endpoint.
type teamStateResponse struct {
	LeaderID string                `json:"leaderId"`
	Members  []roster.MemberRecord `json:"members"`
}

// TeamState fetches the current full snapshot for a team.
func (c *Client) TeamState(ctx context.Context, teamID string) (roster.Snapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v1/teams/%s/state", c.baseURL, url.PathEscape(teamID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return roster.Snapshot{}, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return roster.Snapshot{}, fmt.Errorf("team state request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return roster.Snapshot{}, fmt.Errorf("team state returned status %d", resp.StatusCode)
	}

	var body teamStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return roster.Snapshot{}, fmt.Errorf("decoding team state: %w", err)
	}

	snap, err := roster.NewSnapshot(body.LeaderID, body.Members)
	if err != nil {
		return roster.Snapshot{}, fmt.Errorf("server sent malformed team state: %w", err)
	}
	return snap, nil
}
