// Package tito is a client for the ticketing platform's release-invitation API.
package tito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/pkg/extapi"
)

const platform = "tito"

// DefaultBaseURL is the hosted admin API root.
const DefaultBaseURL = "https://api.tito.io/v3"

// Client talks to one event on the ticketing platform.
type Client struct {
	BaseURL    string
	Token      string
	Account    string
	Event      string
	HTTPClient *http.Client
}

// NewClient creates a client scoped to account/event.
func NewClient(baseURL, token, account, event string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		Account: account,
		Event:   event,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) eventPath(suffix string) string {
	return fmt.Sprintf("%s/%s/%s%s", c.BaseURL, c.Account, c.Event, suffix)
}

// doRequest sends a JSON request with the platform token.
func (c *Client) doRequest(ctx context.Context, method, url string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token token="+c.Token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, extapi.Transport(platform, err)
	}
	return resp, nil
}

// decodeJSON reads the body and either decodes it into target or translates
// the failure into an *extapi.Error.
func decodeJSON(resp *http.Response, target any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(resp, raw)
	}
	if target == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
