// Package hub is a client for the community hub's admin invite API.
package hub

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

const platform = "hub"

// Client is an unauthenticated hub client that can create Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a hub client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Credentials are the admin login for the hub.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login authenticates as an admin and returns a session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	var out loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "", creds, &out); err != nil {
		return nil, fmt.Errorf("hub login: %w", err)
	}
	if out.Token == "" {
		return nil, &extapi.Error{Platform: platform, Kind: extapi.KindUnauthorized, Message: "login returned no token"}
	}
	return &Session{client: c, token: out.Token}, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload, target any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return extapi.Transport(platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		msg := eb.Message
		if msg == "" {
			msg = eb.Error
		}
		return extapi.FromResponse(platform, resp, msg)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
