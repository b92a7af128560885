package adminsdk

import (
	"net/http"
	"strings"
	"time"
)

// Client calls the admin API. AdminKey is sent as a bearer token.
type Client struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewClient creates a client. Finalization runs synchronously, so the
// timeout is generous.
func NewClient(baseURL, adminKey string) *Client {
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}
