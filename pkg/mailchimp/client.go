// Package mailchimp is a minimal client for audience member upserts and tags.
package mailchimp

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/pkg/extapi"
)

const platform = "mailchimp"

// DefaultBaseURL is the marketing API root; {dc} is replaced by the server prefix.
const DefaultBaseURL = "https://{dc}.api.mailchimp.com/3.0"

// Client is bound to one credential slot.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient builds a client from slot credentials. An empty baseURL uses
// DefaultBaseURL.
func NewClient(creds Credentials, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.ReplaceAll(baseURL, "{dc}", creds.ServerPrefix)

	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  creds.APIKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Contact is an audience member with an optional tag to activate.
type Contact struct {
	Email       string
	MergeFields map[string]string
	Tag         string
}

type memberRequest struct {
	EmailAddress string            `json:"email_address"`
	StatusIfNew  string            `json:"status_if_new"`
	MergeFields  map[string]string `json:"merge_fields,omitempty"`
}

type tagRequest struct {
	Tags []tag `json:"tags"`
}

type tag struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// SubscriberHash is the member id: md5 of the lower-cased email.
func SubscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// UpsertContact creates or updates the member, then activates Tag if set.
func (c *Client) UpsertContact(ctx context.Context, audienceID string, contact Contact) error {
	memberPath := "/lists/" + url.PathEscape(audienceID) + "/members/" + SubscriberHash(contact.Email)

	err := c.do(ctx, http.MethodPut, memberPath, memberRequest{
		EmailAddress: strings.TrimSpace(contact.Email),
		StatusIfNew:  "subscribed",
		MergeFields:  contact.MergeFields,
	})
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}

	if contact.Tag == "" {
		return nil
	}
	err = c.do(ctx, http.MethodPost, memberPath+"/tags", tagRequest{
		Tags: []tag{{Name: contact.Tag, Status: "active"}},
	})
	if err != nil {
		return fmt.Errorf("tag member: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("anystring", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return extapi.Transport(platform, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	var p problem
	_ = json.Unmarshal(body, &p)
	msg := p.Title
	if p.Detail != "" {
		msg = strings.TrimSpace(msg + ": " + p.Detail)
	}
	return extapi.FromResponse(platform, resp, strings.TrimPrefix(msg, ": "))
}
