package tito

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/HackDavis/admissions-portal-sub000/pkg/extapi"
)

// Invitation is a release invitation on an RSVP list.
type Invitation struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	URL       string `json:"unique_url"`
}

// CreateInvitationParams describes one invitation to create.
type CreateInvitationParams struct {
	ListID       string
	FirstName    string
	LastName     string
	Email        string
	ReleaseIDs   []int
	DiscountCode string
}

type createInvitationRequest struct {
	ReleaseInvitation struct {
		Email        string `json:"email"`
		FirstName    string `json:"first_name,omitempty"`
		LastName     string `json:"last_name,omitempty"`
		ReleaseIDs   []int  `json:"release_ids"`
		DiscountCode string `json:"discount_code,omitempty"`
	} `json:"release_invitation"`
}

type invitationEnvelope struct {
	ReleaseInvitation Invitation `json:"release_invitation"`
}

type invitationList struct {
	ReleaseInvitations []Invitation `json:"release_invitations"`
}

func (c *Client) invitationsPath(listID string) string {
	return c.eventPath("/rsvp_lists/" + url.PathEscape(listID) + "/release_invitations")
}

// CreateInvitation creates a release invitation and returns it with its URL.
func (c *Client) CreateInvitation(ctx context.Context, p CreateInvitationParams) (Invitation, error) {
	var req createInvitationRequest
	req.ReleaseInvitation.Email = p.Email
	req.ReleaseInvitation.FirstName = p.FirstName
	req.ReleaseInvitation.LastName = p.LastName
	req.ReleaseInvitation.ReleaseIDs = p.ReleaseIDs
	req.ReleaseInvitation.DiscountCode = p.DiscountCode

	resp, err := c.doRequest(ctx, http.MethodPost, c.invitationsPath(p.ListID), req)
	if err != nil {
		return Invitation{}, err
	}

	var out invitationEnvelope
	if err := decodeJSON(resp, &out); err != nil {
		return Invitation{}, err
	}
	if out.ReleaseInvitation.URL == "" {
		return Invitation{}, &extapi.Error{
			Platform:   platform,
			Kind:       extapi.KindUnknown,
			StatusCode: resp.StatusCode,
			Message:    "invitation created without a url",
		}
	}
	return out.ReleaseInvitation, nil
}

// ListInvitations returns the invitations on a list, optionally filtered by
// the platform's free-text search.
func (c *Client) ListInvitations(ctx context.Context, listID, query string) ([]Invitation, error) {
	u := c.invitationsPath(listID)
	if query != "" {
		u += "?" + url.Values{"search[q]": {query}}.Encode()
	}

	resp, err := c.doRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var out invitationList
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.ReleaseInvitations, nil
}

// GetInvitationByEmail finds the invitation whose email matches exactly,
// ignoring case. It returns an extapi NotFound error when none does.
func (c *Client) GetInvitationByEmail(ctx context.Context, listID, email string) (Invitation, error) {
	invs, err := c.ListInvitations(ctx, listID, email)
	if err != nil {
		return Invitation{}, err
	}

	want := strings.TrimSpace(email)
	for _, inv := range invs {
		if strings.EqualFold(strings.TrimSpace(inv.Email), want) {
			return inv, nil
		}
	}
	return Invitation{}, &extapi.Error{
		Platform: platform,
		Kind:     extapi.KindNotFound,
		Message:  "no invitation for " + want,
	}
}

// DeleteInvitationByEmail removes the invitation held by email and returns its id.
func (c *Client) DeleteInvitationByEmail(ctx context.Context, listID, email string) (string, error) {
	inv, err := c.GetInvitationByEmail(ctx, listID, email)
	if err != nil {
		return "", fmt.Errorf("lookup before delete: %w", err)
	}

	id := strconv.FormatInt(inv.ID, 10)
	if inv.ID == 0 && inv.Slug != "" {
		id = inv.Slug
	}

	resp, err := c.doRequest(ctx, http.MethodDelete, c.invitationsPath(listID)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	if err := decodeJSON(resp, nil); err != nil {
		return "", err
	}
	return id, nil
}

// ParseReleaseIDs parses a comma-separated list of numeric release ids.
func ParseReleaseIDs(raw string) ([]int, error) {
	var ids []int
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("release id %q is not numeric", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one release id is required")
	}
	return ids, nil
}
