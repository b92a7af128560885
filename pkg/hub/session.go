package hub

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/HackDavis/admissions-portal-sub000/pkg/extapi"
)

// Session is an authenticated admin session.
type Session struct {
	client *Client
	token  string
}

// InviteRequest describes an account invite.
type InviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type inviteResponse struct {
	URL string `json:"url"`
}

// CreateInvite creates an account invite and returns its url path.
func (s *Session) CreateInvite(ctx context.Context, req InviteRequest) (string, error) {
	var out inviteResponse
	if err := s.client.doJSON(ctx, http.MethodPost, "/api/invites", s.token, req, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", &extapi.Error{Platform: platform, Kind: extapi.KindUnknown, Message: "invite created without a url"}
	}
	return out.URL, nil
}

// Provisioner creates hub invites, logging in lazily and once more after the
// session is rejected.
type Provisioner struct {
	Client      *Client
	Credentials Credentials
	Role        string

	mu      sync.Mutex
	session *Session
}

// Provision creates an invite for email and returns its absolute URL.
func (p *Provisioner) Provision(ctx context.Context, email, name string) (string, error) {
	req := InviteRequest{Email: email, Name: name, Role: p.Role}

	sess, err := p.currentSession(ctx, nil)
	if err != nil {
		return "", err
	}

	path, err := sess.CreateInvite(ctx, req)
	if extapi.IsUnauthorized(err) {
		if sess, err = p.currentSession(ctx, sess); err != nil {
			return "", err
		}
		path, err = sess.CreateInvite(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("create hub invite: %w", err)
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	return p.Client.BaseURL + "/" + strings.TrimPrefix(path, "/"), nil
}

// currentSession returns the cached session, logging in when there is none or
// when the cached one is the stale session the caller just saw rejected.
func (p *Provisioner) currentSession(ctx context.Context, stale *Session) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil && p.session != stale {
		return p.session, nil
	}

	sess, err := p.Client.Login(ctx, p.Credentials)
	if err != nil {
		return nil, err
	}
	p.session = sess
	return sess, nil
}
