package platform

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"github.com/rflorenc/tablist/internal/models"
)

// Credentials identify the user and site to sign in to.
type Credentials struct {
	Site     string // content URL; empty means the default site
	Username string
	Password string
}

type signInRequest struct {
	Credentials struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		Site     struct {
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
	} `json:"credentials"`
}

type signInResponse struct {
	Credentials struct {
		Token string `json:"token"`
		Site  struct {
			ID         string `json:"id"`
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"credentials"`
}

// Session is an authenticated handle on one site. Close must be called
// once the session is no longer needed.
type Session struct {
	client *Client
	siteID string
	userID string
	closed bool
}

// SignIn authenticates and returns an open Session. Rejected credentials or
// an unknown site yield ErrAuthentication; transport failures yield
// ErrConnectivity.
func SignIn(ctx context.Context, client *Client, creds Credentials) (*Session, error) {
	var req signInRequest
	req.Credentials.Name = creds.Username
	req.Credentials.Password = creds.Password
	req.Credentials.Site.ContentURL = creds.Site

	var resp signInResponse
	if err := client.postJSON(ctx, "/auth/signin", req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && rejectedSignIn(apiErr.Status) {
			return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return nil, fmt.Errorf("signing in: %w", err)
	}
	if resp.Credentials.Token == "" || resp.Credentials.Site.ID == "" {
		return nil, fmt.Errorf("%w: sign-in response missing token or site", ErrAuthentication)
	}

	client.token = resp.Credentials.Token
	client.logger.Info("signed in", "user", creds.Username, "site", creds.Site,
		"site_id", resp.Credentials.Site.ID, "api", client.apiVersion)
	return &Session{
		client: client,
		siteID: resp.Credentials.Site.ID,
		userID: resp.Credentials.User.ID,
	}, nil
}

// rejectedSignIn reports whether a sign-in status means the credentials or
// site were refused, as opposed to a server fault.
func rejectedSignIn(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// SiteID returns the LUID of the signed-in site.
func (s *Session) SiteID() string {
	return s.siteID
}

// UserID returns the LUID of the signed-in user.
func (s *Session) UserID() string {
	return s.userID
}

// Close signs out. Only the first call contacts the server; the sign-out is
// sent even if ctx has been cancelled.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.client.postJSON(context.WithoutCancel(ctx), "/auth/signout", nil, nil)
	s.client.token = ""
	if err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	s.client.logger.Info("signed out")
	return nil
}

// Collection returns the accessor for kind.
func (s *Session) Collection(kind models.Kind) *Collection {
	return &Collection{
		client: s.client,
		siteID: s.siteID,
		kind:   kind,
		ep:     endpointFor(kind),
	}
}

// Items lazily lists every item of kind.
func (s *Session) Items(ctx context.Context, kind models.Kind) iter.Seq2[models.Item, error] {
	return s.Collection(kind).All(ctx)
}

// Lookup fetches one item of kind by LUID.
func (s *Session) Lookup(ctx context.Context, kind models.Kind, id string) (models.Item, error) {
	return s.Collection(kind).GetByID(ctx, id)
}

// Tasks fetches the first page of tasks.
func (s *Session) Tasks(ctx context.Context) ([]models.Task, error) {
	return s.Collection(models.KindTask).Tasks(ctx)
}
