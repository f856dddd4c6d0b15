package auth

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

const xdgAppName = "tasksync"

// ErrMissingToken is returned when a service has no API token configured.
var ErrMissingToken = errors.New("missing API token")

// TokenSource returns a token source for a static API token. Both Notion
// integrations and Todoist issue long-lived bearer tokens, so there is no
// refresh flow.
func TokenSource(token string) (oauth2.TokenSource, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}), nil
}

// NewHTTPClient retrieves an *http.Client that sends the token as an
// Authorization: Bearer header on every request.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) (*http.Client, error) {
	ts, err := TokenSource(token)
	if err != nil {
		return nil, err
	}
	// oauth2.NewClient builds on the client found in the context.
	base := &http.Client{Timeout: timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = timeout
	return client, nil
}

// GetXdgHome returns the directory holding the configuration, the local store
// and the watermark.
func GetXdgHome() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}
