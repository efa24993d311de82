package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// CallbackPath is appended to the redirect host to form the OAuth redirect URL.
const CallbackPath = "/_int/google-drive/auth"

// OAuthClient is the part of *oauth2.Config the controller needs.
type OAuthClient interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource
}

// ClientOptions identifies the requesting user and the OAuth client to use.
type ClientOptions struct {
	UserID       string
	Username     string
	ClientID     string
	ClientSecret string
	RedirectHost string
}

// ClientFactory builds an OAuthClient for one authorization request.
type ClientFactory func(ClientOptions) OAuthClient

// NewOAuthConfig returns the Google OAuth2 config for read-only Drive access.
func NewOAuthConfig(opts ClientOptions) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  strings.TrimRight(opts.RedirectHost, "/") + CallbackPath,
		Scopes:       []string{drive.DriveReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

// GoogleClients is the default ClientFactory.
func GoogleClients(opts ClientOptions) OAuthClient {
	return NewOAuthConfig(opts)
}

// ServiceAccountTokenSource returns a token source for a service-account JSON key.
func ServiceAccountTokenSource(ctx context.Context, keyJSON []byte) (oauth2.TokenSource, error) {
	cfg, err := google.JWTConfigFromJSON(keyJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	return cfg.TokenSource(ctx), nil
}
