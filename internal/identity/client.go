// Package identity talks to the upstream identity provider. It covers
// credential login, token refresh, and fetching the profile that belongs
// to an access token.
package identity

import (
	"context"

	"github.com/k1shan-k/lsspoing/internal/domain"
)

// TokenPair holds the credentials issued by the identity provider.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is the result of a successful login: the authenticated user
// plus the tokens issued for them.
type Session struct {
	User   domain.User
	Tokens TokenPair
}

// Client is the interface to the identity provider.
type Client interface {
	// Login exchanges credentials for a session.
	Login(ctx context.Context, username, password string) (*Session, error)

	// Me fetches the profile of the user the access token belongs to.
	Me(ctx context.Context, accessToken string) (*domain.User, error)

	// Refresh exchanges a refresh token for a fresh token pair.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}
