package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/k1shan-k/lsspoing/pkg/errors"
	"github.com/k1shan-k/lsspoing/pkg/httpclient"

	"github.com/k1shan-k/lsspoing/internal/domain"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPClient is the identity Client backed by the remote identity API.
type HTTPClient struct {
	httpClient HTTPDoer
	baseURL    string
	expiryMins int
	logger     *slog.Logger
}

// NewHTTPClient creates an identity client against the given base URL.
// expiryMins is the requested access token lifetime; zero lets the provider
// pick its default.
func NewHTTPClient(httpClient HTTPDoer, baseURL string, expiryMins int, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		expiryMins: expiryMins,
		logger:     logger,
	}
}

// profilePayload tolerates the two profile shapes the identity API is known
// to return: login responses carry firstName/lastName/image and a flat id,
// while some deployments return a single name field and avatarUrl. Address
// arrives as either a plain string or a structured object.
type profilePayload struct {
	ID        json.Number     `json:"id"`
	Username  string          `json:"username"`
	Name      string          `json:"name"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Image     string          `json:"image"`
	AvatarURL string          `json:"avatarUrl"`
	Address   json.RawMessage `json:"address"`
}

type addressPayload struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (p *profilePayload) toUser() domain.User {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	}
	if name == "" {
		name = p.Username
	}

	avatar := p.Image
	if avatar == "" {
		avatar = p.AvatarURL
	}

	return domain.User{
		ID:          p.ID.String(),
		DisplayName: name,
		Email:       p.Email,
		Phone:       p.Phone,
		Address:     flattenAddress(p.Address),
		AvatarURL:   avatar,
	}
}

// flattenAddress renders whatever address shape arrived as a single line.
func flattenAddress(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var a addressPayload
	if err := json.Unmarshal(raw, &a); err != nil {
		return ""
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Address, a.City, a.State, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// tokenPayload tolerates both token field spellings used by the identity API.
type tokenPayload struct {
	AccessToken  string `json:"accessToken"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (p *tokenPayload) toPair() TokenPair {
	access := p.AccessToken
	if access == "" {
		access = p.Token
	}
	return TokenPair{AccessToken: access, RefreshToken: p.RefreshToken}
}

// Login exchanges credentials for a session.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, apperrors.InvalidCredentials("")
	}

	type loginRequest struct {
		Username      string `json:"username"`
		Password      string `json:"password"`
		ExpiresInMins int    `json:"expiresInMins,omitempty"`
	}

	body, err := json.Marshal(loginRequest{Username: username, Password: password, ExpiresInMins: c.expiryMins})
	if err != nil {
		return nil, fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, apperrors.NetworkUnavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		// The identity API reports bad credentials with the reason in the body.
		return nil, apperrors.InvalidCredentials(httpclient.RemoteMessage(resp))
	default:
		return nil, httpclient.ParseResponseError(resp, "identity")
	}

	var payload struct {
		profilePayload
		tokenPayload
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	pair := payload.toPair()
	if pair.AccessToken == "" {
		return nil, apperrors.Internal(fmt.Errorf("identity login response missing access token"))
	}

	c.logger.InfoContext(ctx, "identity login succeeded",
		slog.String("user_id", payload.ID.String()),
	)

	return &Session{User: payload.toUser(), Tokens: pair}, nil
}

// Me fetches the profile belonging to an access token.
func (c *HTTPClient) Me(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, apperrors.TokenExpired("")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("create me request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, apperrors.NetworkUnavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.TokenExpired(httpclient.RemoteMessage(resp))
	default:
		return nil, httpclient.ParseResponseError(resp, "identity")
	}

	var payload profilePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode me response: %w", err)
	}

	user := payload.toUser()
	return &user, nil
}

// Refresh exchanges a refresh token for a fresh token pair.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.TokenExpired("")
	}

	type refreshRequest struct {
		RefreshToken  string `json:"refreshToken"`
		ExpiresInMins int    `json:"expiresInMins,omitempty"`
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken, ExpiresInMins: c.expiryMins})
	if err != nil {
		return nil, fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, apperrors.NetworkUnavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.TokenExpired(httpclient.RemoteMessage(resp))
	default:
		return nil, httpclient.ParseResponseError(resp, "identity")
	}

	var payload tokenPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}

	pair := payload.toPair()
	if pair.AccessToken == "" {
		return nil, apperrors.Internal(fmt.Errorf("identity refresh response missing access token"))
	}

	c.logger.DebugContext(ctx, "identity tokens refreshed")

	return &pair, nil
}

var _ Client = (*HTTPClient)(nil)
