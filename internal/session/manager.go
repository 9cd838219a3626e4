// Package session owns the authentication lifecycle: login, one-time
// verification of persisted tokens at startup, coalesced silent refresh,
// and logout. All token state lives here; nothing else reads the token keys.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/k1shan-k/lsspoing/pkg/errors"

	"github.com/k1shan-k/lsspoing/internal/domain"
	"github.com/k1shan-k/lsspoing/internal/identity"
	"github.com/k1shan-k/lsspoing/internal/store"
)

// State is the lifecycle state of the session.
type State string

const (
	StateBootstrapping   State = "bootstrapping"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
)

// Store keys for persisted session state.
const (
	keyAccessToken  = "session:access_token"
	keyRefreshToken = "session:refresh_token"
	keyUser         = "session:user"
)

// Manager owns the session lifecycle. It is safe for concurrent use.
type Manager struct {
	identity identity.Client
	store    *store.Store
	logger   *slog.Logger

	mu            sync.Mutex
	state         State
	user          *domain.User
	accessToken   string
	refreshToken  string
	loginInFlight bool
	bootstrapped  bool

	// refreshGroup coalesces concurrent refresh attempts into one round trip.
	refreshGroup singleflight.Group
}

// NewManager creates a session manager. The session starts in the
// bootstrapping state; call Bootstrap before serving traffic.
func NewManager(identityClient identity.Client, st *store.Store, logger *slog.Logger) *Manager {
	return &Manager{
		identity: identityClient,
		store:    st,
		logger:   logger,
		state:    StateBootstrapping,
	}
}

// Bootstrap restores and verifies a persisted session. It runs the
// verification round trip at most once per process: a persisted access token
// is never trusted without a who-am-i call, and a rejected token gets exactly
// one refresh attempt before the session settles unauthenticated.
// Calling Bootstrap again is a no-op.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	if m.bootstrapped {
		m.mu.Unlock()
		return
	}
	m.bootstrapped = true

	access, _ := m.store.Get(ctx, keyAccessToken)
	refresh, _ := m.store.Get(ctx, keyRefreshToken)
	m.mu.Unlock()

	if access == "" {
		m.logger.InfoContext(ctx, "no persisted session, starting unauthenticated")
		m.setUnauthenticated(ctx)
		return
	}

	user, err := m.identity.Me(ctx, access)
	if err == nil {
		m.setAuthenticated(ctx, user, access, refresh)
		m.logger.InfoContext(ctx, "persisted session verified", slog.String("user_id", user.ID))
		return
	}

	if refresh == "" {
		m.logger.WarnContext(ctx, "persisted token rejected and no refresh token, clearing session",
			slog.String("error", err.Error()),
		)
		m.clear(ctx)
		return
	}

	pair, refreshErr := m.identity.Refresh(ctx, refresh)
	if refreshErr != nil {
		m.logger.WarnContext(ctx, "session refresh failed during bootstrap, clearing session",
			slog.String("error", refreshErr.Error()),
		)
		m.clear(ctx)
		return
	}

	user, err = m.identity.Me(ctx, pair.AccessToken)
	if err != nil {
		// A token that fails verification straight after a successful refresh
		// is permanently invalid. No second refresh attempt.
		m.logger.WarnContext(ctx, "refreshed token failed verification, clearing session",
			slog.String("error", err.Error()),
		)
		m.clear(ctx)
		return
	}

	m.setAuthenticated(ctx, user, pair.AccessToken, pair.RefreshToken)
	m.logger.InfoContext(ctx, "persisted session refreshed and verified", slog.String("user_id", user.ID))
}

// Login authenticates with credentials. A second login issued while one is
// already in flight is rejected rather than interleaved. On failure the
// session stays unauthenticated and nothing is persisted.
func (m *Manager) Login(ctx context.Context, username, password string) (*domain.User, error) {
	m.mu.Lock()
	if m.loginInFlight {
		m.mu.Unlock()
		return nil, apperrors.Conflict("a login attempt is already in progress")
	}
	m.loginInFlight = true
	m.state = StateAuthenticating
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loginInFlight = false
		m.mu.Unlock()
	}()

	sess, err := m.identity.Login(ctx, username, password)
	if err != nil {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.mu.Unlock()
		m.logger.WarnContext(ctx, "login failed", slog.String("error", err.Error()))
		return nil, err
	}

	user := sess.User

	// The login response already carries a profile; the who-am-i call fills in
	// fields login omits. If it fails, keep the login profile rather than
	// failing a login that already succeeded.
	if full, meErr := m.identity.Me(ctx, sess.Tokens.AccessToken); meErr == nil {
		user = *full
	} else {
		m.logger.WarnContext(ctx, "profile fetch after login failed, using login response profile",
			slog.String("error", meErr.Error()),
		)
	}

	m.setAuthenticated(ctx, &user, sess.Tokens.AccessToken, sess.Tokens.RefreshToken)
	m.logger.InfoContext(ctx, "login succeeded", slog.String("user_id", user.ID))
	return &user, nil
}

// Refresh exchanges the refresh token for a fresh access token. Concurrent
// callers are coalesced into a single round trip and all receive the same
// resulting token. A rejected refresh token clears the session; a transient
// network failure leaves it untouched.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	refresh := m.refreshToken
	if refresh == "" {
		m.mu.Unlock()
		return "", apperrors.TokenExpired("")
	}
	if m.state == StateAuthenticated {
		m.state = StateRefreshing
	}
	m.mu.Unlock()

	token, err, _ := m.refreshGroup.Do(refresh, func() (any, error) {
		pair, err := m.identity.Refresh(ctx, refresh)
		if err != nil {
			if errors.Is(err, apperrors.ErrTokenExpired) {
				m.logger.WarnContext(ctx, "refresh token rejected, clearing session")
				m.clear(ctx)
			} else {
				m.logger.WarnContext(ctx, "refresh failed", slog.String("error", err.Error()))
				m.mu.Lock()
				if m.state == StateRefreshing {
					m.state = StateAuthenticated
				}
				m.mu.Unlock()
			}
			return "", err
		}

		// Not every refresh response rotates the refresh token.
		newRefresh := pair.RefreshToken
		if newRefresh == "" {
			newRefresh = refresh
		}

		m.mu.Lock()
		user := m.user
		m.mu.Unlock()
		m.setAuthenticated(ctx, user, pair.AccessToken, newRefresh)
		m.logger.InfoContext(ctx, "session refreshed")
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// Logout clears the session from memory and storage. It never fails: a
// storage error degrades to a warning and the in-memory session is gone
// regardless.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	userID := ""
	if m.user != nil {
		userID = m.user.ID
	}
	m.mu.Unlock()

	m.clear(ctx)
	m.logger.InfoContext(ctx, "logged out", slog.String("user_id", userID))
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns the authenticated user, or nil.
func (m *Manager) CurrentUser() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// AccessToken returns the current access token, or empty when signed out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// IsAuthenticated reports whether a verified session is active. A session
// mid-refresh still counts as authenticated.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated || m.state == StateRefreshing
}

func (m *Manager) setAuthenticated(ctx context.Context, user *domain.User, access, refresh string) {
	m.mu.Lock()
	m.state = StateAuthenticated
	m.user = user
	m.accessToken = access
	m.refreshToken = refresh
	m.mu.Unlock()

	m.store.Set(ctx, keyAccessToken, access)
	if refresh != "" {
		m.store.Set(ctx, keyRefreshToken, refresh)
	}
	if user != nil {
		if raw, err := json.Marshal(user); err == nil {
			m.store.Set(ctx, keyUser, string(raw))
		}
	}
}

func (m *Manager) setUnauthenticated(_ context.Context) {
	m.mu.Lock()
	m.state = StateUnauthenticated
	m.user = nil
	m.accessToken = ""
	m.refreshToken = ""
	m.mu.Unlock()
}

func (m *Manager) clear(ctx context.Context) {
	m.setUnauthenticated(ctx)
	m.store.Remove(ctx, keyAccessToken)
	m.store.Remove(ctx, keyRefreshToken)
	m.store.Remove(ctx, keyUser)
}
