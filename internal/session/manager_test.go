package session

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/k1shan-k/lsspoing/pkg/errors"

	"github.com/k1shan-k/lsspoing/internal/domain"
	"github.com/k1shan-k/lsspoing/internal/identity"
	"github.com/k1shan-k/lsspoing/internal/store"
	"github.com/k1shan-k/lsspoing/internal/store/memory"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockIdentity is a scriptable identity.Client with call counters.
type mockIdentity struct {
	loginFn   func(ctx context.Context, username, password string) (*identity.Session, error)
	meFn      func(ctx context.Context, accessToken string) (*domain.User, error)
	refreshFn func(ctx context.Context, refreshToken string) (*identity.TokenPair, error)

	loginCalls   atomic.Int64
	meCalls      atomic.Int64
	refreshCalls atomic.Int64
}

func (m *mockIdentity) Login(ctx context.Context, username, password string) (*identity.Session, error) {
	m.loginCalls.Add(1)
	return m.loginFn(ctx, username, password)
}

func (m *mockIdentity) Me(ctx context.Context, accessToken string) (*domain.User, error) {
	m.meCalls.Add(1)
	return m.meFn(ctx, accessToken)
}

func (m *mockIdentity) Refresh(ctx context.Context, refreshToken string) (*identity.TokenPair, error) {
	m.refreshCalls.Add(1)
	return m.refreshFn(ctx, refreshToken)
}

func newTestStore() (*store.Store, *memory.Backend) {
	backend := memory.New()
	return store.New(backend, newTestLogger()), backend
}

var testUser = domain.User{ID: "1", DisplayName: "Emily Johnson", Email: "emily@example.com"}

func TestBootstrap_NoPersistedToken(t *testing.T) {
	st, _ := newTestStore()
	id := &mockIdentity{
		meFn: func(context.Context, string) (*domain.User, error) {
			t.Fatal("no verification expected without a persisted token")
			return nil, nil
		},
	}
	m := NewManager(id, st, newTestLogger())

	m.Bootstrap(context.Background())

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.False(t, m.IsAuthenticated())
}

func TestBootstrap_ValidPersistedToken(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	st.Set(ctx, keyAccessToken, "access-1")

	id := &mockIdentity{
		meFn: func(_ context.Context, token string) (*domain.User, error) {
			assert.Equal(t, "access-1", token)
			u := testUser
			return &u, nil
		},
	}
	m := NewManager(id, st, newTestLogger())

	m.Bootstrap(ctx)

	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "access-1", m.AccessToken())
	require.NotNil(t, m.CurrentUser())
	assert.Equal(t, "Emily Johnson", m.CurrentUser().DisplayName)
	assert.EqualValues(t, 1, id.meCalls.Load())
	assert.EqualValues(t, 0, id.refreshCalls.Load())
}

func TestBootstrap_RejectedTokenRecoveredByRefresh(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	st.Set(ctx, keyAccessToken, "stale")
	st.Set(ctx, keyRefreshToken, "refresh-1")

	id := &mockIdentity{
		meFn: func(_ context.Context, token string) (*domain.User, error) {
			if token == "stale" {
				return nil, apperrors.TokenExpired("")
			}
			u := testUser
			return &u, nil
		},
		refreshFn: func(_ context.Context, refreshToken string) (*identity.TokenPair, error) {
			assert.Equal(t, "refresh-1", refreshToken)
			return &identity.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
		},
	}
	m := NewManager(id, st, newTestLogger())

	m.Bootstrap(ctx)

	// Exactly one verification, one refresh, one re-verification.
	assert.EqualValues(t, 2, id.meCalls.Load())
	assert.EqualValues(t, 1, id.refreshCalls.Load())
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "access-2", m.AccessToken())

	persisted, ok := st.Get(ctx, keyAccessToken)
	require.True(t, ok)
	assert.Equal(t, "access-2", persisted)
}

func TestBootstrap_RefreshAlsoFailsClearsEverything(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	st.Set(ctx, keyAccessToken, "stale")
	st.Set(ctx, keyRefreshToken, "stale-refresh")

	id := &mockIdentity{
		meFn: func(context.Context, string) (*domain.User, error) {
			return nil, apperrors.TokenExpired("")
		},
		refreshFn: func(context.Context, string) (*identity.TokenPair, error) {
			return nil, apperrors.TokenExpired("")
		},
	}
	m := NewManager(id, st, newTestLogger())

	m.Bootstrap(ctx)

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.EqualValues(t, 1, id.meCalls.Load())
	assert.EqualValues(t, 1, id.refreshCalls.Load())

	_, ok := st.Get(ctx, keyAccessToken)
	assert.False(t, ok)
	_, ok = st.Get(ctx, keyRefreshToken)
	assert.False(t, ok)
}

func TestBootstrap_RefreshedTokenStillRejectedIsNotRetried(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	st.Set(ctx, keyAccessToken, "stale")
	st.Set(ctx, keyRefreshToken, "refresh-1")

	id := &mockIdentity{
		meFn: func(context.Context, string) (*domain.User, error) {
			return nil, apperrors.TokenExpired("")
		},
		refreshFn: func(context.Context, string) (*identity.TokenPair, error) {
			return &identity.TokenPair{AccessToken: "access-2"}, nil
		},
	}
	m := NewManager(id, st, newTestLogger())

	m.Bootstrap(ctx)

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.EqualValues(t, 2, id.meCalls.Load())
	assert.EqualValues(t, 1, id.refreshCalls.Load())
}

func TestBootstrap_RunsOnce(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	st.Set(ctx, keyAccessToken, "access-1")

	id := &mockIdentity{
		meFn: func(context.Context, string) (*domain.User, error) {
			u := testUser
			return &u, nil
		},
	}
	m := NewManager(id, st, newTestLogger())

	m.Bootstrap(ctx)
	m.Bootstrap(ctx)

	assert.EqualValues(t, 1, id.meCalls.Load())
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()

	id := &mockIdentity{
		loginFn: func(_ context.Context, username, password string) (*identity.Session, error) {
			assert.Equal(t, "emilys", username)
			return &identity.Session{
				User:   domain.User{ID: "1", DisplayName: "Emily"},
				Tokens: identity.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"},
			}, nil
		},
		meFn: func(context.Context, string) (*domain.User, error) {
			u := testUser
			return &u, nil
		},
	}
	m := NewManager(id, st, newTestLogger())

	user, err := m.Login(ctx, "emilys", "emilyspass")

	require.NoError(t, err)
	assert.Equal(t, "Emily Johnson", user.DisplayName)
	assert.Equal(t, StateAuthenticated, m.State())

	access, ok := st.Get(ctx, keyAccessToken)
	require.True(t, ok)
	assert.Equal(t, "access-1", access)
	refresh, ok := st.Get(ctx, keyRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "refresh-1", refresh)
	_, ok = st.Get(ctx, keyUser)
	assert.True(t, ok)
}

func TestLogin_ProfileFetchFailureKeepsLoginProfile(t *testing.T) {
	st, _ := newTestStore()
	id := &mockIdentity{
		loginFn: func(context.Context, string, string) (*identity.Session, error) {
			return &identity.Session{
				User:   domain.User{ID: "1", DisplayName: "Emily"},
				Tokens: identity.TokenPair{AccessToken: "access-1"},
			}, nil
		},
		meFn: func(context.Context, string) (*domain.User, error) {
			return nil, apperrors.NetworkUnavailable(assert.AnError)
		},
	}
	m := NewManager(id, st, newTestLogger())

	user, err := m.Login(context.Background(), "emilys", "emilyspass")

	require.NoError(t, err)
	assert.Equal(t, "Emily", user.DisplayName)
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestLogin_FailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	id := &mockIdentity{
		loginFn: func(context.Context, string, string) (*identity.Session, error) {
			return nil, apperrors.InvalidCredentials("Invalid credentials")
		},
	}
	m := NewManager(id, st, newTestLogger())

	user, err := m.Login(ctx, "emilys", "wrong")

	assert.Nil(t, user)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Equal(t, StateUnauthenticated, m.State())

	_, ok := st.Get(ctx, keyAccessToken)
	assert.False(t, ok)
}

func TestLogin_SecondConcurrentAttemptRejected(t *testing.T) {
	st, _ := newTestStore()
	release := make(chan struct{})
	id := &mockIdentity{
		loginFn: func(context.Context, string, string) (*identity.Session, error) {
			<-release
			return &identity.Session{
				User:   testUser,
				Tokens: identity.TokenPair{AccessToken: "access-1"},
			}, nil
		},
		meFn: func(context.Context, string) (*domain.User, error) {
			u := testUser
			return &u, nil
		},
	}
	m := NewManager(id, st, newTestLogger())

	firstDone := make(chan error, 1)
	go func() {
		_, err := m.Login(context.Background(), "emilys", "emilyspass")
		firstDone <- err
	}()

	// Wait for the first attempt to reach the identity call.
	require.Eventually(t, func() bool {
		return id.loginCalls.Load() == 1
	}, time.Second, time.Millisecond)

	_, err := m.Login(context.Background(), "emilys", "emilyspass")
	require.ErrorIs(t, err, apperrors.ErrConflict)

	close(release)
	require.NoError(t, <-firstDone)
	assert.EqualValues(t, 1, id.loginCalls.Load())
}

func TestRefresh_ConcurrentCallsCoalesce(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	st.Set(ctx, keyAccessToken, "access-1")
	st.Set(ctx, keyRefreshToken, "refresh-1")

	id := &mockIdentity{
		meFn: func(context.Context, string) (*domain.User, error) {
			u := testUser
			return &u, nil
		},
		refreshFn: func(context.Context, string) (*identity.TokenPair, error) {
			time.Sleep(100 * time.Millisecond) // hold the flight open
			return &identity.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
		},
	}
	m := NewManager(id, st, newTestLogger())
	m.Bootstrap(ctx)
	require.Equal(t, StateAuthenticated, m.State())

	const callers = 8
	tokens := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.Refresh(ctx)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, id.refreshCalls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-2", tokens[i])
	}
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestRefresh_RejectedTokenClearsSession(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	st.Set(ctx, keyAccessToken, "access-1")
	st.Set(ctx, keyRefreshToken, "refresh-1")

	id := &mockIdentity{
		meFn: func(context.Context, string) (*domain.User, error) {
			u := testUser
			return &u, nil
		},
		refreshFn: func(context.Context, string) (*identity.TokenPair, error) {
			return nil, apperrors.TokenExpired("")
		},
	}
	m := NewManager(id, st, newTestLogger())
	m.Bootstrap(ctx)

	_, err := m.Refresh(ctx)

	require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	assert.Equal(t, StateUnauthenticated, m.State())
	_, ok := st.Get(ctx, keyRefreshToken)
	assert.False(t, ok)
}

func TestRefresh_NetworkErrorKeepsSession(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	st.Set(ctx, keyAccessToken, "access-1")
	st.Set(ctx, keyRefreshToken, "refresh-1")

	id := &mockIdentity{
		meFn: func(context.Context, string) (*domain.User, error) {
			u := testUser
			return &u, nil
		},
		refreshFn: func(context.Context, string) (*identity.TokenPair, error) {
			return nil, apperrors.NetworkUnavailable(assert.AnError)
		},
	}
	m := NewManager(id, st, newTestLogger())
	m.Bootstrap(ctx)

	_, err := m.Refresh(ctx)

	require.ErrorIs(t, err, apperrors.ErrNetworkUnavailable)
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "access-1", m.AccessToken())
}

func TestRefresh_WithoutRefreshToken(t *testing.T) {
	st, _ := newTestStore()
	id := &mockIdentity{}
	m := NewManager(id, st, newTestLogger())

	_, err := m.Refresh(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	assert.EqualValues(t, 0, id.refreshCalls.Load())
}

func TestLogout_ClearsMemoryAndStore(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()
	st.Set(ctx, keyAccessToken, "access-1")
	st.Set(ctx, keyRefreshToken, "refresh-1")

	id := &mockIdentity{
		meFn: func(context.Context, string) (*domain.User, error) {
			u := testUser
			return &u, nil
		},
	}
	m := NewManager(id, st, newTestLogger())
	m.Bootstrap(ctx)
	require.True(t, m.IsAuthenticated())

	m.Logout(ctx)

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Nil(t, m.CurrentUser())
	assert.Empty(t, m.AccessToken())
	_, ok := st.Get(ctx, keyAccessToken)
	assert.False(t, ok)
	_, ok = st.Get(ctx, keyUser)
	assert.False(t, ok)
}
