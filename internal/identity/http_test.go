package identity

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/k1shan-k/lsspoing/pkg/errors"
	"github.com/k1shan-k/lsspoing/pkg/httpclient"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return NewHTTPClient(httpclient.New(cfg), srv.URL, 30, newTestLogger())
}

func TestLogin_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "emilys", body["username"])
		assert.Equal(t, "emilyspass", body["password"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 1,
			"username": "emilys",
			"firstName": "Emily",
			"lastName": "Johnson",
			"email": "emily.johnson@x.dummyjson.com",
			"image": "https://dummyjson.com/icon/emilys/128",
			"accessToken": "access-1",
			"refreshToken": "refresh-1"
		}`))
	}))

	session, err := client.Login(context.Background(), "emilys", "emilyspass")

	require.NoError(t, err)
	assert.Equal(t, "1", session.User.ID)
	assert.Equal(t, "Emily Johnson", session.User.DisplayName)
	assert.Equal(t, "emily.johnson@x.dummyjson.com", session.User.Email)
	assert.Equal(t, "https://dummyjson.com/icon/emilys/128", session.User.AvatarURL)
	assert.Equal(t, "access-1", session.Tokens.AccessToken)
	assert.Equal(t, "refresh-1", session.Tokens.RefreshToken)
}

func TestLogin_LegacyTokenField(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": 5, "name": "Ada Lovelace", "token": "tok-legacy", "refreshToken": "ref-legacy"}`))
	}))

	session, err := client.Login(context.Background(), "ada", "pw")

	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", session.User.DisplayName)
	assert.Equal(t, "tok-legacy", session.Tokens.AccessToken)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "Invalid credentials"}`))
	}))

	session, err := client.Login(context.Background(), "emilys", "wrong")

	assert.Nil(t, session)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestLogin_EmptyCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.Login(context.Background(), "", "")

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogin_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	client := NewHTTPClient(httpclient.New(cfg), url, 30, newTestLogger())

	_, err := client.Login(context.Background(), "emilys", "emilyspass")

	assert.ErrorIs(t, err, apperrors.ErrNetworkUnavailable)
}

func TestMe_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{
			"id": 1,
			"firstName": "Emily",
			"lastName": "Johnson",
			"email": "emily.johnson@x.dummyjson.com",
			"phone": "+81 965-431-3024",
			"address": {"address": "626 Main Street", "city": "Phoenix", "state": "Mississippi", "postalCode": "29112", "country": "United States"}
		}`))
	}))

	user, err := client.Me(context.Background(), "access-1")

	require.NoError(t, err)
	assert.Equal(t, "Emily Johnson", user.DisplayName)
	assert.Equal(t, "+81 965-431-3024", user.Phone)
	assert.Equal(t, "626 Main Street, Phoenix, Mississippi, 29112, United States", user.Address)
}

func TestMe_StringAddress(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": 2, "name": "Sam", "address": "1 Elm St"}`))
	}))

	user, err := client.Me(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "1 Elm St", user.Address)
}

func TestMe_ExpiredToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Token Expired!"}`))
	}))

	user, err := client.Me(context.Background(), "stale")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestRefresh_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refreshToken"])

		_, _ = w.Write([]byte(`{"accessToken": "access-2", "refreshToken": "refresh-2"}`))
	}))

	pair, err := client.Refresh(context.Background(), "refresh-1")

	require.NoError(t, err)
	assert.Equal(t, "access-2", pair.AccessToken)
	assert.Equal(t, "refresh-2", pair.RefreshToken)
}

func TestRefresh_Rejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "Invalid refresh token"}`))
	}))

	pair, err := client.Refresh(context.Background(), "bad")

	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestRefresh_EmptyToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.Refresh(context.Background(), "")

	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}
