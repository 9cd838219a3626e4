// Package http exposes the storefront over HTTP: session lifecycle, catalog
// browsing, and the signed-in user's cart and wishlist.
package http

import (
	"log/slog"
	"net/http"

	"github.com/k1shan-k/lsspoing/pkg/httputil"
	"github.com/k1shan-k/lsspoing/pkg/validator"

	"github.com/k1shan-k/lsspoing/internal/commerce"
	"github.com/k1shan-k/lsspoing/internal/session"
)

// SessionHandler handles HTTP requests for the session lifecycle.
type SessionHandler struct {
	sessions *session.Manager
	engine   *commerce.Engine
	logger   *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(sessions *session.Manager, engine *commerce.Engine, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		engine:   engine,
		logger:   logger,
	}
}

// LoginRequest is the JSON request body for logging in.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse describes the current session to the caller.
type SessionResponse struct {
	State         session.State `json:"state"`
	Authenticated bool          `json:"authenticated"`
	User          any           `json:"user,omitempty"`
}

// Login handles POST /api/v1/auth/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Bind the commerce collections to the user who just signed in.
	h.engine.Activate(r.Context(), user.ID)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SessionResponse{
		State:         h.sessions.State(),
		Authenticated: true,
		User:          user,
	}})
}

// Logout handles POST /api/v1/auth/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	h.engine.Deactivate()

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "logged_out"}})
}

// GetSession handles GET /api/v1/auth/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{
		State:         h.sessions.State(),
		Authenticated: h.sessions.IsAuthenticated(),
	}
	if user := h.sessions.CurrentUser(); user != nil {
		resp.User = user
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// Me handles GET /api/v1/auth/me
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.sessions.CurrentUser()
	if user == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.Refresh(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "refreshed"}})
}
