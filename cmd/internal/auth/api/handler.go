// Package authapi exposes registration and the session lifecycle over HTTP.
//
// Every credential or token failure answers the same 401 with
// WWW-Authenticate: Bearer; the precise reason goes to logs, metrics and audit only.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blog/cmd/identity"
	"blog/cmd/internal/auth/session"
	"blog/cmd/internal/httpx"
)

// Handler wires HTTP auth endpoints to the identity store and session manager.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	sessions *session.Manager
	audit    Auditor
	failures FailureCounter

	now func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAuditor overrides the default log-only auditor.
func WithAuditor(a Auditor) HandlerOption {
	return func(h *Handler) {
		if a != nil {
			h.audit = a
		}
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, sessions *session.Manager, opts ...HandlerOption) (*Handler, error) {
	if users == nil || sessions == nil {
		return nil, errors.New("authapi: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = httpx.DefaultMaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		audit:    LogAuditor{Log: log},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if fc, ok := h.audit.(FailureCounter); ok {
		h.failures = fc
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /refresh", h.handleRefresh)
	mux.HandleFunc("POST /logout", h.handleLogout)
	mux.HandleFunc("POST /logout-all", h.handleLogoutAll)
	mux.HandleFunc("GET /me", h.handleMe)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email, username and password are required")
		return
	}

	ctx := r.Context()
	u, err := h.users.CreateUser(ctx, identity.CreateUserInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Now:      h.now(),
	})
	if err != nil {
		if field, ok := identity.ConflictField(err); ok {
			switch field {
			case "email":
				httpx.WriteError(w, http.StatusConflict, "email_taken", "email already registered")
			case "username":
				httpx.WriteError(w, http.StatusConflict, "username_taken", "username already taken")
			default:
				httpx.WriteError(w, http.StatusConflict, "conflict", "email or username already exists")
			}
			return
		}
		if identity.IsInvalidInput(err) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", identity.InvalidReason(err))
			return
		}
		h.log.Error("auth.register.fail", "err", err)
		httpx.WriteInternal(w)
		return
	}

	h.record(r, "auth.register", u.ID, nil)
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)
	if limited, retry := h.loginThrottled(r.Context(), ip, now); limited {
		h.record(r, "auth.login.throttled", "", nil)
		writeRateLimited(w, retry)
		return
	}

	pair, err := h.sessions.Login(r.Context(), now, req.Email, req.Password)
	if err != nil {
		h.record(r, actionLoginFailed, "", failMeta(err))
		h.unauthorized(w, err)
		return
	}

	h.record(r, "auth.login.success", pair.UserID, nil)
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), h.now(), refreshToken)
	if err != nil {
		h.record(r, "auth.refresh.failed", "", failMeta(err))
		h.unauthorized(w, err)
		return
	}

	h.record(r, "auth.refresh.success", pair.UserID, nil)
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	tok, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	// A store failure leaves the token unrevoked; that is a 503, not a 401.
	if err := h.sessions.Logout(r.Context(), h.now(), tok); err != nil {
		if session.KindOf(err) == session.ErrStoreUnavailable {
			h.log.Error("auth.logout.store_unavailable", "err", err)
			httpx.WriteUnavailable(w)
			return
		}
		h.unauthorized(w, err)
		return
	}

	h.record(r, "auth.logout", "", nil)
	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: "successfully logged out"})
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	tok, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	if err := h.sessions.LogoutAll(r.Context(), h.now(), tok); err != nil {
		h.record(r, "auth.logout_all.failed", "", failMeta(err))
		h.unauthorized(w, err)
		return
	}

	h.record(r, "auth.logout_all", "", nil)
	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: "logged out from all devices"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	tok, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	p, err := h.sessions.Authenticate(r.Context(), h.now(), tok)
	if err != nil {
		h.unauthorized(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(p.User))
}

// unauthorized answers the shared 401. Non-session errors are unexpected and logged.
func (h *Handler) unauthorized(w http.ResponseWriter, err error) {
	if !session.IsUnauthorized(err) {
		h.log.Error("auth.unexpected_error", "err", err)
	}
	httpx.WriteUnauthorized(w)
}

func (h *Handler) record(r *http.Request, action, userID string, meta map[string]any) {
	h.audit.Record(r.Context(), AuditEvent{
		Action:    action,
		UserID:    userID,
		IP:        clientIP(r, h.cfg.TrustProxy),
		UserAgent: strings.TrimSpace(r.UserAgent()),
		Meta:      meta,
	})
}

func failMeta(err error) map[string]any {
	kind := session.KindOf(err)
	if kind == nil {
		return nil
	}
	return map[string]any{"reason": kind.Error()}
}
