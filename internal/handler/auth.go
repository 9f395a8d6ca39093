package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentfolio/portal-server-go/internal/audit"
	"github.com/rentfolio/portal-server-go/internal/middleware"
	"github.com/rentfolio/portal-server-go/internal/util"
)

// AuthHandler owns the credential endpoints. All session state lives in the
// visitor's injected store; the handler only translates HTTP to store calls.
type AuthHandler struct {
	loginRateLimiter *middleware.LoginRateLimiter
}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{
		loginRateLimiter: middleware.NewLoginRateLimiter(),
	}
}

// Register attaches the credential endpoints to the portal router.
func (h *AuthHandler) Register(r chi.Router) {
	r.With(h.loginRateLimiter.Handler).Post("/login", h.Login)
	r.With(h.loginRateLimiter.Handler).Post("/login/google", h.LoginWithGoogle)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
}

// POST /portal/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email and password are required"})
		return
	}
	if !util.IsValidEmail(req.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid email address"})
		return
	}

	result := store.Login(r.Context(), req.Email, req.Password, audit.ClientIP(r), r.UserAgent())

	if result.Success {
		audit.LogFromRequest(r, audit.Event{
			Type:      audit.EventLoginSuccess,
			UserID:    sessionUserID(store),
			VisitorID: store.VisitorID(),
			Details:   map[string]interface{}{"email": util.MaskEmail(req.Email)},
		})
		writeJSON(w, http.StatusOK, result)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventLoginFailure,
		VisitorID: store.VisitorID(),
		Details:   map[string]interface{}{"email": util.MaskEmail(req.Email)},
	})
	writeJSON(w, http.StatusOK, result)
}

// POST /portal/login/google
func (h *AuthHandler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Authorization code is required"})
		return
	}

	result := store.LoginWithGoogle(r.Context(), req.Code, audit.ClientIP(r), r.UserAgent())

	if result.Success {
		audit.LogFromRequest(r, audit.Event{
			Type:      audit.EventGoogleLogin,
			UserID:    sessionUserID(store),
			VisitorID: store.VisitorID(),
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /portal/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())

	if user := store.User(); user != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:      audit.EventLogout,
			UserID:    user.ID,
			VisitorID: store.VisitorID(),
		})
	}

	route := store.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"redirectTo": route})
}

// GET /portal/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())

	user := store.User()
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
		})
		return
	}

	snap := store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
		"primaryRole":   user.PrimaryRole(),
		"expiresAt":     formatTime(snap.ExpiresAt),
	})
}
