package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/rentfolio/portal-server-go/internal/audit"
	"github.com/rentfolio/portal-server-go/internal/config"
	"github.com/rentfolio/portal-server-go/internal/middleware"
	"github.com/rentfolio/portal-server-go/internal/session"
	"github.com/rentfolio/portal-server-go/internal/util"
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// OAuthHandler runs the browser half of Google sign-in: redirect out with a
// state cookie, accept the callback, and hand the authorization code to the
// visitor's session store. The platform API performs the code exchange.
type OAuthHandler struct {
	oauthConfig  *oauth2.Config
	isProduction bool
}

func NewOAuthHandler(cfg *config.Config, isProduction bool) *OAuthHandler {
	var oauthConfig *oauth2.Config
	if cfg.GoogleLoginEnabled() {
		oauthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     googleEndpoint,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
		}
	}
	return &OAuthHandler{
		oauthConfig:  oauthConfig,
		isProduction: isProduction,
	}
}

func (h *OAuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/google", h.GoogleAuth)
	r.Get("/google/callback", h.GoogleCallback)

	return r
}

// GET /portal/oauth/google
func (h *OAuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "Google sign-in not configured"})
		return
	}

	state, err := util.GenerateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate oauth state")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to initiate sign-in"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.OAuthStateCookie,
		Value:    state,
		Path:     "/portal/oauth",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GET /portal/oauth/google/callback
func (h *OAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "Google sign-in not configured"})
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		log.Warn().Str("error", errMsg).Msg("oauth error from provider")
		http.Redirect(w, r, session.RouteLogin+"?error=oauth_denied", http.StatusTemporaryRedirect)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Redirect(w, r, session.RouteLogin+"?error=missing_params", http.StatusTemporaryRedirect)
		return
	}

	stateCookie, err := r.Cookie(config.OAuthStateCookie)
	if err != nil || !util.ConstantTimeEqual(stateCookie.Value, state) {
		log.Warn().Msg("oauth state mismatch")
		http.Redirect(w, r, session.RouteLogin+"?error=invalid_state", http.StatusTemporaryRedirect)
		return
	}

	// State cookie is single use.
	http.SetCookie(w, &http.Cookie{
		Name:   config.OAuthStateCookie,
		Path:   "/portal/oauth",
		MaxAge: -1,
	})

	store := middleware.GetStore(r.Context())
	result := store.LoginWithGoogle(r.Context(), code, audit.ClientIP(r), r.UserAgent())
	if !result.Success {
		http.Redirect(w, r, session.RouteLogin+"?error=oauth_failed", http.StatusTemporaryRedirect)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventGoogleLogin,
		UserID:    sessionUserID(store),
		VisitorID: store.VisitorID(),
	})

	http.Redirect(w, r, result.RedirectTo, http.StatusTemporaryRedirect)
}
