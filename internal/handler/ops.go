package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rentfolio/portal-server-go/internal/audit"
	"github.com/rentfolio/portal-server-go/internal/middleware"
	"github.com/rentfolio/portal-server-go/internal/notify"
	"github.com/rentfolio/portal-server-go/internal/session"
	"github.com/rentfolio/portal-server-go/internal/snapshot"
	"github.com/rentfolio/portal-server-go/internal/util"
)

// OpsHandler exposes operational status behind a bcrypt-hashed password.
// Not mounted when no password hash is configured.
type OpsHandler struct {
	passwordHash string
	manager      *session.Manager
	broker       *notify.Broker
	snapshots    snapshot.Store
	limiter      *middleware.LoginRateLimiter
	startedAt    time.Time
}

func NewOpsHandler(passwordHash string, manager *session.Manager, broker *notify.Broker, snapshots snapshot.Store) *OpsHandler {
	return &OpsHandler{
		passwordHash: passwordHash,
		manager:      manager,
		broker:       broker,
		snapshots:    snapshots,
		limiter:      middleware.NewLoginRateLimiter(),
		startedAt:    time.Now(),
	}
}

func (h *OpsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.limiter.Handler, h.requirePassword).Get("/status", h.Status)

	return r
}

func (h *OpsHandler) requirePassword(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, password, ok := r.BasicAuth()
		if !ok || h.passwordHash == "" || !util.CheckPasswordHash(password, h.passwordHash) {
			w.Header().Set("WWW-Authenticate", `Basic realm="ops"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		audit.LogFromRequest(r, audit.Event{Type: audit.EventOpsAccess})
		next.ServeHTTP(w, r)
	})
}

// GET /ops/status
func (h *OpsHandler) Status(w http.ResponseWriter, r *http.Request) {
	snapshotsHealthy := true
	if err := h.snapshots.Ping(r.Context()); err != nil {
		snapshotsHealthy = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uptimeSeconds":    int(time.Since(h.startedAt).Seconds()),
		"liveSessions":     h.manager.Count(),
		"connectedClients": h.broker.TotalClients(),
		"snapshotsHealthy": snapshotsHealthy,
	})
}
