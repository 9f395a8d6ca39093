package handler

import (
	"net/http"
	"time"

	"github.com/rentfolio/portal-server-go/internal/httputil"
	"github.com/rentfolio/portal-server-go/internal/model"
	"github.com/rentfolio/portal-server-go/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// requireUser re-reads the session user inside the handler body. The auth
// gate has already passed, but a logout from another tab can clear the
// session between the gate and here; that case ends as a 401, not a panic.
func requireUser(w http.ResponseWriter, store *session.Store) (*model.User, bool) {
	user := store.User()
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Your session has ended. Please sign in again."})
		return nil, false
	}
	return user, true
}

// sessionUserID is for audit fields only; a session cleared between the
// login result and the audit write logs as an empty user id.
func sessionUserID(store *session.Store) string {
	if user := store.User(); user != nil {
		return user.ID
	}
	return ""
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
