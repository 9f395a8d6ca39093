package middleware

import (
	"context"
	"net/http"

	"github.com/rentfolio/portal-server-go/internal/session"
)

type contextKey string

const (
	visitorIDKey    contextKey = "visitorID"
	sessionStoreKey contextKey = "sessionStore"
)

// VisitorMiddleware resolves the request's visitor identity and attaches
// that visitor's session store to the context. Every handler downstream
// works against the injected store instead of shared process state.
type VisitorMiddleware struct {
	manager *session.Manager
}

func NewVisitorMiddleware(manager *session.Manager) *VisitorMiddleware {
	return &VisitorMiddleware{manager: manager}
}

func (m *VisitorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitorID := m.manager.Visitor(w, r)
		store := m.manager.StoreFor(r.Context(), visitorID)

		ctx := context.WithValue(r.Context(), visitorIDKey, visitorID)
		ctx = context.WithValue(ctx, sessionStoreKey, store)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetVisitorID returns the visitor ID attached by VisitorMiddleware.
func GetVisitorID(ctx context.Context) string {
	id, _ := ctx.Value(visitorIDKey).(string)
	return id
}

// GetStore returns the visitor's session store, or nil when the request
// did not pass through VisitorMiddleware.
func GetStore(ctx context.Context) *session.Store {
	store, _ := ctx.Value(sessionStoreKey).(*session.Store)
	return store
}

// WithStore attaches a store to the context. Intended for handler tests.
func WithStore(ctx context.Context, visitorID string, store *session.Store) context.Context {
	ctx = context.WithValue(ctx, visitorIDKey, visitorID)
	return context.WithValue(ctx, sessionStoreKey, store)
}

// RequireAuth rejects requests whose visitor has no authenticated session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := GetStore(r.Context())
		if store == nil || store.User() == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Authentication required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
