package session

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rentfolio/portal-server-go/internal/config"
	"github.com/rentfolio/portal-server-go/internal/util"
)

// Manager hands out one Store per visitor. The visitor is identified by an
// HMAC-signed HttpOnly cookie; the store is materialized from its persisted
// snapshot the first time this process sees the visitor, and evicted from
// memory after sitting idle (the durable snapshot outlives eviction).
type Manager struct {
	deps         Deps
	cookieSecret string
	secureCookie bool

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(deps Deps, cookieSecret string, secureCookie bool) *Manager {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		deps:         deps,
		cookieSecret: cookieSecret,
		secureCookie: secureCookie,
		stores:       make(map[string]*Store),
	}
}

// Visitor resolves the request's visitor ID, minting and setting a new
// signed cookie when absent or tampered with.
func (m *Manager) Visitor(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(config.VisitorCookie); err == nil {
		if id, ok := m.verify(cookie.Value); ok {
			return id
		}
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	http.SetCookie(w, &http.Cookie{
		Name:     config.VisitorCookie,
		Value:    m.sign(id),
		Path:     "/",
		MaxAge:   int((90 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (m *Manager) sign(id string) string {
	return id + "." + util.HmacSHA256(m.cookieSecret, id)
}

func (m *Manager) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !util.ConstantTimeEqual(sig, util.HmacSHA256(m.cookieSecret, id)) {
		return "", false
	}
	return id, true
}

// StoreFor returns the visitor's store, restoring it from the snapshot
// backend on first sight. Restore-time expiry enforcement lives in the
// store itself.
func (m *Manager) StoreFor(ctx context.Context, visitorID string) *Store {
	m.mu.Lock()
	store, ok := m.stores[visitorID]
	if ok {
		m.mu.Unlock()
		store.touch()
		return store
	}

	store = NewStore(visitorID, m.deps)
	m.stores[visitorID] = store
	m.mu.Unlock()

	snap, err := m.deps.Snapshots.Load(ctx, visitorID)
	if err != nil {
		// An unreadable snapshot downgrades to anonymous rather than
		// blocking the visitor.
		log.Error().Err(err).Str("visitorId", visitorID).Msg("failed to load session snapshot")
		return store
	}
	store.restore(ctx, snap)
	return store
}

// EvictIdle drops stores that have not been touched since the cutoff.
func (m *Manager) EvictIdle(olderThan time.Duration) int {
	cutoff := m.deps.Now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, store := range m.stores {
		if store.idleSince().Before(cutoff) {
			delete(m.stores, id)
			evicted++
		}
	}
	return evicted
}

// Count reports how many visitor stores are live in memory.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}
