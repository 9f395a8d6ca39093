package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentfolio/portal-server-go/internal/config"
	"github.com/rentfolio/portal-server-go/internal/model"
)

func newTestManager(snaps *memSnapshots) *Manager {
	return NewManager(Deps{
		Auth:      new(mockAuthenticator),
		Snapshots: snaps,
		Notifier:  new(recordingNotifier),
		TTL:       time.Hour,
	}, "test-cookie-secret", false)
}

func TestVisitorMintsAndRoundTripsCookie(t *testing.T) {
	m := newTestManager(newMemSnapshots())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/portal/dashboard", nil)
	id := m.Visitor(w, r)
	require.NotEmpty(t, id)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, config.VisitorCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// Same cookie comes back: same visitor, no new cookie issued.
	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest(http.MethodGet, "/portal/dashboard", nil)
	r2.AddCookie(cookies[0])
	id2 := m.Visitor(w2, r2)

	assert.Equal(t, id, id2)
	assert.Empty(t, w2.Result().Cookies())
}

func TestVisitorRejectsTamperedCookie(t *testing.T) {
	m := newTestManager(newMemSnapshots())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	id := m.Visitor(w, r)
	cookie := w.Result().Cookies()[0]

	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(&http.Cookie{Name: cookie.Name, Value: "deadbeef.fakesignature"})
	id2 := m.Visitor(w2, r2)

	assert.NotEqual(t, id, id2)
	require.Len(t, w2.Result().Cookies(), 1)
}

func TestStoreForRestoresPersistedSession(t *testing.T) {
	snaps := newMemSnapshots()
	token := "abc"
	user := testUser()
	expiresAt := time.Now().Add(30 * time.Minute)
	snaps.data[visitorID] = model.Snapshot{Token: &token, User: &user, ExpiresAt: &expiresAt}

	m := newTestManager(snaps)
	store := m.StoreFor(context.Background(), visitorID)

	assert.Equal(t, model.SessionAuthenticated, store.State())
	assert.Equal(t, "abc", store.Token())

	// Second lookup returns the same materialized store.
	again := m.StoreFor(context.Background(), visitorID)
	assert.Same(t, store, again)
	assert.Equal(t, 1, m.Count())
}

func TestStoreForDiscardsExpiredSnapshot(t *testing.T) {
	snaps := newMemSnapshots()
	token := "abc"
	user := testUser()
	expiresAt := time.Now().Add(-time.Second)
	snaps.data[visitorID] = model.Snapshot{Token: &token, User: &user, ExpiresAt: &expiresAt}

	m := newTestManager(snaps)
	store := m.StoreFor(context.Background(), visitorID)

	assert.Equal(t, model.SessionAnonymous, store.State())
	assert.True(t, store.Snapshot().IsZero())
	assert.Empty(t, snaps.data)
}

func TestEvictIdle(t *testing.T) {
	m := newTestManager(newMemSnapshots())

	m.StoreFor(context.Background(), visitorID)
	assert.Equal(t, 1, m.Count())

	// Nothing is younger than a zero cutoff in the future direction.
	assert.Equal(t, 0, m.EvictIdle(time.Hour))
	assert.Equal(t, 1, m.Count())

	assert.Equal(t, 1, m.EvictIdle(-time.Second))
	assert.Equal(t, 0, m.Count())
}
