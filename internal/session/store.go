// Package session holds the per-visitor authentication state: token,
// current user and expiry. The store is the single writer of that state;
// every consumer reads an immutable snapshot.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rentfolio/portal-server-go/internal/gateway"
	"github.com/rentfolio/portal-server-go/internal/model"
	"github.com/rentfolio/portal-server-go/internal/snapshot"
)

// Routes handed to the surrounding routing layer. The store never
// navigates; it only names the target.
const (
	RouteLogin     = "/portal/login"
	RouteDashboard = "/portal/dashboard"
)

// Authenticator is the credential-exchange surface of the gateway client.
type Authenticator interface {
	Login(ctx context.Context, email, password, clientIP, userAgent string) (*gateway.LoginPayload, error)
	LoginWithGoogle(ctx context.Context, code, clientIP, userAgent string) (*gateway.LoginPayload, error)
}

// Notifier is the user-visible side channel. Auth failures terminate here,
// never as errors thrown past the store's boundary.
type Notifier interface {
	Notify(ctx context.Context, visitorID, level, message string)
}

// LoginResult tells the caller what happened and where to send the visitor.
type LoginResult struct {
	Success    bool   `json:"success"`
	RedirectTo string `json:"redirectTo"`
	Message    string `json:"message,omitempty"`
}

// Deps are the store's injected collaborators.
type Deps struct {
	Auth      Authenticator
	Snapshots snapshot.Store
	Notifier  Notifier
	TTL       time.Duration
	Now       func() time.Time
}

type Store struct {
	visitorID string
	deps      Deps

	mu        sync.Mutex
	state     model.SessionState
	token     *string
	user      *model.User
	expiresAt *time.Time
	lastSeen  time.Time
}

func NewStore(visitorID string, deps Deps) *Store {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Store{
		visitorID: visitorID,
		deps:      deps,
		state:     model.SessionAnonymous,
		lastSeen:  deps.Now(),
	}
}

// restore adopts a persisted snapshot. An expired snapshot is discarded
// before any consumer can observe it, and its durable copy is deleted.
func (s *Store) restore(ctx context.Context, snap model.Snapshot) {
	if snap.IsZero() {
		return
	}

	if snap.IsExpired(s.deps.Now()) || snap.Token == nil || snap.User == nil {
		log.Debug().Str("visitorId", s.visitorID).Msg("discarding stale session snapshot")
		if err := s.deps.Snapshots.Delete(ctx, s.visitorID); err != nil {
			log.Error().Err(err).Str("visitorId", s.visitorID).Msg("failed to delete stale snapshot")
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = snap.Token
	s.user = snap.User
	s.expiresAt = snap.ExpiresAt
	s.state = model.SessionAuthenticated
}

// Login exchanges credentials with the platform. On success the session
// becomes authenticated for one TTL window and the snapshot is persisted;
// on failure the previous state is untouched. A concurrent attempt while
// one is in flight is rejected rather than racing last-write-wins.
func (s *Store) Login(ctx context.Context, email, password, clientIP, userAgent string) LoginResult {
	return s.authenticate(ctx, func() (*gateway.LoginPayload, error) {
		return s.deps.Auth.Login(ctx, email, password, clientIP, userAgent)
	})
}

// LoginWithGoogle has the same contract as Login, using an OAuth
// authorization code instead of a password.
func (s *Store) LoginWithGoogle(ctx context.Context, code, clientIP, userAgent string) LoginResult {
	return s.authenticate(ctx, func() (*gateway.LoginPayload, error) {
		return s.deps.Auth.LoginWithGoogle(ctx, code, clientIP, userAgent)
	})
}

func (s *Store) authenticate(ctx context.Context, exchange func() (*gateway.LoginPayload, error)) LoginResult {
	s.mu.Lock()
	if s.state == model.SessionAuthenticating {
		s.mu.Unlock()
		s.deps.Notifier.Notify(ctx, s.visitorID, "warning", "A sign-in is already in progress")
		return LoginResult{Success: false, RedirectTo: RouteLogin, Message: "A sign-in is already in progress"}
	}
	s.state = model.SessionAuthenticating
	s.lastSeen = s.deps.Now()
	s.mu.Unlock()

	payload, err := exchange()
	if err != nil || payload == nil {
		// Restore from the token, not a captured state: a logout that
		// interleaved with the exchange must leave the session anonymous.
		s.mu.Lock()
		if s.token != nil {
			s.state = model.SessionAuthenticated
		} else {
			s.state = model.SessionAnonymous
		}
		s.mu.Unlock()

		log.Warn().Err(err).Str("visitorId", s.visitorID).Msg("login failed")
		s.deps.Notifier.Notify(ctx, s.visitorID, "error", "Sign-in failed. Check your credentials and try again.")
		return LoginResult{Success: false, RedirectTo: RouteLogin, Message: "Sign-in failed"}
	}

	expiresAt := s.deps.Now().Add(s.deps.TTL)
	user := payload.User

	s.mu.Lock()
	s.token = &payload.Token
	s.user = &user
	s.expiresAt = &expiresAt
	s.state = model.SessionAuthenticated
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.deps.Notifier.Notify(ctx, s.visitorID, "success", "Signed in as "+user.Email)

	return LoginResult{Success: true, RedirectTo: RouteDashboard}
}

// Logout clears the session and its durable copy. Idempotent: logging out
// an anonymous session only yields the navigation signal.
func (s *Store) Logout(ctx context.Context) string {
	s.mu.Lock()
	hadSession := s.token != nil
	s.token = nil
	s.user = nil
	s.expiresAt = nil
	s.state = model.SessionAnonymous
	s.mu.Unlock()

	if err := s.deps.Snapshots.Delete(ctx, s.visitorID); err != nil {
		log.Error().Err(err).Str("visitorId", s.visitorID).Msg("failed to clear session snapshot")
	}

	if hadSession {
		log.Info().Str("visitorId", s.visitorID).Msg("signed out")
	}
	return RouteLogin
}

// UpdateUser shallow-merges the given fields into the current user record.
// With no user present it is a no-op, not an error. Merged data is not
// re-validated; the caller owns correctness.
func (s *Store) UpdateUser(ctx context.Context, patch model.UserPatch) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	merged := s.user.Merge(patch)
	s.user = &merged
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
}

// Snapshot returns an immutable copy of the session state.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() model.Snapshot {
	var snap model.Snapshot
	if s.token != nil {
		token := *s.token
		snap.Token = &token
	}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	if s.expiresAt != nil {
		expiresAt := *s.expiresAt
		snap.ExpiresAt = &expiresAt
	}
	return snap
}

// Token returns the current bearer token, or "" when anonymous. Wired into
// the gateway client as its TokenSource so every outgoing request reads the
// token at send time.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return ""
	}
	return *s.token
}

// User returns a copy of the current user, or nil when anonymous.
func (s *Store) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

func (s *Store) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) VisitorID() string {
	return s.visitorID
}

func (s *Store) touch() {
	s.mu.Lock()
	s.lastSeen = s.deps.Now()
	s.mu.Unlock()
}

func (s *Store) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// persist writes the committed snapshot. A write failure never rolls back
// the in-memory commit; it is logged and surfaced on the side channel.
func (s *Store) persist(ctx context.Context, snap model.Snapshot) {
	if err := s.deps.Snapshots.Save(ctx, s.visitorID, snap); err != nil {
		log.Error().Err(err).Str("visitorId", s.visitorID).Msg("failed to persist session snapshot")
		s.deps.Notifier.Notify(ctx, s.visitorID, "warning", "Your session could not be saved; you may be signed out after a restart.")
	}
}
