package model

import "time"

// SessionState is the session store's logical state.
type SessionState string

const (
	SessionAnonymous      SessionState = "anonymous"
	SessionAuthenticating SessionState = "authenticating"
	SessionAuthenticated  SessionState = "authenticated"
)

// Snapshot is the durable copy of a visitor's session. Token and User are
// both set or both nil; ExpiresAt is zero exactly when they are nil.
type Snapshot struct {
	Token     *string    `json:"token"`
	User      *User      `json:"user"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// IsZero reports whether the snapshot holds no session.
func (s Snapshot) IsZero() bool {
	return s.Token == nil && s.User == nil && s.ExpiresAt == nil
}

// IsExpired reports whether the snapshot's session has expired at the given
// instant. An empty snapshot is not expired, it is simply absent.
func (s Snapshot) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
