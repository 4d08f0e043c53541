package storage

import (
	"context"
	"time"
)

// SessionStorage stores the admin session of nautilusctl
type SessionStorage interface {
	// SaveSession replaces the stored session
	SaveSession(ctx context.Context, session *Session) error

	// GetSession returns ErrSessionNotFound if nobody is logged in
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the session; missing session is ErrSessionNotFound
	DeleteSession(ctx context.Context) error

	Close() error
}

// Session is a logged-in admin token and the server it belongs to
type Session struct {
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	ServerURL string    `json:"serverUrl"`
	Token     string    `json:"token"`
	Role      string    `json:"role"`
}

// Expired reports whether the token is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
