package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/nautilus/internal/client/storage"
)

var (
	// ErrNotLoggedIn is returned by commands that need a saved session
	ErrNotLoggedIn = errors.New("not logged in: run 'nautilusctl login' first")
	// ErrSessionExpired is returned when the saved token is past its expiry
	ErrSessionExpired = errors.New("session expired: run 'nautilusctl login' again")
)

// adminSession is a live session plus the client bound to its server
type adminSession struct {
	session *storage.Session
	client  AdminAPI
}

func withSessions(ctx context.Context, opts *RootOptions, fn func(storage.SessionStorage) error) error {
	sessions, err := opts.OpenSessions(ctx, opts.Session)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer func() {
		_ = sessions.Close()
	}()

	return fn(sessions)
}

// withAdmin loads a live session and runs fn against its server
func withAdmin(ctx context.Context, opts *RootOptions, fn func(*adminSession) error) error {
	return withSessions(ctx, opts, func(sessions storage.SessionStorage) error {
		session, err := sessions.GetSession(ctx)
		if errors.Is(err, storage.ErrSessionNotFound) {
			return ErrNotLoggedIn
		}
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}
		if session.Expired(opts.Now()) {
			return ErrSessionExpired
		}

		return fn(&adminSession{
			session: session,
			client:  opts.NewClient(session.ServerURL),
		})
	})
}

// tokenExpiry reads exp without verifying the signature; the client never holds the secret
func tokenExpiry(token string) time.Time {
	claims := &gjwt.RegisteredClaims{}
	if _, _, err := gjwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// readPin takes the flag value if set, otherwise prompts without echo
func readPin(opts *RootOptions, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	pin, err := opts.IO.ReadPin(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	if pin == "" {
		return "", errors.New("PIN cannot be empty")
	}
	return pin, nil
}
