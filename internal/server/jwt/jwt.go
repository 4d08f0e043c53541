// Package jwt issues and verifies the signed bearer tokens used by the
// auth and admin endpoints.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/ksuid"
)

const (
	// Issuer is written into and required from every token
	Issuer = "nautilus"
	// RoleAdmin marks admin tokens
	RoleAdmin = "admin"
	// MasterAdminID is the only admin identity
	MasterAdminID = "master"
)

var (
	// ErrMissingSecret is returned by NewService for an empty secret
	ErrMissingSecret = errors.New("jwt secret is required")
	// ErrInvalidToken covers malformed, badly signed and expired tokens
	ErrInvalidToken = errors.New("invalid token")
	// ErrRevokedToken is returned for tokens on the denylist
	ErrRevokedToken = errors.New("token revoked")
)

// Claims represents JWT claims.
// User tokens carry UserID/Username/Name, admin tokens carry Role/AdminID.
type Claims struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	AdminID  string `json:"adminId,omitempty"`
	gjwt.RegisteredClaims
}

// UserClaims builds the normal-user claim set
func UserClaims(userID, username, name string) Claims {
	return Claims{UserID: userID, Username: username, Name: name}
}

// AdminClaims builds the master admin claim set
func AdminClaims() Claims {
	return Claims{Role: RoleAdmin, AdminID: MasterAdminID}
}

// IsAdmin reports whether the token was issued by admin login
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin && c.AdminID == MasterAdminID
}

// IsUser reports whether the token belongs to a regular account
func (c *Claims) IsUser() bool {
	return c.Role != RoleAdmin && c.UserID != ""
}

// Denylist stores identifiers of revoked tokens
type Denylist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service provides JWT token generation and validation
type Service struct {
	denylist Denylist
	now      func() time.Time
	newID    func() string
	secret   []byte
	ttl      time.Duration
}

// Option customises a Service
type Option func(*Service)

// WithClock replaces time.Now, mostly for expiry tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the KSUID token id generator
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// WithDenylist enables revocation checks
func WithDenylist(d Denylist) Option {
	return func(s *Service) {
		s.denylist = d
	}
}

// NewService creates a new JWT service.
// There is no fallback secret: an empty one is an error.
func NewService(secret []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	s := &Service{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
		newID: func() string {
			return ksuid.New().String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// TTL returns the fixed token lifetime
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Sign stamps iat/nbf/exp/jti onto claims and returns the signed token and its expiry
func (s *Service) Sign(claims Claims) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims.RegisteredClaims = gjwt.RegisteredClaims{
		Issuer:    Issuer,
		ID:        s.newID(),
		IssuedAt:  gjwt.NewNumericDate(now),
		NotBefore: gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(expiresAt),
	}

	token := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, claims.ExpiresAt.Time, nil
}

// Parse validates signature, issuer, expiry and revocation status
func (s *Service) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := gjwt.ParseWithClaims(tokenString, claims,
		func(token *gjwt.Token) (interface{}, error) {
			// Проверяем что используется правильный алгоритм подписи
			if _, ok := token.Method.(*gjwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		gjwt.WithValidMethods([]string{gjwt.SigningMethodHS256.Alg()}),
		gjwt.WithIssuer(Issuer),
		gjwt.WithExpirationRequired(),
		gjwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}

	return claims, nil
}

// VerifyRequest returns the claims of the request's bearer token, or nil when
// the token is missing, malformed, expired, revoked or badly signed.
func (s *Service) VerifyRequest(r *http.Request) *Claims {
	tokenString, ok := BearerToken(r)
	if !ok {
		return nil
	}

	claims, err := s.Parse(r.Context(), tokenString)
	if err != nil {
		return nil
	}

	return claims
}

// Revoke puts the token id on the denylist until the token would expire anyway
func (s *Service) Revoke(ctx context.Context, claims *Claims) error {
	if s.denylist == nil {
		return fmt.Errorf("revocation is not configured")
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return fmt.Errorf("%w: token has no id or expiry", ErrInvalidToken)
	}

	// NumericDate разбирается в time.Local, денилист хранит UTC
	return s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.UTC())
}

// BearerToken извлекает токен из заголовка "Authorization: Bearer <token>"
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
