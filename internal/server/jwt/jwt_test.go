package jwt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

// fakeClock is a manually advanced clock
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// mockDenylist is a mock implementation of Denylist for testing
type mockDenylist struct {
	revoked map[string]time.Time
	err     error
}

func (m *mockDenylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.revoked[jti] = expiresAt
	return nil
}

func (m *mockDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

func newTestService(t *testing.T, opts ...Option) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	s, err := NewService(testSecret, time.Hour, opts...)
	require.NoError(t, err)
	return s, clock
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(nil, time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewService([]byte(""), time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewService(testSecret, 0)
	assert.Error(t, err)
}

func TestService_SignAndVerify(t *testing.T) {
	s, clock := newTestService(t)

	token, expiresAt, err := s.Sign(UserClaims("user-1", "moony", "Moony"))
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(time.Hour), expiresAt)

	claims := s.VerifyRequest(requestWithToken(token))
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "moony", claims.Username)
	assert.Equal(t, "Moony", claims.Name)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IsUser())
	assert.False(t, claims.IsAdmin())
}

func TestService_AdminClaims(t *testing.T) {
	s, _ := newTestService(t)

	token, _, err := s.Sign(AdminClaims())
	require.NoError(t, err)

	claims := s.VerifyRequest(requestWithToken(token))
	require.NotNil(t, claims)
	assert.True(t, claims.IsAdmin())
	assert.False(t, claims.IsUser())
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, MasterAdminID, claims.AdminID)
}

func TestService_Expiry(t *testing.T) {
	s, clock := newTestService(t)

	token, _, err := s.Sign(UserClaims("user-1", "moony", "Moony"))
	require.NoError(t, err)

	clock.now = clock.now.Add(59 * time.Minute)
	assert.NotNil(t, s.VerifyRequest(requestWithToken(token)), "token should still be valid")

	clock.now = clock.now.Add(time.Minute + time.Second)
	assert.Nil(t, s.VerifyRequest(requestWithToken(token)), "token should be expired")

	_, err = s.Parse(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_TamperedPayload(t *testing.T) {
	s, _ := newTestService(t)

	token, _, err := s.Sign(UserClaims("user-1", "moony", "Moony"))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	payload := []byte(parts[1])
	idx := len(payload) / 2
	if payload[idx] == 'A' {
		payload[idx] = 'B'
	} else {
		payload[idx] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	assert.Nil(t, s.VerifyRequest(requestWithToken(tampered)))
}

func TestService_WrongSecret(t *testing.T) {
	s, _ := newTestService(t)
	other, err := NewService([]byte("other-secret"), time.Hour, WithClock(s.now))
	require.NoError(t, err)

	token, _, err := other.Sign(UserClaims("user-1", "moony", "Moony"))
	require.NoError(t, err)

	assert.Nil(t, s.VerifyRequest(requestWithToken(token)))
}

func TestService_RejectsNoneAlgorithm(t *testing.T) {
	s, clock := newTestService(t)

	claims := UserClaims("user-1", "moony", "Moony")
	claims.RegisteredClaims = gjwt.RegisteredClaims{
		Issuer:    Issuer,
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Hour)),
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	assert.Nil(t, s.VerifyRequest(requestWithToken(token)))
}

func TestService_RejectsForeignIssuer(t *testing.T) {
	s, clock := newTestService(t)

	claims := UserClaims("user-1", "moony", "Moony")
	claims.RegisteredClaims = gjwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Hour)),
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	assert.Nil(t, s.VerifyRequest(requestWithToken(token)))
}

func TestService_Deterministic(t *testing.T) {
	s, _ := newTestService(t, WithIDGenerator(func() string { return "fixed-id" }))

	token1, _, err := s.Sign(UserClaims("user-1", "moony", "Moony"))
	require.NoError(t, err)
	token2, _, err := s.Sign(UserClaims("user-1", "moony", "Moony"))
	require.NoError(t, err)

	assert.Equal(t, token1, token2)
}

func TestService_VerifyRequest_MalformedHeaders(t *testing.T) {
	s, _ := newTestService(t)

	token, _, err := s.Sign(UserClaims("user-1", "moony", "Moony"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		valid  bool
	}{
		{"missing header", "", false},
		{"scheme only", "Bearer", false},
		{"empty token", "Bearer ", false},
		{"basic scheme", "Basic " + token, false},
		{"garbage token", "Bearer not.a.token", false},
		{"lowercase scheme", "bearer " + token, true},
		{"valid", "Bearer " + token, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			assert.NotPanics(t, func() {
				claims := s.VerifyRequest(req)
				assert.Equal(t, tt.valid, claims != nil)
			})
		})
	}
}

func TestService_Revoke(t *testing.T) {
	denylist := &mockDenylist{revoked: make(map[string]time.Time)}
	s, clock := newTestService(t, WithDenylist(denylist))

	token, _, err := s.Sign(UserClaims("user-1", "moony", "Moony"))
	require.NoError(t, err)

	claims := s.VerifyRequest(requestWithToken(token))
	require.NotNil(t, claims)

	require.NoError(t, s.Revoke(context.Background(), claims))
	revokedUntil := denylist.revoked[claims.ID]
	assert.True(t, clock.now.Add(time.Hour).Equal(revokedUntil), revokedUntil)
	assert.Equal(t, time.UTC, revokedUntil.Location())

	assert.Nil(t, s.VerifyRequest(requestWithToken(token)))

	_, err = s.Parse(context.Background(), token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestService_DenylistFailureFailsClosed(t *testing.T) {
	denylist := &mockDenylist{revoked: make(map[string]time.Time)}
	s, _ := newTestService(t, WithDenylist(denylist))

	token, _, err := s.Sign(UserClaims("user-1", "moony", "Moony"))
	require.NoError(t, err)

	denylist.err = errors.New("store down")
	assert.Nil(t, s.VerifyRequest(requestWithToken(token)))
}

func TestService_RevokeWithoutDenylist(t *testing.T) {
	s, _ := newTestService(t)

	token, _, err := s.Sign(AdminClaims())
	require.NoError(t, err)
	claims := s.VerifyRequest(requestWithToken(token))
	require.NotNil(t, claims)

	assert.Error(t, s.Revoke(context.Background(), claims))
}
