package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/nautilus/internal/server/directory"
	"github.com/iudanet/nautilus/internal/server/jwt"
	"github.com/iudanet/nautilus/internal/server/revocation"
	"github.com/iudanet/nautilus/internal/server/storage/memory"
	"github.com/iudanet/nautilus/pkg/api"
)

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

type testEnv struct {
	dir    *directory.Directory
	tokens *jwt.Service
	store  *memory.Storage
	mux    *http.ServeMux
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := setupTestLogger()
	store := memory.New()
	t.Cleanup(func() {
		_ = store.Close()
	})

	dir := directory.New(store, logger)
	tokens, err := jwt.NewService([]byte("test-secret"), time.Hour,
		jwt.WithDenylist(revocation.New(store, nil)))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/{route...}", NewAuthHandler(logger, dir, tokens))
	mux.Handle("/api/admin/{route...}", NewAdminHandler(logger, dir, tokens))

	return &testEnv{dir: dir, tokens: tokens, store: store, mux: mux}
}

// do отправляет запрос и возвращает recorder
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[api.ErrorResponse](t, w).Error
}

// adminToken входит с PIN администратора по умолчанию
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/admin/login", "", api.AdminLoginRequest{Pin: directory.DefaultAdminPin})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeBody[api.AdminLoginResponse](t, w).Token
}

// createUser создаёт пользователя через админский API
func (e *testEnv) createUser(t *testing.T, adminToken, username, pin string) api.UserResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/admin/users", adminToken,
		api.CreateUserRequest{Username: username, Name: username, TempPin: pin})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeBody[api.UserResponse](t, w)
}

// login входит пользователем и возвращает ответ
func (e *testEnv) login(t *testing.T, identifier, pin string) api.TokenResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/login", "", api.LoginRequest{Identifier: identifier, Pin: pin})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeBody[api.TokenResponse](t, w)
}
