package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/nautilus/internal/server/jwt"
	"github.com/iudanet/nautilus/pkg/api"
)

func TestAuth_EndToEndSetup(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminToken(t)

	created := env.createUser(t, admin, "moony", "1234")
	assert.True(t, created.Success)
	assert.Equal(t, "1234", created.User.TempPin)
	assert.True(t, created.User.NeedsSetup)

	login := env.login(t, "moony", "1234")
	assert.NotEmpty(t, login.Token)
	assert.True(t, login.User.NeedsSetup)
	assert.Empty(t, login.User.TempPin)

	w := env.do(t, http.MethodPost, "/api/auth/setup", login.Token, api.SetupRequest{
		Username: "moo",
		Name:     "Remus",
		Email:    "remus@example.com",
		NewPin:   "4321",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	setup := decodeBody[api.TokenResponse](t, w)
	assert.False(t, setup.User.NeedsSetup)
	assert.Equal(t, "moo", setup.User.Username)
	require.NotNil(t, setup.User.SetupCompletedAt)

	// новый токен несёт новый username
	w = env.do(t, http.MethodGet, "/api/auth/verify", setup.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "moo", decodeBody[api.VerifyResponse](t, w).User.Username)

	// вход по email и новым PIN
	relogin := env.login(t, "Remus@Example.com", "4321")
	assert.False(t, relogin.User.NeedsSetup)
}

func TestAuth_LoginFailuresLookAlike(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, env.adminToken(t), "moony", "1234")

	unknown := env.do(t, http.MethodPost, "/api/auth/login", "", api.LoginRequest{Identifier: "padfoot", Pin: "1234"})
	wrongPin := env.do(t, http.MethodPost, "/api/auth/login", "", api.LoginRequest{Identifier: "moony", Pin: "0000"})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPin.Code)
	assert.Equal(t, unknown.Body.String(), wrongPin.Body.String())
	assert.Equal(t, "invalid credentials", errorOf(t, unknown))
}

func TestAuth_LoginBadRequest(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing pin", api.LoginRequest{Identifier: "moony"}},
		{"missing identifier", api.LoginRequest{Pin: "1234"}},
		{"not json", "just a string"},
		{"short pin", api.LoginRequest{Identifier: "moony", Pin: "12"}},
		{"letters in pin", api.LoginRequest{Identifier: "moony", Pin: "abcd"}},
		{"long pin", api.LoginRequest{Identifier: "moony", Pin: "123456"}},
		{"malformed pin for unknown user", api.LoginRequest{Identifier: "padfoot", Pin: "12"}},
	}

	// аккаунт существует: 400 не должен зависеть от поиска
	admin := env.adminToken(t)
	env.createUser(t, admin, "moony", "1234")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestAuth_LoginDanglingLookup(t *testing.T) {
	env := setupTestEnv(t)
	require.NoError(t, env.store.Put(context.Background(), "user:username:ghost", []byte("missing-id")))

	w := env.do(t, http.MethodPost, "/api/auth/login", "", api.LoginRequest{Identifier: "ghost", Pin: "1234"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "user not found", errorOf(t, w))
}

func TestAuth_RequiresUserToken(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminToken(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/verify"},
		{http.MethodPost, "/api/auth/setup"},
		{http.MethodPost, "/api/auth/change-username"},
		{http.MethodPost, "/api/auth/change-email"},
		{http.MethodPost, "/api/auth/change-pin"},
		{http.MethodPost, "/api/auth/change-name"},
		{http.MethodPost, "/api/auth/logout"},
	}

	for _, rt := range routes {
		t.Run(rt.path, func(t *testing.T) {
			for _, token := range []string{"", "garbage", admin} {
				w := env.do(t, rt.method, rt.path, token, map[string]string{})
				assert.Equal(t, http.StatusUnauthorized, w.Code)
			}
		})
	}
}

func TestAuth_ChangePin(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, env.adminToken(t), "moony", "1234")
	token := env.login(t, "moony", "1234").Token

	w := env.do(t, http.MethodPost, "/api/auth/change-pin", token, api.ChangePinRequest{CurrentPin: "9999", NewPin: "5678"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "current PIN is incorrect", errorOf(t, w))

	// старый PIN по-прежнему работает
	env.login(t, "moony", "1234")

	w = env.do(t, http.MethodPost, "/api/auth/change-pin", token, api.ChangePinRequest{CurrentPin: "1234", NewPin: "56"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/change-pin", token, api.ChangePinRequest{CurrentPin: "1234", NewPin: "5678"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[api.SuccessResponse](t, w).Success)

	env.login(t, "moony", "5678")
}

func TestAuth_ProfileChanges(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminToken(t)
	env.createUser(t, admin, "moony", "1234")
	env.createUser(t, admin, "padfoot", "1111")
	token := env.login(t, "moony", "1234").Token

	w := env.do(t, http.MethodPost, "/api/auth/change-username", token, api.ChangeUsernameRequest{NewUsername: "padfoot"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/change-username", token, api.ChangeUsernameRequest{NewUsername: "no"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/change-username", token, api.ChangeUsernameRequest{NewUsername: "Lupin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, api.ChangeUsernameResponse{Success: true, Username: "lupin"}, decodeBody[api.ChangeUsernameResponse](t, w))

	w = env.do(t, http.MethodPost, "/api/auth/change-email", token, api.ChangeEmailRequest{NewEmail: "Lupin@Example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lupin@example.com", decodeBody[api.ChangeEmailResponse](t, w).Email)

	w = env.do(t, http.MethodPost, "/api/auth/change-email", token, api.ChangeEmailRequest{NewEmail: "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/change-name", token, api.ChangeNameRequest{NewName: strings.Repeat("x", 51)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/change-name", token, api.ChangeNameRequest{NewName: "Remus"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Remus", decodeBody[api.ChangeNameResponse](t, w).Name)

	env.login(t, "lupin", "1234")
	env.login(t, "lupin@example.com", "1234")
}

func TestAuth_VerifyDeletedUser(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminToken(t)
	created := env.createUser(t, admin, "moony", "1234")
	token := env.login(t, "moony", "1234").Token

	w := env.do(t, http.MethodPost, "/api/admin/users/delete", admin, api.DeleteUserRequest{UserID: created.User.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/auth/verify", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuth_Logout(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, env.adminToken(t), "moony", "1234")
	token := env.login(t, "moony", "1234").Token

	w := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/auth/verify", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	claims, err := env.tokens.Parse(context.Background(), token)
	assert.ErrorIs(t, err, jwt.ErrRevokedToken)
	assert.Nil(t, claims)
}

func TestAuth_Dispatch(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", errorOf(t, w))

	w = env.do(t, http.MethodGet, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "POST", w.Header().Get("Allow"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
