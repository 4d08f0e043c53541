package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/nautilus/internal/crypto"
	"github.com/iudanet/nautilus/internal/models"
	"github.com/iudanet/nautilus/internal/server/directory"
	"github.com/iudanet/nautilus/internal/server/jwt"
	"github.com/iudanet/nautilus/pkg/api"
)

// Одно сообщение для неизвестного идентификатора и неверного PIN
const msgInvalidCredentials = "invalid credentials"

const msgInvalidPinFormat = "PIN must be exactly 4 digits"

// AuthHandler обрабатывает /api/auth/{route...}
type AuthHandler struct {
	logger *slog.Logger
	users  UserDirectory
	tokens Tokens
	routes map[string]methods
}

// NewAuthHandler создает новый handler для авторизации пользователей
func NewAuthHandler(logger *slog.Logger, users UserDirectory, tokens Tokens) *AuthHandler {
	h := &AuthHandler{
		logger: logger,
		users:  users,
		tokens: tokens,
	}
	h.routes = map[string]methods{
		"login":           {http.MethodPost: h.Login},
		"verify":          {http.MethodGet: h.Verify},
		"setup":           {http.MethodPost: h.Setup},
		"change-username": {http.MethodPost: h.ChangeUsername},
		"change-email":    {http.MethodPost: h.ChangeEmail},
		"change-pin":      {http.MethodPost: h.ChangePin},
		"change-name":     {http.MethodPost: h.ChangeName},
		"logout":          {http.MethodPost: h.Logout},
	}
	return h
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	dispatch(h.logger, w, r, h.routes)
}

// authenticate возвращает claims пользовательского токена либо отвечает 401.
// Админские токены на пользовательских маршрутах не принимаются.
func (h *AuthHandler) authenticate(w http.ResponseWriter, r *http.Request) (*jwt.Claims, bool) {
	claims := h.tokens.VerifyRequest(r)
	if claims == nil || !claims.IsUser() {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

// issue подписывает новый токен для user и отправляет {token, user}
func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, user *models.User) {
	token, _, err := h.tokens.Sign(jwt.UserClaims(user.ID, user.Username, user.Name))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to sign token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.TokenResponse{Token: token, User: user.Projection()}, http.StatusOK)
}

// Login обрабатывает POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Identifier == "" || req.Pin == "" {
		sendError(h.logger, w, "identifier and pin are required", http.StatusBadRequest)
		return
	}
	// формат проверяется до поиска, чтобы ответ не зависел от существования аккаунта
	if !crypto.IsValidPin(req.Pin) {
		sendError(h.logger, w, msgInvalidPinFormat, http.StatusBadRequest)
		return
	}

	id, err := h.users.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		sendDirectoryError(ctx, h.logger, w, "login", err)
		return
	}
	if id == "" {
		h.logger.WarnContext(ctx, "login failed: unknown identifier")
		sendError(h.logger, w, msgInvalidCredentials, http.StatusUnauthorized)
		return
	}

	user, err := h.users.Get(ctx, id)
	if err != nil {
		// lookup-запись есть, а записи пользователя нет
		sendDirectoryError(ctx, h.logger, w, "login", err)
		return
	}

	if !h.users.VerifyUserPin(user, req.Pin) {
		h.logger.WarnContext(ctx, "login failed: invalid pin", slog.String("user_id", user.ID))
		sendError(h.logger, w, msgInvalidCredentials, http.StatusUnauthorized)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.Bool("needs_setup", user.NeedsSetup))

	h.issue(w, r, user)
}

// Verify обрабатывает GET /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "verify", err)
		return
	}

	sendJSON(h.logger, w, api.VerifyResponse{User: user.Projection()}, http.StatusOK)
}

// Setup обрабатывает POST /api/auth/setup, первичную настройку профиля
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req api.SetupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.CompleteSetup(ctx, claims.UserID, directory.SetupInput{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		NewPin:   req.NewPin,
	})
	if err != nil {
		sendDirectoryError(ctx, h.logger, w, "setup", err)
		return
	}

	// username мог измениться, выдаём новый токен
	h.issue(w, r, user)
}

// ChangeUsername обрабатывает POST /api/auth/change-username
func (h *AuthHandler) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req api.ChangeUsernameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.RenameUsername(r.Context(), claims.UserID, req.NewUsername)
	if err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "change-username", err)
		return
	}

	sendJSON(h.logger, w, api.ChangeUsernameResponse{Success: true, Username: user.Username}, http.StatusOK)
}

// ChangeEmail обрабатывает POST /api/auth/change-email
func (h *AuthHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req api.ChangeEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.ChangeEmail(r.Context(), claims.UserID, req.NewEmail)
	if err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "change-email", err)
		return
	}

	sendJSON(h.logger, w, api.ChangeEmailResponse{Success: true, Email: user.Email}, http.StatusOK)
}

// ChangePin обрабатывает POST /api/auth/change-pin
func (h *AuthHandler) ChangePin(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req api.ChangePinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.users.ChangePin(r.Context(), claims.UserID, req.CurrentPin, req.NewPin); err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "change-pin", err)
		return
	}

	sendJSON(h.logger, w, api.SuccessResponse{Success: true}, http.StatusOK)
}

// ChangeName обрабатывает POST /api/auth/change-name
func (h *AuthHandler) ChangeName(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req api.ChangeNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.ChangeName(r.Context(), claims.UserID, req.NewName)
	if err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "change-name", err)
		return
	}

	sendJSON(h.logger, w, api.ChangeNameResponse{Success: true, Name: user.Name}, http.StatusOK)
}

// Logout обрабатывает POST /api/auth/logout, отзывает текущий токен
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	revoke(h.logger, h.tokens, w, r, claims)
}

// revoke is shared by both logout routes
func revoke(logger *slog.Logger, tokens Tokens, w http.ResponseWriter, r *http.Request, claims *jwt.Claims) {
	if err := tokens.Revoke(r.Context(), claims); err != nil {
		if errors.Is(err, jwt.ErrInvalidToken) {
			sendError(logger, w, "unauthorized", http.StatusUnauthorized)
			return
		}
		logger.ErrorContext(r.Context(), "failed to revoke token", slog.Any("error", err))
		sendError(logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(logger, w, api.SuccessResponse{Success: true}, http.StatusOK)
}
