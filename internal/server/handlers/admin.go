package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/nautilus/internal/crypto"
	"github.com/iudanet/nautilus/internal/models"
	"github.com/iudanet/nautilus/internal/server/jwt"
	"github.com/iudanet/nautilus/pkg/api"
)

// AdminHandler обрабатывает /api/admin/{route...}
type AdminHandler struct {
	logger *slog.Logger
	admin  AdminDirectory
	tokens Tokens
	routes map[string]methods
}

// NewAdminHandler создает новый handler для админских маршрутов
func NewAdminHandler(logger *slog.Logger, admin AdminDirectory, tokens Tokens) *AdminHandler {
	h := &AdminHandler{
		logger: logger,
		admin:  admin,
		tokens: tokens,
	}
	h.routes = map[string]methods{
		"login":        {http.MethodPost: h.Login},
		"users":        {http.MethodGet: h.requireAdmin(h.ListUsers), http.MethodPost: h.requireAdmin(h.CreateUser)},
		"users/reset":  {http.MethodPost: h.requireAdmin(h.ResetUser)},
		"users/delete": {http.MethodPost: h.requireAdmin(h.DeleteUser)},
		"change-pin":   {http.MethodPost: h.requireAdmin(h.ChangePin)},
		"logout":       {http.MethodPost: h.requireAdmin(h.Logout)},
	}
	return h
}

// ServeHTTP засевает запись администратора при первом обращении и маршрутизирует запрос
func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := h.admin.EnsureAdmin(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to ensure admin record", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	dispatch(h.logger, w, r, h.routes)
}

// requireAdmin пропускает только токены с role=admin
func (h *AdminHandler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := h.tokens.VerifyRequest(r)
		if claims == nil || !claims.IsAdmin() {
			sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(withClaims(r.Context(), claims)))
	}
}

// Login обрабатывает POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.AdminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Pin == "" {
		sendError(h.logger, w, "pin is required", http.StatusBadRequest)
		return
	}
	if !crypto.IsValidPin(req.Pin) {
		sendError(h.logger, w, msgInvalidPinFormat, http.StatusBadRequest)
		return
	}

	ok, err := h.admin.VerifyAdminPin(ctx, req.Pin)
	if err != nil {
		sendDirectoryError(ctx, h.logger, w, "admin-login", err)
		return
	}
	if !ok {
		h.logger.WarnContext(ctx, "admin login failed")
		sendError(h.logger, w, msgInvalidCredentials, http.StatusUnauthorized)
		return
	}

	token, _, err := h.tokens.Sign(jwt.AdminClaims())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to sign admin token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "admin logged in")

	sendJSON(h.logger, w, api.AdminLoginResponse{Token: token, Role: jwt.RoleAdmin}, http.StatusOK)
}

// ListUsers обрабатывает GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.List(r.Context())
	if err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "list-users", err)
		return
	}

	views := make([]models.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.Projection())
	}

	sendJSON(h.logger, w, api.UserListResponse{
		Users: views,
		Total: len(views),
		Max:   h.admin.Capacity(),
	}, http.StatusOK)
}

// CreateUser обрабатывает POST /api/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, tempPin, err := h.admin.CreateUser(r.Context(), req.Username, req.Name, req.TempPin)
	if err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "create-user", err)
		return
	}

	view := user.Projection()
	view.TempPin = tempPin
	sendJSON(h.logger, w, api.UserResponse{Success: true, User: view}, http.StatusOK)
}

// ResetUser обрабатывает POST /api/admin/users/reset
func (h *AdminHandler) ResetUser(w http.ResponseWriter, r *http.Request) {
	var req api.ResetUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		sendError(h.logger, w, "userId is required", http.StatusBadRequest)
		return
	}

	user, tempPin, err := h.admin.ResetUser(r.Context(), req.UserID, req.NewTempPin)
	if err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "reset-user", err)
		return
	}

	view := user.Projection()
	view.TempPin = tempPin
	sendJSON(h.logger, w, api.UserResponse{Success: true, User: view}, http.StatusOK)
}

// DeleteUser обрабатывает POST /api/admin/users/delete
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req api.DeleteUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		sendError(h.logger, w, "userId is required", http.StatusBadRequest)
		return
	}

	if err := h.admin.DeleteUser(r.Context(), req.UserID); err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "delete-user", err)
		return
	}

	sendJSON(h.logger, w, api.SuccessResponse{Success: true}, http.StatusOK)
}

// ChangePin обрабатывает POST /api/admin/change-pin
func (h *AdminHandler) ChangePin(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.admin.ChangeAdminPin(r.Context(), req.CurrentPin, req.NewPin); err != nil {
		sendDirectoryError(r.Context(), h.logger, w, "admin-change-pin", err)
		return
	}

	sendJSON(h.logger, w, api.SuccessResponse{Success: true}, http.StatusOK)
}

// Logout обрабатывает POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	revoke(h.logger, h.tokens, w, r, claimsFrom(r.Context()))
}
