package api

import "github.com/iudanet/nautilus/internal/models"

// LoginRequest представляет запрос на вход пользователя
type LoginRequest struct {
	Identifier string `json:"identifier"` // username или email
	Pin        string `json:"pin"`        // 4-значный PIN
}

// TokenResponse возвращается после входа и первичной настройки
type TokenResponse struct {
	Token string          `json:"token"`
	User  models.UserView `json:"user"`
}

// VerifyResponse представляет ответ на проверку токена
type VerifyResponse struct {
	User models.UserView `json:"user"`
}

// SetupRequest представляет первичную настройку профиля
type SetupRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	NewPin   string `json:"newPin"`
}

// ChangeUsernameRequest представляет запрос на смену username
type ChangeUsernameRequest struct {
	NewUsername string `json:"newUsername"`
}

// ChangeUsernameResponse представляет ответ на смену username
type ChangeUsernameResponse struct {
	Username string `json:"username"`
	Success  bool   `json:"success"`
}

// ChangeEmailRequest представляет запрос на смену email
type ChangeEmailRequest struct {
	NewEmail string `json:"newEmail"`
}

// ChangeEmailResponse представляет ответ на смену email
type ChangeEmailResponse struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
}

// ChangeNameRequest представляет запрос на смену отображаемого имени
type ChangeNameRequest struct {
	NewName string `json:"newName"`
}

// ChangeNameResponse представляет ответ на смену имени
type ChangeNameResponse struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
}

// ChangePinRequest используется и пользователем, и администратором
type ChangePinRequest struct {
	CurrentPin string `json:"currentPin"`
	NewPin     string `json:"newPin"`
}

// SuccessResponse представляет ответ без данных
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error string `json:"error"` // описание ошибки
}
