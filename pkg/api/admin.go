package api

import "github.com/iudanet/nautilus/internal/models"

// AdminLoginRequest представляет вход администратора
type AdminLoginRequest struct {
	Pin string `json:"pin"`
}

// AdminLoginResponse представляет ответ на вход администратора
type AdminLoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// UserListResponse представляет список пользователей
type UserListResponse struct {
	Users []models.UserView `json:"users"`
	Total int               `json:"total"`
	Max   int               `json:"max"`
}

// CreateUserRequest представляет создание пользователя администратором
type CreateUserRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	TempPin  string `json:"tempPin"`
}

// ResetUserRequest представляет сброс PIN пользователя
type ResetUserRequest struct {
	UserID     string `json:"userId"`
	NewTempPin string `json:"newTempPin"`
}

// DeleteUserRequest представляет удаление пользователя
type DeleteUserRequest struct {
	UserID string `json:"userId"`
}

// UserResponse возвращается при создании и сбросе; user.tempPin содержит временный PIN
type UserResponse struct {
	User    models.UserView `json:"user"`
	Success bool            `json:"success"`
}
