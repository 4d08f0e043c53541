package models

import "time"

// User представляет аккаунт в системе
type User struct {
	CreatedAt        time.Time  `json:"createdAt"`                  // время создания
	SetupCompletedAt *time.Time `json:"setupCompletedAt,omitempty"` // время завершения первичной настройки
	ID               string     `json:"id"`                         // UUID пользователя, неизменяемый
	Username         string     `json:"username"`                   // уникальный username в нижнем регистре
	Name             string     `json:"name"`                       // отображаемое имя
	Email            string     `json:"email,omitempty"`            // уникальный email, если задан
	PinHash          string     `json:"pinHash"`                    // salt:digest, никогда не сам PIN
	NeedsSetup       bool       `json:"needsSetup"`                 // true до первой настройки профиля
}

// UserView is the client-facing projection of a User. It never carries the PIN hash.
type UserView struct {
	CreatedAt        time.Time  `json:"createdAt"`
	SetupCompletedAt *time.Time `json:"setupCompletedAt,omitempty"`
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	TempPin          string     `json:"tempPin,omitempty"`
	NeedsSetup       bool       `json:"needsSetup"`
}

// Projection returns the public view of the user
func (u *User) Projection() UserView {
	return UserView{
		ID:               u.ID,
		Username:         u.Username,
		Name:             u.Name,
		Email:            u.Email,
		NeedsSetup:       u.NeedsSetup,
		CreatedAt:        u.CreatedAt,
		SetupCompletedAt: u.SetupCompletedAt,
	}
}

// Admin is the singleton master administrator record
type Admin struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	PinHash   string    `json:"pinHash"`
}
