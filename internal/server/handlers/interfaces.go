package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/iudanet/nautilus/internal/models"
	"github.com/iudanet/nautilus/internal/server/directory"
	"github.com/iudanet/nautilus/internal/server/jwt"
)

// UserDirectory is the part of the directory used by the auth endpoints
type UserDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) (string, error)
	Get(ctx context.Context, id string) (*models.User, error)
	VerifyUserPin(user *models.User, pin string) bool
	CompleteSetup(ctx context.Context, id string, in directory.SetupInput) (*models.User, error)
	RenameUsername(ctx context.Context, id, newUsername string) (*models.User, error)
	ChangeEmail(ctx context.Context, id, newEmail string) (*models.User, error)
	ChangeName(ctx context.Context, id, newName string) (*models.User, error)
	ChangePin(ctx context.Context, id, currentPin, newPin string) error
}

// AdminDirectory is the part of the directory used by the admin endpoints
type AdminDirectory interface {
	EnsureAdmin(ctx context.Context) (*models.Admin, error)
	VerifyAdminPin(ctx context.Context, pin string) (bool, error)
	ChangeAdminPin(ctx context.Context, currentPin, newPin string) error
	List(ctx context.Context) ([]*models.User, error)
	CreateUser(ctx context.Context, username, name, tempPin string) (*models.User, string, error)
	ResetUser(ctx context.Context, id, newTempPin string) (*models.User, string, error)
	DeleteUser(ctx context.Context, id string) error
	Capacity() int
}

// Tokens issues, verifies and revokes bearer tokens
type Tokens interface {
	Sign(claims jwt.Claims) (string, time.Time, error)
	VerifyRequest(r *http.Request) *jwt.Claims
	Revoke(ctx context.Context, claims *jwt.Claims) error
}
