package handlers

import (
	"context"

	"github.com/iudanet/nautilus/internal/server/jwt"
)

type contextKey string

const claimsContextKey contextKey = "claims"

func withClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// claimsFrom returns the claims stored by requireAdmin
func claimsFrom(ctx context.Context) *jwt.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*jwt.Claims)
	return claims
}
