package server

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/nautilus/internal/server/handlers"
	"github.com/iudanet/nautilus/internal/server/middleware"
)

// Маршруты с ограничением частоты запросов
const (
	pathUserLogin  = "/api/auth/login"
	pathAdminLogin = "/api/admin/login"
	pathHealth     = "/api/health"
)

// NewRouter mounts the auth, admin and health endpoints behind
// recovery, logging and the login rate limit (outermost first)
func NewRouter(logger *slog.Logger, auth *handlers.AuthHandler, admin *handlers.AdminHandler, health *handlers.HealthHandler, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+pathHealth, health.Health)
	mux.Handle("/api/auth/{route...}", auth)
	mux.Handle("/api/admin/{route...}", admin)

	var handler http.Handler = mux
	handler = limiter.Limit(pathUserLogin, pathAdminLogin)(handler)
	handler = middleware.Logging(logger, pathHealth)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
