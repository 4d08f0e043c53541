package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/iudanet/nautilus/internal/server/directory"
	"github.com/iudanet/nautilus/pkg/api"
)

// maxBodyBytes ограничивает размер JSON тела запроса
const maxBodyBytes = 64 << 10

// methods maps an HTTP method to its handler for one route
type methods map[string]http.HandlerFunc

// dispatch routes r by the {route...} wildcard. Unknown routes get a JSON 404,
// known routes with the wrong method a JSON 405.
func dispatch(logger *slog.Logger, w http.ResponseWriter, r *http.Request, routes map[string]methods) {
	route := strings.Trim(r.PathValue("route"), "/")

	byMethod, ok := routes[route]
	if !ok {
		sendError(logger, w, "not found", http.StatusNotFound)
		return
	}

	handle, ok := byMethod[r.Method]
	if !ok {
		allowed := make([]string, 0, len(byMethod))
		for m := range byMethod {
			allowed = append(allowed, m)
		}
		sort.Strings(allowed)
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		sendError(logger, w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	handle(w, r)
}

// decodeJSON читает тело запроса в v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет ошибку в JSON формате
func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	sendJSON(logger, w, api.ErrorResponse{Error: message}, statusCode)
}

// statusFor maps a directory error kind to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, directory.ErrValidation), errors.Is(err, directory.ErrCapacity):
		return http.StatusBadRequest
	case errors.Is(err, directory.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, directory.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// sendDirectoryError отправляет ошибку директории; внутренние ошибки логируются и не раскрываются
func sendDirectoryError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(ctx, "directory operation failed", slog.String("op", op), slog.Any("error", err))
	} else {
		logger.WarnContext(ctx, "directory operation rejected", slog.String("op", op), slog.Any("error", err))
	}
	sendError(logger, w, directory.PublicMessage(err), status)
}
