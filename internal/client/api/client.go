package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/nautilus/pkg/api"
)

// ErrUnauthorized is matched by errors.Is for any 401 response
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response from the server
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Is allows errors.Is(err, ErrUnauthorized)
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Client представляет HTTP клиент админского API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AdminLogin входит администратором по PIN
func (c *Client) AdminLogin(ctx context.Context, pin string) (*api.AdminLoginResponse, error) {
	var resp api.AdminLoginResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/login", "", api.AdminLoginRequest{Pin: pin}, &resp); err != nil {
		return nil, fmt.Errorf("admin login failed: %w", err)
	}
	return &resp, nil
}

// AdminLogout отзывает токен администратора
func (c *Client) AdminLogout(ctx context.Context, token string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/logout", token, nil, nil); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

// ListUsers возвращает всех пользователей
func (c *Client) ListUsers(ctx context.Context, token string) (*api.UserListResponse, error) {
	var resp api.UserListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/admin/users", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list users failed: %w", err)
	}
	return &resp, nil
}

// CreateUser создаёт пользователя с временным PIN
func (c *Client) CreateUser(ctx context.Context, token string, req api.CreateUserRequest) (*api.UserResponse, error) {
	var resp api.UserResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/users", token, req, &resp); err != nil {
		return nil, fmt.Errorf("create user failed: %w", err)
	}
	return &resp, nil
}

// ResetUser задаёт новый временный PIN
func (c *Client) ResetUser(ctx context.Context, token string, req api.ResetUserRequest) (*api.UserResponse, error) {
	var resp api.UserResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/users/reset", token, req, &resp); err != nil {
		return nil, fmt.Errorf("reset user failed: %w", err)
	}
	return &resp, nil
}

// DeleteUser удаляет пользователя
func (c *Client) DeleteUser(ctx context.Context, token, userID string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/users/delete", token, api.DeleteUserRequest{UserID: userID}, nil); err != nil {
		return fmt.Errorf("delete user failed: %w", err)
	}
	return nil
}

// ChangeAdminPin меняет PIN администратора
func (c *Client) ChangeAdminPin(ctx context.Context, token, currentPin, newPin string) error {
	req := api.ChangePinRequest{CurrentPin: currentPin, NewPin: newPin}
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/change-pin", token, req, nil); err != nil {
		return fmt.Errorf("change pin failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
