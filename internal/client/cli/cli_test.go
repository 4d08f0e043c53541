package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/nautilus/internal/client/api"
	"github.com/iudanet/nautilus/internal/client/iocli"
	"github.com/iudanet/nautilus/internal/client/storage"
	"github.com/iudanet/nautilus/internal/client/storage/boltdb"
	"github.com/iudanet/nautilus/internal/server"
	"github.com/iudanet/nautilus/internal/server/config"
	"github.com/iudanet/nautilus/internal/server/storage/memory"
)

// testCLI запускает nautilusctl против настоящего сервера в памяти
type testCLI struct {
	opts   *RootOptions
	mock   *iocli.IOMock
	out    *bytes.Buffer
	pins   []string
	inputs []string
}

func setupTestCLI(t *testing.T) *testCLI {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.JWTSecret = "test-secret"
	cfg.Storage = config.StorageMemory

	app, err := server.NewWithStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), memory.New(), "test")
	require.NoError(t, err)
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close()
	})

	tc := &testCLI{out: &bytes.Buffer{}}
	tc.mock = &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			_, _ = fmt.Fprintln(tc.out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			_, _ = fmt.Fprintf(tc.out, format, a...)
		},
		ReadPinFunc: func(prompt string) (string, error) {
			if len(tc.pins) == 0 {
				return "", io.EOF
			}
			pin := tc.pins[0]
			tc.pins = tc.pins[1:]
			return pin, nil
		},
		ReadInputFunc: func(prompt string) (string, error) {
			if len(tc.inputs) == 0 {
				return "", io.EOF
			}
			in := tc.inputs[0]
			tc.inputs = tc.inputs[1:]
			return in, nil
		},
	}

	tc.opts = &RootOptions{
		IO: tc.mock,
		NewClient: func(serverURL string) AdminAPI {
			return api.NewClient(serverURL)
		},
		OpenSessions: func(ctx context.Context, path string) (storage.SessionStorage, error) {
			return boltdb.New(ctx, path)
		},
		Now:     time.Now,
		Server:  srv.URL,
		Session: filepath.Join(t.TempDir(), "session.db"),
	}
	return tc
}

// run выполняет команду и возвращает ее вывод
func (tc *testCLI) run(args ...string) (string, error) {
	tc.out.Reset()
	err := Execute(context.Background(), tc.opts, args)
	return tc.out.String(), err
}

func (tc *testCLI) session(t *testing.T) *storage.Session {
	t.Helper()
	s, err := boltdb.New(context.Background(), tc.opts.Session)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, s.Close())
	}()

	session, err := s.GetSession(context.Background())
	require.NoError(t, err)
	return session
}

var userIDPattern = regexp.MustCompile(`ID: (\S+)`)

func TestCLI_AdminLifecycle(t *testing.T) {
	tc := setupTestCLI(t)

	out, err := tc.run("login", "--pin", "0327")
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")

	out, err = tc.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Logged in")
	assert.Contains(t, out, "Role: admin")

	out, err = tc.run("users", "create", "alice", "--name", "Alice", "--temp-pin", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Username: alice")
	assert.Contains(t, out, "Temporary PIN: 1234")
	m := userIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2)
	userID := m[1]

	out, err = tc.run("users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "needs setup")
	assert.Contains(t, out, "Total: 1/")

	out, err = tc.run("users", "reset", userID, "--temp-pin", "4321")
	require.NoError(t, err)
	assert.Contains(t, out, "Temporary PIN: 4321")

	out, err = tc.run("users", "delete", userID, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	out, err = tc.run("users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No users.")

	out, err = tc.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	out, err = tc.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestCLI_LoginPromptsForPin(t *testing.T) {
	tc := setupTestCLI(t)
	tc.pins = []string{"0327"}

	_, err := tc.run("login")
	require.NoError(t, err)

	calls := tc.mock.ReadPinCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Admin PIN: ", calls[0].Prompt)

	session := tc.session(t)
	assert.Equal(t, tc.opts.Server, session.ServerURL)
	assert.Equal(t, "admin", session.Role)
	assert.NotEmpty(t, session.Token)
	// срок жизни берется из exp токена
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), session.ExpiresAt, time.Minute)
}

func TestCLI_LoginWrongPin(t *testing.T) {
	tc := setupTestCLI(t)

	_, err := tc.run("login", "--pin", "9999")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	out, err := tc.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestCLI_RequiresSession(t *testing.T) {
	tc := setupTestCLI(t)

	for _, args := range [][]string{
		{"users", "list"},
		{"users", "create", "bob"},
		{"users", "reset", "some-id"},
		{"users", "delete", "some-id", "--yes"},
		{"change-pin"},
	} {
		_, err := tc.run(args...)
		assert.ErrorIs(t, err, ErrNotLoggedIn, args)
	}
}

func TestCLI_ExpiredSession(t *testing.T) {
	tc := setupTestCLI(t)

	_, err := tc.run("login", "--pin", "0327")
	require.NoError(t, err)

	tc.opts.Now = func() time.Time { return time.Now().Add(200 * time.Hour) }

	_, err = tc.run("users", "list")
	assert.ErrorIs(t, err, ErrSessionExpired)

	out, err := tc.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Session expired")

	// истекший токен не отправляется на сервер, сессия просто удаляется
	out, err = tc.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
}

func TestCLI_CreateGeneratesPin(t *testing.T) {
	tc := setupTestCLI(t)

	_, err := tc.run("login", "--pin", "0327")
	require.NoError(t, err)

	out, err := tc.run("users", "create", "carol")
	require.NoError(t, err)
	assert.Regexp(t, `Temporary PIN: \d{4}\n`, out)
	// имя по умолчанию совпадает с username
	out, err = tc.run("users", "list")
	require.NoError(t, err)
	assert.Regexp(t, `carol\s+carol`, out)
}

func TestCLI_CreateRejectsBadTempPin(t *testing.T) {
	tc := setupTestCLI(t)

	_, err := tc.run("login", "--pin", "0327")
	require.NoError(t, err)

	_, err = tc.run("users", "create", "dave", "--temp-pin", "12a4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 digits")

	out, err := tc.run("users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No users.")
}

func TestCLI_ServerErrorsSurface(t *testing.T) {
	tc := setupTestCLI(t)

	_, err := tc.run("login", "--pin", "0327")
	require.NoError(t, err)

	_, err = tc.run("users", "create", "erin", "--temp-pin", "1111")
	require.NoError(t, err)

	_, err = tc.run("users", "create", "erin", "--temp-pin", "2222")
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.StatusCode)

	_, err = tc.run("users", "delete", "missing-id", "--yes")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestCLI_DeleteConfirmation(t *testing.T) {
	tc := setupTestCLI(t)

	_, err := tc.run("login", "--pin", "0327")
	require.NoError(t, err)
	out, err := tc.run("users", "create", "frank", "--temp-pin", "1234")
	require.NoError(t, err)
	userID := userIDPattern.FindStringSubmatch(out)[1]

	tc.inputs = []string{"n"}
	out, err = tc.run("users", "delete", userID)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = tc.run("users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "frank")

	tc.inputs = []string{"yes"}
	_, err = tc.run("users", "delete", userID)
	require.NoError(t, err)

	out, err = tc.run("users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No users.")
}

func TestCLI_ChangePin(t *testing.T) {
	tc := setupTestCLI(t)

	_, err := tc.run("login", "--pin", "0327")
	require.NoError(t, err)

	t.Run("mismatch", func(t *testing.T) {
		tc.pins = []string{"0327", "1111", "2222"}
		_, err := tc.run("change-pin")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "do not match")
	})

	t.Run("wrong current", func(t *testing.T) {
		tc.pins = []string{"0000", "1111", "1111"}
		_, err := tc.run("change-pin")
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.StatusCode)
	})

	t.Run("success", func(t *testing.T) {
		tc.pins = []string{"0327", "1111", "1111"}
		out, err := tc.run("change-pin")
		require.NoError(t, err)
		assert.Contains(t, out, "Admin PIN changed")

		_, err = tc.run("login", "--pin", "0327")
		assert.ErrorIs(t, err, api.ErrUnauthorized)

		_, err = tc.run("login", "--pin", "1111")
		require.NoError(t, err)
	})
}

func TestCLI_LogoutRevokesToken(t *testing.T) {
	tc := setupTestCLI(t)

	_, err := tc.run("login", "--pin", "0327")
	require.NoError(t, err)
	token := tc.session(t).Token

	_, err = tc.run("logout")
	require.NoError(t, err)

	_, err = api.NewClient(tc.opts.Server).ListUsers(context.Background(), token)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	// повторный logout без сессии не ошибка
	out, err := tc.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}

func TestTokenExpiry(t *testing.T) {
	assert.True(t, tokenExpiry("not-a-token").IsZero())
	assert.True(t, tokenExpiry("").IsZero())
}
