// Package cli implements nautilusctl, the operator tool for the admin API.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/nautilus/internal/client/api"
	"github.com/iudanet/nautilus/internal/client/iocli"
	"github.com/iudanet/nautilus/internal/client/storage"
	"github.com/iudanet/nautilus/internal/client/storage/boltdb"
	pkgapi "github.com/iudanet/nautilus/pkg/api"
)

const (
	// DefaultServer is used when --server is not given
	DefaultServer = "http://localhost:8080"
	// DefaultSessionPath is the bbolt file holding the admin session
	DefaultSessionPath = "nautilusctl.db"
)

// AdminAPI is the part of the HTTP client the commands need
type AdminAPI interface {
	AdminLogin(ctx context.Context, pin string) (*pkgapi.AdminLoginResponse, error)
	AdminLogout(ctx context.Context, token string) error
	ListUsers(ctx context.Context, token string) (*pkgapi.UserListResponse, error)
	CreateUser(ctx context.Context, token string, req pkgapi.CreateUserRequest) (*pkgapi.UserResponse, error)
	ResetUser(ctx context.Context, token string, req pkgapi.ResetUserRequest) (*pkgapi.UserResponse, error)
	DeleteUser(ctx context.Context, token, userID string) error
	ChangeAdminPin(ctx context.Context, token, currentPin, newPin string) error
}

// RootOptions holds global flags and the dependencies shared by all commands.
type RootOptions struct {
	IO           iocli.IO
	NewClient    func(serverURL string) AdminAPI
	OpenSessions func(ctx context.Context, path string) (storage.SessionStorage, error)
	Now          func() time.Time
	Server       string
	Session      string
	// Version включает флаг --version, если не пуст
	Version      string
}

// DefaultOptions wires the real terminal, HTTP client and bbolt session file.
func DefaultOptions() *RootOptions {
	return &RootOptions{
		IO: iocli.NewStdio(),
		NewClient: func(serverURL string) AdminAPI {
			return api.NewClient(serverURL)
		},
		OpenSessions: func(ctx context.Context, path string) (storage.SessionStorage, error) {
			return boltdb.New(ctx, path)
		},
		Now:     time.Now,
		Server:  DefaultServer,
		Session: DefaultSessionPath,
	}
}

// NewRootCommand creates the root command for nautilusctl.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nautilusctl",
		Short: "nautilusctl - Nautilus admin tool",
		Long:  "Manage Nautilus user accounts through the admin API.",
		// ошибки печатает main, usage только по --help
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       opts.Version,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Server, "server", opts.Server, "server URL used by login")
	cmd.PersistentFlags().StringVar(&opts.Session, "session", opts.Session, "path to the local session file")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewChangePinCommand(opts))

	return cmd
}

// Execute runs nautilusctl with args (without the program name).
func Execute(ctx context.Context, opts *RootOptions, args []string) error {
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
