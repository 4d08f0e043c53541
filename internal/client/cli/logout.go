package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/nautilus/internal/client/api"
	"github.com/iudanet/nautilus/internal/client/storage"
)

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the admin token and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), rootOpts)
		},
	}
}

func runLogout(ctx context.Context, rootOpts *RootOptions) error {
	return withSessions(ctx, rootOpts, func(sessions storage.SessionStorage) error {
		session, err := sessions.GetSession(ctx)
		if errors.Is(err, storage.ErrSessionNotFound) {
			rootOpts.IO.Println("Not logged in.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}

		// истекший или уже отозванный токен сервер отклонит с 401, сессию все равно удаляем
		if !session.Expired(rootOpts.Now()) {
			err := rootOpts.NewClient(session.ServerURL).AdminLogout(ctx, session.Token)
			if err != nil && !errors.Is(err, api.ErrUnauthorized) {
				return err
			}
		}

		if err := sessions.DeleteSession(ctx); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		rootOpts.IO.Println("✓ Logged out.")
		return nil
	})
}
