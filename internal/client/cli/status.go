package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/nautilus/internal/client/storage"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), rootOpts)
		},
	}
}

func runStatus(ctx context.Context, rootOpts *RootOptions) error {
	return withSessions(ctx, rootOpts, func(sessions storage.SessionStorage) error {
		session, err := sessions.GetSession(ctx)
		if errors.Is(err, storage.ErrSessionNotFound) {
			rootOpts.IO.Println("Status: Not logged in")
			rootOpts.IO.Println("Run 'nautilusctl login' to authenticate.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}

		if session.Expired(rootOpts.Now()) {
			rootOpts.IO.Println("Status: Session expired")
		} else {
			rootOpts.IO.Println("Status: Logged in")
		}
		rootOpts.IO.Printf("Server: %s\n", session.ServerURL)
		rootOpts.IO.Printf("Role: %s\n", session.Role)
		rootOpts.IO.Printf("Logged in at: %s\n", session.CreatedAt.Format("2006-01-02 15:04 MST"))
		if !session.ExpiresAt.IsZero() {
			rootOpts.IO.Printf("Expires: %s\n", session.ExpiresAt.Format("2006-01-02 15:04 MST"))
		}
		return nil
	})
}
