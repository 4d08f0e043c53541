package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/nautilus/internal/client/storage"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	Pin string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as the master admin",
		Long: `Log in with the master admin PIN and save the token locally.

The PIN is prompted without echo unless --pin is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Pin, "pin", "", "admin PIN (prompted if empty)")

	return cmd
}

func runLogin(ctx context.Context, rootOpts *RootOptions, opts *LoginOptions) error {
	pin, err := readPin(rootOpts, opts.Pin, "Admin PIN: ")
	if err != nil {
		return err
	}

	client := rootOpts.NewClient(rootOpts.Server)
	resp, err := client.AdminLogin(ctx, pin)
	if err != nil {
		return err
	}

	session := &storage.Session{
		ServerURL: rootOpts.Server,
		Token:     resp.Token,
		Role:      resp.Role,
		CreatedAt: rootOpts.Now().UTC(),
		ExpiresAt: tokenExpiry(resp.Token),
	}

	err = withSessions(ctx, rootOpts, func(sessions storage.SessionStorage) error {
		return sessions.SaveSession(ctx, session)
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	rootOpts.IO.Println("✓ Login successful!")
	rootOpts.IO.Printf("Server: %s\n", session.ServerURL)
	if !session.ExpiresAt.IsZero() {
		rootOpts.IO.Printf("Expires: %s\n", session.ExpiresAt.Format("2006-01-02 15:04 MST"))
	}
	return nil
}
