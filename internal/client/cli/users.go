package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iudanet/nautilus/internal/crypto"
	"github.com/iudanet/nautilus/internal/models"
	"github.com/iudanet/nautilus/pkg/api"
)

// UserOptions holds flags shared by users create and users reset.
type UserOptions struct {
	Name    string
	TempPin string
	Yes     bool
}

// NewUsersCommand creates the users command group.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	cmd.AddCommand(newUsersListCommand(rootOpts))
	cmd.AddCommand(newUsersCreateCommand(rootOpts))
	cmd.AddCommand(newUsersResetCommand(rootOpts))
	cmd.AddCommand(newUsersDeleteCommand(rootOpts))

	return cmd
}

func newUsersListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersList(cmd.Context(), rootOpts)
		},
	}
}

func newUsersCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserOptions{}

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user with a temporary PIN",
		Long: `Create a user account that must complete setup on first login.

A random temporary PIN is generated unless --temp-pin is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersCreate(cmd.Context(), rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (defaults to the username)")
	cmd.Flags().StringVar(&opts.TempPin, "temp-pin", "", "temporary 4-digit PIN")

	return cmd
}

func newUsersResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserOptions{}

	cmd := &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Reset a user's PIN and send them back to setup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersReset(cmd.Context(), rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.TempPin, "temp-pin", "", "new temporary 4-digit PIN")

	return cmd
}

func newUsersDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserOptions{}

	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user and all of their data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersDelete(cmd.Context(), rootOpts, opts, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func runUsersList(ctx context.Context, rootOpts *RootOptions) error {
	return withAdmin(ctx, rootOpts, func(s *adminSession) error {
		resp, err := s.client.ListUsers(ctx, s.session.Token)
		if err != nil {
			return err
		}

		if len(resp.Users) == 0 {
			rootOpts.IO.Println("No users.")
		} else {
			rootOpts.IO.Printf("%s", formatUsers(resp.Users))
		}
		rootOpts.IO.Printf("Total: %d/%d\n", resp.Total, resp.Max)
		return nil
	})
}

func runUsersCreate(ctx context.Context, rootOpts *RootOptions, opts *UserOptions, username string) error {
	tempPin, err := tempPinOrRandom(opts.TempPin)
	if err != nil {
		return err
	}
	name := opts.Name
	if name == "" {
		name = username
	}

	return withAdmin(ctx, rootOpts, func(s *adminSession) error {
		resp, err := s.client.CreateUser(ctx, s.session.Token, api.CreateUserRequest{
			Username: username,
			Name:     name,
			TempPin:  tempPin,
		})
		if err != nil {
			return err
		}

		rootOpts.IO.Println("✓ User created!")
		printTempPin(rootOpts, resp.User)
		return nil
	})
}

func runUsersReset(ctx context.Context, rootOpts *RootOptions, opts *UserOptions, userID string) error {
	tempPin, err := tempPinOrRandom(opts.TempPin)
	if err != nil {
		return err
	}

	return withAdmin(ctx, rootOpts, func(s *adminSession) error {
		resp, err := s.client.ResetUser(ctx, s.session.Token, api.ResetUserRequest{
			UserID:     userID,
			NewTempPin: tempPin,
		})
		if err != nil {
			return err
		}

		rootOpts.IO.Println("✓ User reset!")
		printTempPin(rootOpts, resp.User)
		return nil
	})
}

func runUsersDelete(ctx context.Context, rootOpts *RootOptions, opts *UserOptions, userID string) error {
	if !opts.Yes {
		answer, err := rootOpts.IO.ReadInput(fmt.Sprintf("Delete user %s and all of their data? [y/N]: ", userID))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			rootOpts.IO.Println("Cancelled.")
			return nil
		}
	}

	return withAdmin(ctx, rootOpts, func(s *adminSession) error {
		if err := s.client.DeleteUser(ctx, s.session.Token, userID); err != nil {
			return err
		}
		rootOpts.IO.Printf("✓ User %s deleted.\n", userID)
		return nil
	})
}

func tempPinOrRandom(pin string) (string, error) {
	if pin == "" {
		return crypto.GeneratePin()
	}
	if !crypto.IsValidPin(pin) {
		return "", fmt.Errorf("temporary PIN must be exactly %d digits", crypto.PinLength)
	}
	return pin, nil
}

func printTempPin(rootOpts *RootOptions, user models.UserView) {
	rootOpts.IO.Printf("ID: %s\n", user.ID)
	rootOpts.IO.Printf("Username: %s\n", user.Username)
	rootOpts.IO.Printf("Temporary PIN: %s\n", user.TempPin)
	rootOpts.IO.Println("Give the user this PIN; they will choose their own during setup.")
}

func formatUsers(users []models.UserView) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tEMAIL\tSTATUS")
	for _, u := range users {
		status := "active"
		if u.NeedsSetup {
			status = "needs setup"
		}
		email := u.Email
		if email == "" {
			email = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Name, email, status)
	}
	_ = w.Flush()
	return b.String()
}
