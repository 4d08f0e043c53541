package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// NewChangePinCommand creates the change-pin command.
func NewChangePinCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "change-pin",
		Short: "Change the master admin PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChangePin(cmd.Context(), rootOpts)
		},
	}
}

func runChangePin(ctx context.Context, rootOpts *RootOptions) error {
	return withAdmin(ctx, rootOpts, func(s *adminSession) error {
		current, err := readPin(rootOpts, "", "Current PIN: ")
		if err != nil {
			return err
		}
		newPin, err := readPin(rootOpts, "", "New PIN: ")
		if err != nil {
			return err
		}
		confirm, err := readPin(rootOpts, "", "Confirm new PIN: ")
		if err != nil {
			return err
		}
		if newPin != confirm {
			return errors.New("PINs do not match")
		}

		if err := s.client.ChangeAdminPin(ctx, s.session.Token, current, newPin); err != nil {
			return err
		}
		rootOpts.IO.Println("✓ Admin PIN changed.")
		return nil
	})
}
