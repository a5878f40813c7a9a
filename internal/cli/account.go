package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// deleteConfirmation must be typed to delete an account.
const deleteConfirmation = "DELETE"

func NewDeleteAccountCommand(opts *RootOptions) *cobra.Command {
	var confirm string

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Permanently delete your account and all loyalty data",
		Long: `Permanently delete your account, points, purchases, redemptions and
notifications.  This cannot be undone.

Example:
  loyalty delete-account --confirm DELETE`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if confirm != deleteConfirmation {
				return usageError(fmt.Sprintf("type --confirm %s to delete your account", deleteConfirmation))
			}
			a, err := opts.signedIn(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.gw.Invoke(cmd.Context(), "delete-account", a.sess.AccessToken); err != nil {
				return err
			}
			// The identity is gone; only the local state needs clearing.
			a.store.SignOut(cmd.Context())
			return opts.output(cmd).Success(map[string]bool{"deleted": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Your account has been deleted.")
			})
		},
	}

	cmd.Flags().StringVar(&confirm, "confirm", "", "must be DELETE")

	return cmd
}
