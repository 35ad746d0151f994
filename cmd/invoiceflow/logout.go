package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/render"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored credentials",
		Long:  "Logout from InvoiceFlow by revoking the session on the server and removing the stored tokens.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			a.session.Logout(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully. Authentication credentials removed.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, user, err := signedIn(cmd)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.User(user))
			return nil
		},
	}
}
