package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/render"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit your business profile",
	}
	cmd.AddCommand(newProfileUpdateCmd())
	return cmd
}

func newProfileUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		Long:  "Update the profile fields given as flags. The tax rate is used for new invoice drafts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			var update api.ProfileUpdate
			for flag, dst := range map[string]**string{
				"first-name":       &update.FirstName,
				"last-name":        &update.LastName,
				"business-name":    &update.BusinessName,
				"business-address": &update.BusinessAddress,
				"phone":            &update.Phone,
				"currency":         &update.Currency,
			} {
				if cmd.Flags().Changed(flag) {
					v, _ := cmd.Flags().GetString(flag)
					*dst = &v
				}
			}
			if cmd.Flags().Changed("tax-rate") {
				v, _ := cmd.Flags().GetString("tax-rate")
				rate, err := parseAmount("tax rate", v)
				if err != nil {
					return err
				}
				update.TaxRate = &rate
			}

			user, err := a.session.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.Success.Render("Profile updated"))
			fmt.Fprint(cmd.OutOrStdout(), render.User(user))
			return nil
		},
	}
	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	cmd.Flags().String("business-name", "", "Business name")
	cmd.Flags().String("business-address", "", "Business address")
	cmd.Flags().String("phone", "", "Phone number")
	cmd.Flags().String("currency", "", "Currency code, e.g. USD")
	cmd.Flags().String("tax-rate", "", "Default tax rate in percent")
	return cmd
}

func newPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage your password",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "change",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			var change api.PasswordChange
			p := newPrompter(cmd)
			for _, q := range []struct {
				label string
				dst   *string
			}{
				{"Current password", &change.OldPassword},
				{"New password", &change.NewPassword},
				{"Confirm new password", &change.NewPasswordConfirm},
			} {
				if *q.dst, err = p.password(q.label); err != nil {
					return err
				}
			}

			if err := a.session.ChangePassword(cmd.Context(), change); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated successfully.")
			return nil
		},
	})
	return cmd
}
