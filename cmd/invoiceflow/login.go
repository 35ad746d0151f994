package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/api"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the InvoiceFlow server",
		Long:  "Login to the InvoiceFlow server and store the session tokens securely.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			p := newPrompter(cmd)
			if email == "" {
				if email, err = p.line("Email"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.password("Password"); err != nil {
					return err
				}
			}

			if err := a.session.Login(cmd.Context(), email, password); err != nil {
				return err
			}

			user := a.session.State().CurrentUser
			fmt.Fprintf(cmd.OutOrStdout(), "Login successful! Signed in as %s <%s>.\n", user.FullName(), user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (will prompt if not provided)")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var req api.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an InvoiceFlow account",
		Long:  "Create an account on the InvoiceFlow server and sign in with it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			p := newPrompter(cmd)
			for _, q := range []struct {
				label string
				dst   *string
			}{
				{"Email", &req.Email},
				{"First name", &req.FirstName},
				{"Last name", &req.LastName},
			} {
				if *q.dst == "" {
					if *q.dst, err = p.line(q.label); err != nil {
						return err
					}
				}
			}
			if req.Password == "" {
				if req.Password, err = p.password("Password"); err != nil {
					return err
				}
				if req.PasswordConfirm, err = p.password("Confirm password"); err != nil {
					return err
				}
			} else if req.PasswordConfirm == "" {
				req.PasswordConfirm = req.Password
			}

			if err := a.session.Register(cmd.Context(), req); err != nil {
				return err
			}

			user := a.session.State().CurrentUser
			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Signed in as %s <%s>.\n", user.FullName(), user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&req.BusinessName, "business-name", "", "Business name shown on invoices")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (will prompt if not provided)")
	return cmd
}
