package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/render"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "client",
		Aliases: []string{"clients"},
		Short:   "Manage clients",
	}
	cmd.AddCommand(
		newClientListCmd(),
		newClientShowCmd(),
		newClientCreateCmd(),
		newClientUpdateCmd(),
		newClientDeleteCmd(),
	)
	return cmd
}

func clientFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Contact name")
	cmd.Flags().String("email", "", "Billing email")
	cmd.Flags().String("company", "", "Company name")
	cmd.Flags().String("address", "", "Postal address")
	cmd.Flags().String("phone", "", "Phone number")
	cmd.Flags().String("notes", "", "Internal notes")
}

func applyClientFlags(cmd *cobra.Command, in *api.ClientInput) {
	stringFlags(cmd, map[string]*string{
		"name":    &in.Name,
		"email":   &in.Email,
		"company": &in.CompanyName,
		"address": &in.Address,
		"phone":   &in.Phone,
		"notes":   &in.Notes,
	})
}

func renderClient(c *api.Customer) string {
	return render.Title.Render(c.Name) + "\n" + render.Fields([][2]string{
		{"ID", c.ID},
		{"Email", c.Email},
		{"Company", c.CompanyName},
		{"Address", c.Address},
		{"Phone", c.Phone},
		{"Notes", c.Notes},
		{"Invoiced", render.Money(c.TotalInvoiced)},
		{"Paid", render.Money(c.TotalPaid)},
		{"Outstanding", render.Money(c.TotalOutstanding)},
	})
}

func newClientListCmd() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			clients, err := a.client.ListClients(cmd.Context(), search)
			if err != nil {
				return err
			}
			if len(clients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clients found")
				return nil
			}

			rows := make([][]string, len(clients))
			for i, c := range clients {
				rows[i] = []string{c.ID, c.Name, c.Email, c.CompanyName, render.Money(c.TotalInvoiced), render.Money(c.TotalOutstanding)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Table([]string{"ID", "Name", "Email", "Company", "Invoiced", "Outstanding"}, rows, 4, 5))
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by name, email or company")
	return cmd
}

func newClientShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			c, err := a.client.GetClient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderClient(c))
			return nil
		},
	}
}

func newClientCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			var in api.ClientInput
			applyClientFlags(cmd, &in)
			c, err := a.client.CreateClient(cmd.Context(), in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created client %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
	clientFlags(cmd)
	return cmd
}

func newClientUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a client",
		Long:  "Update the fields given as flags; other fields keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			current, err := a.client.GetClient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			in := api.ClientInput{
				Name:        current.Name,
				Email:       current.Email,
				CompanyName: current.CompanyName,
				Address:     current.Address,
				Phone:       current.Phone,
				Notes:       current.Notes,
			}
			applyClientFlags(cmd, &in)

			c, err := a.client.UpdateClient(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderClient(c))
			return nil
		},
	}
	clientFlags(cmd)
	return cmd
}

func newClientDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, yes, fmt.Sprintf("Delete client %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			if err := a.client.DeleteClient(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Client deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
