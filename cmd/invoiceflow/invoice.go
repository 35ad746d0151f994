package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/document"
	"github.com/mejba13/invoiceflow/internal/render"
)

func newInvoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoice",
		Aliases: []string{"invoices"},
		Short:   "Manage invoices",
		Long:    "List and act on invoices. New invoices are composed with the draft commands.",
	}
	cmd.AddCommand(
		newInvoiceListCmd(),
		newInvoiceOverdueCmd(),
		newInvoiceShowCmd(),
		newInvoicePDFCmd(),
		newInvoiceActionCmd("send", "Mark an invoice as sent", false, func(ctx context.Context, c *api.AuthenticatedClient, id string) (string, error) {
			return "Invoice marked as sent", c.SendInvoice(ctx, id)
		}),
		newInvoiceActionCmd("mark-paid", "Mark an invoice as paid", false, func(ctx context.Context, c *api.AuthenticatedClient, id string) (string, error) {
			inv, err := c.MarkInvoicePaid(ctx, id)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Invoice %s is now %s", inv.InvoiceNumber, inv.Status), nil
		}),
		newInvoiceActionCmd("cancel", "Cancel an invoice", true, func(ctx context.Context, c *api.AuthenticatedClient, id string) (string, error) {
			inv, err := c.CancelInvoice(ctx, id)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Invoice %s cancelled", inv.InvoiceNumber), nil
		}),
		newInvoiceActionCmd("delete", "Delete an invoice", true, func(ctx context.Context, c *api.AuthenticatedClient, id string) (string, error) {
			return "Invoice deleted", c.DeleteInvoice(ctx, id)
		}),
	)
	return cmd
}

func invoiceTable(invoices []api.Invoice) string {
	rows := make([][]string, len(invoices))
	for i, inv := range invoices {
		client := inv.Client
		if inv.ClientDetails != nil {
			client = inv.ClientDetails.Name
		}
		rows[i] = []string{
			inv.ID,
			inv.InvoiceNumber,
			client,
			inv.DueDate,
			render.Status(inv.Status),
			render.Money(inv.TotalAmount),
			render.Money(inv.AmountDue),
		}
	}
	return render.Table([]string{"ID", "Number", "Client", "Due", "Status", "Total", "Due amount"}, rows, 5, 6)
}

func newInvoiceListCmd() *cobra.Command {
	var filter api.InvoiceFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			invoices, err := a.client.ListInvoices(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(invoices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No invoices found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), invoiceTable(invoices))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Search, "search", "", "Filter by invoice number or client name")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Filter by status (DRAFT, SENT, PAID, OVERDUE, CANCELLED)")
	cmd.Flags().StringVar(&filter.Client, "client", "", "Filter by client id")
	return cmd
}

func newInvoiceOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List invoices past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			invoices, err := a.client.OverdueInvoices(cmd.Context())
			if err != nil {
				return err
			}
			if len(invoices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), render.Success.Render("No overdue invoices"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), invoiceTable(invoices))
			return nil
		},
	}
}

func newInvoiceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an invoice with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			inv, err := a.client.GetInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Invoice(inv))
			return nil
		},
	}
}

func newInvoicePDFCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pdf <id>",
		Short: "Download the invoice PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			data, err := a.client.DownloadInvoicePDF(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			info, err := document.Inspect(data)
			if err != nil {
				return err
			}

			if output == "" {
				inv, err := a.client.GetInvoice(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				output = inv.InvoiceNumber + ".pdf"
			}
			if err := os.WriteFile(output, data, 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d-page PDF to %s\n", info.Pages, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <invoice number>.pdf)")
	return cmd
}

// newInvoiceActionCmd builds a command that runs one action on one invoice.
// Destructive actions ask for confirmation unless --yes is given.
func newInvoiceActionCmd(use, short string, destructive bool, action func(context.Context, *api.AuthenticatedClient, string) (string, error)) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			if destructive {
				ok, err := confirm(cmd, yes, fmt.Sprintf("%s %s?", short, args[0]))
				if err != nil || !ok {
					return err
				}
			}

			msg, err := action(cmd.Context(), a.client, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	if destructive {
		cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	}
	return cmd
}
