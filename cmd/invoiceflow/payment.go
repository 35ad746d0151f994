package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/invoice"
	"github.com/mejba13/invoiceflow/internal/render"
)

func newPaymentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "payment",
		Aliases: []string{"payments"},
		Short:   "Record and review payments",
	}
	cmd.AddCommand(newPaymentListCmd(), newPaymentShowCmd(), newPaymentCreateCmd(), newPaymentDeleteCmd())
	return cmd
}

func newPaymentListCmd() *cobra.Command {
	var invoiceID, method string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			payments, err := a.client.ListPayments(cmd.Context(), api.ListFilter{
				"invoice":        invoiceID,
				"payment_method": strings.ToUpper(method),
			})
			if err != nil {
				return err
			}
			if len(payments) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No payments found")
				return nil
			}

			rows := make([][]string, len(payments))
			for i, p := range payments {
				rows[i] = []string{p.ID, p.PaymentDate, p.InvoiceNumber, p.ClientName, p.PaymentMethod, render.Money(p.Amount)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Table([]string{"ID", "Date", "Invoice", "Client", "Method", "Amount"}, rows, 5))
			return nil
		},
	}
	cmd.Flags().StringVar(&invoiceID, "invoice", "", "Filter by invoice id")
	cmd.Flags().StringVar(&method, "method", "", "Filter by payment method")
	return cmd
}

func newPaymentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			p, err := a.client.GetPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Fields([][2]string{
				{"ID", p.ID},
				{"Invoice", p.InvoiceNumber},
				{"Client", p.ClientName},
				{"Amount", render.Money(p.Amount)},
				{"Date", p.PaymentDate},
				{"Method", p.PaymentMethod},
				{"Transaction", p.TransactionID},
				{"Notes", p.Notes},
			}))
			return nil
		},
	}
}

func newPaymentCreateCmd() *cobra.Command {
	var in api.PaymentInput
	var amount string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a payment against an invoice",
		Long:  "Record a payment. An invoice whose payments reach its total is marked paid by the server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.Amount, err = parseAmount("amount", amount); err != nil {
				return err
			}
			in.PaymentMethod = strings.ToUpper(in.PaymentMethod)
			if in.PaymentDate == "" {
				in.PaymentDate = now().Format(invoice.DateLayout)
			}

			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			p, err := a.client.CreatePayment(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded payment of %s for invoice %s (%s)\n", render.Money(p.Amount), p.InvoiceNumber, p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Invoice, "invoice", "", "Invoice id")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount paid")
	cmd.Flags().StringVar(&in.PaymentDate, "date", "", "Payment date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&in.PaymentMethod, "method", "BANK_TRANSFER", "Payment method: "+strings.Join(api.PaymentMethods, ", "))
	cmd.Flags().StringVar(&in.TransactionID, "transaction-id", "", "Reference from the payment provider")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "Notes")
	_ = cmd.MarkFlagRequired("invoice")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newPaymentDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, yes, fmt.Sprintf("Delete payment %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			if err := a.client.DeletePayment(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Payment deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
