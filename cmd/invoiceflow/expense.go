package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/invoice"
	"github.com/mejba13/invoiceflow/internal/render"
)

func newExpenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"expenses"},
		Short:   "Track business expenses",
	}
	cmd.AddCommand(newExpenseListCmd(), newExpenseShowCmd(), newExpenseCreateCmd(), newExpenseDeleteCmd())
	return cmd
}

func newExpenseListCmd() *cobra.Command {
	var category, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			expenses, err := a.client.ListExpenses(cmd.Context(), api.ListFilter{
				"category": strings.ToUpper(category),
				"search":   search,
			})
			if err != nil {
				return err
			}
			if len(expenses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No expenses found")
				return nil
			}

			rows := make([][]string, len(expenses))
			for i, e := range expenses {
				deductible := ""
				if e.TaxDeductible {
					deductible = "yes"
				}
				rows[i] = []string{e.ID, e.ExpenseDate, e.Description, e.Category, e.Vendor, deductible, render.Money(e.Amount)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Table([]string{"ID", "Date", "Description", "Category", "Vendor", "Deductible", "Amount"}, rows, 6))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&search, "search", "", "Filter by description or vendor")
	return cmd
}

func newExpenseShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			e, err := a.client.GetExpense(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			deductible := "no"
			if e.TaxDeductible {
				deductible = "yes"
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Title.Render(e.Description)+"\n"+render.Fields([][2]string{
				{"ID", e.ID},
				{"Amount", render.Money(e.Amount)},
				{"Category", e.Category},
				{"Date", e.ExpenseDate},
				{"Vendor", e.Vendor},
				{"Tax deductible", deductible},
				{"Notes", e.Notes},
			}))
			return nil
		},
	}
}

func newExpenseCreateCmd() *cobra.Command {
	var in api.ExpenseInput
	var amount string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record an expense",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.Amount, err = parseAmount("amount", amount); err != nil {
				return err
			}
			in.Category = strings.ToUpper(in.Category)
			if in.ExpenseDate == "" {
				in.ExpenseDate = now().Format(invoice.DateLayout)
			}

			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			e, err := a.client.CreateExpense(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded expense %q of %s (%s)\n", e.Description, render.Money(e.Amount), e.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "What the money was spent on")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount spent")
	cmd.Flags().StringVar(&in.Category, "category", "OTHER", "Category: "+strings.Join(api.ExpenseCategories, ", "))
	cmd.Flags().StringVar(&in.ExpenseDate, "date", "", "Expense date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&in.Vendor, "vendor", "", "Vendor")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "Notes")
	cmd.Flags().BoolVar(&in.TaxDeductible, "tax-deductible", false, "Mark as tax deductible")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newExpenseDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, yes, fmt.Sprintf("Delete expense %s?", args[0]))
			if err != nil || !ok {
				return err
			}
			if err := a.client.DeleteExpense(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Expense deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
