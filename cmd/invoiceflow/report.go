package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/render"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"reports"},
		Short:   "Business reports",
	}
	cmd.AddCommand(newDashboardCmd(), newIncomeReportCmd(), newExpenseReportCmd(), newClientReportCmd())
	return cmd
}

func periodFlags(cmd *cobra.Command, p *api.ReportPeriod) {
	cmd.Flags().StringVar(&p.StartDate, "from", "", "Start date YYYY-MM-DD (default start of this month)")
	cmd.Flags().StringVar(&p.EndDate, "to", "", "End date YYYY-MM-DD (default today)")
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Headline figures, recent invoices and top clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, user, err := signedIn(cmd)
			if err != nil {
				return err
			}
			d, err := a.client.Dashboard(cmd.Context())
			if err != nil {
				return err
			}

			var b strings.Builder
			b.WriteString(render.Title.Render("Dashboard for "+user.FullName()) + "\n")
			o := d.Overview
			b.WriteString(render.Fields([][2]string{
				{"Outstanding", render.Money(o.TotalOutstanding)},
				{"Paid this month", render.Money(o.PaidThisMonth)},
				{"Pending invoices", strconv.Itoa(o.PendingInvoices)},
				{"Overdue invoices", fmt.Sprintf("%d (%s)", o.OverdueInvoices, render.Money(o.OverdueAmount))},
				{"Expenses this month", render.Money(o.ExpensesThisMonth)},
			}))

			if len(d.RecentInvoices) > 0 {
				rows := make([][]string, len(d.RecentInvoices))
				for i, inv := range d.RecentInvoices {
					rows[i] = []string{inv.InvoiceNumber, inv.ClientName, inv.DueDate, render.Status(inv.Status), render.Money(inv.TotalAmount)}
				}
				b.WriteString("\n" + render.Label.Render("Recent invoices") + "\n")
				b.WriteString(render.Table([]string{"Number", "Client", "Due", "Status", "Total"}, rows, 4) + "\n")
			}

			if len(d.MonthlyRevenue) > 0 {
				rows := make([][]string, len(d.MonthlyRevenue))
				for i, m := range d.MonthlyRevenue {
					rows[i] = []string{m.Month, render.Money(m.Revenue)}
				}
				b.WriteString("\n" + render.Label.Render("Monthly revenue") + "\n")
				b.WriteString(render.Table([]string{"Month", "Revenue"}, rows, 1) + "\n")
			}

			if len(d.TopClients) > 0 {
				rows := make([][]string, len(d.TopClients))
				for i, c := range d.TopClients {
					rows[i] = []string{c.Name, c.CompanyName, render.Money(c.TotalInvoiced)}
				}
				b.WriteString("\n" + render.Label.Render("Top clients") + "\n")
				b.WriteString(render.Table([]string{"Client", "Company", "Invoiced"}, rows, 2) + "\n")
			}

			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		},
	}
}

func newIncomeReportCmd() *cobra.Command {
	var period api.ReportPeriod

	cmd := &cobra.Command{
		Use:   "income",
		Short: "Paid invoices in a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			r, err := a.client.IncomeReport(cmd.Context(), period)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, render.Fields([][2]string{
				{"Total income", render.Money(r.TotalIncome)},
				{"Invoices paid", strconv.Itoa(r.InvoiceCount)},
			}))
			if len(r.Invoices) > 0 {
				rows := make([][]string, len(r.Invoices))
				for i, inv := range r.Invoices {
					rows[i] = []string{inv.InvoiceNumber, inv.ClientName, inv.PaidAt, render.Money(inv.TotalAmount)}
				}
				fmt.Fprintln(out, render.Table([]string{"Number", "Client", "Paid at", "Total"}, rows, 3))
			}
			return nil
		},
	}
	periodFlags(cmd, &period)
	return cmd
}

func newExpenseReportCmd() *cobra.Command {
	var period api.ReportPeriod

	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Expenses by category in a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			r, err := a.client.ExpenseReport(cmd.Context(), period)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, render.Fields([][2]string{
				{"Total expenses", render.Money(r.TotalExpenses)},
				{"Tax deductible", render.Money(r.TaxDeductible)},
			}))
			if len(r.ByCategory) > 0 {
				rows := make([][]string, len(r.ByCategory))
				for i, c := range r.ByCategory {
					rows[i] = []string{c.Category, strconv.Itoa(c.Count), render.Money(c.Total)}
				}
				fmt.Fprintln(out, render.Table([]string{"Category", "Count", "Total"}, rows, 1, 2))
			}
			return nil
		},
	}
	periodFlags(cmd, &period)
	return cmd
}

func newClientReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "Invoiced and paid totals per client",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}
			r, err := a.client.ClientReport(cmd.Context())
			if err != nil {
				return err
			}
			if len(r.Clients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clients found")
				return nil
			}

			rows := make([][]string, len(r.Clients))
			for i, c := range r.Clients {
				rows[i] = []string{c.Name, c.CompanyName, strconv.Itoa(c.InvoiceCount), render.Money(c.TotalInvoiced), render.Money(c.TotalPaid)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Table([]string{"Client", "Company", "Invoices", "Invoiced", "Paid"}, rows, 2, 3, 4))
			return nil
		},
	}
}
