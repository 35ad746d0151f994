package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/config"
	"github.com/mejba13/invoiceflow/internal/logging"
	"github.com/mejba13/invoiceflow/internal/render"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, render.Error(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "invoiceflow",
		Short:         "InvoiceFlow billing from the terminal",
		Long:          "Manage clients, invoices, payments and expenses on an InvoiceFlow server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a broken config is reported by the command that loads it
			level := config.DefaultLogLevel
			if cfg, err := config.Load(); err == nil {
				level = cfg.Logging.Level
			}
			logging.Setup(cmd.ErrOrStderr(), level)
		},
	}

	root.AddCommand(
		newInitCmd(),
		newConfigCmd(),
		newVersionCmd(),
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newProfileCmd(),
		newPasswordCmd(),
		newClientCmd(),
		newInvoiceCmd(),
		newDraftCmd(),
		newPaymentCmd(),
		newExpenseCmd(),
		newReportCmd(),
	)
	return root
}
