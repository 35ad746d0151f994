package main

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var banner bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print the version number of the InvoiceFlow client",
		Run: func(cmd *cobra.Command, args []string) {
			if banner {
				cmd.Println(figure.NewFigure("InvoiceFlow", "cybermedium", true).String())
			}
			cmd.Printf("invoiceflow version %s\n", version)
		},
	}
	cmd.Flags().BoolVar(&banner, "banner", false, "Print the banner")
	return cmd
}
